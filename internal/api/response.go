// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

// Package api provides the HTTP control surface: the sync trigger, last-run
// inspection, health probes and Prometheus metrics.
package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/sprintlens/sprintlens/internal/logging"
)

// errorResponse is the JSON body returned for non-2xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON serializes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError sends a JSON error body with the given status.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
