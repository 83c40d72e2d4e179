// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sprintlens/sprintlens/internal/logging"
	"github.com/sprintlens/sprintlens/internal/sync"
)

// SyncRunner is the sync orchestration surface the handlers depend on.
// Implemented by *sync.Manager.
type SyncRunner interface {
	RunAll(ctx context.Context) (*sync.Result, error)
	LastResult() *sync.Result
}

// Pinger is a liveness check on a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	runner SyncRunner
	db     Pinger
	jira   Pinger
}

// NewHandler creates an API handler. jira may be nil to exclude the upstream
// API from the readiness probe.
func NewHandler(runner SyncRunner, db Pinger, jira Pinger) *Handler {
	return &Handler{
		runner: runner,
		db:     db,
		jira:   jira,
	}
}

// TriggerSync runs a full sync synchronously and returns the run result.
// A run already in progress yields 409 rather than queueing a second run.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.runner.RunAll(r.Context())
	if err != nil {
		if errors.Is(err, sync.ErrSyncInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		logging.Error().Err(err).Msg("Sync run failed to start")
		writeError(w, http.StatusInternalServerError, "failed to start sync run")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// LastSync returns the most recent run result, or 404 if no run has
// completed since startup.
func (h *Handler) LastSync(w http.ResponseWriter, r *http.Request) {
	result := h.runner.LastResult()
	if result == nil {
		writeError(w, http.StatusNotFound, "no sync run has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HealthLive reports process liveness.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthReady reports whether the warehouse (and, when configured, the Jira
// API) are reachable.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := h.db.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if h.jira != nil {
		if err := h.jira.Ping(ctx); err != nil {
			checks["jira"] = err.Error()
			healthy = false
		} else {
			checks["jira"] = "ok"
		}
	}

	status := http.StatusOK
	state := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "not ready"
	}
	writeJSON(w, status, map[string]any{
		"status": state,
		"checks": checks,
	})
}
