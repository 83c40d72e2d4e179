// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

package api

import (
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sprintlens/sprintlens/internal/logging"
	"github.com/sprintlens/sprintlens/internal/metrics"
)

// instrument records Prometheus metrics and a structured log line for every
// request. The route pattern is not available until after the handler runs,
// so the raw path is used as the endpoint label; the route tree is small and
// has no path parameters.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(ww.Status())).Inc()

		logging.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", duration).
			Str("remote_addr", r.RemoteAddr).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
