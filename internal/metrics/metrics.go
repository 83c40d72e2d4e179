// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

// Package metrics provides Prometheus instrumentation for the sync pipeline:
// per-task durations and record counts, Jira API call outcomes, and HTTP
// endpoint metrics. All collectors are registered via promauto at init.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncTaskDuration tracks wall-clock duration per sync task.
	SyncTaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_task_duration_seconds",
			Help:    "Duration of sync tasks in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"task"},
	)

	// SyncRecordsCreated counts warehouse rows created per task.
	SyncRecordsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_records_created_total",
			Help: "Total number of warehouse rows created by sync tasks",
		},
		[]string{"task"},
	)

	// SyncRecordsUpdated counts warehouse rows updated per task.
	SyncRecordsUpdated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_records_updated_total",
			Help: "Total number of warehouse rows updated by sync tasks",
		},
		[]string{"task"},
	)

	// SyncRecordErrors counts per-record failures that were isolated and skipped.
	SyncRecordErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_record_errors_total",
			Help: "Total number of records skipped due to per-record failures",
		},
		[]string{"task"},
	)

	// SyncTaskFailures counts fatal-to-task failures (API errors, unmet preconditions).
	SyncTaskFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_task_failures_total",
			Help: "Total number of sync tasks that ended unsuccessfully",
		},
		[]string{"task"},
	)

	// SyncRunsTotal counts full sync runs by overall outcome.
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Total number of full sync runs",
		},
		[]string{"outcome"}, // "success" or "failure"
	)

	// JiraAPIRequests counts outbound Jira API calls by endpoint and status.
	JiraAPIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jira_api_requests_total",
			Help: "Total number of Jira API requests",
		},
		[]string{"endpoint", "status_code"},
	)

	// JiraAPIRequestDuration tracks outbound Jira API latency.
	JiraAPIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jira_api_request_duration_seconds",
			Help:    "Jira API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// HTTPRequestsTotal counts inbound API requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of inbound HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)
)

// RecordTaskResult records the metrics for one completed sync task.
func RecordTaskResult(task string, duration time.Duration, created, updated, errors int, success bool) {
	SyncTaskDuration.WithLabelValues(task).Observe(duration.Seconds())
	SyncRecordsCreated.WithLabelValues(task).Add(float64(created))
	SyncRecordsUpdated.WithLabelValues(task).Add(float64(updated))
	SyncRecordErrors.WithLabelValues(task).Add(float64(errors))
	if !success {
		SyncTaskFailures.WithLabelValues(task).Inc()
	}
}

// RecordRun records the outcome of a full sync run.
func RecordRun(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	SyncRunsTotal.WithLabelValues(outcome).Inc()
}

// RecordJiraRequest records one outbound Jira API call.
func RecordJiraRequest(endpoint string, statusCode int, duration time.Duration) {
	JiraAPIRequests.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	JiraAPIRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
