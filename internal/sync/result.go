// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

package sync

import (
	"time"

	"github.com/google/uuid"
)

// Task names, in execution order.
const (
	TaskUsers        = "users"
	TaskProjects     = "projects_boards"
	TaskCustomFields = "custom_fields"
	TaskSprints      = "sprints"
	TaskIssues       = "issues"
)

// TaskResult is the outcome of one sync task. A task can succeed with a
// non-zero Errors count: per-record failures are isolated, logged, counted
// and skipped rather than aborting the task.
type TaskResult struct {
	TaskName string `json:"taskName"`
	Success  bool   `json:"success"`

	// Duration is kept for in-process callers; the JSON result carries
	// DurationMS so API consumers read milliseconds, not nanoseconds.
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"durationMs"`

	Created   int            `json:"created"`
	Updated   int            `json:"updated"`
	Errors    int            `json:"errors"`
	Message   string         `json:"message,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	StartedAt time.Time      `json:"startedAt"`
}

// Summary aggregates counts across a run's tasks.
type Summary struct {
	TotalCreated    int `json:"totalCreated"`
	TotalUpdated    int `json:"totalUpdated"`
	TotalErrors     int `json:"totalErrors"`
	SuccessfulTasks int `json:"successfulTasks"`
	FailedTasks     int `json:"failedTasks"`
}

// Result is the outcome of a full sync run. Success means every task
// succeeded; one failed task fails the run but never prevents the later
// tasks from executing.
type Result struct {
	RunID   string `json:"runId"`
	Success bool   `json:"success"`

	TotalDuration   time.Duration `json:"-"`
	TotalDurationMS int64         `json:"totalDurationMs"`

	StartedAt   time.Time    `json:"startedAt"`
	CompletedAt time.Time    `json:"completedAt"`
	Tasks       []TaskResult `json:"tasks"`
	Summary     Summary      `json:"summary"`
}

// newResult starts a run record with a fresh id.
func newResult() *Result {
	return &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
}

// add folds a task result into the run.
func (r *Result) add(t TaskResult) {
	r.Tasks = append(r.Tasks, t)
	r.Summary.TotalCreated += t.Created
	r.Summary.TotalUpdated += t.Updated
	r.Summary.TotalErrors += t.Errors
	if t.Success {
		r.Summary.SuccessfulTasks++
	} else {
		r.Summary.FailedTasks++
	}
}

// finish closes the run record. The run succeeds only if no task failed.
func (r *Result) finish() {
	r.CompletedAt = time.Now().UTC()
	r.TotalDuration = r.CompletedAt.Sub(r.StartedAt)
	r.TotalDurationMS = r.TotalDuration.Milliseconds()
	r.Success = r.Summary.FailedTasks == 0
}
