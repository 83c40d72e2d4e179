// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

/*
manager.go - Sync Orchestration

The Manager runs the five sync tasks in a fixed order chosen so that each
task's warehouse preconditions are met by the ones before it:

 1. users            no preconditions
 2. projects_boards  no preconditions
 3. custom_fields    no preconditions
 4. sprints          needs sprint-capable boards from task 2
 5. issues           needs projects, custom fields and sprints

A run always executes every task: a failed task is recorded and the run
continues, so one broken endpoint does not hide the health of the others.
RunAll never returns an error for task failures; the only error is
ErrSyncInProgress when a run is already underway.

Thread Safety:
  - syncMu: prevents concurrent sync execution (TryLock, callers get a
    conflict instead of queueing)
  - mu: protects lastResult for concurrent readers
*/
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sprintlens/sprintlens/internal/config"
	"github.com/sprintlens/sprintlens/internal/database"
	"github.com/sprintlens/sprintlens/internal/logging"
	"github.com/sprintlens/sprintlens/internal/metrics"
	"github.com/sprintlens/sprintlens/internal/models"
)

// ErrSyncInProgress is returned when a run is requested while another run
// holds the sync mutex.
var ErrSyncInProgress = errors.New("a sync run is already in progress")

// Store defines the warehouse operations the sync tasks depend on.
// Implemented by *database.DB.
type Store interface {
	Ping(ctx context.Context) error

	UpsertUser(ctx context.Context, u *models.User) (bool, error)
	FindUserIDBySourceID(ctx context.Context, sourceID string) (*int64, error)

	UpsertProject(ctx context.Context, p *models.Project) (bool, error)
	FindProjectByKey(ctx context.Context, key string) (*models.Project, error)
	ResolveProject(ctx context.Context, p *models.Project) (int64, error)

	UpsertBoard(ctx context.Context, b *models.Board) (bool, error)
	ListSprintBoards(ctx context.Context) ([]models.Board, error)

	UpsertSprint(ctx context.Context, s *models.Sprint) (bool, error)
	EnsureSprintBoard(ctx context.Context, sprintID, boardID int64) error
	FindSprintIDBySourceID(ctx context.Context, sourceID string) (*int64, error)

	UpsertCustomField(ctx context.Context, f *models.CustomField) (bool, error)
	ListCustomFieldIDs(ctx context.Context) (map[string]int64, error)

	ResolveStatus(ctx context.Context, s *models.Status) (int64, error)
	ResolvePriority(ctx context.Context, p *models.Priority) (int64, error)
	ResolveResolution(ctx context.Context, r *models.Resolution) (int64, error)
	ResolveIssueType(ctx context.Context, t *models.IssueType) (int64, error)
	ListStatusIDs(ctx context.Context) (map[string]int64, error)

	SaveIssue(ctx context.Context, g *database.IssueGraph) (bool, error)
}

// Ensure *database.DB satisfies Store
var _ Store = (*database.DB)(nil)

// Manager orchestrates data synchronization from Jira into the warehouse.
type Manager struct {
	store  Store
	client JiraClient
	cfg    *config.JiraConfig

	syncMu sync.Mutex // Prevents concurrent sync execution

	mu         sync.RWMutex
	lastResult *Result
}

// NewManager creates a sync manager.
func NewManager(store Store, client JiraClient, cfg *config.JiraConfig) *Manager {
	return &Manager{
		store:  store,
		client: client,
		cfg:    cfg,
	}
}

// RunAll executes every sync task in order and returns the aggregated
// result. Only one run may execute at a time; a second caller receives
// ErrSyncInProgress immediately rather than queueing behind the first.
func (m *Manager) RunAll(ctx context.Context) (*Result, error) {
	if !m.syncMu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer m.syncMu.Unlock()

	result := newResult()
	logging.Info().Str("run_id", result.RunID).Msg("Starting sync run")

	tasks := []struct {
		name string
		fn   func(ctx context.Context, tr *TaskResult)
	}{
		{TaskUsers, m.syncUsers},
		{TaskProjects, m.syncProjectsAndBoards},
		{TaskCustomFields, m.syncCustomFields},
		{TaskSprints, m.syncSprints},
		{TaskIssues, m.syncIssues},
	}

	for _, task := range tasks {
		tr := m.runTask(ctx, task.name, task.fn)
		result.add(tr)
	}

	result.finish()
	metrics.RecordRun(result.Success)
	logging.Info().
		Str("run_id", result.RunID).
		Bool("success", result.Success).
		Dur("duration", result.TotalDuration).
		Int("created", result.Summary.TotalCreated).
		Int("updated", result.Summary.TotalUpdated).
		Int("errors", result.Summary.TotalErrors).
		Int("failed_tasks", result.Summary.FailedTasks).
		Msg("Sync run finished")

	m.mu.Lock()
	m.lastResult = result
	m.mu.Unlock()

	return result, nil
}

// LastResult returns the most recent run result, or nil if no run has
// completed since startup.
func (m *Manager) LastResult() *Result {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastResult
}

// runTask executes one task with a panic boundary. A panicking task is
// converted to a failed task result so the run always completes with a full
// report.
func (m *Manager) runTask(ctx context.Context, name string, fn func(ctx context.Context, tr *TaskResult)) (result TaskResult) {
	result = TaskResult{
		TaskName:  name,
		StartedAt: time.Now().UTC(),
	}

	defer func() {
		if p := recover(); p != nil {
			result.Success = false
			result.Message = fmt.Sprintf("task panicked: %v", p)
			logging.Error().Str("task", name).Any("panic", p).Msg("Sync task panicked")
		}
		result.Duration = time.Since(result.StartedAt)
		result.DurationMS = result.Duration.Milliseconds()
		metrics.RecordTaskResult(name, result.Duration, result.Created, result.Updated, result.Errors, result.Success)

		event := logging.Info()
		if !result.Success {
			event = logging.Warn()
		}
		event.
			Str("task", name).
			Bool("success", result.Success).
			Dur("duration", result.Duration).
			Int("created", result.Created).
			Int("updated", result.Updated).
			Int("errors", result.Errors).
			Msg(result.Message)
	}()

	fn(ctx, &result)
	return result
}

// fail marks a task result as failed with a formatted message.
func fail(tr *TaskResult, format string, args ...any) {
	tr.Success = false
	tr.Message = fmt.Sprintf(format, args...)
}
