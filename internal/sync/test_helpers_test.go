// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

package sync

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/sprintlens/sprintlens/internal/config"
	"github.com/sprintlens/sprintlens/internal/database"
	"github.com/sprintlens/sprintlens/internal/models/jira"
)

// testJiraConfig returns the sync configuration used by manager tests.
func testJiraConfig() *config.JiraConfig {
	return &config.JiraConfig{
		BaseURL:           "https://example.atlassian.net",
		Email:             "bot@example.com",
		APIToken:          "token",
		Timeout:           5 * time.Second,
		ProjectCategoryID: "10003",
		ProjectKeys:       []string{"GGQPA", "GGAHTP"},
		StoryPointFields:  []string{"customfield_10036", "customfield_10016"},
		SprintField:       "customfield_10020",
		StartedStatus:     "In Progress",
		CompletedStatus:   "Done",
		PageSize:          1000,
		IssuePageSize:     100,
	}
}

// newTestStore opens an in-memory warehouse.
func newTestStore(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{Path: "", MaxMemory: "512MB", Threads: 2})
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// fakeJira is a fixture-backed JiraClient. Fields left nil produce empty
// responses, which the tasks treat as successfully syncing nothing.
type fakeJira struct {
	users    []jira.User
	projects []jira.Project
	boards   map[string][]jira.Board // project key -> boards
	fields   []jira.Field
	sprints  map[int64][]jira.Sprint // board source id -> sprints
	issues   map[string][]jira.Issue // project key -> issues

	pingErr    error
	usersErr   error
	fieldsErr  error
	projectErr error
	sprintsErr error
	issuesErr  error
}

var _ JiraClient = (*fakeJira)(nil)

func (f *fakeJira) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeJira) Users(ctx context.Context, startAt, maxResults int) ([]jira.User, error) {
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	return page(f.users, startAt, maxResults), nil
}

func (f *fakeJira) SearchProjects(ctx context.Context, categoryID string, startAt, maxResults int) (*jira.ProjectSearchResponse, error) {
	if f.projectErr != nil {
		return nil, f.projectErr
	}
	values := page(f.projects, startAt, maxResults)
	return &jira.ProjectSearchResponse{
		Values:  values,
		StartAt: startAt,
		Total:   len(f.projects),
		IsLast:  startAt+len(values) >= len(f.projects),
	}, nil
}

func (f *fakeJira) Boards(ctx context.Context, projectKeyOrID string, startAt, maxResults int) (*jira.BoardsResponse, error) {
	boards := f.boards[projectKeyOrID]
	values := page(boards, startAt, maxResults)
	return &jira.BoardsResponse{
		Values:  values,
		StartAt: startAt,
		Total:   len(boards),
		IsLast:  startAt+len(values) >= len(boards),
	}, nil
}

func (f *fakeJira) Fields(ctx context.Context) ([]jira.Field, error) {
	if f.fieldsErr != nil {
		return nil, f.fieldsErr
	}
	return f.fields, nil
}

func (f *fakeJira) Sprints(ctx context.Context, boardID int64, startAt, maxResults int) (*jira.SprintsResponse, error) {
	if f.sprintsErr != nil {
		return nil, f.sprintsErr
	}
	sprints := f.sprints[boardID]
	values := page(sprints, startAt, maxResults)
	return &jira.SprintsResponse{
		Values:  values,
		StartAt: startAt,
		Total:   len(sprints),
		IsLast:  startAt+len(values) >= len(sprints),
	}, nil
}

func (f *fakeJira) SearchIssues(ctx context.Context, jql string, maxResults int, nextPageToken string) (*jira.IssueSearchResponse, error) {
	if f.issuesErr != nil {
		return nil, f.issuesErr
	}
	// jql is "project = KEY"
	key := strings.TrimPrefix(jql, "project = ")
	return &jira.IssueSearchResponse{Issues: f.issues[key], IsLast: true}, nil
}

// page slices a fixture list the way an offset-paginated endpoint would.
func page[T any](items []T, startAt, maxResults int) []T {
	if startAt >= len(items) {
		return nil
	}
	end := startAt + maxResults
	if end > len(items) {
		end = len(items)
	}
	return items[startAt:end]
}

// mustIssue builds a jira.Issue from raw JSON so the custom-field capture in
// IssueFields.UnmarshalJSON runs, matching what the real decoder produces.
func mustIssue(t *testing.T, raw string) jira.Issue {
	t.Helper()
	var issue jira.Issue
	if err := json.Unmarshal([]byte(raw), &issue); err != nil {
		t.Fatalf("bad issue fixture: %v", err)
	}
	return issue
}
