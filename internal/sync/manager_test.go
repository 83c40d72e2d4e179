// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

package sync

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sprintlens/sprintlens/internal/database"
	"github.com/sprintlens/sprintlens/internal/models"
	"github.com/sprintlens/sprintlens/internal/models/jira"
)

// newFixtureJira returns a fake client covering every task: one allow-listed
// project with a scrum and a kanban board, two sprints, two custom fields and
// two issues with changelogs.
func newFixtureJira(t *testing.T) *fakeJira {
	t.Helper()
	return &fakeJira{
		users: []jira.User{
			{AccountID: "acc-1", DisplayName: "Dev One", EmailAddress: "dev1@example.com", Active: true},
			{AccountID: "acc-2", DisplayName: "Dev Two", Name: "dev.two", Active: true},
			{AccountID: "acc-3", DisplayName: "Gone", Active: false},
		},
		projects: []jira.Project{
			{ID: "10001", Key: "GGQPA", Name: "Quality Platform", Style: "classic",
				Insight: &jira.ProjectInsight{TotalIssueCount: 2, LastIssueUpdateTime: "2026-02-05T17:00:00.000+0000"}},
			{ID: "10002", Key: "SIDE", Name: "Side Project", Style: "next-gen"},
		},
		boards: map[string][]jira.Board{
			"GGQPA": {
				{ID: 7, Name: "GGQPA Scrum", Type: "scrum"},
				{ID: 8, Name: "GGQPA Kanban", Type: "kanban"},
			},
		},
		fields: []jira.Field{
			{ID: "summary", Name: "Summary", Custom: false},
			{ID: "customfield_10036", Name: "Story Points", Custom: true},
			{ID: "customfield_10020", Name: "Sprint", Custom: true},
			{ID: "customfield_10099", Name: "Team", Custom: true},
		},
		sprints: map[int64][]jira.Sprint{
			7: {
				{ID: 100, Name: "Sprint 100", State: "closed",
					StartDate: "2026-01-05T09:00:00.000Z", EndDate: "2026-01-19T17:00:00.000Z", CompleteDate: "2026-01-19T18:00:00.000Z"},
				{ID: 101, Name: "Sprint 101", State: "active", StartDate: "2026-01-20T09:00:00.000Z"},
			},
		},
		issues: map[string][]jira.Issue{
			"GGQPA": {
				mustIssue(t, `{
					"id": "20001",
					"key": "GGQPA-1",
					"changelog": {"histories": [
						{"created": "2026-02-01T09:00:00.000+0000",
							"items": [{"field": "status", "to": "3", "toString": "In Progress"}]},
						{"created": "2026-02-05T17:00:00.000+0000",
							"items": [{"field": "status", "to": "6", "toString": "Done"}]}
					]},
					"fields": {
						"summary": "Implement importer",
						"issuetype": {"id": "10010", "name": "Story", "hierarchyLevel": 0},
						"project": {"id": "10001", "key": "GGQPA", "name": "Quality Platform"},
						"status": {"id": "6", "name": "Done", "statusCategory": {"id": "3", "name": "Done"}},
						"priority": {"id": "2", "name": "High"},
						"resolution": {"id": "1", "name": "Fixed"},
						"assignee": {"accountId": "acc-1", "displayName": "Dev One"},
						"creator": {"accountId": "acc-ghost", "displayName": "Ghost"},
						"created": "2026-01-20T10:00:00.000+0000",
						"updated": "2026-02-05T17:00:00.000+0000",
						"resolutiondate": "2026-02-05T17:00:00.000+0000",
						"duedate": "2026-02-10",
						"labels": ["backend", "importer"],
						"customfield_10036": 5,
						"customfield_10020": ["com.atlassian.greenhopper.service.sprint.Sprint@1a[id=100,rapidViewId=7,state=CLOSED,name=Sprint 100]"],
						"customfield_10099": {"value": "Platform"}
					}
				}`),
				mustIssue(t, `{
					"id": "20002",
					"key": "GGQPA-2",
					"changelog": {"histories": []},
					"fields": {
						"summary": "Polish importer",
						"issuetype": {"id": "10011", "name": "Sub-task", "hierarchyLevel": -1},
						"project": {"id": "10001", "key": "GGQPA", "name": "Quality Platform"},
						"status": {"id": "3", "name": "In Progress", "statusCategory": {"id": "4", "name": "In Progress"}},
						"creator": {"accountId": "acc-2", "displayName": "Dev Two"},
						"parent": {"id": "20001", "key": "GGQPA-1"},
						"created": "2026-02-02T10:00:00.000+0000",
						"updated": "2026-02-06T12:00:00.000+0000",
						"customfield_10016": 2,
						"customfield_10020": [{"id": 101, "name": "Sprint 101"}, {"id": 999, "name": "Unknown"}]
					}
				}`),
			},
		},
	}
}

func TestRunAllFullSync(t *testing.T) {
	store := newTestStore(t)
	client := newFixtureJira(t)
	m := NewManager(store, client, testJiraConfig())
	ctx := context.Background()

	result, err := m.RunAll(ctx)
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}

	if !result.Success {
		t.Errorf("result.Success = false; tasks = %+v", result.Tasks)
	}
	if result.RunID == "" {
		t.Error("result.RunID is empty")
	}
	wantOrder := []string{TaskUsers, TaskProjects, TaskCustomFields, TaskSprints, TaskIssues}
	if len(result.Tasks) != len(wantOrder) {
		t.Fatalf("tasks = %d, want %d", len(result.Tasks), len(wantOrder))
	}
	for i, name := range wantOrder {
		if result.Tasks[i].TaskName != name {
			t.Errorf("task[%d] = %s, want %s", i, result.Tasks[i].TaskName, name)
		}
		if !result.Tasks[i].Success {
			t.Errorf("task %s failed: %s", name, result.Tasks[i].Message)
		}
	}

	// Inactive accounts are skipped
	users := result.Tasks[0]
	if users.Created != 2 || users.Errors != 0 {
		t.Errorf("users task = %+v, want 2 created", users)
	}
	if users.Details["totalUsers"] != 3 {
		t.Errorf("users totalUsers = %v, want 3", users.Details["totalUsers"])
	}

	projects := result.Tasks[1]
	if projects.Details["totalProjects"] != 2 || projects.Details["totalBoards"] != 2 {
		t.Errorf("projects details = %v", projects.Details)
	}

	customFields := result.Tasks[2]
	if customFields.Created != 3 {
		t.Errorf("custom fields created = %d, want 3", customFields.Created)
	}
	if customFields.Details["totalFields"] != 4 {
		t.Errorf("custom fields totalFields = %v, want 4", customFields.Details["totalFields"])
	}

	sprints := result.Tasks[3]
	if sprints.Created != 2 || sprints.Details["totalBoards"] != 1 {
		t.Errorf("sprints task = %+v", sprints)
	}

	issues := result.Tasks[4]
	if issues.Created != 2 || issues.Errors != 0 {
		t.Errorf("issues task = %+v, want 2 created", issues)
	}
	// GGAHTP is allow-listed but absent upstream; only GGQPA syncs
	if issues.Details["totalProjects"] != 1 {
		t.Errorf("issues totalProjects = %v, want 1", issues.Details["totalProjects"])
	}

	assertIssueOne(t, store)
	assertIssueTwo(t, store)
}

func assertIssueOne(t *testing.T, store *database.DB) {
	t.Helper()
	ctx := context.Background()

	issue, err := store.GetIssueBySourceID(ctx, "20001")
	if err != nil {
		t.Fatalf("GetIssueBySourceID() error = %v", err)
	}
	if issue == nil {
		t.Fatal("issue 20001 not in warehouse")
	}

	if issue.StoryPoints == nil || *issue.StoryPoints != 5 {
		t.Errorf("story points = %v, want 5", issue.StoryPoints)
	}
	wantStarted := jira.ParseDateTime("2026-02-01T09:00:00.000+0000")
	if issue.StartedAt == nil || !issue.StartedAt.Equal(*wantStarted) {
		t.Errorf("started_at = %v, want %v", issue.StartedAt, wantStarted)
	}
	wantCompleted := jira.ParseDateTime("2026-02-05T17:00:00.000+0000")
	if issue.CompletedAt == nil || !issue.CompletedAt.Equal(*wantCompleted) {
		t.Errorf("completed_at = %v, want %v", issue.CompletedAt, wantCompleted)
	}
	if issue.AssigneeID == nil {
		t.Error("assignee_id = nil, want link to synced user")
	}
	if issue.CreatorID != nil {
		t.Error("creator_id set for unknown account, want nil")
	}
	if !strings.HasSuffix(issue.SourceURL, "/browse/GGQPA-1") {
		t.Errorf("source_url = %q", issue.SourceURL)
	}

	labels, err := store.ListIssueLabels(ctx, issue.ID)
	if err != nil {
		t.Fatalf("ListIssueLabels() error = %v", err)
	}
	if len(labels) != 2 {
		t.Errorf("labels = %v, want 2", labels)
	}

	sprints, err := store.ListIssueSprints(ctx, issue.ID, false)
	if err != nil {
		t.Fatalf("ListIssueSprints() error = %v", err)
	}
	if len(sprints) != 1 {
		t.Fatalf("sprint links = %d, want 1", len(sprints))
	}
	if !sprints[0].Planned || sprints[0].PlannedPoints == nil || *sprints[0].PlannedPoints != 5 {
		t.Errorf("sprint link = %+v, want planned with 5 points", sprints[0])
	}

	// The issue's own Done transition resolves; the In Progress status was
	// unknown when this issue was processed
	changes, err := store.ListIssueStatusChanges(ctx, issue.ID)
	if err != nil {
		t.Fatalf("ListIssueStatusChanges() error = %v", err)
	}
	if len(changes) != 1 {
		t.Errorf("status changes = %d, want 1", len(changes))
	}

	values, err := store.ListIssueCustomFieldValues(ctx, issue.ID)
	if err != nil {
		t.Fatalf("ListIssueCustomFieldValues() error = %v", err)
	}
	// Story points, sprint field and team are registered custom fields
	if len(values) != 3 {
		t.Errorf("custom field values = %+v, want 3", values)
	}
	for _, v := range values {
		if strings.Contains(v.Value, "Platform") && !strings.HasPrefix(v.Value, "{") {
			t.Errorf("structured value not JSON serialized: %q", v.Value)
		}
	}
}

func assertIssueTwo(t *testing.T, store *database.DB) {
	t.Helper()
	ctx := context.Background()

	issue, err := store.GetIssueBySourceID(ctx, "20002")
	if err != nil {
		t.Fatalf("GetIssueBySourceID() error = %v", err)
	}
	if issue == nil {
		t.Fatal("issue 20002 not in warehouse")
	}

	// Fallback story point field
	if issue.StoryPoints == nil || *issue.StoryPoints != 2 {
		t.Errorf("story points = %v, want 2 from fallback field", issue.StoryPoints)
	}
	if issue.ParentKey == nil || *issue.ParentKey != "GGQPA-1" {
		t.Errorf("parent_key = %v, want GGQPA-1", issue.ParentKey)
	}
	if issue.StartedAt != nil || issue.CompletedAt != nil {
		t.Error("timeline set without status transitions")
	}
	if issue.ResolutionID != nil {
		t.Error("resolution_id set for unresolved issue")
	}

	// Sprint 999 is unknown upstream and skipped
	sprints, err := store.ListIssueSprints(ctx, issue.ID, false)
	if err != nil {
		t.Fatalf("ListIssueSprints() error = %v", err)
	}
	if len(sprints) != 1 {
		t.Errorf("sprint links = %d, want 1 (unknown sprint skipped)", len(sprints))
	}
}

func TestRunAllIdempotent(t *testing.T) {
	store := newTestStore(t)
	client := newFixtureJira(t)
	m := NewManager(store, client, testJiraConfig())
	ctx := context.Background()

	if _, err := m.RunAll(ctx); err != nil {
		t.Fatalf("first RunAll() error = %v", err)
	}
	second, err := m.RunAll(ctx)
	if err != nil {
		t.Fatalf("second RunAll() error = %v", err)
	}

	if !second.Success {
		t.Errorf("second run failed: %+v", second.Tasks)
	}
	if second.Summary.TotalCreated != 0 {
		t.Errorf("second run created = %d, want 0", second.Summary.TotalCreated)
	}
	if second.Summary.TotalUpdated == 0 {
		t.Error("second run updated = 0, want re-upserts counted as updates")
	}

	n, err := store.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers() error = %v", err)
	}
	if n != 2 {
		t.Errorf("users after two runs = %d, want 2", n)
	}

	issue, err := store.GetIssueBySourceID(ctx, "20001")
	if err != nil || issue == nil {
		t.Fatalf("GetIssueBySourceID() = %v, %v", issue, err)
	}
	active, err := store.ListIssueSprints(ctx, issue.ID, false)
	if err != nil {
		t.Fatalf("ListIssueSprints() error = %v", err)
	}
	if len(active) != 1 {
		t.Errorf("active sprint links after rerun = %d, want 1", len(active))
	}
}

func TestRunAllGuardsWithEmptyWarehouse(t *testing.T) {
	store := newTestStore(t)
	m := NewManager(store, &fakeJira{}, testJiraConfig())

	result, err := m.RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}

	if result.Success {
		t.Error("result.Success = true, want false with failed guard tasks")
	}
	if len(result.Tasks) != 5 {
		t.Fatalf("tasks = %d, want all 5 executed", len(result.Tasks))
	}

	byName := map[string]TaskResult{}
	for _, tr := range result.Tasks {
		byName[tr.TaskName] = tr
	}
	if !byName[TaskUsers].Success || !byName[TaskProjects].Success {
		t.Error("empty upstream should sync zero records successfully")
	}
	cf := byName[TaskCustomFields]
	if !cf.Success || !strings.Contains(cf.Message, "No custom fields") {
		t.Errorf("custom fields task = %+v, want empty success", cf)
	}
	if byName[TaskSprints].Success {
		t.Error("sprints task succeeded without sprint-capable boards")
	}
	if byName[TaskIssues].Success {
		t.Error("issues task succeeded without allow-listed projects")
	}
	if result.Summary.FailedTasks != 2 {
		t.Errorf("failed tasks = %d, want 2", result.Summary.FailedTasks)
	}
}

func TestRunAllTaskFailureDoesNotAbortRun(t *testing.T) {
	store := newTestStore(t)
	client := newFixtureJira(t)
	client.usersErr = &APIError{Status: 500, Body: "upstream down"}
	m := NewManager(store, client, testJiraConfig())

	result, err := m.RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}

	if result.Success {
		t.Error("result.Success = true, want false")
	}
	if len(result.Tasks) != 5 {
		t.Fatalf("tasks = %d, want 5 (failed task must not abort the run)", len(result.Tasks))
	}
	if result.Tasks[0].Success {
		t.Error("users task succeeded despite API failure")
	}
	for _, tr := range result.Tasks[1:] {
		if !tr.Success {
			t.Errorf("task %s failed: %s", tr.TaskName, tr.Message)
		}
	}
}

func TestRunAllConflict(t *testing.T) {
	store := newTestStore(t)
	m := NewManager(store, &fakeJira{}, testJiraConfig())

	m.syncMu.Lock()
	defer m.syncMu.Unlock()

	_, err := m.RunAll(context.Background())
	if !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("RunAll() error = %v, want ErrSyncInProgress", err)
	}
}

// flakyStore wraps a real store and injects failures for specific users.
type flakyStore struct {
	Store
	failSourceID  string
	panicSourceID string
}

func (s *flakyStore) UpsertUser(ctx context.Context, u *models.User) (bool, error) {
	if u.SourceID == s.failSourceID {
		return false, errors.New("simulated storage failure")
	}
	if u.SourceID == s.panicSourceID {
		panic("simulated panic")
	}
	return s.Store.UpsertUser(ctx, u)
}

func TestUsersTaskIsolatesRecordFailures(t *testing.T) {
	store := newTestStore(t)
	client := newFixtureJira(t)
	m := NewManager(&flakyStore{Store: store, failSourceID: "acc-1"}, client, testJiraConfig())

	result, err := m.RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}

	users := result.Tasks[0]
	if !users.Success {
		t.Errorf("users task failed: %s (record failures must be isolated)", users.Message)
	}
	if users.Errors != 1 {
		t.Errorf("users errors = %d, want 1", users.Errors)
	}
	if users.Created != 1 {
		t.Errorf("users created = %d, want 1 (the other active account)", users.Created)
	}
}

// flakyIssueStore injects a failure while persisting one issue.
type flakyIssueStore struct {
	Store
	failSourceID string
}

func (s *flakyIssueStore) SaveIssue(ctx context.Context, g *database.IssueGraph) (bool, error) {
	if g.Issue.SourceID == s.failSourceID {
		return false, errors.New("simulated storage failure")
	}
	return s.Store.SaveIssue(ctx, g)
}

func TestIssuesTaskIsolatesRecordFailures(t *testing.T) {
	store := newTestStore(t)
	client := newFixtureJira(t)
	m := NewManager(&flakyIssueStore{Store: store, failSourceID: "20001"}, client, testJiraConfig())
	ctx := context.Background()

	result, err := m.RunAll(ctx)
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}

	issues := result.Tasks[4]
	if !issues.Success {
		t.Errorf("issues task failed: %s (record failures must be isolated)", issues.Message)
	}
	if issues.Errors != 1 {
		t.Errorf("issues errors = %d, want 1", issues.Errors)
	}
	if issues.Created != 1 {
		t.Errorf("issues created = %d, want 1 (the sibling issue)", issues.Created)
	}

	missing, err := store.GetIssueBySourceID(ctx, "20001")
	if err != nil {
		t.Fatalf("GetIssueBySourceID() error = %v", err)
	}
	if missing != nil {
		t.Error("failed issue persisted anyway")
	}
	sibling, err := store.GetIssueBySourceID(ctx, "20002")
	if err != nil {
		t.Fatalf("GetIssueBySourceID() error = %v", err)
	}
	if sibling == nil {
		t.Error("sibling issue missing, failure was not isolated to one record")
	}
}

// flakyProjectStore injects a failure while upserting one project row.
type flakyProjectStore struct {
	Store
	failKey string
}

func (s *flakyProjectStore) UpsertProject(ctx context.Context, p *models.Project) (bool, error) {
	if p.Key == s.failKey {
		return false, errors.New("simulated storage failure")
	}
	return s.Store.UpsertProject(ctx, p)
}

func TestProjectsTaskFetchesBoardsDespiteRowFailure(t *testing.T) {
	store := newTestStore(t)
	client := newFixtureJira(t)
	m := NewManager(&flakyProjectStore{Store: store, failKey: "GGQPA"}, client, testJiraConfig())

	result, err := m.RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}

	projects := result.Tasks[1]
	if !projects.Success {
		t.Errorf("projects task failed: %s (record failures must be isolated)", projects.Message)
	}
	if projects.Errors != 1 {
		t.Errorf("projects errors = %d, want 1", projects.Errors)
	}
	if projects.Created != 1 {
		t.Errorf("projects created = %d, want 1 (the other project)", projects.Created)
	}
	// Boards belong to the API project, not its warehouse row; a failed row
	// upsert must not hide them
	if projects.Details["totalBoards"] != 2 {
		t.Errorf("totalBoards = %v, want 2", projects.Details["totalBoards"])
	}
	if projects.Details["totalProjects"] != 2 {
		t.Errorf("totalProjects = %v, want 2", projects.Details["totalProjects"])
	}
}

func TestIssuesTaskResolvesProjectFromIssue(t *testing.T) {
	store := newTestStore(t)
	client := newFixtureJira(t)
	// An issue moved into GGQPA's backlog from a project outside the synced
	// category: its embedded project reference is all the warehouse ever sees
	client.issues["GGQPA"] = append(client.issues["GGQPA"], mustIssue(t, `{
		"id": "20050",
		"key": "OPS-7",
		"fields": {
			"summary": "Issue from an unsynced project",
			"issuetype": {"id": "10010", "name": "Story", "hierarchyLevel": 0},
			"project": {"id": "10050", "key": "OPS", "name": "Operations"},
			"status": {"id": "3", "name": "In Progress", "statusCategory": {"id": "4", "name": "In Progress"}},
			"creator": {"accountId": "acc-2", "displayName": "Dev Two"},
			"created": "2026-02-03T10:00:00.000+0000",
			"updated": "2026-02-06T12:00:00.000+0000"
		}
	}`))
	m := NewManager(store, client, testJiraConfig())
	ctx := context.Background()

	result, err := m.RunAll(ctx)
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}

	issues := result.Tasks[4]
	if !issues.Success || issues.Errors != 0 {
		t.Errorf("issues task = %+v, want clean success", issues)
	}
	if issues.Created != 3 {
		t.Errorf("issues created = %d, want 3", issues.Created)
	}

	ops, err := store.FindProjectByKey(ctx, "OPS")
	if err != nil {
		t.Fatalf("FindProjectByKey() error = %v", err)
	}
	if ops == nil {
		t.Fatal("OPS project row not created from the issue's project reference")
	}
	if ops.SourceID != "10050" || ops.Name != "Operations" {
		t.Errorf("OPS row = %+v, want minimal row from issue data", ops)
	}

	moved, err := store.GetIssueBySourceID(ctx, "20050")
	if err != nil || moved == nil {
		t.Fatalf("GetIssueBySourceID() = %v, %v", moved, err)
	}
	if moved.ProjectID == nil || *moved.ProjectID != ops.ID {
		t.Errorf("moved issue project_id = %v, want %d", moved.ProjectID, ops.ID)
	}

	// Issues in the searched project still link to its synced row
	home, err := store.FindProjectByKey(ctx, "GGQPA")
	if err != nil || home == nil {
		t.Fatalf("FindProjectByKey() = %v, %v", home, err)
	}
	first, err := store.GetIssueBySourceID(ctx, "20001")
	if err != nil || first == nil {
		t.Fatalf("GetIssueBySourceID() = %v, %v", first, err)
	}
	if first.ProjectID == nil || *first.ProjectID != home.ID {
		t.Errorf("issue project_id = %v, want %d", first.ProjectID, home.ID)
	}
}

func TestTaskPanicConvertsToFailure(t *testing.T) {
	store := newTestStore(t)
	client := newFixtureJira(t)
	m := NewManager(&flakyStore{Store: store, panicSourceID: "acc-1"}, client, testJiraConfig())

	result, err := m.RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}

	if len(result.Tasks) != 5 {
		t.Fatalf("tasks = %d, want 5 (panicking task must not kill the run)", len(result.Tasks))
	}
	users := result.Tasks[0]
	if users.Success {
		t.Error("panicking users task reported success")
	}
	if !strings.Contains(users.Message, "panicked") {
		t.Errorf("users message = %q, want panic note", users.Message)
	}
	if result.Success {
		t.Error("result.Success = true with a panicked task")
	}

	if m.LastResult() == nil {
		t.Error("LastResult() = nil after completed run")
	}
}
