// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

/*
issues.go - Issue Sync

Imports issues for the allow-listed projects via cursor-paginated JQL
search with changelogs expanded. Each issue is materialized into an
IssueGraph (row, labels, sprint links, custom field values, status changes)
and saved in its own transaction. A failure on one issue is logged and
counted; the rest of the page still syncs.

Dimension rows (statuses, priorities, resolutions, issue types) are resolved
lazily from the data on each issue. Users are never lazily created: an
assignee or creator unknown to the warehouse leaves the foreign key null
until the users task has seen the account.
*/
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/sprintlens/sprintlens/internal/database"
	"github.com/sprintlens/sprintlens/internal/logging"
	"github.com/sprintlens/sprintlens/internal/models"
	"github.com/sprintlens/sprintlens/internal/models/jira"
)

// issueSyncContext carries the per-run preloads for the issues task.
type issueSyncContext struct {
	customFields map[string]int64 // custom field key -> warehouse id
	statuses     map[string]int64 // status source id -> warehouse id
}

// syncIssues imports issues for every allow-listed project. The task fails
// fast when none of the configured projects exist in the warehouse yet.
func (m *Manager) syncIssues(ctx context.Context, tr *TaskResult) {
	var projects []*models.Project
	for _, key := range m.cfg.ProjectKeys {
		p, err := m.store.FindProjectByKey(ctx, key)
		if err != nil {
			fail(tr, "project lookup failed: %v", err)
			return
		}
		if p == nil {
			logging.Warn().Str("project_key", key).Msg("Allow-listed project not in warehouse, skipping")
			continue
		}
		projects = append(projects, p)
	}
	if len(projects) == 0 {
		fail(tr, "no allow-listed projects found, please sync projects and boards first")
		return
	}

	customFields, err := m.store.ListCustomFieldIDs(ctx)
	if err != nil {
		fail(tr, "custom field preload failed: %v", err)
		return
	}
	statuses, err := m.store.ListStatusIDs(ctx)
	if err != nil {
		fail(tr, "status preload failed: %v", err)
		return
	}
	run := &issueSyncContext{customFields: customFields, statuses: statuses}

	totalIssues := 0
	for _, project := range projects {
		n, err := m.syncProjectIssues(ctx, run, project, tr)
		if err != nil {
			fail(tr, "issue fetch for project %s failed: %v", project.Key, err)
			return
		}
		totalIssues += n
	}

	tr.Success = true
	tr.Message = fmt.Sprintf("Synced %d issues across %d projects", tr.Created+tr.Updated, len(projects))
	tr.Details = map[string]any{
		"totalProjects": len(projects),
		"totalIssues":   totalIssues,
	}
}

// syncProjectIssues walks the cursor-paginated search for one project and
// returns how many issues the API returned.
func (m *Manager) syncProjectIssues(ctx context.Context, run *issueSyncContext, project *models.Project, tr *TaskResult) (int, error) {
	jql := fmt.Sprintf("project = %s", project.Key)
	total := 0
	nextPageToken := ""

	for {
		resp, err := m.client.SearchIssues(ctx, jql, m.cfg.IssuePageSize, nextPageToken)
		if err != nil {
			return total, err
		}
		total += len(resp.Issues)

		for i := range resp.Issues {
			issue := &resp.Issues[i]
			created, err := m.saveIssue(ctx, run, issue)
			if err != nil {
				tr.Errors++
				logging.Error().Err(err).
					Str("issue_key", issue.Key).
					Str("project_key", project.Key).
					Msg("Failed to sync issue")
				continue
			}
			if created {
				tr.Created++
			} else {
				tr.Updated++
			}
		}

		if resp.IsLast || resp.NextPageToken == "" {
			return total, nil
		}
		nextPageToken = resp.NextPageToken
	}
}

// saveIssue materializes one API issue into an IssueGraph and persists it.
func (m *Manager) saveIssue(ctx context.Context, run *issueSyncContext, issue *jira.Issue) (bool, error) {
	fields := &issue.Fields
	timeline := ReconstructTimeline(issue.Changelog, m.cfg.StartedStatus, m.cfg.CompletedStatus)
	storyPoints := m.storyPoints(fields)

	row := &models.Issue{
		SourceID:       issue.ID,
		Key:            issue.Key,
		Summary:        fields.Summary,
		SourceURL:      fmt.Sprintf("%s/browse/%s", m.cfg.BaseURL, issue.Key),
		StoryPoints:    storyPoints,
		CreatedAt:      jira.ParseDateTime(fields.Created),
		UpdatedAt:      jira.ParseDateTime(fields.Updated),
		ResolutionDate: jira.ParseDateTime(fields.ResolutionDate),
		DueDate:        jira.ParseDate(fields.DueDate),
		StartedAt:      timeline.StartedAt,
		CompletedAt:    timeline.CompletedAt,
		SyncedAt:       time.Now().UTC(),
	}
	if fields.Parent != nil {
		row.ParentKey = &fields.Parent.Key
	}

	if err := m.resolveIssueRefs(ctx, run, fields, row); err != nil {
		return false, err
	}

	sprints, err := m.issueSprintLinks(ctx, row.ProjectID, fields, storyPoints)
	if err != nil {
		return false, err
	}

	graph := &database.IssueGraph{
		Issue:         row,
		Labels:        fields.Labels,
		Sprints:       sprints,
		CustomFields:  issueCustomFieldValues(run, fields),
		StatusChanges: issueStatusChanges(run, issue.Changelog),
	}
	return m.store.SaveIssue(ctx, graph)
}

// resolveIssueRefs fills the issue row's dimension foreign keys. The project
// is re-resolved from the issue's own project reference, not the task's
// allow-list row: JQL can return issues whose project was never synced (moved
// issues, for one), and those get a minimal project row created on the spot.
func (m *Manager) resolveIssueRefs(ctx context.Context, run *issueSyncContext, fields *jira.IssueFields, row *models.Issue) error {
	projectID, err := m.store.ResolveProject(ctx, &models.Project{
		SourceID: fields.Project.ID,
		Key:      fields.Project.Key,
		Name:     fields.Project.Name,
	})
	if err != nil {
		return err
	}
	row.ProjectID = &projectID

	typeID, err := m.store.ResolveIssueType(ctx, &models.IssueType{
		SourceID:       fields.IssueType.ID,
		Name:           fields.IssueType.Name,
		Description:    optional(fields.IssueType.Description),
		HierarchyLevel: fields.IssueType.HierarchyLevel,
		ProjectID:      &projectID,
	})
	if err != nil {
		return err
	}
	row.IssueTypeID = &typeID

	status := &models.Status{
		SourceID:    fields.Status.ID,
		Name:        fields.Status.Name,
		Description: optional(fields.Status.Description),
	}
	if fields.Status.Category != nil {
		status.StatusCategory = optional(fields.Status.Category.Name)
	}
	statusID, err := m.store.ResolveStatus(ctx, status)
	if err != nil {
		return err
	}
	row.StatusID = &statusID
	run.statuses[fields.Status.ID] = statusID

	if fields.Priority != nil {
		priorityID, err := m.store.ResolvePriority(ctx, &models.Priority{
			SourceID:    fields.Priority.ID,
			Name:        fields.Priority.Name,
			Description: optional(fields.Priority.Description),
		})
		if err != nil {
			return err
		}
		row.PriorityID = &priorityID
	}

	if fields.Resolution != nil {
		resolutionID, err := m.store.ResolveResolution(ctx, &models.Resolution{
			SourceID:    fields.Resolution.ID,
			Name:        fields.Resolution.Name,
			Description: optional(fields.Resolution.Description),
		})
		if err != nil {
			return err
		}
		row.ResolutionID = &resolutionID
	}

	if fields.Assignee != nil {
		row.AssigneeID, err = m.store.FindUserIDBySourceID(ctx, fields.Assignee.AccountID)
		if err != nil {
			return err
		}
	}
	row.CreatorID, err = m.store.FindUserIDBySourceID(ctx, fields.Creator.AccountID)
	if err != nil {
		return err
	}
	return nil
}

// storyPoints returns the first non-nil value among the configured
// story-point fields.
func (m *Manager) storyPoints(fields *jira.IssueFields) *float64 {
	for _, key := range m.cfg.StoryPointFields {
		if v := fields.Number(key); v != nil {
			return v
		}
	}
	return nil
}

// issueSprintLinks builds the issue's sprint links from the sprint custom
// field. Sprint ids that are not in the warehouse yet are skipped.
func (m *Manager) issueSprintLinks(ctx context.Context, projectID *int64, fields *jira.IssueFields, storyPoints *float64) ([]models.IssueSprintLink, error) {
	sourceIDs := fields.SprintIDs(m.cfg.SprintField)
	links := make([]models.IssueSprintLink, 0, len(sourceIDs))

	for _, sourceID := range sourceIDs {
		sprintID, err := m.store.FindSprintIDBySourceID(ctx, sourceID)
		if err != nil {
			return nil, err
		}
		if sprintID == nil {
			logging.Debug().Str("sprint_source_id", sourceID).Msg("Sprint not in warehouse, skipping link")
			continue
		}
		links = append(links, models.IssueSprintLink{
			SprintID:      *sprintID,
			ProjectID:     projectID,
			Planned:       true,
			PlannedPoints: storyPoints,
		})
	}
	return links, nil
}

// issueCustomFieldValues collects the stored value for every custom field
// present on the issue and known to the warehouse registry.
func issueCustomFieldValues(run *issueSyncContext, fields *jira.IssueFields) []models.IssueCustomFieldValue {
	values := make([]models.IssueCustomFieldValue, 0, len(fields.Custom))
	for key, raw := range fields.Custom {
		fieldID, ok := run.customFields[key]
		if !ok {
			continue
		}
		values = append(values, models.IssueCustomFieldValue{
			CustomFieldID: fieldID,
			Value:         jira.ValueString(raw),
		})
	}
	return values
}

// issueStatusChanges collects one row per changelog status transition whose
// destination status resolves in the warehouse.
func issueStatusChanges(run *issueSyncContext, changelog *jira.Changelog) []models.IssueStatusChange {
	if changelog == nil {
		return nil
	}
	var changes []models.IssueStatusChange
	for _, history := range changelog.Histories {
		changedAt := jira.ParseDateTime(history.Created)
		if changedAt == nil {
			continue
		}
		for _, item := range history.Items {
			if item.Field != "status" {
				continue
			}
			statusID, ok := run.statuses[item.To]
			if !ok {
				continue
			}
			changes = append(changes, models.IssueStatusChange{
				StatusID:  statusID,
				ChangedAt: *changedAt,
			})
		}
	}
	return changes
}

// optional converts a possibly-empty string to a nullable column value.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
