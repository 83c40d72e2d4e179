// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

/*
issues.go - Issue Persistence

An issue and its child relations are written in a single transaction per
issue. The issue row itself is upserted by source_id; labels, custom field
values and status changes are replaced wholesale (delete then reinsert) so
the warehouse mirrors the source exactly. Sprint links are the exception:
existing links are soft-deleted by setting deleted_at and fresh links
inserted, preserving the history of sprint membership changes.
*/
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sprintlens/sprintlens/internal/models"
)

// IssueGraph bundles an issue row with the child relations that are replaced
// alongside it.
type IssueGraph struct {
	Issue         *models.Issue
	Labels        []string
	Sprints       []models.IssueSprintLink
	CustomFields  []models.IssueCustomFieldValue
	StatusChanges []models.IssueStatusChange
}

// SaveIssue persists an issue and its relations atomically. It reports
// whether the issue row was created and fills in g.Issue.ID.
func (db *DB) SaveIssue(ctx context.Context, g *IssueGraph) (bool, error) {
	var created bool
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		created, err = upsertIssueRow(ctx, tx, g.Issue)
		if err != nil {
			return err
		}
		if err := replaceIssueLabels(ctx, tx, g.Issue.ID, g.Labels); err != nil {
			return err
		}
		if err := replaceIssueSprints(ctx, tx, g.Issue.ID, g.Sprints); err != nil {
			return err
		}
		if err := replaceIssueCustomFieldValues(ctx, tx, g.Issue.ID, g.CustomFields); err != nil {
			return err
		}
		return replaceIssueStatusChanges(ctx, tx, g.Issue.ID, g.StatusChanges)
	})
	if err != nil {
		return false, fmt.Errorf("failed to save issue %s: %w", g.Issue.Key, err)
	}
	return created, nil
}

// upsertIssueRow inserts or updates the jira_issues row by source_id.
func upsertIssueRow(ctx context.Context, tx *sql.Tx, is *models.Issue) (bool, error) {
	id, found, err := lookupID(ctx, tx,
		`SELECT id FROM jira_issues WHERE source_id = ?`, is.SourceID)
	if err != nil {
		return false, fmt.Errorf("failed to look up issue %s: %w", is.SourceID, err)
	}

	if !found {
		err = tx.QueryRowContext(ctx,
			`INSERT INTO jira_issues (id, source_id, key, summary, source_url,
				project_id, issue_type_id, status_id, priority_id, resolution_id,
				user_id, creator_id, parent_key, story_points,
				created_at, updated_at, resolution_date, due_date,
				started_at, completed_at, synced_at)
			 VALUES (nextval('seq_jira_issues'), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 RETURNING id`,
			is.SourceID, is.Key, is.Summary, is.SourceURL,
			is.ProjectID, is.IssueTypeID, is.StatusID, is.PriorityID, is.ResolutionID,
			is.AssigneeID, is.CreatorID, is.ParentKey, is.StoryPoints,
			is.CreatedAt, is.UpdatedAt, is.ResolutionDate, is.DueDate,
			is.StartedAt, is.CompletedAt, is.SyncedAt).Scan(&is.ID)
		if err != nil {
			return false, fmt.Errorf("failed to insert issue %s: %w", is.SourceID, err)
		}
		return true, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE jira_issues
		 SET key = ?, summary = ?, source_url = ?,
			project_id = ?, issue_type_id = ?, status_id = ?, priority_id = ?, resolution_id = ?,
			user_id = ?, creator_id = ?, parent_key = ?, story_points = ?,
			created_at = ?, updated_at = ?, resolution_date = ?, due_date = ?,
			started_at = ?, completed_at = ?, synced_at = ?,
			row_updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		is.Key, is.Summary, is.SourceURL,
		is.ProjectID, is.IssueTypeID, is.StatusID, is.PriorityID, is.ResolutionID,
		is.AssigneeID, is.CreatorID, is.ParentKey, is.StoryPoints,
		is.CreatedAt, is.UpdatedAt, is.ResolutionDate, is.DueDate,
		is.StartedAt, is.CompletedAt, is.SyncedAt, id)
	if err != nil {
		return false, fmt.Errorf("failed to update issue %s: %w", is.SourceID, err)
	}
	is.ID = id
	return false, nil
}

// replaceIssueLabels rewrites the issue's label links. Label rows themselves
// are find-or-create by name and never deleted.
func replaceIssueLabels(ctx context.Context, tx *sql.Tx, issueID int64, labels []string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM jira_issue_labels WHERE issue_id = ?`, issueID); err != nil {
		return fmt.Errorf("failed to clear issue labels: %w", err)
	}

	for _, name := range labels {
		labelID, found, err := lookupID(ctx, tx,
			`SELECT id FROM jira_labels WHERE name = ?`, name)
		if err != nil {
			return fmt.Errorf("failed to look up label %s: %w", name, err)
		}
		if !found {
			err = tx.QueryRowContext(ctx,
				`INSERT INTO jira_labels (id, name)
				 VALUES (nextval('seq_jira_labels'), ?)
				 RETURNING id`, name).Scan(&labelID)
			if err != nil {
				return fmt.Errorf("failed to insert label %s: %w", name, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO jira_issue_labels (id, issue_id, label_id)
			 VALUES (nextval('seq_jira_issue_labels'), ?, ?)`,
			issueID, labelID); err != nil {
			return fmt.Errorf("failed to link label %s: %w", name, err)
		}
	}
	return nil
}

// replaceIssueSprints soft-deletes the issue's active sprint links and
// inserts the current set. Planned links are also recorded in
// jira_sprints_planned_issues once per sprint and issue pair.
func replaceIssueSprints(ctx context.Context, tx *sql.Tx, issueID int64, sprints []models.IssueSprintLink) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE jira_issue_sprints
		 SET deleted_at = CURRENT_TIMESTAMP, row_updated_at = CURRENT_TIMESTAMP
		 WHERE issue_id = ? AND deleted_at IS NULL`, issueID); err != nil {
		return fmt.Errorf("failed to retire issue sprint links: %w", err)
	}

	for _, link := range sprints {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO jira_issue_sprints (id, issue_id, sprint_id, project_id, planned, planned_points)
			 VALUES (nextval('seq_jira_issue_sprints'), ?, ?, ?, ?, ?)`,
			issueID, link.SprintID, link.ProjectID, link.Planned, link.PlannedPoints); err != nil {
			return fmt.Errorf("failed to insert issue sprint link: %w", err)
		}

		if !link.Planned {
			continue
		}
		_, found, err := lookupID(ctx, tx,
			`SELECT id FROM jira_sprints_planned_issues WHERE sprint_id = ? AND issue_id = ?`,
			link.SprintID, issueID)
		if err != nil {
			return fmt.Errorf("failed to look up planned issue link: %w", err)
		}
		if found {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO jira_sprints_planned_issues (id, sprint_id, issue_id)
			 VALUES (nextval('seq_jira_sprints_planned_issues'), ?, ?)`,
			link.SprintID, issueID); err != nil {
			return fmt.Errorf("failed to insert planned issue link: %w", err)
		}
	}
	return nil
}

// replaceIssueCustomFieldValues rewrites the issue's custom field values.
func replaceIssueCustomFieldValues(ctx context.Context, tx *sql.Tx, issueID int64, values []models.IssueCustomFieldValue) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM jira_issue_custom_field_values WHERE issue_id = ?`, issueID); err != nil {
		return fmt.Errorf("failed to clear issue custom field values: %w", err)
	}

	for _, v := range values {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO jira_issue_custom_field_values (id, issue_id, custom_field_id, value)
			 VALUES (nextval('seq_jira_issue_custom_field_values'), ?, ?, ?)`,
			issueID, v.CustomFieldID, v.Value); err != nil {
			return fmt.Errorf("failed to insert issue custom field value: %w", err)
		}
	}
	return nil
}

// replaceIssueStatusChanges rewrites the issue's observed status transitions.
func replaceIssueStatusChanges(ctx context.Context, tx *sql.Tx, issueID int64, changes []models.IssueStatusChange) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM jira_issue_status_changes WHERE issue_id = ?`, issueID); err != nil {
		return fmt.Errorf("failed to clear issue status changes: %w", err)
	}

	for _, c := range changes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO jira_issue_status_changes (id, issue_id, status_id, status_change_date)
			 VALUES (nextval('seq_jira_issue_status_changes'), ?, ?, ?)`,
			issueID, c.StatusID, c.ChangedAt); err != nil {
			return fmt.Errorf("failed to insert issue status change: %w", err)
		}
	}
	return nil
}

// GetIssueBySourceID fetches an issue row, or nil if absent.
func (db *DB) GetIssueBySourceID(ctx context.Context, sourceID string) (*models.Issue, error) {
	is := &models.Issue{}
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, source_id, key, summary, source_url,
			project_id, issue_type_id, status_id, priority_id, resolution_id,
			user_id, creator_id, parent_key, story_points,
			created_at, updated_at, resolution_date, due_date,
			started_at, completed_at, synced_at
		 FROM jira_issues WHERE source_id = ?`, sourceID).
		Scan(&is.ID, &is.SourceID, &is.Key, &is.Summary, &is.SourceURL,
			&is.ProjectID, &is.IssueTypeID, &is.StatusID, &is.PriorityID, &is.ResolutionID,
			&is.AssigneeID, &is.CreatorID, &is.ParentKey, &is.StoryPoints,
			&is.CreatedAt, &is.UpdatedAt, &is.ResolutionDate, &is.DueDate,
			&is.StartedAt, &is.CompletedAt, &is.SyncedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get issue %s: %w", sourceID, err)
	}
	return is, nil
}

// ListIssueLabels returns the label names currently linked to an issue.
func (db *DB) ListIssueLabels(ctx context.Context, issueID int64) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT l.name
		 FROM jira_issue_labels il
		 JOIN jira_labels l ON l.id = il.label_id
		 WHERE il.issue_id = ?
		 ORDER BY l.name`, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list issue labels: %w", err)
	}
	defer closeQuietly(rows)

	var labels []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan label row: %w", err)
		}
		labels = append(labels, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate label rows: %w", err)
	}
	return labels, nil
}

// ListIssueSprints returns the issue's sprint links, including soft-deleted
// ones when includeDeleted is set.
func (db *DB) ListIssueSprints(ctx context.Context, issueID int64, includeDeleted bool) ([]models.IssueSprintLink, error) {
	query := `SELECT sprint_id, project_id, planned, planned_points, deleted_at
		 FROM jira_issue_sprints WHERE issue_id = ?`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY id`

	rows, err := db.conn.QueryContext(ctx, query, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list issue sprints: %w", err)
	}
	defer closeQuietly(rows)

	var links []models.IssueSprintLink
	for rows.Next() {
		var link models.IssueSprintLink
		if err := rows.Scan(&link.SprintID, &link.ProjectID, &link.Planned,
			&link.PlannedPoints, &link.DeletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sprint link row: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sprint link rows: %w", err)
	}
	return links, nil
}

// ListIssueStatusChanges returns the issue's recorded status transitions in
// chronological order.
func (db *DB) ListIssueStatusChanges(ctx context.Context, issueID int64) ([]models.IssueStatusChange, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT status_id, status_change_date
		 FROM jira_issue_status_changes
		 WHERE issue_id = ?
		 ORDER BY status_change_date`, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list issue status changes: %w", err)
	}
	defer closeQuietly(rows)

	var changes []models.IssueStatusChange
	for rows.Next() {
		var c models.IssueStatusChange
		if err := rows.Scan(&c.StatusID, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status change row: %w", err)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status change rows: %w", err)
	}
	return changes, nil
}

// ListIssueCustomFieldValues returns the issue's stored custom field values.
func (db *DB) ListIssueCustomFieldValues(ctx context.Context, issueID int64) ([]models.IssueCustomFieldValue, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT custom_field_id, value
		 FROM jira_issue_custom_field_values
		 WHERE issue_id = ?
		 ORDER BY custom_field_id`, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list issue custom field values: %w", err)
	}
	defer closeQuietly(rows)

	var values []models.IssueCustomFieldValue
	for rows.Next() {
		var v models.IssueCustomFieldValue
		if err := rows.Scan(&v.CustomFieldID, &v.Value); err != nil {
			return nil, fmt.Errorf("failed to scan custom field value row: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate custom field value rows: %w", err)
	}
	return values, nil
}

// CountPlannedIssues returns the number of planned issue rows for a sprint.
func (db *DB) CountPlannedIssues(ctx context.Context, sprintID int64) (int64, error) {
	var n int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM jira_sprints_planned_issues WHERE sprint_id = ?`, sprintID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count planned issues: %w", err)
	}
	return n, nil
}
