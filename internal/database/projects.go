// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sprintlens/sprintlens/internal/models"
)

// UpsertProject inserts or updates a project by source_id. It reports whether
// a new row was created and fills in p.ID.
func (db *DB) UpsertProject(ctx context.Context, p *models.Project) (bool, error) {
	id, found, err := lookupID(ctx, db.conn,
		`SELECT id FROM jira_projects WHERE source_id = ?`, p.SourceID)
	if err != nil {
		return false, fmt.Errorf("failed to look up project %s: %w", p.SourceID, err)
	}

	if !found {
		err = db.conn.QueryRowContext(ctx,
			`INSERT INTO jira_projects (id, source_id, key, name, project_type_key, private,
				total_issue_count, last_issue_update_time, api_accessible, allowlisted)
			 VALUES (nextval('seq_jira_projects'), ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 RETURNING id`,
			p.SourceID, p.Key, p.Name, p.ProjectTypeKey, p.Private,
			p.TotalIssueCount, p.LastIssueUpdateTime, p.APIAccessible, p.Allowlisted).Scan(&p.ID)
		if err != nil {
			return false, fmt.Errorf("failed to insert project %s: %w", p.SourceID, err)
		}
		return true, nil
	}

	_, err = db.conn.ExecContext(ctx,
		`UPDATE jira_projects
		 SET key = ?, name = ?, project_type_key = ?, private = ?,
			total_issue_count = ?, last_issue_update_time = ?,
			api_accessible = ?, allowlisted = ?, row_updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		p.Key, p.Name, p.ProjectTypeKey, p.Private,
		p.TotalIssueCount, p.LastIssueUpdateTime, p.APIAccessible, p.Allowlisted, id)
	if err != nil {
		return false, fmt.Errorf("failed to update project %s: %w", p.SourceID, err)
	}
	p.ID = id
	return false, nil
}

// FindProjectByKey fetches a project row by its Jira key, or nil if absent.
func (db *DB) FindProjectByKey(ctx context.Context, key string) (*models.Project, error) {
	p := &models.Project{}
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, source_id, key, name, project_type_key, private,
			total_issue_count, last_issue_update_time, api_accessible, allowlisted,
			row_created_at, row_updated_at
		 FROM jira_projects WHERE key = ?`, key).
		Scan(&p.ID, &p.SourceID, &p.Key, &p.Name, &p.ProjectTypeKey, &p.Private,
			&p.TotalIssueCount, &p.LastIssueUpdateTime, &p.APIAccessible, &p.Allowlisted,
			&p.RowCreatedAt, &p.RowUpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project %s: %w", key, err)
	}
	return p, nil
}

// ResolveProject returns the warehouse id for a project by source_id,
// creating a minimal row (source id, key, name) when the project has not
// been synced yet. Issues can reference projects outside the synced
// category; those rows are filled in by a later projects sync.
func (db *DB) ResolveProject(ctx context.Context, p *models.Project) (int64, error) {
	id, err := db.FindProjectIDBySourceID(ctx, p.SourceID)
	if err != nil {
		return 0, err
	}
	if id != nil {
		return *id, nil
	}

	var newID int64
	err = db.conn.QueryRowContext(ctx,
		`INSERT INTO jira_projects (id, source_id, key, name)
		 VALUES (nextval('seq_jira_projects'), ?, ?, ?)
		 RETURNING id`,
		p.SourceID, p.Key, p.Name).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert project %s: %w", p.SourceID, err)
	}
	return newID, nil
}

// FindProjectIDBySourceID returns the warehouse id for a project, or nil if
// it has not been synced.
func (db *DB) FindProjectIDBySourceID(ctx context.Context, sourceID string) (*int64, error) {
	if sourceID == "" {
		return nil, nil
	}
	id, found, err := lookupID(ctx, db.conn,
		`SELECT id FROM jira_projects WHERE source_id = ?`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up project %s: %w", sourceID, err)
	}
	if !found {
		return nil, nil
	}
	return &id, nil
}
