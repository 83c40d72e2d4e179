// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

/*
lookups.go - Dimension Resolution

Statuses, priorities, resolutions and issue types are not synced by a
dedicated task; they are discovered on the issues that reference them and
resolved lazily into their dimension tables. Resolution is find-by-source_id
then insert, so repeated syncs converge on one row per upstream entity.
*/
package database

import (
	"context"
	"fmt"

	"github.com/sprintlens/sprintlens/internal/models"
)

// ResolveStatus finds or creates a status row, returning its warehouse id.
func (db *DB) ResolveStatus(ctx context.Context, s *models.Status) (int64, error) {
	id, found, err := lookupID(ctx, db.conn,
		`SELECT id FROM jira_statuses WHERE source_id = ?`, s.SourceID)
	if err != nil {
		return 0, fmt.Errorf("failed to look up status %s: %w", s.SourceID, err)
	}
	if found {
		_, err = db.conn.ExecContext(ctx,
			`UPDATE jira_statuses
			 SET name = ?, description = ?, status_category = ?, row_updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			s.Name, s.Description, s.StatusCategory, id)
		if err != nil {
			return 0, fmt.Errorf("failed to update status %s: %w", s.SourceID, err)
		}
		s.ID = id
		return id, nil
	}

	err = db.conn.QueryRowContext(ctx,
		`INSERT INTO jira_statuses (id, source_id, name, description, status_category)
		 VALUES (nextval('seq_jira_statuses'), ?, ?, ?, ?)
		 RETURNING id`,
		s.SourceID, s.Name, s.Description, s.StatusCategory).Scan(&s.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert status %s: %w", s.SourceID, err)
	}
	return s.ID, nil
}

// ResolvePriority finds or creates a priority row, returning its warehouse id.
func (db *DB) ResolvePriority(ctx context.Context, p *models.Priority) (int64, error) {
	id, found, err := lookupID(ctx, db.conn,
		`SELECT id FROM jira_priorities WHERE source_id = ?`, p.SourceID)
	if err != nil {
		return 0, fmt.Errorf("failed to look up priority %s: %w", p.SourceID, err)
	}
	if found {
		p.ID = id
		return id, nil
	}

	err = db.conn.QueryRowContext(ctx,
		`INSERT INTO jira_priorities (id, source_id, name, description)
		 VALUES (nextval('seq_jira_priorities'), ?, ?, ?)
		 RETURNING id`,
		p.SourceID, p.Name, p.Description).Scan(&p.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert priority %s: %w", p.SourceID, err)
	}
	return p.ID, nil
}

// ResolveResolution finds or creates a resolution row, returning its
// warehouse id.
func (db *DB) ResolveResolution(ctx context.Context, r *models.Resolution) (int64, error) {
	id, found, err := lookupID(ctx, db.conn,
		`SELECT id FROM jira_resolutions WHERE source_id = ?`, r.SourceID)
	if err != nil {
		return 0, fmt.Errorf("failed to look up resolution %s: %w", r.SourceID, err)
	}
	if found {
		r.ID = id
		return id, nil
	}

	err = db.conn.QueryRowContext(ctx,
		`INSERT INTO jira_resolutions (id, source_id, name, description)
		 VALUES (nextval('seq_jira_resolutions'), ?, ?, ?)
		 RETURNING id`,
		r.SourceID, r.Name, r.Description).Scan(&r.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert resolution %s: %w", r.SourceID, err)
	}
	return r.ID, nil
}

// ResolveIssueType finds or creates an issue type row, returning its
// warehouse id.
func (db *DB) ResolveIssueType(ctx context.Context, t *models.IssueType) (int64, error) {
	id, found, err := lookupID(ctx, db.conn,
		`SELECT id FROM jira_issue_types WHERE source_id = ?`, t.SourceID)
	if err != nil {
		return 0, fmt.Errorf("failed to look up issue type %s: %w", t.SourceID, err)
	}
	if found {
		_, err = db.conn.ExecContext(ctx,
			`UPDATE jira_issue_types
			 SET name = ?, description = ?, hierarchy_level = ?, project_id = ?,
				row_updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			t.Name, t.Description, t.HierarchyLevel, t.ProjectID, id)
		if err != nil {
			return 0, fmt.Errorf("failed to update issue type %s: %w", t.SourceID, err)
		}
		t.ID = id
		return id, nil
	}

	err = db.conn.QueryRowContext(ctx,
		`INSERT INTO jira_issue_types (id, source_id, name, description, hierarchy_level, project_id)
		 VALUES (nextval('seq_jira_issue_types'), ?, ?, ?, ?, ?)
		 RETURNING id`,
		t.SourceID, t.Name, t.Description, t.HierarchyLevel, t.ProjectID).Scan(&t.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert issue type %s: %w", t.SourceID, err)
	}
	return t.ID, nil
}

// ListStatusIDs returns a map from status source_id to warehouse id, used to
// resolve changelog transitions without a query per history item.
func (db *DB) ListStatusIDs(ctx context.Context) (map[string]int64, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT source_id, id FROM jira_statuses`)
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}
	defer closeQuietly(rows)

	statuses := make(map[string]int64)
	for rows.Next() {
		var sourceID string
		var id int64
		if err := rows.Scan(&sourceID, &id); err != nil {
			return nil, fmt.Errorf("failed to scan status row: %w", err)
		}
		statuses[sourceID] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status rows: %w", err)
	}
	return statuses, nil
}
