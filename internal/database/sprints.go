// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

package database

import (
	"context"
	"fmt"

	"github.com/sprintlens/sprintlens/internal/models"
)

// UpsertSprint inserts or updates a sprint by source_id. It reports whether a
// new row was created and fills in s.ID.
func (db *DB) UpsertSprint(ctx context.Context, s *models.Sprint) (bool, error) {
	id, found, err := lookupID(ctx, db.conn,
		`SELECT id FROM jira_sprints WHERE source_id = ?`, s.SourceID)
	if err != nil {
		return false, fmt.Errorf("failed to look up sprint %s: %w", s.SourceID, err)
	}

	if !found {
		err = db.conn.QueryRowContext(ctx,
			`INSERT INTO jira_sprints (id, source_id, board_id, name, state, start_date, end_date, complete_date)
			 VALUES (nextval('seq_jira_sprints'), ?, ?, ?, ?, ?, ?, ?)
			 RETURNING id`,
			s.SourceID, s.BoardID, s.Name, s.State,
			s.StartDate, s.EndDate, s.CompleteDate).Scan(&s.ID)
		if err != nil {
			return false, fmt.Errorf("failed to insert sprint %s: %w", s.SourceID, err)
		}
		return true, nil
	}

	_, err = db.conn.ExecContext(ctx,
		`UPDATE jira_sprints
		 SET board_id = ?, name = ?, state = ?, start_date = ?, end_date = ?,
			complete_date = ?, row_updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		s.BoardID, s.Name, s.State, s.StartDate, s.EndDate, s.CompleteDate, id)
	if err != nil {
		return false, fmt.Errorf("failed to update sprint %s: %w", s.SourceID, err)
	}
	s.ID = id
	return false, nil
}

// EnsureSprintBoard links a sprint to a board if the link does not already
// exist. A sprint can appear on several boards; each pairing is recorded once.
func (db *DB) EnsureSprintBoard(ctx context.Context, sprintID, boardID int64) error {
	_, found, err := lookupID(ctx, db.conn,
		`SELECT id FROM jira_sprint_boards WHERE sprint_id = ? AND board_id = ?`,
		sprintID, boardID)
	if err != nil {
		return fmt.Errorf("failed to look up sprint board link: %w", err)
	}
	if found {
		return nil
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO jira_sprint_boards (id, sprint_id, board_id)
		 VALUES (nextval('seq_jira_sprint_boards'), ?, ?)`,
		sprintID, boardID)
	if err != nil {
		return fmt.Errorf("failed to insert sprint board link: %w", err)
	}
	return nil
}

// FindSprintIDBySourceID returns the warehouse id for a sprint, or nil if it
// has not been synced. Issue sprint links referencing unknown sprints are
// skipped rather than failing the issue.
func (db *DB) FindSprintIDBySourceID(ctx context.Context, sourceID string) (*int64, error) {
	if sourceID == "" {
		return nil, nil
	}
	id, found, err := lookupID(ctx, db.conn,
		`SELECT id FROM jira_sprints WHERE source_id = ?`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up sprint %s: %w", sourceID, err)
	}
	if !found {
		return nil, nil
	}
	return &id, nil
}
