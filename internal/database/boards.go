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

// UpsertBoard inserts or updates a board by source_id. It reports whether a
// new row was created and fills in b.ID.
func (db *DB) UpsertBoard(ctx context.Context, b *models.Board) (bool, error) {
	id, found, err := lookupID(ctx, db.conn,
		`SELECT id FROM jira_boards WHERE source_id = ?`, b.SourceID)
	if err != nil {
		return false, fmt.Errorf("failed to look up board %s: %w", b.SourceID, err)
	}

	if !found {
		err = db.conn.QueryRowContext(ctx,
			`INSERT INTO jira_boards (id, source_id, name, board_type, supports_sprints, api_accessible)
			 VALUES (nextval('seq_jira_boards'), ?, ?, ?, ?, ?)
			 RETURNING id`,
			b.SourceID, b.Name, b.BoardType, b.SupportsSprints, b.APIAccessible).Scan(&b.ID)
		if err != nil {
			return false, fmt.Errorf("failed to insert board %s: %w", b.SourceID, err)
		}
		return true, nil
	}

	_, err = db.conn.ExecContext(ctx,
		`UPDATE jira_boards
		 SET name = ?, board_type = ?, supports_sprints = ?, api_accessible = ?,
			row_updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		b.Name, b.BoardType, b.SupportsSprints, b.APIAccessible, id)
	if err != nil {
		return false, fmt.Errorf("failed to update board %s: %w", b.SourceID, err)
	}
	b.ID = id
	return false, nil
}

// ListSprintBoards returns all boards that support sprints and are API
// accessible, the precondition set for the sprint sync task.
func (db *DB) ListSprintBoards(ctx context.Context) ([]models.Board, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, source_id, name, board_type, supports_sprints, api_accessible,
			row_created_at, row_updated_at
		 FROM jira_boards
		 WHERE supports_sprints AND api_accessible
		 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sprint boards: %w", err)
	}
	defer closeQuietly(rows)

	var boards []models.Board
	for rows.Next() {
		var b models.Board
		if err := rows.Scan(&b.ID, &b.SourceID, &b.Name, &b.BoardType,
			&b.SupportsSprints, &b.APIAccessible, &b.RowCreatedAt, &b.RowUpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan board row: %w", err)
		}
		boards = append(boards, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate board rows: %w", err)
	}
	return boards, nil
}
