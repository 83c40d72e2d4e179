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

// UpsertUser inserts or updates a user by source_id. It reports whether a new
// row was created and fills in u.ID.
func (db *DB) UpsertUser(ctx context.Context, u *models.User) (bool, error) {
	id, found, err := lookupID(ctx, db.conn,
		`SELECT id FROM jira_users WHERE source_id = ?`, u.SourceID)
	if err != nil {
		return false, fmt.Errorf("failed to look up user %s: %w", u.SourceID, err)
	}

	if !found {
		err = db.conn.QueryRowContext(ctx,
			`INSERT INTO jira_users (id, source_id, account_id, email, name, active)
			 VALUES (nextval('seq_jira_users'), ?, ?, ?, ?, ?)
			 RETURNING id`,
			u.SourceID, u.AccountID, u.Email, u.Name, u.Active).Scan(&u.ID)
		if err != nil {
			return false, fmt.Errorf("failed to insert user %s: %w", u.SourceID, err)
		}
		return true, nil
	}

	_, err = db.conn.ExecContext(ctx,
		`UPDATE jira_users
		 SET account_id = ?, email = ?, name = ?, active = ?, row_updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		u.AccountID, u.Email, u.Name, u.Active, id)
	if err != nil {
		return false, fmt.Errorf("failed to update user %s: %w", u.SourceID, err)
	}
	u.ID = id
	return false, nil
}

// FindUserIDBySourceID returns the warehouse id for a user, or nil if the
// account has not been synced. Issue sync links assignees and reporters
// through this; unknown accounts leave the foreign key null rather than
// failing the issue.
func (db *DB) FindUserIDBySourceID(ctx context.Context, sourceID string) (*int64, error) {
	if sourceID == "" {
		return nil, nil
	}
	id, found, err := lookupID(ctx, db.conn,
		`SELECT id FROM jira_users WHERE source_id = ?`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %s: %w", sourceID, err)
	}
	if !found {
		return nil, nil
	}
	return &id, nil
}

// GetUser fetches a user row by source_id.
func (db *DB) GetUser(ctx context.Context, sourceID string) (*models.User, error) {
	u := &models.User{}
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, source_id, account_id, email, name, active, row_created_at, row_updated_at
		 FROM jira_users WHERE source_id = ?`, sourceID).
		Scan(&u.ID, &u.SourceID, &u.AccountID, &u.Email, &u.Name, &u.Active,
			&u.RowCreatedAt, &u.RowUpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", sourceID, err)
	}
	return u, nil
}

// CountUsers returns the number of user rows.
func (db *DB) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM jira_users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
