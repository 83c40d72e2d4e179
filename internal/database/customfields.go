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

// UpsertCustomField inserts or updates a custom field definition. Existing
// rows are matched by key or by name, so a field renamed upstream does not
// duplicate and a field recreated with a new id keeps its row. It reports
// whether a new row was created and fills in f.ID.
func (db *DB) UpsertCustomField(ctx context.Context, f *models.CustomField) (bool, error) {
	id, found, err := lookupID(ctx, db.conn,
		`SELECT id FROM jira_custom_fields WHERE key = ? OR name = ?`, f.Key, f.Name)
	if err != nil {
		return false, fmt.Errorf("failed to look up custom field %s: %w", f.Key, err)
	}

	if !found {
		err = db.conn.QueryRowContext(ctx,
			`INSERT INTO jira_custom_fields (id, key, name)
			 VALUES (nextval('seq_jira_custom_fields'), ?, ?)
			 RETURNING id`,
			f.Key, f.Name).Scan(&f.ID)
		if err != nil {
			return false, fmt.Errorf("failed to insert custom field %s: %w", f.Key, err)
		}
		return true, nil
	}

	_, err = db.conn.ExecContext(ctx,
		`UPDATE jira_custom_fields
		 SET key = ?, name = ?, row_updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		f.Key, f.Name, id)
	if err != nil {
		return false, fmt.Errorf("failed to update custom field %s: %w", f.Key, err)
	}
	f.ID = id
	return false, nil
}

// ListCustomFieldIDs returns a map from custom field key to warehouse id,
// preloaded once per issue sync run.
func (db *DB) ListCustomFieldIDs(ctx context.Context) (map[string]int64, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT key, id FROM jira_custom_fields`)
	if err != nil {
		return nil, fmt.Errorf("failed to list custom fields: %w", err)
	}
	defer closeQuietly(rows)

	fields := make(map[string]int64)
	for rows.Next() {
		var key string
		var id int64
		if err := rows.Scan(&key, &id); err != nil {
			return nil, fmt.Errorf("failed to scan custom field row: %w", err)
		}
		fields[key] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate custom field rows: %w", err)
	}
	return fields, nil
}
