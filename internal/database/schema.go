// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

/*
schema.go - Warehouse Schema Management

All tables are defined in the initial CREATE statements; there are no
migrations. Every entity table carries:
  - id: surrogate key drawn from a per-table sequence
  - source_id: the Jira-side identifier, the natural key for upserts
  - row_created_at / row_updated_at: warehouse bookkeeping timestamps

Relation tables (labels, sprint links, custom field values, status changes)
hang off jira_issues and are replaced wholesale per issue on each sync.
jira_issue_sprints is the exception: links are soft-deleted via deleted_at so
historical sprint membership survives replacement.
*/
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// sequenceNames lists the per-table id sequences.
var sequenceNames = []string{
	"seq_jira_users",
	"seq_jira_projects",
	"seq_jira_boards",
	"seq_jira_sprints",
	"seq_jira_sprint_boards",
	"seq_jira_issue_types",
	"seq_jira_statuses",
	"seq_jira_priorities",
	"seq_jira_resolutions",
	"seq_jira_custom_fields",
	"seq_jira_labels",
	"seq_jira_issues",
	"seq_jira_issue_labels",
	"seq_jira_issue_sprints",
	"seq_jira_sprints_planned_issues",
	"seq_jira_issue_custom_field_values",
	"seq_jira_issue_status_changes",
}

// createSequences creates the surrogate key sequences.
func (db *DB) createSequences() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, name := range sequenceNames {
		query := fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s START 1", name)
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create sequence %s: %w", name, err)
		}
	}
	return nil
}

// createTables creates the warehouse tables.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

// tableCreationQueries returns the table creation SQL statements.
func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS jira_users (
			id BIGINT PRIMARY KEY,
			source_id TEXT NOT NULL,
			account_id TEXT,
			email TEXT,
			name TEXT,
			active BOOLEAN DEFAULT TRUE,
			row_created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			row_updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS jira_projects (
			id BIGINT PRIMARY KEY,
			source_id TEXT NOT NULL,
			key TEXT NOT NULL,
			name TEXT,
			project_type_key TEXT,
			private BOOLEAN DEFAULT FALSE,
			total_issue_count BIGINT,
			last_issue_update_time TIMESTAMP,
			api_accessible BOOLEAN DEFAULT TRUE,
			allowlisted BOOLEAN DEFAULT FALSE,
			row_created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			row_updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS jira_boards (
			id BIGINT PRIMARY KEY,
			source_id TEXT NOT NULL,
			name TEXT,
			board_type TEXT,
			supports_sprints BOOLEAN DEFAULT FALSE,
			api_accessible BOOLEAN DEFAULT TRUE,
			row_created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			row_updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS jira_sprints (
			id BIGINT PRIMARY KEY,
			source_id TEXT NOT NULL,
			board_id BIGINT,
			name TEXT,
			state TEXT,
			start_date TIMESTAMP,
			end_date TIMESTAMP,
			complete_date TIMESTAMP,
			row_created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			row_updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS jira_sprint_boards (
			id BIGINT PRIMARY KEY,
			sprint_id BIGINT NOT NULL,
			board_id BIGINT NOT NULL,
			row_created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS jira_issue_types (
			id BIGINT PRIMARY KEY,
			source_id TEXT NOT NULL,
			name TEXT,
			description TEXT,
			hierarchy_level INTEGER,
			project_id BIGINT,
			row_created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			row_updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS jira_statuses (
			id BIGINT PRIMARY KEY,
			source_id TEXT NOT NULL,
			name TEXT,
			description TEXT,
			status_category TEXT,
			row_created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			row_updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS jira_priorities (
			id BIGINT PRIMARY KEY,
			source_id TEXT NOT NULL,
			name TEXT,
			description TEXT,
			row_created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			row_updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS jira_resolutions (
			id BIGINT PRIMARY KEY,
			source_id TEXT NOT NULL,
			name TEXT,
			description TEXT,
			row_created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			row_updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS jira_custom_fields (
			id BIGINT PRIMARY KEY,
			key TEXT NOT NULL,
			name TEXT,
			row_created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			row_updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS jira_labels (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			row_created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS jira_issues (
			id BIGINT PRIMARY KEY,
			source_id TEXT NOT NULL,
			key TEXT NOT NULL,
			summary TEXT,
			source_url TEXT,
			project_id BIGINT,
			issue_type_id BIGINT,
			status_id BIGINT,
			priority_id BIGINT,
			resolution_id BIGINT,
			user_id BIGINT,
			creator_id BIGINT,
			parent_key TEXT,
			story_points DOUBLE,
			created_at TIMESTAMP,
			updated_at TIMESTAMP,
			resolution_date TIMESTAMP,
			due_date DATE,
			started_at TIMESTAMP,
			completed_at TIMESTAMP,
			synced_at TIMESTAMP,
			row_created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			row_updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS jira_issue_labels (
			id BIGINT PRIMARY KEY,
			issue_id BIGINT NOT NULL,
			label_id BIGINT NOT NULL,
			row_created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS jira_issue_sprints (
			id BIGINT PRIMARY KEY,
			issue_id BIGINT NOT NULL,
			sprint_id BIGINT NOT NULL,
			project_id BIGINT,
			planned BOOLEAN DEFAULT FALSE,
			planned_points DOUBLE,
			deleted_at TIMESTAMP,
			row_created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			row_updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS jira_sprints_planned_issues (
			id BIGINT PRIMARY KEY,
			sprint_id BIGINT NOT NULL,
			issue_id BIGINT NOT NULL,
			row_created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS jira_issue_custom_field_values (
			id BIGINT PRIMARY KEY,
			issue_id BIGINT NOT NULL,
			custom_field_id BIGINT NOT NULL,
			value TEXT,
			row_created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS jira_issue_status_changes (
			id BIGINT PRIMARY KEY,
			issue_id BIGINT NOT NULL,
			status_id BIGINT NOT NULL,
			status_change_date TIMESTAMP NOT NULL,
			row_created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}
}

// createIndexes creates indexes for the natural keys and the issue relation
// foreign keys.
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_jira_users_source_id ON jira_users(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_jira_projects_source_id ON jira_projects(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_jira_projects_key ON jira_projects(key)`,
		`CREATE INDEX IF NOT EXISTS idx_jira_boards_source_id ON jira_boards(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_jira_sprints_source_id ON jira_sprints(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_jira_statuses_source_id ON jira_statuses(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_jira_custom_fields_key ON jira_custom_fields(key)`,
		`CREATE INDEX IF NOT EXISTS idx_jira_labels_name ON jira_labels(name)`,
		`CREATE INDEX IF NOT EXISTS idx_jira_issues_source_id ON jira_issues(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_jira_issues_key ON jira_issues(key)`,
		`CREATE INDEX IF NOT EXISTS idx_jira_issue_labels_issue ON jira_issue_labels(issue_id)`,
		`CREATE INDEX IF NOT EXISTS idx_jira_issue_sprints_issue ON jira_issue_sprints(issue_id)`,
		`CREATE INDEX IF NOT EXISTS idx_jira_issue_cfv_issue ON jira_issue_custom_field_values(issue_id)`,
		`CREATE INDEX IF NOT EXISTS idx_jira_issue_status_changes_issue ON jira_issue_status_changes(issue_id)`,
	}

	for _, query := range indexes {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}
	return nil
}
