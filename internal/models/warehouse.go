// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

// Package models defines the warehouse row types materialized by the sync
// subsystem. Every entity carries the external system's identifier in
// SourceID alongside the warehouse's own surrogate ID; SourceID is the
// natural key used for idempotent upsert.
package models

import "time"

// User is a row in jira_users. Users are never deleted; accounts that
// disappear upstream keep their last-synced state.
type User struct {
	ID           int64
	SourceID     string
	AccountID    string
	Email        string
	Name         string
	Active       bool
	RowCreatedAt time.Time
	RowUpdatedAt time.Time
}

// Project is a row in jira_projects.
type Project struct {
	ID                  int64
	SourceID            string
	Key                 string
	Name                string
	ProjectTypeKey      string
	Private             bool
	TotalIssueCount     *int64
	LastIssueUpdateTime *time.Time
	APIAccessible       bool
	Allowlisted         bool
	RowCreatedAt        time.Time
	RowUpdatedAt        time.Time
}

// Board is a row in jira_boards. SupportsSprints is derived from the board
// type: only scrum boards expose the sprint endpoint.
type Board struct {
	ID              int64
	SourceID        string
	Name            string
	BoardType       string
	SupportsSprints bool
	APIAccessible   bool
	RowCreatedAt    time.Time
	RowUpdatedAt    time.Time
}

// Sprint is a row in jira_sprints.
type Sprint struct {
	ID           int64
	SourceID     string
	BoardID      int64
	Name         string
	State        string
	StartDate    *time.Time
	EndDate      *time.Time
	CompleteDate *time.Time
	RowCreatedAt time.Time
	RowUpdatedAt time.Time
}

// IssueType is a row in jira_issue_types, resolved lazily during issue sync.
type IssueType struct {
	ID             int64
	SourceID       string
	Name           string
	Description    *string
	HierarchyLevel *int
	ProjectID      *int64
}

// Status is a row in jira_statuses.
type Status struct {
	ID             int64
	SourceID       string
	Name           string
	Description    *string
	StatusCategory *string
}

// Priority is a row in jira_priorities.
type Priority struct {
	ID          int64
	SourceID    string
	Name        string
	Description *string
}

// Resolution is a row in jira_resolutions.
type Resolution struct {
	ID          int64
	SourceID    string
	Name        string
	Description *string
}

// CustomField is a row in jira_custom_fields. Key holds the API's field id
// (e.g. "customfield_10119") and is the lookup key during issue sync.
type CustomField struct {
	ID   int64
	Key  string
	Name string
}

// Label is a row in jira_labels, resolved by name.
type Label struct {
	ID   int64
	Name string
}

// Issue is a row in jira_issues, the central fact table. ParentKey is stored
// as a key string rather than a foreign key so forward references to issues
// not yet synced are tolerated.
type Issue struct {
	ID             int64
	SourceID       string
	Key            string
	Summary        string
	SourceURL      string
	ProjectID      *int64
	IssueTypeID    *int64
	StatusID       *int64
	PriorityID     *int64
	ResolutionID   *int64
	AssigneeID     *int64
	CreatorID      *int64
	ParentKey      *string
	StoryPoints    *float64
	CreatedAt      *time.Time
	UpdatedAt      *time.Time
	ResolutionDate *time.Time
	DueDate        *time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
	SyncedAt       time.Time
}

// IssueSprintLink is a row in jira_issue_sprints. Links are soft-deleted
// (DeletedAt set) when an issue's sprint membership is replaced, preserving
// audit history.
type IssueSprintLink struct {
	SprintID      int64
	ProjectID     *int64
	Planned       bool
	PlannedPoints *float64
	DeletedAt     *time.Time
}

// IssueCustomFieldValue is a row in jira_issue_custom_field_values. Value is
// the string form of the source value, JSON-serialized when structured.
type IssueCustomFieldValue struct {
	CustomFieldID int64
	Value         string
}

// IssueStatusChange is a row in jira_issue_status_changes: one observed
// status transition from the issue's changelog.
type IssueStatusChange struct {
	StatusID  int64
	ChangedAt time.Time
}
