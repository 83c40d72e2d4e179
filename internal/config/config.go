// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

// Package config provides layered configuration loading for Sprintlens.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting via environment variables
//
// Required settings are the Jira connection credentials:
//   - JIRA_BASE_URL: Jira Cloud base URL (e.g. https://example.atlassian.net)
//   - JIRA_EMAIL: Account email for API token authentication
//   - JIRA_API_TOKEN: API token from id.atlassian.com
//
// Config is immutable after Load() and safe for concurrent read access.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Jira     JiraConfig     `koanf:"jira"`
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// JiraConfig holds Jira connection settings and the sync scoping constants.
//
// The importer is deliberately scoped: projects are filtered by a fixed
// category id, and issues are imported only for the allow-listed project
// keys. Both are configuration rather than user input.
//
// StartedStatus and CompletedStatus are the status names the changelog
// reconstruction matches against to derive an issue's started_at and
// completed_at timestamps. They default to the stock Jira names and are
// matched literally, not through status categories; deployments with renamed
// statuses must override them or the derived timestamps stay null.
type JiraConfig struct {
	// BaseURL is the Jira Cloud base URL, without trailing slash.
	BaseURL string `koanf:"base_url"`

	// Email and APIToken form the Basic auth credential pair.
	Email    string `koanf:"email"`
	APIToken string `koanf:"api_token"`

	// Timeout bounds every outbound API call.
	Timeout time.Duration `koanf:"timeout"`

	// ProjectCategoryID filters which projects are synced.
	ProjectCategoryID string `koanf:"project_category_id"`

	// ProjectKeys is the allow-list of project keys whose issues are imported.
	ProjectKeys []string `koanf:"project_keys"`

	// StoryPointFields lists the custom field keys checked, in order, for an
	// issue's story points. The first non-null value wins.
	StoryPointFields []string `koanf:"story_point_fields"`

	// SprintField is the custom field key carrying an issue's sprint links.
	SprintField string `koanf:"sprint_field"`

	// StartedStatus and CompletedStatus drive changelog reconstruction.
	StartedStatus   string `koanf:"started_status"`
	CompletedStatus string `koanf:"completed_status"`

	// PageSize is the page size for offset-paginated endpoints
	// (users, projects, boards, sprints).
	PageSize int `koanf:"page_size"`

	// IssuePageSize is the page size for the cursor-paginated issue search.
	IssuePageSize int `koanf:"issue_page_size"`
}

// DatabaseConfig holds DuckDB warehouse settings.
type DatabaseConfig struct {
	// Path is the database file path. Empty means in-memory (tests).
	Path string `koanf:"path"`

	// MaxMemory caps DuckDB's memory usage (e.g. "2GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count. 0 = use runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// Timeout is the read/write timeout for inbound requests other than the
	// sync trigger, which runs without a write deadline because a full run
	// can legitimately take minutes.
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
