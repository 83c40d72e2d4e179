// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateJira(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

// validateJira validates the Jira connection and scoping settings.
func (c *Config) validateJira() error {
	if c.Jira.BaseURL == "" {
		return fmt.Errorf("JIRA_BASE_URL is required")
	}
	if err := validateHTTPURL(c.Jira.BaseURL, "JIRA_BASE_URL"); err != nil {
		return err
	}
	if c.Jira.Email == "" {
		return fmt.Errorf("JIRA_EMAIL is required")
	}
	if c.Jira.APIToken == "" {
		return fmt.Errorf("JIRA_API_TOKEN is required")
	}
	if c.Jira.Timeout <= 0 {
		return fmt.Errorf("JIRA_TIMEOUT must be positive, got %s", c.Jira.Timeout)
	}
	if c.Jira.PageSize <= 0 {
		return fmt.Errorf("JIRA_PAGE_SIZE must be positive, got %d", c.Jira.PageSize)
	}
	if c.Jira.IssuePageSize <= 0 {
		return fmt.Errorf("JIRA_ISSUE_PAGE_SIZE must be positive, got %d", c.Jira.IssuePageSize)
	}
	if len(c.Jira.ProjectKeys) == 0 {
		return fmt.Errorf("JIRA_PROJECT_KEYS must list at least one project key")
	}
	if c.Jira.StartedStatus == "" || c.Jira.CompletedStatus == "" {
		return fmt.Errorf("JIRA_STARTED_STATUS and JIRA_COMPLETED_STATUS must not be empty")
	}
	return nil
}

// validateServer validates the HTTP server settings.
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("SERVER_TIMEOUT must be positive, got %s", c.Server.Timeout)
	}
	return nil
}

// validateLogging validates the logging settings.
func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOGGING_LEVEL %q is not a valid log level", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOGGING_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// validateHTTPURL checks that value is a well-formed http(s) URL.
func validateHTTPURL(value, name string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s is invalid: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https scheme, got %q", name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing a host", name)
	}
	return nil
}
