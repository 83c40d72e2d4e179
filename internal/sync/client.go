// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

/*
client.go - Jira Cloud REST API Client

Implements the read-only API surface the sync tasks consume:
  - /rest/api/2/field            field definitions (custom fields task)
  - /rest/api/2/users            user directory (offset paginated)
  - /rest/api/2/project/search   projects by category (offset paginated)
  - /rest/agile/1.0/board        boards per project (offset paginated)
  - /rest/agile/1.0/board/{id}/sprint  sprints per board (offset paginated)
  - /rest/api/2/search/jql       issue search (cursor paginated, changelog expanded)
  - /rest/api/2/myself           credential check for readiness probes

Authentication is Basic with email:apiToken per Atlassian Cloud convention.
Non-2xx responses surface as *APIError carrying the status code and a body
excerpt capped at 64KB.
*/
package sync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/sprintlens/sprintlens/internal/metrics"
	"github.com/sprintlens/sprintlens/internal/models/jira"
)

// maxErrorBodySize caps how much of an error response body is retained.
const maxErrorBodySize = 64 * 1024

// APIError is a non-2xx response from the Jira API.
type APIError struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("jira api returned status %d: %s", e.Status, e.Body)
}

// JiraClient defines the API operations the sync tasks depend on. Satisfied
// by *Client; tests substitute fixture-backed implementations.
type JiraClient interface {
	Ping(ctx context.Context) error
	Fields(ctx context.Context) ([]jira.Field, error)
	Users(ctx context.Context, startAt, maxResults int) ([]jira.User, error)
	SearchProjects(ctx context.Context, categoryID string, startAt, maxResults int) (*jira.ProjectSearchResponse, error)
	Boards(ctx context.Context, projectKeyOrID string, startAt, maxResults int) (*jira.BoardsResponse, error)
	Sprints(ctx context.Context, boardID int64, startAt, maxResults int) (*jira.SprintsResponse, error)
	SearchIssues(ctx context.Context, jql string, maxResults int, nextPageToken string) (*jira.IssueSearchResponse, error)
}

// Ensure Client implements JiraClient
var _ JiraClient = (*Client)(nil)

// Client provides access to the Jira Cloud REST API.
type Client struct {
	baseURL    string
	email      string
	apiToken   string
	httpClient *http.Client
}

// NewClient creates a new Jira API client.
//
// Parameters:
//   - baseURL: Jira Cloud URL (e.g., https://example.atlassian.net)
//   - email: account email for API token authentication
//   - apiToken: API token from id.atlassian.com
func NewClient(baseURL, email, apiToken string, timeout time.Duration) *Client {
	// Normalize URL (remove trailing slash)
	baseURL = strings.TrimSuffix(baseURL, "/")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:  baseURL,
		email:    email,
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// get performs an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.SetBasicAuth(c.email, c.apiToken)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordJiraRequest(path, 0, time.Since(start))
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.RecordJiraRequest(path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Status: resp.StatusCode,
			Body:   readBodyForError(resp.Body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

// readBodyForError reads an error response body, capped so a pathological
// response cannot balloon memory.
func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return "(failed to read body)"
	}
	return string(body)
}

// Ping verifies credentials and connectivity via /rest/api/2/myself.
func (c *Client) Ping(ctx context.Context) error {
	var me struct {
		AccountID string `json:"accountId"`
	}
	if err := c.get(ctx, "/rest/api/2/myself", nil, &me); err != nil {
		return fmt.Errorf("jira ping failed: %w", err)
	}
	return nil
}

// Fields retrieves all field definitions, custom fields included.
func (c *Client) Fields(ctx context.Context) ([]jira.Field, error) {
	var fields []jira.Field
	if err := c.get(ctx, "/rest/api/2/field", nil, &fields); err != nil {
		return nil, fmt.Errorf("jira fields request failed: %w", err)
	}
	return fields, nil
}

// Users retrieves one page of the user directory.
func (c *Client) Users(ctx context.Context, startAt, maxResults int) ([]jira.User, error) {
	query := url.Values{}
	query.Set("startAt", strconv.Itoa(startAt))
	query.Set("maxResults", strconv.Itoa(maxResults))

	var users []jira.User
	if err := c.get(ctx, "/rest/api/2/users", query, &users); err != nil {
		return nil, fmt.Errorf("jira users request failed: %w", err)
	}
	return users, nil
}

// SearchProjects retrieves one page of projects in the given category.
func (c *Client) SearchProjects(ctx context.Context, categoryID string, startAt, maxResults int) (*jira.ProjectSearchResponse, error) {
	query := url.Values{}
	query.Set("categoryId", categoryID)
	query.Set("expand", "insight")
	query.Set("startAt", strconv.Itoa(startAt))
	query.Set("maxResults", strconv.Itoa(maxResults))

	var resp jira.ProjectSearchResponse
	if err := c.get(ctx, "/rest/api/2/project/search", query, &resp); err != nil {
		return nil, fmt.Errorf("jira project search failed: %w", err)
	}
	return &resp, nil
}

// Boards retrieves one page of boards for a project.
func (c *Client) Boards(ctx context.Context, projectKeyOrID string, startAt, maxResults int) (*jira.BoardsResponse, error) {
	query := url.Values{}
	query.Set("projectKeyOrId", projectKeyOrID)
	query.Set("startAt", strconv.Itoa(startAt))
	query.Set("maxResults", strconv.Itoa(maxResults))

	var resp jira.BoardsResponse
	if err := c.get(ctx, "/rest/agile/1.0/board", query, &resp); err != nil {
		return nil, fmt.Errorf("jira boards request failed: %w", err)
	}
	return &resp, nil
}

// Sprints retrieves one page of sprints for a board.
func (c *Client) Sprints(ctx context.Context, boardID int64, startAt, maxResults int) (*jira.SprintsResponse, error) {
	query := url.Values{}
	query.Set("startAt", strconv.Itoa(startAt))
	query.Set("maxResults", strconv.Itoa(maxResults))

	path := fmt.Sprintf("/rest/agile/1.0/board/%d/sprint", boardID)
	var resp jira.SprintsResponse
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, fmt.Errorf("jira sprints request failed: %w", err)
	}
	return &resp, nil
}

// SearchIssues retrieves one page of a JQL search with changelogs expanded.
// Pass an empty nextPageToken for the first page.
func (c *Client) SearchIssues(ctx context.Context, jql string, maxResults int, nextPageToken string) (*jira.IssueSearchResponse, error) {
	query := url.Values{}
	query.Set("jql", jql)
	query.Set("maxResults", strconv.Itoa(maxResults))
	query.Set("expand", "changelog")
	query.Set("fields", "*all")
	if nextPageToken != "" {
		query.Set("nextPageToken", nextPageToken)
	}

	var resp jira.IssueSearchResponse
	if err := c.get(ctx, "/rest/api/2/search/jql", query, &resp); err != nil {
		return nil, fmt.Errorf("jira issue search failed: %w", err)
	}
	return &resp, nil
}

// fetchOffsetPages drives an offset pagination loop. fetch is called with a
// growing startAt until it returns an empty page, reports isLast, or startAt
// reaches the advertised total.
func fetchOffsetPages(ctx context.Context, fetch func(ctx context.Context, startAt int) (count int, isLast bool, total int, err error)) error {
	startAt := 0
	for {
		count, isLast, total, err := fetch(ctx, startAt)
		if err != nil {
			return err
		}
		if count == 0 || isLast {
			return nil
		}
		startAt += count
		if total > 0 && startAt >= total {
			return nil
		}
	}
}
