// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

// Package jira defines the wire types returned by the Jira Cloud REST API.
//
// These structs mirror the JSON payloads of the endpoints the sync subsystem
// consumes (/rest/api/2 and /rest/agile/1.0). Dynamic custom fields, which
// Jira delivers as arbitrary "customfield_*" keys inside an issue's fields
// object, are captured separately in IssueFields.Custom as raw JSON so the
// sync layer can interpret them against the warehouse's custom-field registry.
package jira

import (
	"regexp"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// Timestamp layouts used by the Jira REST API.
const (
	// DateTimeLayout is Jira's datetime format, e.g. "2024-01-15T09:30:00.000+0100".
	DateTimeLayout = "2006-01-02T15:04:05.000-0700"
	// DateLayout is Jira's plain date format used by duedate.
	DateLayout = "2006-01-02"
)

// ParseDateTime parses a Jira datetime string. Returns nil for empty input.
func ParseDateTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(DateTimeLayout, s)
	if err != nil {
		// Some deployments omit milliseconds
		t, err = time.Parse("2006-01-02T15:04:05-0700", s)
		if err != nil {
			return nil
		}
	}
	return &t
}

// ParseDate parses a Jira date string (duedate). Returns nil for empty input.
func ParseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

// Field is a field definition from GET /rest/api/2/field.
type Field struct {
	ID          string       `json:"id"`
	Key         string       `json:"key,omitempty"`
	Name        string       `json:"name"`
	Custom      bool         `json:"custom"`
	ClauseNames []string     `json:"clauseNames,omitempty"`
	Schema      *FieldSchema `json:"schema,omitempty"`
	Description string       `json:"description,omitempty"`
	Searchable  bool         `json:"searchable"`
	Navigable   bool         `json:"navigable"`
	Orderable   bool         `json:"orderable"`
}

// FieldSchema describes a field's value type.
type FieldSchema struct {
	Type     string `json:"type"`
	Custom   string `json:"custom,omitempty"`
	CustomID int    `json:"customId,omitempty"`
}

// User is a user record from GET /rest/api/2/users.
type User struct {
	AccountID    string `json:"accountId"`
	AccountType  string `json:"accountType,omitempty"`
	Active       bool   `json:"active"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress,omitempty"`
	Key          string `json:"key,omitempty"`
	Name         string `json:"name,omitempty"`
	Self         string `json:"self,omitempty"`
}

// Project is a project record from GET /rest/api/2/project/search.
type Project struct {
	ID         string           `json:"id"`
	Key        string           `json:"key"`
	Name       string           `json:"name"`
	Style      string           `json:"style,omitempty"`
	Simplified bool             `json:"simplified,omitempty"`
	Insight    *ProjectInsight  `json:"insight,omitempty"`
	Category   *ProjectCategory `json:"projectCategory,omitempty"`
}

// ProjectInsight carries issue-count statistics attached to a project.
type ProjectInsight struct {
	TotalIssueCount     int64  `json:"totalIssueCount"`
	LastIssueUpdateTime string `json:"lastIssueUpdateTime,omitempty"`
}

// ProjectCategory identifies the category a project belongs to.
type ProjectCategory struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ProjectSearchResponse is the paginated envelope of /rest/api/2/project/search.
type ProjectSearchResponse struct {
	Values     []Project `json:"values"`
	StartAt    int       `json:"startAt"`
	MaxResults int       `json:"maxResults"`
	Total      int       `json:"total"`
	IsLast     bool      `json:"isLast"`
}

// Board is a board record from GET /rest/agile/1.0/board.
type Board struct {
	ID       int64          `json:"id"`
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Self     string         `json:"self,omitempty"`
	Location *BoardLocation `json:"location,omitempty"`
}

// BoardLocation ties a board to its owning project.
type BoardLocation struct {
	ProjectID   int64  `json:"projectId"`
	ProjectKey  string `json:"projectKey"`
	ProjectName string `json:"projectName"`
}

// BoardsResponse is the paginated envelope of /rest/agile/1.0/board.
type BoardsResponse struct {
	Values     []Board `json:"values"`
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	IsLast     bool    `json:"isLast"`
}

// Sprint is a sprint record from GET /rest/agile/1.0/board/{id}/sprint.
type Sprint struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	State        string `json:"state"`
	StartDate    string `json:"startDate,omitempty"`
	EndDate      string `json:"endDate,omitempty"`
	CompleteDate string `json:"completeDate,omitempty"`
}

// SprintsResponse is the paginated envelope of the board sprint endpoint.
type SprintsResponse struct {
	Values     []Sprint `json:"values"`
	StartAt    int      `json:"startAt"`
	MaxResults int      `json:"maxResults"`
	Total      int      `json:"total"`
	IsLast     bool     `json:"isLast"`
}

// EntityRef is the minimal {id, name} shape shared by status, priority,
// resolution and issue type references embedded in an issue.
type EntityRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// StatusRef is an issue's current status reference.
type StatusRef struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Category    *EntityRef `json:"statusCategory,omitempty"`
}

// IssueTypeRef is an issue's type reference, with hierarchy level.
type IssueTypeRef struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	HierarchyLevel *int   `json:"hierarchyLevel,omitempty"`
}

// UserRef is a user reference embedded in an issue (assignee, creator).
type UserRef struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName,omitempty"`
	EmailAddress string `json:"emailAddress,omitempty"`
}

// ParentRef is a parent-issue reference. Only the key is consumed.
type ParentRef struct {
	ID  string `json:"id,omitempty"`
	Key string `json:"key"`
}

// IssueFields holds the typed portion of an issue's fields object plus the
// raw custom fields keyed by their "customfield_*" identifier.
type IssueFields struct {
	Summary        string       `json:"summary"`
	IssueType      IssueTypeRef `json:"issuetype"`
	Project        Project      `json:"project"`
	Status         StatusRef    `json:"status"`
	Priority       *EntityRef   `json:"priority,omitempty"`
	Resolution     *EntityRef   `json:"resolution,omitempty"`
	Assignee       *UserRef     `json:"assignee,omitempty"`
	Creator        UserRef      `json:"creator"`
	Created        string       `json:"created"`
	Updated        string       `json:"updated"`
	ResolutionDate string       `json:"resolutiondate,omitempty"`
	DueDate        string       `json:"duedate,omitempty"`
	Parent         *ParentRef   `json:"parent,omitempty"`
	Labels         []string     `json:"labels,omitempty"`

	// Custom holds every "customfield_*" entry verbatim. Null values are
	// dropped during unmarshaling, so presence in the map implies a value.
	Custom map[string]json.RawMessage `json:"-"`
}

// issueFieldsAlias prevents UnmarshalJSON recursion.
type issueFieldsAlias IssueFields

// UnmarshalJSON decodes the typed fields and collects custom fields into
// IssueFields.Custom. Explicit nulls are discarded, matching the source API's
// semantics where an absent and a null custom field are equivalent.
func (f *IssueFields) UnmarshalJSON(data []byte) error {
	var alias issueFieldsAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	custom := make(map[string]json.RawMessage)
	for key, value := range raw {
		if !isCustomFieldKey(key) {
			continue
		}
		if string(value) == "null" {
			continue
		}
		custom[key] = value
	}

	*f = IssueFields(alias)
	f.Custom = custom
	return nil
}

// isCustomFieldKey reports whether key names a dynamic custom field.
func isCustomFieldKey(key string) bool {
	const prefix = "customfield_"
	return len(key) > len(prefix) && key[:len(prefix)] == prefix
}

// Number extracts a numeric custom field value. Returns nil when the field is
// absent or not a number.
func (f *IssueFields) Number(key string) *float64 {
	raw, ok := f.Custom[key]
	if !ok {
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil
	}
	return &n
}

var sprintIDPattern = regexp.MustCompile(`id=(\d+)`)

// SprintIDs extracts sprint source ids from a sprint custom field value.
// Jira delivers the field either as an array of objects carrying an id, or as
// an array of encoded strings of the form "com.atlassian...[id=42,name=...]".
// Entries that yield no id are skipped.
func (f *IssueFields) SprintIDs(key string) []string {
	raw, ok := f.Custom[key]
	if !ok {
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		var encoded string
		if err := json.Unmarshal(entry, &encoded); err == nil {
			if m := sprintIDPattern.FindStringSubmatch(encoded); m != nil {
				ids = append(ids, m[1])
			}
			continue
		}

		var obj struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(entry, &obj); err != nil || obj.ID == nil {
			continue
		}
		if id := rawToString(obj.ID); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// rawToString renders a raw JSON scalar (number or string) as its string form.
func rawToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatInt(n, 10)
	}
	var fl float64
	if err := json.Unmarshal(raw, &fl); err == nil {
		return strconv.FormatFloat(fl, 'f', -1, 64)
	}
	return ""
}

// ValueString renders a custom field value for warehouse storage: scalars as
// their plain string form, objects and arrays as compact JSON.
func ValueString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return string(raw)
}

// ChangeItem is a single field transition inside a changelog history entry.
type ChangeItem struct {
	Field      string `json:"field"`
	FieldType  string `json:"fieldtype,omitempty"`
	FieldID    string `json:"fieldId,omitempty"`
	From       string `json:"from,omitempty"`
	FromString string `json:"fromString,omitempty"`
	To         string `json:"to,omitempty"`
	ToString   string `json:"toString,omitempty"`
}

// ChangeHistory is one changelog entry: a timestamped group of field changes.
type ChangeHistory struct {
	ID      string       `json:"id"`
	Author  *UserRef     `json:"author,omitempty"`
	Created string       `json:"created"`
	Items   []ChangeItem `json:"items"`
}

// Changelog is an issue's audit trail, expanded inline by the search API.
type Changelog struct {
	StartAt    int             `json:"startAt"`
	MaxResults int             `json:"maxResults"`
	Total      int             `json:"total"`
	Histories  []ChangeHistory `json:"histories"`
}

// Issue is an issue record from GET /rest/api/2/search/jql.
type Issue struct {
	ID        string      `json:"id"`
	Key       string      `json:"key"`
	Self      string      `json:"self,omitempty"`
	Changelog *Changelog  `json:"changelog,omitempty"`
	Fields    IssueFields `json:"fields"`
}

// IssueSearchResponse is the cursor-paginated envelope of the JQL search API.
type IssueSearchResponse struct {
	Issues        []Issue `json:"issues"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
	IsLast        bool    `json:"isLast"`
}
