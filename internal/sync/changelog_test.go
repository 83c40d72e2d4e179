// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

package sync

import (
	"testing"
	"time"

	"github.com/sprintlens/sprintlens/internal/models/jira"
)

// statusChange builds a one-item changelog history entry.
func statusChange(created, toID, toName string) jira.ChangeHistory {
	return jira.ChangeHistory{
		Created: created,
		Items: []jira.ChangeItem{
			{Field: "status", To: toID, ToString: toName},
		},
	}
}

func TestReconstructTimeline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		histories     []jira.ChangeHistory
		wantStarted   string
		wantCompleted string
	}{
		{
			name:      "no changelog entries",
			histories: nil,
		},
		{
			name: "simple start and finish",
			histories: []jira.ChangeHistory{
				statusChange("2026-02-01T09:00:00.000+0000", "3", "In Progress"),
				statusChange("2026-02-05T17:00:00.000+0000", "6", "Done"),
			},
			wantStarted:   "2026-02-01T09:00:00.000+0000",
			wantCompleted: "2026-02-05T17:00:00.000+0000",
		},
		{
			name: "rework keeps first start",
			histories: []jira.ChangeHistory{
				statusChange("2026-02-01T09:00:00.000+0000", "3", "In Progress"),
				statusChange("2026-02-02T09:00:00.000+0000", "1", "To Do"),
				statusChange("2026-02-03T09:00:00.000+0000", "3", "In Progress"),
			},
			wantStarted: "2026-02-01T09:00:00.000+0000",
		},
		{
			name: "reopen keeps last completion",
			histories: []jira.ChangeHistory{
				statusChange("2026-02-05T17:00:00.000+0000", "6", "Done"),
				statusChange("2026-02-06T09:00:00.000+0000", "3", "In Progress"),
				statusChange("2026-02-08T17:00:00.000+0000", "6", "Done"),
			},
			wantStarted:   "2026-02-06T09:00:00.000+0000",
			wantCompleted: "2026-02-08T17:00:00.000+0000",
		},
		{
			name: "out of order histories still resolve by timestamp",
			histories: []jira.ChangeHistory{
				statusChange("2026-02-08T17:00:00.000+0000", "6", "Done"),
				statusChange("2026-02-03T09:00:00.000+0000", "3", "In Progress"),
				statusChange("2026-02-01T09:00:00.000+0000", "3", "In Progress"),
				statusChange("2026-02-05T17:00:00.000+0000", "6", "Done"),
			},
			wantStarted:   "2026-02-01T09:00:00.000+0000",
			wantCompleted: "2026-02-08T17:00:00.000+0000",
		},
		{
			name: "non-status items ignored",
			histories: []jira.ChangeHistory{
				{
					Created: "2026-02-01T09:00:00.000+0000",
					Items: []jira.ChangeItem{
						{Field: "assignee", ToString: "In Progress"},
					},
				},
			},
		},
		{
			name: "other status names ignored",
			histories: []jira.ChangeHistory{
				statusChange("2026-02-01T09:00:00.000+0000", "4", "In Review"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tl := ReconstructTimeline(&jira.Changelog{Histories: tt.histories}, "In Progress", "Done")

			assertTimestamp(t, "StartedAt", tl.StartedAt, tt.wantStarted)
			assertTimestamp(t, "CompletedAt", tl.CompletedAt, tt.wantCompleted)
		})
	}
}

func TestReconstructTimelineNilChangelog(t *testing.T) {
	t.Parallel()

	tl := ReconstructTimeline(nil, "In Progress", "Done")
	if tl.StartedAt != nil || tl.CompletedAt != nil {
		t.Errorf("ReconstructTimeline(nil) = %+v, want empty timeline", tl)
	}
}

func TestReconstructTimelineCustomLiterals(t *testing.T) {
	t.Parallel()

	changelog := &jira.Changelog{Histories: []jira.ChangeHistory{
		statusChange("2026-02-01T09:00:00.000+0000", "10", "Doing"),
		statusChange("2026-02-05T17:00:00.000+0000", "11", "Shipped"),
	}}

	tl := ReconstructTimeline(changelog, "Doing", "Shipped")
	assertTimestamp(t, "StartedAt", tl.StartedAt, "2026-02-01T09:00:00.000+0000")
	assertTimestamp(t, "CompletedAt", tl.CompletedAt, "2026-02-05T17:00:00.000+0000")

	// Default literals do not match the renamed statuses
	tl = ReconstructTimeline(changelog, "In Progress", "Done")
	if tl.StartedAt != nil || tl.CompletedAt != nil {
		t.Errorf("default literals matched renamed statuses: %+v", tl)
	}
}

func assertTimestamp(t *testing.T, field string, got *time.Time, want string) {
	t.Helper()
	if want == "" {
		if got != nil {
			t.Errorf("%s = %s, want nil", field, got)
		}
		return
	}
	if got == nil {
		t.Errorf("%s = nil, want %s", field, want)
		return
	}
	expected := jira.ParseDateTime(want)
	if !got.Equal(*expected) {
		t.Errorf("%s = %s, want %s", field, got, expected)
	}
}
