// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

package sync

import (
	"time"

	"github.com/sprintlens/sprintlens/internal/models/jira"
)

// Timeline carries the lifecycle timestamps derived from an issue's
// changelog.
type Timeline struct {
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// ReconstructTimeline derives when work on an issue started and finished by
// walking its changelog for status transitions.
//
// StartedAt is first-wins: the earliest transition into startedStatus, so
// an issue bounced back and reworked keeps its original start. CompletedAt
// is last-wins: the latest transition into completedStatus, so a reopened
// and re-closed issue reports its final completion. Both match the status
// display name literally against the configured values; transitions into
// other statuses are ignored here and recorded separately as status change
// rows.
func ReconstructTimeline(changelog *jira.Changelog, startedStatus, completedStatus string) Timeline {
	var tl Timeline
	if changelog == nil {
		return tl
	}

	for _, history := range changelog.Histories {
		changedAt := jira.ParseDateTime(history.Created)
		if changedAt == nil {
			continue
		}
		for _, item := range history.Items {
			if item.Field != "status" {
				continue
			}
			switch item.ToString {
			case startedStatus:
				if tl.StartedAt == nil || changedAt.Before(*tl.StartedAt) {
					tl.StartedAt = changedAt
				}
			case completedStatus:
				if tl.CompletedAt == nil || changedAt.After(*tl.CompletedAt) {
					tl.CompletedAt = changedAt
				}
			}
		}
	}
	return tl
}
