// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

package sync

import (
	"context"
	"fmt"

	"github.com/sprintlens/sprintlens/internal/logging"
	"github.com/sprintlens/sprintlens/internal/models"
	"github.com/sprintlens/sprintlens/internal/models/jira"
)

// syncUsers imports the user directory. Inactive accounts are skipped; a
// failure on one user is logged and counted without aborting the page.
func (m *Manager) syncUsers(ctx context.Context, tr *TaskResult) {
	totalUsers := 0

	err := fetchOffsetPages(ctx, func(ctx context.Context, startAt int) (int, bool, int, error) {
		users, err := m.client.Users(ctx, startAt, m.cfg.PageSize)
		if err != nil {
			return 0, false, 0, err
		}
		totalUsers += len(users)

		for i := range users {
			u := &users[i]
			if !u.Active {
				continue
			}
			created, err := m.store.UpsertUser(ctx, &models.User{
				SourceID:  u.AccountID,
				AccountID: u.AccountID,
				Email:     userEmail(u),
				Name:      u.DisplayName,
				Active:    u.Active,
			})
			if err != nil {
				tr.Errors++
				logging.Error().
					Err(err).
					Str("account_id", u.AccountID).
					Str("display_name", u.DisplayName).
					Msg("Failed to upsert user")
				continue
			}
			if created {
				tr.Created++
			} else {
				tr.Updated++
			}
		}
		return len(users), false, 0, nil
	})
	if err != nil {
		fail(tr, "users fetch failed: %v", err)
		return
	}

	tr.Success = true
	tr.Message = fmt.Sprintf("Synced %d users", tr.Created+tr.Updated)
	tr.Details = map[string]any{"totalUsers": totalUsers}
}

// userEmail picks the stored email with the source system's fallback chain:
// emailAddress, then the legacy name field, then the display name.
func userEmail(u *jira.User) string {
	if u.EmailAddress != "" {
		return u.EmailAddress
	}
	if u.Name != "" {
		return u.Name
	}
	return u.DisplayName
}
