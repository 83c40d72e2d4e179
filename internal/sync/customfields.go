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
)

// syncCustomFields imports custom field definitions from the field registry.
// An instance with no custom fields is a successful, empty sync.
func (m *Manager) syncCustomFields(ctx context.Context, tr *TaskResult) {
	fields, err := m.client.Fields(ctx)
	if err != nil {
		fail(tr, "fields fetch failed: %v", err)
		return
	}

	customCount := 0
	for i := range fields {
		f := &fields[i]
		if !f.Custom {
			continue
		}
		customCount++

		created, err := m.store.UpsertCustomField(ctx, &models.CustomField{
			Key:  f.ID,
			Name: f.Name,
		})
		if err != nil {
			tr.Errors++
			logging.Error().Err(err).Str("field_id", f.ID).Str("field_name", f.Name).Msg("Failed to upsert custom field")
			continue
		}
		if created {
			tr.Created++
		} else {
			tr.Updated++
		}
	}

	tr.Success = true
	if customCount == 0 {
		tr.Message = "No custom fields found"
	} else {
		tr.Message = fmt.Sprintf("Synced %d custom fields", tr.Created+tr.Updated)
	}
	tr.Details = map[string]any{
		"totalFields":  len(fields),
		"customFields": customCount,
	}
}
