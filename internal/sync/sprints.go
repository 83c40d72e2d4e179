// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

package sync

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sprintlens/sprintlens/internal/logging"
	"github.com/sprintlens/sprintlens/internal/models"
	"github.com/sprintlens/sprintlens/internal/models/jira"
)

// parseSprintTime parses sprint timestamps. The agile API returns RFC3339
// with a Z suffix, unlike the core API's numeric offsets.
func parseSprintTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	return jira.ParseDateTime(s)
}

// syncSprints imports sprints for every sprint-capable board already in the
// warehouse. The task fails fast when no such boards exist, since that means
// the projects and boards task has not run yet. A failing board is logged
// and counted; the remaining boards still sync.
func (m *Manager) syncSprints(ctx context.Context, tr *TaskResult) {
	boards, err := m.store.ListSprintBoards(ctx)
	if err != nil {
		fail(tr, "board lookup failed: %v", err)
		return
	}
	if len(boards) == 0 {
		fail(tr, "no sprint-capable boards found, please sync projects and boards first")
		return
	}

	totalSprints := 0
	for i := range boards {
		board := &boards[i]
		n, err := m.syncBoardSprints(ctx, board, tr)
		if err != nil {
			tr.Errors++
			logging.Error().Err(err).
				Str("board_source_id", board.SourceID).
				Str("board_name", board.Name).
				Msg("Failed to sync sprints for board")
			continue
		}
		totalSprints += n
	}

	tr.Success = true
	tr.Message = fmt.Sprintf("Synced %d sprints across %d boards", tr.Created+tr.Updated, len(boards))
	tr.Details = map[string]any{
		"totalBoards":  len(boards),
		"totalSprints": totalSprints,
	}
}

// syncBoardSprints imports one board's sprints and returns how many the API
// reported.
func (m *Manager) syncBoardSprints(ctx context.Context, board *models.Board, tr *TaskResult) (int, error) {
	boardSourceID, err := strconv.ParseInt(board.SourceID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("board %s has non-numeric source id: %w", board.SourceID, err)
	}

	total := 0
	err = fetchOffsetPages(ctx, func(ctx context.Context, startAt int) (int, bool, int, error) {
		resp, err := m.client.Sprints(ctx, boardSourceID, startAt, m.cfg.PageSize)
		if err != nil {
			return 0, false, 0, err
		}
		total += len(resp.Values)

		for i := range resp.Values {
			s := &resp.Values[i]
			row := &models.Sprint{
				SourceID:     strconv.FormatInt(s.ID, 10),
				BoardID:      board.ID,
				Name:         s.Name,
				State:        s.State,
				StartDate:    parseSprintTime(s.StartDate),
				EndDate:      parseSprintTime(s.EndDate),
				CompleteDate: parseSprintTime(s.CompleteDate),
			}
			created, err := m.store.UpsertSprint(ctx, row)
			if err != nil {
				tr.Errors++
				logging.Error().Err(err).Int64("sprint_id", s.ID).Msg("Failed to upsert sprint")
				continue
			}
			if err := m.store.EnsureSprintBoard(ctx, row.ID, board.ID); err != nil {
				tr.Errors++
				logging.Error().Err(err).Int64("sprint_id", s.ID).Msg("Failed to link sprint to board")
				continue
			}
			if created {
				tr.Created++
			} else {
				tr.Updated++
			}
		}
		return len(resp.Values), resp.IsLast, resp.Total, nil
	})
	return total, err
}
