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

// syncProjectsAndBoards imports the projects in the configured category and
// then, per project, the boards attached to it. A board fetch failing for
// one project is logged and counted; the remaining projects still sync.
func (m *Manager) syncProjectsAndBoards(ctx context.Context, tr *TaskResult) {
	var projects []models.Project

	err := fetchOffsetPages(ctx, func(ctx context.Context, startAt int) (int, bool, int, error) {
		resp, err := m.client.SearchProjects(ctx, m.cfg.ProjectCategoryID, startAt, m.cfg.PageSize)
		if err != nil {
			return 0, false, 0, err
		}

		for i := range resp.Values {
			p := m.projectRow(&resp.Values[i])
			created, err := m.store.UpsertProject(ctx, p)
			switch {
			case err != nil:
				tr.Errors++
				logging.Error().Err(err).Str("project_key", p.Key).Msg("Failed to upsert project")
			case created:
				tr.Created++
			default:
				tr.Updated++
			}
			// The board phase covers every project the API returned, a
			// failed row upsert included
			projects = append(projects, *p)
		}
		return len(resp.Values), resp.IsLast, resp.Total, nil
	})
	if err != nil {
		fail(tr, "projects fetch failed: %v", err)
		return
	}

	totalBoards := 0
	for i := range projects {
		n, err := m.syncProjectBoards(ctx, &projects[i], tr)
		if err != nil {
			tr.Errors++
			logging.Error().Err(err).Str("project_key", projects[i].Key).Msg("Failed to sync boards for project")
			continue
		}
		totalBoards += n
	}

	tr.Success = true
	tr.Message = fmt.Sprintf("Synced %d projects and %d boards", len(projects), totalBoards)
	tr.Details = map[string]any{
		"totalProjects": len(projects),
		"totalBoards":   totalBoards,
	}
}

// projectRow maps an API project onto its warehouse row.
func (m *Manager) projectRow(p *jira.Project) *models.Project {
	row := &models.Project{
		SourceID:       p.ID,
		Key:            p.Key,
		Name:           p.Name,
		ProjectTypeKey: p.Style,
		Private:        false,
		APIAccessible:  true,
		Allowlisted:    true,
	}
	if p.Insight != nil {
		count := p.Insight.TotalIssueCount
		row.TotalIssueCount = &count
		row.LastIssueUpdateTime = jira.ParseDateTime(p.Insight.LastIssueUpdateTime)
	}
	return row
}

// syncProjectBoards imports one project's boards and returns how many the
// API reported.
func (m *Manager) syncProjectBoards(ctx context.Context, project *models.Project, tr *TaskResult) (int, error) {
	total := 0
	err := fetchOffsetPages(ctx, func(ctx context.Context, startAt int) (int, bool, int, error) {
		resp, err := m.client.Boards(ctx, project.Key, startAt, m.cfg.PageSize)
		if err != nil {
			return 0, false, 0, err
		}
		total += len(resp.Values)

		for i := range resp.Values {
			b := &resp.Values[i]
			created, err := m.store.UpsertBoard(ctx, &models.Board{
				SourceID:        fmt.Sprintf("%d", b.ID),
				Name:            b.Name,
				BoardType:       b.Type,
				SupportsSprints: b.Type == "scrum",
				APIAccessible:   true,
			})
			if err != nil {
				tr.Errors++
				logging.Error().Err(err).Int64("board_id", b.ID).Msg("Failed to upsert board")
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
