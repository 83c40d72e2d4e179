// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

package sync

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestResultJSONReportsMilliseconds(t *testing.T) {
	r := newResult()
	task := TaskResult{
		TaskName:  TaskUsers,
		Success:   true,
		Duration:  2500 * time.Millisecond,
		StartedAt: time.Now().UTC(),
	}
	task.DurationMS = task.Duration.Milliseconds()
	r.add(task)
	r.finish()

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	body := string(data)

	if !strings.Contains(body, `"durationMs":2500`) {
		t.Errorf("result JSON = %s, want durationMs in milliseconds", body)
	}
	if strings.Contains(body, "2500000000") {
		t.Errorf("result JSON = %s, carries a nanosecond duration", body)
	}
	if !strings.Contains(body, `"totalDurationMs":`) {
		t.Errorf("result JSON = %s, want totalDurationMs", body)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, key := range []string{"Duration", "TotalDuration"} {
		if _, ok := decoded[key]; ok {
			t.Errorf("internal field %s leaked into the JSON result", key)
		}
	}
}

func TestRunDurationPopulatedByTaskBoundary(t *testing.T) {
	m := NewManager(nil, nil, testJiraConfig())
	tr := m.runTask(context.Background(), TaskUsers, func(ctx context.Context, tr *TaskResult) {
		time.Sleep(5 * time.Millisecond)
		tr.Success = true
	})

	if tr.Duration <= 0 {
		t.Errorf("task duration = %v, want > 0", tr.Duration)
	}
	if tr.DurationMS != tr.Duration.Milliseconds() {
		t.Errorf("durationMs = %d, want %d", tr.DurationMS, tr.Duration.Milliseconds())
	}
}
