package storage

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"focustodo/internal/models"
)

func newTestGateway(t *testing.T) (*Gateway, *MemoryKV) {
	t.Helper()
	kv := NewMemoryKV()
	return NewGateway(kv, slog.New(slog.NewTextHandler(io.Discard, nil))), kv
}

func sampleTasks() []models.Task {
	due := int64(9000)
	est := 30
	return []models.Task{
		{
			ID: "a", Description: "write report", CreatedAt: 2000, DueDate: &due, EstimatedMinutes: &est,
			Priority: models.PriorityHigh, Tags: []string{"work"}, SchemaVersion: models.CurrentSchemaVersion,
			Subtasks: []models.Subtask{{
				ID: "s1", Description: "outline", CreatedAt: 2100,
				Images: []models.SubtaskImage{{ID: "i1", Data: "aGk=", Name: "a.png", Size: 10, CompressedSize: 5, UploadedAt: 2200}},
			}},
		},
		{ID: "b", Description: "done thing", Completed: true, CreatedAt: 1000, Tags: []string{}, Subtasks: []models.Subtask{}, SchemaVersion: models.CurrentSchemaVersion},
	}
}

func TestLoadTasksFallbacks(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		stored *string
	}{
		{name: "missing key"},
		{name: "invalid json", stored: ptr("{not json")},
		{name: "non array", stored: ptr(`{"id":"a"}`)},
		{name: "missing id", stored: ptr(`[{"description":"x"}]`)},
		{name: "wrong field type", stored: ptr(`[{"id":"a","completed":"yes"}]`)},
		{name: "empty string", stored: ptr("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, kv := newTestGateway(t)
			if tt.stored != nil {
				_ = kv.Set(ctx, TasksKey, *tt.stored)
			}
			got := g.LoadTasks(ctx)
			if got == nil || len(got) != 0 {
				t.Errorf("expected empty slice, got %v", got)
			}
		})
	}
}

func TestLoadTasksKeepsValidRecords(t *testing.T) {
	ctx := context.Background()
	g, kv := newTestGateway(t)
	_ = kv.Set(ctx, TasksKey, `[
		{"id":"a","description":"keep me","completed":false,"createdAt":1,"_version":3,"tags":[],"subtasks":[]},
		{"id":"b","createdAt":"2024-01-01"},
		"junk",
		{"id":"c","description":"legacy","completed":true,"createdAt":2}
	]`)

	got := g.LoadTasks(ctx)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("expected tasks a and c, got %+v", got)
	}
	if got[1].SchemaVersion != models.CurrentSchemaVersion {
		t.Errorf("expected legacy record migrated, got %+v", got[1])
	}
}

func TestLoadTasksUnavailableStorage(t *testing.T) {
	g, kv := newTestGateway(t)
	kv.SetDisabled(true)
	if got := g.LoadTasks(context.Background()); len(got) != 0 {
		t.Errorf("expected empty slice, got %v", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway(t)
	tasks := sampleTasks()

	if !g.SaveTasks(ctx, tasks) {
		t.Fatal("SaveTasks reported failure")
	}
	got := g.LoadTasks(ctx)
	if !reflect.DeepEqual(got, tasks) {
		t.Errorf("round trip mismatch:\n got: %+v\nwant: %+v", got, tasks)
	}
}

func TestLoadMigratesOlderRecords(t *testing.T) {
	ctx := context.Background()
	g, kv := newTestGateway(t)
	_ = kv.Set(ctx, TasksKey, `[{"id":"old","description":"legacy","completed":false,"createdAt":5}]`)

	got := g.LoadTasks(ctx)
	if len(got) != 1 {
		t.Fatalf("expected 1 task, got %d", len(got))
	}
	if got[0].SchemaVersion != models.CurrentSchemaVersion || got[0].Priority != models.PriorityMedium {
		t.Errorf("expected migrated defaults, got %+v", got[0])
	}
}

func TestSaveAndClearFailures(t *testing.T) {
	ctx := context.Background()
	g, kv := newTestGateway(t)

	if !g.SaveTasks(ctx, nil) {
		t.Fatal("saving nil should succeed")
	}
	if stored, _, _ := kv.Get(ctx, TasksKey); stored != "[]" {
		t.Errorf("expected empty array payload, got %q", stored)
	}
	if !g.ClearTasks(ctx) {
		t.Error("expected clear to succeed")
	}
	if !g.ClearTasks(ctx) {
		t.Error("expected clearing empty storage to succeed")
	}

	kv.SetDisabled(true)
	if g.SaveTasks(ctx, sampleTasks()) {
		t.Error("expected save to fail when storage is unavailable")
	}
	if g.ClearTasks(ctx) {
		t.Error("expected clear to fail when storage is unavailable")
	}
	if g.SaveSessions(ctx, nil) {
		t.Error("expected session save to fail when storage is unavailable")
	}
	if g.ClearSessions(ctx) {
		t.Error("expected session clear to fail when storage is unavailable")
	}
}

func TestSessionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	g, kv := newTestGateway(t)

	if got := g.LoadSessions(ctx); got == nil || len(got) != 0 {
		t.Errorf("expected empty sessions, got %v", got)
	}

	sessions := []models.TimerSession{
		{TaskID: "a", StartTime: 1000, EndTime: 2000, Duration: 1000, Mode: models.TimerPomodoro},
		{TaskID: "b", StartTime: 3000, EndTime: 9000, Duration: 6000, Mode: models.TimerFree},
	}
	if !g.SaveSessions(ctx, sessions) {
		t.Fatal("SaveSessions failed")
	}
	if got := g.LoadSessions(ctx); !reflect.DeepEqual(got, sessions) {
		t.Errorf("round trip mismatch: %+v", got)
	}

	_ = kv.Set(ctx, SessionsKey, `[{"taskId":"a"}]`)
	if got := g.LoadSessions(ctx); len(got) != 0 {
		t.Errorf("expected invalid session log to load empty, got %v", got)
	}

	_ = kv.Set(ctx, SessionsKey, `[{"taskId":"a"},{"taskId":"b","startTime":1,"duration":2,"mode":"free"}]`)
	if got := g.LoadSessions(ctx); len(got) != 1 || got[0].TaskID != "b" {
		t.Errorf("expected only session b, got %v", got)
	}
}

func ptr(s string) *string { return &s }
