package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"focustodo/internal/clock"
	"focustodo/internal/models"
	"focustodo/internal/state"
	"focustodo/internal/storage"
)

func newApp(t *testing.T, kv storage.KV, c *clock.Fake) *App {
	t.Helper()
	a := New(context.Background(), Options{
		KV:     kv,
		Clock:  c,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(a.Close)
	return a
}

func TestAppPersistsAcrossRestart(t *testing.T) {
	kv := storage.NewMemoryKV()
	c := clock.NewFake(time.UnixMilli(1_700_000_000_000))

	first := newApp(t, kv, c)
	high := models.PriorityHigh
	task, err := first.AddTask("  Write the report ", state.TaskPatch{Priority: &high, Tags: []string{"work"}})
	if err != nil {
		t.Fatal(err)
	}
	if task.Description != "Write the report" || task.Priority != high {
		t.Fatalf("unexpected task %+v", task)
	}
	if _, err := first.AddSubtask(task.ID, "outline"); err != nil {
		t.Fatal(err)
	}
	if err := first.StartPomodoro(task.ID, 0); err != nil {
		t.Fatal(err)
	}
	c.Advance(5 * time.Minute)
	if _, err := first.Timer.Stop(); err != nil {
		t.Fatal(err)
	}
	first.Close()

	second := newApp(t, kv, c)
	s := second.Store.State()
	if len(s.Active) != 1 || len(s.Active[0].Subtasks) != 1 || s.Active[0].Tags[0] != "work" {
		t.Fatalf("tasks not restored: %+v", s.Active)
	}
	if len(s.Sessions) != 1 || s.Sessions[0].Duration != 5*60*1000 {
		t.Errorf("sessions not restored: %+v", s.Sessions)
	}
}

func TestAppKeepsValidTasksNextToBadRecord(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	_ = kv.Set(ctx, storage.TasksKey, `[
		{"id":"a","description":"survivor","completed":false,"createdAt":1,"_version":3,"tags":[],"subtasks":[]},
		{"id":"b","createdAt":"2024-01-01"}
	]`)
	c := clock.NewFake(time.UnixMilli(1_700_000_000_000))

	a := newApp(t, kv, c)
	if _, err := a.AddTask("fresh", state.TaskPatch{}); err != nil {
		t.Fatal(err)
	}
	a.Close()

	g := storage.NewGateway(kv, slog.New(slog.NewTextHandler(io.Discard, nil)))
	stored := g.LoadTasks(ctx)
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored tasks, got %+v", stored)
	}
	found := map[string]bool{}
	for _, task := range stored {
		found[task.Description] = true
	}
	if !found["survivor"] || !found["fresh"] {
		t.Errorf("expected survivor and fresh tasks, got %+v", stored)
	}
}

func TestAppValidation(t *testing.T) {
	a := newApp(t, storage.NewMemoryKV(), clock.NewFake(time.UnixMilli(1_700_000_000_000)))

	if _, err := a.AddTask("   ", state.TaskPatch{}); !errors.Is(err, models.ErrEmptyDescription) {
		t.Errorf("expected ErrEmptyDescription, got %v", err)
	}
	bad := models.Priority("urgent")
	if _, err := a.AddTask("ok", state.TaskPatch{Priority: &bad}); !errors.Is(err, models.ErrInvalidPriority) {
		t.Errorf("expected ErrInvalidPriority, got %v", err)
	}
	if _, err := a.AddSubtask("missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	task, err := a.AddTask("with image", state.TaskPatch{})
	if err != nil {
		t.Fatal(err)
	}
	st, err := a.AddSubtask(task.ID, "screenshot")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.AddImage(task.ID, st.ID, models.SubtaskImage{Name: "a.png", Data: "!!"}); !errors.Is(err, models.ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage, got %v", err)
	}
	img, err := a.AddImage(task.ID, st.ID, models.SubtaskImage{Name: "a.png", Data: "aGk=", Size: 2, CompressedSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	if img.ID == "" || img.UploadedAt != a.Now().UnixMilli() {
		t.Errorf("expected generated id and timestamp, got %+v", img)
	}
	got, _ := a.Subtask(task.ID, st.ID)
	if len(got.Images) != 1 || got.Images[0].ID != img.ID {
		t.Errorf("image not attached: %+v", got.Images)
	}
}

func TestAppDeleteExpiresAndPersists(t *testing.T) {
	kv := storage.NewMemoryKV()
	c := clock.NewFake(time.UnixMilli(1_700_000_000_000))
	a := newApp(t, kv, c)

	task, err := a.AddTask("temporary", state.TaskPatch{})
	if err != nil {
		t.Fatal(err)
	}
	a.Store.Dispatch(state.DeleteTask{ID: task.ID})
	c.Advance(state.DefaultUndoWindow + time.Second)

	if a.Store.State().Undo != nil {
		t.Error("expected undo window to expire")
	}
	if got := a.Gateway.LoadTasks(context.Background()); len(got) != 0 {
		t.Errorf("expected deletion persisted, got %+v", got)
	}
}
