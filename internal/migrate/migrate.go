// Package migrate upgrades persisted task records to the current schema.
//
// Record history:
//
//	v1: id, description, completed, createdAt
//	v2: adds dueDate, estimatedMinutes, actualMinutes, priority, tags
//	v3: adds subtasks
package migrate

import (
	"encoding/json"
	"fmt"
	"maps"

	"focustodo/internal/models"
)

// Record is a task record as decoded from JSON.
type Record map[string]any

const versionKey = "_version"

// Migrate upgrades a single record to models.CurrentSchemaVersion. It never
// mutates its input and is idempotent. Sequence fields that are not arrays
// come out empty on every path.
func Migrate(rec Record) Record {
	switch version(rec) {
	case models.CurrentSchemaVersion:
		return sanitize(rec)
	case models.CurrentSchemaVersion - 1:
		out := sanitize(rec)
		out["subtasks"] = sequence(out["subtasks"])
		out[versionKey] = models.CurrentSchemaVersion
		return out
	default:
		return rebuild(rec)
	}
}

// sanitize copies rec, replacing malformed tags, subtasks and subtask images.
// Fields that are absent stay absent.
func sanitize(rec Record) Record {
	out := maps.Clone(rec)
	if v, ok := rec["tags"]; ok && v != nil {
		out["tags"] = stringSequence(v)
	}
	if v, ok := rec["subtasks"]; ok && v != nil {
		subtasks := []any{}
		for _, item := range sequence(v) {
			st, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if images, ok := st["images"]; ok && images != nil {
				st = maps.Clone(st)
				st["images"] = objectSequence(images)
			}
			subtasks = append(subtasks, st)
		}
		out["subtasks"] = subtasks
	}
	return out
}

// rebuild reconstructs a v1 (or unversioned) record with v2 and v3 defaults.
func rebuild(rec Record) Record {
	out := Record{
		"id":          rec["id"],
		"description": rec["description"],
		"completed":   rec["completed"],
		"createdAt":   rec["createdAt"],
	}
	if v, ok := rec["dueDate"]; ok && v != nil {
		out["dueDate"] = v
	}
	if v, ok := rec["estimatedMinutes"]; ok && v != nil {
		out["estimatedMinutes"] = v
	}

	out["actualMinutes"] = 0
	if n, ok := number(rec["actualMinutes"]); ok && n != 0 {
		out["actualMinutes"] = rec["actualMinutes"]
	}

	out["priority"] = string(models.PriorityMedium)
	if p, ok := rec["priority"].(string); ok && p != "" {
		out["priority"] = p
	}

	out["tags"] = stringSequence(rec["tags"])
	out["subtasks"] = []any{}
	out[versionKey] = models.CurrentSchemaVersion
	return out
}

// Decode converts a migrated record into a typed task. Nil sequences are
// replaced by empty ones so that a decoded task encodes back to the same shape.
func Decode(rec Record) (models.Task, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return models.Task{}, fmt.Errorf("encode record: %w", err)
	}
	var task models.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return models.Task{}, fmt.Errorf("decode record: %w", err)
	}
	return Normalize(task), nil
}

// Normalize replaces nil sequences on a task and its subtasks with empty ones.
func Normalize(task models.Task) models.Task {
	if task.Tags == nil {
		task.Tags = []string{}
	}
	if task.Subtasks == nil {
		task.Subtasks = []models.Subtask{}
	}
	for i := range task.Subtasks {
		if task.Subtasks[i].Images == nil {
			task.Subtasks[i].Images = []models.SubtaskImage{}
		}
	}
	return task
}

// MigrateAll migrates every element of a decoded JSON array. Anything that is
// not an array yields an empty result; elements that are not objects or do
// not decode into a task are dropped.
func MigrateAll(payload any) []models.Task {
	items, ok := payload.([]any)
	if !ok {
		return []models.Task{}
	}
	tasks := make([]models.Task, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		task, err := Decode(Migrate(Record(obj)))
		if err != nil {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks
}

func version(rec Record) int {
	n, ok := number(rec[versionKey])
	if !ok {
		return 0
	}
	return int(n)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func sequence(v any) []any {
	if items, ok := v.([]any); ok {
		return items
	}
	return []any{}
}

func objectSequence(v any) []any {
	out := []any{}
	for _, item := range sequence(v) {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func stringSequence(v any) []any {
	out := []any{}
	for _, item := range sequence(v) {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
