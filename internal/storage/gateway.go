package storage

import (
	"context"
	_ "embed"
	"encoding/json"
	"log/slog"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"focustodo/internal/migrate"
	"focustodo/internal/models"
)

// Keys used in the local store.
const (
	TasksKey    = "todo-app-todos"
	SessionsKey = "todo-app-timer-sessions"
)

var (
	//go:embed schema/tasks.schema.json
	tasksSchemaSource string
	//go:embed schema/sessions.schema.json
	sessionsSchemaSource string

	// Both schemas describe a single stored record.
	tasksSchema    = jsonschema.MustCompileString("tasks.schema.json", tasksSchemaSource)
	sessionsSchema = jsonschema.MustCompileString("sessions.schema.json", sessionsSchemaSource)
)

// Gateway serializes tasks and timer sessions to a KV. Reads fall back to an
// empty collection and writes report failure as false; no storage error
// escapes this type.
type Gateway struct {
	kv     KV
	logger *slog.Logger
}

// NewGateway wraps kv.
func NewGateway(kv KV, logger *slog.Logger) *Gateway {
	if kv == nil {
		panic("storage: nil KV")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{kv: kv, logger: logger}
}

// LoadTasks reads, validates and migrates the stored task collection.
func (g *Gateway) LoadTasks(ctx context.Context) []models.Task {
	payload, ok := g.read(ctx, TasksKey, tasksSchema)
	if !ok {
		return []models.Task{}
	}
	return migrate.MigrateAll(payload)
}

// SaveTasks replaces the stored task collection.
func (g *Gateway) SaveTasks(ctx context.Context, tasks []models.Task) bool {
	if tasks == nil {
		tasks = []models.Task{}
	}
	return g.write(ctx, TasksKey, tasks)
}

// ClearTasks removes the stored task collection.
func (g *Gateway) ClearTasks(ctx context.Context) bool {
	return g.remove(ctx, TasksKey)
}

// LoadSessions reads the archived timer session log.
func (g *Gateway) LoadSessions(ctx context.Context) []models.TimerSession {
	payload, ok := g.read(ctx, SessionsKey, sessionsSchema)
	if !ok {
		return []models.TimerSession{}
	}
	sessions := make([]models.TimerSession, 0, len(payload))
	for i, item := range payload {
		var session models.TimerSession
		if err := decodeItem(item, &session); err != nil {
			g.logger.Warn("skipping stored timer session", slog.Int("index", i), slog.String("error", err.Error()))
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions
}

func decodeItem(item any, v any) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// SaveSessions replaces the stored session log.
func (g *Gateway) SaveSessions(ctx context.Context, sessions []models.TimerSession) bool {
	if sessions == nil {
		sessions = []models.TimerSession{}
	}
	return g.write(ctx, SessionsKey, sessions)
}

// ClearSessions removes the stored session log.
func (g *Gateway) ClearSessions(ctx context.Context) bool {
	return g.remove(ctx, SessionsKey)
}

// read fetches key and returns the decoded JSON array when it is present and
// well-formed. Elements that fail schema are dropped one by one; the rest of
// the collection survives.
func (g *Gateway) read(ctx context.Context, key string, schema *jsonschema.Schema) ([]any, bool) {
	stored, found, err := g.kv.Get(ctx, key)
	if err != nil {
		g.logger.Error("failed to read from storage", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	}
	if !found || stored == "" {
		return nil, false
	}

	var payload any
	if err := json.Unmarshal([]byte(stored), &payload); err != nil {
		g.logger.Warn("stored payload is not valid JSON", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	}
	items, isArray := payload.([]any)
	if !isArray {
		g.logger.Warn("stored payload is not an array", slog.String("key", key))
		return nil, false
	}

	valid := make([]any, 0, len(items))
	for i, item := range items {
		if err := schema.Validate(item); err != nil {
			g.logger.Warn("skipping stored record",
				slog.String("key", key),
				slog.Int("index", i),
				slog.String("error", err.Error()),
			)
			continue
		}
		valid = append(valid, item)
	}
	return valid, true
}

func (g *Gateway) write(ctx context.Context, key string, v any) bool {
	serialized, err := json.Marshal(v)
	if err != nil {
		g.logger.Error("failed to encode payload", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	if err := g.kv.Set(ctx, key, string(serialized)); err != nil {
		g.logger.Error("failed to write to storage", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	return true
}

func (g *Gateway) remove(ctx context.Context, key string) bool {
	if err := g.kv.Remove(ctx, key); err != nil {
		g.logger.Error("failed to clear storage", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	return true
}
