// Package config resolves runtime settings from defaults, an optional TOML
// file and TODO_* environment variables. Command-line flags are applied on
// top by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"focustodo/internal/util"
)

// DefaultFile is read when Load is given an empty path.
const DefaultFile = "todo.toml"

const (
	DefaultAddr            = ":8080"
	DefaultDBPath          = "data/todo.db"
	DefaultStaticDir       = "web/dist"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultSaveDelay       = 500 * time.Millisecond
	DefaultUndoWindow      = 5 * time.Second
	DefaultPomodoroMinutes = 25
	DefaultTick            = time.Second
)

// Duration decodes TOML strings such as "500ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Config struct {
	Addr      string `toml:"addr"`
	DBPath    string `toml:"db_path"`
	StaticDir string `toml:"static_dir"`
	// Ephemeral keeps all data in memory and skips the database.
	Ephemeral bool `toml:"ephemeral"`

	Log   LogConfig   `toml:"log"`
	Tasks TasksConfig `toml:"tasks"`
	Timer TimerConfig `toml:"timer"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type TasksConfig struct {
	SaveDelay  Duration `toml:"save_delay"`
	UndoWindow Duration `toml:"undo_window"`
}

type TimerConfig struct {
	PomodoroMinutes int      `toml:"pomodoro_minutes"`
	Tick            Duration `toml:"tick"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:      DefaultAddr,
		DBPath:    DefaultDBPath,
		StaticDir: DefaultStaticDir,
		Log:       LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Tasks: TasksConfig{
			SaveDelay:  Duration{DefaultSaveDelay},
			UndoWindow: Duration{DefaultUndoWindow},
		},
		Timer: TimerConfig{
			PomodoroMinutes: DefaultPomodoroMinutes,
			Tick:            Duration{DefaultTick},
		},
	}
}

// Load layers the file at path and the environment over the defaults. A
// missing file is not an error unless path was given explicitly.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = util.EnvOrDefault("TODO_CONFIG", DefaultFile)
		explicit = os.Getenv("TODO_CONFIG") != ""
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Addr = util.EnvOrDefault("TODO_ADDR", c.Addr)
	c.DBPath = util.EnvOrDefault("TODO_DB_PATH", c.DBPath)
	c.StaticDir = util.EnvOrDefault("TODO_STATIC_DIR", c.StaticDir)
	c.Ephemeral = util.EnvBoolOrDefault("TODO_EPHEMERAL", c.Ephemeral)
	c.Log.Level = util.EnvOrDefault("TODO_LOG_LEVEL", c.Log.Level)
	c.Log.Format = util.EnvOrDefault("TODO_LOG_FORMAT", c.Log.Format)
	c.Tasks.SaveDelay.Duration = util.EnvDurationOrDefault("TODO_SAVE_DELAY", c.Tasks.SaveDelay.Duration)
	c.Tasks.UndoWindow.Duration = util.EnvDurationOrDefault("TODO_UNDO_WINDOW", c.Tasks.UndoWindow.Duration)
	c.Timer.PomodoroMinutes = util.EnvIntOrDefault("TODO_POMODORO_MINUTES", c.Timer.PomodoroMinutes)
	c.Timer.Tick.Duration = util.EnvDurationOrDefault("TODO_TIMER_TICK", c.Timer.Tick.Duration)
}

// Validate rejects settings the application cannot run with.
func (c Config) Validate() error {
	var problems []string
	if c.Addr == "" {
		problems = append(problems, "addr is empty")
	}
	if !c.Ephemeral && c.DBPath == "" {
		problems = append(problems, "db_path is empty")
	}
	if c.Tasks.SaveDelay.Duration <= 0 {
		problems = append(problems, "tasks.save_delay must be positive")
	}
	if c.Tasks.UndoWindow.Duration <= 0 {
		problems = append(problems, "tasks.undo_window must be positive")
	}
	if c.Timer.PomodoroMinutes <= 0 {
		problems = append(problems, "timer.pomodoro_minutes must be positive")
	}
	if c.Timer.Tick.Duration <= 0 {
		problems = append(problems, "timer.tick must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
