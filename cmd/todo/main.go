package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"focustodo/internal/app"
	"focustodo/internal/clock"
	"focustodo/internal/config"
	"focustodo/internal/logging"
	"focustodo/internal/storage"
	"focustodo/internal/storage/sqlite"
)

var Version = "dev"

type globalFlags struct {
	configPath string
	addr       string
	dbPath     string
	staticDir  string
	logLevel   string
	logFormat  string
	ephemeral  bool
}

func main() {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:           "todo",
		Short:         "Single-user task tracker with a focus timer",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, &flags)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to TOML config (default todo.toml or $TODO_CONFIG)")
	pf.StringVar(&flags.addr, "addr", "", "HTTP listen address")
	pf.StringVar(&flags.dbPath, "db", "", "path to sqlite database file")
	pf.StringVar(&flags.staticDir, "static", "", "directory with built frontend")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&flags.logFormat, "log-format", "", "log format (text, json, logfmt)")
	pf.BoolVar(&flags.ephemeral, "ephemeral", false, "keep data in memory only")

	rootCmd.AddCommand(serveCmd(&flags))
	rootCmd.AddCommand(addCmd(&flags))
	rootCmd.AddCommand(listCmd(&flags))
	rootCmd.AddCommand(doneCmd(&flags))
	rootCmd.AddCommand(statsCmd(&flags))
	rootCmd.AddCommand(migrateCmd(&flags))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves settings and applies any flags set on cmd.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	changed := cmd.Flags().Changed
	if changed("addr") {
		cfg.Addr = flags.addr
	}
	if changed("db") {
		cfg.DBPath = flags.dbPath
	}
	if changed("static") {
		cfg.StaticDir = flags.staticDir
	}
	if changed("log-level") {
		cfg.Log.Level = flags.logLevel
	}
	if changed("log-format") {
		cfg.Log.Format = flags.logFormat
	}
	if changed("ephemeral") {
		cfg.Ephemeral = flags.ephemeral
	}
	return cfg, cfg.Validate()
}

// runtime is an opened application plus the resources behind it.
type runtime struct {
	cfg    config.Config
	logger *slog.Logger
	app    *app.App
	db     *sqlite.Store
}

func (r *runtime) Close() {
	r.app.Close()
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			r.logger.Error("failed to close database", slog.String("error", err.Error()))
		}
	}
}

// open loads config, opens storage and hydrates the application.
func open(cmd *cobra.Command, flags *globalFlags) (*runtime, error) {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	r := &runtime{cfg: cfg, logger: logger}
	var kv storage.KV
	if cfg.Ephemeral {
		logger.Warn("ephemeral mode; nothing will be saved")
		kv = storage.NewMemoryKV()
	} else {
		db, err := sqlite.Open(cfg.DBPath, logger)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		r.db = db
		kv = db
	}

	r.app = app.New(context.Background(), app.Options{
		KV:              kv,
		Clock:           clock.Real{},
		Logger:          logger,
		SaveDelay:       cfg.Tasks.SaveDelay.Duration,
		UndoWindow:      cfg.Tasks.UndoWindow.Duration,
		Tick:            cfg.Timer.Tick.Duration,
		PomodoroMinutes: cfg.Timer.PomodoroMinutes,
	})
	return r, nil
}
