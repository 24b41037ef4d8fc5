package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"querybar/internal/config"
	"querybar/internal/home"
	"querybar/internal/logging"
	"querybar/internal/querylang"
	"querybar/internal/recent"
	recentmem "querybar/internal/recent/memory"
	recentsqlite "querybar/internal/recent/sqlite"
	"querybar/internal/schema"
)

// env carries what every subcommand needs once settings are resolved.
type env struct {
	logger *slog.Logger
	filter *logging.ComponentFilterHandler

	settings config.Settings
	schema   schema.Provider
	closers  []func() error
}

// setup loads settings for cmd, applies log levels and opens the schema.
func (e *env) setup(cmd *cobra.Command) error {
	out, _ := cmd.Flags().GetString("output")
	if _, err := parseOutputFormat(out); err != nil {
		return err
	}

	cfgFile, _ := cmd.Flags().GetString("config")
	s, err := config.Load(config.Options{ConfigFile: cfgFile, Flags: cmd.Flags()})
	if err != nil {
		return err
	}
	e.settings = s

	level, err := config.ParseLevel(s.Log.Level)
	if err != nil {
		return err
	}
	e.filter.SetDefaultLevel(level)
	for _, c := range s.Log.Debug {
		e.filter.SetLevel(c, slog.LevelDebug)
	}
	if s.ConfigFile != "" {
		e.logger.Debug("settings loaded", "component", "config", "file", s.ConfigFile)
	}

	p, err := e.openSchema()
	if err != nil {
		return err
	}
	e.schema = p
	return nil
}

func (e *env) openSchema() (schema.Provider, error) {
	path := e.settings.SchemaPath()
	if path == "" {
		return schema.Static(schema.Default()), nil
	}
	if e.settings.WatchSchema {
		w, err := schema.NewWatcher(path, e.logger)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, w.Close)
		return w, nil
	}
	s, err := schema.Load(path)
	if err != nil {
		return nil, err
	}
	return schema.Static(s), nil
}

// ids returns the configured token id generator.
func (e *env) ids() querylang.IDGenerator {
	if e.settings.IDs == config.IDsUUID {
		return querylang.UUIDs{}
	}
	return querylang.NewCounter("")
}

// openRecent opens the recent-durations store and a recorder over it.
func (e *env) openRecent(ctx context.Context) (*recent.Recorder, error) {
	var store recent.Store
	switch e.settings.Recent.Store {
	case config.StoreMemory:
		store = recentmem.NewStore()
	default:
		hd := e.settings.HomeDir()
		if err := hd.EnsureExists(); err != nil {
			return nil, err
		}
		s, err := recentsqlite.NewStore(hd.RecentPath())
		if err != nil {
			return nil, fmt.Errorf("open recent store: %w", err)
		}
		e.logger.Debug("recent store opened", "component", "recent", "path", s.Path())
		store = s
	}
	e.closers = append(e.closers, store.Close)

	return recent.NewRecorder(ctx, store, recent.RecorderConfig{
		Limit:  e.settings.Recent.Limit,
		Logger: e.logger,
	})
}

// recentDurations reads the recent list without creating anything on disk.
// A missing database means an empty list.
func (e *env) recentDurations(ctx context.Context) []string {
	if e.settings.Recent.Store != config.StoreSQLite || !home.Exists(e.settings.HomeDir().RecentPath()) {
		return nil
	}
	rec, err := e.openRecent(ctx)
	if err != nil {
		e.logger.Warn("recent durations unavailable", "error", err)
		return nil
	}
	return rec.Durations()
}

// close releases everything opened by setup and openRecent, newest first.
func (e *env) close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i]())
	}
	e.closers = nil
	return errors.Join(errs...)
}

// run wraps a command body with setup and cleanup.
func (e *env) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := e.setup(cmd); err != nil {
			return err
		}
		err := fn(cmd, args)
		if cerr := e.close(); cerr != nil {
			e.logger.Warn("close", "error", cerr)
		}
		return err
	}
}
