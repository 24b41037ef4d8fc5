// Package logging provides utilities for structured logging across querybar.
//
// Design principles:
//   - Logging is dependency-injected, never global
//   - Each component owns its own scoped logger ("component" attribute)
//   - If no logger is provided, a discard logger is used
//
// Global configuration (output format, level, destination) belongs only in main().
// Components must never call slog.SetDefault or access global loggers.
//
// Logging is intentionally sparse: no logging inside the parser, the
// validators or the suggestion loops. Session lifecycle boundaries are the
// intended log points.
package logging

import (
	"context"
	"log/slog"
	"sync"
)

// discardHandler is a handler that discards all log records.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Discard returns a logger that discards all output.
// Use this as a default when no logger is provided.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

// Default returns the provided logger if non-nil, otherwise returns a discard logger.
//
//	func NewComponent(logger *slog.Logger) *Component {
//	    logger = logging.Default(logger)
//	    return &Component{logger: logger.With("component", "name")}
//	}
func Default(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return Discard()
}

// componentKey is the attribute that selects a per-component level.
const componentKey = "component"

// levels is the mutable level table shared by a handler and its clones.
type levels struct {
	mu         sync.RWMutex
	defaultLvl slog.Level
	perComp    map[string]slog.Level
}

func (l *levels) level(component string) slog.Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if lvl, ok := l.perComp[component]; ok {
		return lvl
	}
	return l.defaultLvl
}

// minLevel is the most verbose level any component may log at.
func (l *levels) minLevel() slog.Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m := l.defaultLvl
	for _, lvl := range l.perComp {
		if lvl < m {
			m = lvl
		}
	}
	return m
}

// ComponentFilterHandler filters records by level per "component" attribute.
// Records without a component use the default level. Levels can be changed
// at runtime; clones made by WithAttrs/WithGroup share the level table.
type ComponentFilterHandler struct {
	next      slog.Handler
	levels    *levels
	component string // set when "component" arrived via WithAttrs
}

// NewComponentFilterHandler wraps next with per-component level filtering.
func NewComponentFilterHandler(next slog.Handler, defaultLevel slog.Level) *ComponentFilterHandler {
	return &ComponentFilterHandler{
		next: next,
		levels: &levels{
			defaultLvl: defaultLevel,
			perComp:    make(map[string]slog.Level),
		},
	}
}

// SetLevel overrides the level for one component.
func (h *ComponentFilterHandler) SetLevel(component string, level slog.Level) {
	h.levels.mu.Lock()
	h.levels.perComp[component] = level
	h.levels.mu.Unlock()
}

// ClearLevel removes a component override.
func (h *ComponentFilterHandler) ClearLevel(component string) {
	h.levels.mu.Lock()
	delete(h.levels.perComp, component)
	h.levels.mu.Unlock()
}

// SetDefaultLevel changes the level for components without an override.
func (h *ComponentFilterHandler) SetDefaultLevel(level slog.Level) {
	h.levels.mu.Lock()
	h.levels.defaultLvl = level
	h.levels.mu.Unlock()
}

// Level returns the effective level for component.
func (h *ComponentFilterHandler) Level(component string) slog.Level {
	return h.levels.level(component)
}

// DefaultLevel returns the level used for components without an override.
func (h *ComponentFilterHandler) DefaultLevel() slog.Level {
	h.levels.mu.RLock()
	defer h.levels.mu.RUnlock()
	return h.levels.defaultLvl
}

// Enabled is a cheap pre-check; the per-component decision happens in Handle
// because the component attribute may only be on the record.
func (h *ComponentFilterHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.component != "" {
		return level >= h.levels.level(h.component)
	}
	return level >= h.levels.minLevel()
}

// Handle drops records below their component's level.
func (h *ComponentFilterHandler) Handle(ctx context.Context, r slog.Record) error {
	component := h.component
	if component == "" {
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == componentKey {
				component = a.Value.String()
				return false
			}
			return true
		})
	}
	if r.Level < h.levels.level(component) {
		return nil
	}
	if h.next == nil {
		return nil
	}
	return h.next.Handle(ctx, r)
}

// WithAttrs remembers a component attribute so later records are filtered
// without scanning.
func (h *ComponentFilterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	for _, a := range attrs {
		if a.Key == componentKey {
			clone.component = a.Value.String()
		}
	}
	if h.next != nil {
		clone.next = h.next.WithAttrs(attrs)
	}
	return &clone
}

// WithGroup returns a clone that still filters.
func (h *ComponentFilterHandler) WithGroup(name string) slog.Handler {
	clone := *h
	if h.next != nil {
		clone.next = h.next.WithGroup(name)
	}
	return &clone
}
