package editor

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"querybar/internal/logging"
	"querybar/internal/notify"
	"querybar/internal/querylang"
	"querybar/internal/schema"
	"querybar/internal/suggest"
)

// Default timings.
const (
	DefaultBlurGrace    = 150 * time.Millisecond
	DefaultHintDuration = 2 * time.Second
)

// Config configures a Session. Zero fields get defaults.
type Config struct {
	// Schema supplies the field rules; it is read on every event so a
	// reloaded schema takes effect immediately.
	Schema schema.Provider
	IDs    querylang.IDGenerator
	Clock  clockwork.Clock
	Logger *slog.Logger

	BlurGrace    time.Duration
	HintDuration time.Duration

	// Value is the initial controlled value.
	Value string
	// ValueCounts feeds value suggestions, per field.
	ValueCounts map[string]map[string]int
	// RecentDurations returns recently used duration comparisons,
	// newest first.
	RecentDurations func() []string

	// OnChange receives the query text after an internal edit. It is not
	// called for changes made through SetValue.
	OnChange func(query string)
	// OnDurationCommitted receives the comparisons of a committed
	// duration token.
	OnDurationCommitted func(values []string)
}

// Session is one query bar instance.
//
// Concurrency model:
//   - Every event, including timer callbacks, runs under one mutex, so
//     transitions never interleave.
//   - Callbacks (OnChange, OnDurationCommitted) run after the mutex is
//     released and may call back into the Session.
//   - Changed() is closed after every event, for readers that wait on
//     timer-driven transitions.
type Session struct {
	cfg    Config
	logger *slog.Logger

	mu         sync.Mutex
	state      State
	lastSynced string
	blurTimer  clockwork.Timer
	hintTimer  clockwork.Timer
	items      []suggest.Suggestion
	itemsValid bool
	closed     bool

	changed *notify.Signal
}

// New creates a Session holding the tokens parsed from cfg.Value.
func New(cfg Config) *Session {
	if cfg.Schema == nil {
		cfg.Schema = schema.Static(schema.Default())
	}
	if cfg.IDs == nil {
		cfg.IDs = querylang.NewCounter("")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.BlurGrace <= 0 {
		cfg.BlurGrace = DefaultBlurGrace
	}
	if cfg.HintDuration <= 0 {
		cfg.HintDuration = DefaultHintDuration
	}

	s := &Session{
		cfg:        cfg,
		logger:     logging.Default(cfg.Logger).With("component", "editor"),
		lastSynced: cfg.Value,
		changed:    notify.NewSignal(),
	}
	s.state = NewState(querylang.Parse(cfg.Schema.Current(), cfg.IDs, cfg.Value))
	return s
}

func (s *Session) machine() Machine {
	m := Machine{
		Schema:      s.cfg.Schema.Current(),
		IDs:         s.cfg.IDs,
		ValueCounts: s.cfg.ValueCounts,
	}
	if s.cfg.RecentDurations != nil {
		m.RecentDurations = s.cfg.RecentDurations()
	}
	return m
}

// Dispatch applies ev.
func (s *Session) Dispatch(ev Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	before := s.state.Query()
	next, fx := s.machine().Reduce(s.state, ev)
	s.state = next
	s.itemsValid = false
	s.applyTimers(fx)

	var onChange func(string)
	after := next.Query()
	if after != before && after != s.lastSynced {
		s.lastSynced = after
		onChange = s.cfg.OnChange
	}
	parseErr := next.ParseErr
	s.mu.Unlock()

	if fx.Pruned > 0 {
		s.logger.Debug("pruned empty tokens", "count", fx.Pruned)
	}
	if fx.ParseFailed {
		s.logger.Info("free text did not parse, tokens kept", "error", parseErr)
	}
	if onChange != nil {
		s.logger.Debug("query changed", "query", after)
		onChange(after)
	}
	if len(fx.Committed) > 0 && s.cfg.OnDurationCommitted != nil {
		s.cfg.OnDurationCommitted(fx.Committed)
	}
	s.changed.Notify()
}

// applyTimers starts and stops timers for fx. Must hold mu.
func (s *Session) applyTimers(fx Effects) {
	if (fx.CancelBlur || fx.ScheduleBlur) && s.blurTimer != nil {
		s.blurTimer.Stop()
		s.blurTimer = nil
	}
	if fx.ScheduleBlur {
		seq := s.state.blurSeq
		s.blurTimer = s.cfg.Clock.AfterFunc(s.cfg.BlurGrace, func() {
			s.Dispatch(BlurTimeout{Seq: seq})
		})
	}
	if fx.ScheduleHint && s.state.Hint != nil {
		if s.hintTimer != nil {
			s.hintTimer.Stop()
		}
		seq := s.state.Hint.Seq
		s.hintTimer = s.cfg.Clock.AfterFunc(s.cfg.HintDuration, func() {
			s.Dispatch(HintExpired{Seq: seq})
		})
	}
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Value returns the current query text.
func (s *Session) Value() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Query()
}

// Schema returns the schema events are currently checked against.
func (s *Session) Schema() *schema.Schema {
	return s.cfg.Schema.Current()
}

// Suggestions returns the dropdown items for the current state. The list is
// computed on first read after a change and reused until the next event.
func (s *Session) Suggestions() []suggest.Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.itemsValid {
		s.items = s.machine().Suggestions(s.state)
		s.itemsValid = true
	}
	out := make([]suggest.Suggestion, len(s.items))
	copy(out, s.items)
	return out
}

// SetValue syncs the controlled value from outside. A value equal to the
// last one exchanged in either direction is ignored, which stops an echo
// of OnChange from re-parsing the query. OnChange is not called.
func (s *Session) SetValue(text string) {
	s.mu.Lock()
	if s.closed || text == s.lastSynced {
		s.mu.Unlock()
		return
	}
	s.lastSynced = text
	next, fx := s.machine().Reduce(s.state, SetQuery{Text: text})
	s.state = next
	s.itemsValid = false
	s.applyTimers(fx)
	s.mu.Unlock()

	s.changed.Notify()
}

// Changed returns a channel closed after the next event.
func (s *Session) Changed() <-chan struct{} {
	return s.changed.C()
}

// Close stops pending timers. Later events are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.blurTimer != nil {
		s.blurTimer.Stop()
		s.blurTimer = nil
	}
	if s.hintTimer != nil {
		s.hintTimer.Stop()
		s.hintTimer = nil
	}
}
