// Package recent remembers the duration comparisons a user committed, so the
// duration dropdown can offer them again.
package recent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"querybar/internal/duration"
	"querybar/internal/logging"
)

// DefaultLimit is how many recent values are offered.
const DefaultLimit = 5

// MaxEntries bounds what a store keeps; older entries are evicted.
const MaxEntries = 50

// ErrInvalidValue is returned for a value that is not a duration comparison.
var ErrInvalidValue = errors.New("not a duration comparison")

// Store persists recently used values.
//
// List returns the most recently used values first, each value once.
// Recording a value that is already present moves it to the front.
type Store interface {
	Record(ctx context.Context, value string, at time.Time) error
	List(ctx context.Context, limit int) ([]string, error)
	Close() error
}

// Recorder validates committed values, writes them to a Store, and keeps a
// snapshot for synchronous readers such as the editor session.
type Recorder struct {
	store  Store
	limit  int
	clock  clockwork.Clock
	logger *slog.Logger

	mu       sync.RWMutex
	snapshot []string
}

// RecorderConfig configures a Recorder. Zero fields get defaults.
type RecorderConfig struct {
	Limit  int
	Clock  clockwork.Clock
	Logger *slog.Logger
}

// NewRecorder loads the current list from store.
func NewRecorder(ctx context.Context, store Store, cfg RecorderConfig) (*Recorder, error) {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	r := &Recorder{
		store:  store,
		limit:  cfg.Limit,
		clock:  cfg.Clock,
		logger: logging.Default(cfg.Logger).With("component", "recent"),
	}
	if err := r.refresh(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Durations returns the recent values, newest first.
func (r *Recorder) Durations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.snapshot)
}

// Record stores values as used now. The first value ends up newest, so a
// token's comparisons keep their order in the list. Values that are not
// comparisons are skipped and reported with ErrInvalidValue after the
// valid ones are stored.
func (r *Recorder) Record(ctx context.Context, values []string) error {
	now := r.clock.Now()
	var errs []error
	for i, v := range values {
		c, ok := duration.ParseComparison(v)
		if !ok {
			errs = append(errs, fmt.Errorf("%q: %w", v, ErrInvalidValue))
			continue
		}
		at := now.Add(time.Duration(len(values) - i))
		if err := r.store.Record(ctx, c.Raw, at); err != nil {
			return fmt.Errorf("record %q: %w", c.Raw, err)
		}
	}
	if err := r.refresh(ctx); err != nil {
		return err
	}
	r.logger.Debug("recorded recent durations", "values", values)
	return errors.Join(errs...)
}

func (r *Recorder) refresh(ctx context.Context) error {
	list, err := r.store.List(ctx, r.limit)
	if err != nil {
		return fmt.Errorf("list recent durations: %w", err)
	}
	r.mu.Lock()
	r.snapshot = list
	r.mu.Unlock()
	return nil
}
