// Package repl provides a line-oriented driver for a query bar session.
// Each command becomes one editor event, and the resulting state is printed
// after it, so a terminal (or a script piped to stdin) can exercise every
// transition of the widget.
//
// The REPL owns the session it creates but not the stores behind it.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/muesli/cancelreader"
	"golang.org/x/term"

	"querybar/internal/editor"
	"querybar/internal/logging"
	"querybar/internal/recent"
)

// DefaultWaitTimeout bounds the wait command.
const DefaultWaitTimeout = 5 * time.Second

// Config configures a REPL.
type Config struct {
	// Editor configures the session. OnChange, OnDurationCommitted and
	// RecentDurations are set by the REPL.
	Editor editor.Config
	// Recent receives committed duration filters. Optional.
	Recent *recent.Recorder

	In     io.Reader
	Out    io.Writer
	Logger *slog.Logger

	// Prompt forces the "> " prompt; by default it is shown only when In
	// is a terminal.
	Prompt      bool
	WaitTimeout time.Duration
}

// REPL is an interactive query bar.
type REPL struct {
	sess   *editor.Session
	recent *recent.Recorder
	logger *slog.Logger

	in          io.Reader
	out         io.Writer
	interactive bool
	prompt      bool
	waitTimeout time.Duration

	// notes collects callback output, which may arrive from timer
	// goroutines, until the loop prints it.
	notesMu sync.Mutex
	notes   []string
}

// New creates a REPL and its session.
func New(cfg Config) *REPL {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}
	r := &REPL{
		recent:      cfg.Recent,
		logger:      logging.Default(cfg.Logger).With("component", "repl"),
		in:          cfg.In,
		out:         cfg.Out,
		waitTimeout: cfg.WaitTimeout,
	}
	if f, ok := cfg.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r.interactive = true
	}
	r.prompt = cfg.Prompt || r.interactive

	ec := cfg.Editor
	if ec.Logger == nil {
		ec.Logger = cfg.Logger
	}
	ec.OnChange = func(q string) {
		r.note("changed: " + displayQuery(q))
	}
	if r.recent != nil {
		ec.RecentDurations = r.recent.Durations
		ec.OnDurationCommitted = r.recordDurations
	}
	r.sess = editor.New(ec)
	return r
}

// Session returns the session the REPL drives.
func (r *REPL) Session() *editor.Session {
	return r.sess
}

// Run reads commands until exit, end of input, or ctx is cancelled. The
// session is closed on return.
func (r *REPL) Run(ctx context.Context) error {
	defer r.sess.Close()

	cr, err := cancelreader.NewReader(r.in)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer cr.Close()

	// Lines are read one at a time on request, so nothing else (the pager)
	// competes for the input while a command runs.
	lines := make(chan string)
	readErr := make(chan error, 1)
	want := make(chan struct{})
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(cr)
		for {
			select {
			case <-want:
			case <-done:
				return
			}
			if !sc.Scan() {
				readErr <- sc.Err()
				return
			}
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
	}()

	r.printf("querybar. Type 'help' for commands.\n")
	r.showPrompt()
	for {
		select {
		case want <- struct{}{}:
		case <-ctx.Done():
			cr.Cancel()
			return ctx.Err()
		}

		var line string
		select {
		case <-ctx.Done():
			cr.Cancel()
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				err := <-readErr
				if errors.Is(err, cancelreader.ErrCanceled) {
					return ctx.Err()
				}
				return err
			}
			line = strings.TrimSpace(l)
		}

		if line == "" {
			r.showPrompt()
			continue
		}
		if exit := r.execute(ctx, line); exit {
			return nil
		}
		r.flushNotes()
		r.showPrompt()
	}
}

func (r *REPL) recordDurations(values []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.recent.Record(ctx, values); err != nil {
		r.logger.Warn("record recent durations", "error", err)
	}
}

func (r *REPL) note(s string) {
	r.notesMu.Lock()
	defer r.notesMu.Unlock()
	r.notes = append(r.notes, s)
}

func (r *REPL) flushNotes() {
	r.notesMu.Lock()
	notes := r.notes
	r.notes = nil
	r.notesMu.Unlock()
	for _, n := range notes {
		r.printf("%s\n", n)
	}
}

func (r *REPL) showPrompt() {
	if r.prompt {
		r.printf("> ")
	}
}

func (r *REPL) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}
