// Package librarian is the single consumer of worker results. It owns the
// result store for the duration of a run.
package librarian

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ja7ad/spsim/pkg/db"
	"github.com/ja7ad/spsim/pkg/metrics"
	"github.com/ja7ad/spsim/pkg/study"
)

// DefaultCheckpointEvery is the number of results between two saves.
const DefaultCheckpointEvery = 100_000

// Progress reports whether a process id was ever launched. The executor's
// tracker implements it.
type Progress interface {
	Started(pid int) bool
}

type Options struct {
	// Dir receives the checkpoints. Empty disables them.
	Dir string
	// CheckpointEvery <= 0 means DefaultCheckpointEvery.
	CheckpointEvery int
	// Timeout bounds the whole wait. Zero means no bound.
	Timeout time.Duration

	Progress Progress
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

type Librarian struct {
	store *db.Store
	opts  Options
	log   *slog.Logger

	received int
}

func New(store *db.Store, opts Options) *Librarian {
	if opts.CheckpointEvery <= 0 {
		opts.CheckpointEvery = DefaultCheckpointEvery
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Librarian{store: store, opts: opts, log: log.With("component", "librarian")}
}

// Received is the number of results stored so far.
func (l *Librarian) Received() int { return l.received }

// Run stores results until every expected process id has reported. It
// returns an *IncompleteError when the channel closes early, the timeout
// expires or ctx is cancelled. A persistence failure aborts the run.
func (l *Librarian) Run(ctx context.Context, results <-chan study.Result) error {
	expected := l.store.Len()
	if l.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.Timeout)
		defer cancel()
	}

	for l.received < expected {
		select {
		case <-ctx.Done():
			cause := "cancelled"
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				cause = "timeout"
			}
			return l.incomplete(cause)
		case r, ok := <-results:
			if !ok {
				return l.incomplete("channel closed")
			}
			if err := l.store.Write(r); err != nil {
				if errors.Is(err, db.ErrDuplicate) || errors.Is(err, db.ErrUnknownProcess) {
					l.log.Warn("result dropped", "pid", r.ProcessID, "err", err)
					continue
				}
				return err
			}
			l.received++
			if l.opts.Metrics != nil {
				l.opts.Metrics.Observe(r)
			}
			l.log.Debug("result stored", "pid", r.ProcessID, "status", r.Status.String(), "received", l.received, "expected", expected)

			if l.received%l.opts.CheckpointEvery == 0 && l.received < expected {
				if err := l.checkpoint(); err != nil {
					return err
				}
			}
		}
	}
	l.log.Info("all results stored", "n", expected)
	return nil
}

func (l *Librarian) checkpoint() error {
	if l.opts.Dir == "" {
		return nil
	}
	if err := l.store.Checkpoint(l.opts.Dir); err != nil {
		return fmt.Errorf("librarian: checkpoint: %w", err)
	}
	if l.opts.Metrics != nil {
		l.opts.Metrics.Checkpoint()
	}
	l.log.Info("checkpoint", "received", l.received)
	return nil
}

func (l *Librarian) incomplete(cause string) error {
	e := &IncompleteError{Received: l.received, Expected: l.store.Len(), Cause: cause}
	for pid := range l.store.Len() {
		switch {
		case l.store.Has(pid):
		case l.opts.Progress != nil && !l.opts.Progress.Started(pid):
			e.Missing.NotStarted = append(e.Missing.NotStarted, pid)
		default:
			e.Missing.NotFinished = append(e.Missing.NotFinished, pid)
		}
	}
	l.log.Error("run incomplete", "cause", cause, "received", e.Received, "expected", e.Expected,
		"not_started", len(e.Missing.NotStarted), "not_finished", len(e.Missing.NotFinished))
	return e
}
