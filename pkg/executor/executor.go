// Package executor runs a sweep: it expands the configuration into
// combinations, runs each one in its own worker under a bounded pool and
// feeds the results to the librarian.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ja7ad/spsim/pkg/config"
	"github.com/ja7ad/spsim/pkg/db"
	"github.com/ja7ad/spsim/pkg/librarian"
	"github.com/ja7ad/spsim/pkg/metrics"
	"github.com/ja7ad/spsim/pkg/plog"
	"github.com/ja7ad/spsim/pkg/study"
)

type Executor struct {
	cfg      *config.Config
	combos   []study.Combination
	runner   Runner
	lister   plog.Lister
	log      *slog.Logger
	logLevel slog.Level
}

type Option func(*Executor)

// WithRunner replaces the OS process runner.
func WithRunner(r Runner) Option { return func(e *Executor) { e.runner = r } }

// WithLister replaces the directory listing used for run id allocation.
func WithLister(l plog.Lister) Option { return func(e *Executor) { e.lister = l } }

func WithLogger(l *slog.Logger) Option { return func(e *Executor) { e.log = l } }

// WithWorkerLogLevel sets the level workers log at.
func WithWorkerLogLevel(l slog.Level) Option { return func(e *Executor) { e.logLevel = l } }

// New validates cfg and expands the sweep. Nothing is written to disk.
func New(cfg *config.Config, opts ...Option) (*Executor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	combos, err := Expand(cfg.Sweep, cfg.StoreRaw)
	if err != nil {
		return nil, err
	}
	e := &Executor{cfg: cfg, combos: combos, log: slog.Default()}
	for _, o := range opts {
		o(e)
	}
	if e.lister == nil {
		e.lister = plog.DirLister{Root: cfg.Out}
	}
	if e.runner == nil {
		r, err := NewProcessRunner(e.log, e.logLevel)
		if err != nil {
			return nil, err
		}
		e.runner = r
	}
	return e, nil
}

func (e *Executor) Combinations() []study.Combination { return e.combos }

// Report summarises a finished run.
type Report struct {
	Run      *plog.Run
	Expected int
	Received int
	States   map[State]int
	Elapsed  time.Duration
}

// Run allocates the run directory and executes every combination. The
// tables are saved with whatever was received, also when the run is
// incomplete; the returned error then wraps librarian.ErrIncomplete.
func (e *Executor) Run(ctx context.Context) (*Report, error) {
	n := len(e.combos)
	run, err := plog.Create(e.cfg.Out, e.lister)
	if err != nil {
		return nil, err
	}
	log := e.log.With("run", run.ID)
	if err := run.SaveConfig(e.cfg); err != nil {
		return nil, err
	}
	manifest := plog.Manifest{
		Combinations: n,
		Workers:      e.cfg.Workers,
		Nice:         e.cfg.Nice,
		BER:          e.cfg.BER,
		Status:       "running",
	}
	if err := run.SaveManifest(manifest); err != nil {
		return nil, err
	}
	log.Info("run started", "dir", run.Dir, "uuid", run.UUID, "combinations", n, "workers", e.cfg.Workers)

	var sinks []db.Sink
	if e.cfg.XLSX {
		sinks = append(sinks, db.XLSX{})
	}
	if e.cfg.SQLite {
		sinks = append(sinks, db.SQLite{})
	}
	store := db.New(n, sinks...)
	m := metrics.New(n)
	tracker := NewTracker(n)
	results := make(chan study.Result, n)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lib := librarian.New(store, librarian.Options{
		Dir:             run.Dir,
		CheckpointEvery: e.cfg.CheckpointEvery,
		Timeout:         e.cfg.Timeout,
		Progress:        tracker,
		Metrics:         m,
		Logger:          log,
	})
	libDone := make(chan error, 1)
	go func() {
		err := lib.Run(ctx, results)
		if err != nil {
			// stop launching, nobody is listening any more
			cancel()
		}
		libDone <- err
	}()

	var g errgroup.Group
	g.SetLimit(e.cfg.Workers)
	for _, c := range e.combos {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results <- e.runOne(ctx, run, tracker, m, c)
			return nil
		})
	}
	_ = g.Wait()
	close(results)
	runErr := <-libDone

	if err := store.Finalize(run.Dir); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("executor: save tables: %w", err))
	}
	if err := m.WriteFile(run.Path(metrics.File)); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("executor: save metrics: %w", err))
	}

	report := &Report{
		Run:      run,
		Expected: n,
		Received: lib.Received(),
		States:   tracker.Counts(),
		Elapsed:  time.Since(run.Started),
	}
	manifest.Finished = time.Now()
	manifest.Received = report.Received
	manifest.Status = "completed"
	if runErr != nil {
		manifest.Status = "incomplete"
	}
	if err := run.SaveManifest(manifest); err != nil {
		runErr = errors.Join(runErr, err)
	}

	log.Info("run finished",
		"received", report.Received,
		"expected", n,
		"failed", report.States[Failed],
		"elapsed", report.Elapsed.Round(time.Millisecond),
	)
	return report, runErr
}

// runOne always yields exactly one result for c.
func (e *Executor) runOne(ctx context.Context, run *plog.Run, tracker *Tracker, m *metrics.Metrics, c study.Combination) study.Result {
	pid := c.ProcessID
	tracker.Start(pid)
	begin := time.Now()

	p, err := run.Process(pid)
	if err != nil {
		tracker.Finish(pid, true)
		return study.Failed(c, err)
	}
	meta := plog.Metadata{Begin: begin, Nice: e.cfg.Nice}
	if err := p.SaveConfig(c); err != nil {
		e.log.Warn("save process config", "pid", pid, "err", err)
	}
	if err := p.SaveMetadata(meta); err != nil {
		e.log.Warn("save process metadata", "pid", pid, "err", err)
	}

	out, err := e.runner.Run(ctx, Job{
		Task: Task{
			Combination: c,
			BER:         e.cfg.BER,
			MCSTable:    e.cfg.MCSTable,
		},
		Process: p,
		Nice:    e.cfg.Nice,
		Timeout: e.cfg.WorkerTimeout,
	})
	res := out.Result
	if err != nil {
		e.log.Warn("worker failed", "pid", pid, "os_pid", out.OSPid, "err", err)
		res = study.Failed(c, err)
		res.Begin = begin
	}

	if c.StoreRaw && len(res.Departed) > 0 {
		if err := p.SaveRaw(res.Generated, res.Departed); err != nil {
			e.log.Warn("save raw msdu times", "pid", pid, "err", err)
		}
	}
	res.Generated, res.Departed = nil, nil

	meta.End = time.Now()
	meta.OSPid = out.OSPid
	meta.CPUSeconds = out.Usage.CPUSeconds
	meta.PeakRSS = out.Usage.PeakRSS
	meta.ExitCode = out.ExitCode
	meta.Status = int(res.Status.Code())
	meta.Detail = res.Status.Detail
	if err := p.SaveMetadata(meta); err != nil {
		e.log.Warn("save process metadata", "pid", pid, "err", err)
	}
	m.ObserveUsage(out.Usage)

	tracker.Finish(pid, res.Status.Kind == study.KindError)
	return res
}
