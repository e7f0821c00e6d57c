package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ja7ad/spsim/pkg/ber"
	"github.com/ja7ad/spsim/pkg/plog"
	"github.com/ja7ad/spsim/pkg/study"
	"github.com/ja7ad/spsim/pkg/system/proc"
)

// Job is one combination handed to a Runner.
type Job struct {
	Task    Task
	Process *plog.Process
	Nice    int
	Timeout time.Duration
}

// Outcome is what a Runner learned about one job. Usage, OSPid and ExitCode
// are set as far as they are known, also on error.
type Outcome struct {
	Result   study.Result
	Usage    proc.Usage
	OSPid    int
	ExitCode int
}

// Runner executes one job. An error means the job produced no result.
type Runner interface {
	Run(ctx context.Context, job Job) (Outcome, error)
}

// ProcessRunner starts one OS process per job: Path with Args, the task as
// JSON on stdin, the result as JSON on stdout and stderr captured in the
// process's worker.log.
type ProcessRunner struct {
	Path string
	Args []string
	// Env is appended to the current environment.
	Env []string
	// SampleInterval of the /proc watcher. Zero means 100ms.
	SampleInterval time.Duration
	Logger         *slog.Logger
}

// NewProcessRunner re-executes the running binary as "worker", logging at
// level.
func NewProcessRunner(logger *slog.Logger, level slog.Level) (*ProcessRunner, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("executor: locate executable: %w", err)
	}
	return &ProcessRunner{
		Path:   self,
		Args:   []string{"worker", "--log-level", level.String()},
		Logger: logger,
	}, nil
}

func (r *ProcessRunner) Run(ctx context.Context, job Job) (Outcome, error) {
	var out Outcome
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("pid", job.Task.Combination.ProcessID)

	payload, err := json.Marshal(job.Task)
	if err != nil {
		return out, err
	}
	logFile, err := os.Create(job.Process.LogPath())
	if err != nil {
		return out, err
	}
	defer logFile.Close()

	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, r.Path, r.Args...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = logFile
	cmd.Env = append(os.Environ(), r.Env...)
	cmd.WaitDelay = time.Second

	if err := cmd.Start(); err != nil {
		return out, fmt.Errorf("%w: start: %w", ErrWorkerFailed, err)
	}
	out.OSPid = cmd.Process.Pid
	if job.Nice != 0 {
		if err := unix.Setpriority(unix.PRIO_PROCESS, out.OSPid, job.Nice); err != nil {
			log.Warn("setpriority failed", "os_pid", out.OSPid, "nice", job.Nice, "err", err)
		}
	}

	w := proc.Watch(ctx, out.OSPid, r.SampleInterval)
	waitErr := cmd.Wait()
	out.Usage = w.Stop().Merge(proc.FromState(cmd.ProcessState))
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return out, fmt.Errorf("%w after %s", ErrWorkerTimeout, job.Timeout)
	case ctx.Err() != nil:
		return out, fmt.Errorf("%w: %w", ErrWorkerFailed, ctx.Err())
	case waitErr != nil:
		return out, fmt.Errorf("%w: %w", ErrWorkerFailed, waitErr)
	}

	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &out.Result); err != nil {
		return out, fmt.Errorf("%w: decode result: %w (stdout %q)", ErrWorkerFailed, err, clip(stdout.String(), 120))
	}
	if got, want := out.Result.ProcessID, job.Task.Combination.ProcessID; got != want {
		return out, fmt.Errorf("%w: got %d, want %d", ErrPIDMismatch, got, want)
	}
	return out, nil
}

func clip(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// InProcess runs jobs on goroutines of the calling process. The BER dataset
// is loaded once. Niceness does not apply.
type InProcess struct {
	LogLevel slog.Level

	once   sync.Once
	curves *ber.Curves
	err    error
}

func (r *InProcess) load(t Task) (*ber.Curves, error) {
	r.once.Do(func() { r.curves, r.err = t.LoadCurves() })
	return r.curves, r.err
}

func (r *InProcess) Run(ctx context.Context, job Job) (Outcome, error) {
	out := Outcome{OSPid: os.Getpid()}
	if err := ctx.Err(); err != nil {
		return out, fmt.Errorf("%w: %w", ErrWorkerFailed, err)
	}
	curves, err := r.load(job.Task)
	if err != nil {
		return out, err
	}

	logFile, err := os.Create(job.Process.LogPath())
	if err != nil {
		return out, err
	}
	defer logFile.Close()
	logger := slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: r.LogLevel}))

	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	type reply struct {
		res study.Result
		err error
	}
	done := make(chan reply, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- reply{err: fmt.Errorf("%w: panic: %v", ErrWorkerFailed, p)}
			}
		}()
		done <- reply{res: Work(ctx, job.Task.Combination, curves, logger)}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return out, fmt.Errorf("%w after %s", ErrWorkerTimeout, job.Timeout)
		}
		return out, fmt.Errorf("%w: %w", ErrWorkerFailed, ctx.Err())
	case rep := <-done:
		out.Result = rep.res
		return out, rep.err
	}
}
