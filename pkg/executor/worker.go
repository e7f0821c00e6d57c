package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/ja7ad/spsim/pkg/ber"
	"github.com/ja7ad/spsim/pkg/dmg"
	"github.com/ja7ad/spsim/pkg/study"
)

// Task is what a worker reads on stdin.
type Task struct {
	Combination study.Combination `json:"combination"`
	BER         string            `json:"ber"`
	MCSTable    string            `json:"mcs_table,omitempty"`
}

// LoadCurves reads the BER dataset of a task, against the default MCS table
// unless the task names one.
func (t Task) LoadCurves() (*ber.Curves, error) {
	var table *dmg.Table
	if t.MCSTable != "" {
		var err error
		if table, err = dmg.LoadTable(t.MCSTable); err != nil {
			return nil, fmt.Errorf("mcs table: %w", err)
		}
	}
	curves, err := ber.Load(t.BER, table)
	if err != nil {
		return nil, fmt.Errorf("ber dataset: %w", err)
	}
	return curves, nil
}

// Work runs one combination against curves.
func Work(ctx context.Context, c study.Combination, curves *ber.Curves, logger *slog.Logger) study.Result {
	return study.New(c, curves, logger).Run(ctx)
}

// RunWorker is the body of the worker process: one Task in, one Result out.
// A task that cannot be read is an error; a task that cannot run still
// produces a result with an error status.
func RunWorker(ctx context.Context, stdin io.Reader, stdout io.Writer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	var task Task
	if err := json.NewDecoder(stdin).Decode(&task); err != nil {
		return fmt.Errorf("worker: decode task: %w", err)
	}
	c := task.Combination
	logger = logger.With("pid", c.ProcessID)
	logger.Info("worker started", "ber", task.BER)

	var res study.Result
	curves, err := task.LoadCurves()
	if err != nil {
		logger.Error("worker setup failed", "err", err)
		res = study.Failed(c, err)
	} else {
		res = Work(ctx, c, curves, logger)
	}

	logger.Info("worker finished", "status", res.Status.String(), "duration", res.End.Sub(res.Begin))
	if err := json.NewEncoder(stdout).Encode(res); err != nil {
		return fmt.Errorf("worker: encode result: %w", err)
	}
	return nil
}
