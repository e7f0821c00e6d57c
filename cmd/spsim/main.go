//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ja7ad/spsim/pkg/ber"
	"github.com/ja7ad/spsim/pkg/config"
	"github.com/ja7ad/spsim/pkg/executor"
	"github.com/ja7ad/spsim/pkg/librarian"
	"github.com/ja7ad/spsim/pkg/plog"
)

var logLevel string

func main() {
	root := &cobra.Command{
		Use:   "spsim",
		Short: "Service-period MAC latency/throughput sweep engine",
		Long: `spsim sweeps parameter combinations of an 802.11ad service-period MAC.
Every combination runs in its own worker process; latency, throughput and
status of all of them are collected into result tables under a numbered
run directory.

Examples:
  spsim run -c configs/sweep.yaml --workers 16 --nice 10
  spsim mcs --ber BER-3-to-20-iter.csv --ebn0 6 --allowed 1e-5
  spsim alloc-id --out log`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger(cmd)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(runCmd(), workerCmd(), allocIDCmd(), mcsCmd())

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func parseLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(logLevel)); err != nil {
		return l, fmt.Errorf("log-level: %w", err)
	}
	return l, nil
}

// setupLogger installs a text handler for the orchestrator and a JSON one
// for workers, whose stderr ends up in worker.log.
func setupLogger(cmd *cobra.Command) error {
	l, err := parseLevel()
	if err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: l}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cmd.Name() == "worker" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

func runCmd() *cobra.Command {
	var (
		cfgPath   string
		inProcess bool
		o         = config.Default()
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every combination of a sweep file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			overrideFlags(cmd, cfg, o)
			return run(cmd.Context(), cfg, inProcess)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&cfgPath, "config", "c", "", "sweep file (YAML)")
	f.IntVar(&o.Workers, "workers", o.Workers, "max worker processes at a time")
	f.IntVar(&o.Nice, "nice", o.Nice, "niceness applied to every worker [-20..19]")
	f.StringVar(&o.Out, "out", o.Out, "output root; runs go to <out>/<id>")
	f.StringVar(&o.BER, "ber", o.BER, "BER dataset (CSV)")
	f.StringVar(&o.MCSTable, "mcs-table", o.MCSTable, "MCS table (CSV) replacing the built-in one")
	f.BoolVar(&o.StoreRaw, "store-raw", o.StoreRaw, "keep per-MSDU generation and departure times")
	f.DurationVar(&o.Timeout, "timeout", o.Timeout, "bound on the whole run (0 = none)")
	f.DurationVar(&o.WorkerTimeout, "worker-timeout", o.WorkerTimeout, "bound on one worker (0 = none)")
	f.IntVar(&o.CheckpointEvery, "checkpoint-every", o.CheckpointEvery, "save the tables every N results")
	f.BoolVar(&o.XLSX, "xlsx", o.XLSX, "also write results.xlsx")
	f.BoolVar(&o.SQLite, "sqlite", o.SQLite, "also write results.db")
	f.BoolVar(&inProcess, "in-process", false, "run workers as goroutines (debugging)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

// overrideFlags copies the flags given on the command line over the file.
func overrideFlags(cmd *cobra.Command, cfg, o *config.Config) {
	set := func(name string, apply func()) {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
	set("workers", func() { cfg.Workers = o.Workers })
	set("nice", func() { cfg.Nice = o.Nice })
	set("out", func() { cfg.Out = o.Out })
	set("ber", func() { cfg.BER = o.BER })
	set("mcs-table", func() { cfg.MCSTable = o.MCSTable })
	set("store-raw", func() { cfg.StoreRaw = o.StoreRaw })
	set("timeout", func() { cfg.Timeout = o.Timeout })
	set("worker-timeout", func() { cfg.WorkerTimeout = o.WorkerTimeout })
	set("checkpoint-every", func() { cfg.CheckpointEvery = o.CheckpointEvery })
	set("xlsx", func() { cfg.XLSX = o.XLSX })
	set("sqlite", func() { cfg.SQLite = o.SQLite })
}

func run(ctx context.Context, cfg *config.Config, inProcess bool) error {
	level, err := parseLevel()
	if err != nil {
		return err
	}
	opts := []executor.Option{executor.WithLogger(slog.Default()), executor.WithWorkerLogLevel(level)}
	if inProcess {
		opts = append(opts, executor.WithRunner(&executor.InProcess{LogLevel: level}))
	}
	e, err := executor.New(cfg, opts...)
	if err != nil {
		return err
	}

	host, _ := os.Hostname()
	fmt.Printf(_console, host, runtime.NumCPU(), len(e.Combinations()), cfg.Workers, cfg.Nice,
		time.Now().Format("2006-01-02 15:04:05"))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rep, err := e.Run(ctx)
	if rep != nil {
		printReport(rep)
	}
	var inc *librarian.IncompleteError
	if errors.As(err, &inc) {
		slog.Error("missing results",
			"not_started", preview(inc.Missing.NotStarted),
			"not_finished", preview(inc.Missing.NotFinished),
		)
	}
	return err
}

func printReport(rep *executor.Report) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tDIR\tRESULTS\tEXITED\tFAILED\tPENDING\tELAPSED")
	fmt.Fprintln(tw, "---\t---\t-------\t------\t------\t-------\t-------")
	fmt.Fprintf(tw, "%04d\t%s\t%d/%d\t%d\t%d\t%d\t%s\n",
		rep.Run.ID, rep.Run.Dir, rep.Received, rep.Expected,
		rep.States[executor.Exited], rep.States[executor.Failed], rep.States[executor.Pending],
		rep.Elapsed.Round(time.Millisecond),
	)
	tw.Flush()
}

func preview(ids []int) string {
	const limit = 10
	if len(ids) <= limit {
		return fmt.Sprint(ids)
	}
	return fmt.Sprintf("%v... (%d)", ids[:limit], len(ids))
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "worker",
		Short:  "Run one combination: task JSON on stdin, result JSON on stdout",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executor.RunWorker(cmd.Context(), os.Stdin, os.Stdout, slog.Default())
		},
	}
}

func allocIDCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "alloc-id",
		Short: "Print the run id the next run under --out would get",
		RunE: func(cmd *cobra.Command, args []string) error {
			existing, err := plog.DirLister{Root: out}.List()
			if err != nil {
				return err
			}
			id, err := plog.AllocateRunID(existing)
			if err != nil {
				return err
			}
			fmt.Printf("%04d\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "log", "output root")
	return cmd
}

func mcsCmd() *cobra.Command {
	var (
		berPath, tablePath string
		ebn0, allowed      float64
	)
	cmd := &cobra.Command{
		Use:   "mcs",
		Short: "Show the MCS selected for an Eb/N0 and a BER bound",
		RunE: func(cmd *cobra.Command, args []string) error {
			task := executor.Task{BER: berPath, MCSTable: tablePath}
			curves, err := task.LoadCurves()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "MCS\tBITS/SYMBOL\tCODE RATE\tRATE (Mb/s)\tBER\tOK")
			fmt.Fprintln(tw, "---\t-----------\t---------\t-----------\t---\t--")
			for _, idx := range curves.Schemes() {
				m, err := curves.Table().Lookup(idx)
				if err != nil {
					return err
				}
				b, err := curves.BER(idx, ebn0)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%d\t%.3g\t%.0f\t%.3g\t%t\n", m.Label(), m.ModulationRate, m.CodeRate, m.RateMbps, b, b <= allowed)
			}
			tw.Flush()

			choice, err := curves.Select(ebn0, allowed)
			if errors.Is(err, ber.ErrNoQualifyingScheme) {
				fmt.Println("\nno qualifying scheme")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("\nselected MCS %s (%.0f Mb/s), BER %.3g\n",
				choice.MCS.Label(), choice.MCS.RateMbps, choice.BER)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&berPath, "ber", "", "BER dataset (CSV)")
	f.StringVar(&tablePath, "mcs-table", "", "MCS table (CSV)")
	f.Float64Var(&ebn0, "ebn0", 0, "Eb/N0 in dB")
	f.Float64Var(&allowed, "allowed", 1e-5, "highest acceptable BER")
	_ = cmd.MarkFlagRequired("ber")
	return cmd
}

const _console = `spsim - service-period MAC sweep engine

       Host: %s
       CPUs: %d
       Combinations: %d
       Workers: %d (nice %d)

Run started %s:

`
