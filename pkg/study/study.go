// Package study runs the in-out study of one parameter combination: it picks
// the MCS, derives the slot layout of the observed beacon intervals and
// simulates when every MSDU is generated and delivered.
package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/ja7ad/spsim/pkg/ber"
	"github.com/ja7ad/spsim/pkg/duration"
	"github.com/ja7ad/spsim/pkg/stat"
	"github.com/ja7ad/spsim/pkg/types"
)

// State of a study. Completed, EarlyExit and Errored are terminal.
type State uint8

const (
	StateInit State = iota
	StateRunning
	StateCompleted
	StateEarlyExit
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateRunning:
		return "RUNNING"
	case StateCompleted:
		return "COMPLETED"
	case StateEarlyExit:
		return "EARLY_EXIT"
	case StateErrored:
		return "ERRORED"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Random stream ids. Separate streams keep arrivals identical when only the
// BER dataset changes.
const (
	streamBFT uint64 = iota + 1
	streamArrivals
	streamErrors
)

// Study is single-use: New, then Run once.
type Study struct {
	c      Combination
	curves *ber.Curves
	log    *slog.Logger
	state  State
}

// New prepares a study, filling unset knobs with their defaults. A nil
// logger means slog.Default.
func New(c Combination, curves *ber.Curves, logger *slog.Logger) *Study {
	if logger == nil {
		logger = slog.Default()
	}
	c = c.WithDefaults()
	return &Study{
		c:      c,
		curves: curves,
		log:    logger.With("pid", c.ProcessID),
	}
}

func (s *Study) State() State { return s.state }

// Run executes the study. It never panics; failures are reported through
// the result status.
func (s *Study) Run(ctx context.Context) (res Result) {
	res = Result{ProcessID: s.c.ProcessID, Combination: s.c, Begin: time.Now()}
	defer func() {
		if r := recover(); r != nil {
			s.fail(&res, fmt.Errorf("panic: %v", r))
		}
		res.End = time.Now()
		s.log.Debug("study finished", "state", s.state, "status", res.Status.String())
	}()

	plan, err := s.init()
	if err != nil {
		if errors.Is(err, ber.ErrNoQualifyingScheme) {
			s.state = StateEarlyExit
			res.Status = EarlyExit(err.Error())
			return res
		}
		s.fail(&res, err)
		return res
	}
	mcs := plan.Choice.MCS.Index
	res.MCS = &mcs

	strategy, err := StrategyFor(s.c.Strategy)
	if err != nil {
		s.fail(&res, err)
		return res
	}

	s.state = StateRunning
	s.log.Debug("study running",
		"strategy", strategy.Name(),
		"mcs", plan.Choice.MCS.Label(),
		"windows", len(plan.Windows),
		"slot_ns", plan.Generator.DataWithOverhead(),
	)
	tr, err := strategy.Simulate(ctx, plan)
	if err != nil {
		s.fail(&res, err)
		return res
	}
	s.finish(&res, tr)
	return res
}

func (s *Study) init() (*Plan, error) {
	c := s.c
	if err := c.Validate(); err != nil {
		return nil, err
	}
	choice, err := s.curves.Select(c.EbN0, c.AllowedBER)
	if err != nil {
		return nil, err
	}

	agg, err := duration.Aggregate(choice.MCS, types.Bytes(c.MSDULength), c.MSDUMaxAgg, c.MPDUMaxAgg)
	if err != nil {
		return nil, err
	}
	gen, err := duration.New(duration.Config{
		BI:      c.BI,
		SelfCTS: c.SelfCTS,
		Ack:     c.Ack,
		Beamforming: duration.Beamforming{
			InitiatorAntennas: c.UEAntennas,
			InitiatorSectors:  c.AntennaSectors,
			ResponderAntennas: 1,
			ResponderSectors:  c.AntennaSectors,
			SLS:               c.EnableSLS,
			ResponderTXSS:     c.EnableRTXSS,
		},
		ErrorModel: c.ErrorModel,
	}, choice.MCS, choice.BER, agg)
	if err != nil {
		return nil, err
	}

	mob, err := ParseMobility(c.Mobility)
	if err != nil {
		return nil, err
	}
	period := mob.BFTPeriod(c.AntennaSectors, c.ObservedBI, c.BI)
	bft := BFTAllocations(c.ObservedBI, c.BI, period, c.Users, newRand(c.Seed, streamBFT))

	windows, err := DataWindows(gen, c.BI, bft, c.Users)
	if err != nil {
		return nil, err
	}

	return &Plan{
		Combination: c,
		Choice:      choice,
		Generator:   gen,
		BFT:         bft,
		Windows:     windows,
		Horizon:     int64(c.ObservedBI) * c.BI,
		Arrivals:    newRand(c.Seed, streamArrivals),
		Errors:      newRand(c.Seed, streamErrors),
	}, nil
}

func newRand(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

func (s *Study) finish(res *Result, tr Trace) {
	lat := make([]int64, len(tr.Departed))
	for i, d := range tr.Departed {
		lat[i] = d - tr.Generated[i]
		if lat[i] < 0 {
			s.fail(res, fmt.Errorf("msdu %d departs %d ns before it is generated", i, -lat[i]))
			return
		}
	}

	res.Lost = tr.Lost
	res.Backlog = tr.Backlog
	if len(lat) > 0 {
		sum := stat.Describe(lat)
		res.Latency = &sum
	}
	thr := types.Gbps(tr.Bits, float64(tr.Elapsed))
	res.Throughput = &thr
	if s.c.StoreRaw {
		res.Generated = tr.Generated
		res.Departed = tr.Departed
	}

	switch {
	case tr.Exit != "":
		s.state = StateEarlyExit
		res.Status = EarlyExit(tr.Exit)
	case len(lat) == 0:
		s.state = StateEarlyExit
		res.Status = EarlyExit("no msdu delivered")
	default:
		s.state = StateCompleted
		res.Status = Success()
	}
}

func (s *Study) fail(res *Result, err error) {
	s.state = StateErrored
	res.Status = Error(err.Error())
	res.MCS = nil
	res.Latency = nil
	res.Throughput = nil
	res.Generated = nil
	res.Departed = nil
	s.log.Warn("study errored", "err", err)
}
