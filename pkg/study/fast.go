package study

import (
	"context"
	"fmt"
	"math"

	"github.com/ja7ad/spsim/pkg/duration"
)

// Fast simulates only the data exchanges inside the user's DATA-SPs and keeps
// per-MSDU times, no slot graph.
type Fast struct{}

func (Fast) Name() string { return FastName }

func (f Fast) Simulate(ctx context.Context, p *Plan) (Trace, error) {
	if p.Combination.Arrival == ArrivalSaturated {
		return f.saturated(ctx, p)
	}
	return f.queued(ctx, p)
}

// saturated keeps the queue full: every opportunity carries a full PPDU.
// Generation times are spread evenly over the elapsed time afterwards and
// shifted so the smallest latency is the CTS+PPDU time.
func (Fast) saturated(ctx context.Context, p *Plan) (Trace, error) {
	c := p.Combination
	g := p.Generator
	per := g.Aggregation().PerPPDU()
	full, err := g.Exchange(per)
	if err != nil {
		return Trace{}, err
	}
	msduBits := uint64(c.MSDULength) * 8

	tr := Trace{Elapsed: p.Horizon}
	retries := 0
windows:
	for _, w := range p.Windows {
		if err := ctx.Err(); err != nil {
			return tr, err
		}
		for t := w.Start; t+full.Delivery < w.End(); t += full.Slot {
			b, err := g.Next(per, p.Errors)
			if err != nil {
				return tr, err
			}
			if b.Retransmit {
				if c.Ack && retries < MaxRetries {
					retries++
					continue
				}
				tr.Lost += per
				retries = 0
				continue
			}
			retries = 0

			n := per
			if c.MaxMSDU > 0 {
				n = min(n, c.MaxMSDU-len(tr.Departed))
			}
			for range n {
				tr.Departed = append(tr.Departed, t+b.Delivery)
			}
			tr.Bits += uint64(n) * msduBits
			if c.MaxMSDU > 0 && len(tr.Departed) >= c.MaxMSDU {
				tr.Elapsed = t + b.Delivery
				break windows
			}
		}
	}

	tr.Generated = spreadGeneration(tr.Departed, tr.Elapsed, full.Delivery)
	return tr, nil
}

func spreadGeneration(dep []int64, span, offset int64) []int64 {
	n := len(dep)
	if n == 0 {
		return nil
	}
	gen := make([]float64, n)
	shift := 0.0
	for i := range gen {
		gen[i] = float64(i) * float64(span) / float64(n)
		shift = math.Min(shift, float64(dep[i])-gen[i])
	}
	out := make([]int64, n)
	for i, v := range gen {
		out[i] = int64(math.Round(v + shift - float64(offset)))
	}
	return out
}

// capacity is the number of MSDUs the windows carry at saturation without
// errors.
func capacity(p *Plan, full duration.Burst) int {
	per := p.Generator.Aggregation().PerPPDU()
	total := 0
	for _, w := range p.Windows {
		span := w.End() - w.Start - full.Delivery
		if span <= 0 {
			continue
		}
		total += int((span + full.Slot - 1) / full.Slot)
	}
	return total * per
}

func arrivals(p *Plan, interval float64) []int64 {
	var out []int64
	switch p.Combination.Arrival {
	case ArrivalPeriodic:
		for k := 0; ; k++ {
			t := float64(k) * interval
			if t >= float64(p.Horizon) {
				break
			}
			out = append(out, int64(t))
		}
	case ArrivalPoisson:
		t := p.Arrivals.ExpFloat64() * interval
		for t < float64(p.Horizon) {
			out = append(out, int64(t))
			t += p.Arrivals.ExpFloat64() * interval
		}
	}
	return out
}

// queued runs a single-server FIFO: MSDUs arrive per the arrival process and
// wait until the channel is free inside a DATA-SP.
func (Fast) queued(ctx context.Context, p *Plan) (Trace, error) {
	c := p.Combination
	g := p.Generator
	per := g.Aggregation().PerPPDU()
	full, err := g.Exchange(per)
	if err != nil {
		return Trace{}, err
	}

	tr := Trace{Elapsed: p.Horizon}
	capMSDU := capacity(p, full)
	if capMSDU == 0 {
		tr.Exit = "no airtime for a data PPDU"
		return tr, nil
	}
	arr := arrivals(p, float64(p.Horizon)/float64(capMSDU)/c.Load)
	msduBits := uint64(c.MSDULength) * 8

	var (
		head, admitted, retries int
		busy                    int64
	)
	stop := func(reason string, t int64) {
		tr.Exit = reason
		tr.Elapsed = t
	}

windows:
	for _, w := range p.Windows {
		if err := ctx.Err(); err != nil {
			return tr, err
		}
		t := max(w.Start, busy)
		for {
			for admitted < len(arr) && arr[admitted] <= t {
				admitted++
			}
			if c.MaxBacklog > 0 && admitted-head > c.MaxBacklog {
				stop(fmt.Sprintf("backlog exceeded %d msdu", c.MaxBacklog), t)
				break windows
			}
			if admitted == head {
				if admitted == len(arr) {
					break windows
				}
				if arr[admitted] >= w.End() {
					break
				}
				t = arr[admitted]
				continue
			}

			n := min(admitted-head, per)
			if c.MaxMSDU > 0 {
				n = min(n, c.MaxMSDU-len(tr.Departed))
			}
			b, err := g.Exchange(n)
			if err != nil {
				return tr, err
			}
			if t+b.Delivery >= w.End() {
				break
			}
			if b, err = g.Next(n, p.Errors); err != nil {
				return tr, err
			}

			if b.Retransmit {
				t += b.Slot
				if c.Ack && retries < MaxRetries {
					retries++
					continue
				}
				tr.Lost += n
				head += n
				retries = 0
				continue
			}

			dep := t + b.Delivery
			for i := head; i < head+n; i++ {
				tr.Generated = append(tr.Generated, arr[i])
				tr.Departed = append(tr.Departed, dep)
			}
			head += n
			retries = 0
			tr.Bits += uint64(n) * msduBits
			t += b.Slot

			if c.MaxMSDU > 0 && len(tr.Departed) >= c.MaxMSDU {
				stop("", dep)
				break windows
			}
		}
		busy = t
	}

	if tr.Elapsed == p.Horizon {
		admitted = len(arr)
	}
	tr.Backlog = admitted - head
	return tr, nil
}
