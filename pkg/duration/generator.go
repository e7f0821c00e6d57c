package duration

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/ja7ad/spsim/pkg/dmg"
	"github.com/ja7ad/spsim/pkg/types"
)

// Aggregation is the frame layout used for every data PPDU.
type Aggregation struct {
	MSDULength     types.Bytes
	AMSDUSubframes int
	AMPDUSubframes int
	MPDULength     types.Bytes // (A-)MSDU + MAC header
	PSDULength     types.Bytes // full A-MPDU
}

// PerPPDU is the number of MSDUs a full PPDU carries.
func (a Aggregation) PerPPDU() int { return a.AMSDUSubframes * a.AMPDUSubframes }

// Aggregate derives the A-MSDU/A-MPDU layout for msdu-sized payloads sent at
// scheme m. A false flag disables that aggregation level.
func Aggregate(m dmg.MCS, msdu types.Bytes, msduMaxAgg, mpduMaxAgg bool) (Aggregation, error) {
	if msdu == 0 || msdu > dmg.MaxMSDULength {
		return Aggregation{}, fmt.Errorf("%w: %d", ErrBadMSDU, msdu)
	}
	a := Aggregation{MSDULength: msdu, AMPDUSubframes: 1}
	a.AMSDUSubframes = dmg.AMSDUSubframes(msdu, msduMaxAgg)

	amsdu, err := dmg.AMSDULength(a.AMSDUSubframes, msdu)
	if err != nil {
		return Aggregation{}, err
	}
	a.MPDULength = dmg.MPDULength(amsdu)
	if mpduMaxAgg {
		a.AMPDUSubframes = max(dmg.MaxAMPDUSubframes(m, a.MPDULength), 1)
	}
	a.PSDULength = dmg.AMPDULength(a.AMPDUSubframes, a.MPDULength)
	return a, nil
}

// Config carries the inputs of a Generator that do not depend on the
// chosen scheme.
type Config struct {
	BI          int64 // beacon interval, ns
	SelfCTS     bool
	Ack         bool
	Beamforming Beamforming

	// ErrorModel enables the stochastic retransmission outcome in Next.
	ErrorModel bool
}

// Burst is the outcome of one data exchange.
type Burst struct {
	MSDUs int
	PSDU  types.Bytes

	// Slot is the channel busy time: CTS+SIFS, PPDU, SIFS+ACK and DIFS.
	Slot int64
	// Delivery is the offset from slot start to the end of the data PPDU.
	Delivery int64
	// Retransmit reports a PPDU lost to bit errors.
	Retransmit bool
}

// Generator produces slot durations for one parameter combination. It is
// not safe for concurrent use.
type Generator struct {
	cfg Config
	mcs dmg.MCS
	ber float64
	agg Aggregation

	guard int64
	bft   int64
	cts   int64
	full  Burst
	cache map[int]Burst
}

// New builds a Generator for scheme m with bit error rate ber.
func New(cfg Config, m dmg.MCS, ber float64, agg Aggregation) (*Generator, error) {
	bft, err := BFT(cfg.Beamforming)
	if err != nil {
		return nil, err
	}
	g := &Generator{
		cfg:   cfg,
		mcs:   m,
		ber:   ber,
		agg:   agg,
		guard: GuardTime(cfg.BI),
		bft:   bft,
		cts:   CTS(),
		cache: make(map[int]Burst),
	}
	g.full, err = g.burst(agg.PerPPDU())
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Generator) GuardTime() int64 { return g.guard }
func (g *Generator) BFT() int64 { return g.bft }
func (g *Generator) CTS() int64 { return g.cts }
func (g *Generator) BTI(allocations int) int64 { return BTI(allocations) }
func (g *Generator) Aggregation() Aggregation { return g.agg }
func (g *Generator) MCS() dmg.MCS { return g.mcs }
func (g *Generator) BER() float64 { return g.ber }
func (g *Generator) DataPPDU() int64 { return g.full.Delivery - g.ctsOverhead() }
func (g *Generator) DataWithOverhead() int64 { return g.full.Slot }
func (g *Generator) FirstDeliveryOffset() int64 { return g.full.Delivery }

func (g *Generator) ctsOverhead() int64 {
	if g.cfg.SelfCTS {
		return g.cts + dmg.SIFS
	}
	return 0
}

// burst returns the deterministic part of a data exchange carrying n MSDUs.
// Partially filled A-MSDUs are sized as full ones.
func (g *Generator) burst(n int) (Burst, error) {
	if n < 1 || n > g.agg.PerPPDU() {
		return Burst{}, fmt.Errorf("%w: %d (max %d)", ErrBadBurst, n, g.agg.PerPPDU())
	}
	if b, ok := g.cache[n]; ok {
		return b, nil
	}

	amsdus := (n + g.agg.AMSDUSubframes - 1) / g.agg.AMSDUSubframes
	psdu := dmg.AMPDULength(amsdus, g.agg.MPDULength)
	symbols, err := dmg.DataPPDUSymbols(psdu, g.mcs.ModulationRate, g.mcs.CodeRate)
	if err != nil {
		return Burst{}, err
	}
	ppdu := dmg.SymbolsToNs(symbols)

	b := Burst{MSDUs: n, PSDU: psdu}
	b.Delivery = g.ctsOverhead() + ppdu
	b.Slot = b.Delivery + dmg.DIFS
	if g.cfg.Ack {
		b.Slot += dmg.SIFS + ACK(amsdus)
	}
	g.cache[n] = b
	return b, nil
}

// Exchange returns the deterministic part of an exchange carrying n MSDUs
// without drawing an error outcome.
func (g *Generator) Exchange(n int) (Burst, error) { return g.burst(n) }

// Next returns the exchange carrying n MSDUs. With the error model on it
// draws exactly one variate from rng, so a fixed seed and call sequence
// reproduce the outcomes.
func (g *Generator) Next(n int, rng *rand.Rand) (Burst, error) {
	b, err := g.burst(n)
	if err != nil {
		return Burst{}, err
	}
	if g.cfg.ErrorModel {
		b.Retransmit = rng.Float64() < ErrorProbability(g.ber, b.PSDU)
	}
	return b, nil
}

// ErrorProbability is the probability that at least one of the payload's
// bits is corrupted: 1 - (1-ber)^(8*payload).
func ErrorProbability(ber float64, payload types.Bytes) float64 {
	switch {
	case ber <= 0:
		return 0
	case ber >= 1:
		return 1
	}
	return -math.Expm1(float64(payload.Bits()) * math.Log1p(-ber))
}
