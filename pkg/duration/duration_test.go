package duration

import (
	"math/rand/v2"
	"testing"

	"github.com/ja7ad/spsim/pkg/dmg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardTime(t *testing.T) {
	// 2000 ns drift + SIFS + 100 ns, rounded up to 6 µs
	assert.Equal(t, int64(6_000), GuardTime(dmg.DefaultBIDuration))
	assert.Equal(t, int64(4_000), GuardTime(0))
}

func TestControlDurations(t *testing.T) {
	assert.Equal(t, int64(43_441), BTI(1))
	assert.Equal(t, int64(50_859), BTI(3))
	assert.Equal(t, int64(14_059), CTS())
	assert.Equal(t, int64(13_186), ACK(1))
	assert.Equal(t, int64(18_859), ACK(4))
}

func TestBFT(t *testing.T) {
	base := Beamforming{InitiatorAntennas: 1, InitiatorSectors: 16, ResponderAntennas: 1, ResponderSectors: 16}

	cases := []struct {
		name string
		mod  func(b *Beamforming)
		want int64
	}{
		{"brp only", func(b *Beamforming) {}, 67_773},
		{"sls initiator txss", func(b *Beamforming) { b.SLS = true }, 414_864},
		{"sls with responder txss", func(b *Beamforming) { b.SLS = true; b.ResponderTXSS = true }, 666_119},
		{"two ue antennas", func(b *Beamforming) {
			b.SLS = true
			b.InitiatorAntennas = 2
			b.InitiatorSectors = 8
			b.ResponderSectors = 8
		}, 418_432},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := base
			tc.mod(&b)
			got, err := BFT(b)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := BFT(Beamforming{})
	assert.ErrorIs(t, err, ErrBadBeamforming)
}

func TestAggregate(t *testing.T) {
	m12, err := dmg.DefaultTable().Lookup(12)
	require.NoError(t, err)

	a, err := Aggregate(m12, 1500, false, false)
	require.NoError(t, err)
	assert.Equal(t, 1, a.PerPPDU())
	assert.EqualValues(t, 1516, a.PSDULength)

	a, err = Aggregate(m12, 1500, true, true)
	require.NoError(t, err)
	assert.Equal(t, 5, a.AMSDUSubframes)
	assert.Equal(t, 34, a.AMPDUSubframes)
	assert.EqualValues(t, 7526, a.MPDULength)
	assert.Equal(t, 170, a.PerPPDU())

	_, err = Aggregate(m12, 0, false, false)
	assert.ErrorIs(t, err, ErrBadMSDU)
	_, err = Aggregate(m12, 9000, false, false)
	assert.ErrorIs(t, err, ErrBadMSDU)
}

func newGenerator(t *testing.T, cfg Config, msduAgg, mpduAgg bool) *Generator {
	t.Helper()
	m12, err := dmg.DefaultTable().Lookup(12)
	require.NoError(t, err)
	agg, err := Aggregate(m12, 1500, msduAgg, mpduAgg)
	require.NoError(t, err)
	cfg.BI = dmg.DefaultBIDuration
	cfg.Beamforming = Beamforming{InitiatorAntennas: 1, InitiatorSectors: 16, ResponderAntennas: 1, ResponderSectors: 16, SLS: true}
	g, err := New(cfg, m12, 1e-5, agg)
	require.NoError(t, err)
	return g
}

func TestGenerator_Slot(t *testing.T) {
	g := newGenerator(t, Config{SelfCTS: true, Ack: true}, false, false)

	assert.Equal(t, int64(6_000), g.GuardTime())
	assert.Equal(t, int64(414_864), g.BFT())
	assert.Equal(t, int64(5_418), g.DataPPDU())
	assert.Equal(t, int64(14_059+dmg.SIFS+5_418), g.FirstDeliveryOffset())
	assert.Equal(t, int64(22_477+dmg.DIFS+dmg.SIFS+13_186), g.DataWithOverhead())

	b, err := g.Next(1, nil)
	require.NoError(t, err)
	assert.Equal(t, g.DataWithOverhead(), b.Slot)
	assert.False(t, b.Retransmit)

	plain := newGenerator(t, Config{}, false, false)
	assert.Equal(t, int64(5_418), plain.FirstDeliveryOffset())
	assert.Equal(t, int64(5_418+dmg.DIFS), plain.DataWithOverhead())
}

func TestGenerator_PartialBurst(t *testing.T) {
	g := newGenerator(t, Config{Ack: true}, true, true)

	full, err := g.Next(170, nil)
	require.NoError(t, err)
	part, err := g.Next(6, nil)
	require.NoError(t, err)

	assert.Less(t, part.Slot, full.Slot)
	assert.Less(t, part.Delivery, full.Delivery)
	// two A-MSDUs in the A-MPDU
	assert.EqualValues(t, 2*(4+7526)+2, part.PSDU)

	_, err = g.Next(0, nil)
	assert.ErrorIs(t, err, ErrBadBurst)
	_, err = g.Next(171, nil)
	assert.ErrorIs(t, err, ErrBadBurst)
}

func TestGenerator_Deterministic(t *testing.T) {
	draw := func(seed uint64) []bool {
		g := newGenerator(t, Config{ErrorModel: true}, true, false)
		rng := rand.New(rand.NewPCG(seed, seed))
		out := make([]bool, 200)
		for i := range out {
			b, err := g.Next(5, rng)
			require.NoError(t, err)
			out[i] = b.Retransmit
		}
		return out
	}

	a, b := draw(7), draw(7)
	assert.Equal(t, a, b)
	assert.Contains(t, a, true)
	assert.Contains(t, a, false)
}

func TestErrorProbability(t *testing.T) {
	assert.Zero(t, ErrorProbability(0, 1000))
	assert.Equal(t, 1.0, ErrorProbability(1, 1000))
	assert.InDelta(t, 0.07688402286, ErrorProbability(1e-5, 1000), 1e-9)
	assert.Less(t, ErrorProbability(1e-6, 1000), ErrorProbability(1e-6, 2000))
}
