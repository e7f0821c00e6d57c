package study

import (
	"math"
	"testing"

	"github.com/ja7ad/spsim/pkg/dmg"
	"github.com/ja7ad/spsim/pkg/duration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGenerator(t *testing.T) *duration.Generator {
	t.Helper()
	m, err := dmg.DefaultTable().Lookup(12)
	require.NoError(t, err)
	agg, err := duration.Aggregate(m, 1500, false, false)
	require.NoError(t, err)
	g, err := duration.New(duration.Config{
		BI:      dmg.DefaultBIDuration,
		SelfCTS: true,
		Ack:     true,
		Beamforming: duration.Beamforming{
			InitiatorAntennas: 1, InitiatorSectors: 16,
			ResponderAntennas: 1, ResponderSectors: 16,
			SLS: true,
		},
	}, m, 1e-6, agg)
	require.NoError(t, err)
	return g
}

func TestDataWindows_NoBFT(t *testing.T) {
	g := testGenerator(t)
	const bi = dmg.DefaultBIDuration

	w, err := DataWindows(g, bi, []int{0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, w, 2)

	assert.Equal(t, int64(43_441+6_000), w[0].Start)
	assert.Equal(t, int64(bi-6_000), w[0].End())
	assert.Equal(t, w[0].Start+bi, w[1].Start)
	assert.Equal(t, w[0].Duration, w[1].Duration)
}

func TestDataWindows_BFTCut(t *testing.T) {
	g := testGenerator(t)
	const bi = dmg.DefaultBIDuration

	w, err := DataWindows(g, bi, []int{1}, 1)
	require.NoError(t, err)
	require.Len(t, w, 2)

	assert.Equal(t, int64(45_623+6_000), w[0].Start)
	assert.Equal(t, int64(bi-6_000), w[1].End())
	gap := w[1].Start - w[0].End()
	assert.InDelta(t, float64(g.BFT()+2*g.GuardTime()), float64(gap), 2)
}

func TestDataWindows_Ordered(t *testing.T) {
	g := testGenerator(t)
	w, err := DataWindows(g, dmg.DefaultBIDuration, []int{3, 0, 5, 1}, 2)
	require.NoError(t, err)

	for i, s := range w {
		assert.Positive(t, s.Duration)
		if i > 0 {
			assert.Greater(t, s.Start, w[i-1].End(), "window %d overlaps", i)
		}
	}
}

func TestDataWindows_MultiUser(t *testing.T) {
	g := testGenerator(t)
	const bi = dmg.DefaultBIDuration

	single, err := DataWindows(g, bi, []int{0}, 1)
	require.NoError(t, err)
	shared, err := DataWindows(g, bi, []int{0}, 2)
	require.NoError(t, err)

	assert.Equal(t, single[0].Start, shared[0].Start)
	assert.InDelta(t, float64(single[0].Duration)/2-3_000, float64(shared[0].Duration), 1)

	_, err = DataWindows(g, bi, []int{0}, 5_000)
	assert.ErrorIs(t, err, ErrNegativeUserSP)
}

func TestDataWindows_BFTOverflow(t *testing.T) {
	g := testGenerator(t)
	const bi = dmg.DefaultBIDuration

	for _, bft := range [][]int{{0, 1_000}, {-1}, {math.MinInt}} {
		_, err := DataWindows(g, bi, bft, 1)
		assert.ErrorIs(t, err, ErrBFTOverflow, "%v", bft)
	}

	// as many as fit still yield windows
	n := int(float64(bi) / float64(g.BFT()+2*g.GuardTime()) / 2)
	_, err := DataWindows(g, bi, []int{n}, 1)
	assert.NoError(t, err)
}
