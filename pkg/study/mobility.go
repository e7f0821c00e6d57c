package study

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/ja7ad/spsim/pkg/dmg"
)

// Mobility is a parsed mobility token.
//   - "0": static user
//   - "s<v>": user moving on a circle around the AP at v m/s
//   - "a<w>": user turning at w deg/s
type Mobility struct {
	Kind  byte // 0, 's' or 'a'
	Value float64
}

func ParseMobility(tok string) (Mobility, error) {
	if tok == "0" || tok == "" {
		return Mobility{}, nil
	}
	if tok[0] != 's' && tok[0] != 'a' {
		return Mobility{}, fmt.Errorf("%w: %q", ErrBadMobility, tok)
	}
	v, err := strconv.ParseFloat(tok[1:], 64)
	if err != nil || !(v > 0) || math.IsInf(v, 0) {
		return Mobility{}, fmt.Errorf("%w: %q", ErrBadMobility, tok)
	}
	return Mobility{Kind: tok[0], Value: v}, nil
}

// BFTPeriod returns the beamforming period, ns: the time the user needs to
// cross one antenna sector. A static user gets a period longer than the
// observed window.
func (m Mobility) BFTPeriod(sectors, observedBI int, bi int64) int64 {
	width := 360 / float64(sectors)
	switch m.Kind {
	case 's':
		arc := math.Pi * dmg.UEToAPDistanceM * width * 1e9 / 180
		return int64(arc / m.Value)
	case 'a':
		return int64(width * 1e9 / m.Value)
	}
	return int64(observedBI)*bi + 1
}

// BFTAllocations distributes BFT-SPs over the observed beacon intervals.
// Per user the allocations per BI follow bi/period with the fractional part
// carried over; users are out of sync, each shifted by one BI. When the
// period exceeds the observed window a single BFT is placed in a random BI.
func BFTAllocations(observedBI int, bi, period int64, users int, rng *rand.Rand) []int {
	base := make([]int, observedBI)
	if period > int64(observedBI)*bi {
		base[rng.IntN(observedBI)] = 1
	} else {
		perBI := float64(bi) / float64(period)
		carry := 0.0
		for i := range base {
			carry += perBI
			base[i] = int(carry)
			carry = math.Mod(carry, 1)
		}
	}

	out := make([]int, observedBI)
	for u := 0; u < users; u++ {
		for i := range out {
			out[i] += base[((i-u)%observedBI+observedBI)%observedBI]
		}
	}
	return out
}
