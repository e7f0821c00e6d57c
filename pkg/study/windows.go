package study

import (
	"fmt"
	"math"

	"github.com/ja7ad/spsim/pkg/duration"
)

// DataWindows returns the user's DATA-SP windows over all observed BIs, in
// order. Each BI starts with the BTI and a guard time and ends with a guard
// time; bft[i] BFT-SPs are spread evenly over the remainder, each padded by a
// guard time on both sides. With several users every DATA-SP is shared
// equally and the user keeps the leading share minus half a guard time.
func DataWindows(g *duration.Generator, bi int64, bft []int, users int) ([]Slot, error) {
	gt := float64(g.GuardTime())
	half := float64(g.BFT())/2 + gt
	first := g.FirstDeliveryOffset()

	perCount := map[int][]Slot{}
	var out []Slot
	for idx, n := range bft {
		rel, ok := perCount[n]
		if !ok {
			if n < 0 || float64(n)*2*half > float64(bi) {
				return nil, fmt.Errorf("%w: %d in a %d ns BI", ErrBFTOverflow, n, bi)
			}
			begin := float64(g.BTI(n+1)) + gt
			end := float64(bi) - gt
			if begin+float64(n)*2*half > end {
				return nil, fmt.Errorf("%w: %d in a %d ns BI", ErrBFTOverflow, n, bi)
			}
			step := (end - begin) / float64(n+1)

			edges := make([]float64, 0, 2*n+2)
			edges = append(edges, begin)
			for k := 1; k <= n; k++ {
				cut := begin + float64(k)*step
				edges = append(edges, cut-half, cut+half)
			}
			edges = append(edges, end)

			rel = rel[:0]
			for k := 0; k < len(edges); k += 2 {
				start, stop := edges[k], edges[k+1]
				if users > 1 {
					stop -= (stop-start)*(1-1/float64(users)) + gt/2
					if stop < start+float64(first) {
						return nil, ErrNegativeUserSP
					}
				}
				s, e := int64(math.Ceil(start)), int64(math.Floor(stop))
				if e <= s {
					continue
				}
				rel = append(rel, Slot{Start: s, Duration: e - s})
			}
			perCount[n] = rel
		}
		off := int64(idx) * bi
		for _, w := range rel {
			out = append(out, Slot{Start: w.Start + off, Duration: w.Duration})
		}
	}
	return out, nil
}
