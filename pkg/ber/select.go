package ber

import (
	"fmt"
	"math"

	"github.com/ja7ad/spsim/pkg/dmg"
)

// Choice is the outcome of a successful selection.
type Choice struct {
	MCS dmg.MCS
	// BER is the interpolated, unrounded bit error rate of MCS.
	BER float64
}

// Select returns the scheme with the highest data rate whose BER at ebn0 is
// at most allowed. BERs are first rounded to as many decimals as allowed has
// leading zeros (|int(log10(allowed))|) so sampling noise below the target's
// precision does not exclude a scheme. Rate ties go to the higher index.
func (c *Curves) Select(ebn0, allowed float64) (Choice, error) {
	if !(allowed > 0 && allowed < 1) {
		return Choice{}, fmt.Errorf("%w: %g", ErrBadAllowed, allowed)
	}
	digits := int(math.Abs(math.Log10(allowed)) + 1e-9)

	var (
		best  Choice
		found bool
	)
	for _, idx := range c.schemes {
		v, err := c.BER(idx, ebn0)
		if err != nil {
			return Choice{}, err
		}
		if round(v, digits) > allowed {
			continue
		}
		m, err := c.table.Lookup(idx)
		if err != nil {
			return Choice{}, err
		}
		if !found || m.RateMbps > best.MCS.RateMbps ||
			(m.RateMbps == best.MCS.RateMbps && m.Index > best.MCS.Index) {
			best = Choice{MCS: m, BER: v}
			found = true
		}
	}
	if !found {
		return Choice{}, fmt.Errorf("%w: ber %g unattainable at %g dB", ErrNoQualifyingScheme, allowed, ebn0)
	}
	return best, nil
}

func round(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}
