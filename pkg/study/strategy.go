package study

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/ja7ad/spsim/pkg/ber"
	"github.com/ja7ad/spsim/pkg/duration"
)

// Strategy names accepted in a combination.
const (
	FastName        = "fast"
	DescriptiveName = "descriptive"
)

// MaxRetries is the retry limit for a PPDU sent with acknowledgement.
const MaxRetries = 7

// Plan is everything INIT derives for a combination. Strategies read it and
// own the two random streams for the duration of Simulate.
type Plan struct {
	Combination Combination
	Choice      ber.Choice
	Generator   *duration.Generator
	BFT         []int  // BFT-SPs per observed BI
	Windows     []Slot // the user's DATA-SPs, ordered
	Horizon     int64

	Arrivals *rand.Rand
	Errors   *rand.Rand
}

// Trace is the raw output of a strategy. Generated and Departed are
// index-aligned per delivered MSDU.
type Trace struct {
	Generated []int64
	Departed  []int64
	Lost      int
	Backlog   int
	Bits      uint64
	Elapsed   int64

	// Exit is set when the strategy stopped on an early termination condition.
	Exit string
}

// Strategy simulates the MSDU lifecycle of one combination.
type Strategy interface {
	Name() string
	Simulate(ctx context.Context, p *Plan) (Trace, error)
}

// StrategyFor resolves a strategy by name.
func StrategyFor(name string) (Strategy, error) {
	switch name {
	case FastName, "":
		return Fast{}, nil
	case DescriptiveName:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedStrategy, name)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}
