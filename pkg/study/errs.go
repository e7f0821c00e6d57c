package study

import "errors"

var (
	// ErrNegativeUserSP indicates a per-user DATA-SP too short for a single
	// data PPDU after the multi-user split.
	ErrNegativeUserSP = errors.New("study: negative user DATA-SP duration")

	// ErrBFTOverflow indicates more BFT-SPs in one BI than the BI can hold.
	ErrBFTOverflow = errors.New("study: BFT allocations exceed the beacon interval")

	// ErrBadMobility indicates a mobility token other than 0, s<m/s> or a<deg/s>.
	ErrBadMobility = errors.New("study: invalid mobility")

	// ErrInvalidCombination indicates a parameter combination failing validation.
	ErrInvalidCombination = errors.New("study: invalid combination")

	// ErrUnknownStrategy indicates a strategy name nothing is registered for.
	ErrUnknownStrategy = errors.New("study: unknown strategy")

	// ErrUnsupportedStrategy indicates a known strategy without an implementation.
	ErrUnsupportedStrategy = errors.New("study: unsupported strategy")
)
