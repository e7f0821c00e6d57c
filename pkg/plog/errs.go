package plog

import "errors"

var (
	// ErrRunDirectoryExhausted indicates that every run id in [0, MaxRunID]
	// is taken under the output root.
	ErrRunDirectoryExhausted = errors.New("plog: run directory exhausted")

	// ErrShortRaw indicates raw time arrays of different lengths.
	ErrShortRaw = errors.New("plog: generation and departure arrays differ in length")
)
