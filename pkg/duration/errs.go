package duration

import "errors"

var (
	// ErrBadBeamforming indicates zero antennas or sectors in the BFT setup.
	ErrBadBeamforming = errors.New("duration: antennas and sectors must be positive")

	// ErrBadBurst indicates a PPDU asked to carry zero MSDUs or more than the
	// aggregation allows.
	ErrBadBurst = errors.New("duration: msdu count outside aggregation bounds")

	// ErrBadMSDU indicates an MSDU length of zero or above the 802.11 maximum.
	ErrBadMSDU = errors.New("duration: invalid msdu length")
)
