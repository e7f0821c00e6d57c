package ber

import "errors"

var (
	// ErrNoQualifyingScheme indicates that every scheme's BER exceeds the
	// allowed maximum at the requested Eb/N0.
	ErrNoQualifyingScheme = errors.New("ber: no qualifying scheme")

	// ErrMalformedCurves indicates a BER CSV that could not be parsed.
	ErrMalformedCurves = errors.New("ber: malformed curves")

	// ErrUnknownScheme indicates a lookup for a scheme without a curve.
	ErrUnknownScheme = errors.New("ber: no curve for scheme")

	// ErrBadAllowed indicates an allowed BER outside (0, 1).
	ErrBadAllowed = errors.New("ber: allowed ber must be in (0, 1)")
)
