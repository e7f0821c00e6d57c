package dmg

import "errors"

var (
	// ErrUnknownMCS indicates that an MCS index is absent from the table.
	ErrUnknownMCS = errors.New("dmg: unknown mcs")

	// ErrAMSDUTooLong indicates an A-MSDU exceeding MaxAMSDULength.
	ErrAMSDUTooLong = errors.New("dmg: a-msdu exceeds max length")

	// ErrBadModulation indicates a modulation rate outside {1, 2, 4, 6}.
	ErrBadModulation = errors.New("dmg: unsupported modulation rate")

	// ErrMalformedTable indicates an MCS table CSV that could not be parsed.
	ErrMalformedTable = errors.New("dmg: malformed mcs table")
)
