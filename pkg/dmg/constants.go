// Package dmg holds the IEEE 802.11ad (directional multi-gigabit) PHY and MAC
// constants, the single-carrier MCS table and the frame-size arithmetic the
// duration generator builds on. All times are nanoseconds, sizes are symbols
// or octets as noted.
package dmg

// PPDU framing, in symbols (SC PHY).
const (
	PPDUPreambleLen = 3328
	PPDUHeaderLen   = 1024
	PPDUGILen       = 64

	ControlPPDUPreambleLen = 7552
	ControlPPDUHeaderLen   = 40

	// LCWD is the max number of data bits in an MCS 0 codeword.
	LCWD = 168

	// AGCAndTRNLen is the AGC+TRN field length for a single sector.
	AGCAndTRNLen = 5_312
)

// SymbolRateGHz is the SC chip rate.
const SymbolRateGHz = 1.76

// NCBPB is the number of coded bits per block for BPSK, QPSK, 16QAM, 64QAM.
var NCBPB = [4]int{448, 896, 1792, 2688}

// Interframe spaces and related timings (ns).
const (
	SIFS = 3_000
	DIFS = 13_000
	GI   = 3_000

	// TxTimeSSW is the airtime of one SSW frame (24 octets, control mode).
	TxTimeSSW = 14_641
	SBIFS     = 1_000
	MBIFS     = 3 * SIFS
	LBIFS     = TxTimeSSW + 2*SBIFS
)

// Size and time limits.
const (
	MaxMSDULength  = 7920
	MaxAMSDULength = 7935
	MaxPSDULength  = 262_143
	MaxPPDUTime    = 2_000_000
)

// UEToAPDistanceM is the radius of the circle users move on around the AP.
const UEToAPDistanceM = 5

// Beacon interval defaults.
const (
	DefaultBIDuration = 100_000_000
	DefaultObservedBI = 10
)
