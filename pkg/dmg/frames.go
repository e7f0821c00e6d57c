package dmg

import (
	"fmt"
	"math"

	"github.com/ja7ad/spsim/pkg/types"
)

// ControlPPDUSymbols returns the PPDU size in symbols of a control-mode frame
// carrying payload octets: 3/4 code rate with shortening, Ga32 spreading
// (802.11ad 20.11.3 TXTIME).
func ControlPPDUSymbols(payload types.Bytes) float64 {
	p := float64(payload)
	ncw := 1 + math.Ceil((p-6)*8/LCWD)
	parity := 168 * ncw
	data := (p + 5) * 8 // header octets included
	useful := (parity + data) * 32
	return ControlPPDUPreambleLen + ControlPPDUHeaderLen + useful
}

// DataPPDUSymbols returns the SC PPDU size in symbols for a PSDU at the given
// modulation rate and code rate.
func DataPPDUSymbols(psdu types.Bytes, modulationRate int, codeRate float64) (float64, error) {
	slot := modulationRate / 2
	if modulationRate <= 0 || slot >= len(NCBPB) {
		return 0, fmt.Errorf("%w: %d", ErrBadModulation, modulationRate)
	}
	ncw := float64(psdu.Bits()) / (672 * codeRate)
	nblks := math.Ceil(ncw * 672 / float64(NCBPB[slot]))
	return PPDUPreambleLen + PPDUHeaderLen + nblks*512 + PPDUGILen, nil
}

// SymbolsToNs converts a symbol count into airtime, rounded to the nearest ns.
func SymbolsToNs(symbols float64) int64 {
	return int64(math.Round(symbols / SymbolRateGHz))
}

// AMSDULength returns the length of a short A-MSDU made of n equal
// subframes. n <= 1 means no aggregation.
func AMSDULength(n int, subframe types.Bytes) (types.Bytes, error) {
	if n <= 1 {
		return subframe, nil
	}
	pad := int(subframe) % 4
	l := n*(2+int(subframe)) + (n-1)*pad
	if l > MaxAMSDULength {
		return 0, fmt.Errorf("%w: %d (max %d)", ErrAMSDUTooLong, l, MaxAMSDULength)
	}
	return types.Bytes(l), nil
}

// AMPDULength returns the length of an A-MPDU made of n equal subframes.
func AMPDULength(n int, subframe types.Bytes) types.Bytes {
	if n <= 1 {
		return subframe
	}
	pad := int(subframe) % 4
	return types.Bytes(n*(4+int(subframe)) + (n-1)*pad)
}

// MPDULength adds the mandatory MAC header and QoS control to an (A-)MSDU.
func MPDULength(msdu types.Bytes) types.Bytes { return msdu + 16 }

// MaxAMPDUSubframes is the number of A-MPDU subframes that fit both the
// PSDU length limit and the 2 ms PPDU time limit at the given MCS.
func MaxAMPDUSubframes(m MCS, subframe types.Bytes) int {
	// preamble + header + first GI take ~2509 ns
	avail := MaxPPDUTime - 2_509
	symbols := int(float64(avail) * SymbolRateGHz)
	octets := int(float64(symbols) * 448 / 512 * float64(m.ModulationRate) * m.CodeRate / 8)
	if octets > MaxPSDULength {
		octets = MaxPSDULength
	}
	pad := int(subframe) % 4
	return octets / (4 + int(subframe) + pad)
}

// AMSDUSubframes is the number of MSDUs packed in one A-MSDU when maximal
// aggregation is requested.
func AMSDUSubframes(msdu types.Bytes, maxAgg bool) int {
	if !maxAgg || msdu == 0 {
		return 1
	}
	n := MaxAMSDULength / int(msdu)
	if n < 1 {
		return 1
	}
	return n
}
