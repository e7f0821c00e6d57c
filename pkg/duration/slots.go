// Package duration computes 802.11ad time slot durations: guard times, the
// beacon transmission interval, beamforming training and the data exchange
// (CTS-to-self, data PPDU, ACK). All values are nanoseconds.
package duration

import (
	"math"

	"github.com/ja7ad/spsim/pkg/dmg"
	"github.com/ja7ad/spsim/pkg/types"
)

// Beamforming describes the sector sweep and beam refinement setup. The
// station (UE) is the initiator, the AP is the responder.
type Beamforming struct {
	InitiatorAntennas int
	InitiatorSectors  int
	ResponderAntennas int
	ResponderSectors  int

	// SLS includes the sector level sweep in-band. BRP is always present.
	SLS bool
	// ResponderTXSS adds an AP transmit sector sweep to the SLS.
	ResponderTXSS bool
}

const (
	clockDriftPPM   = 20
	propagationNs   = 100
	brpSectorQuota  = 0.25
	minBRPSectors   = 2
	beaconFixed     = 66 + 2 + 34 // mandatory part, schedule element header, SSID
	beaconPerAlloc  = 15
	sswOctets       = 24
	sswFeedbackOcts = 28
	brpOctets       = 42
	ctsOctets       = 20
	ackOctets       = 14
	blockAckOctets  = 32
)

// GuardTime returns the guard time placed between allocations for a beacon
// interval of bi ns: worst-case 20 ppm drift, SIFS and propagation, rounded
// up to the microsecond. Allocations are assumed non-pseudo-static.
func GuardTime(bi int64) int64 {
	drift := float64(bi) * clockDriftPPM / 1e6
	us := math.Ceil((drift + dmg.SIFS + propagationNs) / 1e3)
	return int64(us) * 1_000
}

// BTI returns the beacon transmission interval for a beacon announcing
// allocations SP/CBAP allocations.
func BTI(allocations int) int64 {
	payload := beaconFixed + beaconPerAlloc*allocations
	return dmg.SymbolsToNs(dmg.ControlPPDUSymbols(types.Bytes(payload)))
}

// CTS returns the CTS-to-self airtime.
func CTS() int64 {
	return dmg.SymbolsToNs(dmg.ControlPPDUSymbols(ctsOctets))
}

// ACK returns the acknowledgement airtime: immediate ACK for a single MPDU,
// block ACK otherwise.
func ACK(mpdus int) int64 {
	octets := ackOctets
	if mpdus > 1 {
		octets = blockAckOctets
	}
	return dmg.SymbolsToNs(dmg.ControlPPDUSymbols(types.Bytes(octets)))
}

// BFT returns the duration of one beamforming training allocation.
func BFT(b Beamforming) (int64, error) {
	if b.InitiatorAntennas <= 0 || b.InitiatorSectors <= 0 ||
		b.ResponderAntennas <= 0 || b.ResponderSectors <= 0 {
		return 0, ErrBadBeamforming
	}
	iA, iS := float64(b.InitiatorAntennas), float64(b.InitiatorSectors)
	rA, rS := float64(b.ResponderAntennas), float64(b.ResponderSectors)

	total := 0.0
	if b.SLS {
		ssw := dmg.ControlPPDUSymbols(sswOctets)
		fbk := dmg.ControlPPDUSymbols(sswFeedbackOcts)

		iSlots := iA * iS * rA
		rSlots := 1.0 // feedback only
		if b.ResponderTXSS {
			rSlots = rA * rS * iA
		}
		ppdu := math.Round((ssw*(iSlots+rSlots) + 2*fbk) / dmg.SymbolRateGHz)

		idle := dmg.SBIFS*(iS-1)*iA*rA + dmg.LBIFS*iA*rA + dmg.MBIFS
		if b.ResponderTXSS {
			idle += dmg.SBIFS*(rS-1)*rA*iA + dmg.LBIFS*iA*rA
		}
		// switch to feedback, then to ACK
		turn := float64(dmg.MBIFS)
		if b.ResponderAntennas > 1 {
			turn = dmg.LBIFS
		}
		idle += 2 * turn

		total = ppdu + idle + dmg.SIFS
	}

	iBRP := max(math.Ceil(iS*brpSectorQuota), minBRPSectors)
	rBRP := max(math.Ceil(rS*brpSectorQuota), minBRPSectors)
	brp := dmg.ControlPPDUSymbols(brpOctets) + iBRP*dmg.AGCAndTRNLen +
		dmg.ControlPPDUSymbols(brpOctets) + rBRP*dmg.AGCAndTRNLen
	total += brp/dmg.SymbolRateGHz + dmg.SIFS

	return int64(math.Round(total)), nil
}
