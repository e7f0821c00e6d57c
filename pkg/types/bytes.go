package types

import "fmt"

// Bytes is a uint64 wrapper representing a frame or payload size in octets.
type Bytes uint64

// ToBytes converts a raw octet count.
func ToBytes(v uint64) Bytes { return Bytes(v) }

// Bits returns the size in bits.
func (b Bytes) Bits() uint64 { return uint64(b) * 8 }

// Int returns the size as an int, convenient for frame-size arithmetic.
func (b Bytes) Int() int { return int(b) }

// Humanized returns a human-readable string with automatic unit (B, KB, MB, GB).
func (b Bytes) Humanized() string {
	v := float64(b)
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.2f GB", v/(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.2f MB", v/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.2f KB", v/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// Gbps converts a bit count delivered over a span of nanoseconds into Gbit/s.
// One bit per nanosecond is exactly one Gbit/s.
func Gbps(bits uint64, spanNs float64) float64 {
	if spanNs <= 0 {
		return 0
	}
	return float64(bits) / spanNs
}
