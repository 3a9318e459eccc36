package types

import "time"

// Duration is RTPS's wire duration: seconds (i32) plus fractional
// nanoseconds expressed as 1/2^32 fractions of a second (u32). DDS code
// works in time.Duration; these helpers convert at the wire boundary.
type Duration struct {
	Seconds  int32
	Fraction uint32
}

// DurationInfinite is the reserved "infinite" wire value.
var DurationInfinite = Duration{Seconds: 0x7FFFFFFF, Fraction: 0xFFFFFFFF}

// ToDuration converts to a time.Duration. DurationInfinite maps to the
// largest representable time.Duration.
func (d Duration) ToDuration() time.Duration {
	if d == DurationInfinite {
		return time.Duration(1<<63 - 1)
	}
	frac := time.Duration(d.Fraction) * time.Second / (1 << 32)
	return time.Duration(d.Seconds)*time.Second + frac
}

// DurationFromDuration converts a time.Duration to its wire form.
func DurationFromDuration(d time.Duration) Duration {
	secs := d / time.Second
	rem := d % time.Second
	frac := uint32((int64(rem) << 32) / int64(time.Second))
	return Duration{Seconds: int32(secs), Fraction: frac}
}
