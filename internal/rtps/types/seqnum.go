package types

// SequenceNumber is a signed 64-bit value, stored on the wire as a
// (high int32, low uint32) pair (§3). Valid user values are strictly
// positive and monotonically increasing per writer.
type SequenceNumber int64

// SequenceNumberUnknown is the reserved value {high: -1, low: 0}; it must
// never be assigned to a real change.
const SequenceNumberUnknown SequenceNumber = -1 << 32

// High returns the wire-format high 32 bits.
func (s SequenceNumber) High() int32 { return int32(int64(s) >> 32) }

// Low returns the wire-format low 32 bits.
func (s SequenceNumber) Low() uint32 { return uint32(int64(s) & 0xFFFFFFFF) }

// SequenceNumberFromParts reconstructs a SequenceNumber from its wire
// representation.
func SequenceNumberFromParts(high int32, low uint32) SequenceNumber {
	return SequenceNumber(int64(high)<<32 | int64(low))
}

// SequenceNumberRange is an inclusive [Min, Max] range of sequence
// numbers, as carried by HEARTBEAT first_sn/last_sn.
type SequenceNumberRange struct {
	Min SequenceNumber
	Max SequenceNumber
}

// Empty reports whether the range contains no sequence numbers.
func (r SequenceNumberRange) Empty() bool { return r.Max < r.Min }

// Contains reports whether sn falls within [Min, Max].
func (r SequenceNumberRange) Contains(sn SequenceNumber) bool {
	return !r.Empty() && sn >= r.Min && sn <= r.Max
}
