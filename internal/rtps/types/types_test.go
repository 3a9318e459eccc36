package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSequenceNumberWireRoundTrip(t *testing.T) {
	sn := SequenceNumber(0x1122334455667788)
	got := SequenceNumberFromParts(sn.High(), sn.Low())
	assert.Equal(t, sn, got)
}

func TestSequenceNumberUnknownNeverValid(t *testing.T) {
	assert.Equal(t, int32(-1), SequenceNumberUnknown.High())
	assert.Equal(t, uint32(0), SequenceNumberUnknown.Low())
}

func TestSequenceNumberRangeEmpty(t *testing.T) {
	r := SequenceNumberRange{Min: 5, Max: 3}
	assert.True(t, r.Empty())
	assert.False(t, r.Contains(4))
}

func TestEntityIdBuiltinBit(t *testing.T) {
	assert.True(t, EntityIdSPDPBuiltinParticipantWriter.IsBuiltin())
	assert.False(t, EntityId{Kind: EntityKindUserWriterNoKey}.IsBuiltin())
}

func TestGUIDUnknown(t *testing.T) {
	assert.True(t, GUID{}.Unknown())
	g := GUID{Prefix: GuidPrefix{1}, Entity: EntityIdParticipant}
	assert.False(t, g.Unknown())
}

func TestDurationRoundTrip(t *testing.T) {
	d := 3*time.Second + 250*time.Millisecond
	wire := DurationFromDuration(d)
	back := wire.ToDuration()
	assert.InDelta(t, d, back, float64(time.Millisecond))
}

func TestPortFormulas(t *testing.T) {
	assert.Equal(t, uint32(7400), PortBuiltinMulticast(0))
	assert.Equal(t, uint32(7410), PortBuiltinUnicast(0, 0))
	assert.Equal(t, uint32(7411), PortUserUnicast(0, 0))
}
