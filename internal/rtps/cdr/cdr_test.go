package cdr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitivesRoundTripBigEndian(t *testing.T) {
	w := NewWriter(BigEndian)
	require.NoError(t, w.WriteOctet(0x7f))
	require.NoError(t, w.WriteBool(true))
	require.NoError(t, w.WriteUint16(0xbeef))
	require.NoError(t, w.WriteInt32(-12345))
	require.NoError(t, w.WriteUint64(0x1122334455667788))
	require.NoError(t, w.WriteFloat64(3.14159265))
	require.NoError(t, w.WriteString("shapes_demo"))
	require.NoError(t, w.WriteOpaque([]byte{1, 2, 3}))

	r := NewReader(w.Bytes(), BigEndian)
	oct, err := r.ReadOctet()
	require.NoError(t, err)
	assert.Equal(t, byte(0x7f), oct)

	b, err := r.ReadBool()
	require.NoError(t, err)
	assert.True(t, b)

	u16, err := r.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0xbeef), u16)

	i32, err := r.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-12345), i32)

	u64, err := r.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1122334455667788), u64)

	f64, err := r.ReadFloat64()
	require.NoError(t, err)
	assert.InDelta(t, 3.14159265, f64, 1e-9)

	s, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "shapes_demo", s)

	op, err := r.ReadOpaque()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, op)

	assert.Zero(t, r.Remaining())
}

func TestLittleEndianByteOrder(t *testing.T) {
	w := NewWriter(LittleEndian)
	require.NoError(t, w.WriteUint32(0x01020304))
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, w.Bytes())
}

func TestAlignmentInsertsPadding(t *testing.T) {
	w := NewWriter(BigEndian)
	require.NoError(t, w.WriteOctet(1))
	require.NoError(t, w.WriteUint32(42))
	// one octet written, 3 padding octets, then 4 octets of uint32
	assert.Equal(t, 8, w.Len())

	r := NewReader(w.Bytes(), BigEndian)
	_, err := r.ReadOctet()
	require.NoError(t, err)
	v, err := r.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(42), v)
}

func TestReadPastEndReturnsShortBuffer(t *testing.T) {
	r := NewReader([]byte{1, 2}, BigEndian)
	_, err := r.ReadUint32()
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestStringWithoutTerminatorIsRejected(t *testing.T) {
	w := NewWriter(BigEndian)
	require.NoError(t, w.WriteUint32(3))
	require.NoError(t, w.WriteOctets([]byte("abc")))
	r := NewReader(w.Bytes(), BigEndian)
	_, err := r.ReadString()
	assert.ErrorIs(t, err, ErrStringNotTerminated)
}
