package parameterlist

import (
	"testing"

	"github.com/marmos91/dittofs/internal/rtps/cdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyParameterListIsFourBytes(t *testing.T) {
	w := cdr.NewWriter(cdr.LittleEndian)
	require.NoError(t, Encode(w, ParameterList{}))
	assert.Len(t, w.Bytes(), 4)
}

func TestRoundTripPreservesOrderAndUnknownPIDs(t *testing.T) {
	pl := ParameterList{Parameters: []Parameter{
		{PID: PIDTopicName, Value: []byte("Square\x00")},
		{PID: PID(0x7FFE), Value: []byte{1, 2, 3, 4}},
	}}
	w := cdr.NewWriter(cdr.LittleEndian)
	require.NoError(t, Encode(w, pl))

	r := cdr.NewReader(w.Bytes(), cdr.LittleEndian)
	got, err := Decode(r)
	require.NoError(t, err)
	require.Len(t, got.Parameters, 2)
	assert.Equal(t, PIDTopicName, got.Parameters[0].PID)
	assert.Equal(t, PID(0x7FFE), got.Parameters[1].PID)
	assert.Equal(t, []byte{1, 2, 3, 4}, got.Parameters[1].Value)
}

func TestMustUnderstandBit(t *testing.T) {
	assert.False(t, PIDTopicName.IsMustUnderstand())
	assert.True(t, PID(0x8000).IsMustUnderstand())
}

func TestDecodeMissingSentinelFails(t *testing.T) {
	w := cdr.NewWriter(cdr.LittleEndian)
	require.NoError(t, w.WriteUint16(uint16(PIDTopicName)))
	require.NoError(t, w.WriteUint16(4))
	require.NoError(t, w.WriteOctets([]byte{1, 2, 3, 4}))

	r := cdr.NewReader(w.Bytes(), cdr.LittleEndian)
	_, err := Decode(r)
	assert.Error(t, err)
}

func TestGetAndSet(t *testing.T) {
	var pl ParameterList
	pl.Set(PIDTopicName, []byte("Square"))
	v, ok := pl.Get(PIDTopicName)
	require.True(t, ok)
	assert.Equal(t, []byte("Square"), v)

	pl.Set(PIDTopicName, []byte("Circle"))
	v, ok = pl.Get(PIDTopicName)
	require.True(t, ok)
	assert.Equal(t, []byte("Circle"), v)
}
