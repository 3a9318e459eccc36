package dynamictype

import (
	"testing"

	"github.com/marmos91/dittofs/internal/rtps/cdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shapeType() *DynamicType {
	return &DynamicType{
		Kind: KindStruct,
		Name: "ShapeType",
		Members: []MemberDescriptor{
			{Name: "color", Type: &DynamicType{Kind: KindString}, IsKey: true, Index: 0},
			{Name: "x", Type: &DynamicType{Kind: KindInt32}, Index: 1},
			{Name: "y", Type: &DynamicType{Kind: KindInt32}, Index: 2},
			{Name: "shapesize", Type: &DynamicType{Kind: KindInt32}, Index: 3},
		},
	}
}

func TestStructRoundTrip(t *testing.T) {
	typ := shapeType()
	dd := NewDynamicData(typ)
	dd.Set("color", "BLUE")
	dd.Set("x", int32(10))
	dd.Set("y", int32(10))
	dd.Set("shapesize", int32(30))

	w := cdr.NewWriter(cdr.BigEndian)
	require.NoError(t, EncodeStruct(w, dd))

	r := cdr.NewReader(w.Bytes(), cdr.BigEndian)
	got, err := DecodeStruct(r, typ)
	require.NoError(t, err)

	color, _ := got.Get("color")
	x, _ := got.Get("x")
	assert.Equal(t, "BLUE", color)
	assert.Equal(t, int32(10), x)
}

func TestKeyHashShortKeyIsLeftPadded(t *testing.T) {
	typ := shapeType()
	dd := NewDynamicData(typ)
	dd.Set("color", "RED")
	dd.Set("x", int32(1))
	dd.Set("y", int32(1))
	dd.Set("shapesize", int32(1))

	handle, err := KeyHash(dd)
	require.NoError(t, err)
	// "RED" key member CDR-encodes to far fewer than 16 octets, so the
	// handle must be left-padded rather than hashed.
	assert.NotZero(t, handle)
	// Big-endian length 4 (3 characters plus NUL), then "RED\x00".
	var want [16]byte
	copy(want[8:], []byte{0, 0, 0, 4, 'R', 'E', 'D', 0})
	assert.Equal(t, want, [16]byte(handle))
}

func TestKeyHashDeterministic(t *testing.T) {
	typ := shapeType()
	dd1 := NewDynamicData(typ)
	dd1.Set("color", "GREEN")
	dd1.Set("x", int32(0))
	dd1.Set("y", int32(0))
	dd1.Set("shapesize", int32(0))

	dd2 := NewDynamicData(typ)
	dd2.Set("color", "GREEN")
	dd2.Set("x", int32(99))
	dd2.Set("y", int32(99))
	dd2.Set("shapesize", int32(99))

	h1, err := KeyHash(dd1)
	require.NoError(t, err)
	h2, err := KeyHash(dd2)
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "instance handle only depends on key members")
}

func TestKeyHashDifferentKeysDiffer(t *testing.T) {
	typ := shapeType()
	dd1 := NewDynamicData(typ)
	dd1.Set("color", "GREEN")
	dd1.Set("x", int32(0))
	dd1.Set("y", int32(0))
	dd1.Set("shapesize", int32(0))

	dd2 := NewDynamicData(typ)
	dd2.Set("color", "BLUE")
	dd2.Set("x", int32(0))
	dd2.Set("y", int32(0))
	dd2.Set("shapesize", int32(0))

	h1, _ := KeyHash(dd1)
	h2, _ := KeyHash(dd2)
	assert.NotEqual(t, h1, h2)
}
