// Package dynamictype implements C8: a run-time description of a user
// type's structure (DynamicType/MemberDescriptor), an instance of that
// description holding CDR-compatible values (DynamicData), and the
// compile-time counterpart (TypeSupport) that lets the same writer/
// reader engine serve both statically and dynamically typed
// applications (§4.7).
package dynamictype

import (
	"crypto/md5"
	"fmt"
	"sort"

	"github.com/marmos91/dittofs/internal/rtps/cdr"
	"github.com/marmos91/dittofs/internal/rtps/historycache"
)

// TypeKind enumerates the primitive and composite kinds a DynamicType
// can describe.
type TypeKind int

const (
	KindBoolean TypeKind = iota
	KindByte
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindString
	KindStruct
	KindSequence
	KindArray
)

// TryConstructKind governs how a decoder recovers from a value it
// cannot faithfully represent (e.g. an enum literal outside its known
// range). This core only implements Discard, the common default.
type TryConstructKind int

const (
	TryConstructDiscard TryConstructKind = iota
	TryConstructUseDefault
	TryConstructTrim
)

// MemberDescriptor describes one member of a structured DynamicType
// (§4.7).
type MemberDescriptor struct {
	Name             string
	MemberID         uint32
	Type             *DynamicType
	IsKey            bool
	IsOptional       bool
	IsMustUnderstand bool
	TryConstructKind TryConstructKind
	Index            int
}

// DynamicType describes a type as either a primitive kind, a
// sequence/array of a sub-type, a string, or a structure with ordered
// keyed members (§4.7).
type DynamicType struct {
	Kind    TypeKind
	Name    string   // struct type name, e.g. "ShapeType"
	Element *DynamicType // element type for KindSequence/KindArray
	Bound   int          // array length, or sequence upper bound (0 = unbounded)
	Members []MemberDescriptor
}

// KeyMembers returns this type's members with IsKey set, in declaration
// order, for a struct type.
func (t *DynamicType) KeyMembers() []MemberDescriptor {
	var keys []MemberDescriptor
	for _, m := range t.Members {
		if m.IsKey {
			keys = append(keys, m)
		}
	}
	return keys
}

// DynamicData is an instance of a DynamicType, holding values addressable
// by member name or index. Values for primitive kinds are stored as the
// matching Go type (bool, byte, int16, ..., string); struct members are
// nested *DynamicData; sequence/array members are []any.
type DynamicData struct {
	Type   *DynamicType
	Values map[string]any
}

// NewDynamicData constructs an empty DynamicData for typ.
func NewDynamicData(typ *DynamicType) *DynamicData {
	return &DynamicData{Type: typ, Values: make(map[string]any)}
}

// Get returns a member's value by name.
func (d *DynamicData) Get(name string) (any, bool) {
	v, ok := d.Values[name]
	return v, ok
}

// Set assigns a member's value by name.
func (d *DynamicData) Set(name string, value any) {
	d.Values[name] = value
}

// GetByIndex returns the value of the member at position idx in
// declaration order.
func (d *DynamicData) GetByIndex(idx int) (any, bool) {
	for _, m := range d.Type.Members {
		if m.Index == idx {
			return d.Get(m.Name)
		}
	}
	return nil, false
}

// TypeSupport is the compile-time counterpart of DynamicType: it
// describes a static Go type and round-trips between a value of that
// type and a DynamicData. Writers and readers may be created from either
// a TypeSupport or a DynamicType directly; internally the engine stores
// only the dynamic form (§4.7).
type TypeSupport interface {
	// GetType returns the DynamicType describing this TypeSupport's
	// static type.
	GetType() *DynamicType
	// ToDynamicData converts a static value (as `any`, concretely the
	// TypeSupport implementation's own type) to DynamicData.
	ToDynamicData(value any) (*DynamicData, error)
	// FromDynamicData converts DynamicData back to a static value.
	FromDynamicData(data *DynamicData) (any, error)
}

// encodeValue writes one member's value to w in declaration order,
// following the CDR type mapping of §4.1: primitives align to natural
// size, strings are u32-length-prefixed including the NUL, sequences are
// u32-length-prefixed, arrays are not.
func encodeValue(w *cdr.Writer, kind TypeKind, elem *DynamicType, bound int, value any) error {
	switch kind {
	case KindBoolean:
		return w.WriteBool(value.(bool))
	case KindByte:
		return w.WriteOctet(value.(byte))
	case KindInt16:
		return w.WriteInt16(value.(int16))
	case KindUint16:
		return w.WriteUint16(value.(uint16))
	case KindInt32:
		return w.WriteInt32(value.(int32))
	case KindUint32:
		return w.WriteUint32(value.(uint32))
	case KindInt64:
		return w.WriteInt64(value.(int64))
	case KindUint64:
		return w.WriteUint64(value.(uint64))
	case KindFloat32:
		return w.WriteFloat32(value.(float32))
	case KindFloat64:
		return w.WriteFloat64(value.(float64))
	case KindString:
		return w.WriteString(value.(string))
	case KindStruct:
		dd := value.(*DynamicData)
		return EncodeStruct(w, dd)
	case KindSequence:
		items := value.([]any)
		if err := w.WriteUint32(uint32(len(items))); err != nil {
			return err
		}
		for _, item := range items {
			if err := encodeValue(w, elem.Kind, elem.Element, elem.Bound, item); err != nil {
				return err
			}
		}
		return nil
	case KindArray:
		items := value.([]any)
		if len(items) != bound {
			return fmt.Errorf("dynamictype: array length %d does not match bound %d", len(items), bound)
		}
		for _, item := range items {
			if err := encodeValue(w, elem.Kind, elem.Element, elem.Bound, item); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("dynamictype: unknown type kind %d", kind)
	}
}

func decodeValue(r *cdr.Reader, kind TypeKind, elem *DynamicType, bound int) (any, error) {
	switch kind {
	case KindBoolean:
		return r.ReadBool()
	case KindByte:
		return r.ReadOctet()
	case KindInt16:
		return r.ReadInt16()
	case KindUint16:
		return r.ReadUint16()
	case KindInt32:
		return r.ReadInt32()
	case KindUint32:
		return r.ReadUint32()
	case KindInt64:
		return r.ReadInt64()
	case KindUint64:
		return r.ReadUint64()
	case KindFloat32:
		return r.ReadFloat32()
	case KindFloat64:
		return r.ReadFloat64()
	case KindString:
		return r.ReadString()
	case KindStruct:
		return DecodeStruct(r, elem)
	case KindSequence:
		n, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		const maxSequenceElements = 1 << 20
		if n > maxSequenceElements {
			return nil, fmt.Errorf("dynamictype: sequence length %d exceeds sanity bound", n)
		}
		items := make([]any, 0, n)
		for i := uint32(0); i < n; i++ {
			v, err := decodeValue(r, elem.Kind, elem.Element, elem.Bound)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	case KindArray:
		items := make([]any, 0, bound)
		for i := 0; i < bound; i++ {
			v, err := decodeValue(r, elem.Kind, elem.Element, elem.Bound)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	default:
		return nil, fmt.Errorf("dynamictype: unknown type kind %d", kind)
	}
}

// EncodeStruct serializes dd's members, in declaration order, as plain
// (non-PL) CDR — the representation used for a DATA submessage's
// SerializedPayload.
func EncodeStruct(w *cdr.Writer, dd *DynamicData) error {
	members := sortedMembers(dd.Type)
	for _, m := range members {
		v, ok := dd.Get(m.Name)
		if !ok {
			if m.IsOptional {
				continue
			}
			return fmt.Errorf("dynamictype: missing required member %q", m.Name)
		}
		if err := encodeValue(w, m.Type.Kind, m.Type.Element, m.Type.Bound, v); err != nil {
			return fmt.Errorf("dynamictype: encode member %q: %w", m.Name, err)
		}
	}
	return nil
}

// DecodeStruct parses a plain-CDR struct encoding into a fresh
// DynamicData of typ.
func DecodeStruct(r *cdr.Reader, typ *DynamicType) (*DynamicData, error) {
	dd := NewDynamicData(typ)
	for _, m := range sortedMembers(typ) {
		v, err := decodeValue(r, m.Type.Kind, m.Type.Element, m.Type.Bound)
		if err != nil {
			return nil, fmt.Errorf("dynamictype: decode member %q: %w", m.Name, err)
		}
		dd.Set(m.Name, v)
	}
	return dd, nil
}

func sortedMembers(typ *DynamicType) []MemberDescriptor {
	out := append([]MemberDescriptor(nil), typ.Members...)
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// KeyHash derives the 16-octet InstanceHandle for dd per §3/§4.7:
// concatenate, in big-endian CDR, the values of every is_key member in
// declaration order; left-pad to 16 octets if the result is no longer
// than that, otherwise take its MD5 digest.
func KeyHash(dd *DynamicData) (historycache.InstanceHandle, error) {
	keys := dd.Type.KeyMembers()
	sort.Slice(keys, func(i, j int) bool { return keys[i].Index < keys[j].Index })

	w := cdr.NewWriter(cdr.BigEndian)
	for _, m := range keys {
		v, ok := dd.Get(m.Name)
		if !ok {
			return historycache.InstanceHandle{}, fmt.Errorf("dynamictype: missing key member %q", m.Name)
		}
		if err := encodeValue(w, m.Type.Kind, m.Type.Element, m.Type.Bound, v); err != nil {
			return historycache.InstanceHandle{}, fmt.Errorf("dynamictype: hash key member %q: %w", m.Name, err)
		}
	}

	raw := w.Bytes()
	var handle historycache.InstanceHandle
	if len(raw) <= 16 {
		copy(handle[16-len(raw):], raw)
		return handle, nil
	}
	sum := md5.Sum(raw)
	copy(handle[:], sum[:])
	return handle, nil
}
