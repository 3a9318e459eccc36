package dds

import (
	"fmt"
	"reflect"

	"github.com/marmos91/dittofs/internal/rtps/dynamictype"
)

// structTypeSupport bridges a plain Go struct and dynamictype.TypeSupport
// via reflection, the same tag-driven approach encoding/json uses to map
// Go values onto a wire form — no example repo in this corpus ships a
// Go-struct-to-DynamicType mapper, so this one piece of dds stays on
// reflect rather than reaching for a third-party struct-mapping library.
//
// Field mapping is driven by a `dds:"key"` struct tag; every exported
// field becomes one DynamicType member, in declaration order, using its
// Go field name as the DDS member name.
type structTypeSupport struct {
	typ     *dynamictype.DynamicType
	goType  reflect.Type
	goKinds map[int]reflect.Kind // field index -> original Go kind, for int/byte round-tripping
}

// NewStructTypeSupport builds a dynamictype.TypeSupport for typeName from
// sample, a pointer to or value of the Go struct that will flow through
// Write/Read/Take. Supported field kinds are bool, byte, int16, uint16,
// int32, uint32, int64, uint64, float32, float64, and string; mark key
// fields with `dds:"key"`.
func NewStructTypeSupport(typeName string, sample any) (dynamictype.TypeSupport, error) {
	t := reflect.TypeOf(sample)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("dds: NewStructTypeSupport: sample must be a struct, got %s", t.Kind())
	}

	dt := &dynamictype.DynamicType{Kind: dynamictype.KindStruct, Name: typeName}
	goKinds := make(map[int]reflect.Kind)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		kind, err := fieldKind(f.Type)
		if err != nil {
			return nil, fmt.Errorf("dds: field %q: %w", f.Name, err)
		}
		dt.Members = append(dt.Members, dynamictype.MemberDescriptor{
			Name:     f.Name,
			MemberID: uint32(i),
			Type:     &dynamictype.DynamicType{Kind: kind},
			IsKey:    f.Tag.Get("dds") == "key",
			Index:    i,
		})
		goKinds[i] = f.Type.Kind()
	}

	return &structTypeSupport{typ: dt, goType: t, goKinds: goKinds}, nil
}

func fieldKind(t reflect.Type) (dynamictype.TypeKind, error) {
	switch t.Kind() {
	case reflect.Bool:
		return dynamictype.KindBoolean, nil
	case reflect.Uint8:
		return dynamictype.KindByte, nil
	case reflect.Int16:
		return dynamictype.KindInt16, nil
	case reflect.Uint16:
		return dynamictype.KindUint16, nil
	case reflect.Int32, reflect.Int:
		return dynamictype.KindInt32, nil
	case reflect.Uint32:
		return dynamictype.KindUint32, nil
	case reflect.Int64:
		return dynamictype.KindInt64, nil
	case reflect.Uint64:
		return dynamictype.KindUint64, nil
	case reflect.Float32:
		return dynamictype.KindFloat32, nil
	case reflect.Float64:
		return dynamictype.KindFloat64, nil
	case reflect.String:
		return dynamictype.KindString, nil
	default:
		return 0, fmt.Errorf("unsupported field kind %s", t.Kind())
	}
}

// GetType implements dynamictype.TypeSupport.
func (s *structTypeSupport) GetType() *dynamictype.DynamicType { return s.typ }

// ToDynamicData implements dynamictype.TypeSupport, converting a struct
// value (or pointer to one) of s.goType into DynamicData.
func (s *structTypeSupport) ToDynamicData(value any) (*dynamictype.DynamicData, error) {
	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Type() != s.goType {
		return nil, fmt.Errorf("dds: ToDynamicData: expected %s, got %s", s.goType, v.Type())
	}

	dd := dynamictype.NewDynamicData(s.typ)
	for _, m := range s.typ.Members {
		dd.Set(m.Name, convertFromGo(s.goKinds[m.Index], v.Field(m.Index)))
	}
	return dd, nil
}

// convertFromGo narrows Go's wider built-in int/uint to the fixed-width
// CDR type dynamictype.encodeValue expects for kind.
func convertFromGo(goKind reflect.Kind, fv reflect.Value) any {
	switch goKind {
	case reflect.Uint8:
		return byte(fv.Uint())
	case reflect.Int:
		return int32(fv.Int())
	default:
		return fv.Interface()
	}
}

// FromDynamicData implements dynamictype.TypeSupport, producing a new
// value of s.goType (returned as a pointer) populated from data.
func (s *structTypeSupport) FromDynamicData(data *dynamictype.DynamicData) (any, error) {
	out := reflect.New(s.goType).Elem()
	for _, m := range s.typ.Members {
		v, ok := data.Get(m.Name)
		if !ok {
			continue
		}
		fv := out.Field(m.Index)
		switch s.goKinds[m.Index] {
		case reflect.Uint8:
			fv.SetUint(uint64(v.(byte)))
		case reflect.Int:
			fv.SetInt(int64(v.(int32)))
		default:
			fv.Set(reflect.ValueOf(v))
		}
	}
	return out.Addr().Interface(), nil
}
