// Package discovery implements C6: SPDP participant announce/detect,
// SEDP endpoint announce/detect, and the endpoint matching rule that
// pairs a local reader/writer with a remote writer/reader by topic,
// type, and compatible QoS (§4.5).
package discovery

import (
	"fmt"

	"github.com/marmos91/dittofs/internal/rtps/cdr"
	"github.com/marmos91/dittofs/internal/rtps/types"
)

// encodeGUID/decodeGUID, encodeLocator/decodeLocator, and
// encodeDuration/decodeDuration serialize the corresponding wire types
// to/from a single PL_CDR parameter value (§4.1 CDR type mapping).

func encodeGUID(g types.GUID) []byte {
	w := cdr.NewWriter(cdr.BigEndian)
	_ = w.WriteOctets(g.Prefix[:])
	_ = w.WriteOctets(g.Entity.EntityKey[:])
	_ = w.WriteOctet(byte(g.Entity.Kind))
	return w.Bytes()
}

func decodeGUID(v []byte) (types.GUID, error) {
	if len(v) < 16 {
		return types.GUID{}, fmt.Errorf("discovery: GUID parameter too short (%d octets)", len(v))
	}
	var g types.GUID
	copy(g.Prefix[:], v[0:12])
	copy(g.Entity.EntityKey[:], v[12:15])
	g.Entity.Kind = types.EntityKind(v[15])
	return g, nil
}

func encodeLocator(l types.Locator) []byte {
	w := cdr.NewWriter(cdr.BigEndian)
	_ = w.WriteInt32(int32(l.Kind))
	_ = w.WriteUint32(l.Port)
	_ = w.WriteOctets(l.Address[:])
	return w.Bytes()
}

func decodeLocator(v []byte) (types.Locator, error) {
	r := cdr.NewReader(v, cdr.BigEndian)
	kind, err := r.ReadInt32()
	if err != nil {
		return types.Locator{}, fmt.Errorf("discovery: locator kind: %w", err)
	}
	port, err := r.ReadUint32()
	if err != nil {
		return types.Locator{}, fmt.Errorf("discovery: locator port: %w", err)
	}
	addr, err := r.ReadOctets(16)
	if err != nil {
		return types.Locator{}, fmt.Errorf("discovery: locator address: %w", err)
	}
	var loc types.Locator
	loc.Kind = types.LocatorKind(kind)
	loc.Port = port
	copy(loc.Address[:], addr)
	return loc, nil
}

func encodeDuration(d types.Duration) []byte {
	w := cdr.NewWriter(cdr.BigEndian)
	_ = w.WriteInt32(d.Seconds)
	_ = w.WriteUint32(d.Fraction)
	return w.Bytes()
}

func decodeDuration(v []byte) (types.Duration, error) {
	r := cdr.NewReader(v, cdr.BigEndian)
	secs, err := r.ReadInt32()
	if err != nil {
		return types.Duration{}, fmt.Errorf("discovery: duration seconds: %w", err)
	}
	frac, err := r.ReadUint32()
	if err != nil {
		return types.Duration{}, fmt.Errorf("discovery: duration fraction: %w", err)
	}
	return types.Duration{Seconds: secs, Fraction: frac}, nil
}

func encodeU16(v uint16) []byte {
	w := cdr.NewWriter(cdr.BigEndian)
	_ = w.WriteUint16(v)
	return w.Bytes()
}

func decodeU16(v []byte) (uint16, error) {
	r := cdr.NewReader(v, cdr.BigEndian)
	return r.ReadUint16()
}

func encodeU32(v uint32) []byte {
	w := cdr.NewWriter(cdr.BigEndian)
	_ = w.WriteUint32(v)
	return w.Bytes()
}

func decodeU32(v []byte) (uint32, error) {
	r := cdr.NewReader(v, cdr.BigEndian)
	return r.ReadUint32()
}

func encodeString(s string) []byte {
	w := cdr.NewWriter(cdr.BigEndian)
	_ = w.WriteString(s)
	return w.Bytes()
}

func decodeString(v []byte) (string, error) {
	r := cdr.NewReader(v, cdr.BigEndian)
	return r.ReadString()
}
