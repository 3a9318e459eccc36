// Package message implements the RTPS message and submessage wire format
// (§4.1): the 20-octet message header, the 4-octet submessage header, and
// encode/decode for every submessage kind DDSI-RTPS §9 defines.
package message

import (
	"errors"
	"fmt"

	"github.com/marmos91/dittofs/internal/rtps/cdr"
	"github.com/marmos91/dittofs/internal/rtps/types"
)

// ErrInvalidData is returned whenever decoding encounters a value the
// protocol forbids: a length that would overrun the buffer, an
// inconsistent octetsToInlineQos, or a malformed primitive. The codec
// never panics on attacker-controlled input; every read checks the
// remaining length first.
var ErrInvalidData = errors.New("message: invalid data")

// ProtocolVersion is the {major, minor} RTPS protocol version.
type ProtocolVersion struct{ Major, Minor byte }

// ProtocolVersion24 is the version this codec implements.
var ProtocolVersion24 = ProtocolVersion{Major: 2, Minor: 4}

// VendorId identifies the implementation that produced a message.
type VendorId [2]byte

// VendorIdThisImplementation is an unregistered vendor ID reserved for
// this implementation.
var VendorIdThisImplementation = VendorId{0x01, 0x21}

var magic = [4]byte{'R', 'T', 'P', 'S'}

// Header is the fixed 20-octet RTPS message header.
type Header struct {
	Version    ProtocolVersion
	Vendor     VendorId
	GuidPrefix types.GuidPrefix
}

// Encode writes the header. CDR alignment is irrelevant here since every
// field is octet-sized or already aligned at offset 0.
func (h Header) Encode(w *cdr.Writer) error {
	if err := w.WriteOctets(magic[:]); err != nil {
		return err
	}
	if err := w.WriteOctet(h.Version.Major); err != nil {
		return err
	}
	if err := w.WriteOctet(h.Version.Minor); err != nil {
		return err
	}
	if err := w.WriteOctets(h.Vendor[:]); err != nil {
		return err
	}
	return w.WriteOctets(h.GuidPrefix[:])
}

// DecodeHeader reads and validates the 20-octet message header.
func DecodeHeader(r *cdr.Reader) (Header, error) {
	magicBytes, err := r.ReadOctets(4)
	if err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if string(magicBytes) != string(magic[:]) {
		return Header{}, fmt.Errorf("%w: bad magic %q", ErrInvalidData, magicBytes)
	}
	major, err := r.ReadOctet()
	if err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	minor, err := r.ReadOctet()
	if err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	vendorBytes, err := r.ReadOctets(2)
	if err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	prefixBytes, err := r.ReadOctets(12)
	if err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	var h Header
	h.Version = ProtocolVersion{Major: major, Minor: minor}
	copy(h.Vendor[:], vendorBytes)
	copy(h.GuidPrefix[:], prefixBytes)
	return h, nil
}
