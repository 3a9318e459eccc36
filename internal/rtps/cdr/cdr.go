// Package cdr implements the Common Data Representation encoding rules
// DDSI-RTPS uses on the wire (CDR and PL_CDR, OMG formal/02-06-51 §15.3).
// Unlike XDR, CDR primitives align to their own size (1/2/4/8 octets)
// relative to the start of the encapsulated payload rather than always to
// a 4-octet boundary, and the byte order is selected per-message by the
// submessage's endianness flag instead of being fixed big-endian.
package cdr

import "errors"

// ErrShortBuffer is returned by Reader methods when fewer octets remain
// than the value being decoded requires.
var ErrShortBuffer = errors.New("cdr: short buffer")

// ErrStringNotTerminated is returned when a CDR string's length octet
// count includes no trailing NUL.
var ErrStringNotTerminated = errors.New("cdr: string missing NUL terminator")

// Endianness selects the byte order a Writer or Reader uses for
// multi-octet primitives, mirroring the RTPS submessage E flag.
type Endianness bool

const (
	BigEndian    Endianness = false
	LittleEndian Endianness = true
)
