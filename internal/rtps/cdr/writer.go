package cdr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Writer accumulates a CDR-encoded payload. The zero value is not usable;
// construct one with NewWriter.
type Writer struct {
	buf   bytes.Buffer
	order Endianness
}

// NewWriter returns a Writer that encodes primitives using the given
// byte order.
func NewWriter(order Endianness) *Writer {
	return &Writer{order: order}
}

func (w *Writer) byteOrder() binary.ByteOrder {
	if w.order == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Len returns the number of octets written so far.
func (w *Writer) Len() int { return w.buf.Len() }

// Bytes returns the accumulated, unpadded buffer contents.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// Align pads the buffer with zero octets until Len() is a multiple of n.
// n must be 1, 2, 4, or 8 per the CDR alignment rules.
func (w *Writer) Align(n int) {
	pad := (n - w.buf.Len()%n) % n
	for i := 0; i < pad; i++ {
		w.buf.WriteByte(0)
	}
}

// WriteOctet writes a single unaligned octet.
func (w *Writer) WriteOctet(v byte) error {
	return w.buf.WriteByte(v)
}

// WriteOctets writes a raw, unaligned octet sequence with no length
// prefix, used for fields whose length the caller already knows (e.g.
// a fixed-size GUID).
func (w *Writer) WriteOctets(v []byte) error {
	_, err := w.buf.Write(v)
	return err
}

// WriteBool encodes a boolean as a single octet, 0 or 1.
func (w *Writer) WriteBool(v bool) error {
	if v {
		return w.WriteOctet(1)
	}
	return w.WriteOctet(0)
}

// WriteUint16 aligns to 2 octets and writes an unsigned 16-bit value.
func (w *Writer) WriteUint16(v uint16) error {
	w.Align(2)
	if err := binary.Write(&w.buf, w.byteOrder(), v); err != nil {
		return fmt.Errorf("cdr: write uint16: %w", err)
	}
	return nil
}

// WriteInt16 aligns to 2 octets and writes a signed 16-bit value.
func (w *Writer) WriteInt16(v int16) error {
	return w.WriteUint16(uint16(v))
}

// WriteUint32 aligns to 4 octets and writes an unsigned 32-bit value.
func (w *Writer) WriteUint32(v uint32) error {
	w.Align(4)
	if err := binary.Write(&w.buf, w.byteOrder(), v); err != nil {
		return fmt.Errorf("cdr: write uint32: %w", err)
	}
	return nil
}

// WriteInt32 aligns to 4 octets and writes a signed 32-bit value.
func (w *Writer) WriteInt32(v int32) error {
	return w.WriteUint32(uint32(v))
}

// WriteUint64 aligns to 8 octets and writes an unsigned 64-bit value.
func (w *Writer) WriteUint64(v uint64) error {
	w.Align(8)
	if err := binary.Write(&w.buf, w.byteOrder(), v); err != nil {
		return fmt.Errorf("cdr: write uint64: %w", err)
	}
	return nil
}

// WriteInt64 aligns to 8 octets and writes a signed 64-bit value.
func (w *Writer) WriteInt64(v int64) error {
	return w.WriteUint64(uint64(v))
}

// WriteFloat32 aligns to 4 octets and writes an IEEE-754 single.
func (w *Writer) WriteFloat32(v float32) error {
	return w.WriteUint32(math.Float32bits(v))
}

// WriteFloat64 aligns to 8 octets and writes an IEEE-754 double.
func (w *Writer) WriteFloat64(v float64) error {
	return w.WriteUint64(math.Float64bits(v))
}

// WriteString writes a CDR string: a uint32 octet count (including the
// trailing NUL) followed by the characters and the NUL itself. No padding
// follows since the element size is 1.
func (w *Writer) WriteString(s string) error {
	if err := w.WriteUint32(uint32(len(s) + 1)); err != nil {
		return err
	}
	if err := w.WriteOctets([]byte(s)); err != nil {
		return err
	}
	return w.WriteOctet(0)
}

// WriteOpaque writes a CDR octet sequence: a uint32 length followed by
// the raw bytes, used for serialized payloads and unknown parameter
// values.
func (w *Writer) WriteOpaque(b []byte) error {
	if err := w.WriteUint32(uint32(len(b))); err != nil {
		return err
	}
	return w.WriteOctets(b)
}
