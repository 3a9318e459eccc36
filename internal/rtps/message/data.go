package message

import (
	"fmt"

	"github.com/marmos91/dittofs/internal/rtps/cdr"
	"github.com/marmos91/dittofs/internal/rtps/parameterlist"
	"github.com/marmos91/dittofs/internal/rtps/types"
)

// Data flags (§4.1).
const (
	flagDataInlineQos       = 0x02 // Q
	flagDataSerializedData  = 0x04 // D
	flagDataKey             = 0x08 // K
	flagDataNonStandardPayload = 0x10 // N, forwarded untouched per §9
)

// Data is the DATA submessage: it carries one serialized sample or key,
// optionally preceded by an inline ParameterList.
type Data struct {
	ReaderId   types.EntityId
	WriterId   types.EntityId
	WriterSN   types.SequenceNumber
	InlineQos  *parameterlist.ParameterList
	// SerializedPayload is the encapsulated sample or key octets,
	// present when the D or K flag is set.
	SerializedPayload []byte
	// IsKey distinguishes a serialized key (K flag) from serialized
	// data (D flag); both are mutually exclusive per the protocol.
	IsKey bool
	// NonStandardPayload carries the N flag untouched; its
	// interpretation is vendor-defined (§9 open question) and this
	// codec never inspects it.
	NonStandardPayload bool
}

func (d Data) flags(littleEndian bool) byte {
	var f byte
	if littleEndian {
		f |= flagEndianness
	}
	if d.InlineQos != nil {
		f |= flagDataInlineQos
	}
	if len(d.SerializedPayload) > 0 {
		if d.IsKey {
			f |= flagDataKey
		} else {
			f |= flagDataSerializedData
		}
	}
	if d.NonStandardPayload {
		f |= flagDataNonStandardPayload
	}
	return f
}

// EncodeData appends a DATA submessage to msg, little-endian per flags.
func EncodeData(msg *cdr.Writer, d Data, littleEndian bool) error {
	flags := d.flags(littleEndian)
	if err := encodeHeader(msg, KindData, flags, 0); err != nil {
		return err
	}
	lengthOffset := msg.Len() - 2

	payload := cdr.NewWriter(cdr.Endianness(littleEndian))
	if err := payload.WriteUint16(0); err != nil { // extra_flags
		return err
	}
	if err := payload.WriteUint16(16); err != nil { // octetsToInlineQos
		return err
	}
	if err := payload.WriteOctets(d.ReaderId.EntityKey[:]); err != nil {
		return err
	}
	if err := payload.WriteOctet(byte(d.ReaderId.Kind)); err != nil {
		return err
	}
	if err := payload.WriteOctets(d.WriterId.EntityKey[:]); err != nil {
		return err
	}
	if err := payload.WriteOctet(byte(d.WriterId.Kind)); err != nil {
		return err
	}
	if err := payload.WriteInt32(d.WriterSN.High()); err != nil {
		return err
	}
	if err := payload.WriteUint32(d.WriterSN.Low()); err != nil {
		return err
	}
	if d.InlineQos != nil {
		if err := parameterlist.Encode(payload, *d.InlineQos); err != nil {
			return err
		}
	}
	if len(d.SerializedPayload) > 0 {
		if err := payload.WriteOctets(d.SerializedPayload); err != nil {
			return err
		}
	}

	if err := msg.WriteOctets(payload.Bytes()); err != nil {
		return err
	}
	return backpatchLength(msg, lengthOffset, littleEndian)
}

// backpatchLength rewrites the 2-octet submessage_length field at
// lengthOffset now that the payload size is known. The submessage header
// itself is not endianness-sensitive except for this field, which
// follows the submessage's own E flag like every other multi-octet
// value in the payload.
func backpatchLength(w *cdr.Writer, lengthOffset int, littleEndian bool) error {
	buf := w.Bytes()
	length := uint16(len(buf) - lengthOffset - 2)
	if littleEndian {
		buf[lengthOffset] = byte(length)
		buf[lengthOffset+1] = byte(length >> 8)
	} else {
		buf[lengthOffset] = byte(length >> 8)
		buf[lengthOffset+1] = byte(length)
	}
	return nil
}

// DecodeData parses a DATA submessage payload, given its header.
func DecodeData(r *cdr.Reader, hdr SubmessageHeader) (Data, error) {
	sub, err := subReader(r, hdr)
	if err != nil {
		return Data{}, err
	}

	if _, err := sub.ReadUint16(); err != nil { // extra_flags
		return Data{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	octetsToInlineQos, err := sub.ReadUint16()
	if err != nil {
		return Data{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	readerKey, err := sub.ReadOctets(3)
	if err != nil {
		return Data{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	readerKind, err := sub.ReadOctet()
	if err != nil {
		return Data{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	writerKey, err := sub.ReadOctets(3)
	if err != nil {
		return Data{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	writerKind, err := sub.ReadOctet()
	if err != nil {
		return Data{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	if int(octetsToInlineQos) != sub.Pos()-4 && octetsToInlineQos != 16 {
		return Data{}, fmt.Errorf("%w: octetsToInlineQos %d inconsistent with prelude", ErrInvalidData, octetsToInlineQos)
	}

	hi, err := sub.ReadInt32()
	if err != nil {
		return Data{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	lo, err := sub.ReadUint32()
	if err != nil {
		return Data{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	d := Data{
		ReaderId:           types.EntityId{EntityKey: [3]byte(readerKey), Kind: types.EntityKind(readerKind)},
		WriterId:           types.EntityId{EntityKey: [3]byte(writerKey), Kind: types.EntityKind(writerKind)},
		WriterSN:           types.SequenceNumberFromParts(hi, lo),
		IsKey:              hdr.Flags&flagDataKey != 0,
		NonStandardPayload: hdr.Flags&flagDataNonStandardPayload != 0,
	}

	if hdr.Flags&flagDataInlineQos != 0 {
		pl, err := parameterlist.Decode(sub)
		if err != nil {
			return Data{}, fmt.Errorf("%w: inline qos: %v", ErrInvalidData, err)
		}
		d.InlineQos = &pl
	}

	if hdr.Flags&(flagDataSerializedData|flagDataKey) != 0 {
		d.SerializedPayload = append([]byte(nil), sub.Buf()[sub.Pos():]...)
	}

	return d, nil
}
