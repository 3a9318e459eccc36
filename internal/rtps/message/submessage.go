package message

import (
	"fmt"

	"github.com/marmos91/dittofs/internal/rtps/cdr"
)

// SubmessageKind identifies a submessage's semantic type (DDSI-RTPS §9).
type SubmessageKind byte

const (
	KindPad           SubmessageKind = 0x01
	KindAckNack       SubmessageKind = 0x06
	KindHeartbeat     SubmessageKind = 0x07
	KindGap           SubmessageKind = 0x08
	KindInfoTs        SubmessageKind = 0x09
	KindInfoSrc       SubmessageKind = 0x0C
	KindInfoReply     SubmessageKind = 0x0F
	KindInfoDst       SubmessageKind = 0x0E
	KindNackFrag      SubmessageKind = 0x12
	KindHeartbeatFrag SubmessageKind = 0x13
	KindData          SubmessageKind = 0x15
	KindDataFrag      SubmessageKind = 0x16
)

// flagEndianness is the low bit of every submessage's flags octet: when
// set, the submessage payload is little-endian (§4.1).
const flagEndianness = 0x01

// SubmessageHeader is the 4-octet header preceding every submessage.
type SubmessageHeader struct {
	Kind   SubmessageKind
	Flags  byte
	Length uint16
}

// LittleEndian reports whether the E flag is set.
func (h SubmessageHeader) LittleEndian() bool { return h.Flags&flagEndianness != 0 }

// Endianness returns the cdr.Endianness this submessage's payload uses.
func (h SubmessageHeader) Endianness() cdr.Endianness {
	if h.LittleEndian() {
		return cdr.LittleEndian
	}
	return cdr.BigEndian
}

// encodeHeader writes kind/flags immediately, then length in the byte
// order the flags' E bit selects; variable-size encoders pass 0 and
// backpatch the length once the payload size is known.
func encodeHeader(w *cdr.Writer, kind SubmessageKind, flags byte, length uint16) error {
	if err := w.WriteOctet(byte(kind)); err != nil {
		return err
	}
	if err := w.WriteOctet(flags); err != nil {
		return err
	}
	if flags&flagEndianness != 0 {
		return w.WriteOctets([]byte{byte(length), byte(length >> 8)})
	}
	return w.WriteOctets([]byte{byte(length >> 8), byte(length)})
}

// decodeSubmessageHeader reads one 4-octet submessage header. Kind and
// flags are single octets; length is read in the byte order selected by
// the E flag, the same order the rest of the submessage uses.
func decodeSubmessageHeader(r *cdr.Reader) (SubmessageHeader, error) {
	kind, err := r.ReadOctet()
	if err != nil {
		return SubmessageHeader{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	flags, err := r.ReadOctet()
	if err != nil {
		return SubmessageHeader{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	b, err := r.ReadOctets(2)
	if err != nil {
		return SubmessageHeader{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	length := uint16(b[0])<<8 | uint16(b[1])
	if flags&flagEndianness != 0 {
		length = uint16(b[1])<<8 | uint16(b[0])
	}
	return SubmessageHeader{Kind: SubmessageKind(kind), Flags: flags, Length: length}, nil
}

// Submessage is the decoded, typed union of every submessage kind this
// codec supports. Exactly one field is non-nil except for Pad, which
// carries no payload.
type Submessage struct {
	Header SubmessageHeader

	Data          *Data
	DataFrag      *DataFrag
	Heartbeat     *Heartbeat
	AckNack       *AckNack
	Gap           *Gap
	InfoTs        *InfoTs
	InfoDst       *InfoDst
	InfoReply     *InfoReply
	InfoSrc       *InfoSrc
	NackFrag      *NackFrag
	HeartbeatFrag *HeartbeatFrag
}

// remainingIsLastSubmessage checks whether r has nothing left after the
// current submessage, the one case where a zero submessage_length is
// legal (§4.1).
func remainingIsLastSubmessage(r *cdr.Reader) bool {
	return r.Remaining() == 0
}
