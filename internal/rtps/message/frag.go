package message

import (
	"fmt"

	"github.com/marmos91/dittofs/internal/rtps/cdr"
	"github.com/marmos91/dittofs/internal/rtps/types"
)

// FragmentNumberSet is the NACK_FRAG analogue of SequenceNumberSet,
// addressing individual fragments of one DATAFRAG sample.
type FragmentNumberSet struct {
	Base    uint32
	Members []uint32
}

func writeFragmentNumberSet(w *cdr.Writer, s FragmentNumberSet) error {
	if err := w.WriteUint32(s.Base); err != nil {
		return err
	}
	numBits := uint32(0)
	for _, m := range s.Members {
		if m < s.Base {
			continue
		}
		if off := m - s.Base + 1; off > numBits {
			numBits = off
		}
	}
	wordCount := (numBits + 31) / 32
	bitmap := make([]uint32, wordCount)
	for _, m := range s.Members {
		if m < s.Base {
			continue
		}
		off := m - s.Base
		bitmap[off/32] |= 1 << (31 - off%32)
	}
	if err := w.WriteUint32(numBits); err != nil {
		return err
	}
	for _, word := range bitmap {
		if err := w.WriteUint32(word); err != nil {
			return err
		}
	}
	return nil
}

func readFragmentNumberSet(r *cdr.Reader) (FragmentNumberSet, error) {
	base, err := r.ReadUint32()
	if err != nil {
		return FragmentNumberSet{}, err
	}
	numBits, err := r.ReadUint32()
	if err != nil {
		return FragmentNumberSet{}, err
	}
	if numBits > maxSequenceNumberSetRange {
		return FragmentNumberSet{}, fmt.Errorf("%w: fragment number set bitmap too large", ErrInvalidData)
	}
	wordCount := (numBits + 31) / 32
	set := FragmentNumberSet{Base: base}
	for i := uint32(0); i < wordCount; i++ {
		word, err := r.ReadUint32()
		if err != nil {
			return FragmentNumberSet{}, err
		}
		for bit := uint32(0); bit < 32; bit++ {
			off := i*32 + bit
			if off >= numBits {
				break
			}
			if word&(1<<(31-bit)) != 0 {
				set.Members = append(set.Members, base+off)
			}
		}
	}
	return set, nil
}

// NackFrag requests retransmission of specific fragments of one sample.
type NackFrag struct {
	ReaderId    types.EntityId
	WriterId    types.EntityId
	WriterSN    types.SequenceNumber
	FragmentSet FragmentNumberSet
	Count       uint32
}

// EncodeNackFrag appends a NACK_FRAG submessage.
func EncodeNackFrag(msg *cdr.Writer, n NackFrag, littleEndian bool) error {
	flags := byte(0)
	if littleEndian {
		flags |= flagEndianness
	}
	if err := encodeHeader(msg, KindNackFrag, flags, 0); err != nil {
		return err
	}
	lengthOffset := msg.Len() - 2
	payload := cdr.NewWriter(cdr.Endianness(littleEndian))
	if err := writeEntityId(payload, n.ReaderId); err != nil {
		return err
	}
	if err := writeEntityId(payload, n.WriterId); err != nil {
		return err
	}
	if err := writeSequenceNumber(payload, n.WriterSN); err != nil {
		return err
	}
	if err := writeFragmentNumberSet(payload, n.FragmentSet); err != nil {
		return err
	}
	if err := payload.WriteUint32(n.Count); err != nil {
		return err
	}
	if err := msg.WriteOctets(payload.Bytes()); err != nil {
		return err
	}
	return backpatchLength(msg, lengthOffset, littleEndian)
}

// DecodeNackFrag parses a NACK_FRAG submessage payload.
func DecodeNackFrag(r *cdr.Reader, hdr SubmessageHeader) (NackFrag, error) {
	sub, err := subReader(r, hdr)
	if err != nil {
		return NackFrag{}, err
	}
	var n NackFrag
	if n.ReaderId, err = readEntityId(sub); err != nil {
		return NackFrag{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if n.WriterId, err = readEntityId(sub); err != nil {
		return NackFrag{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if n.WriterSN, err = readSequenceNumber(sub); err != nil {
		return NackFrag{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if n.FragmentSet, err = readFragmentNumberSet(sub); err != nil {
		return NackFrag{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if n.Count, err = sub.ReadUint32(); err != nil {
		return NackFrag{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return n, nil
}

// HeartbeatFrag announces how many fragments of a sample a writer has
// available, analogous to Heartbeat for DATAFRAG.
type HeartbeatFrag struct {
	ReaderId    types.EntityId
	WriterId    types.EntityId
	WriterSN    types.SequenceNumber
	LastFragNum uint32
	Count       uint32
}

// EncodeHeartbeatFrag appends a HEARTBEAT_FRAG submessage.
func EncodeHeartbeatFrag(msg *cdr.Writer, h HeartbeatFrag, littleEndian bool) error {
	flags := byte(0)
	if littleEndian {
		flags |= flagEndianness
	}
	if err := encodeHeader(msg, KindHeartbeatFrag, flags, 0); err != nil {
		return err
	}
	lengthOffset := msg.Len() - 2
	payload := cdr.NewWriter(cdr.Endianness(littleEndian))
	if err := writeEntityId(payload, h.ReaderId); err != nil {
		return err
	}
	if err := writeEntityId(payload, h.WriterId); err != nil {
		return err
	}
	if err := writeSequenceNumber(payload, h.WriterSN); err != nil {
		return err
	}
	if err := payload.WriteUint32(h.LastFragNum); err != nil {
		return err
	}
	if err := payload.WriteUint32(h.Count); err != nil {
		return err
	}
	if err := msg.WriteOctets(payload.Bytes()); err != nil {
		return err
	}
	return backpatchLength(msg, lengthOffset, littleEndian)
}

// DecodeHeartbeatFrag parses a HEARTBEAT_FRAG submessage payload.
func DecodeHeartbeatFrag(r *cdr.Reader, hdr SubmessageHeader) (HeartbeatFrag, error) {
	sub, err := subReader(r, hdr)
	if err != nil {
		return HeartbeatFrag{}, err
	}
	var h HeartbeatFrag
	if h.ReaderId, err = readEntityId(sub); err != nil {
		return HeartbeatFrag{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if h.WriterId, err = readEntityId(sub); err != nil {
		return HeartbeatFrag{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if h.WriterSN, err = readSequenceNumber(sub); err != nil {
		return HeartbeatFrag{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if h.LastFragNum, err = sub.ReadUint32(); err != nil {
		return HeartbeatFrag{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if h.Count, err = sub.ReadUint32(); err != nil {
		return HeartbeatFrag{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return h, nil
}

const flagDataFragKey = 0x04 // K

// DataFrag carries one fragment of a sample too large for a single DATA
// submessage.
type DataFrag struct {
	ReaderId          types.EntityId
	WriterId          types.EntityId
	WriterSN          types.SequenceNumber
	FragmentStartingNum uint32
	FragmentsInSubmessage uint16
	FragmentSize      uint16
	SampleSize        uint32
	InlineQos         []byte
	SerializedPayload []byte
	IsKey             bool
}

// EncodeDataFrag appends a DATAFRAG submessage.
func EncodeDataFrag(msg *cdr.Writer, d DataFrag, littleEndian bool) error {
	flags := byte(0)
	if littleEndian {
		flags |= flagEndianness
	}
	if d.IsKey {
		flags |= flagDataFragKey
	}
	if err := encodeHeader(msg, KindDataFrag, flags, 0); err != nil {
		return err
	}
	lengthOffset := msg.Len() - 2
	payload := cdr.NewWriter(cdr.Endianness(littleEndian))
	if err := payload.WriteUint16(0); err != nil { // extra_flags
		return err
	}
	if err := payload.WriteUint16(28); err != nil { // octetsToInlineQos
		return err
	}
	if err := writeEntityId(payload, d.ReaderId); err != nil {
		return err
	}
	if err := writeEntityId(payload, d.WriterId); err != nil {
		return err
	}
	if err := writeSequenceNumber(payload, d.WriterSN); err != nil {
		return err
	}
	if err := payload.WriteUint32(d.FragmentStartingNum); err != nil {
		return err
	}
	if err := payload.WriteUint16(d.FragmentsInSubmessage); err != nil {
		return err
	}
	if err := payload.WriteUint16(d.FragmentSize); err != nil {
		return err
	}
	if err := payload.WriteUint32(d.SampleSize); err != nil {
		return err
	}
	if len(d.InlineQos) > 0 {
		if err := payload.WriteOctets(d.InlineQos); err != nil {
			return err
		}
	}
	if err := payload.WriteOctets(d.SerializedPayload); err != nil {
		return err
	}
	if err := msg.WriteOctets(payload.Bytes()); err != nil {
		return err
	}
	return backpatchLength(msg, lengthOffset, littleEndian)
}

// DecodeDataFrag parses a DATAFRAG submessage payload.
func DecodeDataFrag(r *cdr.Reader, hdr SubmessageHeader) (DataFrag, error) {
	sub, err := subReader(r, hdr)
	if err != nil {
		return DataFrag{}, err
	}
	if _, err := sub.ReadUint16(); err != nil { // extra_flags
		return DataFrag{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if _, err := sub.ReadUint16(); err != nil { // octetsToInlineQos
		return DataFrag{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	var d DataFrag
	d.IsKey = hdr.Flags&flagDataFragKey != 0
	if d.ReaderId, err = readEntityId(sub); err != nil {
		return DataFrag{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if d.WriterId, err = readEntityId(sub); err != nil {
		return DataFrag{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if d.WriterSN, err = readSequenceNumber(sub); err != nil {
		return DataFrag{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if d.FragmentStartingNum, err = sub.ReadUint32(); err != nil {
		return DataFrag{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if d.FragmentsInSubmessage, err = sub.ReadUint16(); err != nil {
		return DataFrag{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if d.FragmentSize, err = sub.ReadUint16(); err != nil {
		return DataFrag{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if d.SampleSize, err = sub.ReadUint32(); err != nil {
		return DataFrag{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	d.SerializedPayload = append([]byte(nil), sub.Buf()[sub.Pos():]...)
	return d, nil
}

// EncodePad appends a zero-length PAD submessage.
func EncodePad(msg *cdr.Writer, littleEndian bool) error {
	flags := byte(0)
	if littleEndian {
		flags |= flagEndianness
	}
	return encodeHeader(msg, KindPad, flags, 0)
}
