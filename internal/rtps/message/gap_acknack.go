package message

import (
	"fmt"

	"github.com/marmos91/dittofs/internal/rtps/cdr"
	"github.com/marmos91/dittofs/internal/rtps/types"
)

// SequenceNumberSet is a base sequence number plus a bitmap of additional
// members relative to it, the wire representation ACKNACK and GAP use
// for their set arguments.
type SequenceNumberSet struct {
	Base    types.SequenceNumber
	Members []types.SequenceNumber
}

const maxSequenceNumberSetRange = 256

func writeSequenceNumberSet(w *cdr.Writer, s SequenceNumberSet) error {
	if err := writeSequenceNumber(w, s.Base); err != nil {
		return err
	}
	numBits := uint32(0)
	bitmap := make([]uint32, 0, 8)
	for _, m := range s.Members {
		offset := int64(m) - int64(s.Base)
		if offset < 0 || offset >= maxSequenceNumberSetRange {
			continue
		}
		if uint32(offset)+1 > numBits {
			numBits = uint32(offset) + 1
		}
	}
	wordCount := (numBits + 31) / 32
	bitmap = bitmap[:0]
	for i := uint32(0); i < wordCount; i++ {
		bitmap = append(bitmap, 0)
	}
	for _, m := range s.Members {
		offset := int64(m) - int64(s.Base)
		if offset < 0 || offset >= maxSequenceNumberSetRange {
			continue
		}
		word := offset / 32
		bit := uint(31 - offset%32)
		bitmap[word] |= 1 << bit
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

func readSequenceNumberSet(r *cdr.Reader) (SequenceNumberSet, error) {
	base, err := readSequenceNumber(r)
	if err != nil {
		return SequenceNumberSet{}, err
	}
	numBits, err := r.ReadUint32()
	if err != nil {
		return SequenceNumberSet{}, err
	}
	if numBits > maxSequenceNumberSetRange {
		return SequenceNumberSet{}, fmt.Errorf("%w: sequence number set bitmap too large (%d bits)", ErrInvalidData, numBits)
	}
	wordCount := (numBits + 31) / 32
	set := SequenceNumberSet{Base: base}
	for i := uint32(0); i < wordCount; i++ {
		word, err := r.ReadUint32()
		if err != nil {
			return SequenceNumberSet{}, err
		}
		for bit := uint(0); bit < 32; bit++ {
			offset := i*32 + uint32(bit)
			if offset >= numBits {
				break
			}
			if word&(1<<(31-bit)) != 0 {
				set.Members = append(set.Members, base+types.SequenceNumber(offset))
			}
		}
	}
	return set, nil
}

// Gap marks a range of sequence numbers as irrelevant: every number in
// [first, base) plus every member of set (§4.3).
type Gap struct {
	ReaderId types.EntityId
	WriterId types.EntityId
	First    types.SequenceNumber
	Set      SequenceNumberSet
}

// EncodeGap appends a GAP submessage.
func EncodeGap(msg *cdr.Writer, g Gap, littleEndian bool) error {
	flags := byte(0)
	if littleEndian {
		flags |= flagEndianness
	}
	if err := encodeHeader(msg, KindGap, flags, 0); err != nil {
		return err
	}
	lengthOffset := msg.Len() - 2
	payload := cdr.NewWriter(cdr.Endianness(littleEndian))
	if err := writeEntityId(payload, g.ReaderId); err != nil {
		return err
	}
	if err := writeEntityId(payload, g.WriterId); err != nil {
		return err
	}
	if err := writeSequenceNumber(payload, g.First); err != nil {
		return err
	}
	if err := writeSequenceNumberSet(payload, g.Set); err != nil {
		return err
	}
	if err := msg.WriteOctets(payload.Bytes()); err != nil {
		return err
	}
	return backpatchLength(msg, lengthOffset, littleEndian)
}

// DecodeGap parses a GAP submessage payload.
func DecodeGap(r *cdr.Reader, hdr SubmessageHeader) (Gap, error) {
	sub, err := subReader(r, hdr)
	if err != nil {
		return Gap{}, err
	}
	var g Gap
	if g.ReaderId, err = readEntityId(sub); err != nil {
		return Gap{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if g.WriterId, err = readEntityId(sub); err != nil {
		return Gap{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if g.First, err = readSequenceNumber(sub); err != nil {
		return Gap{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if g.Set, err = readSequenceNumberSet(sub); err != nil {
		return Gap{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return g, nil
}

const flagAckNackFinal = 0x02 // F

// AckNack requests retransmission of a writer's missing sequence numbers
// (§4.3).
type AckNack struct {
	ReaderId types.EntityId
	WriterId types.EntityId
	ReaderSNState SequenceNumberSet
	Count    uint32
	Final    bool
}

// EncodeAckNack appends an ACKNACK submessage.
func EncodeAckNack(msg *cdr.Writer, a AckNack, littleEndian bool) error {
	flags := byte(0)
	if littleEndian {
		flags |= flagEndianness
	}
	if a.Final {
		flags |= flagAckNackFinal
	}
	if err := encodeHeader(msg, KindAckNack, flags, 0); err != nil {
		return err
	}
	lengthOffset := msg.Len() - 2
	payload := cdr.NewWriter(cdr.Endianness(littleEndian))
	if err := writeEntityId(payload, a.ReaderId); err != nil {
		return err
	}
	if err := writeEntityId(payload, a.WriterId); err != nil {
		return err
	}
	if err := writeSequenceNumberSet(payload, a.ReaderSNState); err != nil {
		return err
	}
	if err := payload.WriteUint32(a.Count); err != nil {
		return err
	}
	if err := msg.WriteOctets(payload.Bytes()); err != nil {
		return err
	}
	return backpatchLength(msg, lengthOffset, littleEndian)
}

// DecodeAckNack parses an ACKNACK submessage payload.
func DecodeAckNack(r *cdr.Reader, hdr SubmessageHeader) (AckNack, error) {
	sub, err := subReader(r, hdr)
	if err != nil {
		return AckNack{}, err
	}
	var a AckNack
	if a.ReaderId, err = readEntityId(sub); err != nil {
		return AckNack{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if a.WriterId, err = readEntityId(sub); err != nil {
		return AckNack{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if a.ReaderSNState, err = readSequenceNumberSet(sub); err != nil {
		return AckNack{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if a.Count, err = sub.ReadUint32(); err != nil {
		return AckNack{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	a.Final = hdr.Flags&flagAckNackFinal != 0
	return a, nil
}
