package message

import (
	"fmt"

	"github.com/marmos91/dittofs/internal/rtps/cdr"
	"github.com/marmos91/dittofs/internal/rtps/types"
)

const (
	flagHeartbeatFinal    = 0x02 // F
	flagHeartbeatLiveliness = 0x04 // L
)

// Heartbeat announces a writer's current [first_sn, last_sn] range
// (§4.3/§4.4).
type Heartbeat struct {
	ReaderId    types.EntityId
	WriterId    types.EntityId
	FirstSN     types.SequenceNumber
	LastSN      types.SequenceNumber
	Count       uint32
	Final       bool
	Liveliness  bool
}

func writeEntityId(w *cdr.Writer, e types.EntityId) error {
	if err := w.WriteOctets(e.EntityKey[:]); err != nil {
		return err
	}
	return w.WriteOctet(byte(e.Kind))
}

func readEntityId(r *cdr.Reader) (types.EntityId, error) {
	key, err := r.ReadOctets(3)
	if err != nil {
		return types.EntityId{}, err
	}
	kind, err := r.ReadOctet()
	if err != nil {
		return types.EntityId{}, err
	}
	return types.EntityId{EntityKey: [3]byte(key), Kind: types.EntityKind(kind)}, nil
}

func writeSequenceNumber(w *cdr.Writer, sn types.SequenceNumber) error {
	if err := w.WriteInt32(sn.High()); err != nil {
		return err
	}
	return w.WriteUint32(sn.Low())
}

func readSequenceNumber(r *cdr.Reader) (types.SequenceNumber, error) {
	hi, err := r.ReadInt32()
	if err != nil {
		return 0, err
	}
	lo, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	return types.SequenceNumberFromParts(hi, lo), nil
}

// EncodeHeartbeat appends a HEARTBEAT submessage.
func EncodeHeartbeat(msg *cdr.Writer, h Heartbeat, littleEndian bool) error {
	flags := byte(0)
	if littleEndian {
		flags |= flagEndianness
	}
	if h.Final {
		flags |= flagHeartbeatFinal
	}
	if h.Liveliness {
		flags |= flagHeartbeatLiveliness
	}
	if err := encodeHeader(msg, KindHeartbeat, flags, 0); err != nil {
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
	if err := writeSequenceNumber(payload, h.FirstSN); err != nil {
		return err
	}
	if err := writeSequenceNumber(payload, h.LastSN); err != nil {
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

// DecodeHeartbeat parses a HEARTBEAT submessage payload.
func DecodeHeartbeat(r *cdr.Reader, hdr SubmessageHeader) (Heartbeat, error) {
	sub, err := subReader(r, hdr)
	if err != nil {
		return Heartbeat{}, err
	}
	var h Heartbeat
	if h.ReaderId, err = readEntityId(sub); err != nil {
		return Heartbeat{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if h.WriterId, err = readEntityId(sub); err != nil {
		return Heartbeat{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if h.FirstSN, err = readSequenceNumber(sub); err != nil {
		return Heartbeat{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if h.LastSN, err = readSequenceNumber(sub); err != nil {
		return Heartbeat{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if h.Count, err = sub.ReadUint32(); err != nil {
		return Heartbeat{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	h.Final = hdr.Flags&flagHeartbeatFinal != 0
	h.Liveliness = hdr.Flags&flagHeartbeatLiveliness != 0
	return h, nil
}

// subReader slices out one submessage's payload into its own Reader,
// bounds-checked against the outer buffer, and advances r past it.
// Zero-length submessages are only legal as the last submessage in a
// message (§4.1).
func subReader(r *cdr.Reader, hdr SubmessageHeader) (*cdr.Reader, error) {
	start := r.Pos()
	end := start + int(hdr.Length)
	if hdr.Length == 0 {
		if !remainingIsLastSubmessage(r) {
			return nil, fmt.Errorf("%w: zero submessage_length on a non-final submessage", ErrInvalidData)
		}
		end = len(r.Buf())
	} else if end > len(r.Buf()) {
		return nil, fmt.Errorf("%w: submessage_length overruns buffer", ErrInvalidData)
	}
	sub := cdr.NewReader(r.Buf()[start:end], hdr.Endianness())
	if err := r.Seek(end); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return sub, nil
}
