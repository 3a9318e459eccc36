package message

import (
	"fmt"
	"time"

	"github.com/marmos91/dittofs/internal/rtps/cdr"
	"github.com/marmos91/dittofs/internal/rtps/types"
)

const flagInfoTsInvalidate = 0x02 // I: when set, no timestamp follows

// InfoTs sets the source timestamp applied to subsequent submessages in
// the same message, or clears that association when Invalidate is set.
type InfoTs struct {
	Timestamp  time.Time
	Invalidate bool
}

func writeWireTime(w *cdr.Writer, t time.Time) error {
	d := types.DurationFromDuration(time.Duration(t.UnixNano()))
	if err := w.WriteInt32(d.Seconds); err != nil {
		return err
	}
	return w.WriteUint32(d.Fraction)
}

func readWireTime(r *cdr.Reader) (time.Time, error) {
	secs, err := r.ReadInt32()
	if err != nil {
		return time.Time{}, err
	}
	frac, err := r.ReadUint32()
	if err != nil {
		return time.Time{}, err
	}
	d := types.Duration{Seconds: secs, Fraction: frac}
	return time.Unix(0, int64(d.ToDuration())), nil
}

// EncodeInfoTs appends an INFO_TS submessage.
func EncodeInfoTs(msg *cdr.Writer, info InfoTs, littleEndian bool) error {
	flags := byte(0)
	if littleEndian {
		flags |= flagEndianness
	}
	if info.Invalidate {
		flags |= flagInfoTsInvalidate
		return encodeHeader(msg, KindInfoTs, flags, 0)
	}
	if err := encodeHeader(msg, KindInfoTs, flags, 8); err != nil {
		return err
	}
	payload := cdr.NewWriter(cdr.Endianness(littleEndian))
	if err := writeWireTime(payload, info.Timestamp); err != nil {
		return err
	}
	return msg.WriteOctets(payload.Bytes())
}

// DecodeInfoTs parses an INFO_TS submessage payload.
func DecodeInfoTs(r *cdr.Reader, hdr SubmessageHeader) (InfoTs, error) {
	if hdr.Flags&flagInfoTsInvalidate != 0 {
		return InfoTs{Invalidate: true}, nil
	}
	sub, err := subReader(r, hdr)
	if err != nil {
		return InfoTs{}, err
	}
	ts, err := readWireTime(sub)
	if err != nil {
		return InfoTs{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return InfoTs{Timestamp: ts}, nil
}

// InfoDst carries the GuidPrefix of the participant the following
// submessages are destined for, letting a single message multiplex
// traffic for several destination participants.
type InfoDst struct {
	GuidPrefix types.GuidPrefix
}

// EncodeInfoDst appends an INFO_DST submessage.
func EncodeInfoDst(msg *cdr.Writer, info InfoDst, littleEndian bool) error {
	flags := byte(0)
	if littleEndian {
		flags |= flagEndianness
	}
	if err := encodeHeader(msg, KindInfoDst, flags, 12); err != nil {
		return err
	}
	return msg.WriteOctets(info.GuidPrefix[:])
}

// DecodeInfoDst parses an INFO_DST submessage payload.
func DecodeInfoDst(r *cdr.Reader, hdr SubmessageHeader) (InfoDst, error) {
	sub, err := subReader(r, hdr)
	if err != nil {
		return InfoDst{}, err
	}
	b, err := sub.ReadOctets(12)
	if err != nil {
		return InfoDst{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	var info InfoDst
	copy(info.GuidPrefix[:], b)
	return info, nil
}

// InfoSrc identifies the true originating participant of subsequent
// submessages, used when a message is relayed.
type InfoSrc struct {
	ProtocolVersion ProtocolVersion
	VendorId        VendorId
	GuidPrefix      types.GuidPrefix
}

// EncodeInfoSrc appends an INFO_SRC submessage.
func EncodeInfoSrc(msg *cdr.Writer, info InfoSrc, littleEndian bool) error {
	flags := byte(0)
	if littleEndian {
		flags |= flagEndianness
	}
	if err := encodeHeader(msg, KindInfoSrc, flags, 20); err != nil {
		return err
	}
	payload := cdr.NewWriter(cdr.Endianness(littleEndian))
	if err := payload.WriteUint32(0); err != nil { // unused
		return err
	}
	if err := payload.WriteOctet(info.ProtocolVersion.Major); err != nil {
		return err
	}
	if err := payload.WriteOctet(info.ProtocolVersion.Minor); err != nil {
		return err
	}
	if err := payload.WriteOctets(info.VendorId[:]); err != nil {
		return err
	}
	if err := payload.WriteOctets(info.GuidPrefix[:]); err != nil {
		return err
	}
	return msg.WriteOctets(payload.Bytes())
}

// DecodeInfoSrc parses an INFO_SRC submessage payload.
func DecodeInfoSrc(r *cdr.Reader, hdr SubmessageHeader) (InfoSrc, error) {
	sub, err := subReader(r, hdr)
	if err != nil {
		return InfoSrc{}, err
	}
	if _, err := sub.ReadUint32(); err != nil {
		return InfoSrc{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	major, err := sub.ReadOctet()
	if err != nil {
		return InfoSrc{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	minor, err := sub.ReadOctet()
	if err != nil {
		return InfoSrc{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	vendor, err := sub.ReadOctets(2)
	if err != nil {
		return InfoSrc{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	prefix, err := sub.ReadOctets(12)
	if err != nil {
		return InfoSrc{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	info := InfoSrc{ProtocolVersion: ProtocolVersion{Major: major, Minor: minor}}
	copy(info.VendorId[:], vendor)
	copy(info.GuidPrefix[:], prefix)
	return info, nil
}

// InfoReply carries locators a relay should use for replies, in place of
// the sender's own transport-visible address.
type InfoReply struct {
	UnicastLocators   []types.Locator
	MulticastLocators []types.Locator
}

const flagInfoReplyMulticast = 0x02 // M

func writeLocatorList(w *cdr.Writer, locators []types.Locator) error {
	if err := w.WriteUint32(uint32(len(locators))); err != nil {
		return err
	}
	for _, l := range locators {
		if err := w.WriteInt32(int32(l.Kind)); err != nil {
			return err
		}
		if err := w.WriteUint32(l.Port); err != nil {
			return err
		}
		if err := w.WriteOctets(l.Address[:]); err != nil {
			return err
		}
	}
	return nil
}

func readLocatorList(r *cdr.Reader) ([]types.Locator, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if n > maxSequenceNumberSetRange {
		return nil, fmt.Errorf("%w: unreasonable locator list length %d", ErrInvalidData, n)
	}
	out := make([]types.Locator, 0, n)
	for i := uint32(0); i < n; i++ {
		kind, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		port, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		addr, err := r.ReadOctets(16)
		if err != nil {
			return nil, err
		}
		loc := types.Locator{Kind: types.LocatorKind(kind), Port: port}
		copy(loc.Address[:], addr)
		out = append(out, loc)
	}
	return out, nil
}

// EncodeInfoReply appends an INFO_REPLY submessage.
func EncodeInfoReply(msg *cdr.Writer, info InfoReply, littleEndian bool) error {
	flags := byte(0)
	if littleEndian {
		flags |= flagEndianness
	}
	if len(info.MulticastLocators) > 0 {
		flags |= flagInfoReplyMulticast
	}
	if err := encodeHeader(msg, KindInfoReply, flags, 0); err != nil {
		return err
	}
	lengthOffset := msg.Len() - 2
	payload := cdr.NewWriter(cdr.Endianness(littleEndian))
	if err := writeLocatorList(payload, info.UnicastLocators); err != nil {
		return err
	}
	if len(info.MulticastLocators) > 0 {
		if err := writeLocatorList(payload, info.MulticastLocators); err != nil {
			return err
		}
	}
	if err := msg.WriteOctets(payload.Bytes()); err != nil {
		return err
	}
	return backpatchLength(msg, lengthOffset, littleEndian)
}

// DecodeInfoReply parses an INFO_REPLY submessage payload.
func DecodeInfoReply(r *cdr.Reader, hdr SubmessageHeader) (InfoReply, error) {
	sub, err := subReader(r, hdr)
	if err != nil {
		return InfoReply{}, err
	}
	var info InfoReply
	if info.UnicastLocators, err = readLocatorList(sub); err != nil {
		return InfoReply{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if hdr.Flags&flagInfoReplyMulticast != 0 {
		if info.MulticastLocators, err = readLocatorList(sub); err != nil {
			return InfoReply{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
	}
	return info, nil
}
