package message

import (
	"fmt"

	"github.com/marmos91/dittofs/internal/rtps/cdr"
)

// Message is a full RTPS message: the fixed header plus an ordered list
// of submessages.
type Message struct {
	Header      Header
	Submessages []Submessage
}

// Encode serializes a Message. Each submessage is encoded in the
// endianness carried in its own header.
func Encode(m Message) ([]byte, error) {
	w := cdr.NewWriter(cdr.BigEndian)
	if err := m.Header.Encode(w); err != nil {
		return nil, err
	}
	for _, sm := range m.Submessages {
		if err := encodeTyped(w, sm); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

func encodeTyped(w *cdr.Writer, sm Submessage) error {
	le := sm.Header.LittleEndian()
	switch {
	case sm.Data != nil:
		return EncodeData(w, *sm.Data, le)
	case sm.DataFrag != nil:
		return EncodeDataFrag(w, *sm.DataFrag, le)
	case sm.Heartbeat != nil:
		return EncodeHeartbeat(w, *sm.Heartbeat, le)
	case sm.AckNack != nil:
		return EncodeAckNack(w, *sm.AckNack, le)
	case sm.Gap != nil:
		return EncodeGap(w, *sm.Gap, le)
	case sm.InfoTs != nil:
		return EncodeInfoTs(w, *sm.InfoTs, le)
	case sm.InfoDst != nil:
		return EncodeInfoDst(w, *sm.InfoDst, le)
	case sm.InfoReply != nil:
		return EncodeInfoReply(w, *sm.InfoReply, le)
	case sm.InfoSrc != nil:
		return EncodeInfoSrc(w, *sm.InfoSrc, le)
	case sm.NackFrag != nil:
		return EncodeNackFrag(w, *sm.NackFrag, le)
	case sm.HeartbeatFrag != nil:
		return EncodeHeartbeatFrag(w, *sm.HeartbeatFrag, le)
	default:
		return EncodePad(w, le)
	}
}

// maxSubmessages bounds how many submessages Decode will parse out of
// one message, defending against a corrupt stream of zero-length,
// non-final submessages.
const maxSubmessages = 4096

// Decode parses a full RTPS message. Unknown submessage kinds are
// skipped (forward compatibility with future submessage types), per the
// general RTPS rule that a parser ignores submessages it does not
// recognize.
func Decode(data []byte) (Message, error) {
	r := cdr.NewReader(data, cdr.BigEndian)
	hdr, err := DecodeHeader(r)
	if err != nil {
		return Message{}, err
	}
	m := Message{Header: hdr}
	for i := 0; i < maxSubmessages && r.Remaining() > 0; i++ {
		smHdr, err := decodeSubmessageHeader(r)
		if err != nil {
			return Message{}, err
		}
		sm := Submessage{Header: smHdr}
		switch smHdr.Kind {
		case KindData:
			d, err := DecodeData(r, smHdr)
			if err != nil {
				return Message{}, err
			}
			sm.Data = &d
		case KindDataFrag:
			d, err := DecodeDataFrag(r, smHdr)
			if err != nil {
				return Message{}, err
			}
			sm.DataFrag = &d
		case KindHeartbeat:
			h, err := DecodeHeartbeat(r, smHdr)
			if err != nil {
				return Message{}, err
			}
			sm.Heartbeat = &h
		case KindAckNack:
			a, err := DecodeAckNack(r, smHdr)
			if err != nil {
				return Message{}, err
			}
			sm.AckNack = &a
		case KindGap:
			g, err := DecodeGap(r, smHdr)
			if err != nil {
				return Message{}, err
			}
			sm.Gap = &g
		case KindInfoTs:
			info, err := DecodeInfoTs(r, smHdr)
			if err != nil {
				return Message{}, err
			}
			sm.InfoTs = &info
		case KindInfoDst:
			info, err := DecodeInfoDst(r, smHdr)
			if err != nil {
				return Message{}, err
			}
			sm.InfoDst = &info
		case KindInfoReply:
			info, err := DecodeInfoReply(r, smHdr)
			if err != nil {
				return Message{}, err
			}
			sm.InfoReply = &info
		case KindInfoSrc:
			info, err := DecodeInfoSrc(r, smHdr)
			if err != nil {
				return Message{}, err
			}
			sm.InfoSrc = &info
		case KindNackFrag:
			n, err := DecodeNackFrag(r, smHdr)
			if err != nil {
				return Message{}, err
			}
			sm.NackFrag = &n
		case KindHeartbeatFrag:
			h, err := DecodeHeartbeatFrag(r, smHdr)
			if err != nil {
				return Message{}, err
			}
			sm.HeartbeatFrag = &h
		case KindPad:
			if _, err := subReader(r, smHdr); err != nil {
				return Message{}, err
			}
		default:
			if _, err := subReader(r, smHdr); err != nil {
				return Message{}, err
			}
		}
		m.Submessages = append(m.Submessages, sm)
	}
	if r.Remaining() > 0 {
		return Message{}, fmt.Errorf("%w: too many submessages in one message", ErrInvalidData)
	}
	return m, nil
}
