package participant

import (
	"context"
	"time"

	"github.com/marmos91/dittofs/internal/rtps/message"
	"github.com/marmos91/dittofs/internal/rtps/types"
)

// resolveLocator picks the best known address for remote: an
// endpoint-specific unicast locator learned via SEDP, falling back to
// the owning participant's default unicast locator learned via SPDP,
// falling back to the domain's metatraffic multicast group. This
// implementation only ever joins one multicast group per participant
// (§1 Non-goals scope), so every builtin and most user endpoint traffic
// is reachable there regardless.
func (p *Participant) resolveLocator(remote types.GUID) types.Locator {
	if locs, ok := p.endpointLocators[remote]; ok && len(locs) > 0 {
		return locs[0]
	}
	if locs, ok := p.participantLocators[remote.Prefix]; ok && len(locs) > 0 {
		return locs[0]
	}
	return p.cfg.MetatrafficMulticastLoc
}

func (p *Participant) sendSubmessage(ctx context.Context, remote types.GUID, sm message.Submessage) error {
	msg := message.Message{
		Header:      message.Header{Version: message.ProtocolVersion24, Vendor: message.VendorIdThisImplementation, GuidPrefix: p.selfPrefix},
		Submessages: []message.Submessage{sm},
	}
	data, err := message.Encode(msg)
	if err != nil {
		return err
	}
	return p.cfg.Transport.Write(ctx, data, p.resolveLocator(remote))
}

// SendData implements writer.Sender.
func (p *Participant) SendData(ctx context.Context, reader types.GUID, d message.Data) error {
	return p.sendSubmessage(ctx, reader, message.Submessage{Header: message.SubmessageHeader{Kind: message.KindData}, Data: &d})
}

// SendGap implements writer.Sender.
func (p *Participant) SendGap(ctx context.Context, reader types.GUID, g message.Gap) error {
	return p.sendSubmessage(ctx, reader, message.Submessage{Header: message.SubmessageHeader{Kind: message.KindGap}, Gap: &g})
}

// SendHeartbeat implements writer.Sender.
func (p *Participant) SendHeartbeat(ctx context.Context, reader types.GUID, hb message.Heartbeat) error {
	return p.sendSubmessage(ctx, reader, message.Submessage{Header: message.SubmessageHeader{Kind: message.KindHeartbeat}, Heartbeat: &hb})
}

// SendAckNack implements reader.AckNackSender.
func (p *Participant) SendAckNack(ctx context.Context, writer types.GUID, ack message.AckNack) error {
	return p.sendSubmessage(ctx, writer, message.Submessage{Header: message.SubmessageHeader{Kind: message.KindAckNack}, AckNack: &ack})
}

func contextWithTimeout(period time.Duration) (context.Context, context.CancelFunc) {
	if period <= 0 {
		period = 2 * time.Second
	}
	return context.WithTimeout(context.Background(), period)
}
