package participant

import (
	"time"

	"github.com/marmos91/dittofs/internal/logger"
	"github.com/marmos91/dittofs/internal/rtps/discovery"
	"github.com/marmos91/dittofs/internal/rtps/dynamictype"
	"github.com/marmos91/dittofs/internal/rtps/historycache"
	"github.com/marmos91/dittofs/internal/rtps/message"
	"github.com/marmos91/dittofs/internal/rtps/transport"
	"github.com/marmos91/dittofs/internal/rtps/types"
)

// dispatchInbound decodes one received datagram and routes every
// submessage to the builtin discovery readers/writers or to a matching
// local user endpoint, tracking the running source timestamp set by any
// preceding INFO_TS (§4.1, §4.6).
func (p *Participant) dispatchInbound(rcvd transport.Received) {
	msg, err := message.Decode(rcvd.Data)
	if err != nil {
		logger.Warnf("participant: decode inbound message: %v", err)
		return
	}

	var sourceTS *time.Time
	for _, sm := range msg.Submessages {
		switch {
		case sm.InfoTs != nil:
			if sm.InfoTs.Invalidate {
				sourceTS = nil
			} else {
				t := sm.InfoTs.Timestamp
				sourceTS = &t
			}
		case sm.Data != nil:
			p.dispatchData(msg.Header.GuidPrefix, *sm.Data, sm.Header.LittleEndian(), sourceTS)
		case sm.Heartbeat != nil:
			p.dispatchHeartbeat(msg.Header.GuidPrefix, *sm.Heartbeat)
		case sm.AckNack != nil:
			p.dispatchAckNack(msg.Header.GuidPrefix, *sm.AckNack)
		case sm.Gap != nil:
			p.dispatchGap(msg.Header.GuidPrefix, *sm.Gap)
		}
	}
}

func (p *Participant) dispatchData(remotePrefix types.GuidPrefix, d message.Data, littleEndian bool, ts *time.Time) {
	localGUID := types.GUID{Prefix: p.selfPrefix, Entity: d.ReaderId}
	remoteGUID := types.GUID{Prefix: remotePrefix, Entity: d.WriterId}
	ctx, cancel := contextWithTimeout(p.cfg.HeartbeatResponseDelay)
	defer cancel()

	switch {
	case localGUID.Entity == types.EntityIdSPDPBuiltinParticipantReader:
		data, err := discovery.DecodeSpdpDiscoveredParticipantData(d.SerializedPayload, littleEndian)
		if err != nil {
			logger.Warnf("participant: decode SPDP data: %v", err)
			return
		}
		p.spdp.HandleParticipantData(data)

	case localGUID.Entity == types.EntityIdSEDPBuiltinPublicationsReader:
		_ = p.sedpPubReader.sr.HandleData(ctx, remoteGUID, d, endpointInstanceHandleFromEntity(remoteGUID), ts)
		dwd, err := discovery.DecodeDiscoveredWriterData(d.SerializedPayload, littleEndian)
		if err != nil {
			logger.Warnf("participant: decode SEDP publication data: %v", err)
			return
		}
		p.endpointLocators[dwd.EndpointGUID] = dwd.UnicastLocators
		p.sedp.HandleRemoteWriter(dwd)

	case localGUID.Entity == types.EntityIdSEDPBuiltinSubscriptionsReader:
		_ = p.sedpSubReader.sr.HandleData(ctx, remoteGUID, d, endpointInstanceHandleFromEntity(remoteGUID), ts)
		drd, err := discovery.DecodeDiscoveredReaderData(d.SerializedPayload, littleEndian)
		if err != nil {
			logger.Warnf("participant: decode SEDP subscription data: %v", err)
			return
		}
		p.endpointLocators[drd.EndpointGUID] = drd.UnicastLocators
		p.readerExpectsInlineQos[drd.EndpointGUID] = drd.ExpectsInlineQos
		p.sedp.HandleRemoteReader(drd)

	default:
		re, ok := p.readers[localGUID]
		if !ok {
			return
		}
		instance, err := p.instanceHandleFor(re, d)
		if err != nil {
			return
		}
		if err := re.sr.HandleData(ctx, remoteGUID, d, instance, ts); err != nil {
			logger.WarnCtx(ctx, "participant: reader HandleData", logger.Fmt(logger.KeyError, "%v", err))
			return
		}
		re.status.NotifyDataAvailable()
	}
}

// instanceHandleFor derives the InstanceHandle a user reader would assign
// to an inbound change, decoding just enough of the payload through the
// reader's TypeSupport to hash its key members. Non-keyed types collapse
// to a single zero handle, matching KeyHash's own left-pad behavior.
func (p *Participant) instanceHandleFor(re *readerEntity, d message.Data) (historycache.InstanceHandle, error) {
	if len(d.SerializedPayload) == 0 {
		return historycache.InstanceHandle{}, nil
	}
	dd, err := decodePayload(d.SerializedPayload, re.ts.GetType())
	if err != nil {
		return historycache.InstanceHandle{}, err
	}
	return dynamictype.KeyHash(dd)
}

func (p *Participant) dispatchHeartbeat(remotePrefix types.GuidPrefix, hb message.Heartbeat) {
	localGUID := types.GUID{Prefix: p.selfPrefix, Entity: hb.ReaderId}
	remoteGUID := types.GUID{Prefix: remotePrefix, Entity: hb.WriterId}

	switch localGUID.Entity {
	case types.EntityIdSEDPBuiltinPublicationsReader:
		p.sedpPubReader.sr.HandleHeartbeat(remoteGUID, hb)
	case types.EntityIdSEDPBuiltinSubscriptionsReader:
		p.sedpSubReader.sr.HandleHeartbeat(remoteGUID, hb)
	default:
		if re, ok := p.readers[localGUID]; ok {
			re.sr.HandleHeartbeat(remoteGUID, hb)
		}
	}
}

func (p *Participant) dispatchGap(remotePrefix types.GuidPrefix, g message.Gap) {
	localGUID := types.GUID{Prefix: p.selfPrefix, Entity: g.ReaderId}
	remoteGUID := types.GUID{Prefix: remotePrefix, Entity: g.WriterId}

	switch localGUID.Entity {
	case types.EntityIdSEDPBuiltinPublicationsReader:
		p.sedpPubReader.sr.HandleGap(remoteGUID, g)
	case types.EntityIdSEDPBuiltinSubscriptionsReader:
		p.sedpSubReader.sr.HandleGap(remoteGUID, g)
	default:
		if re, ok := p.readers[localGUID]; ok {
			re.sr.HandleGap(remoteGUID, g)
		}
	}
}

func (p *Participant) dispatchAckNack(remotePrefix types.GuidPrefix, ack message.AckNack) {
	localGUID := types.GUID{Prefix: p.selfPrefix, Entity: ack.WriterId}
	remoteGUID := types.GUID{Prefix: remotePrefix, Entity: ack.ReaderId}

	switch localGUID.Entity {
	case types.EntityIdSEDPBuiltinPublicationsWriter:
		p.sedpPubWriter.sw.HandleAckNack(remoteGUID, ack)
	case types.EntityIdSEDPBuiltinSubscriptionsWriter:
		p.sedpSubWriter.sw.HandleAckNack(remoteGUID, ack)
	default:
		if we, ok := p.writers[localGUID]; ok {
			we.sw.HandleAckNack(remoteGUID, ack)
		}
	}
}

// endpointInstanceHandleFromEntity derives the builtin SEDP readers'
// instance handle for a remote endpoint announcement directly from its
// GUID, without needing to decode the payload first — every
// DiscoveredWriterData/DiscoveredReaderData is keyed by its EndpointGUID.
func endpointInstanceHandleFromEntity(guid types.GUID) historycache.InstanceHandle {
	return endpointInstanceHandle(guid)
}
