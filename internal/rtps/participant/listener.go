package participant

import (
	"github.com/marmos91/dittofs/internal/rtps/discovery"
	"github.com/marmos91/dittofs/internal/rtps/historycache"
	"github.com/marmos91/dittofs/internal/rtps/qos"
	"github.com/marmos91/dittofs/internal/rtps/status"
	"github.com/marmos91/dittofs/internal/rtps/types"
)

// builtinRemoteEntity builds the GUID of one of a remote participant's
// builtin SEDP endpoints.
func builtinRemoteEntity(prefix types.GuidPrefix, entity types.EntityId) types.GUID {
	return types.GUID{Prefix: prefix, Entity: entity}
}

// OnParticipantDiscovered implements discovery.SpdpListener. A newly
// discovered (or renewed) remote participant has its builtin SEDP
// reader/writer matched against this participant's own four builtin
// engines, so publication/subscription announcements start flowing
// immediately (§4.5, §4.6).
func (p *Participant) OnParticipantDiscovered(proxy *discovery.ParticipantProxy, isNew bool) {
	prefix := proxy.Data.ParticipantGUID.Prefix
	if prefix == p.selfPrefix {
		return
	}
	locs := proxy.Data.MetatrafficUnicastLocators
	if len(locs) == 0 {
		locs = proxy.Data.DefaultUnicastLocators
	}
	p.participantLocators[prefix] = locs

	if !isNew {
		return
	}

	p.sedpPubReader.sr.MatchWriter(builtinRemoteEntity(prefix, types.EntityIdSEDPBuiltinPublicationsWriter), locs)
	p.sedpSubReader.sr.MatchWriter(builtinRemoteEntity(prefix, types.EntityIdSEDPBuiltinSubscriptionsWriter), locs)
	p.sedpPubWriter.sw.MatchReader(builtinRemoteEntity(prefix, types.EntityIdSEDPBuiltinPublicationsReader), locs, nil, false)
	p.sedpSubWriter.sw.MatchReader(builtinRemoteEntity(prefix, types.EntityIdSEDPBuiltinSubscriptionsReader), locs, nil, false)
}

// OnParticipantLeaseExpired implements discovery.SpdpListener, tearing
// down every trace of a remote participant whose lease lapsed (§4.6).
func (p *Participant) OnParticipantLeaseExpired(prefix types.GuidPrefix) {
	p.sedpPubReader.sr.UnmatchWriter(builtinRemoteEntity(prefix, types.EntityIdSEDPBuiltinPublicationsWriter))
	p.sedpSubReader.sr.UnmatchWriter(builtinRemoteEntity(prefix, types.EntityIdSEDPBuiltinSubscriptionsWriter))
	p.sedpPubWriter.sw.UnmatchReader(builtinRemoteEntity(prefix, types.EntityIdSEDPBuiltinPublicationsReader))
	p.sedpSubWriter.sw.UnmatchReader(builtinRemoteEntity(prefix, types.EntityIdSEDPBuiltinSubscriptionsReader))
	p.sedp.RemoveParticipant(prefix)
	delete(p.participantLocators, prefix)
}

// OnMatched implements discovery.SedpListener: wire the RTPS-level
// reader/writer proxies for a newly compatible remote endpoint and bump
// the owning entity's PublicationMatched/SubscriptionMatched status.
func (p *Participant) OnMatched(kind discovery.EndpointKind, local, remote types.GUID) {
	locs := p.endpointLocators[remote]
	switch kind {
	case discovery.EndpointKindPublication:
		we, ok := p.writers[local]
		if !ok {
			return
		}
		we.sw.MatchReader(remote, locs, nil, p.readerExpectsInlineQos[remote])
		we.status.NotifyMatched(status.KindPublicationMatched, int32(len(p.sedp.MatchedRemotes(local))))
	case discovery.EndpointKindSubscription:
		re, ok := p.readers[local]
		if !ok {
			return
		}
		re.sr.MatchWriter(remote, locs)
		re.status.NotifyMatched(status.KindSubscriptionMatched, int32(len(p.sedp.MatchedRemotes(local))))
	}
}

// OnUnmatched implements discovery.SedpListener, reversing OnMatched.
func (p *Participant) OnUnmatched(kind discovery.EndpointKind, local, remote types.GUID) {
	switch kind {
	case discovery.EndpointKindPublication:
		we, ok := p.writers[local]
		if !ok {
			return
		}
		we.sw.UnmatchReader(remote)
		we.status.NotifyMatched(status.KindPublicationMatched, int32(len(p.sedp.MatchedRemotes(local))))
	case discovery.EndpointKindSubscription:
		re, ok := p.readers[local]
		if !ok {
			return
		}
		re.sr.UnmatchWriter(remote)
		re.status.NotifyMatched(status.KindSubscriptionMatched, int32(len(p.sedp.MatchedRemotes(local))))
	}
}

// OnIncompatibleQoS implements discovery.SedpListener, recording the
// first reported mismatch on the local entity's status set (§4.9).
func (p *Participant) OnIncompatibleQoS(kind discovery.EndpointKind, local, remote types.GUID, failures []qos.Incompatibility) {
	policyID := "Unknown"
	if len(failures) > 0 {
		policyID = failures[0].PolicyID
	}
	switch kind {
	case discovery.EndpointKindPublication:
		if we, ok := p.writers[local]; ok {
			we.status.NotifyOfferedIncompatibleQos(policyID)
		}
	case discovery.EndpointKindSubscription:
		if re, ok := p.readers[local]; ok {
			re.status.NotifyRequestedIncompatibleQos(policyID)
		}
	}
}

// OfferedDeadlineMissed implements writer.DeadlineListener by locating
// the writer owning instance and bumping its status. Writers are few
// enough per participant that a linear scan over the owning instance's
// writer is unnecessary; the deadline timer is armed per writer engine,
// so the caller already knows which StatefulWriter fired — this
// participant-wide scan exists only because DeadlineListener carries no
// writer identity, only the instance handle.
func (p *Participant) OfferedDeadlineMissed(instance historycache.InstanceHandle) {
	for _, we := range p.writers {
		if len(we.history.InstanceChanges(instance)) > 0 {
			we.status.NotifyOfferedDeadlineMissed(instance)
			return
		}
	}
}
