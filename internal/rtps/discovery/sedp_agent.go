package discovery

import (
	"sync"

	"github.com/marmos91/dittofs/internal/rtps/qos"
	"github.com/marmos91/dittofs/internal/rtps/types"
	"github.com/marmos91/dittofs/pkg/metrics"
)

// EndpointKind distinguishes a SEDP publication from a subscription for
// metrics and listener callbacks.
type EndpointKind string

const (
	EndpointKindPublication  EndpointKind = "publication"
	EndpointKindSubscription EndpointKind = "subscription"
)

// SedpListener is notified of endpoint matches/unmatches discovered via
// SEDP (§4.5, §4.9 SubscriptionMatched/PublicationMatched).
type SedpListener interface {
	OnMatched(kind EndpointKind, local, remote types.GUID)
	OnUnmatched(kind EndpointKind, local, remote types.GUID)
	OnIncompatibleQoS(kind EndpointKind, local, remote types.GUID, failures []qos.Incompatibility)
}

// SedpAgent maintains the reliable SEDP registry of discovered
// publications and subscriptions and computes the matching rule between
// every local endpoint and every remote one sharing its topic (§4.5).
// It does not itself drive the wire: the participant actor wires its
// local writer/reader announcements through the builtin SEDP
// reader/writer engines and feeds this agent decoded remote data.
type SedpAgent struct {
	mu       sync.Mutex
	localW   map[types.GUID]DiscoveredWriterData
	localR   map[types.GUID]DiscoveredReaderData
	remoteW  map[types.GUID]DiscoveredWriterData
	remoteR  map[types.GUID]DiscoveredReaderData
	matched  map[[2]types.GUID]struct{} // (local, remote) pairs currently matched
	listener SedpListener
	metrics  metrics.DiscoveryMetrics
}

// NewSedpAgent constructs an empty SedpAgent.
func NewSedpAgent(listener SedpListener) *SedpAgent {
	return &SedpAgent{
		localW:   make(map[types.GUID]DiscoveredWriterData),
		localR:   make(map[types.GUID]DiscoveredReaderData),
		remoteW:  make(map[types.GUID]DiscoveredWriterData),
		remoteR:  make(map[types.GUID]DiscoveredReaderData),
		matched:  make(map[[2]types.GUID]struct{}),
		listener: listener,
		metrics:  metrics.NewDiscoveryMetrics(),
	}
}

// AnnounceLocalWriter registers a local DataWriter and matches it
// against every currently known remote reader sharing its topic/type.
func (a *SedpAgent) AnnounceLocalWriter(d DiscoveredWriterData) {
	a.mu.Lock()
	a.localW[d.EndpointGUID] = d
	remotes := make([]DiscoveredReaderData, 0, len(a.remoteR))
	for _, r := range a.remoteR {
		remotes = append(remotes, r)
	}
	a.mu.Unlock()
	for _, r := range remotes {
		a.tryMatch(r, d)
	}
}

// AnnounceLocalReader registers a local DataReader and matches it
// against every currently known remote writer sharing its topic/type.
func (a *SedpAgent) AnnounceLocalReader(d DiscoveredReaderData) {
	a.mu.Lock()
	a.localR[d.EndpointGUID] = d
	remotes := make([]DiscoveredWriterData, 0, len(a.remoteW))
	for _, w := range a.remoteW {
		remotes = append(remotes, w)
	}
	a.mu.Unlock()
	for _, w := range remotes {
		a.tryMatch(d, w)
	}
}

// HandleRemoteWriter processes an inbound DiscoveredWriterData, matching
// it against every local reader sharing its topic/type.
func (a *SedpAgent) HandleRemoteWriter(d DiscoveredWriterData) {
	a.mu.Lock()
	a.remoteW[d.EndpointGUID] = d
	locals := make([]DiscoveredReaderData, 0, len(a.localR))
	for _, r := range a.localR {
		locals = append(locals, r)
	}
	a.mu.Unlock()
	for _, r := range locals {
		a.tryMatch(r, d)
	}
}

// HandleRemoteReader processes an inbound DiscoveredReaderData, matching
// it against every local writer sharing its topic/type.
func (a *SedpAgent) HandleRemoteReader(d DiscoveredReaderData) {
	a.mu.Lock()
	a.remoteR[d.EndpointGUID] = d
	locals := make([]DiscoveredWriterData, 0, len(a.localW))
	for _, w := range a.localW {
		locals = append(locals, w)
	}
	a.mu.Unlock()
	for _, w := range locals {
		a.tryMatch(d, w)
	}
}

func (a *SedpAgent) tryMatch(reader DiscoveredReaderData, writer DiscoveredWriterData) {
	result := MatchReaderToWriter(reader, writer)

	// The reader's GUID belongs either to our local registry or the
	// remote one; whichever local endpoint is involved drives the
	// listener callback and the matched-pair key.
	_, readerIsLocal := a.isLocalReader(reader.EndpointGUID)
	if !result.Matched {
		if len(result.Incompatibilities) > 0 && a.listener != nil {
			if readerIsLocal {
				a.listener.OnIncompatibleQoS(EndpointKindSubscription, reader.EndpointGUID, writer.EndpointGUID, result.Incompatibilities)
			} else {
				a.listener.OnIncompatibleQoS(EndpointKindPublication, writer.EndpointGUID, reader.EndpointGUID, result.Incompatibilities)
			}
			for _, f := range result.Incompatibilities {
				metrics.RecordIncompatibleQoS(a.metrics, f.PolicyID)
			}
		}
		return
	}

	a.mu.Lock()
	var key [2]types.GUID
	var kind EndpointKind
	var local, remote types.GUID
	if readerIsLocal {
		key = [2]types.GUID{reader.EndpointGUID, writer.EndpointGUID}
		kind, local, remote = EndpointKindSubscription, reader.EndpointGUID, writer.EndpointGUID
	} else {
		key = [2]types.GUID{writer.EndpointGUID, reader.EndpointGUID}
		kind, local, remote = EndpointKindPublication, writer.EndpointGUID, reader.EndpointGUID
	}
	_, already := a.matched[key]
	if !already {
		a.matched[key] = struct{}{}
	}
	count := 0
	for k := range a.matched {
		_, isPub := a.localW[k[0]]
		if isPub == (kind == EndpointKindPublication) {
			count++
		}
	}
	a.mu.Unlock()

	if !already {
		metrics.RecordMatchedEndpoints(a.metrics, string(kind), count)
		if a.listener != nil {
			a.listener.OnMatched(kind, local, remote)
		}
	}
}

func (a *SedpAgent) isLocalReader(guid types.GUID) (DiscoveredReaderData, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, ok := a.localR[guid]
	return d, ok
}

// RemoveParticipant drops every remote endpoint belonging to prefix
// (SPDP lease expiry or explicit deletion), firing OnUnmatched for any
// pair that was matched (§8 scenario 6).
func (a *SedpAgent) RemoveParticipant(prefix types.GuidPrefix) {
	a.mu.Lock()
	var removedWriters, removedReaders []types.GUID
	for guid := range a.remoteW {
		if guid.Prefix == prefix {
			removedWriters = append(removedWriters, guid)
			delete(a.remoteW, guid)
		}
	}
	for guid := range a.remoteR {
		if guid.Prefix == prefix {
			removedReaders = append(removedReaders, guid)
			delete(a.remoteR, guid)
		}
	}
	var unmatched []struct {
		kind          EndpointKind
		local, remote types.GUID
	}
	for key := range a.matched {
		local, remote := key[0], key[1]
		if remote.Prefix != prefix {
			continue
		}
		delete(a.matched, key)
		kind := EndpointKindSubscription
		if _, ok := a.localW[local]; ok {
			kind = EndpointKindPublication
		}
		unmatched = append(unmatched, struct {
			kind          EndpointKind
			local, remote types.GUID
		}{kind, local, remote})
	}
	a.mu.Unlock()

	for _, u := range unmatched {
		if a.listener != nil {
			a.listener.OnUnmatched(u.kind, u.local, u.remote)
		}
	}
}

// MatchedRemotes returns every remote GUID currently matched with local.
func (a *SedpAgent) MatchedRemotes(local types.GUID) []types.GUID {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []types.GUID
	for key := range a.matched {
		if key[0] == local {
			out = append(out, key[1])
		}
	}
	return out
}
