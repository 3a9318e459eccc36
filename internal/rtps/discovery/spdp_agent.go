package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/dittofs/internal/logger"
	"github.com/marmos91/dittofs/internal/rtps/message"
	"github.com/marmos91/dittofs/internal/rtps/transport"
	"github.com/marmos91/dittofs/internal/rtps/types"
	"github.com/marmos91/dittofs/pkg/metrics"
)

// DefaultAnnouncePeriod is participant_announce_period (§4.5).
const DefaultAnnouncePeriod = 5 * time.Second

// DefaultLeaseDuration is participant_lease_duration (§4.5).
const DefaultLeaseDuration = 100 * time.Second

// SpdpListener is notified when SPDP discovers a new or updated remote
// participant, or expires one's lease.
type SpdpListener interface {
	OnParticipantDiscovered(proxy *ParticipantProxy, isNew bool)
	OnParticipantLeaseExpired(prefix types.GuidPrefix)
}

// SpdpAgent implements the stateless best-effort SPDP writer and
// detector (§4.5): it periodically broadcasts this participant's
// SpdpDiscoveredParticipantData to the domain multicast group, and
// tracks every remote participant seen, removing one when its lease
// expires.
type SpdpAgent struct {
	mu       sync.Mutex
	local    SpdpDiscoveredParticipantData
	proxies  map[types.GuidPrefix]*ParticipantProxy
	listener SpdpListener
	metrics  metrics.DiscoveryMetrics

	transport     transport.Transport
	multicastLoc  types.Locator
	announcePeriod time.Duration
	closeCh       chan struct{}
	closeOnce     sync.Once
}

// Config configures a SpdpAgent.
type Config struct {
	Local          SpdpDiscoveredParticipantData
	Transport      transport.Transport
	MulticastLoc   types.Locator
	AnnouncePeriod time.Duration
	Listener       SpdpListener
}

// NewSpdpAgent constructs a SpdpAgent and starts its periodic announce
// loop.
func NewSpdpAgent(cfg Config) *SpdpAgent {
	period := cfg.AnnouncePeriod
	if period <= 0 {
		period = DefaultAnnouncePeriod
	}
	a := &SpdpAgent{
		local:          cfg.Local,
		proxies:        make(map[types.GuidPrefix]*ParticipantProxy),
		listener:       cfg.Listener,
		metrics:        metrics.NewDiscoveryMetrics(),
		transport:      cfg.Transport,
		multicastLoc:   cfg.MulticastLoc,
		announcePeriod: period,
		closeCh:        make(chan struct{}),
	}
	if a.transport != nil {
		go a.announceLoop()
	}
	return a
}

// Close stops the announce loop.
func (a *SpdpAgent) Close() {
	a.closeOnce.Do(func() { close(a.closeCh) })
}

func (a *SpdpAgent) announceLoop() {
	a.announce()
	ticker := time.NewTicker(a.announcePeriod)
	defer ticker.Stop()
	for {
		select {
		case <-a.closeCh:
			return
		case <-ticker.C:
			a.announce()
		}
	}
}

func (a *SpdpAgent) announce() {
	payload, err := a.local.Encode()
	if err != nil {
		logger.Warnf("spdp: failed to encode local participant data: %v", err)
		return
	}
	d := message.Data{
		ReaderId:          types.EntityIdSPDPBuiltinParticipantReader,
		WriterId:          types.EntityIdSPDPBuiltinParticipantWriter,
		WriterSN:          1,
		SerializedPayload: payload,
	}
	msg := message.Message{
		Header: message.Header{Version: message.ProtocolVersion24, Vendor: message.VendorIdThisImplementation, GuidPrefix: a.local.ParticipantGUID.Prefix},
		Submessages: []message.Submessage{
			{Header: message.SubmessageHeader{Kind: message.KindData}, Data: &d},
		},
	}
	bytes, err := message.Encode(msg)
	if err != nil {
		logger.Warnf("spdp: failed to encode message: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.announcePeriod)
	defer cancel()
	if err := a.transport.Write(ctx, bytes, a.multicastLoc); err != nil {
		logger.Warnf("spdp: failed to send announce: %v", err)
	}
}

// HandleParticipantData processes an inbound SpdpDiscoveredParticipantData,
// updating or inserting its ParticipantProxy and renewing its lease
// (§4.5).
func (a *SpdpAgent) HandleParticipantData(data SpdpDiscoveredParticipantData) {
	if data.ParticipantGUID.Prefix == a.local.ParticipantGUID.Prefix {
		return // ignore our own announcement looping back on multicast
	}
	now := time.Now()
	a.mu.Lock()
	proxy, isNew := a.proxies[data.ParticipantGUID.Prefix]
	if !isNew {
		proxy = &ParticipantProxy{}
		a.proxies[data.ParticipantGUID.Prefix] = proxy
	}
	proxy.Renew(now, data)
	count := len(a.proxies)
	a.mu.Unlock()

	metrics.RecordParticipantsDiscovered(a.metrics, count)
	if a.listener != nil {
		a.listener.OnParticipantDiscovered(proxy, !isNew)
	}
}

// CheckLeases removes every participant whose lease has expired as of
// now, notifying the listener for each (§4.5, §4.6 lease check, §8
// scenario 6).
func (a *SpdpAgent) CheckLeases(now time.Time) {
	var expired []types.GuidPrefix
	a.mu.Lock()
	for prefix, proxy := range a.proxies {
		if proxy.Expired(now) {
			expired = append(expired, prefix)
			delete(a.proxies, prefix)
		}
	}
	count := len(a.proxies)
	a.mu.Unlock()

	for _, prefix := range expired {
		metrics.RecordLeaseExpired(a.metrics)
		if a.listener != nil {
			a.listener.OnParticipantLeaseExpired(prefix)
		}
	}
	if len(expired) > 0 {
		metrics.RecordParticipantsDiscovered(a.metrics, count)
	}
}

// Proxies returns a snapshot of every currently known remote participant.
func (a *SpdpAgent) Proxies() []*ParticipantProxy {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*ParticipantProxy, 0, len(a.proxies))
	for _, p := range a.proxies {
		out = append(out, p)
	}
	return out
}

// Lookup returns the proxy for a remote participant prefix, if known.
func (a *SpdpAgent) Lookup(prefix types.GuidPrefix) (*ParticipantProxy, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.proxies[prefix]
	return p, ok
}
