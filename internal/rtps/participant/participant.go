// Package participant implements C7: the single-threaded, mail-addressed
// actor that owns one DomainParticipant's endpoints, discovery state, and
// status bookkeeping (§4.6). All participant-scoped mutation happens on
// the actor's own goroutine; callers communicate by sending typed Mail
// and waiting on its reply channel, exactly as dittofs's protocol
// handlers communicate with their connection state machines through a
// single serializing goroutine rather than shared locks.
package participant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/dittofs/internal/logger"
	"github.com/marmos91/dittofs/internal/rtps/discovery"
	"github.com/marmos91/dittofs/internal/rtps/message"
	"github.com/marmos91/dittofs/internal/rtps/status"
	"github.com/marmos91/dittofs/internal/rtps/transport"
	"github.com/marmos91/dittofs/internal/rtps/types"
)

// DefaultLeaseCheckPeriod is how often the actor scans matched remote
// participants for lease expiry (§4.6).
const DefaultLeaseCheckPeriod = time.Second

// Config configures a Participant.
type Config struct {
	DomainID                 int
	DomainTag                string
	Transport                transport.Transport
	MetatrafficMulticastLoc  types.Locator
	AnnouncePeriod           time.Duration
	LeaseDuration            time.Duration
	HeartbeatPeriod          time.Duration
	NackResponseDelay        time.Duration
	HeartbeatResponseDelay   time.Duration
	MailboxCapacity          int
}

func (c *Config) setDefaults() {
	if c.AnnouncePeriod <= 0 {
		c.AnnouncePeriod = discovery.DefaultAnnouncePeriod
	}
	if c.LeaseDuration <= 0 {
		c.LeaseDuration = discovery.DefaultLeaseDuration
	}
	if c.HeartbeatPeriod <= 0 {
		c.HeartbeatPeriod = 500 * time.Millisecond
	}
	if c.NackResponseDelay <= 0 {
		c.NackResponseDelay = 100 * time.Millisecond
	}
	if c.HeartbeatResponseDelay <= 0 {
		c.HeartbeatResponseDelay = 100 * time.Millisecond
	}
	if c.MailboxCapacity <= 0 {
		c.MailboxCapacity = 256
	}
}

// Participant is the C7 actor. Construct with New and drive it with
// Run; every other method sends mail and blocks for the reply.
type Participant struct {
	cfg        Config
	selfPrefix types.GuidPrefix
	guid       types.GUID

	mailbox chan Mail
	closeCh chan struct{}
	closeOnce sync.Once
	group   *errgroup.Group

	nextEntityKey uint32

	writers map[types.GUID]*writerEntity
	readers map[types.GUID]*readerEntity

	endpointLocators       map[types.GUID][]types.Locator
	readerExpectsInlineQos map[types.GUID]bool
	participantLocators    map[types.GuidPrefix][]types.Locator

	spdp *discovery.SpdpAgent
	sedp *discovery.SedpAgent

	sedpPubWriter *builtinWriter
	sedpPubReader *builtinReader
	sedpSubWriter *builtinWriter
	sedpSubReader *builtinReader
}

// New constructs a Participant with a freshly generated GuidPrefix and
// starts its background goroutines (actor loop, announce/lease timers,
// transport dispatch). Call Close to tear it all down.
func New(cfg Config) (*Participant, error) {
	cfg.setDefaults()
	if cfg.Transport == nil {
		return nil, fmt.Errorf("participant: Transport is required")
	}

	var prefix types.GuidPrefix
	id := uuid.New()
	copy(prefix[:], id[:12])

	p := &Participant{
		cfg:                 cfg,
		selfPrefix:          prefix,
		guid:                types.GUID{Prefix: prefix, Entity: types.EntityIdParticipant},
		mailbox:             make(chan Mail, cfg.MailboxCapacity),
		closeCh:             make(chan struct{}),
		writers:             make(map[types.GUID]*writerEntity),
		readers:             make(map[types.GUID]*readerEntity),
		endpointLocators:       make(map[types.GUID][]types.Locator),
		readerExpectsInlineQos: make(map[types.GUID]bool),
		participantLocators:    make(map[types.GuidPrefix][]types.Locator),
	}

	local := discovery.SpdpDiscoveredParticipantData{
		ProtocolVersion:           message.ProtocolVersion24,
		VendorId:                  message.VendorIdThisImplementation,
		ParticipantGUID:           p.guid,
		DefaultUnicastLocators:    []types.Locator{cfg.Transport.DefaultUnicastLocator()},
		MetatrafficUnicastLocators: []types.Locator{cfg.Transport.DefaultUnicastLocator()},
		MetatrafficMulticastLocators: []types.Locator{cfg.MetatrafficMulticastLoc},
		AvailableBuiltinEndpoints: discovery.BuiltinParticipantAnnouncer | discovery.BuiltinParticipantDetector |
			discovery.BuiltinPublicationsAnnouncer | discovery.BuiltinPublicationsDetector |
			discovery.BuiltinSubscriptionsAnnouncer | discovery.BuiltinSubscriptionsDetector,
		LeaseDuration: cfg.LeaseDuration,
		DomainID:      cfg.DomainID,
	}

	p.spdp = discovery.NewSpdpAgent(discovery.Config{
		Local:          local,
		Transport:      cfg.Transport,
		MulticastLoc:   cfg.MetatrafficMulticastLoc,
		AnnouncePeriod: cfg.AnnouncePeriod,
		Listener:       p,
	})
	p.sedp = discovery.NewSedpAgent(p)

	p.sedpPubWriter = p.newBuiltinWriter(types.EntityIdSEDPBuiltinPublicationsWriter)
	p.sedpPubReader = p.newBuiltinReader(types.EntityIdSEDPBuiltinPublicationsReader)
	p.sedpSubWriter = p.newBuiltinWriter(types.EntityIdSEDPBuiltinSubscriptionsWriter)
	p.sedpSubReader = p.newBuiltinReader(types.EntityIdSEDPBuiltinSubscriptionsReader)

	group, ctx := errgroup.WithContext(context.Background())
	p.group = group
	group.Go(func() error { p.run(ctx); return nil })

	return p, nil
}

// GUID returns this participant's own GUID.
func (p *Participant) GUID() types.GUID { return p.guid }

// Close stops every background goroutine and releases the transport.
func (p *Participant) Close() error {
	p.closeOnce.Do(func() { close(p.closeCh) })
	p.spdp.Close()
	_ = p.group.Wait()
	for _, we := range p.writers {
		we.sw.Close()
	}
	for _, re := range p.readers {
		re.sr.Close()
	}
	p.sedpPubWriter.sw.Close()
	p.sedpSubWriter.sw.Close()
	p.sedpPubReader.sr.Close()
	p.sedpSubReader.sr.Close()
	return p.cfg.Transport.Close()
}

// send submits mail and blocks until the actor processes it, honoring
// ctx cancellation on the wait (§5: "a caller cancellation cancels the
// wait but the enqueued mail still runs").
func send[R any](ctx context.Context, p *Participant, m Mail, reply chan R) (R, error) {
	select {
	case p.mailbox <- m:
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	case <-p.closeCh:
		var zero R
		return zero, fmt.Errorf("participant: closed")
	}
	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

func (p *Participant) run(ctx context.Context) {
	announce := time.NewTicker(p.cfg.AnnouncePeriod)
	lease := time.NewTicker(DefaultLeaseCheckPeriod)
	defer announce.Stop()
	defer lease.Stop()

	recv := p.cfg.Transport.Receive()
	for {
		select {
		case <-p.closeCh:
			return
		case <-ctx.Done():
			return
		case <-lease.C:
			p.spdp.CheckLeases(time.Now())
		case <-announce.C:
			p.reannounceSedp()
		case rcvd, ok := <-recv:
			if !ok {
				return
			}
			p.dispatchInbound(rcvd)
		case m := <-p.mailbox:
			p.handleMail(m)
		}
	}
}

func (p *Participant) handleMail(m Mail) {
	switch req := m.(type) {
	case CreateWriterMail:
		guid, err := p.createWriter(req)
		req.Reply <- CreateEndpointReply{GUID: guid, Err: err}
	case CreateReaderMail:
		guid, err := p.createReader(req)
		req.Reply <- CreateEndpointReply{GUID: guid, Err: err}
	case DeleteEndpointMail:
		req.Reply <- p.deleteEndpoint(req.GUID)
	case WriteMail:
		sn, err := p.write(req)
		req.Reply <- WriteReply{SequenceNumber: sn, Err: err}
	case ReadTakeMail:
		samples, err := p.readTake(req.ReaderGUID, req.Take)
		req.Reply <- ReadTakeReply{Samples: samples, Err: err}
	case MatchedMail:
		req.Reply <- p.sedp.MatchedRemotes(req.GUID)
	case StatusMail:
		req.Reply <- p.status(req.GUID)
	case AckedMail:
		we, ok := p.writers[req.WriterGUID]
		req.Reply <- ok && we.sw.AcknowledgedByAll(req.SN)
	default:
		logger.Warnf("participant: unknown mail type %T", m)
	}
}

func (p *Participant) allocEntityKey() [3]byte {
	p.nextEntityKey++
	n := p.nextEntityKey
	return [3]byte{byte(n >> 16), byte(n >> 8), byte(n)}
}

func (p *Participant) status(guid types.GUID) *status.Set {
	if w, ok := p.writers[guid]; ok {
		return w.status
	}
	if r, ok := p.readers[guid]; ok {
		return r.status
	}
	return nil
}

