package dds

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/marmos91/dittofs/internal/logger"
	"github.com/marmos91/dittofs/internal/rtps/participant"
	"github.com/marmos91/dittofs/internal/rtps/transport/udpv4"
	"github.com/marmos91/dittofs/internal/rtps/types"
)

// DomainParticipantFactory is the process-wide singleton every
// application starts from (§6, §9 "Global state"). It holds interior
// synchronization, the set of live participants, and the default
// participant QoS. It has no bulk teardown: each participant is removed
// by its own DeleteParticipant call.
type DomainParticipantFactory struct {
	mu           sync.Mutex
	participants []*DomainParticipant
	defaultQos   Qos
	nextLocalPID map[int]int // next participant index to try binding, per domain
}

var (
	factoryOnce sync.Once
	factory     *DomainParticipantFactory
)

// TheParticipantFactory returns the process-wide factory singleton,
// constructing it on first use.
func TheParticipantFactory() *DomainParticipantFactory {
	factoryOnce.Do(func() {
		factory = &DomainParticipantFactory{defaultQos: DefaultQos(), nextLocalPID: make(map[int]int)}
	})
	return factory
}

// ParticipantConfig configures one DomainParticipant's transport and
// discovery timing.
type ParticipantConfig struct {
	// Interface restricts the multicast join to one NIC; nil joins on
	// the default interface.
	Interface *net.Interface
	// DomainTag is handed to the participant's configuration; discovery
	// does not compare it, so it does not keep participants apart.
	DomainTag string

	AnnouncePeriod    time.Duration
	LeaseDuration     time.Duration
	HeartbeatPeriod   time.Duration
	NackResponseDelay time.Duration
}

// SetDefaultParticipantQos replaces the factory's stored default
// participant QoS, as returned by GetDefaultParticipantQos.
// CreateParticipant does not read it.
func (f *DomainParticipantFactory) SetDefaultParticipantQos(q Qos) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaultQos = q
}

// GetDefaultParticipantQos returns the factory's current default QoS.
func (f *DomainParticipantFactory) GetDefaultParticipantQos() Qos {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.defaultQos
}

// CreateParticipant binds a UDPv4 transport for domainID, joins its
// metatraffic multicast group, and starts the participant actor (§6
// create_participant).
func (f *DomainParticipantFactory) CreateParticipant(domainID int, cfg ParticipantConfig) (*DomainParticipant, error) {
	multicastLoc := types.NewUDPv4Locator(net.IPv4(239, 255, 0, 1), types.PortBuiltinMulticast(domainID))

	t, err := f.bindTransport(domainID, cfg)
	if err != nil {
		return nil, newError(OutOfResources, "bind transport: %v", err)
	}

	p, err := participant.New(participant.Config{
		DomainID:                domainID,
		DomainTag:               cfg.DomainTag,
		Transport:               t,
		MetatrafficMulticastLoc: multicastLoc,
		AnnouncePeriod:          cfg.AnnouncePeriod,
		LeaseDuration:           cfg.LeaseDuration,
		HeartbeatPeriod:         cfg.HeartbeatPeriod,
		NackResponseDelay:       cfg.NackResponseDelay,
	})
	if err != nil {
		_ = t.Close()
		return nil, newError(ErrorCode, "create participant actor: %v", err)
	}

	dp := &DomainParticipant{
		factory:  f,
		core:     p,
		domainID: domainID,
		topics:   make(map[string]*Topic),
	}

	f.mu.Lock()
	f.participants = append(f.participants, dp)
	f.mu.Unlock()

	logger.Info("domain participant created", logger.Fmt(logger.KeyDomainID, "%d", domainID), logger.Fmt(logger.KeyParticipantGUID, "%s", p.GUID()))
	return dp, nil
}

// bindTransport binds a UDPv4 transport for domainID, probing
// successive participant-index ports the way OMG DDSI-RTPS §9.6.1.3
// expects multiple participants on one host to disambiguate their
// metatraffic unicast port: try pid 0, 1, 2, ... until one binds.
func (f *DomainParticipantFactory) bindTransport(domainID int, cfg ParticipantConfig) (*udpv4.Transport, error) {
	f.mu.Lock()
	start := f.nextLocalPID[domainID]
	f.mu.Unlock()

	const maxAttempts = 128
	var lastErr error
	for pid := start; pid < start+maxAttempts; pid++ {
		t, err := udpv4.New(udpv4.Config{
			Interface: cfg.Interface,
			Port:      types.PortBuiltinUnicast(domainID, pid),
			Multicast: net.IPv4(239, 255, 0, 1),
		})
		if err != nil {
			lastErr = err
			continue
		}
		f.mu.Lock()
		f.nextLocalPID[domainID] = pid + 1
		f.mu.Unlock()
		return t, nil
	}
	return nil, fmt.Errorf("no free participant unicast port in domain %d after %d attempts: %w", domainID, maxAttempts, lastErr)
}

// DeleteParticipant tears down dp and removes it from the factory's
// tracked set (§6 delete_participant). PreconditionNotMet if dp still
// has live publishers/subscribers/topics.
func (f *DomainParticipantFactory) DeleteParticipant(dp *DomainParticipant) error {
	if err := dp.checkNoChildren(); err != nil {
		return err
	}

	f.mu.Lock()
	for i, p := range f.participants {
		if p == dp {
			f.participants = append(f.participants[:i], f.participants[i+1:]...)
			break
		}
	}
	f.mu.Unlock()

	dp.deleted = true
	return dp.core.Close()
}
