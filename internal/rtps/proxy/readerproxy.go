// Package proxy implements C3: the per-remote-endpoint bookkeeping a
// local writer keeps about each matched reader (ReaderProxy) and a local
// reader keeps about each matched writer (WriterProxy), per §3.
package proxy

import (
	"sort"
	"sync"
	"time"

	"github.com/marmos91/dittofs/internal/rtps/types"
)

// ChangeForReaderStatus is the per-change status a ReaderProxy tracks
// (§3).
type ChangeForReaderStatus int

const (
	StatusUnsent ChangeForReaderStatus = iota
	StatusUnacknowledged
	StatusRequested
	StatusAcknowledged
	StatusUnderway
)

// ReaderProxy is held inside a writer for each matched remote reader.
type ReaderProxy struct {
	mu sync.Mutex

	RemoteReaderGUID  types.GUID
	RemoteGroupEntity types.EntityId
	UnicastLocators   []types.Locator
	MulticastLocators []types.Locator
	ExpectsInlineQos  bool

	status         map[types.SequenceNumber]ChangeForReaderStatus
	lastChangeSeq  types.SequenceNumber
	heartbeatCount uint32
	lastNackTime   time.Time
}

// NewReaderProxy constructs a ReaderProxy with no changes yet known.
func NewReaderProxy(remote types.GUID) *ReaderProxy {
	return &ReaderProxy{RemoteReaderGUID: remote, status: make(map[types.SequenceNumber]ChangeForReaderStatus)}
}

// AddChange records a newly written sequence number as Unsent.
func (p *ReaderProxy) AddChange(sn types.SequenceNumber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status[sn] = StatusUnsent
	if sn > p.lastChangeSeq {
		p.lastChangeSeq = sn
	}
}

// Unsent returns every sequence number still in the Unsent state, sorted.
func (p *ReaderProxy) Unsent() []types.SequenceNumber {
	return p.withStatus(StatusUnsent)
}

// Requested returns every sequence number in the Requested state, sorted.
func (p *ReaderProxy) Requested() []types.SequenceNumber {
	return p.withStatus(StatusRequested)
}

func (p *ReaderProxy) withStatus(want ChangeForReaderStatus) []types.SequenceNumber {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []types.SequenceNumber
	for sn, st := range p.status {
		if st == want {
			out = append(out, sn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MarkSent transitions sn from Unsent to Unacknowledged (or Acknowledged
// directly for BestEffort, handled by the caller).
func (p *ReaderProxy) MarkSent(sn types.SequenceNumber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status[sn] == StatusUnsent {
		p.status[sn] = StatusUnacknowledged
	}
}

// MarkRequested transitions sn to Requested unless it is already
// Acknowledged.
func (p *ReaderProxy) MarkRequested(sn types.SequenceNumber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status[sn] != StatusAcknowledged {
		p.status[sn] = StatusRequested
	}
}

// AckedChangesSet marks every sequence number ≤ upTo as Acknowledged.
// Acknowledged is monotone: once set for a sequence number, it is never
// cleared (§3 invariant).
func (p *ReaderProxy) AckedChangesSet(upTo types.SequenceNumber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for sn := range p.status {
		if sn <= upTo {
			p.status[sn] = StatusAcknowledged
		}
	}
}

// AcknowledgedByAll reports whether sn is Acknowledged for this proxy,
// satisfying the historycache.AckChecker contract when combined across
// every matched proxy.
func (p *ReaderProxy) AcknowledgedByAll(sn types.SequenceNumber) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.status[sn]
	return !ok || st == StatusAcknowledged
}

// NextHeartbeatCount increments and returns the heartbeat_count.
func (p *ReaderProxy) NextHeartbeatCount() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.heartbeatCount++
	return p.heartbeatCount
}

// UnacknowledgedChangesExist reports whether any change is not yet
// Acknowledged, used to decide whether to keep sending heartbeats.
func (p *ReaderProxy) UnacknowledgedChangesExist() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, st := range p.status {
		if st != StatusAcknowledged {
			return true
		}
	}
	return false
}
