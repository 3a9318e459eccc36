package proxy

import (
	"sync"
	"time"

	"github.com/marmos91/dittofs/internal/rtps/types"
)

// WriterProxy is held inside a reader for each matched remote writer.
// Its four sequence-number sets are pairwise disjoint and their union
// covers exactly [1..HighestProcessedSN] (§3 invariant).
type WriterProxy struct {
	mu sync.Mutex

	RemoteWriterGUID types.GUID
	Locators         []types.Locator

	highestProcessedSN types.SequenceNumber
	unknown            map[types.SequenceNumber]struct{}
	missing            map[types.SequenceNumber]struct{}
	lost               map[types.SequenceNumber]struct{}
	irrelevant         map[types.SequenceNumber]struct{}

	MustSendAck          bool
	ackNackCount         uint32
	highestHeartbeatCount uint32
	TimeHeartbeatReceived time.Time
}

// NewWriterProxy constructs a WriterProxy with no data received yet.
func NewWriterProxy(remote types.GUID) *WriterProxy {
	return &WriterProxy{
		RemoteWriterGUID: remote,
		unknown:          make(map[types.SequenceNumber]struct{}),
		missing:          make(map[types.SequenceNumber]struct{}),
		lost:             make(map[types.SequenceNumber]struct{}),
		irrelevant:       make(map[types.SequenceNumber]struct{}),
	}
}

// ReceivedChange moves sn (and advances HighestProcessedSN past any gap,
// marking the skipped range unknown) out of missing/unknown into
// neither set — it is simply no longer tracked, since the reader's
// HistoryCache now holds the authoritative copy.
func (wp *WriterProxy) ReceivedChange(sn types.SequenceNumber) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	wp.advanceToLocked(sn)
	delete(wp.missing, sn)
	delete(wp.unknown, sn)
}

// advanceToLocked moves HighestProcessedSN forward to at least sn,
// marking every newly-spanned sequence number unknown. Caller holds mu.
func (wp *WriterProxy) advanceToLocked(sn types.SequenceNumber) {
	if sn <= wp.highestProcessedSN {
		return
	}
	for s := wp.highestProcessedSN + 1; s < sn; s++ {
		wp.unknown[s] = struct{}{}
	}
	wp.highestProcessedSN = sn
}

// MarkIrrelevant marks sn (from a GAP submessage) as irrelevant,
// removing it from unknown/missing.
func (wp *WriterProxy) MarkIrrelevant(sn types.SequenceNumber) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	wp.advanceToLocked(sn)
	delete(wp.unknown, sn)
	delete(wp.missing, sn)
	wp.irrelevant[sn] = struct{}{}
}

// MissingChangesUpdate implements the reliable reader's response to a
// HEARTBEAT's last_sn: every sequence number in (highestProcessedSN,
// lastSN] not already known becomes missing (§4.3).
func (wp *WriterProxy) MissingChangesUpdate(lastSN types.SequenceNumber) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	for s := wp.highestProcessedSN + 1; s <= lastSN; s++ {
		if _, irrelevant := wp.irrelevant[s]; irrelevant {
			continue
		}
		wp.missing[s] = struct{}{}
		delete(wp.unknown, s)
	}
	if lastSN > wp.highestProcessedSN {
		wp.highestProcessedSN = lastSN
	}
}

// LostChangesUpdate marks every sequence number below firstSN that is
// still missing as lost — the writer has discarded them and they will
// never arrive (§4.3).
func (wp *WriterProxy) LostChangesUpdate(firstSN types.SequenceNumber) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	for sn := range wp.missing {
		if sn < firstSN {
			delete(wp.missing, sn)
			wp.lost[sn] = struct{}{}
		}
	}
	for sn := range wp.unknown {
		if sn < firstSN {
			delete(wp.unknown, sn)
			wp.lost[sn] = struct{}{}
		}
	}
}

// Missing returns a snapshot of the sequence numbers still missing.
func (wp *WriterProxy) Missing() []types.SequenceNumber {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	out := make([]types.SequenceNumber, 0, len(wp.missing))
	for sn := range wp.missing {
		out = append(out, sn)
	}
	return out
}

// AvailableChangesMax returns min(any still-unknown-or-missing sn) - 1,
// capped at HighestProcessedSN (§3 invariant).
func (wp *WriterProxy) AvailableChangesMax() types.SequenceNumber {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	max := wp.highestProcessedSN
	for sn := range wp.unknown {
		if sn-1 < max {
			max = sn - 1
		}
	}
	for sn := range wp.missing {
		if sn-1 < max {
			max = sn - 1
		}
	}
	return max
}

// HighestProcessedSN returns the highest sequence number this proxy has
// advanced past.
func (wp *WriterProxy) HighestProcessedSN() types.SequenceNumber {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.highestProcessedSN
}

// AcceptHeartbeatCount reports whether count is strictly greater than
// every previously seen heartbeat count, updating the high-water mark if
// so. Duplicate or stale counts are silently ignored (§4.3, §5).
func (wp *WriterProxy) AcceptHeartbeatCount(count uint32) bool {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if count <= wp.highestHeartbeatCount && wp.highestHeartbeatCount != 0 {
		return false
	}
	wp.highestHeartbeatCount = count
	return true
}

// NextAckNackCount increments and returns the ackNack_count.
func (wp *WriterProxy) NextAckNackCount() uint32 {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	wp.ackNackCount++
	return wp.ackNackCount
}
