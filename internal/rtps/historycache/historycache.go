package historycache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/marmos91/dittofs/internal/rtps/types"
	"github.com/marmos91/dittofs/pkg/metrics"
)

// ErrOutOfResources is returned when a write would violate a configured
// ResourceLimits bound (§4.2).
var ErrOutOfResources = errors.New("historycache: out of resources")

// ErrTimeout is returned when a reliable KeepLast eviction's wait for
// acknowledgment expires before max_blocking_time (§4.2 rule 4).
var ErrTimeout = errors.New("historycache: timeout waiting for acknowledgment")

// HistoryKind selects between KeepLast(depth) and KeepAll.
type HistoryKind int

const (
	KeepLast HistoryKind = iota
	KeepAll
)

// History is the History QoS policy.
type History struct {
	Kind  HistoryKind
	Depth int // meaningful only when Kind == KeepLast
}

// Unlimited marks a ResourceLimits field as having no bound.
const Unlimited = -1

// ResourceLimits is the ResourceLimits QoS policy.
type ResourceLimits struct {
	MaxSamples            int
	MaxInstances          int
	MaxSamplesPerInstance int
}

// DefaultResourceLimits has every bound set to Unlimited.
func DefaultResourceLimits() ResourceLimits {
	return ResourceLimits{MaxSamples: Unlimited, MaxInstances: Unlimited, MaxSamplesPerInstance: Unlimited}
}

// AckChecker reports whether a change has been acknowledged by every
// reader currently matched with the owning writer. The writer engine
// supplies the concrete implementation; HistoryCache only needs to poll
// it while blocked on a reliable KeepLast eviction.
type AckChecker interface {
	AcknowledgedByAll(sn types.SequenceNumber) bool
}

// EndpointKind labels a cache instance for metrics (§1 ambient stack).
type EndpointKind string

const (
	EndpointKindReader EndpointKind = "reader"
	EndpointKindWriter EndpointKind = "writer"
)

// HistoryCache holds cache changes for one endpoint in insertion order
// plus a per-instance index (§3).
type HistoryCache struct {
	mu       sync.Mutex
	changes  []*CacheChange
	instances map[InstanceHandle][]*CacheChange

	history        History
	resourceLimits ResourceLimits
	reliable       bool
	maxBlockingTime time.Duration
	ackChecker     AckChecker
	endpointKind   EndpointKind

	metrics metrics.HistoryCacheMetrics
}

// Config configures a new HistoryCache.
type Config struct {
	History         History
	ResourceLimits  ResourceLimits
	Reliable        bool
	MaxBlockingTime time.Duration
	AckChecker      AckChecker
	EndpointKind    EndpointKind
}

// New constructs an empty HistoryCache.
func New(cfg Config) *HistoryCache {
	hc := &HistoryCache{
		instances:       make(map[InstanceHandle][]*CacheChange),
		history:         cfg.History,
		resourceLimits:  cfg.ResourceLimits,
		reliable:        cfg.Reliable,
		maxBlockingTime: cfg.MaxBlockingTime,
		ackChecker:      cfg.AckChecker,
		endpointKind:    cfg.EndpointKind,
		metrics:         metrics.NewHistoryCacheMetrics(),
	}
	return hc
}

func (hc *HistoryCache) countAlive(instance InstanceHandle) int {
	n := 0
	for _, c := range hc.instances[instance] {
		if c.Kind == ChangeKindAlive {
			n++
		}
	}
	return n
}

func (hc *HistoryCache) totalAlive() int {
	n := 0
	for _, c := range hc.changes {
		if c.Kind == ChangeKindAlive {
			n++
		}
	}
	return n
}

// AddChange inserts change, enforcing the write_w_timestamp resource
// policy (§4.2). ctx bounds the KeepLast eviction's blocking wait; when
// ctx carries no deadline, the configured MaxBlockingTime applies.
func (hc *HistoryCache) AddChange(ctx context.Context, change *CacheChange) error {
	start := time.Now()
	defer func() { metrics.ObserveAdd(hc.metrics, string(hc.endpointKind), time.Since(start)) }()

	hc.mu.Lock()
	defer hc.mu.Unlock()

	_, instanceExists := hc.instances[change.InstanceHandle]

	rl := hc.resourceLimits
	if rl.MaxInstances != Unlimited && !instanceExists && len(hc.instances) >= rl.MaxInstances {
		metrics.RecordResourceLimitHit(hc.metrics, string(hc.endpointKind), "max_instances")
		return ErrOutOfResources
	}

	instanceAlive := hc.countAlive(change.InstanceHandle)
	keepLastFits := hc.history.Kind == KeepLast && rl.MaxSamplesPerInstance != Unlimited && hc.history.Depth <= rl.MaxSamplesPerInstance
	if rl.MaxSamplesPerInstance != Unlimited && instanceAlive >= rl.MaxSamplesPerInstance && !keepLastFits {
		metrics.RecordResourceLimitHit(hc.metrics, string(hc.endpointKind), "max_samples_per_instance")
		return ErrOutOfResources
	}

	if rl.MaxSamples != Unlimited && hc.totalAlive() >= rl.MaxSamples {
		metrics.RecordResourceLimitHit(hc.metrics, string(hc.endpointKind), "max_samples")
		return ErrOutOfResources
	}

	if hc.history.Kind == KeepLast && instanceAlive >= hc.history.Depth {
		if err := hc.evictOldestLocked(ctx, change.InstanceHandle); err != nil {
			return err
		}
	}

	hc.changes = append(hc.changes, change)
	hc.instances[change.InstanceHandle] = append(hc.instances[change.InstanceHandle], change)
	metrics.RecordCacheSize(hc.metrics, string(hc.endpointKind), len(hc.changes))
	return nil
}

// evictPollInterval bounds how long evictOldestLocked sleeps between
// acknowledgment checks while blocked.
const evictPollInterval = 5 * time.Millisecond

// evictOldestLocked removes the oldest alive change of instance, blocking
// a reliable writer up to MaxBlockingTime for it to be acknowledged by
// every matched reader first (§4.2 rule 4). Caller holds hc.mu; the lock
// is released while sleeping between checks.
func (hc *HistoryCache) evictOldestLocked(ctx context.Context, instance InstanceHandle) error {
	deadline := time.Now().Add(hc.maxBlockingTime)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	for {
		changes := hc.instances[instance]
		if len(changes) == 0 {
			return nil
		}
		oldest := changes[0]
		if !hc.reliable || hc.ackChecker == nil || hc.ackChecker.AcknowledgedByAll(oldest.SequenceNumber) {
			hc.removeLocked(oldest)
			return nil
		}
		if !time.Now().Add(evictPollInterval).Before(deadline) && time.Now().After(deadline) {
			return ErrTimeout
		}
		hc.mu.Unlock()
		select {
		case <-time.After(evictPollInterval):
		case <-ctx.Done():
			hc.mu.Lock()
			return ctx.Err()
		}
		hc.mu.Lock()
		if time.Now().After(deadline) {
			return ErrTimeout
		}
	}
}

func (hc *HistoryCache) removeLocked(change *CacheChange) {
	for i, c := range hc.changes {
		if c == change {
			hc.changes = append(hc.changes[:i], hc.changes[i+1:]...)
			break
		}
	}
	list := hc.instances[change.InstanceHandle]
	for i, c := range list {
		if c == change {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(hc.instances, change.InstanceHandle)
	} else {
		hc.instances[change.InstanceHandle] = list
	}
}

// RemoveChange removes the change with the given sequence number,
// reported by its owner writer GUID (sequence numbers are only unique
// per writer).
func (hc *HistoryCache) RemoveChange(writer types.GUID, sn types.SequenceNumber) bool {
	start := time.Now()
	defer func() { metrics.ObserveRemove(hc.metrics, string(hc.endpointKind), time.Since(start)) }()

	hc.mu.Lock()
	defer hc.mu.Unlock()
	for _, c := range hc.changes {
		if c.WriterGUID == writer && c.SequenceNumber == sn {
			hc.removeLocked(c)
			metrics.RecordCacheSize(hc.metrics, string(hc.endpointKind), len(hc.changes))
			return true
		}
	}
	return false
}

// SeqNumMin returns the smallest sequence number held, or false if empty.
func (hc *HistoryCache) SeqNumMin() (types.SequenceNumber, bool) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	if len(hc.changes) == 0 {
		return 0, false
	}
	return hc.changes[0].SequenceNumber, true
}

// SeqNumMax returns the largest sequence number held, or false if empty.
func (hc *HistoryCache) SeqNumMax() (types.SequenceNumber, bool) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	if len(hc.changes) == 0 {
		return 0, false
	}
	return hc.changes[len(hc.changes)-1].SequenceNumber, true
}

// Changes returns a snapshot of every change currently held, in
// insertion order.
func (hc *HistoryCache) Changes() []*CacheChange {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	out := make([]*CacheChange, len(hc.changes))
	copy(out, hc.changes)
	return out
}

// InstanceChanges returns a snapshot of the changes held for one
// instance, in insertion order.
func (hc *HistoryCache) InstanceChanges(instance InstanceHandle) []*CacheChange {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	list := hc.instances[instance]
	out := make([]*CacheChange, len(list))
	copy(out, list)
	return out
}

// SetAckChecker wires the AckChecker after construction, for the common
// case where the checker (the owning writer) itself needs a reference to
// this cache to be built first.
func (hc *HistoryCache) SetAckChecker(checker AckChecker) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.ackChecker = checker
}

// Len returns the number of changes currently held.
func (hc *HistoryCache) Len() int {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	return len(hc.changes)
}
