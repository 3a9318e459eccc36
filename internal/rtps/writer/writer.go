// Package writer implements the stateful RTPS writer engine (§4.4): the
// per-matched-reader Unsent/Requested bookkeeping, periodic DATA/GAP and
// HEARTBEAT emission, ACKNACK-driven repair, and per-instance offered
// deadline tracking.
package writer

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/dittofs/internal/logger"
	"github.com/marmos91/dittofs/internal/rtps/historycache"
	"github.com/marmos91/dittofs/internal/rtps/message"
	"github.com/marmos91/dittofs/internal/rtps/proxy"
	"github.com/marmos91/dittofs/internal/rtps/types"
)

// Sender addresses submessages to a matched reader. The participant actor
// supplies an implementation that serializes and hands the message to the
// transport, targeting the reader's unicast or multicast locators.
type Sender interface {
	SendData(ctx context.Context, reader types.GUID, d message.Data) error
	SendGap(ctx context.Context, reader types.GUID, g message.Gap) error
	SendHeartbeat(ctx context.Context, reader types.GUID, hb message.Heartbeat) error
}

// DeadlineListener is notified when an instance misses its offered
// deadline (§4.4, §4.9 OfferedDeadlineMissed).
type DeadlineListener interface {
	OfferedDeadlineMissed(instance historycache.InstanceHandle)
}

// Config configures a StatefulWriter.
type Config struct {
	WriterGUID        types.GUID
	Reliable          bool
	HeartbeatPeriod   time.Duration
	NackResponseDelay time.Duration
	DeadlinePeriod    time.Duration // 0 disables offered-deadline tracking
	History           *historycache.HistoryCache
	Sender            Sender
	DeadlineListener  DeadlineListener
}

// StatefulWriter implements §4.4's per-reader-proxy state machine.
type StatefulWriter struct {
	mu             sync.Mutex
	cfg            Config
	proxies        map[types.GUID]*proxy.ReaderProxy
	order          []types.GUID
	lastChangeSN   types.SequenceNumber
	heartbeatCount uint32
	deadlines      map[historycache.InstanceHandle]*time.Timer
	closeCh        chan struct{}
	closed         bool
}

// New constructs a StatefulWriter and starts its periodic DATA/GAP
// emission loop, and, for reliable writers, the heartbeat loop.
func New(cfg Config) *StatefulWriter {
	w := &StatefulWriter{
		cfg:       cfg,
		proxies:   make(map[types.GUID]*proxy.ReaderProxy),
		deadlines: make(map[historycache.InstanceHandle]*time.Timer),
		closeCh:   make(chan struct{}),
	}
	if cfg.HeartbeatPeriod > 0 {
		go w.emissionLoop()
	}
	if cfg.Reliable && cfg.HeartbeatPeriod > 0 {
		go w.heartbeatLoop()
	}
	return w
}

// Close stops the writer's background loops and cancels any armed
// deadline timers.
func (w *StatefulWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.closeCh)
	for _, t := range w.deadlines {
		t.Stop()
	}
}

// MatchReader creates (or returns the existing) ReaderProxy for remote,
// backfilling every change already in the writer's history as Unsent.
func (w *StatefulWriter) MatchReader(remote types.GUID, unicast, multicast []types.Locator, expectsInlineQos bool) *proxy.ReaderProxy {
	w.mu.Lock()
	if rp, ok := w.proxies[remote]; ok {
		w.mu.Unlock()
		return rp
	}
	rp := proxy.NewReaderProxy(remote)
	rp.UnicastLocators = unicast
	rp.MulticastLocators = multicast
	rp.ExpectsInlineQos = expectsInlineQos
	w.proxies[remote] = rp
	w.order = append(w.order, remote)
	w.mu.Unlock()

	for _, c := range w.cfg.History.Changes() {
		rp.AddChange(c.SequenceNumber)
	}
	return rp
}

// UnmatchReader drops the proxy for remote.
func (w *StatefulWriter) UnmatchReader(remote types.GUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.proxies, remote)
	for i, g := range w.order {
		if g == remote {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

func (w *StatefulWriter) matchedProxies() []*proxy.ReaderProxy {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*proxy.ReaderProxy, 0, len(w.order))
	for _, g := range w.order {
		out = append(out, w.proxies[g])
	}
	return out
}

// Write adds change to the history cache, assigns it the next sequence
// number, announces it Unsent to every matched reader proxy, and arms the
// instance's offered-deadline timer (§4.4).
func (w *StatefulWriter) Write(ctx context.Context, change *historycache.CacheChange) (types.SequenceNumber, error) {
	w.mu.Lock()
	w.lastChangeSN++
	sn := w.lastChangeSN
	w.mu.Unlock()

	change.WriterGUID = w.cfg.WriterGUID
	change.SequenceNumber = sn
	if err := w.cfg.History.AddChange(ctx, change); err != nil {
		w.mu.Lock()
		w.lastChangeSN--
		w.mu.Unlock()
		return 0, err
	}

	for _, rp := range w.matchedProxies() {
		rp.AddChange(sn)
	}
	w.armDeadline(change.InstanceHandle)
	return sn, nil
}

func (w *StatefulWriter) armDeadline(instance historycache.InstanceHandle) {
	if w.cfg.DeadlinePeriod <= 0 || w.cfg.DeadlineListener == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if t, ok := w.deadlines[instance]; ok {
		t.Stop()
	}
	w.deadlines[instance] = time.AfterFunc(w.cfg.DeadlinePeriod, func() {
		w.cfg.DeadlineListener.OfferedDeadlineMissed(instance)
	})
}

// HandleAckNack applies an inbound ACKNACK: changes up to base-1 are
// Acknowledged; every sequence number in the set is marked Requested
// unless already Acknowledged, to be repaired by the next repair cycle
// (§4.4). The ACKNACK Count is not compared with earlier ones: every
// ACKNACK received, including a stale or repeated one, is applied.
func (w *StatefulWriter) HandleAckNack(readerGUID types.GUID, ack message.AckNack) {
	w.mu.Lock()
	rp, ok := w.proxies[readerGUID]
	w.mu.Unlock()
	if !ok {
		return
	}
	rp.AckedChangesSet(ack.ReaderSNState.Base - 1)
	for _, sn := range ack.ReaderSNState.Members {
		rp.MarkRequested(sn)
	}
	if w.cfg.NackResponseDelay > 0 {
		time.AfterFunc(w.cfg.NackResponseDelay, func() { w.repair(rp) })
	} else {
		w.repair(rp)
	}
}

// repair sends one DATA (or GAP, if the change has since been evicted)
// for the lowest Requested sequence number; each call is one repair
// cycle (§4.4).
func (w *StatefulWriter) repair(rp *proxy.ReaderProxy) {
	requested := rp.Requested()
	if len(requested) == 0 {
		return
	}
	sn := requested[0]
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.NackResponseDelay+time.Second)
	defer cancel()
	w.sendChangeOrGap(ctx, rp, sn)
}

// emissionLoop periodically drains each proxy's Unsent set, oldest first,
// one change per tick (§4.4).
func (w *StatefulWriter) emissionLoop() {
	ticker := time.NewTicker(w.cfg.HeartbeatPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-w.closeCh:
			return
		case <-ticker.C:
			w.drainUnsent()
		}
	}
}

func (w *StatefulWriter) drainUnsent() {
	for _, rp := range w.matchedProxies() {
		unsent := rp.Unsent()
		if len(unsent) == 0 {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), w.cfg.HeartbeatPeriod)
		w.sendChangeOrGap(ctx, rp, unsent[0])
		cancel()
	}
}

func (w *StatefulWriter) sendChangeOrGap(ctx context.Context, rp *proxy.ReaderProxy, sn types.SequenceNumber) {
	change, ok := w.findChange(sn)
	if !ok {
		gap := message.Gap{
			ReaderId: rp.RemoteReaderGUID.Entity,
			WriterId: w.cfg.WriterGUID.Entity,
			First:    sn,
			Set:      message.SequenceNumberSet{Base: sn + 1},
		}
		if err := w.cfg.Sender.SendGap(ctx, rp.RemoteReaderGUID, gap); err != nil {
			logger.Warnf("failed to send GAP for evicted change %d to %s: %v", int64(sn), rp.RemoteReaderGUID, err)
			return
		}
		rp.MarkSent(sn)
		rp.AckedChangesSet(sn)
		return
	}

	d := message.Data{
		ReaderId:          rp.RemoteReaderGUID.Entity,
		WriterId:          w.cfg.WriterGUID.Entity,
		WriterSN:          sn,
		SerializedPayload: change.SerializedPayload,
		IsKey:             change.Kind != historycache.ChangeKindAlive,
	}
	if err := w.cfg.Sender.SendData(ctx, rp.RemoteReaderGUID, d); err != nil {
		logger.Warnf("failed to send DATA sn=%d to %s: %v", int64(sn), rp.RemoteReaderGUID, err)
		return
	}
	rp.MarkSent(sn)
	if !w.cfg.Reliable {
		rp.AckedChangesSet(sn)
	}
}

// AcknowledgedByAll reports whether every currently matched reader proxy
// has acknowledged sn, satisfying historycache.AckChecker so a reliable
// writer's own history cache can block KeepLast eviction on it (§4.2
// rule 4, §4.4).
func (w *StatefulWriter) AcknowledgedByAll(sn types.SequenceNumber) bool {
	for _, rp := range w.matchedProxies() {
		if !rp.AcknowledgedByAll(sn) {
			return false
		}
	}
	return true
}

func (w *StatefulWriter) findChange(sn types.SequenceNumber) (*historycache.CacheChange, bool) {
	for _, c := range w.cfg.History.Changes() {
		if c.SequenceNumber == sn {
			return c, true
		}
	}
	return nil, false
}

// heartbeatLoop emits a HEARTBEAT every HeartbeatPeriod to every proxy
// with unacknowledged changes (§4.4, reliable writers only).
func (w *StatefulWriter) heartbeatLoop() {
	ticker := time.NewTicker(w.cfg.HeartbeatPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-w.closeCh:
			return
		case <-ticker.C:
			w.emitHeartbeats()
		}
	}
}

func (w *StatefulWriter) emitHeartbeats() {
	firstSN, ok := w.cfg.History.SeqNumMin()
	if !ok {
		firstSN = w.lastChangeSN + 1
	}
	lastSN := w.lastChangeSN

	for _, rp := range w.matchedProxies() {
		if !rp.UnacknowledgedChangesExist() {
			continue
		}
		hb := message.Heartbeat{
			ReaderId: rp.RemoteReaderGUID.Entity,
			WriterId: w.cfg.WriterGUID.Entity,
			FirstSN:  firstSN,
			LastSN:   lastSN,
			Count:    rp.NextHeartbeatCount(),
			Final:    false,
		}
		ctx, cancel := context.WithTimeout(context.Background(), w.cfg.HeartbeatPeriod)
		err := w.cfg.Sender.SendHeartbeat(ctx, rp.RemoteReaderGUID, hb)
		cancel()
		if err != nil {
			logger.Warnf("failed to send HEARTBEAT to %s: %v", rp.RemoteReaderGUID, err)
		}
	}
}
