// Package reader implements the stateful RTPS reader engine (§4.3): the
// per-matched-writer state machines that turn inbound DATA/GAP/HEARTBEAT
// submessages into history-cache changes and, for reliable readers,
// ACKNACK feedback.
package reader

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/dittofs/internal/logger"
	"github.com/marmos91/dittofs/internal/rtps/historycache"
	"github.com/marmos91/dittofs/internal/rtps/message"
	"github.com/marmos91/dittofs/internal/rtps/parameterlist"
	"github.com/marmos91/dittofs/internal/rtps/proxy"
	"github.com/marmos91/dittofs/internal/rtps/types"
)

// AckNackSender addresses an ACKNACK submessage to a matched writer. The
// participant actor supplies an implementation that serializes and hands
// the message to the transport.
type AckNackSender interface {
	SendAckNack(ctx context.Context, writer types.GUID, ack message.AckNack) error
}

// Config configures a StatefulReader.
type Config struct {
	ReaderGUID             types.GUID
	Reliable               bool
	HeartbeatResponseDelay time.Duration
	History                *historycache.HistoryCache
	Sender                 AckNackSender
}

// StatefulReader implements the best-effort and reliable reader state
// machines of §4.3, one WriterProxy per matched remote writer.
type StatefulReader struct {
	mu      sync.Mutex
	cfg     Config
	proxies map[types.GUID]*proxy.WriterProxy
	order   []types.GUID
	closeCh chan struct{}
	closed  bool
}

// New constructs a StatefulReader and, for reliable readers with a
// positive HeartbeatResponseDelay, starts its ACKNACK ticker.
func New(cfg Config) *StatefulReader {
	r := &StatefulReader{
		cfg:     cfg,
		proxies: make(map[types.GUID]*proxy.WriterProxy),
		closeCh: make(chan struct{}),
	}
	if cfg.Reliable && cfg.HeartbeatResponseDelay > 0 && cfg.Sender != nil {
		go r.ackNackLoop()
	}
	return r
}

// Close stops the ACKNACK ticker.
func (r *StatefulReader) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	close(r.closeCh)
}

// MatchWriter creates (or returns the existing) WriterProxy for remote,
// registering its locators and preserving insertion order for the §4.3
// tie-break rule.
func (r *StatefulReader) MatchWriter(remote types.GUID, locators []types.Locator) *proxy.WriterProxy {
	r.mu.Lock()
	defer r.mu.Unlock()
	if wp, ok := r.proxies[remote]; ok {
		return wp
	}
	wp := proxy.NewWriterProxy(remote)
	wp.Locators = locators
	r.proxies[remote] = wp
	r.order = append(r.order, remote)
	return wp
}

// UnmatchWriter drops the proxy for remote.
func (r *StatefulReader) UnmatchWriter(remote types.GUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.proxies, remote)
	for i, g := range r.order {
		if g == remote {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *StatefulReader) writerProxy(remote types.GUID) (*proxy.WriterProxy, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wp, ok := r.proxies[remote]
	return wp, ok
}

func (r *StatefulReader) matchedProxies() []*proxy.WriterProxy {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*proxy.WriterProxy, 0, len(r.order))
	for _, g := range r.order {
		out = append(out, r.proxies[g])
	}
	return out
}

// changeKind maps a DATA submessage's K-flag plus any PID_STATUS_INFO
// inline QoS to the history cache's ChangeKind.
func changeKind(d message.Data) historycache.ChangeKind {
	if !d.IsKey {
		return historycache.ChangeKindAlive
	}
	if d.InlineQos != nil {
		if raw, ok := d.InlineQos.Get(parameterlist.PIDStatusInfo); ok && len(raw) == 4 {
			flags := raw[3]
			switch {
			case flags&parameterlist.StatusInfoUnregistered != 0:
				return historycache.ChangeKindNotAliveUnregistered
			case flags&parameterlist.StatusInfoDisposed != 0:
				return historycache.ChangeKindNotAliveDisposed
			}
		}
	}
	return historycache.ChangeKindNotAliveDisposed
}

// HandleData processes an inbound DATA from writerGUID addressed at
// instance (already key-hashed by the caller's TypeSupport/DynamicType
// layer). Duplicates — sequence numbers at or below what this proxy has
// already processed, for reliable readers — are dropped silently (§4.3).
func (r *StatefulReader) HandleData(ctx context.Context, writerGUID types.GUID, d message.Data, instance historycache.InstanceHandle, sourceTimestamp *time.Time) error {
	wp, ok := r.writerProxy(writerGUID)
	if !ok {
		return nil
	}
	sn := d.WriterSN
	if r.cfg.Reliable && sn <= wp.HighestProcessedSN() {
		return nil
	}

	change := &historycache.CacheChange{
		Kind:              changeKind(d),
		WriterGUID:        writerGUID,
		InstanceHandle:    instance,
		SequenceNumber:    sn,
		SourceTimestamp:   sourceTimestamp,
		SerializedPayload: d.SerializedPayload,
	}
	if err := r.cfg.History.AddChange(ctx, change); err != nil {
		logger.WarnCtx(ctx, "reader dropped change on AddChange failure",
			logger.Fmt(logger.KeyError, "%v", err),
			logger.Fmt(logger.KeySeqNum, "%d", int64(sn)))
		return err
	}
	wp.ReceivedChange(sn)
	return nil
}

// HandleGap processes an inbound GAP: every sequence number covered by
// [first, set.Base) and every member of set becomes irrelevant (§4.3).
func (r *StatefulReader) HandleGap(writerGUID types.GUID, g message.Gap) {
	wp, ok := r.writerProxy(writerGUID)
	if !ok {
		return
	}
	for sn := g.First; sn < g.Set.Base; sn++ {
		wp.MarkIrrelevant(sn)
	}
	for _, sn := range g.Set.Members {
		wp.MarkIrrelevant(sn)
	}
}

// HandleHeartbeat processes an inbound HEARTBEAT. Stale or duplicate
// counts are ignored. Otherwise the proxy's missing/lost sets are
// updated and, if the heartbeat demands a reply, MustSendAck is armed
// for the next ACKNACK tick (§4.3).
func (r *StatefulReader) HandleHeartbeat(writerGUID types.GUID, hb message.Heartbeat) {
	wp, ok := r.writerProxy(writerGUID)
	if !ok {
		return
	}
	if !wp.AcceptHeartbeatCount(hb.Count) {
		return
	}
	wp.MissingChangesUpdate(hb.LastSN)
	wp.LostChangesUpdate(hb.FirstSN)
	wp.TimeHeartbeatReceived = time.Now()
	if !hb.Final || len(wp.Missing()) > 0 {
		wp.MustSendAck = true
	}
}

// ackNackLoop fires every HeartbeatResponseDelay, emitting one ACKNACK
// per proxy with MustSendAck set, in insertion order (§4.3 tie-break).
func (r *StatefulReader) ackNackLoop() {
	ticker := time.NewTicker(r.cfg.HeartbeatResponseDelay)
	defer ticker.Stop()
	for {
		select {
		case <-r.closeCh:
			return
		case <-ticker.C:
			r.emitPendingAckNacks()
		}
	}
}

func (r *StatefulReader) emitPendingAckNacks() {
	for _, wp := range r.matchedProxies() {
		if !wp.MustSendAck {
			continue
		}
		base := wp.AvailableChangesMax() + 1
		ack := message.AckNack{
			ReaderId:      r.cfg.ReaderGUID.Entity,
			WriterId:      wp.RemoteWriterGUID.Entity,
			ReaderSNState: message.SequenceNumberSet{Base: base, Members: wp.Missing()},
			Count:         wp.NextAckNackCount(),
			Final:         true,
		}
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.HeartbeatResponseDelay)
		err := r.cfg.Sender.SendAckNack(ctx, wp.RemoteWriterGUID, ack)
		cancel()
		if err != nil {
			logger.Warnf("failed to send ACKNACK to %s: %v", wp.RemoteWriterGUID, err)
			continue
		}
		wp.MustSendAck = false
	}
}
