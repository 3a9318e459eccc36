package writer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/dittofs/internal/rtps/historycache"
	"github.com/marmos91/dittofs/internal/rtps/message"
	"github.com/marmos91/dittofs/internal/rtps/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache() *historycache.HistoryCache {
	return historycache.New(historycache.Config{
		History:        historycache.History{Kind: historycache.KeepAll},
		ResourceLimits: historycache.DefaultResourceLimits(),
	})
}

type recordingSender struct {
	mu         sync.Mutex
	data       []message.Data
	gaps       []message.Gap
	heartbeats []message.Heartbeat
}

func (s *recordingSender) SendData(_ context.Context, _ types.GUID, d message.Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data, d)
	return nil
}

func (s *recordingSender) SendGap(_ context.Context, _ types.GUID, g message.Gap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gaps = append(s.gaps, g)
	return nil
}

func (s *recordingSender) SendHeartbeat(_ context.Context, _ types.GUID, hb message.Heartbeat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeats = append(s.heartbeats, hb)
	return nil
}

func (s *recordingSender) dataCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func (s *recordingSender) heartbeatCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.heartbeats)
}

func TestWriteAssignsMonotonicSequenceNumbers(t *testing.T) {
	w := New(Config{WriterGUID: types.GUID{Prefix: types.GuidPrefix{1}}, History: newCache()})
	sn1, err := w.Write(context.Background(), &historycache.CacheChange{InstanceHandle: historycache.InstanceHandle{1}})
	require.NoError(t, err)
	sn2, err := w.Write(context.Background(), &historycache.CacheChange{InstanceHandle: historycache.InstanceHandle{1}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, sn1)
	assert.EqualValues(t, 2, sn2)
}

func TestMatchReaderBackfillsExistingChangesAsUnsent(t *testing.T) {
	w := New(Config{WriterGUID: types.GUID{Prefix: types.GuidPrefix{1}}, History: newCache()})
	_, err := w.Write(context.Background(), &historycache.CacheChange{InstanceHandle: historycache.InstanceHandle{1}})
	require.NoError(t, err)

	rp := w.MatchReader(types.GUID{Prefix: types.GuidPrefix{2}}, nil, nil, false)
	assert.ElementsMatch(t, []types.SequenceNumber{1}, rp.Unsent())
}

func TestEmissionLoopDrainsUnsentIntoData(t *testing.T) {
	sender := &recordingSender{}
	w := New(Config{
		WriterGUID:      types.GUID{Prefix: types.GuidPrefix{1}},
		HeartbeatPeriod: 10 * time.Millisecond,
		History:         newCache(),
		Sender:          sender,
	})
	defer w.Close()

	rp := w.MatchReader(types.GUID{Prefix: types.GuidPrefix{2}}, nil, nil, false)
	_, err := w.Write(context.Background(), &historycache.CacheChange{InstanceHandle: historycache.InstanceHandle{1}})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return sender.dataCount() > 0 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, rp.Unsent())
}

func TestReliableHeartbeatLoopEmitsWhileUnacknowledged(t *testing.T) {
	sender := &recordingSender{}
	w := New(Config{
		WriterGUID:      types.GUID{Prefix: types.GuidPrefix{1}},
		Reliable:        true,
		HeartbeatPeriod: 10 * time.Millisecond,
		History:         newCache(),
		Sender:          sender,
	})
	defer w.Close()

	w.MatchReader(types.GUID{Prefix: types.GuidPrefix{2}}, nil, nil, false)
	_, err := w.Write(context.Background(), &historycache.CacheChange{InstanceHandle: historycache.InstanceHandle{1}})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return sender.heartbeatCount() > 0 }, time.Second, 5*time.Millisecond)
}

func TestHandleAckNackMarksAcknowledgedAndRequested(t *testing.T) {
	w := New(Config{WriterGUID: types.GUID{Prefix: types.GuidPrefix{1}}, Reliable: true, History: newCache(), Sender: &recordingSender{}})
	reader := types.GUID{Prefix: types.GuidPrefix{2}}
	rp := w.MatchReader(reader, nil, nil, false)
	_, err := w.Write(context.Background(), &historycache.CacheChange{InstanceHandle: historycache.InstanceHandle{1}})
	require.NoError(t, err)
	_, err = w.Write(context.Background(), &historycache.CacheChange{InstanceHandle: historycache.InstanceHandle{1}})
	require.NoError(t, err)

	w.HandleAckNack(reader, message.AckNack{ReaderSNState: message.SequenceNumberSet{Base: 2, Members: []types.SequenceNumber{2}}})
	assert.True(t, rp.AcknowledgedByAll(1))
	assert.ElementsMatch(t, []types.SequenceNumber{2}, rp.Requested())
}

func TestRepairSendsGapForEvictedChange(t *testing.T) {
	sender := &recordingSender{}
	w := New(Config{WriterGUID: types.GUID{Prefix: types.GuidPrefix{1}}, Reliable: true, History: newCache(), Sender: sender})
	reader := types.GUID{Prefix: types.GuidPrefix{2}}
	rp := w.MatchReader(reader, nil, nil, false)
	sn, err := w.Write(context.Background(), &historycache.CacheChange{InstanceHandle: historycache.InstanceHandle{1}})
	require.NoError(t, err)
	require.True(t, w.cfg.History.RemoveChange(w.cfg.WriterGUID, sn))

	rp.MarkRequested(sn)
	w.repair(rp)

	require.Len(t, sender.gaps, 1)
	assert.Equal(t, sn, sender.gaps[0].First)
}

type fakeDeadlineListener struct {
	mu   sync.Mutex
	hits []historycache.InstanceHandle
}

func (f *fakeDeadlineListener) OfferedDeadlineMissed(instance historycache.InstanceHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits = append(f.hits, instance)
}

func (f *fakeDeadlineListener) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.hits)
}

func TestOfferedDeadlineFiresAfterPeriodWithNoWrite(t *testing.T) {
	listener := &fakeDeadlineListener{}
	w := New(Config{
		WriterGUID:       types.GUID{Prefix: types.GuidPrefix{1}},
		DeadlinePeriod:   10 * time.Millisecond,
		History:          newCache(),
		DeadlineListener: listener,
	})
	defer w.Close()

	inst := historycache.InstanceHandle{1}
	_, err := w.Write(context.Background(), &historycache.CacheChange{InstanceHandle: inst})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return listener.count() > 0 }, time.Second, 5*time.Millisecond)
}
