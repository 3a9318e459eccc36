package reader

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

func TestBestEffortHandleDataInsertsIntoCache(t *testing.T) {
	cache := newCache()
	r := New(Config{History: cache})
	writer := types.GUID{Prefix: types.GuidPrefix{1}}
	r.MatchWriter(writer, nil)

	inst := historycache.InstanceHandle{1}
	require.NoError(t, r.HandleData(context.Background(), writer, message.Data{WriterSN: 1}, inst, nil))
	assert.Equal(t, 1, cache.Len())
}

func TestBestEffortDuplicateDataStillInsertedWhenNotReliable(t *testing.T) {
	cache := newCache()
	r := New(Config{History: cache, Reliable: false})
	writer := types.GUID{Prefix: types.GuidPrefix{1}}
	r.MatchWriter(writer, nil)

	inst := historycache.InstanceHandle{1}
	require.NoError(t, r.HandleData(context.Background(), writer, message.Data{WriterSN: 1}, inst, nil))
	require.NoError(t, r.HandleData(context.Background(), writer, message.Data{WriterSN: 1}, inst, nil))
}

func TestReliableDropsDuplicateBelowHighestProcessed(t *testing.T) {
	cache := newCache()
	r := New(Config{History: cache, Reliable: true})
	writer := types.GUID{Prefix: types.GuidPrefix{1}}
	wp := r.MatchWriter(writer, nil)

	inst := historycache.InstanceHandle{1}
	require.NoError(t, r.HandleData(context.Background(), writer, message.Data{WriterSN: 2}, inst, nil))
	assert.EqualValues(t, 2, wp.HighestProcessedSN())

	require.NoError(t, r.HandleData(context.Background(), writer, message.Data{WriterSN: 1}, inst, nil))
	assert.Equal(t, 1, cache.Len(), "duplicate/stale DATA must be dropped silently")
}

func TestHandleGapMarksRangeAndSetIrrelevant(t *testing.T) {
	r := New(Config{History: newCache()})
	writer := types.GUID{Prefix: types.GuidPrefix{1}}
	wp := r.MatchWriter(writer, nil)
	wp.MissingChangesUpdate(5)

	r.HandleGap(writer, message.Gap{
		First: 1,
		Set:   message.SequenceNumberSet{Base: 3, Members: []types.SequenceNumber{3}},
	})

	missing := wp.Missing()
	assert.ElementsMatch(t, []types.SequenceNumber{4, 5}, missing)
}

func TestHandleHeartbeatArmsMustSendAckWhenNotFinal(t *testing.T) {
	r := New(Config{History: newCache(), Reliable: true})
	writer := types.GUID{Prefix: types.GuidPrefix{1}}
	wp := r.MatchWriter(writer, nil)

	r.HandleHeartbeat(writer, message.Heartbeat{FirstSN: 1, LastSN: 3, Count: 1, Final: false})
	assert.True(t, wp.MustSendAck)
	assert.ElementsMatch(t, []types.SequenceNumber{1, 2, 3}, wp.Missing())
}

func TestHandleHeartbeatIgnoresStaleCount(t *testing.T) {
	r := New(Config{History: newCache(), Reliable: true})
	writer := types.GUID{Prefix: types.GuidPrefix{1}}
	wp := r.MatchWriter(writer, nil)

	r.HandleHeartbeat(writer, message.Heartbeat{FirstSN: 1, LastSN: 3, Count: 5, Final: true})
	wp.MustSendAck = false
	r.HandleHeartbeat(writer, message.Heartbeat{FirstSN: 1, LastSN: 10, Count: 5, Final: false})
	assert.False(t, wp.MustSendAck, "stale heartbeat count must be ignored")
}

type recordingSender struct {
	mu   sync.Mutex
	acks []message.AckNack
}

func (s *recordingSender) SendAckNack(_ context.Context, _ types.GUID, ack message.AckNack) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acks = append(s.acks, ack)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.acks)
}

func TestAckNackLoopEmitsWhenMustSendAckSet(t *testing.T) {
	sender := &recordingSender{}
	r := New(Config{
		Reliable:               true,
		HeartbeatResponseDelay: 10 * time.Millisecond,
		History:                newCache(),
		Sender:                 sender,
	})
	defer r.Close()

	writer := types.GUID{Prefix: types.GuidPrefix{1}}
	r.MatchWriter(writer, nil)
	r.HandleHeartbeat(writer, message.Heartbeat{FirstSN: 1, LastSN: 2, Count: 1, Final: false})

	require.Eventually(t, func() bool { return sender.count() > 0 }, time.Second, 5*time.Millisecond)
}
