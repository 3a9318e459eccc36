package proxy

import (
	"testing"

	"github.com/marmos91/dittofs/internal/rtps/types"
	"github.com/stretchr/testify/assert"
)

func TestReaderProxyUnsentThenAcknowledged(t *testing.T) {
	p := NewReaderProxy(types.GUID{})
	p.AddChange(1)
	p.AddChange(2)
	assert.ElementsMatch(t, []types.SequenceNumber{1, 2}, p.Unsent())

	p.MarkSent(1)
	p.AckedChangesSet(1)
	assert.True(t, p.AcknowledgedByAll(1))
	assert.False(t, p.AcknowledgedByAll(2))
}

func TestReaderProxyAcknowledgedIsMonotone(t *testing.T) {
	p := NewReaderProxy(types.GUID{})
	p.AddChange(1)
	p.AckedChangesSet(1)
	p.MarkRequested(1) // must not clear Acknowledged
	assert.True(t, p.AcknowledgedByAll(1))
}

func TestWriterProxyMissingUpdateFromHeartbeat(t *testing.T) {
	wp := NewWriterProxy(types.GUID{})
	wp.MissingChangesUpdate(3)
	assert.ElementsMatch(t, []types.SequenceNumber{1, 2, 3}, wp.Missing())
	assert.EqualValues(t, 0, wp.AvailableChangesMax())
}

func TestWriterProxyReceivedChangeRemovesFromMissing(t *testing.T) {
	wp := NewWriterProxy(types.GUID{})
	wp.MissingChangesUpdate(3)
	wp.ReceivedChange(1)
	assert.ElementsMatch(t, []types.SequenceNumber{2, 3}, wp.Missing())
}

func TestWriterProxyLostChangesUpdate(t *testing.T) {
	wp := NewWriterProxy(types.GUID{})
	wp.MissingChangesUpdate(5)
	wp.LostChangesUpdate(3)
	assert.ElementsMatch(t, []types.SequenceNumber{3, 4, 5}, wp.Missing())
}

func TestWriterProxyHeartbeatCountIgnoresStale(t *testing.T) {
	wp := NewWriterProxy(types.GUID{})
	assert.True(t, wp.AcceptHeartbeatCount(2))
	assert.False(t, wp.AcceptHeartbeatCount(1))
	assert.False(t, wp.AcceptHeartbeatCount(2))
	assert.True(t, wp.AcceptHeartbeatCount(3))
}
