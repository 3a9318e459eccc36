package historycache

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/dittofs/internal/rtps/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func change(sn types.SequenceNumber, instance InstanceHandle) *CacheChange {
	return &CacheChange{Kind: ChangeKindAlive, SequenceNumber: sn, InstanceHandle: instance}
}

func TestAddChangeOrdersBySequenceNumber(t *testing.T) {
	hc := New(Config{History: History{Kind: KeepAll}, ResourceLimits: DefaultResourceLimits()})
	inst := InstanceHandle{1}
	require.NoError(t, hc.AddChange(context.Background(), change(1, inst)))
	require.NoError(t, hc.AddChange(context.Background(), change(2, inst)))

	min, ok := hc.SeqNumMin()
	require.True(t, ok)
	assert.EqualValues(t, 1, min)
	max, ok := hc.SeqNumMax()
	require.True(t, ok)
	assert.EqualValues(t, 2, max)
}

func TestKeepLastEvictsOldestBestEffort(t *testing.T) {
	hc := New(Config{
		History:        History{Kind: KeepLast, Depth: 2},
		ResourceLimits: ResourceLimits{MaxSamples: Unlimited, MaxInstances: Unlimited, MaxSamplesPerInstance: 2},
		Reliable:       false,
	})
	inst := InstanceHandle{1}
	require.NoError(t, hc.AddChange(context.Background(), change(1, inst)))
	require.NoError(t, hc.AddChange(context.Background(), change(2, inst)))
	require.NoError(t, hc.AddChange(context.Background(), change(3, inst)))

	changes := hc.InstanceChanges(inst)
	require.Len(t, changes, 2)
	assert.EqualValues(t, 2, changes[0].SequenceNumber)
	assert.EqualValues(t, 3, changes[1].SequenceNumber)
}

type fakeAckChecker struct{ acked bool }

func (f *fakeAckChecker) AcknowledgedByAll(types.SequenceNumber) bool { return f.acked }

func TestKeepLastReliableBlocksUntilAcknowledgedThenTimesOut(t *testing.T) {
	checker := &fakeAckChecker{acked: false}
	hc := New(Config{
		History:         History{Kind: KeepLast, Depth: 1},
		ResourceLimits:  ResourceLimits{MaxSamples: Unlimited, MaxInstances: Unlimited, MaxSamplesPerInstance: 1},
		Reliable:        true,
		MaxBlockingTime: 20 * time.Millisecond,
		AckChecker:      checker,
	})
	inst := InstanceHandle{1}
	require.NoError(t, hc.AddChange(context.Background(), change(1, inst)))

	err := hc.AddChange(context.Background(), change(2, inst))
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestMaxInstancesRejectsNewInstance(t *testing.T) {
	hc := New(Config{
		History:        History{Kind: KeepAll},
		ResourceLimits: ResourceLimits{MaxSamples: Unlimited, MaxInstances: 1, MaxSamplesPerInstance: Unlimited},
	})
	require.NoError(t, hc.AddChange(context.Background(), change(1, InstanceHandle{1})))
	err := hc.AddChange(context.Background(), change(2, InstanceHandle{2}))
	assert.ErrorIs(t, err, ErrOutOfResources)
}

func TestRemoveChangeRemovesFromBothIndexes(t *testing.T) {
	hc := New(Config{History: History{Kind: KeepAll}, ResourceLimits: DefaultResourceLimits()})
	inst := InstanceHandle{1}
	c := change(5, inst)
	c.WriterGUID = types.GUID{Prefix: types.GuidPrefix{9}}
	require.NoError(t, hc.AddChange(context.Background(), c))

	assert.True(t, hc.RemoveChange(c.WriterGUID, 5))
	assert.Equal(t, 0, hc.Len())
	assert.Empty(t, hc.InstanceChanges(inst))
}

func TestResourceLimitScenarioKeepLastTwoMaxTwo(t *testing.T) {
	// Mirrors spec §8 scenario 3: KeepLast(2) + max_samples_per_instance=2.
	hc := New(Config{
		History:        History{Kind: KeepLast, Depth: 2},
		ResourceLimits: ResourceLimits{MaxSamples: Unlimited, MaxInstances: Unlimited, MaxSamplesPerInstance: 2},
	})
	inst := InstanceHandle{1}
	for sn := types.SequenceNumber(1); sn <= 3; sn++ {
		require.NoError(t, hc.AddChange(context.Background(), change(sn, inst)))
	}
	changes := hc.InstanceChanges(inst)
	require.Len(t, changes, 2)
	assert.EqualValues(t, 2, changes[0].SequenceNumber)
	assert.EqualValues(t, 3, changes[1].SequenceNumber)
}
