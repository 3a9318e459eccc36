package dds_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittofs/pkg/dds"
)

// square mirrors the DDS Shapes demo's ShapeType used in spec.md §8
// scenario 1: a colored square keyed on its color.
type square struct {
	Color     string `dds:"key"`
	X         int32
	Y         int32
	ShapeSize int32
}

func newDomainParticipant(t *testing.T, domainTag string) *dds.DomainParticipant {
	t.Helper()
	dp, err := dds.TheParticipantFactory().CreateParticipant(0, dds.ParticipantConfig{
		DomainTag:      domainTag,
		AnnouncePeriod: 50 * time.Millisecond,
		LeaseDuration:  5 * time.Second,
	})
	require.NoError(t, err)
	require.NoError(t, dp.Enable())
	t.Cleanup(func() { _ = dp.Close() })
	return dp
}

func waitForMatch(t *testing.T, get func(ctx context.Context) ([]any, error)) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		matched, err := get(context.Background())
		if err == nil && len(matched) > 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("endpoints never matched within 2s")
}

// TestSingleBestEffortRoundTrip reproduces spec.md §8 scenario 1: a
// writer on "Square"/"ShapeType" and a reader on the same topic in a
// different participant, both on the same domain tag, must deliver a sample
// end to end over real UDP loopback sockets.
func TestSingleBestEffortRoundTrip(t *testing.T) {
	domainTag := "shapes-roundtrip"
	dpA := newDomainParticipant(t, domainTag)
	dpB := newDomainParticipant(t, domainTag)

	ts, err := dds.NewStructTypeSupport("ShapeType", square{})
	require.NoError(t, err)

	topicA, err := dpA.CreateTopic("Square", "ShapeType", ts)
	require.NoError(t, err)
	topicB, err := dpB.CreateTopic("Square", "ShapeType", ts)
	require.NoError(t, err)

	pub, err := dpA.CreatePublisher(dds.DefaultQos())
	require.NoError(t, err)
	writer, err := pub.CreateDataWriter(topicA, dds.DefaultQos())
	require.NoError(t, err)

	sub, err := dpB.CreateSubscriber(dds.DefaultQos())
	require.NoError(t, err)
	reader, err := sub.CreateDataReader(topicB, dds.DefaultQos())
	require.NoError(t, err)

	waitForMatch(t, func(ctx context.Context) ([]any, error) {
		m, err := writer.GetMatchedSubscriptions(ctx)
		out := make([]any, len(m))
		for i, v := range m {
			out[i] = v
		}
		return out, err
	})

	sample := square{Color: "BLUE", X: 10, Y: 10, ShapeSize: 30}
	_, err = writer.Write(context.Background(), sample)
	require.NoError(t, err)

	var samples []dds.Sample
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		samples, err = reader.Take(context.Background())
		require.NoError(t, err)
		if len(samples) > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.Len(t, samples, 1)
	got, ok := samples[0].Value.(*square)
	require.True(t, ok)
	assert.Equal(t, sample, *got)
	assert.True(t, samples[0].ValidData)
}

// TestIncompatibleQoSNeverMatches reproduces spec.md §8 scenario 4: a
// BestEffort writer and a Reliable reader on the same topic never match.
func TestIncompatibleQoSNeverMatches(t *testing.T) {
	domainTag := "shapes-incompatible-qos"
	dpA := newDomainParticipant(t, domainTag)
	dpB := newDomainParticipant(t, domainTag)

	ts, err := dds.NewStructTypeSupport("ShapeType", square{})
	require.NoError(t, err)

	topicA, err := dpA.CreateTopic("Square", "ShapeType", ts)
	require.NoError(t, err)
	topicB, err := dpB.CreateTopic("Square", "ShapeType", ts)
	require.NoError(t, err)

	pub, err := dpA.CreatePublisher(dds.DefaultQos())
	require.NoError(t, err)
	bestEffort := dds.NewQosBuilder().BestEffort().Build()
	writer, err := pub.CreateDataWriter(topicA, bestEffort)
	require.NoError(t, err)

	sub, err := dpB.CreateSubscriber(dds.DefaultQos())
	require.NoError(t, err)
	reliable := dds.NewQosBuilder().Reliable(time.Second).Build()
	reader, err := sub.CreateDataReader(topicB, reliable)
	require.NoError(t, err)

	time.Sleep(300 * time.Millisecond)

	matched, err := reader.GetMatchedPublications(context.Background())
	require.NoError(t, err)
	assert.Empty(t, matched)
}
