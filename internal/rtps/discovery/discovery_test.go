package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/marmos91/dittofs/internal/rtps/message"
	"github.com/marmos91/dittofs/internal/rtps/qos"
	"github.com/marmos91/dittofs/internal/rtps/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleParticipantGUID() types.GUID {
	return types.GUID{
		Prefix: types.GuidPrefix{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		Entity: types.EntityId{EntityKey: [3]byte{0, 0, 1}, Kind: types.EntityKindBuiltinParticipant},
	}
}

// TestSpdpRoundTrip checks the round-trip law from spec.md §8: for the
// built-in discovery types, deserialize(serialize(x)) == x for all legal x.
func TestSpdpRoundTrip(t *testing.T) {
	want := SpdpDiscoveredParticipantData{
		ProtocolVersion: message.ProtocolVersion{Major: 2, Minor: 4},
		VendorId:        message.VendorId{0x01, 0x0f},
		ParticipantGUID: sampleParticipantGUID(),
		MetatrafficUnicastLocators: []types.Locator{
			types.NewUDPv4Locator(net.ParseIP("10.0.0.1"), 7410),
		},
		MetatrafficMulticastLocators: []types.Locator{
			types.NewUDPv4Locator(net.ParseIP("239.255.0.1"), 7400),
		},
		DefaultUnicastLocators: []types.Locator{
			types.NewUDPv4Locator(net.ParseIP("10.0.0.1"), 7411),
		},
		AvailableBuiltinEndpoints: BuiltinParticipantAnnouncer | BuiltinParticipantDetector |
			BuiltinPublicationsAnnouncer | BuiltinSubscriptionsAnnouncer,
		LeaseDuration: 100 * time.Second,
		DomainID:      0,
	}

	payload, err := want.Encode()
	require.NoError(t, err)

	got, err := DecodeSpdpDiscoveredParticipantData(payload, true)
	require.NoError(t, err)

	assert.Equal(t, want.ProtocolVersion, got.ProtocolVersion)
	assert.Equal(t, want.VendorId, got.VendorId)
	assert.Equal(t, want.ParticipantGUID, got.ParticipantGUID)
	assert.Equal(t, want.MetatrafficUnicastLocators, got.MetatrafficUnicastLocators)
	assert.Equal(t, want.MetatrafficMulticastLocators, got.MetatrafficMulticastLocators)
	assert.Equal(t, want.DefaultUnicastLocators, got.DefaultUnicastLocators)
	assert.Equal(t, want.AvailableBuiltinEndpoints, got.AvailableBuiltinEndpoints)
	assert.Equal(t, want.LeaseDuration, got.LeaseDuration)
	assert.Equal(t, want.DomainID, got.DomainID)
}

func TestDiscoveredWriterDataRoundTrip(t *testing.T) {
	guid := sampleParticipantGUID()
	guid.Entity.EntityKey = [3]byte{0, 0, 2}
	guid.Entity.Kind = types.EntityKindUserWriterKey

	want := NewDiscoveredWriterData(guid, "Square", "ShapeType",
		[]types.Locator{types.NewUDPv4Locator(net.ParseIP("10.0.0.1"), 7411)},
		nil,
		qos.Default())

	payload, err := want.Encode()
	require.NoError(t, err)

	got, err := DecodeDiscoveredWriterData(payload, true)
	require.NoError(t, err)

	assert.Equal(t, want.EndpointGUID, got.EndpointGUID)
	assert.Equal(t, want.TopicName, got.TopicName)
	assert.Equal(t, want.TypeName, got.TypeName)
	assert.Equal(t, want.UnicastLocators, got.UnicastLocators)
}

func TestDiscoveredReaderDataRoundTrip(t *testing.T) {
	guid := sampleParticipantGUID()
	guid.Entity.EntityKey = [3]byte{0, 0, 3}
	guid.Entity.Kind = types.EntityKindUserReaderKey

	want := NewDiscoveredReaderData(guid, "Square", "ShapeType",
		[]types.Locator{types.NewUDPv4Locator(net.ParseIP("10.0.0.2"), 7411)},
		nil,
		qos.Default(), true)

	payload, err := want.Encode()
	require.NoError(t, err)

	got, err := DecodeDiscoveredReaderData(payload, true)
	require.NoError(t, err)

	assert.Equal(t, want.EndpointGUID, got.EndpointGUID)
	assert.Equal(t, want.TopicName, got.TopicName)
	assert.Equal(t, want.ExpectsInlineQos, got.ExpectsInlineQos)
}

// TestMatchReaderToWriter_TopicTypeMismatch covers the "same topic name
// and type name" half of the §4.5 matching rule.
func TestMatchReaderToWriter_TopicTypeMismatch(t *testing.T) {
	writer := NewDiscoveredWriterData(sampleParticipantGUID(), "Square", "ShapeType", nil, nil, qos.Default())
	reader := NewDiscoveredReaderData(sampleParticipantGUID(), "Circle", "ShapeType", nil, nil, qos.Default(), false)

	result := MatchReaderToWriter(reader, writer)
	assert.False(t, result.Matched)
}

// TestMatchReaderToWriter_IncompatibleReliability reproduces spec.md §8
// scenario 4: a BestEffort writer never matches a Reliable reader, and the
// mismatch names the Reliability policy exactly once.
func TestMatchReaderToWriter_IncompatibleReliability(t *testing.T) {
	offered := qos.Default()
	offered.Reliability = qos.Reliability{Kind: qos.ReliabilityBestEffort}
	writer := NewDiscoveredWriterData(sampleParticipantGUID(), "Square", "ShapeType", nil, nil, offered)

	requested := qos.Default()
	requested.Reliability = qos.Reliability{Kind: qos.ReliabilityReliable}
	reader := NewDiscoveredReaderData(sampleParticipantGUID(), "Square", "ShapeType", nil, nil, requested, false)

	result := MatchReaderToWriter(reader, writer)
	require.False(t, result.Matched)
	require.Len(t, result.Incompatibilities, 1)
	assert.Equal(t, "Reliability", result.Incompatibilities[0].PolicyID)
}

func TestMatchReaderToWriter_CompatibleQoSMatches(t *testing.T) {
	writer := NewDiscoveredWriterData(sampleParticipantGUID(), "Square", "ShapeType", nil, nil, qos.Default())
	reader := NewDiscoveredReaderData(sampleParticipantGUID(), "Square", "ShapeType", nil, nil, qos.Default(), false)

	result := MatchReaderToWriter(reader, writer)
	assert.True(t, result.Matched)
	assert.Empty(t, result.Incompatibilities)
}

// TestParticipantProxyLeaseExpiry covers the spec.md §8 scenario 6 timing
// contract: a proxy is expired only once now is past LeaseExpiresAt.
func TestParticipantProxyLeaseExpiry(t *testing.T) {
	now := time.Now()
	data := SpdpDiscoveredParticipantData{LeaseDuration: 2 * time.Second}
	proxy := &ParticipantProxy{}
	proxy.Renew(now, data)

	assert.False(t, proxy.Expired(now.Add(1*time.Second)))
	assert.True(t, proxy.Expired(now.Add(3*time.Second)))
}
