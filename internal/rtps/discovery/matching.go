package discovery

import (
	"github.com/marmos91/dittofs/internal/rtps/qos"
	"github.com/marmos91/dittofs/internal/rtps/types"
)

// NewDiscoveredWriterData constructs a DiscoveredWriterData to announce
// a local DataWriter over SEDP.
func NewDiscoveredWriterData(guid types.GUID, topic, typeName string, unicast, multicast []types.Locator, policies qos.Policies) DiscoveredWriterData {
	return DiscoveredWriterData{endpointCommon: endpointCommon{
		EndpointGUID:      guid,
		TopicName:         topic,
		TypeName:          typeName,
		UnicastLocators:   unicast,
		MulticastLocators: multicast,
		Policies:          policies,
	}}
}

// NewDiscoveredReaderData constructs a DiscoveredReaderData to announce
// a local DataReader over SEDP.
func NewDiscoveredReaderData(guid types.GUID, topic, typeName string, unicast, multicast []types.Locator, policies qos.Policies, expectsInlineQos bool) DiscoveredReaderData {
	return DiscoveredReaderData{
		endpointCommon: endpointCommon{
			EndpointGUID:      guid,
			TopicName:         topic,
			TypeName:          typeName,
			UnicastLocators:   unicast,
			MulticastLocators: multicast,
			Policies:          policies,
		},
		ExpectsInlineQos: expectsInlineQos,
	}
}

// MatchResult reports whether a local reader/writer and a remote
// counterpart are compatible, plus the specific QoS incompatibilities
// found when they are not (§4.5, §8 scenario 4).
type MatchResult struct {
	Matched          bool
	Incompatibilities []qos.Incompatibility
}

// MatchReaderToWriter implements the endpoint matching rule of §4.5: same
// topic name and type name, offered QoS ≥ requested QoS for every
// comparable policy, partitions intersect, and data-representation sets
// intersect.
func MatchReaderToWriter(reader DiscoveredReaderData, writer DiscoveredWriterData) MatchResult {
	if reader.TopicName != writer.TopicName || reader.TypeName != writer.TypeName {
		return MatchResult{Matched: false}
	}
	failures := qos.CheckCompatible(writer.Policies, reader.Policies)
	return MatchResult{Matched: len(failures) == 0, Incompatibilities: failures}
}
