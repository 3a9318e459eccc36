package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for RTPS/DDS operations, following OpenTelemetry semantic
// convention style (dotted namespaces).
const (
	// Participant / entity identification
	AttrParticipantGUID = "rtps.participant_guid"
	AttrEntityGUID       = "rtps.entity_guid"
	AttrRemoteGUID       = "rtps.remote_guid"
	AttrDomainID         = "dds.domain_id"
	AttrTopic            = "dds.topic"
	AttrTypeName         = "dds.type_name"

	// Wire-level attributes
	AttrSubmessage  = "rtps.submessage"
	AttrSeqNum      = "rtps.sequence_number"
	AttrSeqNumFirst = "rtps.sequence_number_first"
	AttrSeqNumLast  = "rtps.sequence_number_last"
	AttrCount       = "rtps.count"
	AttrLocator     = "rtps.locator"

	// Discovery
	AttrLeaseDuration = "rtps.lease_duration"
	AttrMatchedCount  = "dds.matched_count"

	// History cache
	AttrInstanceHandle = "dds.instance_handle"
	AttrCacheSize      = "dds.cache_size"
	AttrEvicted        = "dds.evicted"
)

// Span names, namespaced by component.
const (
	// Participant actor mailbox
	SpanActorMail = "participant.mail"

	// Wire codec
	SpanCodecEncode = "codec.encode"
	SpanCodecDecode = "codec.decode"

	// Reader/writer engines
	SpanWriterWrite       = "writer.write"
	SpanWriterHeartbeat   = "writer.heartbeat"
	SpanWriterRepair      = "writer.repair"
	SpanReaderAckNack     = "reader.acknack"
	SpanReaderReceive     = "reader.receive"
	SpanReaderTake        = "reader.take"

	// Discovery
	SpanSPDPAnnounce = "spdp.announce"
	SpanSPDPDiscover = "spdp.discover"
	SpanSEDPAnnounce = "sedp.announce"
	SpanSEDPMatch    = "sedp.match"

	// History cache
	SpanCacheAdd    = "history_cache.add"
	SpanCacheRemove = "history_cache.remove"
)

// ParticipantGUID returns an attribute for the owning participant's GuidPrefix.
func ParticipantGUID(guid string) attribute.KeyValue {
	return attribute.String(AttrParticipantGUID, guid)
}

// EntityGUID returns an attribute for a reader/writer's full GUID.
func EntityGUID(guid string) attribute.KeyValue {
	return attribute.String(AttrEntityGUID, guid)
}

// RemoteGUID returns an attribute for a matched remote endpoint's GUID.
func RemoteGUID(guid string) attribute.KeyValue {
	return attribute.String(AttrRemoteGUID, guid)
}

// Topic returns an attribute for the topic name.
func Topic(name string) attribute.KeyValue {
	return attribute.String(AttrTopic, name)
}

// TypeName returns an attribute for the registered type name.
func TypeName(name string) attribute.KeyValue {
	return attribute.String(AttrTypeName, name)
}

// Submessage returns an attribute for the submessage kind.
func Submessage(kind string) attribute.KeyValue {
	return attribute.String(AttrSubmessage, kind)
}

// SequenceNumber returns an attribute for a sequence number.
func SequenceNumber(sn int64) attribute.KeyValue {
	return attribute.Int64(AttrSeqNum, sn)
}

// Count returns an attribute for a HEARTBEAT/ACKNACK monotone counter.
func Count(count int32) attribute.KeyValue {
	return attribute.Int64(AttrCount, int64(count))
}

// Locator returns an attribute for an RTPS Locator rendered as host:port.
func Locator(locator string) attribute.KeyValue {
	return attribute.String(AttrLocator, locator)
}

// MatchedCount returns an attribute for the current matched-endpoint count.
func MatchedCount(count int) attribute.KeyValue {
	return attribute.Int(AttrMatchedCount, count)
}

// InstanceHandle returns an attribute for an instance handle rendered as hex.
func InstanceHandle(hex string) attribute.KeyValue {
	return attribute.String(AttrInstanceHandle, hex)
}

// StartActorSpan starts a span for one participant mailbox operation.
func StartActorSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{attribute.String("mail.operation", operation)}, attrs...)
	return StartSpan(ctx, SpanActorMail, trace.WithAttributes(allAttrs...))
}

// StartCodecSpan starts a span for encode/decode of one RTPS message.
func StartCodecSpan(ctx context.Context, direction string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	name := SpanCodecDecode
	if direction == "encode" {
		name = SpanCodecEncode
	}
	return StartSpan(ctx, name, trace.WithAttributes(attrs...))
}

// StartDiscoverySpan starts a span for an SPDP/SEDP operation.
func StartDiscoverySpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, name, trace.WithAttributes(attrs...))
}
