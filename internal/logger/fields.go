package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging across the RTPS/DDS core.
// Use these keys consistently so log aggregation and querying stay uniform
// across the wire codec, discovery, and reader/writer engines.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Entity identification
	// ========================================================================
	KeyParticipantGUID = "participant_guid" // GuidPrefix of the owning participant
	KeyEntityGUID       = "entity_guid"      // Full 16-octet GUID of reader/writer
	KeyRemoteGUID        = "remote_guid"       // GUID of the remote endpoint involved
	KeyTopic              = "topic"              // Topic name
	KeyTypeName           = "type_name"           // Registered type name

	// ========================================================================
	// RTPS message/submessage
	// ========================================================================
	KeySubmessage     = "submessage"      // Submessage kind: DATA, HEARTBEAT, ACKNACK, ...
	KeySeqNum         = "sequence_number" // SequenceNumber involved in the operation
	KeySeqNumFirst    = "sequence_number_first"
	KeySeqNumLast     = "sequence_number_last"
	KeyCount          = "count"     // HEARTBEAT/ACKNACK counter
	KeyLocator        = "locator"   // Destination/source Locator
	KeyDomainID       = "domain_id" // RTPS domain id

	// ========================================================================
	// Discovery
	// ========================================================================
	KeyLeaseDuration = "lease_duration"
	KeyMatchedCount  = "matched_count"

	// ========================================================================
	// Operation metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyOperation  = "operation"   // Actor mail operation name
	KeySource     = "source"      // Subsystem emitting the log line

	// ========================================================================
	// History cache
	// ========================================================================
	KeyInstanceHandle = "instance_handle"
	KeyCacheSize      = "cache_size"
	KeyEvicted        = "evicted"
)

// Fmt is a convenience wrapper producing a slog.Attr whose value is
// formatted with fmt.Sprintf. The formatting happens when Fmt is called,
// whether or not the log line is emitted.
func Fmt(key, format string, args ...any) slog.Attr {
	return slog.Any(key, fmt.Sprintf(format, args...))
}
