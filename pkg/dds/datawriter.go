package dds

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/marmos91/dittofs/internal/rtps/status"
	"github.com/marmos91/dittofs/internal/rtps/types"
	"github.com/marmos91/dittofs/internal/telemetry"
)

// DataWriter publishes samples of its Topic's type (§6). Each operation
// blocks only for the duration of a mailbox round trip with the owning
// participant actor; sending the data to matched readers happens on the
// writer engine's own goroutine.
type DataWriter struct {
	pub          *Publisher
	topic        *Topic
	guid         types.GUID
	qos          Qos
	enabled      bool
	stopListener chan struct{}
}

// GetInstanceHandle returns this DataWriter's GUID (§6).
func (dw *DataWriter) GetInstanceHandle() types.GUID { return dw.guid }

// Topic returns the Topic this DataWriter publishes on.
func (dw *DataWriter) Topic() *Topic { return dw.topic }

// Write publishes value, which must match the Topic's TypeSupport
// (§6 write).
func (dw *DataWriter) Write(ctx context.Context, value any) (types.SequenceNumber, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanWriterWrite,
		trace.WithAttributes(telemetry.Topic(dw.topic.name), telemetry.TypeName(dw.topic.typeName)))
	defer span.End()

	sn, err := dw.pub.dp.core.Write(ctx, dw.guid, value, false, false)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return 0, translateWriteErr(err)
	}
	span.SetAttributes(telemetry.SequenceNumber(int64(sn)))
	return sn, nil
}

// RegisterInstance stands in for §6 register_instance. This core does not
// track registration state separately from data, so it writes value like
// Write does and returns that write's sequence number, not an instance
// handle.
func (dw *DataWriter) RegisterInstance(ctx context.Context, value any) (types.SequenceNumber, error) {
	return dw.Write(ctx, value)
}

// UnregisterInstance announces value's instance is no longer asserted by
// this writer (§6 unregister_instance).
func (dw *DataWriter) UnregisterInstance(ctx context.Context, value any) error {
	_, err := dw.pub.dp.core.Write(ctx, dw.guid, value, false, true)
	return translateWriteErr(err)
}

// Dispose marks value's instance NotAliveDisposed (§6 dispose, §8
// scenario 5).
func (dw *DataWriter) Dispose(ctx context.Context, value any) error {
	_, err := dw.pub.dp.core.Write(ctx, dw.guid, value, true, false)
	return translateWriteErr(err)
}

// WaitForAcknowledgments blocks until every reader currently matched
// with this writer has acknowledged sn, or timeout elapses (§6
// wait_for_acknowledgments).
func (dw *DataWriter) WaitForAcknowledgments(sn types.SequenceNumber, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		acked, err := dw.pub.dp.core.Acknowledged(ctx, dw.guid, sn)
		cancel()
		if err == nil && acked {
			return nil
		}
		if time.Now().After(deadline) {
			return newError(Timeout, "wait_for_acknowledgments: sn %d not fully acknowledged within %s", sn, timeout)
		}
		<-ticker.C
	}
}

// GetMatchedSubscriptions returns the GUIDs of every reader currently
// matched with this writer (§6 get_matched_subscriptions).
func (dw *DataWriter) GetMatchedSubscriptions(ctx context.Context) ([]types.GUID, error) {
	return dw.pub.dp.matched(ctx, dw.guid)
}

// GetPublicationMatchedStatus reads and resets the PublicationMatched
// status (§4.9, §6 get_publication_matched_status).
func (dw *DataWriter) GetPublicationMatchedStatus(ctx context.Context) (status.MatchedStatus, error) {
	s, err := dw.pub.dp.core.Status(ctx, dw.guid)
	if err != nil || s == nil {
		return status.MatchedStatus{}, newError(BadParameter, "no status for this writer")
	}
	return s.ReadPublicationMatched(), nil
}

func translateWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(Timeout, "%v", err)
	}
	return newError(ErrorCode, "%v", err)
}
