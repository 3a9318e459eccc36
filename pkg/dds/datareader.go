package dds

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/marmos91/dittofs/internal/rtps/historycache"
	"github.com/marmos91/dittofs/internal/rtps/status"
	"github.com/marmos91/dittofs/internal/rtps/types"
	"github.com/marmos91/dittofs/internal/telemetry"
)

// Sample is one value delivered to a DataReader together with its
// instance identity and disposition (§6 read/take).
type Sample struct {
	Value          any
	InstanceHandle historycache.InstanceHandle
	// ValidData is false when Kind is not ChangeKindAlive: the sample
	// carries disposition metadata only, per §8 scenario 5.
	ValidData bool
	Kind      historycache.ChangeKind
}

// DataReader receives samples of its Topic's type (§6). read returns
// samples without removing them from the buffer; take removes them.
type DataReader struct {
	sub          *Subscriber
	topic        *Topic
	guid         types.GUID
	qos          Qos
	enabled      bool
	stopListener chan struct{}
}

// GetInstanceHandle returns this DataReader's GUID (§6).
func (dr *DataReader) GetInstanceHandle() types.GUID { return dr.guid }

// Topic returns the Topic this DataReader subscribes to.
func (dr *DataReader) Topic() *Topic { return dr.topic }

// Read returns every currently buffered sample without consuming it
// (§6 read). NoData is surfaced as an empty, non-error result (§7).
func (dr *DataReader) Read(ctx context.Context) ([]Sample, error) {
	return dr.readTake(ctx, false)
}

// Take returns every currently buffered sample and removes it from the
// buffer (§6 take).
func (dr *DataReader) Take(ctx context.Context) ([]Sample, error) {
	return dr.readTake(ctx, true)
}

func (dr *DataReader) readTake(ctx context.Context, take bool) ([]Sample, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanReaderTake,
		trace.WithAttributes(telemetry.Topic(dr.topic.name), telemetry.TypeName(dr.topic.typeName)))
	defer span.End()

	raw, err := dr.sub.dp.core.ReadTake(ctx, dr.guid, take)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, newError(ErrorCode, "%v", err)
	}
	span.SetAttributes(telemetry.MatchedCount(len(raw)))
	out := make([]Sample, len(raw))
	for i, s := range raw {
		out[i] = Sample{Value: s.Value, InstanceHandle: s.InstanceHandle, Kind: s.Kind, ValidData: s.Kind == historycache.ChangeKindAlive}
	}
	return out, nil
}

// ReadNextInstance returns the buffered, not-yet-taken samples of the
// instance handle immediately following previous in key order (§6
// read_next_instance). This core enumerates instances by their
// CacheChange order rather than maintaining a separate per-instance
// index, so "next" here means "next distinct handle encountered after
// previous in the current buffer".
func (dr *DataReader) ReadNextInstance(ctx context.Context, previous historycache.InstanceHandle) ([]Sample, error) {
	return dr.nextInstance(ctx, previous, false)
}

// TakeNextInstance is ReadNextInstance, consuming the returned samples
// (§6 take_next_instance).
func (dr *DataReader) TakeNextInstance(ctx context.Context, previous historycache.InstanceHandle) ([]Sample, error) {
	return dr.nextInstance(ctx, previous, true)
}

func (dr *DataReader) nextInstance(ctx context.Context, previous historycache.InstanceHandle, take bool) ([]Sample, error) {
	all, err := dr.readTake(ctx, false)
	if err != nil {
		return nil, err
	}

	var order []historycache.InstanceHandle
	seen := map[historycache.InstanceHandle]bool{}
	for _, s := range all {
		if !seen[s.InstanceHandle] {
			seen[s.InstanceHandle] = true
			order = append(order, s.InstanceHandle)
		}
	}

	var next historycache.InstanceHandle
	found := false
	for i, h := range order {
		if h == previous && i+1 < len(order) {
			next = order[i+1]
			found = true
			break
		}
	}
	if !found {
		if previous == (historycache.InstanceHandle{}) && len(order) > 0 {
			next = order[0]
		} else {
			return nil, nil
		}
	}

	var out []Sample
	for _, s := range all {
		if s.InstanceHandle == next {
			out = append(out, s)
		}
	}
	if take && len(out) > 0 {
		if _, err := dr.sub.dp.core.ReadTake(ctx, dr.guid, true); err != nil {
			return nil, newError(ErrorCode, "%v", err)
		}
	}
	return out, nil
}

// WaitForHistoricalData blocks until the reader's set of matched writers
// has stopped changing, or timeout elapses (§6 wait_for_historical_data);
// it does not check which samples have been delivered. Durability-backed late joining is out of
// scope (§1 Non-goals); for the Volatile-only durability this core
// implements, historical data is whatever a matched reliable writer
// still has queued, so this simply waits for the match set to settle.
func (dr *DataReader) WaitForHistoricalData(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	var lastCount int
	stable := 0
	for {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		matched, err := dr.sub.dp.matched(ctx, dr.guid)
		cancel()
		if err == nil {
			if len(matched) == lastCount {
				stable++
			} else {
				stable = 0
			}
			lastCount = len(matched)
			if stable >= 3 {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return newError(Timeout, "wait_for_historical_data: timed out after %s", timeout)
		}
		<-ticker.C
	}
}

// GetMatchedPublications returns the GUIDs of every writer currently
// matched with this reader (§6 get_matched_publications, §8 scenario 6).
func (dr *DataReader) GetMatchedPublications(ctx context.Context) ([]types.GUID, error) {
	return dr.sub.dp.matched(ctx, dr.guid)
}

// GetSubscriptionMatchedStatus reads and resets the SubscriptionMatched
// status (§4.9, §6 get_subscription_matched_status).
func (dr *DataReader) GetSubscriptionMatchedStatus(ctx context.Context) (status.MatchedStatus, error) {
	s, err := dr.sub.dp.core.Status(ctx, dr.guid)
	if err != nil || s == nil {
		return status.MatchedStatus{}, newError(BadParameter, "no status for this reader")
	}
	return s.ReadSubscriptionMatched(), nil
}
