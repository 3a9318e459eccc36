package dds

import (
	"context"
	"time"

	"github.com/marmos91/dittofs/internal/logger"
	"github.com/marmos91/dittofs/internal/rtps/status"
)

// pollInterval is how often a registered listener's poll loop checks its
// entity's StatusCondition trigger value. There is no push path from the
// participant actor to pkg/dds, so listener delivery is polling-based;
// DataAvailable latency is bounded by this interval.
const pollInterval = 20 * time.Millisecond

// DataWriterListener holds the optional callbacks a DataWriter invokes
// when one of its enabled statuses changes (§6 set_listener, §4.9). Any
// field left nil is simply not invoked. A listener callback that panics
// is recovered and logged, never propagated (§7 "Listener invocations
// are wrapped to swallow user-code failures").
type DataWriterListener struct {
	OnPublicationMatched     func(*DataWriter, status.MatchedStatus)
	OnOfferedIncompatibleQos func(*DataWriter, status.IncompatibleQosStatus)
	OnOfferedDeadlineMissed  func(*DataWriter, status.OfferedDeadlineMissedStatus)
}

// SetListener registers l to run on dw's own poll goroutine, invoking
// only the callbacks named by mask (§6 set_listener + mask). Passing a
// nil l or zero mask stops any previously registered listener.
func (dw *DataWriter) SetListener(l *DataWriterListener, mask status.Kind) {
	if dw.stopListener != nil {
		close(dw.stopListener)
		dw.stopListener = nil
	}
	if l == nil || mask == 0 {
		return
	}
	stop := make(chan struct{})
	dw.stopListener = stop
	go dw.pollListener(l, mask, stop)
}

func (dw *DataWriter) pollListener(l *DataWriterListener, mask status.Kind, stop chan struct{}) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), pollInterval)
			s, err := dw.pub.dp.core.Status(ctx, dw.guid)
			cancel()
			if err != nil || s == nil {
				continue
			}
			triggered := s.TriggerValue() & mask
			if triggered&status.KindPublicationMatched != 0 && l.OnPublicationMatched != nil {
				invoke(func() { l.OnPublicationMatched(dw, s.ReadPublicationMatched()) })
			}
			if triggered&status.KindOfferedIncompatibleQos != 0 && l.OnOfferedIncompatibleQos != nil {
				invoke(func() { l.OnOfferedIncompatibleQos(dw, s.ReadOfferedIncompatibleQos()) })
			}
			if triggered&status.KindOfferedDeadlineMissed != 0 && l.OnOfferedDeadlineMissed != nil {
				invoke(func() { l.OnOfferedDeadlineMissed(dw, s.ReadOfferedDeadlineMissed()) })
			}
		}
	}
}

// DataReaderListener holds the optional callbacks a DataReader invokes
// when one of its enabled statuses changes (§6, §4.9).
type DataReaderListener struct {
	OnDataAvailable            func(*DataReader)
	OnSubscriptionMatched      func(*DataReader, status.MatchedStatus)
	OnRequestedIncompatibleQos func(*DataReader, status.IncompatibleQosStatus)
	OnRequestedDeadlineMissed  func(*DataReader, status.RequestedDeadlineMissedStatus)
	OnSampleLost               func(*DataReader, status.SampleLostStatus)
}

// SetListener registers l to run on dr's own poll goroutine, invoking
// only the callbacks named by mask.
func (dr *DataReader) SetListener(l *DataReaderListener, mask status.Kind) {
	if dr.stopListener != nil {
		close(dr.stopListener)
		dr.stopListener = nil
	}
	if l == nil || mask == 0 {
		return
	}
	stop := make(chan struct{})
	dr.stopListener = stop
	go dr.pollListener(l, mask, stop)
}

func (dr *DataReader) pollListener(l *DataReaderListener, mask status.Kind, stop chan struct{}) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), pollInterval)
			s, err := dr.sub.dp.core.Status(ctx, dr.guid)
			cancel()
			if err != nil || s == nil {
				continue
			}
			triggered := s.TriggerValue() & mask
			if triggered&status.KindDataAvailable != 0 && l.OnDataAvailable != nil {
				invoke(func() { l.OnDataAvailable(dr) })
			}
			if triggered&status.KindSubscriptionMatched != 0 && l.OnSubscriptionMatched != nil {
				invoke(func() { l.OnSubscriptionMatched(dr, s.ReadSubscriptionMatched()) })
			}
			if triggered&status.KindRequestedIncompatibleQos != 0 && l.OnRequestedIncompatibleQos != nil {
				invoke(func() { l.OnRequestedIncompatibleQos(dr, s.ReadRequestedIncompatibleQos()) })
			}
			if triggered&status.KindRequestedDeadlineMissed != 0 && l.OnRequestedDeadlineMissed != nil {
				invoke(func() { l.OnRequestedDeadlineMissed(dr, s.ReadRequestedDeadlineMissed()) })
			}
			if triggered&status.KindSampleLost != 0 && l.OnSampleLost != nil {
				invoke(func() { l.OnSampleLost(dr, s.ReadSampleLost()) })
			}
		}
	}
}

func invoke(f func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warnf("dds: listener callback panicked: %v", r)
		}
	}()
	f()
}
