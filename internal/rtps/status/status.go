// Package status implements C10: per-entity status counters, the
// StatusCondition trigger-value bitmask, and the listener interfaces an
// entity invokes when one of its statuses changes (§4.9).
package status

import "sync"

// Kind identifies one of the thirteen communication statuses DDS
// defines (§4.9).
type Kind uint32

const (
	KindInconsistentTopic Kind = 1 << iota
	KindOfferedDeadlineMissed
	KindRequestedDeadlineMissed
	KindOfferedIncompatibleQos
	KindRequestedIncompatibleQos
	KindSampleLost
	KindSampleRejected
	KindDataOnReaders
	KindDataAvailable
	KindLivelinessLost
	KindLivelinessChanged
	KindPublicationMatched
	KindSubscriptionMatched
)

// AllKinds ORs together every status kind, the default enabled mask for
// a newly created entity.
const AllKinds = KindInconsistentTopic | KindOfferedDeadlineMissed | KindRequestedDeadlineMissed |
	KindOfferedIncompatibleQos | KindRequestedIncompatibleQos | KindSampleLost | KindSampleRejected |
	KindDataOnReaders | KindDataAvailable | KindLivelinessLost | KindLivelinessChanged |
	KindPublicationMatched | KindSubscriptionMatched

// counter holds one status kind's cumulative total and the delta
// accumulated since it was last read (§4.9: "reading the status resets
// the *_change fields to zero but never the totals").
type counter struct {
	total  int32
	change int32
}

// InconsistentTopicStatus mirrors the DDS status struct of the same name.
type InconsistentTopicStatus struct{ TotalCount, TotalCountChange int32 }

// SampleLostStatus mirrors the DDS status struct of the same name.
type SampleLostStatus struct{ TotalCount, TotalCountChange int32 }

// SampleRejectedStatus mirrors the DDS status struct of the same name.
type SampleRejectedStatus struct {
	TotalCount, TotalCountChange int32
	LastInstanceHandle           [16]byte
}

// RequestedDeadlineMissedStatus mirrors the DDS status struct.
type RequestedDeadlineMissedStatus struct {
	TotalCount, TotalCountChange int32
	LastInstanceHandle           [16]byte
}

// OfferedDeadlineMissedStatus mirrors the DDS status struct.
type OfferedDeadlineMissedStatus struct {
	TotalCount, TotalCountChange int32
	LastInstanceHandle           [16]byte
}

// IncompatibleQosStatus is shared by Offered/RequestedIncompatibleQos;
// LastPolicyID names the most recent failing policy.
type IncompatibleQosStatus struct {
	TotalCount, TotalCountChange int32
	LastPolicyID                 string
}

// LivelinessLostStatus mirrors the DDS status struct.
type LivelinessLostStatus struct{ TotalCount, TotalCountChange int32 }

// LivelinessChangedStatus mirrors the DDS status struct.
type LivelinessChangedStatus struct {
	AliveCount, NotAliveCount, AliveCountChange, NotAliveCountChange int32
}

// MatchedStatus is shared by Publication/SubscriptionMatched.
type MatchedStatus struct {
	TotalCount, TotalCountChange   int32
	CurrentCount, CurrentCountChange int32
}

// Set holds every status counter for one entity plus the enabled mask
// and accumulated trigger bits a StatusCondition exposes.
type Set struct {
	mu sync.Mutex

	counters map[Kind]*counter
	extra    map[Kind]any // last-value payloads (instance handle, policy id, alive/not-alive splits)

	enabledMask Kind
	triggerBits Kind
}

// NewSet constructs a Set with every status enabled by default.
func NewSet() *Set {
	return &Set{
		counters:    make(map[Kind]*counter),
		extra:       make(map[Kind]any),
		enabledMask: AllKinds,
	}
}

func (s *Set) bump(kind Kind, extra any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counters[kind]
	if !ok {
		c = &counter{}
		s.counters[kind] = c
	}
	c.total++
	c.change++
	if extra != nil {
		s.extra[kind] = extra
	}
	if s.enabledMask&kind != 0 {
		s.triggerBits |= kind
	}
}

// SetEnabledStatuses replaces the StatusCondition's enabled mask.
func (s *Set) SetEnabledStatuses(mask Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabledMask = mask
}

// EnabledStatuses returns the StatusCondition's enabled mask.
func (s *Set) EnabledStatuses() Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabledMask
}

// TriggerValue is the OR of every enabled status kind that has changed
// since it was last read via one of the Read* accessors (§4.9).
func (s *Set) TriggerValue() Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.triggerBits
}

func (s *Set) read(kind Kind) counter {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counters[kind]
	if !ok {
		return counter{}
	}
	snapshot := *c
	c.change = 0
	s.triggerBits &^= kind
	return snapshot
}

// NotifyInconsistentTopic records one InconsistentTopic event.
func (s *Set) NotifyInconsistentTopic() { s.bump(KindInconsistentTopic, nil) }

// ReadInconsistentTopic reads and resets the InconsistentTopic status.
func (s *Set) ReadInconsistentTopic() InconsistentTopicStatus {
	c := s.read(KindInconsistentTopic)
	return InconsistentTopicStatus{TotalCount: c.total, TotalCountChange: c.change}
}

// NotifySampleLost records one SampleLost event.
func (s *Set) NotifySampleLost() { s.bump(KindSampleLost, nil) }

// ReadSampleLost reads and resets the SampleLost status.
func (s *Set) ReadSampleLost() SampleLostStatus {
	c := s.read(KindSampleLost)
	return SampleLostStatus{TotalCount: c.total, TotalCountChange: c.change}
}

// NotifySampleRejected records one SampleRejected event for instance.
func (s *Set) NotifySampleRejected(instance [16]byte) { s.bump(KindSampleRejected, instance) }

// ReadSampleRejected reads and resets the SampleRejected status.
func (s *Set) ReadSampleRejected() SampleRejectedStatus {
	c := s.read(KindSampleRejected)
	out := SampleRejectedStatus{TotalCount: c.total, TotalCountChange: c.change}
	if v, ok := s.extra[KindSampleRejected].([16]byte); ok {
		out.LastInstanceHandle = v
	}
	return out
}

// NotifyRequestedDeadlineMissed records one RequestedDeadlineMissed event.
func (s *Set) NotifyRequestedDeadlineMissed(instance [16]byte) {
	s.bump(KindRequestedDeadlineMissed, instance)
}

// ReadRequestedDeadlineMissed reads and resets the status.
func (s *Set) ReadRequestedDeadlineMissed() RequestedDeadlineMissedStatus {
	c := s.read(KindRequestedDeadlineMissed)
	out := RequestedDeadlineMissedStatus{TotalCount: c.total, TotalCountChange: c.change}
	if v, ok := s.extra[KindRequestedDeadlineMissed].([16]byte); ok {
		out.LastInstanceHandle = v
	}
	return out
}

// NotifyOfferedDeadlineMissed records one OfferedDeadlineMissed event.
func (s *Set) NotifyOfferedDeadlineMissed(instance [16]byte) {
	s.bump(KindOfferedDeadlineMissed, instance)
}

// ReadOfferedDeadlineMissed reads and resets the status.
func (s *Set) ReadOfferedDeadlineMissed() OfferedDeadlineMissedStatus {
	c := s.read(KindOfferedDeadlineMissed)
	out := OfferedDeadlineMissedStatus{TotalCount: c.total, TotalCountChange: c.change}
	if v, ok := s.extra[KindOfferedDeadlineMissed].([16]byte); ok {
		out.LastInstanceHandle = v
	}
	return out
}

// NotifyOfferedIncompatibleQos records one OfferedIncompatibleQos event.
func (s *Set) NotifyOfferedIncompatibleQos(policyID string) {
	s.bump(KindOfferedIncompatibleQos, policyID)
}

// ReadOfferedIncompatibleQos reads and resets the status.
func (s *Set) ReadOfferedIncompatibleQos() IncompatibleQosStatus {
	c := s.read(KindOfferedIncompatibleQos)
	out := IncompatibleQosStatus{TotalCount: c.total, TotalCountChange: c.change}
	if v, ok := s.extra[KindOfferedIncompatibleQos].(string); ok {
		out.LastPolicyID = v
	}
	return out
}

// NotifyRequestedIncompatibleQos records one RequestedIncompatibleQos event.
func (s *Set) NotifyRequestedIncompatibleQos(policyID string) {
	s.bump(KindRequestedIncompatibleQos, policyID)
}

// ReadRequestedIncompatibleQos reads and resets the status.
func (s *Set) ReadRequestedIncompatibleQos() IncompatibleQosStatus {
	c := s.read(KindRequestedIncompatibleQos)
	out := IncompatibleQosStatus{TotalCount: c.total, TotalCountChange: c.change}
	if v, ok := s.extra[KindRequestedIncompatibleQos].(string); ok {
		out.LastPolicyID = v
	}
	return out
}

// NotifyLivelinessLost records one LivelinessLost event.
func (s *Set) NotifyLivelinessLost() { s.bump(KindLivelinessLost, nil) }

// ReadLivelinessLost reads and resets the status.
func (s *Set) ReadLivelinessLost() LivelinessLostStatus {
	c := s.read(KindLivelinessLost)
	return LivelinessLostStatus{TotalCount: c.total, TotalCountChange: c.change}
}

// NotifyLivelinessChanged records a change in the alive/not-alive writer
// counts observed by a reader.
func (s *Set) NotifyLivelinessChanged(alive, notAlive int32) {
	s.mu.Lock()
	c, ok := s.counters[KindLivelinessChanged]
	if !ok {
		c = &counter{}
		s.counters[KindLivelinessChanged] = c
	}
	prev, _ := s.extra[KindLivelinessChanged].(LivelinessChangedStatus)
	c.change++
	s.extra[KindLivelinessChanged] = LivelinessChangedStatus{
		AliveCount: alive, NotAliveCount: notAlive,
		AliveCountChange: alive - prev.AliveCount, NotAliveCountChange: notAlive - prev.NotAliveCount,
	}
	if s.enabledMask&KindLivelinessChanged != 0 {
		s.triggerBits |= KindLivelinessChanged
	}
	s.mu.Unlock()
}

// ReadLivelinessChanged reads and resets the status.
func (s *Set) ReadLivelinessChanged() LivelinessChangedStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, _ := s.extra[KindLivelinessChanged].(LivelinessChangedStatus)
	s.triggerBits &^= KindLivelinessChanged
	return out
}

// NotifyMatched records one Publication/SubscriptionMatched event with
// the new current-match count.
func (s *Set) NotifyMatched(kind Kind, currentCount int32) {
	s.mu.Lock()
	c, ok := s.counters[kind]
	if !ok {
		c = &counter{}
		s.counters[kind] = c
	}
	prev, _ := s.extra[kind].(MatchedStatus)
	c.total++
	c.change++
	s.extra[kind] = MatchedStatus{
		TotalCount: c.total, TotalCountChange: c.change,
		CurrentCount: currentCount, CurrentCountChange: currentCount - prev.CurrentCount,
	}
	if s.enabledMask&kind != 0 {
		s.triggerBits |= kind
	}
	s.mu.Unlock()
}

// ReadPublicationMatched reads and resets PublicationMatched.
func (s *Set) ReadPublicationMatched() MatchedStatus { return s.readMatched(KindPublicationMatched) }

// ReadSubscriptionMatched reads and resets SubscriptionMatched.
func (s *Set) ReadSubscriptionMatched() MatchedStatus {
	return s.readMatched(KindSubscriptionMatched)
}

func (s *Set) readMatched(kind Kind) MatchedStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, _ := s.extra[kind].(MatchedStatus)
	out.TotalCountChange = 0
	out.CurrentCountChange = 0
	s.extra[kind] = out
	if c, ok := s.counters[kind]; ok {
		c.change = 0
	}
	s.triggerBits &^= kind
	return out
}

// NotifyDataAvailable records one DataAvailable event (raised by the
// participant after each inbound DATA a user reader's HandleData accepts
// without error, regardless of listener registration).
func (s *Set) NotifyDataAvailable() { s.bump(KindDataAvailable, nil) }

// NotifyDataOnReaders records one DataOnReaders event on a Subscriber.
func (s *Set) NotifyDataOnReaders() { s.bump(KindDataOnReaders, nil) }
