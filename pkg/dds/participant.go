package dds

import (
	"context"
	"sync"

	"github.com/marmos91/dittofs/internal/rtps/dynamictype"
	"github.com/marmos91/dittofs/internal/rtps/participant"
	"github.com/marmos91/dittofs/internal/rtps/types"
)

// DomainParticipant is the entry point into one RTPS domain (§6). It
// owns a set of Topics, Publishers, and Subscribers; every child holds
// only a pointer back to the DomainParticipant and its own handle,
// never a direct reference to a sibling (§9 "Cyclic entity graph").
type DomainParticipant struct {
	factory  *DomainParticipantFactory
	core     *participant.Participant
	domainID int

	mu          sync.Mutex
	enabled     bool
	deleted     bool
	topics      map[string]*Topic
	publishers  []*Publisher
	subscribers []*Subscriber
}

// DomainID returns the RTPS domain this participant joined.
func (dp *DomainParticipant) DomainID() int { return dp.domainID }

// GetInstanceHandle returns this participant's GUID, serving the role
// DDS's InstanceHandle_t plays for entity identity (§6).
func (dp *DomainParticipant) GetInstanceHandle() types.GUID { return dp.core.GUID() }

// Enable activates the participant (§6 enable). Until it is called,
// operations that check requireEnabled, such as CreatePublisher and
// CreateSubscriber, fail with NotEnabled.
func (dp *DomainParticipant) Enable() error {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if dp.deleted {
		return newError(AlreadyDeleted, "participant")
	}
	dp.enabled = true
	return nil
}

func (dp *DomainParticipant) requireEnabled() error {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if dp.deleted {
		return newError(AlreadyDeleted, "participant")
	}
	if !dp.enabled {
		return newError(NotEnabled, "participant")
	}
	return nil
}

// CreateTopic registers typeName/TypeSupport under name (§6
// create_topic). Calling it twice with the same name returns
// BadParameter unless the type matches exactly what was already
// registered, mirroring find_topic's identity requirement.
func (dp *DomainParticipant) CreateTopic(name, typeName string, ts dynamictype.TypeSupport) (*Topic, error) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if dp.deleted {
		return nil, newError(AlreadyDeleted, "participant")
	}
	if existing, ok := dp.topics[name]; ok {
		if existing.typeName != typeName {
			return nil, newError(BadParameter, "topic %q already registered with type %q", name, existing.typeName)
		}
		return existing, nil
	}
	topic := &Topic{dp: dp, name: name, typeName: typeName, ts: ts}
	dp.topics[name] = topic
	return topic, nil
}

// LookupTopic returns a previously created Topic by name (§6
// lookup_topicdescription).
func (dp *DomainParticipant) LookupTopic(name string) (*Topic, error) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	t, ok := dp.topics[name]
	if !ok {
		return nil, newError(BadParameter, "no topic named %q", name)
	}
	return t, nil
}

// DeleteTopic removes a Topic, failing with PreconditionNotMet if any
// DataWriter or DataReader still references it.
func (dp *DomainParticipant) DeleteTopic(t *Topic) error {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	for _, pub := range dp.publishers {
		for _, w := range pub.writers {
			if w.topic == t {
				return newError(PreconditionNotMet, "topic %q still has a DataWriter", t.name)
			}
		}
	}
	for _, sub := range dp.subscribers {
		for _, r := range sub.readers {
			if r.topic == t {
				return newError(PreconditionNotMet, "topic %q still has a DataReader", t.name)
			}
		}
	}
	delete(dp.topics, t.name)
	return nil
}

// CreatePublisher creates a Publisher carrying q as its default
// DataWriter QoS (§6 create_publisher).
func (dp *DomainParticipant) CreatePublisher(q Qos) (*Publisher, error) {
	if err := dp.requireEnabled(); err != nil {
		return nil, err
	}
	pub := &Publisher{dp: dp, qos: q}
	dp.mu.Lock()
	dp.publishers = append(dp.publishers, pub)
	dp.mu.Unlock()
	return pub, nil
}

// DeletePublisher removes pub, failing with PreconditionNotMet if it
// still owns any DataWriter (§6 delete_publisher).
func (dp *DomainParticipant) DeletePublisher(pub *Publisher) error {
	if len(pub.writers) > 0 {
		return newError(PreconditionNotMet, "publisher still has %d DataWriter(s)", len(pub.writers))
	}
	dp.mu.Lock()
	defer dp.mu.Unlock()
	for i, p := range dp.publishers {
		if p == pub {
			dp.publishers = append(dp.publishers[:i], dp.publishers[i+1:]...)
			return nil
		}
	}
	return newError(BadParameter, "publisher not owned by this participant")
}

// CreateSubscriber creates a Subscriber carrying q as its default
// DataReader QoS (§6 create_subscriber).
func (dp *DomainParticipant) CreateSubscriber(q Qos) (*Subscriber, error) {
	if err := dp.requireEnabled(); err != nil {
		return nil, err
	}
	sub := &Subscriber{dp: dp, qos: q}
	dp.mu.Lock()
	dp.subscribers = append(dp.subscribers, sub)
	dp.mu.Unlock()
	return sub, nil
}

// DeleteSubscriber removes sub, failing with PreconditionNotMet if it
// still owns any DataReader (§6 delete_subscriber).
func (dp *DomainParticipant) DeleteSubscriber(sub *Subscriber) error {
	if len(sub.readers) > 0 {
		return newError(PreconditionNotMet, "subscriber still has %d DataReader(s)", len(sub.readers))
	}
	dp.mu.Lock()
	defer dp.mu.Unlock()
	for i, s := range dp.subscribers {
		if s == sub {
			dp.subscribers = append(dp.subscribers[:i], dp.subscribers[i+1:]...)
			return nil
		}
	}
	return newError(BadParameter, "subscriber not owned by this participant")
}

// DeleteContainedEntities deletes every Publisher, Subscriber, and Topic
// this participant owns, in an order that satisfies each one's own
// precondition (§6 delete_contained_entities).
func (dp *DomainParticipant) DeleteContainedEntities() error {
	dp.mu.Lock()
	pubs := append([]*Publisher(nil), dp.publishers...)
	subs := append([]*Subscriber(nil), dp.subscribers...)
	topics := make([]*Topic, 0, len(dp.topics))
	for _, t := range dp.topics {
		topics = append(topics, t)
	}
	dp.mu.Unlock()

	for _, pub := range pubs {
		if err := pub.DeleteContainedEntities(); err != nil {
			return err
		}
		if err := dp.DeletePublisher(pub); err != nil {
			return err
		}
	}
	for _, sub := range subs {
		if err := sub.DeleteContainedEntities(); err != nil {
			return err
		}
		if err := dp.DeleteSubscriber(sub); err != nil {
			return err
		}
	}
	for _, t := range topics {
		if err := dp.DeleteTopic(t); err != nil {
			return err
		}
	}
	return nil
}

// Close is a convenience wrapper over DeleteContainedEntities followed
// by the owning factory's DeleteParticipant, for applications that don't
// need the fine-grained §6 teardown sequence themselves.
func (dp *DomainParticipant) Close() error {
	if err := dp.DeleteContainedEntities(); err != nil {
		return err
	}
	return dp.factory.DeleteParticipant(dp)
}

func (dp *DomainParticipant) checkNoChildren() error {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if len(dp.publishers) > 0 || len(dp.subscribers) > 0 || len(dp.topics) > 0 {
		return newError(PreconditionNotMet, "participant still has contained entities")
	}
	return nil
}

// matched returns the remote GUIDs matched with local, translating a
// closed/cancelled actor into an Error rather than a bare send error.
func (dp *DomainParticipant) matched(ctx context.Context, local types.GUID) ([]types.GUID, error) {
	remotes, err := dp.core.Matched(ctx, local)
	if err != nil {
		return nil, newError(ErrorCode, "%v", err)
	}
	return remotes, nil
}
