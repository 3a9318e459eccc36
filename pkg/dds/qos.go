package dds

import (
	"time"

	"github.com/marmos91/dittofs/internal/rtps/historycache"
	"github.com/marmos91/dittofs/internal/rtps/qos"
)

// Qos is the policy bundle an Entity offers or requests (§3, §6
// set/get QoS). It is an alias of the core's own Policies so values
// constructed here flow straight into participant.CreateWriter/
// CreateReader without conversion.
type Qos = qos.Policies

// Re-exported so callers never need to import internal/rtps/qos
// directly to build a Qos value.
const (
	DurabilityVolatile        = qos.DurabilityVolatile
	DurabilityTransientLocal  = qos.DurabilityTransientLocal
	DurabilityTransient       = qos.DurabilityTransient
	DurabilityPersistent      = qos.DurabilityPersistent

	ReliabilityBestEffort = qos.ReliabilityBestEffort
	ReliabilityReliable   = qos.ReliabilityReliable

	OwnershipShared    = qos.OwnershipShared
	OwnershipExclusive = qos.OwnershipExclusive

	HistoryKeepLast = historycache.KeepLast
	HistoryKeepAll  = historycache.KeepAll
)

// DefaultQos returns the DDS-standard default QoS (§3): best-effort,
// volatile, KeepLast(1).
func DefaultQos() Qos { return qos.Default() }

// QosBuilder incrementally assembles a Qos value starting from
// DefaultQos, mirroring how a DDS application typically starts from
// get_default_datawriter_qos/get_default_datareader_qos and overrides a
// handful of policies before create_datawriter/create_datareader.
type QosBuilder struct {
	q Qos
}

// NewQosBuilder starts a QosBuilder from DefaultQos.
func NewQosBuilder() *QosBuilder {
	return &QosBuilder{q: DefaultQos()}
}

// Reliable sets Reliability=Reliable with the given max blocking time
// for Write (§4.3, §6 wait_for_acknowledgments).
func (b *QosBuilder) Reliable(maxBlockingTime time.Duration) *QosBuilder {
	b.q.Reliability = qos.Reliability{Kind: qos.ReliabilityReliable, MaxBlockingTime: maxBlockingTime}
	return b
}

// BestEffort sets Reliability=BestEffort.
func (b *QosBuilder) BestEffort() *QosBuilder {
	b.q.Reliability = qos.Reliability{Kind: qos.ReliabilityBestEffort}
	return b
}

// History sets the History policy to KeepLast(depth) or, when depth<=0,
// KeepAll.
func (b *QosBuilder) History(depth int) *QosBuilder {
	if depth <= 0 {
		b.q.History = historycache.History{Kind: historycache.KeepAll}
	} else {
		b.q.History = historycache.History{Kind: historycache.KeepLast, Depth: depth}
	}
	return b
}

// ResourceLimits sets the ResourceLimits policy.
func (b *QosBuilder) ResourceLimits(limits historycache.ResourceLimits) *QosBuilder {
	b.q.ResourceLimits = limits
	return b
}

// Deadline sets the Deadline policy's period.
func (b *QosBuilder) Deadline(period time.Duration) *QosBuilder {
	b.q.Deadline = qos.Deadline{Period: period}
	return b
}

// Durability sets the Durability policy's kind.
func (b *QosBuilder) Durability(kind qos.DurabilityKind) *QosBuilder {
	b.q.Durability = qos.Durability{Kind: kind}
	return b
}

// Ownership sets the Ownership policy's kind.
func (b *QosBuilder) Ownership(kind qos.OwnershipKind) *QosBuilder {
	b.q.Ownership = qos.Ownership{Kind: kind}
	return b
}

// Partition sets the Partition policy's name expressions.
func (b *QosBuilder) Partition(names ...string) *QosBuilder {
	b.q.Partition = qos.Partition{Names: names}
	return b
}

// Build returns the assembled Qos.
func (b *QosBuilder) Build() Qos { return b.q }
