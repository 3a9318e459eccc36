// Package qos implements the DDS QoS policy set (§3) and its
// discovery-time compatibility matrix: for every comparable policy, a
// local reader matches a remote writer only if the writer's offered
// value is at least as strong as the reader's requested value.
//
// History and ResourceLimits already live in internal/rtps/historycache
// since they govern storage directly; this package holds the policies
// that only govern discovery-time matching and wire representation.
package qos

import (
	"strings"
	"time"

	"github.com/marmos91/dittofs/internal/rtps/historycache"
)

// DurabilityKind orders durability from weakest to strongest; a higher
// numeric value is always an acceptable substitute for a lower one.
type DurabilityKind int

const (
	DurabilityVolatile DurabilityKind = iota
	DurabilityTransientLocal
	DurabilityTransient
	DurabilityPersistent
)

// Durability governs whether late-joining readers receive previously
// written samples.
type Durability struct {
	Kind DurabilityKind
}

// ReliabilityKind selects best-effort or reliable delivery (§4.3, §4.4).
type ReliabilityKind int

const (
	ReliabilityBestEffort ReliabilityKind = iota
	ReliabilityReliable
)

// Reliability is the Reliability QoS policy.
type Reliability struct {
	Kind            ReliabilityKind
	MaxBlockingTime time.Duration
}

// Deadline bounds the maximum expected period between writes to one
// instance (§4.4, §4.9 OfferedDeadlineMissed/RequestedDeadlineMissed).
type Deadline struct {
	Period time.Duration
}

// LatencyBudget is a hint about acceptable end-to-end delay; it never
// fails a match (best-effort QoS), but is compared for informational
// purposes only.
type LatencyBudget struct {
	Duration time.Duration
}

// LivelinessKind selects how liveliness is asserted.
type LivelinessKind int

const (
	LivelinessAutomatic LivelinessKind = iota
	LivelinessManualByParticipant
	LivelinessManualByTopic
)

// Liveliness governs detection of an unresponsive writer independent of
// data flow.
type Liveliness struct {
	Kind          LivelinessKind
	LeaseDuration time.Duration
}

// DestinationOrderKind selects how samples from different writers are
// ordered on delivery (§5).
type DestinationOrderKind int

const (
	DestinationOrderByReception DestinationOrderKind = iota
	DestinationOrderBySourceTimestamp
)

// DestinationOrder is the DestinationOrder QoS policy.
type DestinationOrder struct {
	Kind DestinationOrderKind
}

// OwnershipKind selects shared or exclusive instance ownership.
type OwnershipKind int

const (
	OwnershipShared OwnershipKind = iota
	OwnershipExclusive
)

// Ownership is the Ownership QoS policy.
type Ownership struct {
	Kind OwnershipKind
}

// Partition lists the partition name expressions an endpoint publishes
// or subscribes into; two endpoints match if any expression on one side
// matches any on the other, via glob or exact comparison (§4.5).
type Partition struct {
	Names []string
}

// DataRepresentation lists the acceptable CDR representation ids an
// endpoint offers or requests. Two endpoints match if these sets
// intersect (§4.5). ID 0 is XCDR1, the only one this codec implements.
type DataRepresentation struct {
	IDs []int16
}

// TopicData, GroupData, and UserData are opaque application payloads
// carried at discovery time; they never affect compatibility.
type TopicData struct{ Value []byte }
type GroupData struct{ Value []byte }
type UserData struct{ Value []byte }

// Lifespan bounds how long a sample remains valid after being written;
// it is a local expiry concern, not a discovery compatibility input.
type Lifespan struct {
	Duration time.Duration
}

// TransportPriority is a local hint to the transport; never affects
// matching.
type TransportPriority struct {
	Value int32
}

// PresentationAccessScope selects the granularity presentation ordering
// applies over.
type PresentationAccessScope int

const (
	PresentationInstance PresentationAccessScope = iota
	PresentationTopic
	PresentationGroup
)

// Presentation is the Presentation QoS policy.
type Presentation struct {
	AccessScope     PresentationAccessScope
	CoherentAccess  bool
	OrderedAccess   bool
}

// Policies bundles every policy an endpoint can offer or request,
// mirroring DDS's DataWriterQos/DataReaderQos (§3).
type Policies struct {
	Durability         Durability
	Deadline           Deadline
	LatencyBudget      LatencyBudget
	Liveliness         Liveliness
	Reliability        Reliability
	DestinationOrder   DestinationOrder
	History            historycache.History
	ResourceLimits      historycache.ResourceLimits
	Ownership           Ownership
	Partition           Partition
	TopicData           TopicData
	GroupData           GroupData
	UserData            UserData
	Presentation        Presentation
	Lifespan            Lifespan
	TransportPriority   TransportPriority
	DataRepresentation  DataRepresentation
}

// Default returns the DDS-standard default QoS: best-effort, volatile,
// keep-last(1), shared ownership, no deadline/liveliness bound.
func Default() Policies {
	return Policies{
		Reliability:        Reliability{Kind: ReliabilityBestEffort},
		Durability:         Durability{Kind: DurabilityVolatile},
		History:            historycache.History{Kind: historycache.KeepLast, Depth: 1},
		ResourceLimits:      historycache.DefaultResourceLimits(),
		DestinationOrder:    DestinationOrder{Kind: DestinationOrderByReception},
		Ownership:           Ownership{Kind: OwnershipShared},
		DataRepresentation:  DataRepresentation{IDs: []int16{0}},
	}
}

// Incompatibility names one policy that failed the offered≥requested
// rule (§4.5, §8 scenario 4).
type Incompatibility struct {
	PolicyID string
}

// CheckCompatible implements the endpoint matching rule's QoS half
// (§4.5): offered must be ≥ requested for every comparable policy, plus
// partition and representation intersection. Returns every failing
// policy, empty when compatible.
func CheckCompatible(offered, requested Policies) []Incompatibility {
	var failures []Incompatibility

	if offered.Reliability.Kind < requested.Reliability.Kind {
		failures = append(failures, Incompatibility{PolicyID: "Reliability"})
	}
	if offered.Durability.Kind < requested.Durability.Kind {
		failures = append(failures, Incompatibility{PolicyID: "Durability"})
	}
	if requested.Deadline.Period > 0 && (offered.Deadline.Period == 0 || offered.Deadline.Period > requested.Deadline.Period) {
		failures = append(failures, Incompatibility{PolicyID: "Deadline"})
	}
	if offered.DestinationOrder.Kind < requested.DestinationOrder.Kind {
		failures = append(failures, Incompatibility{PolicyID: "DestinationOrder"})
	}
	if offered.Ownership.Kind != requested.Ownership.Kind {
		failures = append(failures, Incompatibility{PolicyID: "Ownership"})
	}
	if !partitionsMatch(offered.Partition, requested.Partition) {
		failures = append(failures, Incompatibility{PolicyID: "Partition"})
	}
	if !representationsIntersect(offered.DataRepresentation, requested.DataRepresentation) {
		failures = append(failures, Incompatibility{PolicyID: "DataRepresentation"})
	}
	return failures
}

// partitionsMatch reports whether any name on one side matches any on
// the other. An empty partition list on both sides is the default
// partition and always matches itself.
func partitionsMatch(a, b Partition) bool {
	if len(a.Names) == 0 && len(b.Names) == 0 {
		return true
	}
	namesA, namesB := a.Names, b.Names
	if len(namesA) == 0 {
		namesA = []string{""}
	}
	if len(namesB) == 0 {
		namesB = []string{""}
	}
	for _, x := range namesA {
		for _, y := range namesB {
			if partitionNameMatch(x, y) {
				return true
			}
		}
	}
	return false
}

// partitionNameMatch implements DDS partition matching: exact equality,
// or glob (`*`/`?`) matching in either direction.
func partitionNameMatch(a, b string) bool {
	if a == b {
		return true
	}
	if strings.ContainsAny(a, "*?") && globMatch(a, b) {
		return true
	}
	if strings.ContainsAny(b, "*?") && globMatch(b, a) {
		return true
	}
	return false
}

// globMatch implements a small `*`/`?` glob matcher (no character
// classes), sufficient for DDS partition expressions.
func globMatch(pattern, s string) bool {
	return globMatchRec(pattern, s)
}

func globMatchRec(p, s string) bool {
	for len(p) > 0 {
		switch p[0] {
		case '*':
			for len(p) > 1 && p[1] == '*' {
				p = p[1:]
			}
			if len(p) == 1 {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if globMatchRec(p[1:], s[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(s) == 0 {
				return false
			}
			p, s = p[1:], s[1:]
		default:
			if len(s) == 0 || s[0] != p[0] {
				return false
			}
			p, s = p[1:], s[1:]
		}
	}
	return len(s) == 0
}

func representationsIntersect(offered, requested DataRepresentation) bool {
	offeredIDs := offered.IDs
	if len(offeredIDs) == 0 {
		offeredIDs = []int16{0}
	}
	requestedIDs := requested.IDs
	if len(requestedIDs) == 0 {
		requestedIDs = []int16{0}
	}
	for _, o := range offeredIDs {
		for _, r := range requestedIDs {
			if o == r {
				return true
			}
		}
	}
	return false
}

