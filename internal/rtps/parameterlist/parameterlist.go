// Package parameterlist implements PL_CDR: the self-describing
// PID/length/value parameter stream used by DATA submessages carrying
// inline QoS and by every built-in discovery data type (§4.1, §6).
package parameterlist

import (
	"errors"
	"fmt"

	"github.com/marmos91/dittofs/internal/rtps/cdr"
)

// PID identifies a parameter's semantic meaning (§6, subset enumerated
// in the wire format).
type PID uint16

const (
	PIDSentinel           PID = 0x0001
	PIDParticipantGUID    PID = 0x0050
	PIDEndpointGUID       PID = 0x005A
	PIDTopicName          PID = 0x0005
	PIDTypeName           PID = 0x0007
	PIDDurability         PID = 0x001D
	PIDDeadline           PID = 0x0023
	PIDLatencyBudget      PID = 0x0027
	PIDLiveliness         PID = 0x001B
	PIDReliability        PID = 0x001A
	PIDOwnership          PID = 0x001F
	PIDDestinationOrder   PID = 0x0025
	PIDHistory            PID = 0x0040
	PIDResourceLimits     PID = 0x0041
	PIDTopicData          PID = 0x002E
	PIDGroupData          PID = 0x002D
	PIDUserData           PID = 0x002C
	PIDPartition          PID = 0x0029
	PIDPresentation       PID = 0x0021
	PIDLifespan           PID = 0x002B
	PIDTransportPriority  PID = 0x0049
	PIDDataRepresentation PID = 0x0073
	PIDUnicastLocator     PID = 0x002F
	PIDMulticastLocator   PID = 0x0030
	PIDGroupEntityId      PID = 0x0053
	PIDExpectsInlineQos   PID = 0x0043
	PIDStatusInfo         PID = 0x0071
	PIDKeyHash            PID = 0x0070

	// Discovery PIDs beyond the spec's illustrative subset (§6), needed
	// to carry SPDP/SEDP locators and liveness that subset omits but
	// DDSI-RTPS §9.6.2 defines.
	PIDProtocolVersion            PID = 0x0015
	PIDVendorId                   PID = 0x0016
	PIDDefaultUnicastLocator      PID = 0x0031
	PIDDefaultMulticastLocator    PID = 0x0048
	PIDMetatrafficUnicastLocator  PID = 0x0032
	PIDMetatrafficMulticastLocator PID = 0x0033
	PIDParticipantLeaseDuration   PID = 0x0002
	PIDBuiltinEndpointSet         PID = 0x0058
	PIDDomainId                   PID = 0x000F
)

// Status-info flag bits carried in the 4-octet PID_STATUS_INFO value
// (last octet; the first three are reserved zero), §4.3.
const (
	StatusInfoDisposed    = 0x01
	StatusInfoUnregistered = 0x02
)

// mutableMask is the PID high bit (§4.1): readers must ignore unknown
// PIDs whose high bit is clear (mutable, safely-ignorable fields).
const mutableMask = PID(0x8000)

// IsMustUnderstand reports whether the decoder must fail if it doesn't
// recognize this PID, per the high-bit convention.
func (p PID) IsMustUnderstand() bool { return p&mutableMask != 0 }

// ErrMissingSentinel is returned when a parameter stream ends without a
// PID_SENTINEL.
var ErrMissingSentinel = errors.New("parameterlist: missing PID_SENTINEL")

// Parameter is one (pid, value) entry. Unknown PIDs keep their raw value
// bytes so re-serialization preserves them untouched (§9 design note on
// parameter list mutability).
type Parameter struct {
	PID   PID
	Value []byte
}

// ParameterList is an ordered sequence of parameters as found in one PL_CDR
// stream, preserving insertion order including unknown entries.
type ParameterList struct {
	Parameters []Parameter
}

// Get returns the first parameter with the given PID, if present.
func (pl ParameterList) Get(pid PID) ([]byte, bool) {
	for _, p := range pl.Parameters {
		if p.PID == pid {
			return p.Value, true
		}
	}
	return nil, false
}

// Set replaces (or appends) the parameter with the given PID.
func (pl *ParameterList) Set(pid PID, value []byte) {
	for i, p := range pl.Parameters {
		if p.PID == pid {
			pl.Parameters[i].Value = value
			return
		}
	}
	pl.Parameters = append(pl.Parameters, Parameter{PID: pid, Value: value})
}

// Encode writes the parameter list to w, including the terminating
// PID_SENTINEL, padding each value to a 4-octet boundary.
func Encode(w *cdr.Writer, pl ParameterList) error {
	for _, p := range pl.Parameters {
		if err := encodeOne(w, p.PID, p.Value); err != nil {
			return err
		}
	}
	return encodeOne(w, PIDSentinel, nil)
}

func encodeOne(w *cdr.Writer, pid PID, value []byte) error {
	padded := pad4(value)
	if err := w.WriteUint16(uint16(pid)); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(len(padded))); err != nil {
		return err
	}
	return w.WriteOctets(padded)
}

func pad4(v []byte) []byte {
	n := (4 - len(v)%4) % 4
	if n == 0 {
		return v
	}
	out := make([]byte, len(v)+n)
	copy(out, v)
	return out
}

// maxParameters bounds the number of entries decoded from one stream,
// defending against a corrupt length field causing an unbounded loop.
const maxParameters = 4096

// Decode reads a parameter list from r up to and including its
// PID_SENTINEL. Parameter value slices retain their 4-octet padding; a
// PID's semantic decoder is responsible for trimming to its own
// meaningful length.
func Decode(r *cdr.Reader) (ParameterList, error) {
	var pl ParameterList
	for i := 0; i < maxParameters; i++ {
		pidVal, err := r.ReadUint16()
		if err != nil {
			return ParameterList{}, fmt.Errorf("parameterlist: read pid: %w", err)
		}
		length, err := r.ReadUint16()
		if err != nil {
			return ParameterList{}, fmt.Errorf("parameterlist: read length: %w", err)
		}
		pid := PID(pidVal)
		if pid == PIDSentinel {
			return pl, nil
		}
		value, err := r.ReadOctets(int(length))
		if err != nil {
			return ParameterList{}, fmt.Errorf("parameterlist: read value for pid %#x: %w", pidVal, err)
		}
		pl.Parameters = append(pl.Parameters, Parameter{PID: pid, Value: value})
	}
	return ParameterList{}, ErrMissingSentinel
}
