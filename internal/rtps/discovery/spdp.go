package discovery

import (
	"time"

	"github.com/marmos91/dittofs/internal/rtps/cdr"
	"github.com/marmos91/dittofs/internal/rtps/message"
	"github.com/marmos91/dittofs/internal/rtps/parameterlist"
	"github.com/marmos91/dittofs/internal/rtps/types"
)

// BuiltinEndpointSet is a bitmap of which built-in discovery endpoints a
// participant has enabled, carried on SpdpDiscoveredParticipantData.
type BuiltinEndpointSet uint32

const (
	BuiltinParticipantAnnouncer BuiltinEndpointSet = 1 << 0
	BuiltinParticipantDetector  BuiltinEndpointSet = 1 << 1
	BuiltinPublicationsAnnouncer BuiltinEndpointSet = 1 << 2
	BuiltinPublicationsDetector  BuiltinEndpointSet = 1 << 3
	BuiltinSubscriptionsAnnouncer BuiltinEndpointSet = 1 << 4
	BuiltinSubscriptionsDetector  BuiltinEndpointSet = 1 << 5
	BuiltinTopicAnnouncer         BuiltinEndpointSet = 1 << 6
	BuiltinTopicDetector          BuiltinEndpointSet = 1 << 7
)

// SpdpDiscoveredParticipantData is the built-in topic data SPDP
// broadcasts every participant_announce_period (§4.5, §6).
type SpdpDiscoveredParticipantData struct {
	ProtocolVersion              message.ProtocolVersion
	VendorId                     message.VendorId
	ParticipantGUID              types.GUID
	MetatrafficUnicastLocators   []types.Locator
	MetatrafficMulticastLocators []types.Locator
	DefaultUnicastLocators       []types.Locator
	DefaultMulticastLocators     []types.Locator
	AvailableBuiltinEndpoints    BuiltinEndpointSet
	LeaseDuration                time.Duration
	DomainID                     int
}

// Encode serializes d as a PL_CDR_LE parameter list (§6).
func (d SpdpDiscoveredParticipantData) Encode() ([]byte, error) {
	var pl parameterlist.ParameterList
	pl.Set(parameterlist.PIDProtocolVersion, []byte{d.ProtocolVersion.Major, d.ProtocolVersion.Minor})
	pl.Set(parameterlist.PIDVendorId, []byte{d.VendorId[0], d.VendorId[1]})
	pl.Set(parameterlist.PIDParticipantGUID, encodeGUID(d.ParticipantGUID))
	pl.Set(parameterlist.PIDDomainId, encodeU32(uint32(d.DomainID)))
	pl.Set(parameterlist.PIDParticipantLeaseDuration, encodeDuration(types.DurationFromDuration(d.LeaseDuration)))
	pl.Set(parameterlist.PIDBuiltinEndpointSet, encodeU32(uint32(d.AvailableBuiltinEndpoints)))
	for _, l := range d.MetatrafficUnicastLocators {
		pl.Parameters = append(pl.Parameters, parameterlist.Parameter{PID: parameterlist.PIDMetatrafficUnicastLocator, Value: encodeLocator(l)})
	}
	for _, l := range d.MetatrafficMulticastLocators {
		pl.Parameters = append(pl.Parameters, parameterlist.Parameter{PID: parameterlist.PIDMetatrafficMulticastLocator, Value: encodeLocator(l)})
	}
	for _, l := range d.DefaultUnicastLocators {
		pl.Parameters = append(pl.Parameters, parameterlist.Parameter{PID: parameterlist.PIDDefaultUnicastLocator, Value: encodeLocator(l)})
	}
	for _, l := range d.DefaultMulticastLocators {
		pl.Parameters = append(pl.Parameters, parameterlist.Parameter{PID: parameterlist.PIDDefaultMulticastLocator, Value: encodeLocator(l)})
	}

	w := cdr.NewWriter(cdr.LittleEndian)
	if err := parameterlist.Encode(w, pl); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// DecodeSpdpDiscoveredParticipantData parses a PL_CDR parameter list
// carrying SPDP data back into its structured form. Unknown parameters
// are ignored per the mutable-field convention (§4.1).
func DecodeSpdpDiscoveredParticipantData(payload []byte, littleEndian bool) (SpdpDiscoveredParticipantData, error) {
	r := cdr.NewReader(payload, cdr.Endianness(littleEndian))
	pl, err := parameterlist.Decode(r)
	if err != nil {
		return SpdpDiscoveredParticipantData{}, err
	}

	var d SpdpDiscoveredParticipantData
	if v, ok := pl.Get(parameterlist.PIDProtocolVersion); ok && len(v) >= 2 {
		d.ProtocolVersion = message.ProtocolVersion{Major: v[0], Minor: v[1]}
	}
	if v, ok := pl.Get(parameterlist.PIDVendorId); ok && len(v) >= 2 {
		d.VendorId = message.VendorId{v[0], v[1]}
	}
	if v, ok := pl.Get(parameterlist.PIDParticipantGUID); ok {
		if g, err := decodeGUID(v); err == nil {
			d.ParticipantGUID = g
		}
	}
	if v, ok := pl.Get(parameterlist.PIDDomainId); ok {
		if n, err := decodeU32(v); err == nil {
			d.DomainID = int(n)
		}
	}
	if v, ok := pl.Get(parameterlist.PIDParticipantLeaseDuration); ok {
		if wd, err := decodeDuration(v); err == nil {
			d.LeaseDuration = wd.ToDuration()
		}
	}
	if v, ok := pl.Get(parameterlist.PIDBuiltinEndpointSet); ok {
		if n, err := decodeU32(v); err == nil {
			d.AvailableBuiltinEndpoints = BuiltinEndpointSet(n)
		}
	}
	for _, p := range pl.Parameters {
		switch p.PID {
		case parameterlist.PIDMetatrafficUnicastLocator:
			if l, err := decodeLocator(p.Value); err == nil {
				d.MetatrafficUnicastLocators = append(d.MetatrafficUnicastLocators, l)
			}
		case parameterlist.PIDMetatrafficMulticastLocator:
			if l, err := decodeLocator(p.Value); err == nil {
				d.MetatrafficMulticastLocators = append(d.MetatrafficMulticastLocators, l)
			}
		case parameterlist.PIDDefaultUnicastLocator:
			if l, err := decodeLocator(p.Value); err == nil {
				d.DefaultUnicastLocators = append(d.DefaultUnicastLocators, l)
			}
		case parameterlist.PIDDefaultMulticastLocator:
			if l, err := decodeLocator(p.Value); err == nil {
				d.DefaultMulticastLocators = append(d.DefaultMulticastLocators, l)
			}
		}
	}
	return d, nil
}

// ParticipantProxy is the local bookkeeping kept for a remote
// participant discovered via SPDP: its announced data plus the lease
// expiry deadline that, once passed, removes it and all its endpoints
// (§4.5, §4.6 lease check).
type ParticipantProxy struct {
	Data           SpdpDiscoveredParticipantData
	LeaseExpiresAt time.Time
}

// Expired reports whether this proxy's lease has elapsed as of now.
func (p *ParticipantProxy) Expired(now time.Time) bool {
	return now.After(p.LeaseExpiresAt)
}

// Renew extends the lease from an SPDP heartbeat's receipt time.
func (p *ParticipantProxy) Renew(now time.Time, data SpdpDiscoveredParticipantData) {
	p.Data = data
	p.LeaseExpiresAt = now.Add(data.LeaseDuration)
}
