package discovery

import (
	"github.com/marmos91/dittofs/internal/rtps/cdr"
	"github.com/marmos91/dittofs/internal/rtps/parameterlist"
	"github.com/marmos91/dittofs/internal/rtps/qos"
	"github.com/marmos91/dittofs/internal/rtps/types"
)

// endpointCommon holds the fields DiscoveredWriterData and
// DiscoveredReaderData share (§4.5, §6).
type endpointCommon struct {
	EndpointGUID     types.GUID
	TopicName        string
	TypeName         string
	UnicastLocators  []types.Locator
	MulticastLocators []types.Locator
	Policies         qos.Policies
}

func encodeEndpointCommon(pl *parameterlist.ParameterList, e endpointCommon) {
	pl.Set(parameterlist.PIDEndpointGUID, encodeGUID(e.EndpointGUID))
	pl.Set(parameterlist.PIDTopicName, encodeString(e.TopicName))
	pl.Set(parameterlist.PIDTypeName, encodeString(e.TypeName))
	reliabilityKind := uint32(0)
	if e.Policies.Reliability.Kind == qos.ReliabilityReliable {
		reliabilityKind = 2 // DDSI wire value for RELIABLE_RELIABILITY_QOS
	}
	pl.Set(parameterlist.PIDReliability, encodeU32(reliabilityKind))
	pl.Set(parameterlist.PIDDurability, encodeU32(uint32(e.Policies.Durability.Kind)))
	pl.Set(parameterlist.PIDDestinationOrder, encodeU32(uint32(e.Policies.DestinationOrder.Kind)))
	pl.Set(parameterlist.PIDOwnership, encodeU32(uint32(e.Policies.Ownership.Kind)))
	if len(e.Policies.Partition.Names) > 0 {
		w := cdr.NewWriter(cdr.BigEndian)
		_ = w.WriteUint32(uint32(len(e.Policies.Partition.Names)))
		for _, n := range e.Policies.Partition.Names {
			_ = w.WriteString(n)
		}
		pl.Set(parameterlist.PIDPartition, w.Bytes())
	}
	for _, l := range e.UnicastLocators {
		pl.Parameters = append(pl.Parameters, parameterlist.Parameter{PID: parameterlist.PIDUnicastLocator, Value: encodeLocator(l)})
	}
	for _, l := range e.MulticastLocators {
		pl.Parameters = append(pl.Parameters, parameterlist.Parameter{PID: parameterlist.PIDMulticastLocator, Value: encodeLocator(l)})
	}
}

func decodeEndpointCommon(pl parameterlist.ParameterList) endpointCommon {
	var e endpointCommon
	if v, ok := pl.Get(parameterlist.PIDEndpointGUID); ok {
		if g, err := decodeGUID(v); err == nil {
			e.EndpointGUID = g
		}
	}
	if v, ok := pl.Get(parameterlist.PIDTopicName); ok {
		if s, err := decodeString(v); err == nil {
			e.TopicName = s
		}
	}
	if v, ok := pl.Get(parameterlist.PIDTypeName); ok {
		if s, err := decodeString(v); err == nil {
			e.TypeName = s
		}
	}
	e.Policies = qos.Default()
	if v, ok := pl.Get(parameterlist.PIDReliability); ok {
		if n, err := decodeU32(v); err == nil && n == 2 {
			e.Policies.Reliability.Kind = qos.ReliabilityReliable
		}
	}
	if v, ok := pl.Get(parameterlist.PIDDurability); ok {
		if n, err := decodeU32(v); err == nil {
			e.Policies.Durability.Kind = qos.DurabilityKind(n)
		}
	}
	if v, ok := pl.Get(parameterlist.PIDDestinationOrder); ok {
		if n, err := decodeU32(v); err == nil {
			e.Policies.DestinationOrder.Kind = qos.DestinationOrderKind(n)
		}
	}
	if v, ok := pl.Get(parameterlist.PIDOwnership); ok {
		if n, err := decodeU32(v); err == nil {
			e.Policies.Ownership.Kind = qos.OwnershipKind(n)
		}
	}
	if v, ok := pl.Get(parameterlist.PIDPartition); ok {
		r := cdr.NewReader(v, cdr.BigEndian)
		if n, err := r.ReadUint32(); err == nil {
			for i := uint32(0); i < n; i++ {
				s, err := r.ReadString()
				if err != nil {
					break
				}
				e.Policies.Partition.Names = append(e.Policies.Partition.Names, s)
			}
		}
	}
	for _, p := range pl.Parameters {
		switch p.PID {
		case parameterlist.PIDUnicastLocator:
			if l, err := decodeLocator(p.Value); err == nil {
				e.UnicastLocators = append(e.UnicastLocators, l)
			}
		case parameterlist.PIDMulticastLocator:
			if l, err := decodeLocator(p.Value); err == nil {
				e.MulticastLocators = append(e.MulticastLocators, l)
			}
		}
	}
	return e
}

// DiscoveredWriterData is the SEDP built-in topic data announcing one
// local DataWriter (§4.5, §6).
type DiscoveredWriterData struct {
	endpointCommon
}

// Encode serializes w as a PL_CDR_LE parameter list.
func (w DiscoveredWriterData) Encode() ([]byte, error) {
	var pl parameterlist.ParameterList
	encodeEndpointCommon(&pl, w.endpointCommon)
	cw := cdr.NewWriter(cdr.LittleEndian)
	if err := parameterlist.Encode(cw, pl); err != nil {
		return nil, err
	}
	return cw.Bytes(), nil
}

// DecodeDiscoveredWriterData parses SEDP publication data.
func DecodeDiscoveredWriterData(payload []byte, littleEndian bool) (DiscoveredWriterData, error) {
	r := cdr.NewReader(payload, cdr.Endianness(littleEndian))
	pl, err := parameterlist.Decode(r)
	if err != nil {
		return DiscoveredWriterData{}, err
	}
	return DiscoveredWriterData{endpointCommon: decodeEndpointCommon(pl)}, nil
}

// DiscoveredReaderData is the SEDP built-in topic data announcing one
// local DataReader (§4.5, §6).
type DiscoveredReaderData struct {
	endpointCommon
	ExpectsInlineQos bool
}

// Encode serializes r as a PL_CDR_LE parameter list.
func (r DiscoveredReaderData) Encode() ([]byte, error) {
	var pl parameterlist.ParameterList
	encodeEndpointCommon(&pl, r.endpointCommon)
	if r.ExpectsInlineQos {
		pl.Set(parameterlist.PIDExpectsInlineQos, []byte{1, 0, 0, 0})
	}
	cw := cdr.NewWriter(cdr.LittleEndian)
	if err := parameterlist.Encode(cw, pl); err != nil {
		return nil, err
	}
	return cw.Bytes(), nil
}

// DecodeDiscoveredReaderData parses SEDP subscription data.
func DecodeDiscoveredReaderData(payload []byte, littleEndian bool) (DiscoveredReaderData, error) {
	r := cdr.NewReader(payload, cdr.Endianness(littleEndian))
	pl, err := parameterlist.Decode(r)
	if err != nil {
		return DiscoveredReaderData{}, err
	}
	d := DiscoveredReaderData{endpointCommon: decodeEndpointCommon(pl)}
	if v, ok := pl.Get(parameterlist.PIDExpectsInlineQos); ok && len(v) > 0 {
		d.ExpectsInlineQos = v[0] != 0
	}
	return d, nil
}

// DiscoveredTopicData is the SEDP built-in topic data announcing one
// locally created Topic (§4.5, §6).
type DiscoveredTopicData struct {
	TopicName string
	TypeName  string
}

// Encode serializes t as a PL_CDR_LE parameter list.
func (t DiscoveredTopicData) Encode() ([]byte, error) {
	var pl parameterlist.ParameterList
	pl.Set(parameterlist.PIDTopicName, encodeString(t.TopicName))
	pl.Set(parameterlist.PIDTypeName, encodeString(t.TypeName))
	w := cdr.NewWriter(cdr.LittleEndian)
	if err := parameterlist.Encode(w, pl); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// DecodeDiscoveredTopicData parses SEDP topic data.
func DecodeDiscoveredTopicData(payload []byte, littleEndian bool) (DiscoveredTopicData, error) {
	r := cdr.NewReader(payload, cdr.Endianness(littleEndian))
	pl, err := parameterlist.Decode(r)
	if err != nil {
		return DiscoveredTopicData{}, err
	}
	var t DiscoveredTopicData
	if v, ok := pl.Get(parameterlist.PIDTopicName); ok {
		t.TopicName, _ = decodeString(v)
	}
	if v, ok := pl.Get(parameterlist.PIDTypeName); ok {
		t.TypeName, _ = decodeString(v)
	}
	return t, nil
}
