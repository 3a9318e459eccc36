package participant

import (
	"fmt"
	"sync"

	"github.com/marmos91/dittofs/internal/rtps/cdr"
	"github.com/marmos91/dittofs/internal/rtps/discovery"
	"github.com/marmos91/dittofs/internal/rtps/dynamictype"
	"github.com/marmos91/dittofs/internal/rtps/historycache"
	"github.com/marmos91/dittofs/internal/rtps/qos"
	"github.com/marmos91/dittofs/internal/rtps/reader"
	"github.com/marmos91/dittofs/internal/rtps/status"
	"github.com/marmos91/dittofs/internal/rtps/types"
	"github.com/marmos91/dittofs/internal/rtps/writer"
)

// encodePayload and decodePayload wrap EncodeStruct/DecodeStruct in the
// plain big-endian CDR reader/writer pair they expect, since the DATA
// submessage's SerializedPayload is just the encoded bytes.
func encodePayload(dd *dynamictype.DynamicData) ([]byte, error) {
	w := cdr.NewWriter(cdr.BigEndian)
	if err := dynamictype.EncodeStruct(w, dd); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func decodePayload(payload []byte, typ *dynamictype.DynamicType) (*dynamictype.DynamicData, error) {
	r := cdr.NewReader(payload, cdr.BigEndian)
	return dynamictype.DecodeStruct(r, typ)
}

// writerEntity bundles one user DataWriter's engine, history, and
// discovery/status bookkeeping.
type writerEntity struct {
	guid            types.GUID
	topic, typeName string
	ts              dynamictype.TypeSupport
	policies        qos.Policies
	history         *historycache.HistoryCache
	sw              *writer.StatefulWriter
	status          *status.Set
}

// readerEntity bundles one user DataReader's engine, history, status,
// and the samples buffered for read/take.
type readerEntity struct {
	guid            types.GUID
	topic, typeName string
	ts              dynamictype.TypeSupport
	policies        qos.Policies
	history         *historycache.HistoryCache
	sr              *reader.StatefulReader
	status          *status.Set

	mu    sync.Mutex
	taken map[takenKey]bool
}

// takenKey identifies one cache change across possibly several matched
// writers, whose sequence numbers are only unique per writer.
type takenKey struct {
	writer types.GUID
	sn     types.SequenceNumber
}

// builtinWriter/builtinReader wrap the StatefulWriter/StatefulReader
// pair used for the SEDP publications and subscriptions built-in
// topics; they carry no application TypeSupport since their payload is
// always a discovery.DiscoveredWriterData/ReaderData.
type builtinWriter struct {
	guid    types.GUID
	history *historycache.HistoryCache
	sw      *writer.StatefulWriter
}

type builtinReader struct {
	guid    types.GUID
	history *historycache.HistoryCache
	sr      *reader.StatefulReader
}

func (p *Participant) newBuiltinWriter(entity types.EntityId) *builtinWriter {
	guid := types.GUID{Prefix: p.selfPrefix, Entity: entity}
	hc := historycache.New(historycache.Config{
		History:        historycache.History{Kind: historycache.KeepLast, Depth: 32},
		ResourceLimits: historycache.DefaultResourceLimits(),
		Reliable:       true,
		EndpointKind:   historycache.EndpointKindWriter,
	})
	sw := writer.New(writer.Config{
		WriterGUID:      guid,
		Reliable:        true,
		HeartbeatPeriod: p.cfg.HeartbeatPeriod,
		NackResponseDelay: p.cfg.NackResponseDelay,
		History:         hc,
		Sender:          p,
	})
	hc.SetAckChecker(sw)
	return &builtinWriter{guid: guid, history: hc, sw: sw}
}

func (p *Participant) newBuiltinReader(entity types.EntityId) *builtinReader {
	guid := types.GUID{Prefix: p.selfPrefix, Entity: entity}
	hc := historycache.New(historycache.Config{
		History:        historycache.History{Kind: historycache.KeepLast, Depth: 32},
		ResourceLimits: historycache.DefaultResourceLimits(),
		Reliable:       true,
		EndpointKind:   historycache.EndpointKindReader,
	})
	sr := reader.New(reader.Config{
		ReaderGUID:             guid,
		Reliable:               true,
		HeartbeatResponseDelay: p.cfg.HeartbeatResponseDelay,
		History:                hc,
		Sender:                 p,
	})
	return &builtinReader{guid: guid, history: hc, sr: sr}
}

// createWriter allocates a new user DataWriter GUID, builds its engine,
// and announces it over SEDP (§3, §4.5, §6).
func (p *Participant) createWriter(req CreateWriterMail) (types.GUID, error) {
	kind := types.EntityKindUserWriterNoKey
	if len(req.TypeSupport.GetType().KeyMembers()) > 0 {
		kind = types.EntityKindUserWriterKey
	}
	guid := types.GUID{Prefix: p.selfPrefix, Entity: types.EntityId{EntityKey: p.allocEntityKey(), Kind: kind}}

	hc := historycache.New(historycache.Config{
		History:        req.Policies.History,
		ResourceLimits: req.Policies.ResourceLimits,
		Reliable:       req.Policies.Reliability.Kind == qos.ReliabilityReliable,
		MaxBlockingTime: req.Policies.Reliability.MaxBlockingTime,
		EndpointKind:   historycache.EndpointKindWriter,
	})
	sw := writer.New(writer.Config{
		WriterGUID:        guid,
		Reliable:          req.Policies.Reliability.Kind == qos.ReliabilityReliable,
		HeartbeatPeriod:   p.cfg.HeartbeatPeriod,
		NackResponseDelay: p.cfg.NackResponseDelay,
		DeadlinePeriod:    req.Policies.Deadline.Period,
		History:           hc,
		Sender:            p,
		DeadlineListener:  p,
	})
	hc.SetAckChecker(sw)

	we := &writerEntity{guid: guid, topic: req.Topic, typeName: req.TypeName, ts: req.TypeSupport, policies: req.Policies, history: hc, sw: sw, status: status.NewSet()}
	p.writers[guid] = we

	loc := p.cfg.Transport.DefaultUnicastLocator()
	dwd := discovery.NewDiscoveredWriterData(guid, req.Topic, req.TypeName, []types.Locator{loc}, nil, req.Policies)
	if err := p.announceWriter(dwd); err != nil {
		delete(p.writers, guid)
		return types.GUID{}, fmt.Errorf("participant: announce writer: %w", err)
	}
	p.sedp.AnnounceLocalWriter(dwd)
	return guid, nil
}

// createReader mirrors createWriter for DataReaders.
func (p *Participant) createReader(req CreateReaderMail) (types.GUID, error) {
	kind := types.EntityKindUserReaderNoKey
	if len(req.TypeSupport.GetType().KeyMembers()) > 0 {
		kind = types.EntityKindUserReaderKey
	}
	guid := types.GUID{Prefix: p.selfPrefix, Entity: types.EntityId{EntityKey: p.allocEntityKey(), Kind: kind}}

	hc := historycache.New(historycache.Config{
		History:        req.Policies.History,
		ResourceLimits: req.Policies.ResourceLimits,
		Reliable:       req.Policies.Reliability.Kind == qos.ReliabilityReliable,
		EndpointKind:   historycache.EndpointKindReader,
	})
	sr := reader.New(reader.Config{
		ReaderGUID:             guid,
		Reliable:               req.Policies.Reliability.Kind == qos.ReliabilityReliable,
		HeartbeatResponseDelay: p.cfg.HeartbeatResponseDelay,
		History:                hc,
		Sender:                 p,
	})

	re := &readerEntity{guid: guid, topic: req.Topic, typeName: req.TypeName, ts: req.TypeSupport, policies: req.Policies, history: hc, sr: sr, status: status.NewSet(), taken: make(map[takenKey]bool)}
	p.readers[guid] = re

	loc := p.cfg.Transport.DefaultUnicastLocator()
	drd := discovery.NewDiscoveredReaderData(guid, req.Topic, req.TypeName, []types.Locator{loc}, nil, req.Policies, false)
	if err := p.announceReader(drd); err != nil {
		delete(p.readers, guid)
		return types.GUID{}, fmt.Errorf("participant: announce reader: %w", err)
	}
	p.sedp.AnnounceLocalReader(drd)
	return guid, nil
}

func (p *Participant) announceWriter(dwd discovery.DiscoveredWriterData) error {
	payload, err := dwd.Encode()
	if err != nil {
		return err
	}
	ctx, cancel := contextWithTimeout(p.cfg.HeartbeatPeriod)
	defer cancel()
	change := &historycache.CacheChange{Kind: historycache.ChangeKindAlive, InstanceHandle: endpointInstanceHandle(dwd.EndpointGUID), SerializedPayload: payload}
	_, err = p.sedpPubWriter.sw.Write(ctx, change)
	return err
}

func (p *Participant) announceReader(drd discovery.DiscoveredReaderData) error {
	payload, err := drd.Encode()
	if err != nil {
		return err
	}
	ctx, cancel := contextWithTimeout(p.cfg.HeartbeatPeriod)
	defer cancel()
	change := &historycache.CacheChange{Kind: historycache.ChangeKindAlive, InstanceHandle: endpointInstanceHandle(drd.EndpointGUID), SerializedPayload: payload}
	_, err = p.sedpSubWriter.sw.Write(ctx, change)
	return err
}

// reannounceSedp re-publishes every locally created writer/reader's SEDP
// data on the announce tick, so a participant discovered after this one
// started still learns of existing endpoints without waiting on a fresh
// match.
func (p *Participant) reannounceSedp() {
	for _, we := range p.writers {
		loc := p.cfg.Transport.DefaultUnicastLocator()
		dwd := discovery.NewDiscoveredWriterData(we.guid, we.topic, we.typeName, []types.Locator{loc}, nil, we.policies)
		_ = p.announceWriter(dwd)
	}
	for _, re := range p.readers {
		loc := p.cfg.Transport.DefaultUnicastLocator()
		drd := discovery.NewDiscoveredReaderData(re.guid, re.topic, re.typeName, []types.Locator{loc}, nil, re.policies, false)
		_ = p.announceReader(drd)
	}
}

func endpointInstanceHandle(guid types.GUID) historycache.InstanceHandle {
	var h historycache.InstanceHandle
	copy(h[:12], guid.Prefix[:])
	copy(h[12:], guid.Entity.EntityKey[:])
	h[15] = byte(guid.Entity.Kind)
	return h
}

// deleteEndpoint tears down a writer or reader, stopping its engine and
// dropping SEDP/status state (§4.6 cancellation).
func (p *Participant) deleteEndpoint(guid types.GUID) error {
	if we, ok := p.writers[guid]; ok {
		we.sw.Close()
		delete(p.writers, guid)
		return nil
	}
	if re, ok := p.readers[guid]; ok {
		re.sr.Close()
		delete(p.readers, guid)
		return nil
	}
	return fmt.Errorf("participant: unknown endpoint %s", guid)
}

// write serializes req.Value through the writer's TypeSupport, derives
// its instance handle, and hands it to the writer engine.
func (p *Participant) write(req WriteMail) (types.SequenceNumber, error) {
	we, ok := p.writers[req.WriterGUID]
	if !ok {
		return 0, fmt.Errorf("participant: unknown writer %s", req.WriterGUID)
	}
	dd, err := we.ts.ToDynamicData(req.Value)
	if err != nil {
		return 0, fmt.Errorf("participant: convert value: %w", err)
	}
	instance, err := dynamictype.KeyHash(dd)
	if err != nil {
		return 0, fmt.Errorf("participant: key hash: %w", err)
	}

	payload, err := encodePayload(dd)
	if err != nil {
		return 0, fmt.Errorf("participant: encode payload: %w", err)
	}

	kind := historycache.ChangeKindAlive
	switch {
	case req.Unregister:
		kind = historycache.ChangeKindNotAliveUnregistered
	case req.Dispose:
		kind = historycache.ChangeKindNotAliveDisposed
	}

	ctx, cancel := contextWithTimeout(we.policies.Reliability.MaxBlockingTime)
	defer cancel()
	change := &historycache.CacheChange{Kind: kind, InstanceHandle: instance, SerializedPayload: payload}
	sn, err := we.sw.Write(ctx, change)
	if err != nil {
		return 0, err
	}
	return sn, nil
}

// readTake decodes every buffered change on a reader through its
// TypeSupport, optionally marking them taken so a later call does not
// return them again (§6 read/take).
func (p *Participant) readTake(guid types.GUID, take bool) ([]Sample, error) {
	re, ok := p.readers[guid]
	if !ok {
		return nil, fmt.Errorf("participant: unknown reader %s", guid)
	}
	re.mu.Lock()
	defer re.mu.Unlock()

	var out []Sample
	for _, c := range re.history.Changes() {
		key := takenKey{writer: c.WriterGUID, sn: c.SequenceNumber}
		if re.taken[key] {
			continue
		}
		var value any
		if len(c.SerializedPayload) > 0 {
			dd, err := decodePayload(c.SerializedPayload, re.ts.GetType())
			if err != nil {
				continue
			}
			value, err = re.ts.FromDynamicData(dd)
			if err != nil {
				continue
			}
		}
		out = append(out, Sample{Value: value, InstanceHandle: c.InstanceHandle, Kind: c.Kind})
		if take {
			re.taken[key] = true
		}
	}
	return out, nil
}
