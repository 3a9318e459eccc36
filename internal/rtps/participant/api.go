package participant

import (
	"context"

	"github.com/marmos91/dittofs/internal/rtps/dynamictype"
	"github.com/marmos91/dittofs/internal/rtps/qos"
	"github.com/marmos91/dittofs/internal/rtps/status"
	"github.com/marmos91/dittofs/internal/rtps/types"
)

// CreateWriter asks the actor to create a DataWriter. It is the only
// entry point pkg/dds uses to mint a publishing endpoint.
func (p *Participant) CreateWriter(ctx context.Context, topic, typeName string, ts dynamictype.TypeSupport, policies qos.Policies) (types.GUID, error) {
	reply := make(chan CreateEndpointReply, 1)
	r, err := send(ctx, p, CreateWriterMail{Topic: topic, TypeName: typeName, TypeSupport: ts, Policies: policies, Reply: reply}, reply)
	if err != nil {
		return types.GUID{}, err
	}
	return r.GUID, r.Err
}

// CreateReader asks the actor to create a DataReader.
func (p *Participant) CreateReader(ctx context.Context, topic, typeName string, ts dynamictype.TypeSupport, policies qos.Policies) (types.GUID, error) {
	reply := make(chan CreateEndpointReply, 1)
	r, err := send(ctx, p, CreateReaderMail{Topic: topic, TypeName: typeName, TypeSupport: ts, Policies: policies, Reply: reply}, reply)
	if err != nil {
		return types.GUID{}, err
	}
	return r.GUID, r.Err
}

// DeleteEndpoint tears down a previously created writer or reader.
func (p *Participant) DeleteEndpoint(ctx context.Context, guid types.GUID) error {
	reply := make(chan error, 1)
	err, sendErr := send(ctx, p, DeleteEndpointMail{GUID: guid, Reply: reply}, reply)
	if sendErr != nil {
		return sendErr
	}
	return err
}

// Write publishes value on writerGUID. dispose/unregister select the
// ChangeKind the way DataWriter's dispose/unregister_instance operations
// do (§6).
func (p *Participant) Write(ctx context.Context, writerGUID types.GUID, value any, dispose, unregister bool) (types.SequenceNumber, error) {
	reply := make(chan WriteReply, 1)
	r, err := send(ctx, p, WriteMail{WriterGUID: writerGUID, Value: value, Dispose: dispose, Unregister: unregister, Reply: reply}, reply)
	if err != nil {
		return 0, err
	}
	return r.SequenceNumber, r.Err
}

// ReadTake returns the samples currently buffered on readerGUID,
// removing them from the buffer when take is set.
func (p *Participant) ReadTake(ctx context.Context, readerGUID types.GUID, take bool) ([]Sample, error) {
	reply := make(chan ReadTakeReply, 1)
	r, err := send(ctx, p, ReadTakeMail{ReaderGUID: readerGUID, Take: take, Reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	return r.Samples, r.Err
}

// Matched returns the remote GUIDs currently matched with local.
func (p *Participant) Matched(ctx context.Context, local types.GUID) ([]types.GUID, error) {
	reply := make(chan []types.GUID, 1)
	return send(ctx, p, MatchedMail{GUID: local, Reply: reply}, reply)
}

// Status returns the status.Set backing local, or nil if local names no
// endpoint this participant owns.
func (p *Participant) Status(ctx context.Context, local types.GUID) (*status.Set, error) {
	reply := make(chan *status.Set, 1)
	return send(ctx, p, StatusMail{GUID: local, Reply: reply}, reply)
}

// Acknowledged reports whether every reader currently matched with
// writerGUID has acknowledged sn.
func (p *Participant) Acknowledged(ctx context.Context, writerGUID types.GUID, sn types.SequenceNumber) (bool, error) {
	reply := make(chan bool, 1)
	return send(ctx, p, AckedMail{WriterGUID: writerGUID, SN: sn, Reply: reply}, reply)
}
