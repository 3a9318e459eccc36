package participant

import (
	"github.com/marmos91/dittofs/internal/rtps/dynamictype"
	"github.com/marmos91/dittofs/internal/rtps/historycache"
	"github.com/marmos91/dittofs/internal/rtps/qos"
	"github.com/marmos91/dittofs/internal/rtps/status"
	"github.com/marmos91/dittofs/internal/rtps/transport"
	"github.com/marmos91/dittofs/internal/rtps/types"
)

// Mail is the common marker every typed request the actor's mailbox
// accepts implements (§4.6: "Public requests arrive as typed mail
// variants ... each carrying a reply channel").
type Mail interface{ isMail() }

// CreateWriterMail asks the actor to create a DataWriter publishing
// Topic/TypeName with Policies, announcing it over SEDP.
type CreateWriterMail struct {
	Topic, TypeName string
	TypeSupport     dynamictype.TypeSupport
	Policies        qos.Policies
	Reply           chan CreateEndpointReply
}

func (CreateWriterMail) isMail() {}

// CreateReaderMail asks the actor to create a DataReader subscribing to
// Topic/TypeName with Policies, announcing it over SEDP.
type CreateReaderMail struct {
	Topic, TypeName string
	TypeSupport     dynamictype.TypeSupport
	Policies        qos.Policies
	Reply           chan CreateEndpointReply
}

func (CreateReaderMail) isMail() {}

// CreateEndpointReply answers Create{Writer,Reader}Mail.
type CreateEndpointReply struct {
	GUID types.GUID
	Err  error
}

// DeleteEndpointMail asks the actor to tear down a previously created
// writer or reader, revoking its timers and SEDP announcement (§4.6
// cancellation: "revoked when the owning entity is deleted").
type DeleteEndpointMail struct {
	GUID  types.GUID
	Reply chan error
}

func (DeleteEndpointMail) isMail() {}

// WriteMail asks the actor to publish value on WriterGUID.
type WriteMail struct {
	WriterGUID types.GUID
	Value      any
	Dispose    bool
	Unregister bool
	Reply      chan WriteReply
}

func (WriteMail) isMail() {}

// WriteReply answers WriteMail.
type WriteReply struct {
	SequenceNumber types.SequenceNumber
	Err            error
}

// ReadTakeMail asks the actor for the samples currently buffered on
// ReaderGUID. When Take is set, returned samples are removed.
type ReadTakeMail struct {
	ReaderGUID types.GUID
	Take       bool
	Reply      chan ReadTakeReply
}

func (ReadTakeMail) isMail() {}

// Sample is one value delivered to a DataReader, with its instance
// handle and disposition.
type Sample struct {
	Value          any
	InstanceHandle historycache.InstanceHandle
	Kind           historycache.ChangeKind
}

// ReadTakeReply answers ReadTakeMail.
type ReadTakeReply struct {
	Samples []Sample
	Err     error
}

// MatchedMail asks the actor for the remote GUIDs currently matched
// with local.
type MatchedMail struct {
	GUID  types.GUID
	Reply chan []types.GUID
}

func (MatchedMail) isMail() {}

// StatusMail asks the actor for the status.Set backing one local
// endpoint, so a caller can run the appropriate Read* accessor itself
// without exposing entity internals outside the package.
type StatusMail struct {
	GUID  types.GUID
	Reply chan *status.Set
}

func (StatusMail) isMail() {}

// AckedMail asks whether every reader currently matched with WriterGUID
// has acknowledged SN, backing DataWriter.wait_for_acknowledgments (§6).
type AckedMail struct {
	WriterGUID types.GUID
	SN         types.SequenceNumber
	Reply      chan bool
}

func (AckedMail) isMail() {}

// inboundMail wraps one received datagram for dispatch on the actor's
// own goroutine; it is not part of the public mailbox surface.
type inboundMail struct {
	received transport.Received
}

func (inboundMail) isMail() {}

