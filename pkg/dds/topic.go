package dds

import "github.com/marmos91/dittofs/internal/rtps/dynamictype"

// Topic names a stream of samples of one type within a DomainParticipant
// (§6 create_topic/lookup_topicdescription). It carries no RTPS identity
// of its own — discovery and data flow happen entirely at the DataWriter
// and DataReader it is attached to.
type Topic struct {
	dp       *DomainParticipant
	name     string
	typeName string
	ts       dynamictype.TypeSupport
}

// Name returns the topic's name.
func (t *Topic) Name() string { return t.name }

// TypeName returns the registered type name.
func (t *Topic) TypeName() string { return t.typeName }
