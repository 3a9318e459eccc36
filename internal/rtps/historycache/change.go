// Package historycache implements C2: the per-endpoint ordered store of
// cache changes, with instance grouping and KeepLast/KeepAll +
// ResourceLimits enforcement (§3, §4.2).
package historycache

import (
	"time"

	"github.com/marmos91/dittofs/internal/rtps/types"
)

// ChangeKind classifies a CacheChange per §3.
type ChangeKind int

const (
	ChangeKindAlive ChangeKind = iota
	ChangeKindNotAliveDisposed
	ChangeKindNotAliveUnregistered
)

// InstanceHandle is the 16-octet digest identifying a keyed instance.
type InstanceHandle [16]byte

// CacheChange is the unit of data exchanged between a writer and its
// matched readers.
type CacheChange struct {
	Kind              ChangeKind
	WriterGUID        types.GUID
	InstanceHandle    InstanceHandle
	SequenceNumber    types.SequenceNumber
	SourceTimestamp   *time.Time
	SerializedPayload []byte
	InlineQos         []byte
}
