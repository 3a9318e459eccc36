// Package transport defines the C9 transport abstraction: send/receive
// of byte blobs keyed by Locator (§4.8). The core assumes exactly one
// transport implementation is plugged in per participant but makes no
// other requirement of it; fragmentation belongs at the transport or
// DATAFRAG layer, not here.
package transport

import (
	"context"

	"github.com/marmos91/dittofs/internal/rtps/types"
)

// Received pairs an inbound message with the locator it arrived from.
type Received struct {
	Source types.Locator
	Data   []byte
}

// Transport sends serialized RTPS messages to a Locator and delivers
// inbound ones on a channel. Implementations must be safe for concurrent
// Write calls; Receive is read by a single dispatch loop.
type Transport interface {
	// Write sends data to destination. It must not block past ctx's
	// deadline/cancellation.
	Write(ctx context.Context, data []byte, destination types.Locator) error

	// Receive returns the channel inbound messages arrive on. The
	// channel is closed when the transport is closed.
	Receive() <-chan Received

	// DefaultUnicastLocator returns the locator peers should use to
	// reach this transport directly.
	DefaultUnicastLocator() types.Locator

	// Close releases the transport's sockets and closes the Receive
	// channel.
	Close() error
}
