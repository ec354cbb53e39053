// Package ports defines the capability interfaces between the one-shot
// transport and the RPC engine behind it. The bridge depends on these
// contracts, never on a concrete engine implementation.
package ports

import (
	"context"

	"github.com/nocodo-ai/cdk-lambda-mcp-server/pkg/bridge/protocol"
)

// Emitter is the capability an engine uses to push outgoing messages
// back to the transport.
type Emitter interface {
	// Emit hands one outgoing message to the transport. The transport is
	// free to drop messages it cannot deliver; Emit reports only
	// transport-level failures, not delivery.
	Emit(ctx context.Context, msg *protocol.Message) error
}

// Receiver is the capability the transport uses to hand incoming
// messages to the engine.
type Receiver interface {
	// Receive enqueues one incoming message into the engine. The engine's
	// own processing may be asynchronous; any reply arrives later through
	// the Emitter.
	Receive(ctx context.Context, msg *protocol.Message) error
}

// Engine is the RPC engine capability set the transport adapter depends
// on. Connect performs the engine's one-time handshake and returns the
// engine's receive binding, registering the incoming-message path exactly
// once instead of exposing a mutable callback slot.
type Engine interface {
	Connect(ctx context.Context, emitter Emitter) (Receiver, error)
}
