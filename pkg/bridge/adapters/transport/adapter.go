// Package transport implements the one-shot transport adapter: the
// capability set an RPC engine binds to (start, emit, close) plus the
// per-invocation batch exchange that correlates engine responses back to
// the HTTP caller's requests.
//
// One Adapter instance serves a whole process. The host must serialize
// invocations against it; the pending table is additionally keyed by an
// invocation id so a violated serialization assumption loses responses
// rather than mis-delivering them.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nocodo-ai/cdk-lambda-mcp-server/pkg/bridge/ports"
	"github.com/nocodo-ai/cdk-lambda-mcp-server/pkg/bridge/protocol"
)

var (
	// ErrAlreadyStarted is returned by a second Start on the same
	// instance. This is a programmer error, not a retryable condition.
	ErrAlreadyStarted = errors.New("transport: already started")

	// ErrNotStarted is returned by HandleBatch before Start has
	// completed the engine handshake.
	ErrNotStarted = errors.New("transport: not started")
)

// pendingEntry is one unresolved reply slot in the correlation table.
type pendingEntry struct {
	invocation uuid.UUID
	resolved   chan *protocol.Message
}

// Adapter bridges one-shot invocations to a message-oriented engine. It
// owns the pending-request table and the engine session handle.
type Adapter struct {
	engine ports.Engine
	log    zerolog.Logger

	mu       sync.Mutex
	started  bool
	receiver ports.Receiver

	// Correlation state for the invocation currently in flight.
	invocation uuid.UUID
	pending    map[string]*pendingEntry
}

// Compile-time check: the adapter is the Emitter the engine writes to.
var _ ports.Emitter = (*Adapter)(nil)

// New creates an adapter bound to the given engine. The engine handshake
// does not happen until Start.
func New(engine ports.Engine, log zerolog.Logger) *Adapter {
	return &Adapter{
		engine:  engine,
		log:     log.With().Str("component", "transport").Logger(),
		pending: make(map[string]*pendingEntry),
	}
}

// Start performs the one-time engine connect handshake. Calling Start a
// second time on the same instance fails with ErrAlreadyStarted,
// guarding against accidental double-registration with the engine. Warm
// reuse across invocations happens at the session level, not via
// repeated Start.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()

		return ErrAlreadyStarted
	}
	a.started = true
	a.mu.Unlock()

	receiver, err := a.engine.Connect(ctx, a)
	if err != nil {
		return fmt.Errorf("engine connect: %w", err)
	}

	a.mu.Lock()
	a.receiver = receiver
	a.mu.Unlock()

	return nil
}

// Emit receives outgoing messages from the engine. A Response matching a
// live pending entry resolves it; everything else is dropped, because a
// one-shot HTTP exchange has no channel for server-initiated messages.
// Drops are logged so the limitation stays observable.
func (a *Adapter) Emit(_ context.Context, msg *protocol.Message) error {
	if msg.Kind() != protocol.KindResponse {
		a.log.Debug().
			Stringer("kind", msg.Kind()).
			Str("method", msg.Method).
			Msg("dropping server-initiated message: unsupported over one-shot transport")

		return nil
	}

	key := msg.CorrelationKey()

	a.mu.Lock()
	entry, ok := a.pending[key]
	matched := ok && entry.invocation == a.invocation
	if matched {
		delete(a.pending, key)
	}
	a.mu.Unlock()

	if !matched {
		a.log.Debug().
			Str("id", key).
			Msg("dropping response with no pending request")

		return nil
	}

	// Buffered channel, single resolution: never blocks.
	entry.resolved <- msg

	return nil
}

// Close releases transport resources. The one-shot transport holds no
// open connection, so this is a no-op.
func (*Adapter) Close() error {
	return nil
}
