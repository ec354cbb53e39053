package transport

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nocodo-ai/cdk-lambda-mcp-server/pkg/bridge/protocol"
)

// HandleBatch runs one invocation's exchange: it dispatches every input
// message to the engine in order, then waits for a Response to every
// input that was a Request. The returned slice preserves the original
// request order regardless of the order the engine resolves them in. A
// nil slice means no reply is expected (a fire-and-forget exchange).
//
// The pending table is cleared unconditionally on entry: each invocation
// is a logically independent exchange and no correlation state may leak
// from a previous one. No internal timeout is applied; the context (the
// host's invocation deadline) is the only bound on the wait.
func (a *Adapter) HandleBatch(ctx context.Context, msgs []*protocol.Message) ([]*protocol.Message, error) {
	a.mu.Lock()
	if a.receiver == nil {
		a.mu.Unlock()

		return nil, ErrNotStarted
	}

	invocation := uuid.New()
	a.invocation = invocation
	clear(a.pending)

	// Register reply slots before dispatching so a response produced
	// mid-dispatch is never dropped for want of an entry.
	var awaited []*pendingEntry
	for _, msg := range msgs {
		if msg.Kind() != protocol.KindRequest {
			continue
		}
		entry := &pendingEntry{
			invocation: invocation,
			resolved:   make(chan *protocol.Message, 1),
		}
		a.pending[msg.CorrelationKey()] = entry
		awaited = append(awaited, entry)
	}
	receiver := a.receiver
	a.mu.Unlock()

	log := a.log.With().Stringer("invocation", invocation).Logger()
	log.Debug().
		Int("messages", len(msgs)).
		Int("requests", len(awaited)).
		Msg("dispatching batch")

	for i, msg := range msgs {
		if err := receiver.Receive(ctx, msg); err != nil {
			return nil, fmt.Errorf("dispatch message %d: %w", i, err)
		}
	}

	if len(awaited) == 0 {
		return nil, nil
	}

	replies := make([]*protocol.Message, len(awaited))
	for i, entry := range awaited {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("awaiting response %d of %d: %w", i+1, len(awaited), ctx.Err())
		case replies[i] = <-entry.resolved:
		}
	}

	return replies, nil
}
