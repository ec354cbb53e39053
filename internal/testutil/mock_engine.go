// Package testutil provides shared test doubles for the bridge packages.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/nocodo-ai/cdk-lambda-mcp-server/pkg/bridge/ports"
	"github.com/nocodo-ai/cdk-lambda-mcp-server/pkg/bridge/protocol"
)

// MockEngine is a scriptable ports.Engine. By default Connect succeeds
// and Receive records the message; set the Func fields to override.
type MockEngine struct {
	// ConnectErr, when set, makes Connect fail.
	ConnectErr error

	// ReceiveFunc, when set, runs for every received message after it is
	// recorded. Use the emitter to script engine replies.
	ReceiveFunc func(ctx context.Context, msg *protocol.Message, emitter ports.Emitter) error

	mu       sync.Mutex
	connects int
	emitter  ports.Emitter
	received []*protocol.Message
}

var _ ports.Engine = (*MockEngine)(nil)

// Connect records the emitter and returns the engine as its own receiver.
func (m *MockEngine) Connect(_ context.Context, emitter ports.Emitter) (ports.Receiver, error) {
	if m.ConnectErr != nil {
		return nil, m.ConnectErr
	}

	m.mu.Lock()
	m.connects++
	m.emitter = emitter
	m.mu.Unlock()

	return m, nil
}

// Receive records the message and runs the scripted behavior, if any.
func (m *MockEngine) Receive(ctx context.Context, msg *protocol.Message) error {
	m.mu.Lock()
	m.received = append(m.received, msg)
	emitter := m.emitter
	m.mu.Unlock()

	if m.ReceiveFunc != nil {
		return m.ReceiveFunc(ctx, msg, emitter)
	}

	return nil
}

// Connects reports how many times Connect succeeded.
func (m *MockEngine) Connects() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.connects
}

// Received returns a copy of all messages dispatched to the engine.
func (m *MockEngine) Received() []*protocol.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*protocol.Message(nil), m.received...)
}

// Emitter returns the emitter captured at connect time.
func (m *MockEngine) Emitter() ports.Emitter {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.emitter
}

// EchoEngine returns a MockEngine that answers every request with a
// result echoing the request's method, and ignores notifications.
func EchoEngine() *MockEngine {
	return &MockEngine{
		ReceiveFunc: func(ctx context.Context, msg *protocol.Message, emitter ports.Emitter) error {
			if msg.Kind() != protocol.KindRequest {
				return nil
			}

			return emitter.Emit(ctx, ResponseTo(msg))
		},
	}
}

// ResponseTo builds a success response correlated to the given request.
func ResponseTo(req *protocol.Message) *protocol.Message {
	raw := fmt.Sprintf(`{"jsonrpc":"2.0","id":%s,"result":{"echo":%q}}`, req.ID, req.Method)

	msg, err := protocol.ParseMessage([]byte(raw))
	if err != nil {
		panic(err)
	}

	return msg
}

// MustParse parses a single message, failing the test on error.
func MustParse(t *testing.T, raw string) *protocol.Message {
	t.Helper()

	msg, err := protocol.ParseMessage([]byte(raw))
	if err != nil {
		t.Fatalf("parse message %q: %v", raw, err)
	}

	return msg
}
