package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nocodo-ai/cdk-lambda-mcp-server/internal/testutil"
	"github.com/nocodo-ai/cdk-lambda-mcp-server/pkg/bridge/ports"
	"github.com/nocodo-ai/cdk-lambda-mcp-server/pkg/bridge/protocol"
)

func newStarted(t *testing.T, engine ports.Engine) *Adapter {
	t.Helper()

	adapter := New(engine, zerolog.Nop())
	if err := adapter.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	return adapter
}

func TestStartTwiceFails(t *testing.T) {
	adapter := newStarted(t, testutil.EchoEngine())

	err := adapter.Start(context.Background())
	if !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start = %v, want ErrAlreadyStarted", err)
	}
}

func TestStartPropagatesConnectError(t *testing.T) {
	wantErr := errors.New("handshake refused")
	adapter := New(&testutil.MockEngine{ConnectErr: wantErr}, zerolog.Nop())

	if err := adapter.Start(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("Start = %v, want %v", err, wantErr)
	}
}

func TestHandleBatchBeforeStart(t *testing.T) {
	adapter := New(testutil.EchoEngine(), zerolog.Nop())

	_, err := adapter.HandleBatch(context.Background(), nil)
	if !errors.Is(err, ErrNotStarted) {
		t.Fatalf("HandleBatch = %v, want ErrNotStarted", err)
	}
}

func TestHandleBatchSingleRequest(t *testing.T) {
	adapter := newStarted(t, testutil.EchoEngine())

	req := testutil.MustParse(t, `{"jsonrpc":"2.0","method":"code-review","id":1,"params":{"code":"x=1"}}`)

	replies, err := adapter.HandleBatch(context.Background(), []*protocol.Message{req})
	if err != nil {
		t.Fatalf("HandleBatch: %v", err)
	}
	if len(replies) != 1 {
		t.Fatalf("got %d replies, want 1", len(replies))
	}
	if replies[0].CorrelationKey() != req.CorrelationKey() {
		t.Errorf("reply id = %s, want %s", replies[0].ID, req.ID)
	}
}

func TestHandleBatchPreservesRequestOrder(t *testing.T) {
	// The engine resolves requests in reverse: collect them all first,
	// then respond last-to-first.
	var pending []*protocol.Message
	engine := &testutil.MockEngine{
		ReceiveFunc: func(ctx context.Context, msg *protocol.Message, emitter ports.Emitter) error {
			if msg.Kind() != protocol.KindRequest {
				return nil
			}
			pending = append(pending, msg)
			if len(pending) < 3 {
				return nil
			}
			for i := len(pending) - 1; i >= 0; i-- {
				if err := emitter.Emit(ctx, testutil.ResponseTo(pending[i])); err != nil {
					return err
				}
			}

			return nil
		},
	}
	adapter := newStarted(t, engine)

	msgs := []*protocol.Message{
		testutil.MustParse(t, `{"jsonrpc":"2.0","method":"a","id":10}`),
		testutil.MustParse(t, `{"jsonrpc":"2.0","method":"b","id":"x"}`),
		testutil.MustParse(t, `{"jsonrpc":"2.0","method":"c","id":30}`),
	}

	replies, err := adapter.HandleBatch(context.Background(), msgs)
	if err != nil {
		t.Fatalf("HandleBatch: %v", err)
	}
	if len(replies) != 3 {
		t.Fatalf("got %d replies, want 3", len(replies))
	}
	for i, msg := range msgs {
		if replies[i].CorrelationKey() != msg.CorrelationKey() {
			t.Errorf("reply %d id = %s, want %s", i, replies[i].ID, msg.ID)
		}
	}
}

func TestHandleBatchNotificationsOnly(t *testing.T) {
	engine := testutil.EchoEngine()
	adapter := newStarted(t, engine)

	msgs := []*protocol.Message{
		testutil.MustParse(t, `{"jsonrpc":"2.0","method":"ping"}`),
		testutil.MustParse(t, `{"jsonrpc":"2.0","method":"pong"}`),
	}

	replies, err := adapter.HandleBatch(context.Background(), msgs)
	if err != nil {
		t.Fatalf("HandleBatch: %v", err)
	}
	if replies != nil {
		t.Errorf("got %d replies, want no-reply signal", len(replies))
	}
	if got := len(engine.Received()); got != 2 {
		t.Errorf("engine received %d messages, want 2", got)
	}
}

func TestHandleBatchMixedRequestsAndNotifications(t *testing.T) {
	adapter := newStarted(t, testutil.EchoEngine())

	msgs := []*protocol.Message{
		testutil.MustParse(t, `{"jsonrpc":"2.0","method":"note"}`),
		testutil.MustParse(t, `{"jsonrpc":"2.0","method":"one","id":1}`),
		testutil.MustParse(t, `{"jsonrpc":"2.0","method":"note"}`),
		testutil.MustParse(t, `{"jsonrpc":"2.0","method":"two","id":2}`),
	}

	replies, err := adapter.HandleBatch(context.Background(), msgs)
	if err != nil {
		t.Fatalf("HandleBatch: %v", err)
	}
	if len(replies) != 2 {
		t.Fatalf("got %d replies, want 2 (requests only)", len(replies))
	}
	if replies[0].CorrelationKey() != "1" || replies[1].CorrelationKey() != "2" {
		t.Errorf("reply ids = %s, %s, want 1, 2", replies[0].ID, replies[1].ID)
	}
}

func TestHandleBatchDispatchesInOrder(t *testing.T) {
	engine := testutil.EchoEngine()
	adapter := newStarted(t, engine)

	msgs := []*protocol.Message{
		testutil.MustParse(t, `{"jsonrpc":"2.0","method":"first","id":1}`),
		testutil.MustParse(t, `{"jsonrpc":"2.0","method":"second"}`),
		testutil.MustParse(t, `{"jsonrpc":"2.0","method":"third","id":2}`),
	}

	if _, err := adapter.HandleBatch(context.Background(), msgs); err != nil {
		t.Fatalf("HandleBatch: %v", err)
	}

	received := engine.Received()
	if len(received) != 3 {
		t.Fatalf("engine received %d messages, want 3", len(received))
	}
	for i, want := range []string{"first", "second", "third"} {
		if received[i].Method != want {
			t.Errorf("dispatch %d = %q, want %q", i, received[i].Method, want)
		}
	}
}

func TestStaleResponseFromPreviousInvocationIsDropped(t *testing.T) {
	// First invocation: the engine answers normally but keeps the
	// request around. Second invocation: the engine replays the stale
	// response before answering the new request.
	var stale *protocol.Message
	engine := &testutil.MockEngine{
		ReceiveFunc: func(ctx context.Context, msg *protocol.Message, emitter ports.Emitter) error {
			if msg.Kind() != protocol.KindRequest {
				return nil
			}
			if stale != nil {
				if err := emitter.Emit(ctx, stale); err != nil {
					return err
				}
			}
			reply := testutil.ResponseTo(msg)
			stale = reply

			return emitter.Emit(ctx, reply)
		},
	}
	adapter := newStarted(t, engine)

	first := testutil.MustParse(t, `{"jsonrpc":"2.0","method":"a","id":1}`)
	if _, err := adapter.HandleBatch(context.Background(), []*protocol.Message{first}); err != nil {
		t.Fatalf("first HandleBatch: %v", err)
	}

	second := testutil.MustParse(t, `{"jsonrpc":"2.0","method":"b","id":2}`)
	replies, err := adapter.HandleBatch(context.Background(), []*protocol.Message{second})
	if err != nil {
		t.Fatalf("second HandleBatch: %v", err)
	}
	if len(replies) != 1 || replies[0].CorrelationKey() != "2" {
		t.Fatalf("replies = %+v, want single reply with id 2", replies)
	}
}

func TestSameIDAcrossInvocationsDoesNotMisdeliver(t *testing.T) {
	// A stale response with the SAME id as the current invocation's
	// request must still resolve only from the current exchange: the
	// replay carries the old invocation's payload but the table was
	// cleared, so the first matching emit wins and the replay after
	// resolution is dropped.
	adapter := newStarted(t, testutil.EchoEngine())

	req := testutil.MustParse(t, `{"jsonrpc":"2.0","method":"a","id":1}`)
	if _, err := adapter.HandleBatch(context.Background(), []*protocol.Message{req}); err != nil {
		t.Fatalf("first HandleBatch: %v", err)
	}

	// Replaying the resolved response now must be a silent drop.
	if err := adapter.Emit(context.Background(), testutil.ResponseTo(req)); err != nil {
		t.Fatalf("Emit after resolution: %v", err)
	}
}

func TestEmitDropsNonResponses(t *testing.T) {
	adapter := newStarted(t, testutil.EchoEngine())

	outgoing := testutil.MustParse(t, `{"jsonrpc":"2.0","method":"server/push","id":99}`)
	if err := adapter.Emit(context.Background(), outgoing); err != nil {
		t.Fatalf("Emit(request) = %v, want silent drop", err)
	}

	note := testutil.MustParse(t, `{"jsonrpc":"2.0","method":"server/notify"}`)
	if err := adapter.Emit(context.Background(), note); err != nil {
		t.Fatalf("Emit(notification) = %v, want silent drop", err)
	}
}

func TestHandleBatchHonorsContextCancellation(t *testing.T) {
	// An engine that never responds: the wait must end with the
	// context, not hang.
	silent := &testutil.MockEngine{}
	adapter := newStarted(t, silent)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	req := testutil.MustParse(t, `{"jsonrpc":"2.0","method":"never","id":1}`)
	_, err := adapter.HandleBatch(ctx, []*protocol.Message{req})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("HandleBatch = %v, want context.DeadlineExceeded", err)
	}
}

func TestCloseIsANoOp(t *testing.T) {
	adapter := New(testutil.EchoEngine(), zerolog.Nop())
	if err := adapter.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
