// Package bridge orchestrates one-shot HTTP invocations over a
// message-oriented RPC transport: it negotiates headers, validates and
// parses the batch, hands it to the transport adapter, waits for the
// correlated responses and renders the HTTP result. It never interprets
// message contents.
package bridge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nocodo-ai/cdk-lambda-mcp-server/pkg/bridge/protocol"
)

// BatchTransport is what the bridge needs from the transport adapter.
type BatchTransport interface {
	// Start performs the engine's one-time connect handshake.
	Start(ctx context.Context) error

	// HandleBatch exchanges one invocation's messages. A nil reply slice
	// means the exchange was fire-and-forget.
	HandleBatch(ctx context.Context, msgs []*protocol.Message) ([]*protocol.Message, error)
}

// Bridge serves one endpoint, POST only. One instance serves the whole
// process; the transport handshake runs once, on the first invocation.
type Bridge struct {
	transport BatchTransport
	log       zerolog.Logger

	startOnce sync.Once
	startErr  error
}

// New creates a bridge over the given transport.
func New(transport BatchTransport, log zerolog.Logger) *Bridge {
	return &Bridge{
		transport: transport,
		log:       log.With().Str("component", "bridge").Logger(),
	}
}

// invocation is the per-call context: the raw inputs of exactly one
// HTTP call. It never outlives the response.
type invocation struct {
	body        []byte
	isBase64    bool
	accept      string
	contentType string
}

// result is the rendered outcome of one invocation.
type result struct {
	status int
	body   []byte
}

func (r result) hasBody() bool {
	return len(r.body) > 0
}

// invoke runs the two-phase state machine for one call: validate first,
// then ensure the engine session and exchange the batch.
func (b *Bridge) invoke(ctx context.Context, inv invocation) result {
	msgs, err := protocol.ParseBatch(inv.body, inv.isBase64, inv.accept, inv.contentType)
	if err != nil {
		b.log.Warn().Err(err).Msg("rejecting invocation")

		return result{status: protocol.StatusCode(err), body: protocol.ErrorEnvelope(err)}
	}

	b.startOnce.Do(func() {
		b.startErr = b.transport.Start(ctx)
	})
	if b.startErr != nil {
		b.log.Error().Err(b.startErr).Msg("transport start failed")

		return result{status: http.StatusInternalServerError, body: protocol.ErrorEnvelope(b.startErr)}
	}

	replies, err := b.transport.HandleBatch(ctx, msgs)
	if err != nil {
		b.log.Error().Err(err).Msg("batch exchange failed")

		return result{status: http.StatusInternalServerError, body: protocol.ErrorEnvelope(err)}
	}

	return render(replies)
}

// render maps the adapter's output to the response shape: 202 with an
// empty body for fire-and-forget, a bare object when exactly one request
// was awaited, and an array preserving request order otherwise.
func render(replies []*protocol.Message) result {
	if len(replies) == 0 {
		return result{status: http.StatusAccepted}
	}

	if len(replies) == 1 {
		return result{status: http.StatusOK, body: replies[0].Raw()}
	}

	raws := make([]json.RawMessage, len(replies))
	for i, reply := range replies {
		raws[i] = reply.Raw()
	}

	body, err := json.Marshal(raws)
	if err != nil {
		// Raw messages are already-validated JSON.
		panic(err)
	}

	return result{status: http.StatusOK, body: body}
}

// ServeHTTP serves the endpoint over plain net/http, for local runs and
// tests. The Lambda front end lives in lambda.go.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body", http.StatusInternalServerError)

		return
	}

	res := b.invoke(r.Context(), invocation{
		body:        body,
		accept:      r.Header.Get("Accept"),
		contentType: r.Header.Get("Content-Type"),
	})

	if res.hasBody() {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(res.status)
	if res.hasBody() {
		_, _ = w.Write(res.body)
	}
}
