package engine

import (
	"context"
	"encoding/json"
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/nocodo-ai/cdk-lambda-mcp-server/pkg/bridge/ports"
	"github.com/nocodo-ai/cdk-lambda-mcp-server/pkg/bridge/protocol"
)

// MCPGo binds a mark3labs/mcp-go server as the RPC engine. That server
// exposes a synchronous HandleMessage, so each incoming message is
// processed on its own goroutine and the reply, if any, flows back
// through the Emitter like any asynchronously produced response.
type MCPGo struct {
	server *mcpserver.MCPServer
	log    zerolog.Logger
}

var _ ports.Engine = (*MCPGo)(nil)

// NewMCPGo creates an engine binding for the given server.
func NewMCPGo(server *mcpserver.MCPServer, log zerolog.Logger) *MCPGo {
	return &MCPGo{
		server: server,
		log:    log.With().Str("component", "engine").Logger(),
	}
}

// Connect binds the emitter. HandleMessage needs no handshake, so
// connect completes immediately.
func (e *MCPGo) Connect(_ context.Context, emitter ports.Emitter) (ports.Receiver, error) {
	return &mcpgoReceiver{server: e.server, emitter: emitter, log: e.log}, nil
}

type mcpgoReceiver struct {
	server  *mcpserver.MCPServer
	emitter ports.Emitter
	log     zerolog.Logger
}

// Receive enqueues one message into the server. Notifications produce a
// nil result from HandleMessage and emit nothing.
func (r *mcpgoReceiver) Receive(ctx context.Context, msg *protocol.Message) error {
	go func() {
		result := r.server.HandleMessage(ctx, json.RawMessage(msg.Raw()))
		if result == nil {
			return
		}

		out, err := encodeResult(result)
		if err != nil {
			r.log.Error().Err(err).Msg("discarding unencodable engine reply")

			return
		}

		if err := r.emitter.Emit(ctx, out); err != nil {
			r.log.Error().Err(err).Msg("emit engine reply")
		}
	}()

	return nil
}

func encodeResult(result any) (*protocol.Message, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal engine reply: %w", err)
	}

	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return nil, fmt.Errorf("parse engine reply: %w", err)
	}

	return msg, nil
}
