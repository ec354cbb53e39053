// Package engine provides concrete bindings of the ports.Engine
// capability set to real MCP server implementations. The transport
// adapter never depends on these directly; wiring happens in cmd.
package engine

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/nocodo-ai/cdk-lambda-mcp-server/pkg/bridge/ports"
	"github.com/nocodo-ai/cdk-lambda-mcp-server/pkg/bridge/protocol"
)

// SDK binds an official go-sdk MCP server as the RPC engine. The server
// runs over an in-process connection whose read side is fed by Receive
// and whose write side forwards to the transport's Emitter.
type SDK struct {
	server *mcp.Server
	log    zerolog.Logger

	mu      sync.Mutex
	session *mcp.ServerSession
}

var _ ports.Engine = (*SDK)(nil)

// NewSDK creates an engine binding for the given server.
func NewSDK(server *mcp.Server, log zerolog.Logger) *SDK {
	return &SDK{
		server: server,
		log:    log.With().Str("component", "engine").Logger(),
	}
}

// Connect runs the server over a fresh in-process connection and returns
// the receive binding for incoming messages. The session stays up for
// the life of the process so warm invocations reuse it.
func (e *SDK) Connect(ctx context.Context, emitter ports.Emitter) (ports.Receiver, error) {
	conn := &sdkConn{
		emitter:  emitter,
		log:      e.log,
		incoming: make(chan jsonrpc.Message),
		done:     make(chan struct{}),
	}

	session, err := e.server.Connect(ctx, &sdkTransport{conn: conn}, nil)
	if err != nil {
		return nil, fmt.Errorf("connect mcp server: %w", err)
	}

	e.mu.Lock()
	e.session = session
	e.mu.Unlock()

	return conn, nil
}

// Close tears down the engine session, if one was established.
func (e *SDK) Close() error {
	e.mu.Lock()
	session := e.session
	e.mu.Unlock()

	if session == nil {
		return nil
	}

	return session.Close()
}

// sdkTransport hands the server its end of the in-process connection.
type sdkTransport struct {
	conn *sdkConn
}

func (t *sdkTransport) Connect(context.Context) (mcp.Connection, error) {
	return t.conn, nil
}

// sdkConn is both the mcp.Connection the server reads and writes, and
// the ports.Receiver the transport dispatches into.
type sdkConn struct {
	emitter  ports.Emitter
	log      zerolog.Logger
	incoming chan jsonrpc.Message
	done     chan struct{}
	once     sync.Once
}

var (
	_ mcp.Connection = (*sdkConn)(nil)
	_ ports.Receiver = (*sdkConn)(nil)
)

// Receive feeds one incoming message to the server's read loop.
func (c *sdkConn) Receive(ctx context.Context, msg *protocol.Message) error {
	jm, err := jsonrpc.DecodeMessage(msg.Raw())
	if err != nil {
		return fmt.Errorf("decode for engine: %w", err)
	}

	select {
	case c.incoming <- jm:
		return nil
	case <-c.done:
		return fmt.Errorf("engine connection closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Read blocks until the transport delivers the next incoming message.
func (c *sdkConn) Read(ctx context.Context) (jsonrpc.Message, error) {
	select {
	case msg := <-c.incoming:
		return msg, nil
	case <-c.done:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Write forwards a server-produced message to the transport.
func (c *sdkConn) Write(ctx context.Context, msg jsonrpc.Message) error {
	data, err := jsonrpc.EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode engine message: %w", err)
	}

	out, err := protocol.ParseMessage(data)
	if err != nil {
		return fmt.Errorf("parse engine message: %w", err)
	}

	return c.emitter.Emit(ctx, out)
}

func (c *sdkConn) Close() error {
	c.once.Do(func() { close(c.done) })

	return nil
}

func (*sdkConn) SessionID() string {
	return ""
}
