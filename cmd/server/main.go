// Package main runs the MCP bridge either as an AWS Lambda handler or,
// when no Lambda runtime is present, as a local HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/nocodo-ai/cdk-lambda-mcp-server/pkg/bridge"
	"github.com/nocodo-ai/cdk-lambda-mcp-server/pkg/bridge/adapters/engine"
	"github.com/nocodo-ai/cdk-lambda-mcp-server/pkg/bridge/adapters/transport"
)

const (
	defaultPort       = "8080"
	defaultServerName = "cdk-lambda-mcp-server"
	serverVersion     = "0.1.0"
)

func main() {
	// Local convenience only; Lambda injects real env vars.
	_ = godotenv.Load()

	log := newLogger(os.Getenv("LOG_LEVEL"))

	server := newMCPServer(envOr("MCP_SERVER_NAME", defaultServerName))
	eng := engine.NewSDK(server, log)
	adapter := transport.New(eng, log)
	b := bridge.New(adapter, log)

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		log.Info().Msg("starting lambda handler")
		lambda.Start(b.HandleEvent)

		return
	}

	addr := ":" + envOr("PORT", defaultPort)
	log.Info().Str("addr", addr).Msg("starting local http server")

	srv := &http.Server{
		Addr:              addr,
		Handler:           b,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("http server exited")
	}
}

// EchoArgs defines arguments for the echo tool.
type EchoArgs struct {
	Text string `json:"text" jsonschema:"description=Text to echo back,required"`
}

// EchoResult is the echo tool's output.
type EchoResult struct {
	Text string `json:"text"`
}

// ReviewArgs defines arguments for the review_code tool.
type ReviewArgs struct {
	Code string `json:"code" jsonschema:"description=Source code to review,required"`
}

// ReviewResult is the review_code tool's output.
type ReviewResult struct {
	Notes []string `json:"notes"`
}

// newMCPServer builds the demo MCP server that acts as the RPC engine.
func newMCPServer(name string) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    name,
		Version: serverVersion,
	}, nil)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "echo",
		Description: "Echo the given text back to the caller",
	}, echoHandler)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "review_code",
		Description: "Produce placeholder review notes for a code snippet",
	}, reviewHandler)

	return server
}

func echoHandler(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	args EchoArgs,
) (*mcpsdk.CallToolResult, EchoResult, error) {
	return nil, EchoResult{Text: args.Text}, nil
}

func reviewHandler(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	args ReviewArgs,
) (*mcpsdk.CallToolResult, ReviewResult, error) {
	notes := []string{"received " + strconv.Itoa(len(args.Code)) + " bytes of code"}

	return nil, ReviewResult{Notes: notes}, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
