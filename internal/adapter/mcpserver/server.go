// Package mcpserver exposes the function catalogue as Model Context Protocol
// tools so other MCP clients can query market data without the chat loop.
package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"

	"cryptochat/internal/domain"
	"cryptochat/internal/infra/tracer"
)

// ServerName is announced to clients during initialization.
const ServerName = "cryptochat"

var emptyObjectSchema = json.RawMessage(`{"type":"object","properties":{}}`)

// Catalogue is the set of functions the server advertises.
type Catalogue interface {
	Specs() []domain.FunctionSpec
	Lookup(name string) (domain.Function, error)
}

// Deps holds injected dependencies for the server.
type Deps struct {
	Functions Catalogue
	Arguments func(name string, raw json.RawMessage) (domain.Args, error)
	Version   string
	Logger    *slog.Logger
}

// Server wraps an MCP server whose tools are the catalogue's functions.
type Server struct {
	mcp    *server.MCPServer
	deps   Deps
	logger *slog.Logger

	// Charts are written to one fixed path and read back after Invoke, while
	// the stdio transport runs calls on a worker pool. invokeMu is held from
	// Invoke until the result, image bytes included, is built.
	invokeMu sync.Mutex
}

// New registers one MCP tool per function spec.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		mcp:    server.NewMCPServer(ServerName, version, server.WithToolCapabilities(false)),
		deps:   deps,
		logger: logger,
	}
	for _, spec := range deps.Functions.Specs() {
		schema := spec.Parameters
		if len(schema) == 0 {
			schema = emptyObjectSchema
		}
		s.mcp.AddTool(mcp.NewToolWithRawSchema(spec.Name, spec.Description, schema), s.handler(spec.Name))
	}
	logger.Debug("mcp tools registered", "count", len(deps.Functions.Specs()))
	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio speaks JSON-RPC over in/out until ctx is cancelled or in closes.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	s.logger.Info("mcp server listening on stdio", "tools", len(s.deps.Functions.Specs()))
	return stdio.Listen(ctx, in, out)
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := tracer.StartSpan(ctx, "mcp.call_tool",
			trace.WithAttributes(tracer.StringAttr("function.name", name)),
		)
		defer span.End()

		fn, err := s.deps.Functions.Lookup(name)
		if err != nil {
			tracer.RecordError(span, err)
			return mcp.NewToolResultError(err.Error()), nil
		}

		raw, err := json.Marshal(req.GetRawArguments())
		if err != nil {
			tracer.RecordError(span, err)
			return mcp.NewToolResultError(fmt.Sprintf("encode arguments: %v", err)), nil
		}
		args, err := s.deps.Arguments(name, raw)
		if err != nil {
			tracer.RecordError(span, err)
			return mcp.NewToolResultError(err.Error()), nil
		}

		s.invokeMu.Lock()
		defer s.invokeMu.Unlock()

		out, err := fn.Invoke(ctx, args)
		if err != nil {
			tracer.RecordError(span, err)
			s.logger.Warn("mcp tool failed", "function", name, "error", err, "code", domain.ErrorCodeOf(err))
			return mcp.NewToolResultError(err.Error()), nil
		}

		tracer.SetOK(span)
		s.logger.Debug("mcp tool called", "function", name, "kind", out.Kind())
		return s.toResult(out), nil
	}
}

// toResult maps a function output onto MCP content. Rendered charts are sent
// inline as PNG; everything else is text.
func (s *Server) toResult(out domain.FunctionOutput) *mcp.CallToolResult {
	img, ok := out.(domain.ImageOutput)
	if !ok || !img.Rendered {
		return mcp.NewToolResultText(out.String())
	}
	data, err := os.ReadFile(img.Path)
	if err != nil {
		s.logger.Warn("chart unreadable, returning path", "path", img.Path, "error", err)
		return mcp.NewToolResultText(img.Path)
	}
	return mcp.NewToolResultImage(
		"Price History of "+img.Ticker+" ("+img.Path+")",
		base64.StdEncoding.EncodeToString(data),
		"image/png",
	)
}
