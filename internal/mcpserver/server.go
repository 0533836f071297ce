// Package mcpserver exposes the function registry over the Model Context
// Protocol so other agents can call the same functions.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/user/trialchat/internal/logging"
	"github.com/user/trialchat/internal/metrics"
	"github.com/user/trialchat/internal/tools"
)

// ServerName is announced to MCP clients
const ServerName = "trialchat"

// Server wraps an MCP server whose tools are the registry's functions
type Server struct {
	mcp      *server.MCPServer
	registry *tools.Registry
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// New builds a server exposing every function of registry
func New(registry *tools.Registry, version string, logger *logging.Logger, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Server{
		mcp:      server.NewMCPServer(ServerName, version, server.WithToolCapabilities(false)),
		registry: registry,
		logger:   logger,
		metrics:  m,
	}
	for _, tool := range registry.Tools() {
		s.mcp.AddTool(ToMCPTool(tool), s.handler(tool.Name()))
	}
	return s
}

// MCPServer returns the underlying mcp-go server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Listen serves requests read from in and writes responses to out until ctx
// is cancelled or in is exhausted
func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// ToMCPTool converts a registry tool into its MCP declaration
func ToMCPTool(tool tools.Tool) mcp.Tool {
	params := tool.Parameters()
	schema := mcp.ToolInputSchema{Type: "object", Properties: map[string]any{}}
	if props, ok := params["properties"].(map[string]interface{}); ok {
		schema.Properties = props
	}
	switch req := params["required"].(type) {
	case []string:
		schema.Required = req
	case []interface{}:
		for _, r := range req {
			if name, ok := r.(string); ok {
				schema.Required = append(schema.Required, name)
			}
		}
	}
	return mcp.Tool{
		Name:        tool.Name(),
		Description: tool.Description(),
		InputSchema: schema,
	}
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		arguments := request.GetArguments()
		if arguments == nil {
			arguments = map[string]any{}
		}
		args, err := json.Marshal(arguments)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		s.logger.Debug("MCP tool call",
			logging.String("function", name),
			logging.String("arguments", string(args)),
		)

		result, err := s.registry.Dispatch(ctx, name, string(args))
		s.metrics.RecordFunctionCall(name, err)
		if err != nil {
			s.logger.Warn("MCP tool call failed", logging.String("function", name), logging.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}

		text, err := tools.EncodeResult(result)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}
