package handlers

import (
	"context"
	"io"
	"os"

	"github.com/user/trialchat/internal/config"
	"github.com/user/trialchat/internal/logging"
	"github.com/user/trialchat/internal/mcpserver"
)

// McpOptions configures the MCP server
type McpOptions struct {
	Version string
	In      io.Reader // default os.Stdin
	Out     io.Writer // default os.Stdout
}

// McpHandler serves the function registry over MCP
type McpHandler struct {
	*BaseHandler
	opts McpOptions
}

// NewMcpHandler creates a new MCP handler
func NewMcpHandler(cfg *config.Config, logger *logging.Logger, opts McpOptions) *McpHandler {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &McpHandler{
		BaseHandler: NewBaseHandler(cfg, logger),
		opts:        opts,
	}
}

// Handle serves until the input closes or ctx is cancelled
func (h *McpHandler) Handle(ctx context.Context) error {
	rt, err := NewRuntime(ctx, h.Config, h.Logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv := mcpserver.New(rt.Registry, h.opts.Version, h.Logger, rt.Metrics)
	h.Logger.Info("Serving MCP", logging.Int("tools", rt.Registry.Len()))

	err = srv.Listen(ctx, h.opts.In, h.opts.Out)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
