package handlers

import (
	"context"

	"github.com/user/trialchat/internal/config"
	"github.com/user/trialchat/internal/logging"
)

// Handler is the interface that all handlers must implement
type Handler interface {
	// Handle executes the handler logic
	Handle(ctx context.Context) error
}

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	Config *config.Config
	Logger *logging.Logger
}

// NewBaseHandler creates a new base handler. A nil logger discards output.
func NewBaseHandler(cfg *config.Config, logger *logging.Logger) *BaseHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &BaseHandler{
		Config: cfg,
		Logger: logger,
	}
}
