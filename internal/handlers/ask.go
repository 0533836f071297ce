package handlers

import (
	"context"
	"io"
	"os"

	"github.com/user/trialchat/internal/config"
	"github.com/user/trialchat/internal/llm"
	"github.com/user/trialchat/internal/logging"
	"github.com/user/trialchat/internal/tui"
)

// AskOptions configures a single question
type AskOptions struct {
	Question    string
	Out         io.Writer // default os.Stdout
	Markdown    bool
	ShowResults bool
	LLMClient   llm.LLMClient
}

// AskHandler runs one turn and prints the answer
type AskHandler struct {
	*BaseHandler
	opts AskOptions
}

// NewAskHandler creates a new ask handler
func NewAskHandler(cfg *config.Config, logger *logging.Logger, opts AskOptions) *AskHandler {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &AskHandler{
		BaseHandler: NewBaseHandler(cfg, logger),
		opts:        opts,
	}
}

// Handle asks the question. Turn errors are returned so the command exits
// with their code.
func (h *AskHandler) Handle(ctx context.Context) error {
	rt, err := NewRuntime(ctx, h.Config, h.Logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	session, err := rt.NewSession(h.opts.LLMClient)
	if err != nil {
		return err
	}

	console := tui.NewConsole(h.opts.Out, tui.ConsoleOptions{
		Markdown:    h.opts.Markdown,
		ShowResults: h.opts.ShowResults,
	})

	h.Logger.Info("Asking", logging.String("session_id", session.ID()))
	if _, err := session.Send(ctx, h.opts.Question, console); err != nil {
		console.TurnError(err)
		return err
	}
	return nil
}
