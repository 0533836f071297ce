package handlers

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/user/trialchat/internal/agents"
	"github.com/user/trialchat/internal/config"
	"github.com/user/trialchat/internal/errors"
	"github.com/user/trialchat/internal/llm"
	"github.com/user/trialchat/internal/logging"
	"github.com/user/trialchat/internal/tui"
)

// maxInputLine bounds one line typed at the chat prompt
const maxInputLine = 1024 * 1024

// ChatOptions configures the interactive chat
type ChatOptions struct {
	In          io.Reader // default os.Stdin
	Out         io.Writer // default os.Stdout
	Markdown    bool
	ShowResults bool

	// LLMClient replaces the client built from the llm configuration
	LLMClient llm.LLMClient
}

// ChatHandler handles the chat command
type ChatHandler struct {
	*BaseHandler
	opts ChatOptions
}

// NewChatHandler creates a new chat handler
func NewChatHandler(cfg *config.Config, logger *logging.Logger, opts ChatOptions) *ChatHandler {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &ChatHandler{
		BaseHandler: NewBaseHandler(cfg, logger),
		opts:        opts,
	}
}

// Handle runs the read-eval-print loop until /quit or end of input
func (h *ChatHandler) Handle(ctx context.Context) error {
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
	console.Banner("trialchat", fmt.Sprintf("%s / %s  -  /help for commands", h.Config.LLM.Provider, h.Config.LLM.Model))
	if !h.Config.LLM.HasCredential() {
		console.Warning(errors.NewMissingCredentialError(h.Config.LLM.Provider).Error())
	}
	h.greet(console, session)

	h.Logger.Info("Chat session started",
		logging.String("session_id", session.ID()),
		logging.String("provider", h.Config.LLM.Provider),
		logging.String("model", h.Config.LLM.Model),
	)

	scanner := bufio.NewScanner(h.opts.In)
	scanner.Buffer(make([]byte, 0, 64*1024), maxInputLine)
	for {
		console.Prompt()
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())

		switch {
		case text == "":
			continue
		case text == "/quit" || text == "/exit":
			h.Logger.Info("Chat session ended", logging.String("session_id", session.ID()))
			return nil
		case text == "/reset":
			session.Reset()
			console.Success("Conversation reset")
			h.greet(console, session)
		case text == "/history":
			console.History(session.History())
		case text == "/help":
			h.help(console)
		case strings.HasPrefix(text, "/"):
			console.Warning(fmt.Sprintf("Unknown command %s, type /help", text))
		default:
			h.turn(ctx, console, session, text)
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.WrapError(err, "failed to read input", errors.ExitIOError)
	}
	// end of input leaves the prompt line open
	_, _ = fmt.Fprintln(h.opts.Out)
	return nil
}

// turn runs one user turn. Ctrl-C cancels the turn, not the session.
func (h *ChatHandler) turn(ctx context.Context, console *tui.Console, session *agents.Session, text string) {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if _, err := session.Send(turnCtx, text, console); err != nil {
		if turnCtx.Err() != nil && ctx.Err() == nil {
			console.TurnError(fmt.Errorf("turn cancelled"))
			return
		}
		h.Logger.Warn("Turn failed", logging.String("session_id", session.ID()), logging.Error(err))
		console.TurnError(err)
	}
}

func (h *ChatHandler) greet(console *tui.Console, session *agents.Session) {
	if last, ok := session.History().Last(); ok {
		console.Assistant(last.Content)
	}
}

func (h *ChatHandler) help(console *tui.Console) {
	console.Info("/history  show the conversation so far")
	console.Info("/reset    start a new conversation")
	console.Info("/quit     leave the chat")
}
