package agents

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/user/trialchat/internal/llmtypes"
	"github.com/user/trialchat/internal/logging"
	"github.com/user/trialchat/internal/observability"
)

// TranscriptSink archives sessions and the messages appended to them
type TranscriptSink interface {
	StartSession(ctx context.Context, id, provider, model string, started time.Time) error
	AppendMessage(ctx context.Context, sessionID string, seq int, msg llmtypes.Message) error
}

// Session holds the conversation state of one interactive session.
// It is not safe for concurrent use; turns run one at a time.
type Session struct {
	id           string
	model        string
	greeting     string
	history      llmtypes.History
	archived     int
	started      bool
	orchestrator *Orchestrator
	sink         TranscriptSink
	logger       *logging.Logger
}

// SessionOptions configures a Session
type SessionOptions struct {
	Greeting string
	Model    string
	Sink     TranscriptSink // optional
}

// NewSession starts a session whose history holds only the greeting
func NewSession(o *Orchestrator, opts SessionOptions, logger *logging.Logger) *Session {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Session{
		model:        opts.Model,
		greeting:     opts.Greeting,
		orchestrator: o,
		sink:         opts.Sink,
		logger:       logger,
	}
	s.Reset()
	return s
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// History returns the current history. Callers may keep it; later turns
// never modify it.
func (s *Session) History() llmtypes.History {
	return s.history
}

// Reset discards the conversation and begins a new session id
func (s *Session) Reset() {
	s.id = uuid.NewString()
	s.history = nil
	s.archived = 0
	s.started = false
	if s.greeting != "" {
		s.history = llmtypes.History{llmtypes.AssistantMessage(s.greeting)}
	}
}

// Send runs one turn and returns the model's final answer. On error the
// history still advances by whatever the turn appended.
func (s *Session) Send(ctx context.Context, text string, obs Observer) (string, error) {
	ctx, span := observability.StartTurnSpan(ctx, s.id)
	defer span.End()

	h, err := s.orchestrator.RunTurn(ctx, s.history, text, obs)
	s.history = h
	s.archive(ctx)

	if err != nil {
		observability.RecordError(span, err)
		return "", err
	}

	last, _ := h.Last()
	return last.Content, nil
}

// archive writes messages not yet in the transcript. Archive failures are
// logged and never fail the turn.
func (s *Session) archive(ctx context.Context) {
	if s.sink == nil || s.archived == len(s.history) {
		return
	}
	if !s.started {
		if err := s.sink.StartSession(ctx, s.id, s.orchestrator.Provider(), s.model, time.Now()); err != nil {
			s.logger.Warn("Failed to archive session", logging.String("session_id", s.id), logging.Error(err))
			return
		}
		s.started = true
	}
	for ; s.archived < len(s.history); s.archived++ {
		if err := s.sink.AppendMessage(ctx, s.id, s.archived, s.history[s.archived]); err != nil {
			s.logger.Warn("Failed to archive message",
				logging.String("session_id", s.id),
				logging.Int("seq", s.archived),
				logging.Error(err),
			)
			return
		}
	}
}
