package handlers

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/user/trialchat/internal/config"
	"github.com/user/trialchat/internal/errors"
	"github.com/user/trialchat/internal/export"
	"github.com/user/trialchat/internal/logging"
	"github.com/user/trialchat/internal/transcript"
)

// TranscriptOptions configures the transcript commands
type TranscriptOptions struct {
	SessionID string
	Limit     int
	Format    export.Format
	Output    string // file path; empty writes to Out
	Out       io.Writer
}

// TranscriptListHandler prints archived sessions
type TranscriptListHandler struct {
	*BaseHandler
	opts TranscriptOptions
}

// NewTranscriptListHandler creates a new transcript list handler
func NewTranscriptListHandler(cfg *config.Config, logger *logging.Logger, opts TranscriptOptions) *TranscriptListHandler {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &TranscriptListHandler{
		BaseHandler: NewBaseHandler(cfg, logger),
		opts:        opts,
	}
}

// Handle lists the most recent sessions
func (h *TranscriptListHandler) Handle(ctx context.Context) error {
	store, err := openTranscript(h.Config)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sessions, err := store.ListSessions(ctx, h.opts.Limit)
	if err != nil {
		return errors.WrapError(err, "failed to list sessions", errors.ExitGeneralError)
	}
	if len(sessions) == 0 {
		_, _ = fmt.Fprintln(h.opts.Out, "No archived sessions.")
		return nil
	}

	_, _ = fmt.Fprintf(h.opts.Out, "%-36s  %-16s  %-10s  %-24s  %s\n", "SESSION", "STARTED", "PROVIDER", "MODEL", "MESSAGES")
	for _, s := range sessions {
		_, _ = fmt.Fprintf(h.opts.Out, "%-36s  %-16s  %-10s  %-24s  %d\n",
			s.ID, s.StartedAt.Local().Format("2006-01-02 15:04"), s.Provider, s.Model, s.Messages)
	}
	return nil
}

// TranscriptExportHandler writes one archived session as HTML or JSON
type TranscriptExportHandler struct {
	*BaseHandler
	opts TranscriptOptions
}

// NewTranscriptExportHandler creates a new transcript export handler
func NewTranscriptExportHandler(cfg *config.Config, logger *logging.Logger, opts TranscriptOptions) *TranscriptExportHandler {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Format == "" {
		opts.Format = export.FormatHTML
	}
	return &TranscriptExportHandler{
		BaseHandler: NewBaseHandler(cfg, logger),
		opts:        opts,
	}
}

// Handle renders the session and writes it to the output file or Out
func (h *TranscriptExportHandler) Handle(ctx context.Context) error {
	exporter, err := export.New(h.opts.Format)
	if err != nil {
		return errors.WrapError(err, "invalid export format", errors.ExitValidationError)
	}

	store, err := openTranscript(h.Config)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	session, err := store.Session(ctx, h.opts.SessionID)
	if err != nil {
		if stderrors.Is(err, transcript.ErrSessionNotFound) {
			return errors.NewError(fmt.Sprintf("No archived session matches %q", h.opts.SessionID), errors.ExitValidationError)
		}
		return errors.WrapError(err, "failed to look up session", errors.ExitValidationError)
	}
	messages, err := store.Messages(ctx, session.ID)
	if err != nil {
		return errors.WrapError(err, "failed to read messages", errors.ExitGeneralError)
	}

	doc := &export.Transcript{Session: *session, Messages: messages}
	if h.opts.Output == "" {
		return exporter.Export(h.opts.Out, doc)
	}

	if dir := filepath.Dir(h.opts.Output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.WrapError(err, "failed to create output directory", errors.ExitIOError)
		}
	}
	f, err := os.Create(h.opts.Output)
	if err != nil {
		return errors.WrapError(err, "failed to create output file", errors.ExitIOError)
	}
	if err := exporter.Export(f, doc); err != nil {
		_ = f.Close()
		return errors.WrapError(err, "failed to export session", errors.ExitGeneralError)
	}
	if err := f.Close(); err != nil {
		return errors.WrapError(err, "failed to write output file", errors.ExitIOError)
	}

	h.Logger.Info("Session exported",
		logging.String("session_id", session.ID),
		logging.String("format", string(h.opts.Format)),
		logging.String("path", h.opts.Output))
	_, _ = fmt.Fprintf(h.opts.Out, "Exported %d messages to %s\n", len(messages), h.opts.Output)
	return nil
}

func openTranscript(cfg *config.Config) (*transcript.Store, error) {
	if cfg.Transcript.Path == "" {
		err := errors.NewError("Transcript archiving is disabled", errors.ExitConfigError)
		err.Context = &errors.ErrorContext{
			Suggestions: []string{
				"Set transcript.path in .trialchat.yaml",
				"Or pass --transcript <file>",
			},
		}
		return nil, err
	}
	store, err := transcript.Open(cfg.Transcript.Path)
	if err != nil {
		return nil, errors.WrapError(err, "failed to open transcript archive", errors.ExitIOError)
	}
	return store, nil
}
