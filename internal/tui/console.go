package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	markdown "github.com/MichaelMure/go-term-markdown"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"

	"github.com/user/trialchat/internal/llmtypes"
)

// DefaultWidth is the wrap width of rendered answers
const DefaultWidth = 100

// ConsoleOptions configures a Console
type ConsoleOptions struct {
	// Markdown renders complete answers as terminal markdown. Streamed
	// answers are printed as they arrive.
	Markdown bool
	Width    int

	// ShowResults prints a preview of every function result
	ShowResults bool
}

// Console presents a chat session on a terminal. It implements the
// orchestrator's Observer.
type Console struct {
	out       io.Writer
	opts      ConsoleOptions
	spinner   *Spinner
	streaming bool
}

// NewConsole creates a console writing to w, or stdout when w is nil
func NewConsole(w io.Writer, opts ConsoleOptions) *Console {
	if w == nil {
		w = os.Stdout
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	return &Console{out: w, opts: opts, spinner: NewSpinner(w)}
}

// Banner prints the session header
func (c *Console) Banner(title, subtitle string) {
	_, _ = fmt.Fprintln(c.out)
	_, _ = fmt.Fprintln(c.out, StyleTitle.Render(" "+title+" "))
	if subtitle != "" {
		_, _ = fmt.Fprintln(c.out, StyleSubtitle.Render(subtitle))
	}
	_, _ = fmt.Fprintln(c.out)
}

// Prompt prints the input prompt without a newline
func (c *Console) Prompt() {
	_, _ = fmt.Fprint(c.out, StyleUserRole.Render(UserLabel+":")+" ")
}

// OnDelta prints a streamed fragment of the answer
func (c *Console) OnDelta(chunk string) {
	if !c.streaming {
		_, _ = fmt.Fprint(c.out, StyleAssistantRole.Render(AssistantLabel+":")+" ")
		c.streaming = true
	}
	_, _ = fmt.Fprint(c.out, chunk)
}

// OnMessage prints messages the user has not already seen
func (c *Console) OnMessage(msg llmtypes.Message) {
	switch msg.Kind {
	case llmtypes.KindAssistant:
		if c.endStream() {
			_, _ = fmt.Fprintln(c.out)
			return
		}
		c.Assistant(msg.Content)
	case llmtypes.KindNotice:
		c.endStream()
		_, _ = fmt.Fprintf(c.out, "  %s %s\n", StyleNotice.Render(IconArrow), StyleNotice.Render(msg.Content))
	case llmtypes.KindFunction:
		if c.opts.ShowResults {
			_, _ = fmt.Fprintf(c.out, "    %s\n", StyleMuted.Render(preview(msg.Content, c.opts.Width)))
		}
	}
}

// OnDispatchStart starts the spinner for a function call
func (c *Console) OnDispatchStart(call llmtypes.FunctionCall) {
	c.spinner.Start("Running " + call.Name)
}

// OnDispatchEnd stops the spinner with the call's outcome
func (c *Console) OnDispatchEnd(call llmtypes.FunctionCall, err error) {
	c.spinner.Stop(err == nil)
}

// endStream terminates a streamed line; it reports whether one was open
func (c *Console) endStream() bool {
	if !c.streaming {
		return false
	}
	c.streaming = false
	_, _ = fmt.Fprintln(c.out)
	return true
}

// Assistant prints a complete assistant message
func (c *Console) Assistant(text string) {
	prefix := StyleAssistantRole.Render(AssistantLabel + ":")
	if c.opts.Markdown {
		_, _ = fmt.Fprintf(c.out, "%s\n%s\n", prefix, c.RenderMarkdown(text))
		return
	}
	_, _ = fmt.Fprintf(c.out, "%s %s\n\n", prefix, text)
}

// RenderMarkdown renders text for the terminal. Plain URLs are left for the
// terminal to detect.
func (c *Console) RenderMarkdown(text string) string {
	p := parser.NewWithExtensions(markdown.Extensions() &^ parser.Autolink)
	r := markdown.NewRenderer(c.opts.Width, 2)
	return string(gomarkdown.Render(p.Parse([]byte(text)), r))
}

// TurnError prints the error that ended a turn
func (c *Console) TurnError(err error) {
	c.endStream()
	if c.spinner.Running() {
		c.spinner.Stop(false)
	}
	_, _ = fmt.Fprintf(c.out, "%s %s\n\n", StyleError.Render(IconError), StyleError.Render(err.Error()))
}

// Info prints a muted informational line
func (c *Console) Info(msg string) {
	_, _ = fmt.Fprintf(c.out, "  %s\n", StyleInfo.Render(msg))
}

// Success prints a success line
func (c *Console) Success(msg string) {
	_, _ = fmt.Fprintf(c.out, "%s %s\n", StyleSuccess.Render(IconSuccess), StyleSuccess.Render(msg))
}

// Warning prints a warning line
func (c *Console) Warning(msg string) {
	_, _ = fmt.Fprintf(c.out, "%s %s\n", StyleWarning.Render(IconWarning), msg)
}

// History prints every message of h, one line each
func (c *Console) History(h llmtypes.History) {
	if len(h) == 0 {
		c.Info("No messages yet.")
		return
	}
	for i, msg := range h {
		var role string
		switch msg.Kind {
		case llmtypes.KindUser:
			role = StyleUserRole.Render(UserLabel)
		case llmtypes.KindAssistant:
			role = StyleAssistantRole.Render(AssistantLabel)
		case llmtypes.KindNotice:
			role = StyleNotice.Render("notice")
		case llmtypes.KindFunction:
			role = StyleMuted.Render("function " + msg.Name)
		}
		_, _ = fmt.Fprintf(c.out, "%3d %s %s\n", i, role, preview(msg.Content, c.opts.Width))
	}
	_, _ = fmt.Fprintln(c.out)
}

// preview flattens s to one line of at most width runes
func preview(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if width > 3 && len(r) > width {
		return string(r[:width-3]) + "..."
	}
	return s
}
