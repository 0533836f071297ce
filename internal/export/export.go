// Package export renders archived chat sessions as standalone HTML or
// structured JSON documents.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/user/trialchat/internal/transcript"
)

// Format names an export format
type Format string

const (
	FormatHTML Format = "html"
	FormatJSON Format = "json"
)

// Formats lists the supported formats
var Formats = []Format{FormatHTML, FormatJSON}

// ParseFormat validates a format name
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported export format %q (supported: html, json)", name)
}

// Transcript is one archived session with its messages
type Transcript struct {
	Session  transcript.SessionRecord
	Messages []transcript.MessageRecord
}

// Exporter writes a transcript in one format
type Exporter interface {
	Export(w io.Writer, t *Transcript) error
}

// New returns the exporter of format
func New(format Format) (Exporter, error) {
	switch format {
	case FormatHTML:
		return NewHTMLExporter()
	case FormatJSON:
		return NewJSONExporter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// newMarkdown configures goldmark with GitHub Flavored Markdown and syntax
// highlighting. Raw HTML in model output is dropped.
func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
			),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)
}
