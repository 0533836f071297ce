package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/yuin/goldmark"

	"github.com/user/trialchat/internal/llmtypes"
	"github.com/user/trialchat/internal/transcript"
)

// HTMLExporter renders a transcript as a standalone HTML page
type HTMLExporter struct {
	markdown     goldmark.Markdown
	htmlTemplate *template.Template
}

// HTMLDocument represents the data for HTML template rendering
type HTMLDocument struct {
	Title    string
	Session  transcript.SessionRecord
	Messages []HTMLMessage
	CSS      template.CSS
}

// HTMLMessage is one rendered message
type HTMLMessage struct {
	Role  string // CSS class: user, assistant, notice, function
	Label string
	Body  template.HTML
}

// NewHTMLExporter creates a new HTML exporter with goldmark configured
func NewHTMLExporter() (*HTMLExporter, error) {
	tmpl, err := loadHTMLTemplate()
	if err != nil {
		return nil, fmt.Errorf("failed to load HTML template: %w", err)
	}
	return &HTMLExporter{
		markdown:     newMarkdown(),
		htmlTemplate: tmpl,
	}, nil
}

// Export writes the page for t to w
func (e *HTMLExporter) Export(w io.Writer, t *Transcript) error {
	doc := HTMLDocument{
		Title:   "trialchat session " + shortID(t.Session.ID),
		Session: t.Session,
		CSS:     template.CSS(defaultCSS),
	}
	for _, msg := range t.Messages {
		rendered, err := e.renderMessage(msg)
		if err != nil {
			return fmt.Errorf("failed to render message %d: %w", msg.Seq, err)
		}
		doc.Messages = append(doc.Messages, rendered)
	}

	var buf bytes.Buffer
	if err := e.htmlTemplate.Execute(&buf, doc); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func (e *HTMLExporter) renderMessage(msg transcript.MessageRecord) (HTMLMessage, error) {
	out := HTMLMessage{Role: string(msg.Kind)}
	source := msg.Content

	switch msg.Kind {
	case llmtypes.KindUser:
		out.Label = "You"
	case llmtypes.KindAssistant:
		out.Label = "Assistant"
	case llmtypes.KindNotice:
		out.Label = "Function call"
		out.Body = template.HTML("<p>" + template.HTMLEscapeString(msg.Content) + "</p>")
		return out, nil
	case llmtypes.KindFunction:
		out.Label = "Result of " + msg.Name
		source = codeBlock(prettyJSON(msg.Content), "json")
	default:
		out.Label = string(msg.Kind)
	}

	var buf bytes.Buffer
	if err := e.markdown.Convert([]byte(source), &buf); err != nil {
		return out, err
	}
	out.Body = template.HTML(buf.String())
	return out, nil
}

// prettyJSON indents content when it is a JSON document
func prettyJSON(content string) string {
	if !gjson.Valid(content) {
		return content
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(content), "", "  "); err != nil {
		return content
	}
	return buf.String()
}

// codeBlock fences code with more backticks than it contains in a row
func codeBlock(code, lang string) string {
	longest, run := 0, 0
	for _, r := range code {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	fence := strings.Repeat("`", max(3, longest+1))
	return fence + lang + "\n" + code + "\n" + fence + "\n"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// loadHTMLTemplate loads the HTML template with custom functions
func loadHTMLTemplate() (*template.Template, error) {
	const tmpl = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <meta name="generator" content="trialchat">
    <title>{{.Title}}</title>
    <style>
        {{.CSS}}
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>{{.Title}}</h1>
            <p class="meta">{{.Session.Provider}} / {{.Session.Model}} &middot; started {{stamp .Session.StartedAt}} &middot; {{len .Messages}} messages</p>
        </header>
        <main>
{{- range .Messages}}
            <section class="message {{.Role}}">
                <div class="role">{{.Label}}</div>
                <div class="body">{{.Body}}</div>
            </section>
{{- end}}
        </main>
        <footer>
            <p>Exported on {{now}} by trialchat</p>
        </footer>
    </div>
</body>
</html>
`

	return template.New("html").Funcs(template.FuncMap{
		"now": func() string {
			return time.Now().Format("2006-01-02 15:04:05")
		},
		"stamp": func(t time.Time) string {
			return t.Local().Format("2006-01-02 15:04")
		},
	}).Parse(tmpl)
}

const defaultCSS = `
        * { box-sizing: border-box; }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Helvetica, Arial, sans-serif;
            line-height: 1.6;
            color: #24292f;
            background-color: #f6f8fa;
            margin: 0;
        }

        .container { max-width: 920px; margin: 0 auto; padding: 32px; }

        header { border-bottom: 1px solid #d0d7de; margin-bottom: 24px; }
        header h1 { font-size: 1.5em; margin: 0; }
        .meta { color: #57606a; font-size: 14px; }

        .message {
            background: #ffffff;
            border: 1px solid #d0d7de;
            border-radius: 8px;
            margin-bottom: 16px;
            padding: 12px 16px;
        }
        .message.user { border-left: 4px solid #0969da; }
        .message.assistant { border-left: 4px solid #1a7f37; }
        .message.notice { background: transparent; border-style: dashed; color: #57606a; font-size: 14px; }
        .message.function { border-left: 4px solid #8250df; }

        .role { font-weight: 600; font-size: 13px; text-transform: uppercase; color: #57606a; }

        pre {
            background-color: #f6f8fa;
            border-radius: 6px;
            font-size: 85%;
            overflow: auto;
            padding: 12px;
            max-height: 480px;
        }

        table { border-collapse: collapse; margin-bottom: 16px; }
        table th, table td { padding: 6px 13px; border: 1px solid #d0d7de; }

        a { color: #0969da; }

        footer { color: #57606a; font-size: 13px; text-align: center; }
`
