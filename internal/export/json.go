package export

import (
	"encoding/json"
	"io"
	"regexp"
	"time"

	"github.com/tidwall/gjson"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/user/trialchat/internal/llmtypes"
)

// JSONDocument represents the complete JSON output structure
type JSONDocument struct {
	Metadata Metadata      `json:"metadata"`
	Messages []JSONMessage `json:"messages"`
}

// Metadata describes the exported session
type Metadata struct {
	SessionID    string    `json:"session_id"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	StartedAt    time.Time `json:"started_at"`
	ExportedAt   time.Time `json:"exported_at"`
	MessageCount int       `json:"message_count"`
	Generator    string    `json:"generator"`
}

// JSONMessage is one archived message. Function results that are JSON
// documents are embedded as Result; answers list the studies and links
// they mention.
type JSONMessage struct {
	Seq       int             `json:"seq"`
	Kind      string          `json:"kind"`
	Name      string          `json:"name,omitempty"`
	CallID    string          `json:"call_id,omitempty"`
	Content   string          `json:"content"`
	Result    json.RawMessage `json:"result,omitempty"`
	NCTIDs    []string        `json:"nct_ids,omitempty"`
	Links     []string        `json:"links,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

var nctPattern = regexp.MustCompile(`\bNCT\d{8}\b`)

// JSONExporter converts a transcript to a structured JSON document
type JSONExporter struct {
	parser parser.Parser
	now    func() time.Time
}

// NewJSONExporter creates a new JSON exporter
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{
		parser: newMarkdown().Parser(),
		now:    time.Now,
	}
}

// Export writes t to w as indented JSON
func (e *JSONExporter) Export(w io.Writer, t *Transcript) error {
	doc := JSONDocument{
		Metadata: Metadata{
			SessionID:    t.Session.ID,
			Provider:     t.Session.Provider,
			Model:        t.Session.Model,
			StartedAt:    t.Session.StartedAt,
			ExportedAt:   e.now().UTC(),
			MessageCount: len(t.Messages),
			Generator:    "trialchat",
		},
		Messages: make([]JSONMessage, 0, len(t.Messages)),
	}

	for _, msg := range t.Messages {
		out := JSONMessage{
			Seq:       msg.Seq,
			Kind:      string(msg.Kind),
			Name:      msg.Name,
			CallID:    msg.CallID,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		}
		switch msg.Kind {
		case llmtypes.KindFunction:
			if gjson.Valid(msg.Content) {
				out.Result = json.RawMessage(msg.Content)
			}
		case llmtypes.KindAssistant:
			out.NCTIDs, out.Links = e.references(msg.Content)
		}
		doc.Messages = append(doc.Messages, out)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// references walks the markdown of an answer and collects the study
// identifiers in its text and the destinations of its links, in order of
// first appearance
func (e *JSONExporter) references(markdown string) (nctIDs, links []string) {
	source := []byte(markdown)
	doc := e.parser.Parse(text.NewReader(source))

	seenID := map[string]bool{}
	seenLink := map[string]bool{}
	addID := func(s string) {
		for _, id := range nctPattern.FindAllString(s, -1) {
			if !seenID[id] {
				seenID[id] = true
				nctIDs = append(nctIDs, id)
			}
		}
	}
	addLink := func(dest string) {
		if dest != "" && !seenLink[dest] {
			seenLink[dest] = true
			links = append(links, dest)
		}
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Link:
			addLink(string(node.Destination))
			addID(string(node.Destination))
		case *ast.AutoLink:
			addLink(string(node.URL(source)))
		case *ast.Text:
			addID(string(node.Segment.Value(source)))
		case *ast.CodeSpan:
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					addID(string(t.Segment.Value(source)))
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return nctIDs, links
}
