package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/user/trialchat/internal/llmtypes"
	"github.com/user/trialchat/internal/transcript"
)

func sampleTranscript() *Transcript {
	started := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	return &Transcript{
		Session: transcript.SessionRecord{
			ID:        "0f3c9a12-7d4e-4b1a-9c55-1d2e3f4a5b6c",
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			StartedAt: started,
			Messages:  5,
		},
		Messages: []transcript.MessageRecord{
			{Seq: 0, Kind: llmtypes.KindAssistant, Content: "Hello, I can search clinical trials.", CreatedAt: started},
			{Seq: 1, Kind: llmtypes.KindUser, Content: "Find melanoma trials <now>", CreatedAt: started},
			{Seq: 2, Kind: llmtypes.KindNotice, Name: "search_trials", CallID: "call_1", Content: `search_trials({"query":"melanoma"}) <b>`, CreatedAt: started},
			{Seq: 3, Kind: llmtypes.KindFunction, Name: "search_trials", CallID: "call_1", Content: `{"studies":[{"nctId":"NCT01234567"}]}`, CreatedAt: started},
			{Seq: 4, Kind: llmtypes.KindAssistant, Content: "I found **NCT01234567**, see [the record](https://clinicaltrials.gov/study/NCT01234567) and NCT07654321.\n\nAlso `NCT01234567` again.", CreatedAt: started},
		},
	}
}

// TestParseFormat tests format name validation
func TestParseFormat(t *testing.T) {
	testCases := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"html", FormatHTML, false},
		{" JSON ", FormatJSON, false},
		{"pdf", "", true},
		{"", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseFormat(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}
}

// TestNew_ReturnsExporterPerFormat tests the exporter factory
func TestNew_ReturnsExporterPerFormat(t *testing.T) {
	if e, err := New(FormatHTML); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	} else if _, ok := e.(*HTMLExporter); !ok {
		t.Errorf("Expected *HTMLExporter, got %T", e)
	}
	if e, err := New(FormatJSON); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	} else if _, ok := e.(*JSONExporter); !ok {
		t.Errorf("Expected *JSONExporter, got %T", e)
	}
	if _, err := New(Format("txt")); err == nil {
		t.Error("Expected error for unknown format")
	}
}

// TestHTMLExporter_Export tests the rendered page
func TestHTMLExporter_Export(t *testing.T) {
	exporter, err := NewHTMLExporter()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var buf bytes.Buffer
	if err := exporter.Export(&buf, sampleTranscript()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	page := buf.String()

	checks := []string{
		"<!DOCTYPE html>",
		"<title>trialchat session 0f3c9a12</title>",
		"openai / gpt-4o-mini",
		"5 messages",
		`class="message user"`,
		`class="message assistant"`,
		`class="message notice"`,
		`class="message function"`,
		"Result of search_trials",
		"<strong>NCT01234567</strong>",
		`<a href="https://clinicaltrials.gov/study/NCT01234567">the record</a>`,
		"&lt;b&gt;",
		"<pre",
	}
	for _, want := range checks {
		if !strings.Contains(page, want) {
			t.Errorf("Expected page to contain %q", want)
		}
	}
	if strings.Contains(page, "<now>") {
		t.Error("Expected raw HTML in user input to be dropped or escaped")
	}
}

// TestHTMLExporter_PrettyPrintsResults tests that function results are indented
func TestHTMLExporter_PrettyPrintsResults(t *testing.T) {
	if got := prettyJSON(`{"a":1}`); got != "{\n  \"a\": 1\n}" {
		t.Errorf("Expected indented JSON, got %q", got)
	}
	if got := prettyJSON("not json"); got != "not json" {
		t.Errorf("Expected text unchanged, got %q", got)
	}
}

// TestCodeBlock tests fencing of content that contains backticks
func TestCodeBlock(t *testing.T) {
	got := codeBlock("a ``` b", "json")
	if !strings.HasPrefix(got, "````json\n") || !strings.HasSuffix(got, "\n````\n") {
		t.Errorf("Expected four-backtick fence, got %q", got)
	}
	if got := codeBlock("plain", ""); got != "```\nplain\n```\n" {
		t.Errorf("Unexpected fence %q", got)
	}
}

// TestJSONExporter_Export tests the structured document
func TestJSONExporter_Export(t *testing.T) {
	exporter := NewJSONExporter()
	exporter.now = func() time.Time { return time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC) }

	var buf bytes.Buffer
	if err := exporter.Export(&buf, sampleTranscript()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !json.Valid(buf.Bytes()) {
		t.Fatalf("Expected valid JSON, got %s", buf.String())
	}
	doc := buf.String()

	if got := gjson.Get(doc, "metadata.session_id").String(); got != "0f3c9a12-7d4e-4b1a-9c55-1d2e3f4a5b6c" {
		t.Errorf("Expected session id, got %q", got)
	}
	if got := gjson.Get(doc, "metadata.message_count").Int(); got != 5 {
		t.Errorf("Expected 5 messages, got %d", got)
	}
	if got := gjson.Get(doc, "metadata.exported_at").String(); got != "2025-03-02T00:00:00Z" {
		t.Errorf("Expected fixed export time, got %q", got)
	}
	if got := gjson.Get(doc, "messages.3.result.studies.0.nctId").String(); got != "NCT01234567" {
		t.Errorf("Expected embedded function result, got %q", got)
	}
	if gjson.Get(doc, "messages.2.result").Exists() {
		t.Error("Expected no result for a notice")
	}
	if !strings.Contains(doc, "<b>") {
		t.Error("Expected HTML characters to stay unescaped")
	}

	ids := gjson.Get(doc, "messages.4.nct_ids").Array()
	if len(ids) != 2 || ids[0].String() != "NCT01234567" || ids[1].String() != "NCT07654321" {
		t.Errorf("Expected two distinct study ids, got %v", ids)
	}
	links := gjson.Get(doc, "messages.4.links").Array()
	if len(links) != 1 || links[0].String() != "https://clinicaltrials.gov/study/NCT01234567" {
		t.Errorf("Expected one link, got %v", links)
	}
	if gjson.Get(doc, "messages.0.nct_ids").Exists() {
		t.Error("Expected greeting without study ids")
	}
}

// TestJSONExporter_NonJSONResult tests that text results are kept as content only
func TestJSONExporter_NonJSONResult(t *testing.T) {
	tr := &Transcript{
		Session: transcript.SessionRecord{ID: "s"},
		Messages: []transcript.MessageRecord{
			{Seq: 0, Kind: llmtypes.KindFunction, Name: "save_csv", Content: "saved 3 rows to trials.csv"},
		},
	}

	var buf bytes.Buffer
	if err := NewJSONExporter().Export(&buf, tr); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if gjson.Get(buf.String(), "messages.0.result").Exists() {
		t.Error("Expected no embedded result")
	}
	if got := gjson.Get(buf.String(), "messages.0.content").String(); got != "saved 3 rows to trials.csv" {
		t.Errorf("Expected content kept, got %q", got)
	}
}
