package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/user/trialchat/internal/config"
	apperrors "github.com/user/trialchat/internal/errors"
	"github.com/user/trialchat/internal/llmtypes"
	"github.com/user/trialchat/internal/testutil"
	"github.com/user/trialchat/internal/tools"
	"github.com/user/trialchat/internal/trials"
)

// recorder is an Observer that keeps every event
type recorder struct {
	deltas     strings.Builder
	messages   []llmtypes.Message
	started    []string
	finished   []string
	dispatchOK []bool
}

func (r *recorder) OnDelta(chunk string)                    { r.deltas.WriteString(chunk) }
func (r *recorder) OnMessage(msg llmtypes.Message)          { r.messages = append(r.messages, msg) }
func (r *recorder) OnDispatchStart(c llmtypes.FunctionCall) { r.started = append(r.started, c.Name) }
func (r *recorder) OnDispatchEnd(c llmtypes.FunctionCall, err error) {
	r.finished = append(r.finished, c.Name)
	r.dispatchOK = append(r.dispatchOK, err == nil)
}

// newTrialsRegistry returns the clinical trials registry backed by a fake
// API that answers every search with two studies
func newTrialsRegistry(t *testing.T) (*tools.Registry, *int32) {
	t.Helper()
	var hits int32
	server := testutil.NewMockServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		testutil.SetJSONHeaders(w)
		_, _ = w.Write([]byte(testutil.SearchResponse(
			testutil.SearchStudy{NCTID: "NCT01", Title: "Study One"},
			testutil.SearchStudy{NCTID: "NCT02", Title: "Study Two"},
		)))
	})

	client := trials.NewClient(config.TrialsConfig{BaseURL: server.URL}, nil, nil)
	registry, err := tools.NewRegistryForPlugin(config.PluginClinicalTrials, client, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return registry, &hits
}

func kinds(h llmtypes.History) []llmtypes.MessageKind {
	out := make([]llmtypes.MessageKind, len(h))
	for i, m := range h {
		out[i] = m.Kind
	}
	return out
}

func assertKinds(t *testing.T, h llmtypes.History, want ...llmtypes.MessageKind) {
	t.Helper()
	got := kinds(h)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("Expected kinds %v, got %v", want, got)
	}
}

func encoded(t *testing.T, v interface{}) string {
	t.Helper()
	s, err := tools.EncodeResult(v)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return s
}

func TestRunTurn_TextAnswer(t *testing.T) {
	registry, hits := newTrialsRegistry(t)
	mock := testutil.NewMockLLMClient(testutil.TextResponse("Hello there"))
	o := NewOrchestrator(mock, registry, Options{SystemPrompt: "be brief", Stream: true}, nil, nil)
	rec := &recorder{}

	h, err := o.RunTurn(context.Background(), nil, "hi", rec)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	assertKinds(t, h, llmtypes.KindUser, llmtypes.KindAssistant)
	if h[1].Content != "Hello there" {
		t.Errorf("Expected answer 'Hello there', got %q", h[1].Content)
	}
	if rec.deltas.String() != "Hello there" {
		t.Errorf("Expected streamed text, got %q", rec.deltas.String())
	}
	if len(rec.messages) != 2 {
		t.Errorf("Expected 2 observed messages, got %d", len(rec.messages))
	}
	if atomic.LoadInt32(hits) != 0 {
		t.Errorf("Expected no upstream requests, got %d", atomic.LoadInt32(hits))
	}

	req := mock.LastRequest()
	if req.SystemPrompt != "be brief" {
		t.Errorf("Expected system prompt to be sent, got %q", req.SystemPrompt)
	}
	if len(req.Functions) != 3 {
		t.Errorf("Expected 3 function definitions, got %d", len(req.Functions))
	}
}

func TestRunTurn_NoStreaming(t *testing.T) {
	registry, _ := newTrialsRegistry(t)
	mock := testutil.NewMockLLMClient(testutil.TextResponse("quiet"))
	o := NewOrchestrator(mock, registry, Options{}, nil, nil)
	rec := &recorder{}

	if _, err := o.RunTurn(context.Background(), nil, "hi", rec); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.deltas.Len() != 0 {
		t.Errorf("Expected no deltas with streaming off, got %q", rec.deltas.String())
	}
	if mock.LastRequest().OnDelta != nil {
		t.Error("Expected no delta callback with streaming off")
	}
}

func TestRunTurn_FunctionRoundTrip(t *testing.T) {
	registry, hits := newTrialsRegistry(t)
	args := `{"query_term":"melanoma","pageSize":2}`
	mock := testutil.NewMockLLMClient(
		testutil.CallResponse("call_1", "study_search", args),
		testutil.TextResponse("Found 2 studies."),
	)
	o := NewOrchestrator(mock, registry, Options{}, nil, nil)
	rec := &recorder{}

	h, err := o.RunTurn(context.Background(), nil, "find melanoma trials", rec)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	assertKinds(t, h, llmtypes.KindUser, llmtypes.KindNotice, llmtypes.KindFunction, llmtypes.KindAssistant)
	if atomic.LoadInt32(hits) != 1 {
		t.Errorf("Expected exactly 1 upstream request, got %d", atomic.LoadInt32(hits))
	}

	notice := h[1]
	if notice.Content != "Calling function study_search with arguments: "+args {
		t.Errorf("Unexpected notice %q", notice.Content)
	}
	if notice.Call == nil || notice.Call.ID != "call_1" {
		t.Errorf("Expected notice to carry call_1, got %+v", notice.Call)
	}

	result := h[2]
	if result.CallID != "call_1" || result.Name != "study_search" {
		t.Errorf("Expected result for call_1/study_search, got %s/%s", result.CallID, result.Name)
	}
	want := `{"Query Term":"melanoma","Page Size":2,"Number of Results":2,"Study Name":["Study One","Study Two"],"NCT_ID":["NCT01","NCT02"]}`
	if result.Content != want {
		t.Errorf("Expected result %s, got %s", want, result.Content)
	}

	if mock.CallCount != 2 {
		t.Fatalf("Expected 2 LLM calls, got %d", mock.CallCount)
	}
	if n := len(mock.RequestHistory[1].Messages); n != 3 {
		t.Errorf("Expected second round to replay 3 messages, got %d", n)
	}
	if len(rec.started) != 1 || len(rec.finished) != 1 || !rec.dispatchOK[0] {
		t.Errorf("Expected one successful dispatch, got start=%v end=%v ok=%v", rec.started, rec.finished, rec.dispatchOK)
	}
}

func TestRunTurn_MultipleCallsInOneResponse(t *testing.T) {
	registry, hits := newTrialsRegistry(t)
	mock := testutil.NewMockLLMClient(
		llmtypes.CompletionResponse{FunctionCalls: []llmtypes.FunctionCall{
			{ID: "a", Name: "study_search", Arguments: `{"query_term":"asthma"}`},
			{ID: "b", Name: "study_search", Arguments: `{"query_term":"copd"}`},
		}},
		testutil.TextResponse("done"),
	)
	o := NewOrchestrator(mock, registry, Options{}, nil, nil)

	h, err := o.RunTurn(context.Background(), nil, "compare", nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	assertKinds(t, h,
		llmtypes.KindUser,
		llmtypes.KindNotice, llmtypes.KindFunction,
		llmtypes.KindNotice, llmtypes.KindFunction,
		llmtypes.KindAssistant,
	)
	if h[2].CallID != "a" || h[4].CallID != "b" {
		t.Errorf("Expected results in call order, got %s then %s", h[2].CallID, h[4].CallID)
	}
	if atomic.LoadInt32(hits) != 2 {
		t.Errorf("Expected 2 upstream requests, got %d", atomic.LoadInt32(hits))
	}
}

func TestRunTurn_KeepsTextSentWithCalls(t *testing.T) {
	registry, _ := newTrialsRegistry(t)
	withText := testutil.CallResponse("call_1", "study_search", `{"query_term":"asthma"}`)
	withText.Content = "Let me search the registry first."
	mock := testutil.NewMockLLMClient(withText, testutil.TextResponse("done"))
	o := NewOrchestrator(mock, registry, Options{Stream: true}, nil, nil)
	rec := &recorder{}

	h, err := o.RunTurn(context.Background(), nil, "find asthma studies", rec)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	assertKinds(t, h,
		llmtypes.KindUser,
		llmtypes.KindAssistant,
		llmtypes.KindNotice, llmtypes.KindFunction,
		llmtypes.KindAssistant,
	)
	if h[1].Content != "Let me search the registry first." {
		t.Errorf("Expected preamble kept, got %q", h[1].Content)
	}
	if len(rec.messages) != len(h) {
		t.Errorf("Expected every message observed, got %d of %d", len(rec.messages), len(h))
	}
	if replay := mock.RequestHistory[1].Messages; len(replay) != 4 || replay[1].Content != h[1].Content {
		t.Errorf("Expected second round to replay the preamble, got %+v", replay)
	}
}

func TestRunTurn_MaxRounds(t *testing.T) {
	registry, hits := newTrialsRegistry(t)
	mock := testutil.NewMockLLMClient(testutil.CallResponse("loop", "study_search", `{"query_term":"x"}`))
	mock.RepeatLast = true
	o := NewOrchestrator(mock, registry, Options{MaxRounds: 3}, nil, nil)

	h, err := o.RunTurn(context.Background(), nil, "go", nil)
	var maxErr *apperrors.MaxRoundsError
	if !errors.As(err, &maxErr) {
		t.Fatalf("Expected MaxRoundsError, got %v", err)
	}
	if err.Error() != apperrors.MaxRoundsMessage {
		t.Errorf("Expected message %q, got %q", apperrors.MaxRoundsMessage, err.Error())
	}
	if maxErr.Rounds != 3 {
		t.Errorf("Expected 3 rounds, got %d", maxErr.Rounds)
	}
	if atomic.LoadInt32(hits) != 3 {
		t.Errorf("Expected 3 dispatches, got %d", atomic.LoadInt32(hits))
	}
	if mock.CallCount != 4 {
		t.Errorf("Expected 4 LLM calls, got %d", mock.CallCount)
	}
	// user message plus a notice and a result per round
	if len(h) != 7 {
		t.Errorf("Expected 7 messages in the partial history, got %d", len(h))
	}
}

func TestRunTurn_DefaultMaxRounds(t *testing.T) {
	o := NewOrchestrator(testutil.NewMockLLMClient(), nil, Options{}, nil, nil)
	if o.MaxRounds() != DefaultMaxRounds {
		t.Errorf("Expected default max rounds %d, got %d", DefaultMaxRounds, o.MaxRounds())
	}
}

func TestRunTurn_DispatchFailuresBecomeResults(t *testing.T) {
	tests := []struct {
		name      string
		function  string
		arguments string
		want      string
	}{
		{
			name:      "unknown function",
			function:  "launch_rocket",
			arguments: `{}`,
			want:      `Function call failed with error: unknown function "launch_rocket"`,
		},
		{
			name:      "malformed arguments",
			function:  "study_search",
			arguments: `{"query_term":`,
			want:      "Function call failed with error: ",
		},
		{
			name:      "missing required argument",
			function:  "study_search",
			arguments: `{"pageSize":3}`,
			want:      `Function call failed with error: missing required argument "query_term"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry, hits := newTrialsRegistry(t)
			mock := testutil.NewMockLLMClient(
				testutil.CallResponse("c1", tt.function, tt.arguments),
				testutil.TextResponse("sorry"),
			)
			o := NewOrchestrator(mock, registry, Options{}, nil, nil)
			rec := &recorder{}

			h, err := o.RunTurn(context.Background(), nil, "q", rec)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			assertKinds(t, h, llmtypes.KindUser, llmtypes.KindNotice, llmtypes.KindFunction, llmtypes.KindAssistant)

			var content string
			if err := json.Unmarshal([]byte(h[2].Content), &content); err != nil {
				t.Fatalf("Expected a JSON string result, got %s", h[2].Content)
			}
			if !strings.HasPrefix(content, tt.want) {
				t.Errorf("Expected result starting with %q, got %q", tt.want, content)
			}
			if atomic.LoadInt32(hits) != 0 {
				t.Errorf("Expected no upstream requests, got %d", atomic.LoadInt32(hits))
			}
			if len(rec.dispatchOK) != 1 || rec.dispatchOK[0] {
				t.Errorf("Expected one failed dispatch, got %v", rec.dispatchOK)
			}
		})
	}
}

func TestRunTurn_GeneratesMissingCallID(t *testing.T) {
	registry, _ := newTrialsRegistry(t)
	mock := testutil.NewMockLLMClient(
		testutil.CallResponse("", "launch_rocket", ""),
		testutil.TextResponse("ok"),
	)
	o := NewOrchestrator(mock, registry, Options{}, nil, nil)

	h, err := o.RunTurn(context.Background(), nil, "q", nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	id := h[1].Call.ID
	if !strings.HasPrefix(id, "call_") {
		t.Errorf("Expected generated call id, got %q", id)
	}
	if h[2].CallID != id {
		t.Errorf("Expected result to answer %q, got %q", id, h[2].CallID)
	}
	if h[1].Content != "Calling function launch_rocket with arguments: {}" {
		t.Errorf("Unexpected notice %q", h[1].Content)
	}
}

func TestRunTurn_MissingCredential(t *testing.T) {
	registry, _ := newTrialsRegistry(t)
	mock := testutil.NewMockLLMClient(testutil.TextResponse("never"))
	credErr := apperrors.NewMissingCredentialError("openai", "OPENAI_API_KEY")
	o := NewOrchestrator(mock, registry, Options{Preflight: func() error { return credErr }}, nil, nil)
	rec := &recorder{}

	before := llmtypes.History{llmtypes.AssistantMessage("greeting")}
	h, err := o.RunTurn(context.Background(), before, "hi", rec)

	var missing *apperrors.MissingCredentialError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingCredentialError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Please add your OpenAI API key to continue.") {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if len(h) != 1 || h[0].Content != "greeting" {
		t.Errorf("Expected history unchanged, got %+v", h)
	}
	if mock.CallCount != 0 {
		t.Errorf("Expected no LLM calls, got %d", mock.CallCount)
	}
	if len(rec.messages) != 0 {
		t.Errorf("Expected no observed messages, got %d", len(rec.messages))
	}
}

func TestRunTurn_LLMFailure(t *testing.T) {
	registry, _ := newTrialsRegistry(t)
	mock := testutil.NewMockLLMClient()
	mock.ErrorToReturn = fmt.Errorf("API error: status 500")
	o := NewOrchestrator(mock, registry, Options{}, nil, nil)

	h, err := o.RunTurn(context.Background(), nil, "hi", nil)
	var connErr *apperrors.LLMConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("Expected LLMConnectionError, got %v", err)
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("Expected cause in message, got %q", err.Error())
	}
	assertKinds(t, h, llmtypes.KindUser)
}

func TestRunTurn_DoesNotModifyInputHistory(t *testing.T) {
	registry, _ := newTrialsRegistry(t)
	mock := testutil.NewMockLLMClient(
		testutil.CallResponse("c1", "study_search", `{"query_term":"x"}`),
		testutil.TextResponse("ok"),
	)
	o := NewOrchestrator(mock, registry, Options{}, nil, nil)

	base := make(llmtypes.History, 1, 16)
	base[0] = llmtypes.AssistantMessage("greeting")

	h, err := o.RunTurn(context.Background(), base, "hi", nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(h) != 5 {
		t.Fatalf("Expected 5 messages, got %d", len(h))
	}
	if spare := base[:cap(base)][1]; spare != (llmtypes.Message{}) {
		t.Errorf("Expected spare capacity of the input untouched, got %+v", spare)
	}
	if len(base) != 1 {
		t.Errorf("Expected input length 1, got %d", len(base))
	}
}

func TestRunTurn_TruncatesResults(t *testing.T) {
	registry, _ := newTrialsRegistry(t)
	mock := testutil.NewMockLLMClient(
		testutil.CallResponse("c1", "study_search", `{"query_term":"x"}`),
		testutil.TextResponse("ok"),
	)
	o := NewOrchestrator(mock, registry, Options{MaxResultChars: 20}, nil, nil)

	h, err := o.RunTurn(context.Background(), nil, "hi", nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	got := h[2].Content
	if !strings.HasPrefix(got, `{"Query Term":"x","P`) {
		t.Errorf("Expected 20-byte prefix, got %q", got)
	}
	if !strings.HasSuffix(got, "[TRUNCATED - function result exceeded 20 characters]") {
		t.Errorf("Expected truncation marker, got %q", got)
	}
}

func TestTruncateResult(t *testing.T) {
	marker := func(n int) string {
		return fmt.Sprintf("\n[TRUNCATED - function result exceeded %d characters]", n)
	}
	tests := []struct {
		name    string
		content string
		limit   int
		want    string
	}{
		{"unlimited", "abcdef", 0, "abcdef"},
		{"within limit", "abc", 3, "abc"},
		{"cut", "abcdef", 4, "abcd" + marker(4)},
		{"rune boundary", "aé", 2, "a" + marker(2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateResult(tt.content, tt.limit); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRunTurn_StringResultsAreJSONEncoded(t *testing.T) {
	server := testutil.NewMockServer(t, testutil.StatusHandler(http.StatusServiceUnavailable, "down"))
	client := trials.NewClient(config.TrialsConfig{BaseURL: server.URL}, nil, nil)
	registry, err := tools.NewRegistryForPlugin(config.PluginClinicalTrials, client, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	mock := testutil.NewMockLLMClient(
		testutil.CallResponse("c1", "study_search", `{"query_term":"x"}`),
		testutil.TextResponse("the registry is down"),
	)
	o := NewOrchestrator(mock, registry, Options{}, nil, nil)

	h, err := o.RunTurn(context.Background(), nil, "hi", nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if want := encoded(t, "Request failed with status code 503"); h[2].Content != want {
		t.Errorf("Expected %s, got %s", want, h[2].Content)
	}
}
