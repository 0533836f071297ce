package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// WriteSSE writes one Server-Sent Event and flushes it
func WriteSSE(w http.ResponseWriter, event, data string) {
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// WriteSSEDone writes the OpenAI end-of-stream marker
func WriteSSEDone(w http.ResponseWriter) {
	WriteSSE(w, "", "[DONE]")
}

func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
}

func SetJSONHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
}

type MockServerOption func(*mockServerConfig)

type mockServerConfig struct {
	validateAuth bool
	authHeader   string
	authValue    string
}

// WithAuthValidation makes the server report requests lacking header=value
func WithAuthValidation(header, value string) MockServerOption {
	return func(cfg *mockServerConfig) {
		cfg.validateAuth = true
		cfg.authHeader = header
		cfg.authValue = value
	}
}

// NewMockServer starts an httptest server closed at the end of the test
func NewMockServer(t *testing.T, handler http.HandlerFunc, opts ...MockServerOption) *httptest.Server {
	t.Helper()
	cfg := &mockServerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cfg.validateAuth && r.Header.Get(cfg.authHeader) != cfg.authValue {
			t.Errorf("Expected %s header '%s', got '%s'", cfg.authHeader, cfg.authValue, r.Header.Get(cfg.authHeader))
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

// StatusHandler always answers with status and body
func StatusHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

// JSONHandler always answers 200 with body
func JSONHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		SetJSONHeaders(w)
		_, _ = w.Write([]byte(body))
	}
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// OpenAIStreamChunk builds a chat.completion.chunk carrying a content delta
func OpenAIStreamChunk(content string, finishReason string) string {
	fr := "null"
	if finishReason != "" {
		fr = quote(finishReason)
	}
	delta := ""
	if content != "" {
		delta = `"content":` + quote(content)
	}
	return fmt.Sprintf(`{"id":"chatcmpl-123","object":"chat.completion.chunk","created":1234567890,"model":"gpt-4o","choices":[{"index":0,"delta":{%s},"finish_reason":%s}]}`, delta, fr)
}

// OpenAIToolCallChunk builds a chunk carrying one tool-call fragment.
// id and name are only sent on the first fragment of a call.
func OpenAIToolCallChunk(index int, id, name, args string) string {
	idPart := ""
	if id != "" {
		idPart = fmt.Sprintf(`"id":%s,"type":"function",`, quote(id))
	}
	namePart := ""
	if name != "" {
		namePart = fmt.Sprintf(`"name":%s,`, quote(name))
	}
	return fmt.Sprintf(`{"id":"chatcmpl-123","object":"chat.completion.chunk","created":1234567890,"model":"gpt-4o","choices":[{"index":0,"delta":{"tool_calls":[{"index":%d,%s"function":{%s"arguments":%s}}]},"finish_reason":null}]}`, index, idPart, namePart, quote(args))
}

// OpenAIUsageChunk builds the trailing usage-only chunk
func OpenAIUsageChunk(prompt, completion int) string {
	return fmt.Sprintf(`{"id":"chatcmpl-123","object":"chat.completion.chunk","created":1234567890,"model":"gpt-4o","choices":[],"usage":{"prompt_tokens":%d,"completion_tokens":%d,"total_tokens":%d}}`, prompt, completion, prompt+completion)
}

// OpenAIStreamHandler streams content in the given pieces and stops
func OpenAIStreamHandler(pieces ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		SetSSEHeaders(w)
		for _, p := range pieces {
			WriteSSE(w, "", OpenAIStreamChunk(p, ""))
		}
		WriteSSE(w, "", OpenAIStreamChunk("", "stop"))
		WriteSSE(w, "", OpenAIUsageChunk(10, 5))
		WriteSSEDone(w)
	}
}

func AnthropicMessageStart(inputTokens int) string {
	return fmt.Sprintf(`{"type":"message_start","message":{"id":"msg_123","type":"message","role":"assistant","content":[],"model":"claude-test","stop_reason":null,"usage":{"input_tokens":%d,"output_tokens":0}}}`, inputTokens)
}

func AnthropicTextStart(index int) string {
	return fmt.Sprintf(`{"type":"content_block_start","index":%d,"content_block":{"type":"text","text":""}}`, index)
}

func AnthropicToolUseStart(index int, id, name string) string {
	return fmt.Sprintf(`{"type":"content_block_start","index":%d,"content_block":{"type":"tool_use","id":%s,"name":%s,"input":{}}}`, index, quote(id), quote(name))
}

func AnthropicTextDelta(index int, text string) string {
	return fmt.Sprintf(`{"type":"content_block_delta","index":%d,"delta":{"type":"text_delta","text":%s}}`, index, quote(text))
}

func AnthropicInputJSONDelta(index int, partial string) string {
	return fmt.Sprintf(`{"type":"content_block_delta","index":%d,"delta":{"type":"input_json_delta","partial_json":%s}}`, index, quote(partial))
}

func AnthropicContentBlockStop(index int) string {
	return fmt.Sprintf(`{"type":"content_block_stop","index":%d}`, index)
}

func AnthropicMessageDelta(stopReason string, outputTokens int) string {
	return fmt.Sprintf(`{"type":"message_delta","delta":{"stop_reason":%s,"stop_sequence":null},"usage":{"output_tokens":%d}}`, quote(stopReason), outputTokens)
}

func AnthropicMessageStop() string {
	return `{"type":"message_stop"}`
}

// AnthropicStreamHandler streams content in the given pieces and stops
func AnthropicStreamHandler(pieces ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		SetSSEHeaders(w)
		WriteSSE(w, "message_start", AnthropicMessageStart(10))
		WriteSSE(w, "content_block_start", AnthropicTextStart(0))
		for _, p := range pieces {
			WriteSSE(w, "content_block_delta", AnthropicTextDelta(0, p))
		}
		WriteSSE(w, "content_block_stop", AnthropicContentBlockStop(0))
		WriteSSE(w, "message_delta", AnthropicMessageDelta("end_turn", 5))
		WriteSSE(w, "message_stop", AnthropicMessageStop())
	}
}

// OllamaChunk builds one NDJSON line of an Ollama chat stream
func OllamaChunk(content string, done bool) string {
	return fmt.Sprintf(`{"model":"llama3.1","created_at":"2025-01-01T00:00:00Z","message":{"role":"assistant","content":%s},"done":%t,"prompt_eval_count":%d,"eval_count":%d}`,
		quote(content), done, boolInt(done)*12, boolInt(done)*4)
}

// OllamaToolCallChunk builds an NDJSON line carrying one tool call
func OllamaToolCallChunk(name, argsJSON string) string {
	return fmt.Sprintf(`{"model":"llama3.1","created_at":"2025-01-01T00:00:00Z","message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":%s,"arguments":%s}}]},"done":false}`, quote(name), argsJSON)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// WriteNDJSON writes lines separated by newlines and flushes
func WriteNDJSON(w http.ResponseWriter, lines ...string) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	for _, line := range lines {
		fmt.Fprintln(w, line)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
