package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/user/trialchat/internal/config"
	"github.com/user/trialchat/internal/llmtypes"
	"github.com/user/trialchat/internal/retry"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
)

// AnthropicClient implements LLMClient for the Anthropic Messages API
type AnthropicClient struct {
	*BaseLLMClient
	apiKey  string
	model   string
	baseURL string
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
	Stream      bool               `json:"stream"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

// anthropicContentBlock is flat: which fields are set depends on Type
type anthropicContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type anthropicTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type anthropicStreamEvent struct {
	Type    string `json:"type"`
	Message *struct {
		Usage anthropicUsage `json:"usage"`
	} `json:"message,omitempty"`
	ContentBlock *anthropicContentBlock `json:"content_block,omitempty"`
	Delta        *struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta,omitempty"`
	Usage *anthropicUsage `json:"usage,omitempty"`
	Error *anthropicError `json:"error,omitempty"`
}

// NewAnthropicClient creates a new Anthropic client
func NewAnthropicClient(cfg config.LLMConfig, retryClient *retry.Client) *AnthropicClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}
	return &AnthropicClient{
		BaseLLMClient: NewBaseLLMClient(retryClient),
		apiKey:        cfg.APIKey,
		model:         cfg.Model,
		baseURL:       baseURL,
	}
}

// GenerateCompletion generates a streamed completion from Anthropic
func (c *AnthropicClient) GenerateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
		"accept":            "text/event-stream",
	}

	resp, err := c.doHTTPRequest(ctx, http.MethodPost, c.baseURL+"/v1/messages", headers, c.convertRequest(req))
	if err != nil {
		return CompletionResponse{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var envelope struct {
			Error *anthropicError `json:"error"`
		}
		if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
			return CompletionResponse{}, fmt.Errorf("API error (status %d): %s", resp.StatusCode, envelope.Error.Message)
		}
		return CompletionResponse{}, fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return c.parseStreamingResponse(resp.Body, req)
}

// GetProvider returns the provider name
func (c *AnthropicClient) GetProvider() string {
	return "anthropic"
}

func (c *AnthropicClient) parseStreamingResponse(body io.Reader, req CompletionRequest) (CompletionResponse, error) {
	parser := NewSSEParser(body)
	acc := &anthropicAccumulator{req: req}

	for !acc.complete {
		event, err := parser.NextEvent()
		if err == io.EOF {
			break
		}
		if err != nil {
			return CompletionResponse{}, fmt.Errorf("stream parsing error: %w", err)
		}
		if err := acc.handle(event.Data); err != nil {
			return CompletionResponse{}, err
		}
	}

	if !acc.complete {
		return CompletionResponse{}, fmt.Errorf("stream ended unexpectedly")
	}
	return acc.build(), nil
}

// anthropicAccumulator assembles a CompletionResponse from stream events
type anthropicAccumulator struct {
	req      CompletionRequest
	content  strings.Builder
	calls    []FunctionCall
	current  *FunctionCall
	args     strings.Builder
	usage    TokenUsage
	complete bool
}

func (a *anthropicAccumulator) handle(data []byte) error {
	var ev anthropicStreamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("failed to parse event data: %w", err)
	}

	switch ev.Type {
	case "message_start":
		if ev.Message != nil {
			a.usage.InputTokens = ev.Message.Usage.InputTokens
			a.usage.OutputTokens = ev.Message.Usage.OutputTokens
		}
	case "content_block_start":
		if ev.ContentBlock != nil && ev.ContentBlock.Type == "tool_use" {
			a.current = &FunctionCall{ID: ev.ContentBlock.ID, Name: ev.ContentBlock.Name}
			a.args.Reset()
		}
	case "content_block_delta":
		if ev.Delta == nil {
			return nil
		}
		switch ev.Delta.Type {
		case "text_delta":
			a.content.WriteString(ev.Delta.Text)
			emit(a.req, ev.Delta.Text)
		case "input_json_delta":
			if a.current != nil {
				a.args.WriteString(ev.Delta.PartialJSON)
			}
		}
	case "content_block_stop":
		if a.current != nil {
			a.current.Arguments = a.args.String()
			a.calls = append(a.calls, *a.current)
			a.current = nil
		}
	case "message_delta":
		if ev.Usage != nil {
			a.usage.OutputTokens = ev.Usage.OutputTokens
		}
	case "message_stop":
		a.complete = true
	case "error":
		if ev.Error != nil {
			return fmt.Errorf("API error: %s", ev.Error.Message)
		}
		return fmt.Errorf("API error")
	}
	return nil
}

func (a *anthropicAccumulator) build() CompletionResponse {
	a.usage.TotalTokens = a.usage.InputTokens + a.usage.OutputTokens
	return CompletionResponse{
		Content:       a.content.String(),
		FunctionCalls: a.calls,
		Usage:         a.usage,
	}
}

// convertRequest maps the history onto alternating user/assistant turns.
// Notices become tool_use blocks and function results become tool_result
// blocks; consecutive blocks of the same role share one message.
func (c *AnthropicClient) convertRequest(req CompletionRequest) anthropicRequest {
	var messages []anthropicMessage

	push := func(role string, block anthropicContentBlock) {
		if n := len(messages); n > 0 && messages[n-1].Role == role {
			messages[n-1].Content = append(messages[n-1].Content, block)
			return
		}
		// the first turn must come from the user
		if len(messages) == 0 && role != "user" {
			return
		}
		messages = append(messages, anthropicMessage{Role: role, Content: []anthropicContentBlock{block}})
	}

	for _, msg := range req.Messages {
		switch msg.Kind {
		case llmtypes.KindUser:
			if msg.Content != "" {
				push("user", anthropicContentBlock{Type: "text", Text: msg.Content})
			}
		case llmtypes.KindAssistant:
			if msg.Content != "" {
				push("assistant", anthropicContentBlock{Type: "text", Text: msg.Content})
			}
		case llmtypes.KindNotice:
			if msg.Call == nil {
				continue
			}
			input := json.RawMessage(`{}`)
			if json.Valid([]byte(msg.Call.Arguments)) && strings.TrimSpace(msg.Call.Arguments) != "" {
				input = json.RawMessage(msg.Call.Arguments)
			}
			push("assistant", anthropicContentBlock{
				Type:  "tool_use",
				ID:    msg.Call.ID,
				Name:  msg.Call.Name,
				Input: input,
			})
		case llmtypes.KindFunction:
			push("user", anthropicContentBlock{
				Type:      "tool_result",
				ToolUseID: msg.CallID,
				Content:   msg.Content,
			})
		}
	}

	var tools []anthropicTool
	for _, fn := range req.Functions {
		tools = append(tools, anthropicTool{
			Name:        fn.Name,
			Description: fn.Description,
			InputSchema: fn.Parameters,
		})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return anthropicRequest{
		Model:       c.model,
		Messages:    messages,
		System:      req.SystemPrompt,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Tools:       tools,
		Stream:      true,
	}
}
