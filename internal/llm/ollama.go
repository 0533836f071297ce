package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/ollama/ollama/api"

	"github.com/user/trialchat/internal/config"
	"github.com/user/trialchat/internal/llmtypes"
	"github.com/user/trialchat/internal/retry"
)

const ollamaDefaultBaseURL = "http://localhost:11434"

// OllamaClient implements LLMClient for a local Ollama server
type OllamaClient struct {
	client *api.Client
	model  string
}

// NewOllamaClient creates a new Ollama client
func NewOllamaClient(cfg config.LLMConfig, retryClient *retry.Client) (*OllamaClient, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = ollamaDefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}
	if retryClient == nil {
		retryClient = retry.NewClient(cfg.GetTimeout(), nil)
	}

	return &OllamaClient{
		client: api.NewClient(parsed, retryClient.HTTPClient()),
		model:  cfg.Model,
	}, nil
}

// GenerateCompletion streams a chat response from Ollama. Ollama does not
// issue call ids, so each call gets a fresh uuid.
func (c *OllamaClient) GenerateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	tools, err := convertOllamaTools(req.Functions)
	if err != nil {
		return CompletionResponse{}, err
	}

	stream := true
	chatReq := &api.ChatRequest{
		Model:    c.model,
		Messages: convertOllamaMessages(req),
		Tools:    tools,
		Stream:   &stream,
		Options:  map[string]interface{}{},
	}
	if req.Temperature > 0 {
		chatReq.Options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		chatReq.Options["num_predict"] = req.MaxTokens
	}

	var resp CompletionResponse
	var content strings.Builder

	err = c.client.Chat(ctx, chatReq, func(chunk api.ChatResponse) error {
		if chunk.Message.Content != "" {
			content.WriteString(chunk.Message.Content)
			emit(req, chunk.Message.Content)
		}
		for _, tc := range chunk.Message.ToolCalls {
			args, err := json.Marshal(tc.Function.Arguments)
			if err != nil {
				return fmt.Errorf("failed to encode tool arguments: %w", err)
			}
			resp.FunctionCalls = append(resp.FunctionCalls, FunctionCall{
				ID:        uuid.NewString(),
				Name:      tc.Function.Name,
				Arguments: string(args),
			})
		}
		if chunk.Done {
			resp.Usage = TokenUsage{
				InputTokens:  chunk.PromptEvalCount,
				OutputTokens: chunk.EvalCount,
				TotalTokens:  chunk.PromptEvalCount + chunk.EvalCount,
			}
		}
		return nil
	})
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("Ollama chat error: %w", err)
	}

	resp.Content = content.String()
	return resp, nil
}

// GetProvider returns the provider name
func (c *OllamaClient) GetProvider() string {
	return "ollama"
}

func convertOllamaMessages(req CompletionRequest) []api.Message {
	out := make([]api.Message, 0, len(req.Messages)+1)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		out = append(out, api.Message{Role: "system", Content: req.SystemPrompt})
	}

	for i, msg := range req.Messages {
		switch msg.Kind {
		case llmtypes.KindUser:
			out = append(out, api.Message{Role: "user", Content: msg.Content})
		case llmtypes.KindAssistant:
			out = append(out, api.Message{Role: "assistant", Content: msg.Content})
		case llmtypes.KindNotice:
			if msg.Call == nil {
				continue
			}
			args, err := parseArguments(msg.Call.Arguments)
			if err != nil {
				args = map[string]interface{}{}
			}
			toolCall := api.ToolCall{
				Function: api.ToolCallFunction{
					Name:      msg.Call.Name,
					Arguments: args,
				},
			}
			// text the model sent with its calls shares their message
			if i > 0 && req.Messages[i-1].Kind == llmtypes.KindAssistant {
				out[len(out)-1].ToolCalls = []api.ToolCall{toolCall}
				continue
			}
			out = append(out, api.Message{
				Role:      "assistant",
				ToolCalls: []api.ToolCall{toolCall},
			})
		case llmtypes.KindFunction:
			out = append(out, api.Message{Role: "tool", Content: msg.Content, ToolName: msg.Name})
		}
	}
	return out
}

// convertOllamaTools goes through JSON since the schemas are plain maps and
// api.ToolFunctionParameters carries matching tags
func convertOllamaTools(functions []FunctionDefinition) ([]api.Tool, error) {
	if len(functions) == 0 {
		return nil, nil
	}

	tools := make([]api.Tool, 0, len(functions))
	for _, fn := range functions {
		raw, err := json.Marshal(fn.Parameters)
		if err != nil {
			return nil, fmt.Errorf("failed to encode parameters of %s: %w", fn.Name, err)
		}
		var params api.ToolFunctionParameters
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("failed to convert parameters of %s: %w", fn.Name, err)
		}
		tools = append(tools, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  params,
			},
		})
	}
	return tools, nil
}
