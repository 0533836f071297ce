package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/user/trialchat/internal/config"
	"github.com/user/trialchat/internal/llmtypes"
	"github.com/user/trialchat/internal/retry"
)

const openAIDefaultBaseURL = "https://api.openai.com/v1"

// OpenAIClient implements LLMClient with the official OpenAI SDK.
// Any OpenAI-compatible endpoint works through llm.base_url.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI client. SDK retries are disabled and
// only the timeout of retryClient is shared.
func NewOpenAIClient(cfg config.LLMConfig, retryClient *retry.Client) *OpenAIClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}

	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if retryClient != nil {
		opts = append(opts, option.WithHTTPClient(retryClient.HTTPClient()))
	}

	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
}

// GenerateCompletion streams a chat completion and returns the accumulated result
func (c *OpenAIClient) GenerateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	params := openai.ChatCompletionNewParams{
		Messages: convertOpenAIMessages(req),
		Model:    openai.ChatModel(c.model),
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}
	if len(req.Functions) > 0 {
		params.Tools = convertOpenAITools(req.Functions)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	defer func() { _ = stream.Close() }()

	acc := openai.ChatCompletionAccumulator{}
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if len(chunk.Choices) > 0 {
			emit(req, chunk.Choices[0].Delta.Content)
		}
	}
	if err := stream.Err(); err != nil {
		return CompletionResponse{}, fmt.Errorf("OpenAI streaming error: %w", err)
	}
	if len(acc.Choices) == 0 {
		return CompletionResponse{}, fmt.Errorf("OpenAI returned no choices")
	}

	msg := acc.Choices[0].Message
	resp := CompletionResponse{
		Content: msg.Content,
		Usage: TokenUsage{
			InputTokens:  int(acc.Usage.PromptTokens),
			OutputTokens: int(acc.Usage.CompletionTokens),
			TotalTokens:  int(acc.Usage.TotalTokens),
		},
	}
	for _, tc := range msg.ToolCalls {
		resp.FunctionCalls = append(resp.FunctionCalls, FunctionCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return resp, nil
}

// GetProvider returns the provider name
func (c *OpenAIClient) GetProvider() string {
	return "openai"
}

// convertOpenAIMessages maps notices to assistant tool calls and function
// results to tool messages paired by call id
func convertOpenAIMessages(req CompletionRequest) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		out = append(out, openai.SystemMessage(req.SystemPrompt))
	}

	for i, msg := range req.Messages {
		switch msg.Kind {
		case llmtypes.KindUser:
			out = append(out, openai.UserMessage(msg.Content))
		case llmtypes.KindAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		case llmtypes.KindNotice:
			if msg.Call == nil {
				continue
			}
			args := msg.Call.Arguments
			if strings.TrimSpace(args) == "" {
				args = "{}"
			}
			toolCall := openai.ChatCompletionMessageToolCallUnionParam{
				OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
					ID: msg.Call.ID,
					Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
						Name:      msg.Call.Name,
						Arguments: args,
					},
				},
			}
			// text the model sent with its calls shares their message
			if i > 0 && req.Messages[i-1].Kind == llmtypes.KindAssistant {
				out[len(out)-1].OfAssistant.ToolCalls = []openai.ChatCompletionMessageToolCallUnionParam{toolCall}
				continue
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					ToolCalls: []openai.ChatCompletionMessageToolCallUnionParam{toolCall},
				},
			})
		case llmtypes.KindFunction:
			out = append(out, openai.ToolMessage(msg.Content, msg.CallID))
		}
	}
	return out
}

func convertOpenAITools(functions []FunctionDefinition) []openai.ChatCompletionToolUnionParam {
	tools := make([]openai.ChatCompletionToolUnionParam, len(functions))
	for i, fn := range functions {
		tools[i] = openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        fn.Name,
			Description: openai.String(fn.Description),
			Parameters:  openai.FunctionParameters(fn.Parameters),
		})
	}
	return tools
}
