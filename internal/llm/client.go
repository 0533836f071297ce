package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/user/trialchat/internal/llmtypes"
	"github.com/user/trialchat/internal/retry"
)

type Message = llmtypes.Message
type History = llmtypes.History
type FunctionCall = llmtypes.FunctionCall
type FunctionDefinition = llmtypes.FunctionDefinition
type CompletionRequest = llmtypes.CompletionRequest
type CompletionResponse = llmtypes.CompletionResponse
type TokenUsage = llmtypes.TokenUsage

// LLMClient is the interface for LLM providers
type LLMClient interface {
	// GenerateCompletion sends the conversation and returns the completed
	// response. Text is streamed to req.OnDelta while it arrives.
	GenerateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// GetProvider returns the provider name
	GetProvider() string
}

// BaseLLMClient provides the shared HTTP plumbing of hand-rolled clients
type BaseLLMClient struct {
	retryClient *retry.Client
}

// NewBaseLLMClient creates a new base LLM client
func NewBaseLLMClient(retryClient *retry.Client) *BaseLLMClient {
	if retryClient == nil {
		retryClient = retry.NewClient(0, nil)
	}
	return &BaseLLMClient{retryClient: retryClient}
}

// doHTTPRequest marshals payload as JSON, sends it through the retry client
// and returns the response. The caller closes resp.Body.
func (b *BaseLLMClient) doHTTPRequest(ctx context.Context, method, url string, headers map[string]string, payload interface{}) (*http.Response, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := b.retryClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// emit forwards a streamed fragment when the caller asked for it
func emit(req CompletionRequest, fragment string) {
	if req.OnDelta != nil && fragment != "" {
		req.OnDelta(fragment)
	}
}

// parseArguments decodes serialized call arguments. Empty text is an empty object.
func parseArguments(raw string) (map[string]interface{}, error) {
	args := map[string]interface{}{}
	if len(bytes.TrimSpace([]byte(raw))) == 0 {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	return args, nil
}
