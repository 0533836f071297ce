package testutil

import (
	"context"
	"fmt"

	"github.com/user/trialchat/internal/llmtypes"
)

// MockLLMClient returns scripted responses in order and records every request.
// Content of each scripted response is streamed to OnDelta as one fragment.
type MockLLMClient struct {
	Responses      []llmtypes.CompletionResponse
	CallCount      int
	RequestHistory []llmtypes.CompletionRequest
	ErrorToReturn  error
	RepeatLast     bool // keep answering with the final response once exhausted
	Provider       string
}

// NewMockLLMClient creates a mock with predefined responses
func NewMockLLMClient(responses ...llmtypes.CompletionResponse) *MockLLMClient {
	return &MockLLMClient{Responses: responses, Provider: "mock"}
}

// TextResponse builds a final text response
func TextResponse(content string) llmtypes.CompletionResponse {
	return llmtypes.CompletionResponse{Content: content}
}

// CallResponse builds a function-call response with one call
func CallResponse(id, name, args string) llmtypes.CompletionResponse {
	return llmtypes.CompletionResponse{
		FunctionCalls: []llmtypes.FunctionCall{{ID: id, Name: name, Arguments: args}},
	}
}

// GenerateCompletion implements llm.LLMClient
func (m *MockLLMClient) GenerateCompletion(ctx context.Context, req llmtypes.CompletionRequest) (llmtypes.CompletionResponse, error) {
	// snapshot the history so later appends by the caller do not show up here
	req.Messages = append(llmtypes.History(nil), req.Messages...)
	m.RequestHistory = append(m.RequestHistory, req)
	m.CallCount++

	if err := ctx.Err(); err != nil {
		return llmtypes.CompletionResponse{}, err
	}
	if m.ErrorToReturn != nil {
		return llmtypes.CompletionResponse{}, m.ErrorToReturn
	}

	idx := m.CallCount - 1
	if idx >= len(m.Responses) {
		if !m.RepeatLast || len(m.Responses) == 0 {
			return llmtypes.CompletionResponse{}, fmt.Errorf("no response scripted for call %d", m.CallCount)
		}
		idx = len(m.Responses) - 1
	}

	resp := m.Responses[idx]
	if req.OnDelta != nil && resp.Content != "" {
		req.OnDelta(resp.Content)
	}
	return resp, nil
}

// GetProvider implements llm.LLMClient
func (m *MockLLMClient) GetProvider() string {
	return m.Provider
}

// LastRequest returns the most recent request
func (m *MockLLMClient) LastRequest() llmtypes.CompletionRequest {
	if len(m.RequestHistory) == 0 {
		return llmtypes.CompletionRequest{}
	}
	return m.RequestHistory[len(m.RequestHistory)-1]
}
