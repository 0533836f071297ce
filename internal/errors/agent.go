package errors

import (
	"fmt"
)

// LLMConnectionError is raised when a call to the LLM provider fails
type LLMConnectionError struct {
	*TrialChatError
}

// NewLLMConnectionError creates a new LLM connection error
func NewLLMConnectionError(provider string, cause error) *LLMConnectionError {
	return &LLMConnectionError{
		TrialChatError: &TrialChatError{
			Message: fmt.Sprintf("Failed to get a response from LLM provider: %s", provider),
			Cause:   cause,
			Context: &ErrorContext{
				Operation: "LLM API Call",
				Component: "LLM Client",
				Details: map[string]interface{}{
					"provider": provider,
				},
				Suggestions: []string{
					"Check your internet connection",
					"Check if the API key is valid",
					"Try again later",
				},
				Recoverable: true,
			},
			ExitCode: ExitLLMError,
		},
	}
}

// LLMResponseError is raised when the LLM response cannot be interpreted
type LLMResponseError struct {
	*TrialChatError
}

// NewLLMResponseError creates a new LLM response error
func NewLLMResponseError(provider, reason string) *LLMResponseError {
	return &LLMResponseError{
		TrialChatError: &TrialChatError{
			Message: fmt.Sprintf("Invalid response from LLM provider: %s", provider),
			Context: &ErrorContext{
				Operation: "Parsing LLM Response",
				Component: "LLM Client",
				Details: map[string]interface{}{
					"provider": provider,
					"reason":   reason,
				},
				Suggestions: []string{
					"Check if the model name is correct",
					"Try a different model",
				},
				Recoverable: true,
			},
			ExitCode: ExitLLMError,
		},
	}
}

// MaxRoundsError ends a turn whose model kept requesting function calls
type MaxRoundsError struct {
	*TrialChatError
	Rounds int
}

// MaxRoundsMessage is the terminal failure text of a runaway turn
const MaxRoundsMessage = "max function-call rounds exceeded"

// NewMaxRoundsError creates a new max rounds error
func NewMaxRoundsError(rounds int) *MaxRoundsError {
	return &MaxRoundsError{
		TrialChatError: &TrialChatError{
			Message: MaxRoundsMessage,
			Context: &ErrorContext{
				Operation: "Function dispatch",
				Component: "Orchestrator",
				Details: map[string]interface{}{
					"rounds": rounds,
				},
				Suggestions: []string{
					"Rephrase the question more narrowly",
					"Raise session.max_rounds",
				},
				Recoverable: true,
			},
			ExitCode: ExitAgentError,
		},
		Rounds: rounds,
	}
}

// FunctionDispatchError describes a failed function call. Its text becomes
// the function result handed back to the model.
type FunctionDispatchError struct {
	*TrialChatError
	Function string
}

// NewFunctionDispatchError creates a new function dispatch error
func NewFunctionDispatchError(function string, cause error) *FunctionDispatchError {
	return &FunctionDispatchError{
		TrialChatError: &TrialChatError{
			Message: "Function call failed with error",
			Cause:   cause,
			Context: &ErrorContext{
				Operation:   "Function Execution",
				Component:   function,
				Recoverable: true,
			},
			ExitCode: ExitAgentError,
		},
		Function: function,
	}
}

// UpstreamError is raised when the trials API cannot be reached or answers
// with a non-200 status outside of a function call.
type UpstreamError struct {
	*TrialChatError
	StatusCode int
}

// NewUpstreamError creates a new upstream error. statusCode is 0 for
// transport failures.
func NewUpstreamError(endpoint string, statusCode int, cause error) *UpstreamError {
	msg := fmt.Sprintf("Request to %s failed", endpoint)
	if statusCode != 0 {
		msg = fmt.Sprintf("Request to %s failed with status code %d", endpoint, statusCode)
	}
	return &UpstreamError{
		TrialChatError: &TrialChatError{
			Message: msg,
			Cause:   cause,
			Context: &ErrorContext{
				Operation: "Trials API Call",
				Component: "Trials Client",
				Details: map[string]interface{}{
					"endpoint":    endpoint,
					"status_code": statusCode,
				},
				Suggestions: []string{
					"Check trials.base_url",
					"Try again later",
				},
				Recoverable: true,
			},
			ExitCode: ExitUpstreamError,
		},
		StatusCode: statusCode,
	}
}
