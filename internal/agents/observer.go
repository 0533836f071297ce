package agents

import "github.com/user/trialchat/internal/llmtypes"

// Observer receives progress of a turn as it happens
type Observer interface {
	// OnDelta receives streamed text fragments of the model's answer
	OnDelta(chunk string)

	// OnMessage is called for every message appended to the history
	OnMessage(msg llmtypes.Message)

	OnDispatchStart(call llmtypes.FunctionCall)
	OnDispatchEnd(call llmtypes.FunctionCall, err error)
}

// NopObserver ignores every event
type NopObserver struct{}

func (NopObserver) OnDelta(string)                             {}
func (NopObserver) OnMessage(llmtypes.Message)                 {}
func (NopObserver) OnDispatchStart(llmtypes.FunctionCall)      {}
func (NopObserver) OnDispatchEnd(llmtypes.FunctionCall, error) {}
