package llmtypes

import "fmt"

// MessageKind tags the variants of Message
type MessageKind string

const (
	KindUser      MessageKind = "user"
	KindAssistant MessageKind = "assistant"
	KindNotice    MessageKind = "notice"   // system-visible description of a dispatched call
	KindFunction  MessageKind = "function" // function result
)

// Message is one entry of the conversation transcript. Messages are values
// and are never modified once appended to a History.
type Message struct {
	Kind    MessageKind
	Content string
	Name    string        // function name, for notice and function messages
	Call    *FunctionCall // originating call, for notice messages
	CallID  string        // id of the call answered, for function messages
}

// FunctionCall is a function-call request emitted by the model
type FunctionCall struct {
	ID        string
	Name      string
	Arguments string // serialized JSON object, possibly empty
}

// UserMessage creates a user message
func UserMessage(content string) Message {
	return Message{Kind: KindUser, Content: content}
}

// AssistantMessage creates an assistant text message
func AssistantMessage(content string) Message {
	return Message{Kind: KindAssistant, Content: content}
}

// NoticeMessage describes a dispatched call
func NoticeMessage(call FunctionCall) Message {
	args := call.Arguments
	if args == "" {
		args = "{}"
	}
	c := call
	return Message{
		Kind:    KindNotice,
		Content: fmt.Sprintf("Calling function %s with arguments: %s", call.Name, args),
		Name:    call.Name,
		Call:    &c,
	}
}

// FunctionResultMessage carries the serialized result of a call
func FunctionResultMessage(call FunctionCall, content string) Message {
	return Message{
		Kind:    KindFunction,
		Content: content,
		Name:    call.Name,
		CallID:  call.ID,
	}
}

// History is the ordered conversation transcript
type History []Message

// Append returns a new History with msgs added. The receiver's backing array
// is never written to, so earlier History values stay valid.
func (h History) Append(msgs ...Message) History {
	out := make(History, len(h), len(h)+len(msgs))
	copy(out, h)
	return append(out, msgs...)
}

// Last returns the final message, or false when the history is empty
func (h History) Last() (Message, bool) {
	if len(h) == 0 {
		return Message{}, false
	}
	return h[len(h)-1], true
}

// FunctionDefinition declares a callable function to the model
type FunctionDefinition struct {
	Name        string
	Description string
	Parameters  map[string]interface{} // JSON schema of an object
}

// CompletionRequest is a request for LLM completion
type CompletionRequest struct {
	SystemPrompt string
	Messages     History
	Functions    []FunctionDefinition
	MaxTokens    int
	Temperature  float64

	// OnDelta, when set, receives text fragments as they stream in
	OnDelta func(string)
}

// CompletionResponse is the completed response of one LLM call.
// A response with FunctionCalls is a function-call response; otherwise
// Content holds the final text.
type CompletionResponse struct {
	Content       string
	FunctionCalls []FunctionCall
	Usage         TokenUsage
}

// HasFunctionCalls reports whether the model asked for function calls
func (r CompletionResponse) HasFunctionCalls() bool {
	return len(r.FunctionCalls) > 0
}

// TokenUsage tracks token usage
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
