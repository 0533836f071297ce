package llmtypes

import "testing"

func TestHistory_AppendDoesNotAlias(t *testing.T) {
	base := History{UserMessage("hi")}
	base = base.Append(AssistantMessage("hello"))

	a := base.Append(UserMessage("a"))
	b := base.Append(UserMessage("b"))

	if len(base) != 2 {
		t.Fatalf("Expected base to keep 2 messages, got %d", len(base))
	}
	if a[2].Content != "a" || b[2].Content != "b" {
		t.Errorf("Expected independent branches, got %q and %q", a[2].Content, b[2].Content)
	}
}

func TestNoticeMessage(t *testing.T) {
	call := FunctionCall{ID: "call_1", Name: "study_search", Arguments: `{"query_term":"asthma"}`}
	msg := NoticeMessage(call)

	if msg.Kind != KindNotice {
		t.Errorf("Expected notice kind, got %s", msg.Kind)
	}
	want := `Calling function study_search with arguments: {"query_term":"asthma"}`
	if msg.Content != want {
		t.Errorf("Expected %q, got %q", want, msg.Content)
	}
	if msg.Call == nil || msg.Call.ID != "call_1" {
		t.Errorf("Expected notice to carry the call, got %+v", msg.Call)
	}

	call.ID = "mutated"
	if msg.Call.ID != "call_1" {
		t.Error("Notice should hold its own copy of the call")
	}
}

func TestNoticeMessage_EmptyArguments(t *testing.T) {
	msg := NoticeMessage(FunctionCall{Name: "f"})
	if msg.Content != "Calling function f with arguments: {}" {
		t.Errorf("Unexpected content: %q", msg.Content)
	}
}

func TestFunctionResultMessage(t *testing.T) {
	msg := FunctionResultMessage(FunctionCall{ID: "c", Name: "save_csv"}, `"/tmp/out.csv"`)
	if msg.Kind != KindFunction || msg.Name != "save_csv" || msg.CallID != "c" {
		t.Errorf("Unexpected message: %+v", msg)
	}
}

func TestHistory_Last(t *testing.T) {
	var h History
	if _, ok := h.Last(); ok {
		t.Error("Expected no last message on empty history")
	}
	h = h.Append(UserMessage("x"))
	if last, ok := h.Last(); !ok || last.Content != "x" {
		t.Errorf("Unexpected last message: %+v", last)
	}
}
