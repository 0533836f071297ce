package agents

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/user/trialchat/internal/llmtypes"
	"github.com/user/trialchat/internal/testutil"
)

type memorySink struct {
	sessions []string
	seqs     map[string][]int
	failNext bool
}

func newMemorySink() *memorySink {
	return &memorySink{seqs: map[string][]int{}}
}

func (m *memorySink) StartSession(ctx context.Context, id, provider, model string, started time.Time) error {
	m.sessions = append(m.sessions, id)
	return nil
}

func (m *memorySink) AppendMessage(ctx context.Context, sessionID string, seq int, msg llmtypes.Message) error {
	if m.failNext {
		m.failNext = false
		return fmt.Errorf("disk full")
	}
	m.seqs[sessionID] = append(m.seqs[sessionID], seq)
	return nil
}

func TestSession_GreetingAndSend(t *testing.T) {
	registry, _ := newTrialsRegistry(t)
	mock := testutil.NewMockLLMClient(testutil.TextResponse("first"), testutil.TextResponse("second"))
	o := NewOrchestrator(mock, registry, Options{}, nil, nil)
	s := NewSession(o, SessionOptions{Greeting: "Hello! Ask me about trials."}, nil)

	if len(s.History()) != 1 || s.History()[0].Kind != llmtypes.KindAssistant {
		t.Fatalf("Expected greeting as the only message, got %+v", s.History())
	}

	answer, err := s.Send(context.Background(), "one", nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if answer != "first" {
		t.Errorf("Expected 'first', got %q", answer)
	}
	snapshot := s.History()

	if _, err := s.Send(context.Background(), "two", nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(s.History()) != 5 {
		t.Errorf("Expected 5 messages, got %d", len(s.History()))
	}
	if len(snapshot) != 3 {
		t.Errorf("Expected earlier snapshot to keep 3 messages, got %d", len(snapshot))
	}
	// the greeting is replayed to the model
	if n := len(mock.RequestHistory[0].Messages); n != 2 {
		t.Errorf("Expected greeting and user message in first request, got %d", n)
	}
}

func TestSession_NoGreeting(t *testing.T) {
	o := NewOrchestrator(testutil.NewMockLLMClient(), nil, Options{}, nil, nil)
	s := NewSession(o, SessionOptions{}, nil)
	if len(s.History()) != 0 {
		t.Errorf("Expected empty history, got %d messages", len(s.History()))
	}
}

func TestSession_ErrorKeepsPartialHistory(t *testing.T) {
	registry, _ := newTrialsRegistry(t)
	mock := testutil.NewMockLLMClient()
	mock.ErrorToReturn = fmt.Errorf("connection refused")
	o := NewOrchestrator(mock, registry, Options{}, nil, nil)
	s := NewSession(o, SessionOptions{Greeting: "hi"}, nil)

	if _, err := s.Send(context.Background(), "hello", nil); err == nil {
		t.Fatal("Expected error, got nil")
	}
	if len(s.History()) != 2 {
		t.Errorf("Expected greeting and user message, got %d", len(s.History()))
	}
}

func TestSession_Reset(t *testing.T) {
	registry, _ := newTrialsRegistry(t)
	mock := testutil.NewMockLLMClient(testutil.TextResponse("ok"))
	o := NewOrchestrator(mock, registry, Options{}, nil, nil)
	s := NewSession(o, SessionOptions{Greeting: "hi"}, nil)
	firstID := s.ID()

	if _, err := s.Send(context.Background(), "hello", nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	s.Reset()

	if len(s.History()) != 1 || s.History()[0].Content != "hi" {
		t.Errorf("Expected only the greeting after reset, got %+v", s.History())
	}
	if s.ID() == firstID {
		t.Error("Expected a new session id after reset")
	}
}

func TestSession_ArchivesMessages(t *testing.T) {
	registry, _ := newTrialsRegistry(t)
	mock := testutil.NewMockLLMClient(
		testutil.CallResponse("c1", "study_search", `{"query_term":"x"}`),
		testutil.TextResponse("done"),
		testutil.TextResponse("again"),
	)
	o := NewOrchestrator(mock, registry, Options{}, nil, nil)
	sink := newMemorySink()
	s := NewSession(o, SessionOptions{Greeting: "hi", Sink: sink}, nil)

	if _, err := s.Send(context.Background(), "q1", nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := s.Send(context.Background(), "q2", nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(sink.sessions) != 1 || sink.sessions[0] != s.ID() {
		t.Fatalf("Expected one archived session %s, got %v", s.ID(), sink.sessions)
	}
	want := "[0 1 2 3 4 5 6]"
	if got := fmt.Sprint(sink.seqs[s.ID()]); got != want {
		t.Errorf("Expected seqs %s, got %s", want, got)
	}
}

func TestSession_ArchiveFailureDoesNotFailTurn(t *testing.T) {
	registry, _ := newTrialsRegistry(t)
	mock := testutil.NewMockLLMClient(testutil.TextResponse("a"), testutil.TextResponse("b"))
	o := NewOrchestrator(mock, registry, Options{}, nil, nil)
	sink := newMemorySink()
	sink.failNext = true
	s := NewSession(o, SessionOptions{Sink: sink}, nil)

	if _, err := s.Send(context.Background(), "q1", nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := s.Send(context.Background(), "q2", nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	// the failed write is retried with the next turn
	want := "[0 1 2 3]"
	if got := fmt.Sprint(sink.seqs[s.ID()]); got != want {
		t.Errorf("Expected seqs %s, got %s", want, got)
	}
}
