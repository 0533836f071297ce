package tui

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer guards a buffer written by the animation goroutine
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinner_Animates(t *testing.T) {
	out := &syncBuffer{}
	s := NewSpinner(out)
	s.interval = 5 * time.Millisecond

	s.Start("Running study_search")
	time.Sleep(40 * time.Millisecond)
	s.Stop(true)

	got := out.String()
	if strings.Count(got, "Running study_search") < 2 {
		t.Errorf("Expected several frames, got %q", got)
	}
	if !strings.Contains(got, SpinnerFrames[0]) || !strings.Contains(got, SpinnerFrames[1]) {
		t.Errorf("Expected braille frames, got %q", got)
	}
	if !strings.Contains(got, IconSuccess) {
		t.Errorf("Expected final success line, got %q", got)
	}
	if !strings.HasSuffix(got, "\n") {
		t.Error("Expected final line to end with a newline")
	}
}

func TestSpinner_StopWithoutStart(t *testing.T) {
	out := &syncBuffer{}
	s := NewSpinner(out)
	s.Stop(false)
	if out.String() != "" {
		t.Errorf("Expected no output, got %q", out.String())
	}
}

func TestSpinner_Restart(t *testing.T) {
	out := &syncBuffer{}
	s := NewSpinner(out)
	s.interval = time.Hour

	s.Start("first")
	s.Start("second")
	s.Stop(false)
	s.Start("third")
	s.Stop(true)

	got := out.String()
	if !strings.Contains(got, "second") || !strings.Contains(got, IconError) {
		t.Errorf("Expected relabelled failed line, got %q", got)
	}
	if !strings.Contains(got, "third") || !strings.Contains(got, IconSuccess) {
		t.Errorf("Expected second run to succeed, got %q", got)
	}
}
