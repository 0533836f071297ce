package tui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Spinner animates a single status line while a function call runs
type Spinner struct {
	mu       sync.Mutex
	writer   io.Writer
	label    string
	frame    int
	interval time.Duration
	ticker   *time.Ticker
	done     chan struct{}
	stopped  chan struct{}
	running  bool
	start    time.Time
}

// NewSpinner creates a spinner that draws on w
func NewSpinner(w io.Writer) *Spinner {
	return &Spinner{writer: w, interval: 100 * time.Millisecond}
}

// Start draws the first frame and animates until Stop. Starting a running
// spinner only changes its label.
func (s *Spinner) Start(label string) {
	s.mu.Lock()
	s.label = label
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.frame = 0
	s.start = time.Now()
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})
	s.render()
	s.ticker = time.NewTicker(s.interval)
	s.mu.Unlock()

	go s.animate()
}

func (s *Spinner) animate() {
	defer close(s.stopped)
	for {
		select {
		case <-s.done:
			return
		case <-s.ticker.C:
			s.mu.Lock()
			s.frame = (s.frame + 1) % len(SpinnerFrames)
			s.render()
			s.mu.Unlock()
		}
	}
}

// render redraws the current line; callers hold mu
func (s *Spinner) render() {
	elapsed := time.Since(s.start).Round(time.Second)
	_, _ = fmt.Fprintf(s.writer, "\r\033[2K  %s %s %s",
		StyleSpinner.Render(SpinnerFrames[s.frame]),
		s.label,
		StyleMuted.Render(elapsed.String()))
}

// Stop ends the animation and replaces the line with a final status
func (s *Spinner) Stop(ok bool) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.ticker.Stop()
	close(s.done)
	s.mu.Unlock()

	<-s.stopped

	s.mu.Lock()
	defer s.mu.Unlock()
	icon := StyleSuccess.Render(IconSuccess)
	if !ok {
		icon = StyleError.Render(IconError)
	}
	duration := time.Since(s.start).Round(time.Millisecond)
	_, _ = fmt.Fprintf(s.writer, "\r\033[2K  %s %s %s\n", icon, s.label, StyleMuted.Render(duration.String()))
}

// Running reports whether the spinner is animating
func (s *Spinner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
