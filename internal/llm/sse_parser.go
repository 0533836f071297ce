package llm

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// SSEEvent is a single Server-Sent Event
type SSEEvent struct {
	Event string // event type, empty when not specified
	Data  []byte // data lines joined with '\n'
	ID    string
}

// SSEParser reads Server-Sent Events from a stream
type SSEParser struct {
	reader *bufio.Reader
	data   bytes.Buffer
	event  string
	id     string
}

// NewSSEParser creates a new SSE parser
func NewSSEParser(r io.Reader) *SSEParser {
	return &SSEParser{reader: bufio.NewReader(r)}
}

// NextEvent returns the next complete event.
// It returns io.EOF at a clean end of stream and wraps io.ErrUnexpectedEOF
// when the stream stops in the middle of an event.
func (p *SSEParser) NextEvent() (SSEEvent, error) {
	for {
		line, err := p.reader.ReadBytes('\n')
		if err != nil {
			if p.pending() {
				return SSEEvent{}, fmt.Errorf("stream ended mid-event: %w", io.ErrUnexpectedEOF)
			}
			return SSEEvent{}, err
		}

		line = bytes.TrimRight(line, "\r\n")

		if len(line) == 0 {
			if !p.pending() {
				continue
			}
			event := SSEEvent{
				Event: p.event,
				Data:  bytes.Clone(p.data.Bytes()),
				ID:    p.id,
			}
			p.data.Reset()
			p.event, p.id = "", ""
			return event, nil
		}

		// comment line
		if line[0] == ':' {
			continue
		}

		field, value, found := bytes.Cut(line, []byte{':'})
		if !found {
			continue
		}
		value = bytes.TrimPrefix(value, []byte{' '})

		switch string(field) {
		case "event":
			p.event = string(value)
		case "data":
			if p.data.Len() > 0 {
				p.data.WriteByte('\n')
			}
			p.data.Write(value)
		case "id":
			p.id = string(value)
		}
	}
}

func (p *SSEParser) pending() bool {
	return p.data.Len() > 0 || p.event != ""
}
