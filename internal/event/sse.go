package event

import (
	"encoding/json"
	"fmt"
	"io"
)

// Sentinel is the literal record that terminates every event stream,
// success or failure. Clients stop reading when they see it.
const Sentinel = "data: [DONE]\n\n"

// Flusher is implemented by writers that can push buffered bytes to the
// consumer immediately (http.ResponseWriter wrappers, line-buffered pipes).
type Flusher interface {
	Flush()
}

// SSEWriter frames AgentEvents as server-sent events. Each event is written
// as a single "data: <json>\n\n" record and flushed immediately so the
// client sees it without batching delay.
type SSEWriter struct {
	w io.Writer
}

// NewSSEWriter wraps w. If w implements Flusher, every record is flushed
// as it is written.
func NewSSEWriter(w io.Writer) *SSEWriter {
	return &SSEWriter{w: w}
}

// Send writes one event record.
func (s *SSEWriter) Send(ev *AgentEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	s.flush()
	return nil
}

// Done writes the terminal sentinel.
func (s *SSEWriter) Done() error {
	if _, err := io.WriteString(s.w, Sentinel); err != nil {
		return fmt.Errorf("write sentinel: %w", err)
	}
	s.flush()
	return nil
}

func (s *SSEWriter) flush() {
	if f, ok := s.w.(Flusher); ok {
		f.Flush()
	}
}
