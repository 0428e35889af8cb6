package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lightenlabs/feather/internal/event"
	"github.com/lightenlabs/feather/internal/loop"
)

type fakeStream struct {
	ch  chan loop.Message
	err error
}

func (s *fakeStream) Messages() <-chan loop.Message { return s.ch }
func (s *fakeStream) Err() error                    { return s.err }

type fakeLoop struct {
	messages []loop.Message
	err      error
	queryErr error
}

func (l *fakeLoop) Query(ctx context.Context, prompt string, opts loop.Options) (loop.Stream, error) {
	if l.queryErr != nil {
		return nil, l.queryErr
	}
	s := &fakeStream{ch: make(chan loop.Message), err: l.err}
	go func() {
		for _, m := range l.messages {
			s.ch <- m
		}
		close(s.ch)
	}()
	return s, nil
}

func systemInit(sessionID string) loop.Message {
	return loop.Message{Type: "system", Subtype: "init", SessionID: sessionID, Raw: json.RawMessage(`{"type":"system","subtype":"init"}`)}
}

func resultMsg() loop.Message {
	return loop.Message{Type: "result", Raw: json.RawMessage(`{"type":"result"}`)}
}

func assistantMsg(id string, blocks ...loop.ContentBlock) loop.Message {
	return loop.Message{
		Type:      "assistant",
		Assistant: &loop.AssistantMessage{ID: id, Content: blocks},
		Raw:       json.RawMessage(`{"type":"assistant"}`),
	}
}

func textBlock(text string) loop.ContentBlock {
	return loop.ContentBlock{Type: "text", Text: text}
}

func toolBlock(id, name, input string) loop.ContentBlock {
	return loop.ContentBlock{Type: "tool_use", ID: id, Name: name, Input: json.RawMessage(input)}
}

// runLoop drives a runner over the fake loop and returns the decoded
// events plus the raw output.
func runLoop(t *testing.T, lp *fakeLoop, cfg Config) ([]event.AgentEvent, string, error) {
	t.Helper()
	var buf bytes.Buffer
	r := New(event.NewSSEWriter(&buf), cfg)
	err := r.Run(context.Background(), lp, "hello", loop.Options{})
	return decodeEvents(t, buf.String()), buf.String(), err
}

func decodeEvents(t *testing.T, out string) []event.AgentEvent {
	t.Helper()
	var events []event.AgentEvent
	for _, rec := range strings.Split(strings.TrimSuffix(out, "\n\n"), "\n\n") {
		data, ok := strings.CutPrefix(rec, "data: ")
		if !ok {
			t.Fatalf("malformed SSE record: %q", rec)
		}
		if data == "[DONE]" {
			continue
		}
		var ev event.AgentEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			t.Fatalf("decode event %q: %v", data, err)
		}
		events = append(events, ev)
	}
	return events
}

func eventsOfType(events []event.AgentEvent, typ event.Type) []event.AgentEvent {
	var out []event.AgentEvent
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func TestRunSessionEvent(t *testing.T) {
	events, out, err := runLoop(t, &fakeLoop{messages: []loop.Message{systemInit("sess-1")}}, Config{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	sessions := eventsOfType(events, event.TypeSession)
	if len(sessions) != 1 || sessions[0].SessionID != "sess-1" {
		t.Errorf("session events = %+v, want one with sessionId sess-1", sessions)
	}
	if !strings.HasSuffix(out, "data: [DONE]\n\n") {
		t.Error("stream does not end with sentinel")
	}
}

func TestRunTextThenComplete(t *testing.T) {
	events, _, err := runLoop(t, &fakeLoop{messages: []loop.Message{
		assistantMsg("msg-1", textBlock("Hello there")),
	}}, Config{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	texts := eventsOfType(events, event.TypeText)
	if len(texts) != 1 || texts[0].Text != "Hello there" {
		t.Errorf("text events = %+v, want one with 'Hello there'", texts)
	}
	completes := eventsOfType(events, event.TypeComplete)
	if len(completes) != 1 {
		t.Fatalf("complete events = %d, want 1", len(completes))
	}
	if len(completes[0].AllRawMessages) != 1 {
		t.Errorf("complete carries %d raw messages, want 1", len(completes[0].AllRawMessages))
	}
	if events[len(events)-1].Type != event.TypeComplete {
		t.Errorf("last event = %s, want complete", events[len(events)-1].Type)
	}
}

func TestRunAssistantIDDedup(t *testing.T) {
	events, _, err := runLoop(t, &fakeLoop{messages: []loop.Message{
		assistantMsg("msg-1", textBlock("First answer")),
		assistantMsg("msg-1", textBlock("First answer")),
	}}, Config{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if texts := eventsOfType(events, event.TypeText); len(texts) != 1 {
		t.Errorf("text events = %d, want 1 (repeat id suppressed)", len(texts))
	}
	// The repeat is still forwarded raw for debugging.
	if raws := eventsOfType(events, event.TypeRaw); len(raws) != 1 {
		t.Errorf("raw events = %d, want 1", len(raws))
	}
}

func TestRunRepeatMessageCarriesNewTool(t *testing.T) {
	events, _, err := runLoop(t, &fakeLoop{messages: []loop.Message{
		assistantMsg("msg-1", textBlock("Looking that up")),
		assistantMsg("msg-1",
			textBlock("Looking that up"),
			toolBlock("tool-1", "Read", `{"file_path":"/tmp/x"}`),
		),
	}}, Config{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	statuses := eventsOfType(events, event.TypeStatus)
	if len(statuses) != 1 || statuses[0].Status != "Reading file…" {
		t.Errorf("status events = %+v, want one 'Reading file…'", statuses)
	}
	if texts := eventsOfType(events, event.TypeText); len(texts) != 1 {
		t.Errorf("text events = %d, want 1", len(texts))
	}
}

func TestRunToolIDDedup(t *testing.T) {
	events, _, err := runLoop(t, &fakeLoop{messages: []loop.Message{
		assistantMsg("msg-1", toolBlock("tool-1", "Glob", `{}`)),
		assistantMsg("msg-2", toolBlock("tool-1", "Glob", `{}`)),
	}}, Config{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if statuses := eventsOfType(events, event.TypeStatus); len(statuses) != 1 {
		t.Errorf("status events = %d, want 1 (tool id deduplicated)", len(statuses))
	}
}

func TestRunLineDedup(t *testing.T) {
	long := strings.Repeat("x", 41)
	short := strings.Repeat("y", 40)

	events, _, err := runLoop(t, &fakeLoop{messages: []loop.Message{
		assistantMsg("msg-1", textBlock(long+"\n"+short)),
		assistantMsg("msg-2", textBlock(long+"\n"+short+"\nfresh content")),
		assistantMsg("msg-3", textBlock(long)),
	}}, Config{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	texts := eventsOfType(events, event.TypeText)
	if len(texts) != 2 {
		t.Fatalf("text events = %d, want 2 (third block dedups to nothing)", len(texts))
	}
	if texts[0].Text != long+"\n"+short {
		t.Errorf("first text = %q", texts[0].Text)
	}
	// Lines over the threshold are dropped on repeat; 40-rune lines repeat
	// freely.
	if want := short + "\nfresh content"; texts[1].Text != want {
		t.Errorf("second text = %q, want %q", texts[1].Text, want)
	}
}

func TestRunAskUserQuestionLatch(t *testing.T) {
	events, out, err := runLoop(t, &fakeLoop{messages: []loop.Message{
		assistantMsg("msg-1", toolBlock("tool-q", "AskUserQuestion",
			`{"questions":[{"question":"Which one?","options":["a","b"]}]}`)),
		assistantMsg("msg-2", textBlock("You picked a. Great choice with lots of words here.")),
		resultMsg(),
	}}, Config{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if last := events[len(events)-1]; last.Type != event.TypeAskUserQuestion {
		t.Fatalf("last event = %s, want ask_user_question (nothing after the latch)", last.Type)
	}
	q := events[len(events)-1]
	if q.ToolUseID != "tool-q" || len(q.Questions) != 1 {
		t.Errorf("question event = %+v, want toolUseId tool-q and 1 question", q)
	}
	if len(eventsOfType(events, event.TypeComplete)) != 0 {
		t.Error("complete emitted after the latch")
	}
	if !strings.HasSuffix(out, "data: [DONE]\n\n") {
		t.Error("stream does not end with sentinel")
	}
}

func TestRunWebSearchStatus(t *testing.T) {
	events, _, err := runLoop(t, &fakeLoop{messages: []loop.Message{
		assistantMsg("msg-1", toolBlock("tool-1", "WebSearch", `{"query":"golang generics"}`)),
	}}, Config{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	statuses := eventsOfType(events, event.TypeStatus)
	if len(statuses) != 1 || statuses[0].Status != `Searching "golang generics"` {
		t.Errorf("status = %+v, want Searching \"golang generics\"", statuses)
	}
	steps := eventsOfType(events, event.TypeThinkingStep)
	if len(steps) != 1 || steps[0].Step != statuses[0].Status {
		t.Errorf("thinking_step = %+v, want mirror of status", steps)
	}
}

func TestRunResultStatus(t *testing.T) {
	events, _, err := runLoop(t, &fakeLoop{messages: []loop.Message{resultMsg()}}, Config{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	statuses := eventsOfType(events, event.TypeStatus)
	if len(statuses) != 1 || statuses[0].Status != "Thinking..." {
		t.Errorf("status events = %+v, want one 'Thinking...'", statuses)
	}
	if raws := eventsOfType(events, event.TypeRaw); len(raws) != 1 {
		t.Errorf("raw events = %d, want 1", len(raws))
	}
}

func TestRunSubagentStart(t *testing.T) {
	tests := []struct {
		name            string
		input           string
		wantType        string
		wantDescription string
	}{
		{"full input", `{"subagent_type":"researcher","description":"Dig into topic"}`, "researcher", "Dig into topic"},
		{"empty input", `{}`, "unknown", "Working..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, _, err := runLoop(t, &fakeLoop{messages: []loop.Message{
				assistantMsg("msg-1", toolBlock("tool-1", "Task", tt.input)),
			}}, Config{})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			subs := eventsOfType(events, event.TypeSubagentStart)
			if len(subs) != 1 {
				t.Fatalf("subagent_start events = %d, want 1", len(subs))
			}
			if subs[0].AgentType != tt.wantType || subs[0].Description != tt.wantDescription {
				t.Errorf("subagent_start = %+v, want %s/%s", subs[0], tt.wantType, tt.wantDescription)
			}
		})
	}
}

func TestRunStreamError(t *testing.T) {
	events, out, err := runLoop(t, &fakeLoop{
		messages: []loop.Message{systemInit("sess-1")},
		err:      errors.New("loop exploded"),
	}, Config{})
	if err == nil {
		t.Fatal("Run() error = nil, want stream error")
	}

	errs := eventsOfType(events, event.TypeError)
	if len(errs) != 1 {
		t.Fatalf("error events = %d, want 1", len(errs))
	}
	if errs[0].Error != "An error occurred" || errs[0].RawError != "loop exploded" {
		t.Errorf("error event = %+v", errs[0])
	}
	if len(eventsOfType(events, event.TypeComplete)) != 0 {
		t.Error("complete emitted on failed run")
	}
	if !strings.HasSuffix(out, "data: [DONE]\n\n") {
		t.Error("failed stream does not end with sentinel")
	}
}

func TestRunQueryError(t *testing.T) {
	events, out, err := runLoop(t, &fakeLoop{queryErr: errors.New("no binary")}, Config{})
	if err == nil {
		t.Fatal("Run() error = nil, want query error")
	}
	if len(eventsOfType(events, event.TypeError)) != 1 {
		t.Error("want one error event")
	}
	if !strings.HasSuffix(out, "data: [DONE]\n\n") {
		t.Error("stream does not end with sentinel")
	}
}

func TestRunDocumentWrite(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "draft.md")
	events, _, err := runLoop(t, &fakeLoop{messages: []loop.Message{
		assistantMsg("msg-1", toolBlock("tool-1", "Write",
			`{"file_path":"`+doc+`","content":"# Draft\n\nBody."}`)),
	}}, Config{DraftDocument: doc})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	docs := eventsOfType(events, event.TypeDocumentUpdate)
	if len(docs) != 1 || docs[0].Content != "# Draft\n\nBody." {
		t.Errorf("document_update events = %+v", docs)
	}
	statuses := eventsOfType(events, event.TypeStatus)
	if len(statuses) != 1 || statuses[0].Status != "Writing file…" {
		t.Errorf("status = %+v, want 'Writing file…'", statuses)
	}
}

func TestRunDocumentFallback(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "draft.md")
	if err := os.WriteFile(doc, []byte("written behind our back"), 0o644); err != nil {
		t.Fatal(err)
	}

	events, _, err := runLoop(t, &fakeLoop{messages: []loop.Message{
		assistantMsg("msg-1", textBlock("done")),
	}}, Config{DraftDocument: doc})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	docs := eventsOfType(events, event.TypeDocumentUpdate)
	if len(docs) != 1 || docs[0].Content != "written behind our back" {
		t.Errorf("document_update = %+v, want fallback emission from disk", docs)
	}
	// Fallback precedes complete.
	if events[len(events)-1].Type != event.TypeComplete {
		t.Errorf("last event = %s, want complete", events[len(events)-1].Type)
	}
}
