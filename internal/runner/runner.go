// Package runner translates the agent loop's message stream into the
// client-facing event vocabulary.
//
// The runner is per-run, single-threaded state: sets of already-emitted
// message and tool-use ids, a set of already-emitted text lines, and a
// one-shot latch for the ask-user-question interaction. Nothing here is
// shared across runs; the whole runner is discarded with its sandbox.
package runner

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/lightenlabs/feather/internal/event"
	"github.com/lightenlabs/feather/internal/loop"
)

// dedupMinLineLength gates the cross-turn duplicate-line filter. Only
// lines longer than this (after trimming) are deduplicated; short lines
// like "---", blank separators, and common phrases repeat legitimately.
const dedupMinLineLength = 40

// publicErrorMessage is the stable client-facing error text. Diagnostics
// travel separately in the rawError field.
const publicErrorMessage = "An error occurred"

// phase is the runner's emission state. streaming is the normal state;
// suppressed is absorbing — entered when an ask_user_question event is
// emitted, never left. In the suppressed state the loop keeps draining
// internally (the tool-call protocol requires a synthetic completion) but
// nothing further reaches the client except the terminal sentinel.
type phase int

const (
	phaseStreaming phase = iota
	phaseSuppressed
)

// Config carries the per-agent knobs the runner needs beyond loop options.
type Config struct {
	// DraftDocument is the absolute path of the run's draft document.
	// Empty disables document tracking.
	DraftDocument string
}

// Runner drives one loop to completion and emits AgentEvents.
type Runner struct {
	out *event.SSEWriter
	cfg Config

	phase        phase
	seenMessages map[string]struct{}
	seenTools    map[string]struct{}
	sentLines    map[string]struct{}
	allRaw       []json.RawMessage
	doc          *documentTracker
}

// New creates a runner writing events to out.
func New(out *event.SSEWriter, cfg Config) *Runner {
	return &Runner{
		out:          out,
		cfg:          cfg,
		seenMessages: make(map[string]struct{}),
		seenTools:    make(map[string]struct{}),
		sentLines:    make(map[string]struct{}),
		doc:          newDocumentTracker(cfg.DraftDocument),
	}
}

// Run executes one query against the loop, translating every yielded
// message. The stream always terminates with the sentinel, success or
// failure; the returned error reports whether the run failed.
func (r *Runner) Run(ctx context.Context, lp loop.Loop, prompt string, opts loop.Options) error {
	stream, err := lp.Query(ctx, prompt, opts)
	if err != nil {
		r.fail(err)
		_ = r.out.Done()
		return err
	}

	changes, stopWatch := watchDocument(r.cfg.DraftDocument)
	defer stopWatch()

	msgs := stream.Messages()
	for msgs != nil {
		select {
		case msg, ok := <-msgs:
			if !ok {
				msgs = nil
				continue
			}
			r.handleMessage(msg)
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			r.handleDocumentChange()
		}
	}

	if err := stream.Err(); err != nil {
		r.fail(err)
		_ = r.out.Done()
		return err
	}

	if r.phase == phaseStreaming {
		if content, ok := r.doc.fallback(); ok {
			r.emitDocument(content)
		}
		_ = r.out.Send(&event.AgentEvent{
			Type:           event.TypeComplete,
			AllRawMessages: r.allRaw,
		})
	}
	_ = r.out.Done()
	return nil
}

// fail emits the single terminal error event, unless the run is already in
// the suppressed state (the invariant forbids any post-question event).
func (r *Runner) fail(err error) {
	if r.phase == phaseSuppressed {
		return
	}
	_ = r.out.Send(&event.AgentEvent{
		Type:     event.TypeError,
		Error:    publicErrorMessage,
		RawError: err.Error(),
	})
}

func (r *Runner) handleMessage(msg loop.Message) {
	r.allRaw = append(r.allRaw, msg.Raw)
	if r.phase == phaseSuppressed {
		return
	}

	if msg.Type == "system" && msg.Subtype == "init" && msg.SessionID != "" {
		_ = r.out.Send(&event.AgentEvent{Type: event.TypeSession, SessionID: msg.SessionID})
	}

	if msg.Type == "assistant" && msg.Assistant != nil && len(msg.Assistant.Content) > 0 {
		r.handleAssistant(msg)
		return
	}

	// The loop's terminal result message means the model is composing its
	// final answer; keep the client's spinner honest.
	if msg.Type == "result" {
		_ = r.out.Send(&event.AgentEvent{Type: event.TypeStatus, Status: "Thinking..."})
	}
	_ = r.out.Send(&event.AgentEvent{Type: event.TypeRaw, RawMessage: msg.Raw})
}

func (r *Runner) handleAssistant(msg loop.Message) {
	id := msg.Assistant.ID
	isRepeat := false
	if id != "" {
		if _, ok := r.seenMessages[id]; ok {
			isRepeat = true
		} else {
			r.seenMessages[id] = struct{}{}
		}
	}
	if isRepeat {
		// Already rendered once; forward for debugging only. Tool-use
		// blocks below still get their own id-based dedup check, since a
		// re-yielded message can carry a tool call we have not seen.
		_ = r.out.Send(&event.AgentEvent{Type: event.TypeRaw, RawMessage: msg.Raw})
	}

	for _, block := range msg.Assistant.Content {
		switch block.Type {
		case "text":
			if isRepeat {
				continue
			}
			r.emitText(block.Text, msg.Raw)

		case "tool_use":
			if block.ID != "" {
				if _, ok := r.seenTools[block.ID]; ok {
					continue
				}
				r.seenTools[block.ID] = struct{}{}
			}
			if done := r.emitToolUse(block, msg.Raw); done {
				return
			}
		}
	}
}

// emitToolUse translates one tool invocation. Returns true when the run
// entered the suppressed state and block processing must stop.
func (r *Runner) emitToolUse(block loop.ContentBlock, raw json.RawMessage) bool {
	switch block.Name {
	case toolAskUserQuestion:
		_ = r.out.Send(&event.AgentEvent{
			Type:       event.TypeAskUserQuestion,
			ToolUseID:  block.ID,
			Questions:  questionList(block.Input),
			RawMessage: raw,
		})
		// The loop auto-completes the tool call and the model then
		// composes a duplicate answer; the real interaction happens in
		// the client, whose reply starts a fresh run. Discard everything
		// from here on.
		r.phase = phaseSuppressed
		return true

	case toolTask:
		agentType := stringField(block.Input, "subagent_type")
		if agentType == "" {
			agentType = "unknown"
		}
		description := stringField(block.Input, "description")
		if description == "" {
			description = "Working..."
		}
		_ = r.out.Send(&event.AgentEvent{
			Type:        event.TypeSubagentStart,
			AgentType:   agentType,
			Description: description,
			RawMessage:  raw,
		})

	default:
		if block.Name == toolWrite && r.doc.matches(stringField(block.Input, "file_path")) {
			r.emitDocument(stringField(block.Input, "content"))
		}
		status := statusForTool(block.Name, block.Input)
		_ = r.out.Send(&event.AgentEvent{Type: event.TypeThinkingStep, Step: status})
		_ = r.out.Send(&event.AgentEvent{Type: event.TypeStatus, Status: status})
	}
	return false
}

// emitText forwards a text block with cross-turn repetition filtered out.
// After tool calls the model often replays content from earlier turns;
// substantial lines already sent are dropped, and the block is emitted
// only if meaningful content survives.
func (r *Runner) emitText(text string, raw json.RawMessage) {
	lines := strings.Split(text, "\n")
	novel := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if utf8.RuneCountInString(trimmed) > dedupMinLineLength {
			if _, sent := r.sentLines[trimmed]; sent {
				continue
			}
			r.sentLines[trimmed] = struct{}{}
		}
		novel = append(novel, line)
	}
	joined := strings.Join(novel, "\n")
	if strings.TrimSpace(joined) == "" {
		return
	}
	_ = r.out.Send(&event.AgentEvent{Type: event.TypeText, Text: joined, RawMessage: raw})
}

func (r *Runner) handleDocumentChange() {
	if r.phase == phaseSuppressed {
		return
	}
	if content, ok := r.doc.fromDisk(); ok {
		r.emitDocument(content)
	}
}

func (r *Runner) emitDocument(content string) {
	r.doc.record(content)
	_ = r.out.Send(&event.AgentEvent{Type: event.TypeDocumentUpdate, Content: content})
}

// questionList extracts the questions array from an AskUserQuestion input,
// preserving each question's original JSON shape.
func questionList(input json.RawMessage) []json.RawMessage {
	if len(input) == 0 {
		return []json.RawMessage{}
	}
	var fields struct {
		Questions []json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal(input, &fields); err != nil || fields.Questions == nil {
		return []json.RawMessage{}
	}
	return fields.Questions
}
