// Package loop abstracts the LLM tool-use loop the runner drives.
//
// The loop itself is an external collaborator: it decides, turn by turn,
// whether to emit text or invoke a tool, and keeps going until it reaches a
// natural stopping point. This package consumes it only through an async
// message sequence and an options bag of recognized keys. Nothing here
// interprets the model's reasoning.
package loop

import (
	"context"
	"encoding/json"
)

// SubAgent defines a nested loop the model can delegate to, with its own
// prompt and restricted tool set.
type SubAgent struct {
	Description string   `json:"description"`
	Prompt      string   `json:"prompt"`
	Tools       []string `json:"tools,omitempty"`
}

// Options is the bag of loop settings a run passes through unmodified.
type Options struct {
	AllowedTools   []string            `json:"allowedTools,omitempty"`
	PermissionMode string              `json:"permissionMode,omitempty"`
	SystemPrompt   string              `json:"systemPrompt,omitempty"`
	SubAgents      map[string]SubAgent `json:"agents,omitempty"`
	SettingSources []string            `json:"settingSources,omitempty"`
	WorkingDir     string              `json:"cwd,omitempty"`
	MaxTurns       int                 `json:"maxTurns,omitempty"`
}

// ContentBlock is one element of an assistant message's content array.
type ContentBlock struct {
	Type  string          `json:"type"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Text  string          `json:"text,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// AssistantMessage carries the identity and content blocks of one
// assistant turn. The loop may yield the same message id more than once
// (streaming partial then complete, or echoing it inside a result).
type AssistantMessage struct {
	ID      string         `json:"id"`
	Content []ContentBlock `json:"content"`
}

// Message is one record yielded by the loop. Raw always holds the full
// original JSON line so unmodeled shapes can be forwarded untouched.
type Message struct {
	Type      string
	Subtype   string
	SessionID string
	Assistant *AssistantMessage
	Raw       json.RawMessage
}

// Stream is a single-producer sequence of loop messages. Messages closes
// when the loop finishes; Err reports the terminal error, if any, once
// Messages has closed.
type Stream interface {
	Messages() <-chan Message
	Err() error
}

// Loop starts tool-use loops.
type Loop interface {
	Query(ctx context.Context, prompt string, opts Options) (Stream, error)
}
