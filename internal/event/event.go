// Package event defines the wire vocabulary for agent runs.
//
// Every message the agent loop yields is translated into one or more
// AgentEvents before it reaches the client. The set of event types is
// deliberately small: the frontend renders these and nothing else, and the
// raw loop message is carried along as an escape hatch for shapes the
// vocabulary does not model.
package event

import "encoding/json"

// Type is the discriminator carried in every event's "type" field.
type Type string

const (
	TypeInput           Type = "input"
	TypeSession         Type = "session"
	TypeText            Type = "text"
	TypeThinkingStep    Type = "thinking_step"
	TypeStatus          Type = "status"
	TypeAskUserQuestion Type = "ask_user_question"
	TypeSubagentStart   Type = "subagent_start"
	TypeDocumentUpdate  Type = "document_update"
	TypeRaw             Type = "raw"
	TypeComplete        Type = "complete"
	TypeError           Type = "error"
)

// AgentEvent is the single wire record emitted on the run's output stream
// and re-emitted to the client as a server-sent event. Exactly one field
// group is populated per Type; the rest stay at their zero value and are
// omitted from the JSON.
type AgentEvent struct {
	Type Type `json:"type"`

	// session
	SessionID string `json:"sessionId,omitempty"`

	// text
	Text string `json:"text,omitempty"`

	// thinking_step / status
	Step   string `json:"step,omitempty"`
	Status string `json:"status,omitempty"`

	// ask_user_question
	ToolUseID string            `json:"toolUseId,omitempty"`
	Questions []json.RawMessage `json:"questions,omitempty"`

	// subagent_start
	AgentType   string `json:"agentType,omitempty"`
	Description string `json:"description,omitempty"`

	// document_update
	Content string `json:"content,omitempty"`

	// input (redacted echo of the run request)
	RawInput json.RawMessage `json:"rawInput,omitempty"`

	// raw / text / ask_user_question / subagent_start carry the loop
	// message they were derived from
	RawMessage json.RawMessage `json:"rawMessage,omitempty"`

	// complete
	AllRawMessages []json.RawMessage `json:"allRawMessages,omitempty"`

	// error
	Error    string `json:"error,omitempty"`
	RawError string `json:"rawError,omitempty"`
}
