// Package agent defines the per-run configuration types: what a client
// sends, what an agent is, and the self-contained envelope a sandbox run
// boots from.
package agent

import "github.com/lightenlabs/feather/internal/loop"

// ConversationMessage is one turn of client-held history. The server never
// persists conversation state; history lives in the request payload and,
// transiently, in the augmented system prompt.
type ConversationMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// RunOptions is the immutable per-run option set handed to the loop,
// plus sandbox-only concerns that are stripped before the runner sees them.
type RunOptions struct {
	AllowedTools   []string                 `json:"allowedTools,omitempty"`
	PermissionMode string                   `json:"permissionMode,omitempty"`
	SystemPrompt   string                   `json:"systemPrompt,omitempty"`
	SubAgents      map[string]loop.SubAgent `json:"agents,omitempty"`
	SettingSources []string                 `json:"settingSources,omitempty"`
	WorkingDir     string                   `json:"cwd,omitempty"`
	MaxTurns       int                      `json:"maxTurns,omitempty"`

	// SandboxFiles maps sandbox-relative paths to content written into the
	// sandbox before launch (skill files, seed documents). Never forwarded
	// to the runner.
	SandboxFiles map[string]string `json:"sandboxFiles,omitempty"`

	// DraftDocument is the in-sandbox path of the collaborative document,
	// when the agent maintains one.
	DraftDocument string `json:"draftDocument,omitempty"`
}

// LoopOptions converts the run options into the loop's option bag.
func (o RunOptions) LoopOptions() loop.Options {
	return loop.Options{
		AllowedTools:   o.AllowedTools,
		PermissionMode: o.PermissionMode,
		SystemPrompt:   o.SystemPrompt,
		SubAgents:      o.SubAgents,
		SettingSources: o.SettingSources,
		WorkingDir:     o.WorkingDir,
		MaxTurns:       o.MaxTurns,
	}
}
