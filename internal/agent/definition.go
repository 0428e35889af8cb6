package agent

import "github.com/lightenlabs/feather/internal/loop"

// Definition is the data-driven description of one agent: everything a
// route needs to turn an inbound message into a run. Routes are generic;
// only the definition differs between agents.
type Definition struct {
	ID             string                   `json:"id" yaml:"id"`
	Name           string                   `json:"name" yaml:"name"`
	SystemPrompt   string                   `json:"systemPrompt" yaml:"system_prompt"`
	AllowedTools   []string                 `json:"allowedTools" yaml:"allowed_tools"`
	PermissionMode string                   `json:"permissionMode" yaml:"permission_mode"`
	SubAgents      map[string]loop.SubAgent `json:"agents,omitempty" yaml:"agents,omitempty"`
	SandboxFiles   map[string]string        `json:"sandboxFiles,omitempty" yaml:"sandbox_files,omitempty"`
	DraftDocument  string                   `json:"draftDocument,omitempty" yaml:"draft_document,omitempty"`
	MaxTurns       int                      `json:"maxTurns,omitempty" yaml:"max_turns,omitempty"`
}

// RunOptions expands the definition into the per-run option template.
func (d *Definition) RunOptions() RunOptions {
	return RunOptions{
		AllowedTools:   d.AllowedTools,
		PermissionMode: d.PermissionMode,
		SystemPrompt:   d.SystemPrompt,
		SubAgents:      d.SubAgents,
		SandboxFiles:   d.SandboxFiles,
		DraftDocument:  d.DraftDocument,
		MaxTurns:       d.MaxTurns,
	}
}
