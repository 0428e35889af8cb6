package runner

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Tool names the loop is known to invoke. Anything else gets the generic
// "Using <name>…" caption.
const (
	toolSkill           = "Skill"
	toolWebSearch       = "WebSearch"
	toolWebFetch        = "WebFetch"
	toolBash            = "Bash"
	toolRead            = "Read"
	toolGlob            = "Glob"
	toolGrep            = "Grep"
	toolWrite           = "Write"
	toolTask            = "Task"
	toolAskUserQuestion = "AskUserQuestion"
)

// statusForTool maps a tool invocation to the short progress caption shown
// to the user while the tool runs.
func statusForTool(name string, input json.RawMessage) string {
	switch name {
	case toolSkill:
		return "Loading guidelines…"
	case toolWebSearch:
		if q := stringField(input, "query"); q != "" {
			return fmt.Sprintf("Searching %q", q)
		}
		return "Searching the web…"
	case toolWebFetch:
		if raw := stringField(input, "url"); raw != "" {
			if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
				return "Reading " + strings.TrimPrefix(u.Hostname(), "www.")
			}
		}
		return "Reading page…"
	case toolBash:
		if d := stringField(input, "description"); d != "" {
			return d
		}
		return "Running command…"
	case toolRead:
		return "Reading file…"
	case toolGlob:
		return "Finding files…"
	case toolGrep:
		return "Searching code…"
	case toolWrite:
		return "Writing file…"
	default:
		return fmt.Sprintf("Using %s…", name)
	}
}

// stringField extracts a top-level string field from a tool input payload.
// Missing fields, non-string values, and malformed payloads all yield "".
func stringField(input json.RawMessage, key string) string {
	if len(input) == 0 {
		return ""
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(input, &fields); err != nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(fields[key], &s); err != nil {
		return ""
	}
	return s
}
