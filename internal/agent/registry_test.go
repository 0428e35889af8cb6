package agent

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryBuiltinsOnly(t *testing.T) {
	r, err := LoadRegistry("")
	if err != nil {
		t.Fatalf("LoadRegistry() error = %v", err)
	}
	for _, id := range []string{"assistant", "scout", "drafter"} {
		if _, err := r.Get(id); err != nil {
			t.Errorf("built-in agent %q missing: %v", id, err)
		}
	}
	if _, err := r.Get("nope"); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("Get(nope) error = %v, want ErrAgentNotFound", err)
	}
}

func TestLoadRegistryMissingFile(t *testing.T) {
	r, err := LoadRegistry(filepath.Join(t.TempDir(), "agents.yaml"))
	if err != nil {
		t.Fatalf("LoadRegistry() with missing file error = %v", err)
	}
	if _, err := r.Get("assistant"); err != nil {
		t.Error("built-ins should survive a missing agents file")
	}
}

func TestLoadRegistryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	yaml := `agents:
  - id: reviewer
    name: Reviewer
    system_prompt: You review things.
    allowed_tools: [Read, Grep]
    permission_mode: bypassPermissions
    max_turns: 10
  - id: assistant
    name: Custom Assistant
    system_prompt: Overridden.
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry() error = %v", err)
	}

	reviewer, err := r.Get("reviewer")
	if err != nil {
		t.Fatalf("Get(reviewer) error = %v", err)
	}
	if reviewer.Name != "Reviewer" || reviewer.MaxTurns != 10 {
		t.Errorf("reviewer = %+v", reviewer)
	}
	if len(reviewer.AllowedTools) != 2 || reviewer.AllowedTools[0] != "Read" {
		t.Errorf("reviewer.AllowedTools = %v", reviewer.AllowedTools)
	}

	// File definitions override built-ins with the same id.
	assistant, err := r.Get("assistant")
	if err != nil {
		t.Fatalf("Get(assistant) error = %v", err)
	}
	if assistant.SystemPrompt != "Overridden." {
		t.Errorf("assistant.SystemPrompt = %q, want file override", assistant.SystemPrompt)
	}
}

func TestLoadRegistryRejectsBadFile(t *testing.T) {
	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "agents.yaml")
		if err := os.WriteFile(path, []byte(": not yaml ["), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadRegistry(path); err == nil {
			t.Error("LoadRegistry() error = nil, want parse error")
		}
	})

	t.Run("missing id", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "agents.yaml")
		if err := os.WriteFile(path, []byte("agents:\n  - name: NoID\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadRegistry(path); err == nil {
			t.Error("LoadRegistry() error = nil, want missing-id error")
		}
	})
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry([]*Definition{{ID: "b"}, {ID: "a"}, {ID: "c"}})
	list := r.List()
	if len(list) != 3 {
		t.Fatalf("len = %d", len(list))
	}
	for i, want := range []string{"a", "b", "c"} {
		if list[i].ID != want {
			t.Errorf("List()[%d] = %s, want %s (sorted)", i, list[i].ID, want)
		}
	}
}
