package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/lightenlabs/feather/internal/agent"
	"github.com/lightenlabs/feather/internal/loop"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)

	def := &agent.Definition{
		ID:             "travel-planner",
		Name:           "Travel Planner",
		SystemPrompt:   "You plan trips.",
		AllowedTools:   []string{"WebSearch", "WebFetch"},
		PermissionMode: "bypassPermissions",
		SubAgents: map[string]loop.SubAgent{
			"scout": {Description: "finds flights", Prompt: "find flights", Tools: []string{"WebSearch"}},
		},
		DraftDocument: "/home/user/itinerary.md",
		MaxTurns:      20,
	}
	if err := s.Put(def); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := s.Get("travel-planner")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != def.Name || got.SystemPrompt != def.SystemPrompt || got.MaxTurns != 20 {
		t.Errorf("Get() = %+v", got)
	}
	if len(got.AllowedTools) != 2 || got.SubAgents["scout"].Prompt != "find flights" {
		t.Errorf("nested fields lost: %+v", got)
	}
	if got.DraftDocument != "/home/user/itinerary.md" {
		t.Errorf("DraftDocument = %q", got.DraftDocument)
	}
}

func TestStorePutOverwrites(t *testing.T) {
	s := newTestStore(t)

	if err := s.Put(&agent.Definition{ID: "a", Name: "First"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(&agent.Definition{ID: "a", Name: "Second"}); err != nil {
		t.Fatalf("Put() overwrite error = %v", err)
	}

	got, err := s.Get("a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Second" {
		t.Errorf("Name = %q, want overwrite to win", got.Name)
	}

	defs, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(defs) != 1 {
		t.Errorf("List() len = %d, want 1", len(defs))
	}
}

func TestStoreMissingID(t *testing.T) {
	s := newTestStore(t)
	if err := s.Put(&agent.Definition{Name: "anonymous"}); err == nil {
		t.Error("Put() without id should fail")
	}
}

func TestStoreGetNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestStoreDelete(t *testing.T) {
	s := newTestStore(t)
	if err := s.Put(&agent.Definition{ID: "x", Name: "X"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("x"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get("x"); !errors.Is(err, ErrNotFound) {
		t.Error("definition survived deletion")
	}
	if err := s.Delete("x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
