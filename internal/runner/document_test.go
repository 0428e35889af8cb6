package runner

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDocumentTrackerMatches(t *testing.T) {
	d := newDocumentTracker("/home/user/draft.md")

	tests := []struct {
		target string
		want   bool
	}{
		{"/home/user/draft.md", true},
		{"draft.md", true},
		{"./draft.md", true},
		{"/tmp/other.md", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := d.matches(tt.target); got != tt.want {
			t.Errorf("matches(%q) = %v, want %v", tt.target, got, tt.want)
		}
	}

	if newDocumentTracker("").matches("draft.md") {
		t.Error("disabled tracker must not match anything")
	}
}

func TestDocumentTrackerFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draft.md")
	d := newDocumentTracker(path)

	if _, ok := d.fromDisk(); ok {
		t.Error("missing file should not yield content")
	}

	if err := os.WriteFile(path, []byte("   \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := d.fromDisk(); ok {
		t.Error("blank file should not yield content")
	}

	if err := os.WriteFile(path, []byte("real content"), 0o644); err != nil {
		t.Fatal(err)
	}
	content, ok := d.fromDisk()
	if !ok || content != "real content" {
		t.Fatalf("fromDisk() = %q, %v", content, ok)
	}

	// Identical to what was already emitted: suppressed.
	d.record(content)
	if _, ok := d.fromDisk(); ok {
		t.Error("unchanged content should not re-emit")
	}

	if err := os.WriteFile(path, []byte("updated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if content, ok := d.fromDisk(); !ok || content != "updated" {
		t.Errorf("fromDisk() after change = %q, %v", content, ok)
	}
}

func TestDocumentTrackerFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draft.md")
	if err := os.WriteFile(path, []byte("final"), 0o644); err != nil {
		t.Fatal(err)
	}

	d := newDocumentTracker(path)
	if content, ok := d.fallback(); !ok || content != "final" {
		t.Errorf("fallback() = %q, %v, want final/true", content, ok)
	}

	// Once anything was emitted, the fallback stays quiet.
	d.record("something")
	if _, ok := d.fallback(); ok {
		t.Error("fallback after emission should be suppressed")
	}
}
