package agent

import (
	"strings"
	"testing"
)

func TestBuildPromptNoHistory(t *testing.T) {
	prompt, augmented := BuildPrompt("hi there", nil, "You are helpful.")
	if prompt != "hi there" {
		t.Errorf("prompt = %q, want passthrough", prompt)
	}
	if augmented != "You are helpful." {
		t.Errorf("augmented = %q, want untouched system prompt", augmented)
	}
}

func TestBuildPromptWithHistory(t *testing.T) {
	history := []ConversationMessage{
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "first answer"},
		{Role: "user", Content: "second question"},
	}
	prompt, augmented := BuildPrompt("third question", history, "Base prompt.")

	if prompt != "third question" {
		t.Errorf("prompt = %q, want only the newest message", prompt)
	}
	if !strings.HasPrefix(augmented, "Base prompt.") {
		t.Error("augmented prompt must start with the system prompt")
	}
	if !strings.Contains(augmented, "<conversation_history>") || !strings.Contains(augmented, "</conversation_history>") {
		t.Error("augmented prompt missing history delimiters")
	}

	wantTranscript := "User: first question\n\nAssistant: first answer\n\nUser: second question"
	if !strings.Contains(augmented, wantTranscript) {
		t.Errorf("augmented prompt missing ordered transcript:\n%s", augmented)
	}
	if !strings.Contains(augmented, "CONTINUING an existing conversation") {
		t.Error("augmented prompt missing continuation instructions")
	}
}

func TestBoundHistory(t *testing.T) {
	history := []ConversationMessage{
		{Role: "user", Content: strings.Repeat("a", 100)},
		{Role: "assistant", Content: strings.Repeat("b", 100)},
		{Role: "user", Content: strings.Repeat("c", 100)},
	}

	t.Run("fits budget", func(t *testing.T) {
		got := boundHistory(history, 300)
		if len(got) != 3 {
			t.Errorf("len = %d, want all 3", len(got))
		}
	})

	t.Run("drops oldest whole messages", func(t *testing.T) {
		got := boundHistory(history, 250)
		if len(got) != 2 {
			t.Fatalf("len = %d, want 2", len(got))
		}
		if got[0].Content[0] != 'b' {
			t.Error("oldest message should be dropped first")
		}
	})

	t.Run("budget smaller than any message", func(t *testing.T) {
		got := boundHistory(history, 50)
		if len(got) != 0 {
			t.Errorf("len = %d, want 0", len(got))
		}
	})
}

func TestAppendDocument(t *testing.T) {
	if got := AppendDocument("base", ""); got != "base" {
		t.Errorf("empty document should leave prompt alone, got %q", got)
	}
	if got := AppendDocument("base", "  \n"); got != "base" {
		t.Errorf("blank document should leave prompt alone, got %q", got)
	}

	got := AppendDocument("base", "# Title")
	if !strings.Contains(got, "<current_document>\n# Title\n</current_document>") {
		t.Errorf("document not injected: %q", got)
	}
}
