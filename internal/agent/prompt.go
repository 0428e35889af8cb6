package agent

import (
	"strings"
)

// DefaultHistoryBudget bounds the rendered transcript, in characters.
// Sandboxes are stateless, so continuity comes from re-sending history
// every call; without a bound a long conversation would eventually blow
// the model's context window. Oldest messages are dropped whole.
const DefaultHistoryBudget = 200_000

// historyInstructions is appended with the transcript so the model treats
// the run as a continuation rather than a fresh conversation.
const historyInstructions = `## CRITICAL: Conversation History
You are CONTINUING an existing conversation. The transcript below shows what has already been said. You MUST:
- Continue naturally from exactly where the conversation left off
- Do NOT repeat any content you already said
- Do NOT re-run your initial workflow (no re-researching, no re-introducing yourself)
- Do NOT use tools unless the user's new message specifically requires new information
- Respond DIRECTLY to the user's latest message in context of the conversation`

// BuildPrompt merges the newest message with prior history. With no
// history, both the message and the system prompt pass through untouched.
// Otherwise the history is rendered as a role-labeled transcript and
// appended to the system prompt inside a delimited block; the outgoing
// prompt is always just the newest message. Callers bound the history
// first; see boundHistory.
func BuildPrompt(message string, history []ConversationMessage, systemPrompt string) (prompt, augmented string) {
	if len(history) == 0 {
		return message, systemPrompt
	}

	parts := make([]string, 0, len(history))
	for _, m := range history {
		label := "Assistant"
		if m.Role == "user" {
			label = "User"
		}
		parts = append(parts, label+": "+m.Content)
	}
	transcript := strings.Join(parts, "\n\n")

	augmented = systemPrompt + "\n\n" + historyInstructions + "\n\n<conversation_history>\n" + transcript + "\n</conversation_history>"
	return message, augmented
}

// AppendDocument injects the current state of the collaborative document,
// which the user may have edited directly between turns.
func AppendDocument(systemPrompt, document string) string {
	if strings.TrimSpace(document) == "" {
		return systemPrompt
	}
	return systemPrompt + "\n\n<current_document>\n" + document + "\n</current_document>"
}

// boundHistory drops oldest messages until the total content size fits the
// budget. Messages are never split.
func boundHistory(history []ConversationMessage, budget int) []ConversationMessage {
	total := 0
	for _, m := range history {
		total += len(m.Content)
	}
	start := 0
	for start < len(history) && total > budget {
		total -= len(history[start].Content)
		start++
	}
	return history[start:]
}
