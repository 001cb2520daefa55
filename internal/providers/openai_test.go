package providers

import "testing"

func TestToOpenAIMessages(t *testing.T) {
	// Shape of a repair conversation: the model's prior output must go
	// back as an assistant turn, not as user text.
	msgs := []Message{
		{Role: "system", Content: "You are a clinical extraction assistant."},
		{Role: "user", Content: "Extract the diagnostic report."},
		{Role: "assistant", Content: `{"summary": "incomplete`},
		{Role: "user", Content: "The previous response was not valid JSON. Return only the corrected document."},
	}

	out := toOpenAIMessages(msgs)
	if len(out) != len(msgs) {
		t.Fatalf("toOpenAIMessages() returned %d messages, want %d", len(out), len(msgs))
	}

	wantRoles := []string{"system", "user", "assistant", "user"}
	for i, u := range out {
		var got string
		switch {
		case u.OfSystem != nil:
			got = "system"
		case u.OfUser != nil:
			got = "user"
		case u.OfAssistant != nil:
			got = "assistant"
		default:
			t.Fatalf("message %d has no role variant set", i)
		}
		if got != wantRoles[i] {
			t.Errorf("message %d role = %q, want %q", i, got, wantRoles[i])
		}
	}

	// Unknown roles degrade to user rather than being dropped.
	fallback := toOpenAIMessages([]Message{{Role: "tool", Content: "x"}})
	if len(fallback) != 1 || fallback[0].OfUser == nil {
		t.Error("unknown role should fall back to a user message")
	}
}
