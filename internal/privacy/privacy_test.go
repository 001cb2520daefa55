package privacy

import (
	"strings"
	"testing"
)

func TestAnalyze(t *testing.T) {
	d := NewDeidentifier("salt")
	text := "Contact joao.silva@example.com or +55 11 98765 4321. MRN:12345678. CPF 123.456.789-01."

	detections := d.Analyze(text)
	entities := make(map[string]int)
	for _, det := range detections {
		entities[det.Entity]++
		if det.Value != text[det.Start:det.End] {
			t.Errorf("detection value %q does not match span %q", det.Value, text[det.Start:det.End])
		}
	}

	for _, want := range []string{"EMAIL", "PHONE", "MRN", "CPF"} {
		if entities[want] == 0 {
			t.Errorf("entity %s not detected in %q", want, text)
		}
	}

	// Spans come back ordered and non-overlapping.
	lastEnd := -1
	for _, det := range detections {
		if det.Start < lastEnd {
			t.Errorf("overlapping detection at %d (previous ended %d)", det.Start, lastEnd)
		}
		lastEnd = det.End
	}
}

func TestAnalyzeLongestSpanWins(t *testing.T) {
	d := NewDeidentifier("salt")
	// Registered first, so only the length tiebreaker can demote it.
	if err := d.AddRecognizer("BED_SHORT", `\bBED-\d{2}`); err != nil {
		t.Fatalf("AddRecognizer() error = %v", err)
	}
	if err := d.AddRecognizer("BED_FULL", `\bBED-\d{3}\b`); err != nil {
		t.Fatalf("AddRecognizer() error = %v", err)
	}

	detections := d.Analyze("Admitted to BED-204 overnight.")
	if len(detections) != 1 {
		t.Fatalf("Analyze() = %d detections, want 1 (%+v)", len(detections), detections)
	}
	if detections[0].Entity != "BED_FULL" || detections[0].Value != "BED-204" {
		t.Errorf("longest span should win, got %+v", detections[0])
	}
}

func TestDeidentifyMask(t *testing.T) {
	d := NewDeidentifier("salt")
	got, err := d.Deidentify("SSN 123-45-6789 on file.", StrategyMask)
	if err != nil {
		t.Fatalf("Deidentify() error = %v", err)
	}
	want := "SSN *********** on file."
	if got != want {
		t.Errorf("Deidentify() = %q, want %q", got, want)
	}
}

func TestDeidentifyHash(t *testing.T) {
	d := NewDeidentifier("salt")
	got, err := d.Deidentify("Email patient@example.com today.", StrategyHash)
	if err != nil {
		t.Fatalf("Deidentify() error = %v", err)
	}
	if strings.Contains(got, "patient@example.com") {
		t.Errorf("PII survived hashing: %q", got)
	}
	if !strings.Contains(got, "<EMAIL:") {
		t.Errorf("hash token missing: %q", got)
	}

	// Same value and salt produce the same token.
	again, _ := d.Deidentify("Email patient@example.com today.", StrategyHash)
	if got != again {
		t.Error("hash tokens should be stable for a fixed salt")
	}

	// A different salt produces a different token.
	other, _ := NewDeidentifier("other-salt").Deidentify("Email patient@example.com today.", StrategyHash)
	if got == other {
		t.Error("hash tokens should depend on the salt")
	}
}

func TestDeidentifyNoPII(t *testing.T) {
	d := NewDeidentifier("salt")
	text := "54-year-old male with epigastric pain."
	got, err := d.Deidentify(text, StrategyMask)
	if err != nil {
		t.Fatalf("Deidentify() error = %v", err)
	}
	if got != text {
		t.Errorf("clean text should pass through unchanged, got %q", got)
	}
}

func TestDeidentifyUnknownStrategy(t *testing.T) {
	d := NewDeidentifier("salt")
	if _, err := d.Deidentify("anything", "redact"); err == nil {
		t.Error("unknown strategy should be rejected")
	}
}

func TestAddRecognizer(t *testing.T) {
	d := NewDeidentifier("salt")
	if err := d.AddRecognizer("BED", `\bBED-\d{3}\b`); err != nil {
		t.Fatalf("AddRecognizer() error = %v", err)
	}

	got, err := d.Deidentify("Admitted to BED-204.", StrategyMask)
	if err != nil {
		t.Fatalf("Deidentify() error = %v", err)
	}
	if strings.Contains(got, "BED-204") {
		t.Errorf("custom entity not replaced: %q", got)
	}

	if err := d.AddRecognizer("BAD", `[unclosed`); err == nil {
		t.Error("invalid pattern should be rejected")
	}
}
