package prompts

import (
	"strings"
	"testing"

	"github.com/whitewolf2000ani/sdx/internal/artifact"
	"github.com/whitewolf2000ani/sdx/internal/schema"
)

func sampleText() artifact.NormalizedText {
	return artifact.NormalizedText{
		ArtifactID: "art-1",
		Text:       "54-year-old male with epigastric pain radiating to the back.",
	}
}

func TestBuildDeterministic(t *testing.T) {
	opts := map[string]string{"specialty": "gastroenterology", "audience": "physician"}

	a, err := Build(sampleText(), schema.DiagnosticReport, "en", opts)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	b, err := Build(sampleText(), schema.DiagnosticReport, "en", map[string]string{
		// Same pairs, different insertion order.
		"audience":  "physician",
		"specialty": "gastroenterology",
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if a.Fingerprint != b.Fingerprint {
		t.Errorf("fingerprints differ: %s vs %s", a.Fingerprint, b.Fingerprint)
	}
	if a.System != b.System || a.User != b.User {
		t.Error("prompt text differs across identical builds")
	}
}

func TestBuildFingerprintChangesWithInput(t *testing.T) {
	base, err := Build(sampleText(), schema.DiagnosticReport, "en", nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	t.Run("different schema", func(t *testing.T) {
		other, err := Build(sampleText(), schema.TreatmentPlan, "en", nil)
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if other.Fingerprint == base.Fingerprint {
			t.Error("fingerprint should change with schema")
		}
	})

	t.Run("different locale", func(t *testing.T) {
		other, err := Build(sampleText(), schema.DiagnosticReport, "pt-BR", nil)
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if other.Fingerprint == base.Fingerprint {
			t.Error("fingerprint should change with locale")
		}
	})

	t.Run("different options", func(t *testing.T) {
		other, err := Build(sampleText(), schema.DiagnosticReport, "en", map[string]string{"specialty": "cardiology"})
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if other.Fingerprint == base.Fingerprint {
			t.Error("fingerprint should change with options")
		}
	})
}

func TestBuildEmbedsSchemaAndText(t *testing.T) {
	req, err := Build(sampleText(), schema.ClinicalOutput, "en", nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	doc, err := schema.Get(schema.ClinicalOutput)
	if err != nil {
		t.Fatalf("schema.Get() error = %v", err)
	}
	if !strings.Contains(req.System, string(doc.Raw)) {
		t.Error("system prompt should embed the schema document")
	}
	if !strings.Contains(req.User, sampleText().Text) {
		t.Error("user prompt should embed the normalized text")
	}
	if req.SchemaID != schema.ClinicalOutput {
		t.Errorf("SchemaID = %v", req.SchemaID)
	}
}

func TestBuildLocales(t *testing.T) {
	for _, locale := range SupportedLocales() {
		t.Run(locale, func(t *testing.T) {
			req, err := Build(sampleText(), schema.DiagnosticReport, locale, nil)
			if err != nil {
				t.Fatalf("Build(%s) error = %v", locale, err)
			}
			if req.Locale != locale {
				t.Errorf("Locale = %q, want %q", req.Locale, locale)
			}
		})
	}

	t.Run("empty locale defaults", func(t *testing.T) {
		req, err := Build(sampleText(), schema.DiagnosticReport, "", nil)
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if req.Locale != DefaultLocale {
			t.Errorf("Locale = %q, want %q", req.Locale, DefaultLocale)
		}
	})

	t.Run("unsupported locale", func(t *testing.T) {
		if _, err := Build(sampleText(), schema.DiagnosticReport, "fr", nil); err == nil {
			t.Error("Build() should reject unsupported locale")
		}
	})
}

func TestBuildRejectsEmptyText(t *testing.T) {
	empty := artifact.NormalizedText{ArtifactID: "art-1", Text: "   "}
	if _, err := Build(empty, schema.DiagnosticReport, "en", nil); err == nil {
		t.Error("Build() should reject empty normalized text")
	}
}

func TestBuildOptionsInUserPrompt(t *testing.T) {
	req, err := Build(sampleText(), schema.DiagnosticReport, "en", map[string]string{
		"specialty": "gastroenterology",
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !strings.Contains(req.User, "specialty: gastroenterology") {
		t.Error("user prompt should carry caller options")
	}
}
