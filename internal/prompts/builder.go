package prompts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/whitewolf2000ani/sdx/internal/artifact"
	"github.com/whitewolf2000ani/sdx/internal/prompts/clinical_output"
	"github.com/whitewolf2000ani/sdx/internal/prompts/diagnostic_report"
	"github.com/whitewolf2000ani/sdx/internal/prompts/treatment_plan"
	"github.com/whitewolf2000ani/sdx/internal/schema"
)

// Build assembles a model request from normalized text, a target schema,
// a locale tag, and optional caller-supplied overrides.
//
// Build is deterministic: identical inputs always produce an identical
// Request, including its fingerprint. Options are merged into the user
// prompt in sorted key order so map iteration order cannot leak in.
func Build(text artifact.NormalizedText, schemaID schema.ID, locale string, options map[string]string) (Request, error) {
	if strings.TrimSpace(text.Text) == "" {
		return Request{}, fmt.Errorf("cannot build prompt from empty normalized text (artifact %s)", text.ArtifactID)
	}

	if locale == "" {
		locale = DefaultLocale
	}
	instruction, err := localeInstruction(locale)
	if err != nil {
		return Request{}, err
	}

	doc, err := schema.Get(schemaID)
	if err != nil {
		return Request{}, err
	}

	guidance := renderGuidance(options)

	var system, user string
	switch schemaID {
	case schema.DiagnosticReport:
		system = diagnostic_report.SystemPrompt(diagnostic_report.SystemData{
			Schema:            string(doc.Raw),
			LocaleInstruction: instruction,
		})
		user = diagnostic_report.UserPrompt(diagnostic_report.UserData{
			Text:     text.Text,
			Guidance: guidance,
		})
	case schema.TreatmentPlan:
		system = treatment_plan.SystemPrompt(treatment_plan.SystemData{
			Schema:            string(doc.Raw),
			LocaleInstruction: instruction,
		})
		user = treatment_plan.UserPrompt(treatment_plan.UserData{
			Text:     text.Text,
			Guidance: guidance,
		})
	case schema.ClinicalOutput:
		system = clinical_output.SystemPrompt(clinical_output.SystemData{
			Schema:            string(doc.Raw),
			LocaleInstruction: instruction,
		})
		user = clinical_output.UserPrompt(clinical_output.UserData{
			Text:     text.Text,
			Guidance: guidance,
		})
	default:
		return Request{}, fmt.Errorf("no prompt templates for schema %s", schemaID)
	}

	req := Request{
		ArtifactID: text.ArtifactID,
		SchemaID:   schemaID,
		Locale:     locale,
		System:     system,
		User:       user,
		Options:    cloneOptions(options),
	}
	req.Fingerprint = fingerprint(req)
	return req, nil
}

// renderGuidance flattens caller options into prompt lines, sorted by key.
func renderGuidance(options map[string]string) string {
	if len(options) == 0 {
		return ""
	}
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s: %s", k, options[k])
	}
	return b.String()
}

func cloneOptions(options map[string]string) map[string]string {
	if len(options) == 0 {
		return nil
	}
	out := make(map[string]string, len(options))
	for k, v := range options {
		out[k] = v
	}
	return out
}

// fingerprint hashes every request input in a fixed order.
func fingerprint(req Request) string {
	h := sha256.New()
	for _, part := range []string{req.ArtifactID, string(req.SchemaID), req.Locale, req.System, req.User} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	keys := make([]string, 0, len(req.Options))
	for k := range req.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(req.Options[k]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
