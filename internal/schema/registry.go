// Package schema holds the fixed, versioned set of structured-output schemas
// the validator checks model replies against. Schemas are data, not code:
// each lives in an embedded .json file and can be loaded independently of
// the pipeline.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// ID identifies a structured-output schema.
type ID string

const (
	DiagnosticReport ID = "diagnostic-report"
	TreatmentPlan    ID = "treatment-plan"
	ClinicalOutput   ID = "clinical-output"
)

// Kind names the clinical-record section a schema's output merges into.
type Kind string

const (
	KindDiagnosis      Kind = "diagnosis"
	KindInvestigations Kind = "investigations"
	KindTreatment      Kind = "treatment"
)

// Schema is a single structured-output contract.
type Schema struct {
	ID   ID     // Registry identifier (e.g. "diagnostic-report")
	Kind Kind   // Record section its output merges into
	Raw  []byte // JSON Schema document
}

// registry maps schema ids to their embedded file and record section.
var registry = []struct {
	id   ID
	kind Kind
	file string
}{
	{DiagnosticReport, KindDiagnosis, "diagnostic_report.json"},
	{TreatmentPlan, KindTreatment, "treatment_plan.json"},
	{ClinicalOutput, KindInvestigations, "clinical_output.json"},
}

// All returns every registered schema with its document loaded.
func All() ([]Schema, error) {
	out := make([]Schema, 0, len(registry))
	for _, entry := range registry {
		s, err := Get(entry.id)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

// Get returns a single schema by id.
func Get(id ID) (*Schema, error) {
	for _, entry := range registry {
		if entry.id != id {
			continue
		}
		raw, err := schemaFS.ReadFile("schemas/" + entry.file)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", id, err)
		}
		return &Schema{ID: entry.id, Kind: entry.kind, Raw: raw}, nil
	}
	return nil, fmt.Errorf("schema not found: %s", id)
}

// Parse converts a string into a known schema ID.
func Parse(s string) (ID, error) {
	id := ID(strings.TrimSpace(strings.ToLower(s)))
	for _, entry := range registry {
		if entry.id == id {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown schema id: %q", s)
}

var (
	compileMu sync.Mutex
	compiled  = map[ID]*jsonschema.Schema{}
)

// Compile returns the compiled validator for a schema id. Compilation is
// cached per process; schemas are immutable.
func Compile(id ID) (*jsonschema.Schema, error) {
	compileMu.Lock()
	defer compileMu.Unlock()

	if s, ok := compiled[id]; ok {
		return s, nil
	}

	doc, err := Get(id)
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	resource := string(id) + ".json"
	if err := compiler.AddResource(resource, bytes.NewReader(doc.Raw)); err != nil {
		return nil, fmt.Errorf("failed to load schema %s: %w", id, err)
	}
	s, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", id, err)
	}
	compiled[id] = s
	return s, nil
}

// Validate checks a parsed JSON document against the schema.
func Validate(id ID, doc json.RawMessage) error {
	s, err := Compile(id)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("failed to decode document for validation: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("document does not match schema %s: %w", id, err)
	}
	return nil
}
