// Package prompts assembles model requests from normalized text, a target
// output schema, and a locale selector.
//
// Building a request is a pure function: identical inputs always yield an
// identical PromptRequest, which makes requests cacheable and tests
// reproducible. System and user prompt templates are embedded .tmpl files
// in per-schema subpackages; the locale switches only the natural-language
// instruction text, never the schema contract.
package prompts

import (
	"github.com/whitewolf2000ani/sdx/internal/schema"
)

// Request is an immutable, fully-assembled model request.
type Request struct {
	// ArtifactID links back to the normalized artifact the text came from.
	ArtifactID string `json:"artifact_id"`

	// SchemaID is the structured-output contract the reply must satisfy.
	SchemaID schema.ID `json:"schema_id"`

	// Locale is the IETF tag used for natural-language instructions.
	Locale string `json:"locale"`

	// System and User are the final prompt texts sent to the backend.
	System string `json:"system"`
	User   string `json:"user"`

	// Options holds the caller-supplied overrides that were merged into the
	// user prompt, kept for traceability.
	Options map[string]string `json:"options,omitempty"`

	// Fingerprint is a sha256 over every input, stable across builds.
	Fingerprint string `json:"fingerprint"`
}
