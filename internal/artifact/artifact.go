// Package artifact defines the raw clinical input types accepted by the
// pipeline and the typed errors surfaced at the ingestion boundary.
package artifact

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the media type of a raw artifact.
type Kind string

const (
	KindText  Kind = "text"
	KindJPEG  Kind = "image/jpeg"
	KindPNG   Kind = "image/png"
	KindPDF   Kind = "application/pdf"
)

// SupportedKinds lists every media kind the pipeline accepts.
var SupportedKinds = []Kind{KindText, KindJPEG, KindPNG, KindPDF}

// IsImage reports whether the kind is a raster image.
func (k Kind) IsImage() bool {
	return k == KindJPEG || k == KindPNG
}

// Valid reports whether the kind is one the pipeline accepts.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindJPEG, KindPNG, KindPDF:
		return true
	}
	return false
}

// Raw is a single unit of raw clinical input. It is immutable once created
// and owned by the caller until consumed by the normalizer; the payload is
// never discarded so the artifact can be re-processed later.
type Raw struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Payload    []byte    `json:"-"`
	SourceName string    `json:"source_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// New creates a raw artifact with a fresh identifier.
func New(kind Kind, payload []byte, sourceName string) Raw {
	return Raw{
		ID:         uuid.New().String(),
		Kind:       kind,
		Payload:    payload,
		SourceName: sourceName,
		CreatedAt:  time.Now().UTC(),
	}
}

// NormalizedText is the canonical plain-text representation derived from a
// raw artifact. Created once, never mutated; ArtifactID links back to the
// originating artifact.
type NormalizedText struct {
	ArtifactID string `json:"artifact_id"`
	Text       string `json:"text"`
}

// DetectKind sniffs the media kind from the payload bytes, falling back to
// the file extension for plain text (content sniffing reports generic
// text/plain for most encodings).
func DetectKind(filename string, payload []byte) (Kind, error) {
	contentType := http.DetectContentType(payload)
	switch {
	case strings.HasPrefix(contentType, "image/jpeg"):
		return KindJPEG, nil
	case strings.HasPrefix(contentType, "image/png"):
		return KindPNG, nil
	case strings.HasPrefix(contentType, "application/pdf"):
		return KindPDF, nil
	case strings.HasPrefix(contentType, "text/plain"):
		return KindText, nil
	}

	// Some text encodings sniff as octet-stream; trust a .txt extension.
	if strings.EqualFold(filepath.Ext(filename), ".txt") {
		return KindText, nil
	}

	return "", &UnsupportedMediaError{ContentType: contentType, Filename: filename}
}
