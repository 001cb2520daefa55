// Package normalize turns raw artifacts into canonical text ready for
// prompt construction. Text passes through Unicode canonicalization;
// images and PDFs go through OCR first.
package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/whitewolf2000ani/sdx/internal/artifact"
	"github.com/whitewolf2000ani/sdx/internal/providers"
)

// Normalizer extracts canonical text from raw artifacts.
type Normalizer struct {
	ocr    providers.OCRProvider
	logger *slog.Logger
}

// New creates a normalizer. The OCR provider may be nil when only text
// artifacts are expected; image and PDF artifacts then fail with an
// ExtractionError.
func New(ocr providers.OCRProvider, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{ocr: ocr, logger: logger}
}

// Normalize extracts and canonicalizes text from a raw artifact. The
// result is deterministic for a given payload: running the pipeline
// twice on the same artifact yields identical text.
func (n *Normalizer) Normalize(ctx context.Context, raw *artifact.Raw) (artifact.NormalizedText, error) {
	var (
		text string
		err  error
	)

	switch {
	case raw.Kind == artifact.KindText:
		text = string(raw.Payload)
	case raw.Kind.IsImage():
		text, err = n.imageText(ctx, raw)
	case raw.Kind == artifact.KindPDF:
		text, err = n.pdfText(ctx, raw)
	default:
		return artifact.NormalizedText{}, &artifact.UnsupportedMediaError{
			ContentType: string(raw.Kind),
			Filename:    raw.SourceName,
		}
	}
	if err != nil {
		return artifact.NormalizedText{}, err
	}

	normalized := Text(text)
	if normalized == "" {
		return artifact.NormalizedText{}, &artifact.ExtractionError{
			ArtifactID: raw.ID,
			Kind:       raw.Kind,
			Reason:     "no text content after normalization",
		}
	}

	n.logger.Debug("artifact normalized",
		"artifact", raw.ID,
		"kind", raw.Kind,
		"chars", len(normalized))

	return artifact.NormalizedText{ArtifactID: raw.ID, Text: normalized}, nil
}

func (n *Normalizer) imageText(ctx context.Context, raw *artifact.Raw) (string, error) {
	if n.ocr == nil {
		return "", &artifact.ExtractionError{
			ArtifactID: raw.ID,
			Kind:       raw.Kind,
			Reason:     "no OCR provider configured",
		}
	}

	result, err := n.ocr.ProcessImage(ctx, raw.Payload, 1)
	if err != nil {
		return "", &artifact.ExtractionError{
			ArtifactID: raw.ID,
			Kind:       raw.Kind,
			Reason:     "OCR failed",
			Err:        err,
		}
	}
	return result.Text, nil
}

func (n *Normalizer) pdfText(ctx context.Context, raw *artifact.Raw) (string, error) {
	if n.ocr == nil {
		return "", &artifact.ExtractionError{
			ArtifactID: raw.ID,
			Kind:       raw.Kind,
			Reason:     "no OCR provider configured",
		}
	}

	pageCount, err := pdfPageCount(raw.Payload)
	if err != nil {
		return "", &artifact.ExtractionError{
			ArtifactID: raw.ID,
			Kind:       raw.Kind,
			Reason:     "PDF validation failed",
			Err:        err,
		}
	}

	// pdftoppm reads from disk, so stage the payload in a temp file.
	tmpDir, err := os.MkdirTemp("", "sdx-pdf-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "artifact.pdf")
	if err := os.WriteFile(pdfPath, raw.Payload, 0o644); err != nil {
		return "", fmt.Errorf("failed to stage PDF: %w", err)
	}

	var pages []string
	for page := 1; page <= pageCount; page++ {
		img, err := renderPDFPage(ctx, pdfPath, page)
		if err != nil {
			return "", &artifact.ExtractionError{
				ArtifactID: raw.ID,
				Kind:       raw.Kind,
				Reason:     fmt.Sprintf("failed to render page %d", page),
				Err:        err,
			}
		}

		result, err := n.ocr.ProcessImage(ctx, img, page)
		if err != nil {
			return "", &artifact.ExtractionError{
				ArtifactID: raw.ID,
				Kind:       raw.Kind,
				Reason:     fmt.Sprintf("OCR failed on page %d", page),
				Err:        err,
			}
		}
		pages = append(pages, result.Text)
	}

	return strings.Join(pages, "\n\n"), nil
}
