package normalize

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// pdfPageCount validates the PDF and returns its page count. A corrupt
// or truncated document fails here, before any rendering starts.
func pdfPageCount(payload []byte) (int, error) {
	if err := api.Validate(bytes.NewReader(payload), nil); err != nil {
		return 0, fmt.Errorf("invalid PDF: %w", err)
	}
	count, err := api.PageCount(bytes.NewReader(payload), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	if count == 0 {
		return 0, fmt.Errorf("PDF has no pages")
	}
	return count, nil
}

// renderPDFPage renders a single page to PNG using pdftoppm
// (poppler-utils). pdftoppm rasterizes the page as displayed, which is
// what OCR needs; extracting embedded image objects does not preserve
// page order or overlaid text.
func renderPDFPage(ctx context.Context, pdfPath string, pageNum int) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "sdx-page-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outputPrefix := filepath.Join(tmpDir, "page")

	pageStr := fmt.Sprintf("%d", pageNum)
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", "300",
		"-singlefile",
		pdfPath,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	data, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}
	return data, nil
}
