package providers

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const TesseractName = "tesseract"

// TesseractConfig holds configuration for the tesseract OCR provider.
type TesseractConfig struct {
	Binary    string        // tesseract executable (looked up on PATH if empty)
	Languages string        // tesseract -l value, e.g. "eng" or "eng+por"
	Timeout   time.Duration // per-page timeout
}

// TesseractOCR implements OCRProvider by shelling out to the tesseract
// CLI. Each page image is written to a temp file because tesseract does
// not read PNG/JPEG payloads from stdin reliably across versions.
type TesseractOCR struct {
	binary    string
	languages string
	timeout   time.Duration
}

// NewTesseractOCR creates a tesseract-backed OCR provider.
func NewTesseractOCR(cfg TesseractConfig) *TesseractOCR {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Languages == "" {
		cfg.Languages = "eng"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &TesseractOCR{
		binary:    cfg.Binary,
		languages: cfg.Languages,
		timeout:   cfg.Timeout,
	}
}

// Name returns the provider identifier.
func (p *TesseractOCR) Name() string {
	return TesseractName
}

// Available reports whether the tesseract binary can be found.
func (p *TesseractOCR) Available() bool {
	_, err := exec.LookPath(p.binary)
	return err == nil
}

// ProcessImage runs OCR over a single page image.
func (p *TesseractOCR) ProcessImage(ctx context.Context, image []byte, pageNum int) (*OCRResult, error) {
	start := time.Now()

	tmpDir, err := os.MkdirTemp("", "sdx-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	imgPath := filepath.Join(tmpDir, fmt.Sprintf("page_%04d", pageNum))
	if err := os.WriteFile(imgPath, image, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write page image: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// "stdout" as the output base makes tesseract print recognized
	// text instead of writing a .txt sidecar file.
	cmd := exec.CommandContext(runCtx, p.binary,
		imgPath,
		"stdout",
		"-l", p.languages,
		"--psm", "3",
	)

	output, err := cmd.Output()
	elapsed := time.Since(start)
	if err != nil {
		detail := err.Error()
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			detail = strings.TrimSpace(string(exitErr.Stderr))
		}
		result := &OCRResult{
			ExecutionTime: elapsed,
			ErrorMessage:  detail,
		}
		return result, fmt.Errorf("tesseract failed on page %d: %w (output: %s)", pageNum, err, detail)
	}

	return &OCRResult{
		Success:       true,
		Text:          string(output),
		ExecutionTime: elapsed,
	}, nil
}

var _ OCRProvider = (*TesseractOCR)(nil)
