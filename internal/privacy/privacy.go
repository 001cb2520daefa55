// Package privacy detects and removes personally identifying
// information from normalized text before it reaches a model provider.
package privacy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Strategies for replacing detected PII.
const (
	StrategyMask = "mask" // Replace each PII character with '*'
	StrategyHash = "hash" // Replace the PII token with a salted sha256 digest
)

// Detection is one located PII span.
type Detection struct {
	Entity string
	Value  string
	Start  int
	End    int
}

// Recognizer locates one PII entity class via a regular expression.
type Recognizer struct {
	Entity  string
	Pattern *regexp.Regexp
}

// Deidentifier detects and replaces PII spans.
type Deidentifier struct {
	recognizers []Recognizer
	salt        string
}

// NewDeidentifier creates a de-identifier with the built-in
// recognizers. The salt feeds the hash strategy so digests are stable
// within a deployment but useless outside it.
func NewDeidentifier(salt string) *Deidentifier {
	return &Deidentifier{
		recognizers: builtinRecognizers(),
		salt:        salt,
	}
}

// AddRecognizer registers a custom recognizer, replacing any existing
// one for the same entity.
func (d *Deidentifier) AddRecognizer(entity, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid recognizer pattern for %s: %w", entity, err)
	}
	for i, rec := range d.recognizers {
		if rec.Entity == entity {
			d.recognizers[i].Pattern = re
			return nil
		}
	}
	d.recognizers = append(d.recognizers, Recognizer{Entity: entity, Pattern: re})
	return nil
}

// Analyze returns all PII spans in the text, ordered by position.
func (d *Deidentifier) Analyze(text string) []Detection {
	var detections []Detection
	for _, rec := range d.recognizers {
		for _, loc := range rec.Pattern.FindAllStringIndex(text, -1) {
			detections = append(detections, Detection{
				Entity: rec.Entity,
				Value:  text[loc[0]:loc[1]],
				Start:  loc[0],
				End:    loc[1],
			})
		}
	}
	sort.Slice(detections, func(i, j int) bool {
		if detections[i].Start != detections[j].Start {
			return detections[i].Start < detections[j].Start
		}
		return detections[i].End > detections[j].End
	})
	return dedupeOverlaps(detections)
}

// Deidentify replaces all detected PII using the given strategy.
func (d *Deidentifier) Deidentify(text, strategy string) (string, error) {
	switch strategy {
	case StrategyMask, StrategyHash:
	default:
		return "", fmt.Errorf("unsupported strategy %q (available: mask, hash)", strategy)
	}

	detections := d.Analyze(text)
	if len(detections) == 0 {
		return text, nil
	}

	// Replace back-to-front so earlier offsets stay valid.
	out := text
	for i := len(detections) - 1; i >= 0; i-- {
		det := detections[i]
		var replacement string
		if strategy == StrategyMask {
			replacement = strings.Repeat("*", det.End-det.Start)
		} else {
			replacement = fmt.Sprintf("<%s:%s>", det.Entity, d.token(det.Value))
		}
		out = out[:det.Start] + replacement + out[det.End:]
	}
	return out, nil
}

func (d *Deidentifier) token(value string) string {
	sum := sha256.Sum256([]byte(d.salt + ":" + value))
	return hex.EncodeToString(sum[:8])
}

// dedupeOverlaps keeps the earliest, longest span when recognizers
// overlap.
func dedupeOverlaps(detections []Detection) []Detection {
	out := detections[:0]
	lastEnd := -1
	for _, det := range detections {
		if det.Start < lastEnd {
			continue
		}
		out = append(out, det)
		lastEnd = det.End
	}
	return out
}

func builtinRecognizers() []Recognizer {
	return []Recognizer{
		{Entity: "EMAIL", Pattern: regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)},
		{Entity: "PHONE", Pattern: regexp.MustCompile(`\+?\d{1,3}[\s\-.]?\(?\d{2,3}\)?[\s\-.]?\d{3,5}[\s\-.]?\d{4}\b`)},
		{Entity: "SSN", Pattern: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
		{Entity: "CPF", Pattern: regexp.MustCompile(`\b\d{3}\.\d{3}\.\d{3}-\d{2}\b`)},
		{Entity: "MRN", Pattern: regexp.MustCompile(`\bMRN[:\s]?\d{6,10}\b`)},
	}
}
