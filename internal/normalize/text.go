package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Text canonicalizes extracted text: BOM removal, invalid UTF-8
// replaced with U+FFFD, LF line endings, Unicode NFC, trailing
// whitespace stripped per line, and at most one blank line between
// paragraphs. Running it on its own output is a no-op.
func Text(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.ToValidUTF8(s, "\uFFFD")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = norm.NFC.String(s)

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blanks := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blanks++
			if blanks > 1 {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}
