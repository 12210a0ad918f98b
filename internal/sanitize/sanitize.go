// Package sanitize normalizes free text into ASCII-safe strings for use as
// object-storage metadata. Most blob APIs carry metadata as HTTP headers,
// which must stay in the printable ASCII range.
package sanitize

import "strings"

const DefaultMaxLength = 500

var punctuation = strings.NewReplacer(
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"—", "--", // em dash
	"–", "-", // en dash
	"…", "...", // ellipsis
	" ", " ", // non-breaking space
	"•", "*", // bullet
	"●", "*", // black circle
	"▪", "*", // small black square
	"·", "-", // middle dot
)

// Sanitize normalizes text with the default length cap.
func Sanitize(text string) string {
	return SanitizeN(text, DefaultMaxLength)
}

// SanitizeN replaces control whitespace with spaces, maps common smart
// punctuation to ASCII, strips everything outside 0x20-0x7E, collapses
// whitespace runs, trims, and truncates to max characters. The result is
// always printable ASCII and re-sanitizing is a no-op.
func SanitizeN(text string, max int) string {
	if max < 0 {
		max = 0
	}

	s := strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(text)
	s = punctuation.Replace(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 0x20 && r <= 0x7e {
			b.WriteRune(r)
		}
	}
	s = b.String()

	s = strings.Join(strings.Fields(s), " ")

	if len(s) > max {
		s = strings.TrimSpace(s[:max])
	}
	return s
}
