package storage

import (
	"fmt"
	"strings"
	"time"
)

// ExpandTemplate expands a storage-key template against the wall clock.
// Recognized tokens: {year} {month} {day} {filename}. Month and day are
// zero-padded to two digits. Anything else is left untouched.
func ExpandTemplate(template, filename string) string {
	return ExpandTemplateAt(template, filename, time.Now())
}

// ExpandTemplateAt is ExpandTemplate with an explicit instant, so callers and
// tests can pin the date.
func ExpandTemplateAt(template, filename string, at time.Time) string {
	r := strings.NewReplacer(
		"{year}", fmt.Sprintf("%04d", at.Year()),
		"{month}", fmt.Sprintf("%02d", int(at.Month())),
		"{day}", fmt.Sprintf("%02d", at.Day()),
		"{filename}", filename,
	)
	return r.Replace(template)
}
