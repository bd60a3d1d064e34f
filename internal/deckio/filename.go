package deckio

import (
	"regexp"
	"strings"
)

var nonWord = regexp.MustCompile(`\W+`)

// maxFilenameLen bounds the sanitized title used in download filenames.
const maxFilenameLen = 40

// ExportFilename turns a deck title into a safe base filename: non-word
// characters collapse to underscores, the result is truncated to 40
// characters, and an empty result falls back to "deck".
func ExportFilename(title string) string {
	name := nonWord.ReplaceAllString(title, "_")
	name = strings.Trim(name, "_")
	if len(name) > maxFilenameLen {
		name = name[:maxFilenameLen]
	}
	if name == "" {
		return "deck"
	}
	return name
}
