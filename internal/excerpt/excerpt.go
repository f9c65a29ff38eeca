// Package excerpt derives the short list-view preview of a note from its
// Markdown content.
package excerpt

import (
	"regexp"
	"strings"
)

// maxLength is the upper bound for a generated excerpt, in runes.
const maxLength = 200

var (
	markerRe     = regexp.MustCompile("!\\[[^]]*]\\([^)]*\\)|\\[([^]]*)]\\([^)]*\\)|[#*`>~_]")
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Generate strips Markdown markers from content, drops a leading line that
// merely repeats the title, collapses whitespace, and truncates the result.
func Generate(content, title string) string {
	text := strings.TrimSpace(stripMarkdown(content))
	title = strings.TrimSpace(stripMarkdown(title))

	if title != "" && strings.HasPrefix(text, title) {
		text = strings.TrimSpace(text[len(title):])
	}

	text = whitespaceRe.ReplaceAllString(text, " ")
	return truncate(text, maxLength)
}

// stripMarkdown removes common Markdown markers, keeping link texts.
func stripMarkdown(s string) string {
	return markerRe.ReplaceAllString(s, "$1")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
