package normalisers

import (
	"regexp"
	"strings"
)

var blankRun = regexp.MustCompile(`\n{3,}`)

// CleanText normalises line endings, collapses three or more consecutive
// newlines to exactly two, and trims surrounding whitespace.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = blankRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
