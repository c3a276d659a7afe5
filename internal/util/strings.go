// Package util provides string helpers shared by the pipeline and the CLI.
package util

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// TruncateString truncates s to at most maxLen runes, ending with "..." when
// truncated. It does not understand ANSI escapes; use TruncateANSI for
// styled terminal output.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return strings.TrimRightFunc(string(runes[:maxLen-3]), unicode.IsSpace) + "..."
}

// TruncateANSI truncates s to maxWidth visual columns, preserving escape
// sequences and wide characters.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return "..."
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, "...")
}

// Slugify lowercases s and reduces it to [a-z0-9-], collapsing runs of other
// characters into single hyphens and trimming to maxLen bytes. It returns ""
// when nothing usable remains.
func Slugify(s string, maxLen int) string {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			hyphen = false
		case b.Len() > 0 && !hyphen:
			b.WriteByte('-')
			hyphen = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if maxLen > 0 && len(slug) > maxLen {
		slug = strings.TrimRight(slug[:maxLen], "-")
	}
	return slug
}

// FirstHeading returns the text of the first markdown heading of the given
// level ("#" for level 1), or "".
func FirstHeading(markdown string, level int) string {
	prefix := strings.Repeat("#", level) + " "
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, prefix))
		}
	}
	return ""
}
