package frontmatter

import (
	"regexp"
	"strings"
)

var (
	boldListItem  = regexp.MustCompile(`^(\s*-\s+)(\*\*.*)$`)
	linkScalar    = regexp.MustCompile(`^(\s*(?:-\s+)?(?:title|url):\s+)(.+)$`)
	stepField     = regexp.MustCompile(`^(\s*(?:-\s+)?(?:step|rationale|artifact):\s+)(.+)$`)
	keyedListItem = regexp.MustCompile(`^(\s*-\s+)([A-Za-z_][\w -]*):\s+(.+)$`)
	plainListItem = regexp.MustCompile(`^(\s*-\s+)(.+)$`)
	boldScalar    = regexp.MustCompile(`^(\s*[A-Za-z_][\w-]*:\s+)(\*\*.*)$`)
	plainScalar   = regexp.MustCompile(`^(\s*[A-Za-z_][\w-]*:\s+)(.+)$`)
)

// objectKeys are keys that legitimately open a mapping inside a list, so a
// list item using them is left alone.
var objectKeys = map[string]bool{
	"title":     true,
	"url":       true,
	"step":      true,
	"rationale": true,
	"artifact":  true,
}

// Sanitize quotes the value shapes models commonly emit unquoted that break
// YAML decoding or silently truncate it: bold values, title and url
// scalars, plan step fields holding ": ", list items shaped like
// "key: value", and plain values containing " #", which YAML would read as
// a comment.
func Sanitize(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = sanitizeLine(line)
	}
	return strings.Join(lines, "\n")
}

func sanitizeLine(line string) string {
	if m := boldListItem.FindStringSubmatch(line); m != nil {
		return m[1] + quote(m[2])
	}
	if m := linkScalar.FindStringSubmatch(line); m != nil {
		if needsQuote(m[2]) {
			return m[1] + quote(m[2])
		}
		return line
	}
	if m := stepField.FindStringSubmatch(line); m != nil {
		if needsQuote(m[2]) && (strings.Contains(m[2], ": ") || hasComment(m[2]) || strings.HasPrefix(m[2], "**")) {
			return m[1] + quote(m[2])
		}
		return line
	}
	if m := keyedListItem.FindStringSubmatch(line); m != nil {
		key := strings.TrimSpace(m[2])
		if !objectKeys[key] && needsQuote(m[3]) {
			value := strings.TrimSpace(strings.TrimPrefix(line, m[1]))
			return m[1] + quote(value)
		}
		return line
	}
	if m := plainListItem.FindStringSubmatch(line); m != nil {
		if needsQuote(m[2]) && hasComment(m[2]) {
			return m[1] + quote(m[2])
		}
		return line
	}
	if m := boldScalar.FindStringSubmatch(line); m != nil {
		return m[1] + quote(m[2])
	}
	if m := plainScalar.FindStringSubmatch(line); m != nil && needsQuote(m[2]) && proseBeforeComment(m[2]) {
		return m[1] + quote(m[2])
	}
	return line
}

// proseBeforeComment reports whether a scalar's " #" follows several words.
// A single token before it, as in "score: 8 # high", is a real comment.
func proseBeforeComment(value string) bool {
	i := strings.Index(value, " #")
	if i < 0 {
		return false
	}
	return strings.ContainsAny(strings.TrimSpace(value[:i]), " \t")
}

// hasComment reports whether YAML would cut a plain value at " #".
func hasComment(value string) bool {
	return strings.Contains(value, " #") || strings.Contains(value, "\t#")
}

// needsQuote reports whether a value is a plain scalar. Quoted strings, flow
// collections, block scalar indicators and anchors are left untouched.
func needsQuote(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	switch value[0] {
	case '"', '\'', '[', '{', '|', '>', '&', '!':
		return false
	}
	return true
}

func quote(value string) string {
	value = strings.TrimRight(value, " \t")
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `"`, `\"`)
	return `"` + value + `"`
}
