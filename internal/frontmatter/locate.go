package frontmatter

import "strings"

const (
	delimiter = "---"

	// maxPreamble bounds how far into the text an embedded opening delimiter
	// may appear before the block is considered absent.
	maxPreamble = 500
)

// Unwrap strips a fenced code block that wraps the whole input. Fences
// tagged markdown or md are always stripped; a bare fence is stripped only
// when its content starts with a frontmatter delimiter.
func Unwrap(raw string) string {
	text := strings.TrimSpace(normalizeNewlines(raw))
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") || len(text) < 6 {
		return text
	}

	firstNL := strings.IndexByte(text, '\n')
	if firstNL < 0 {
		return text
	}
	tag := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(text[:firstNL], "```")))

	inner := strings.TrimSuffix(text[firstNL+1:], "```")
	inner = strings.TrimRight(inner, " \t")
	inner = strings.TrimSuffix(inner, "\n")

	switch tag {
	case "markdown", "md":
		return inner
	case "":
		if strings.HasPrefix(strings.TrimLeft(inner, "\n"), delimiter+"\n") {
			return inner
		}
	}
	return text
}

// HasLeadingBlock reports whether the unwrapped text opens with a delimiter
// line. Unlike Locate it allows no preamble, so markdown that merely
// contains horizontal rules is not mistaken for frontmatter.
func HasLeadingBlock(raw string) bool {
	text := Unwrap(raw)
	return text == delimiter || strings.HasPrefix(text, delimiter+"\n")
}

// Locate finds the frontmatter block. Text before an embedded opening
// delimiter is treated as preamble and dropped, but only when the delimiter
// starts within the first maxPreamble characters.
func Locate(text string) (Block, bool) {
	text = strings.TrimLeft(normalizeNewlines(text), " \t\n")

	var rest string
	switch {
	case strings.HasPrefix(text, delimiter+"\n"):
		rest = text[len(delimiter)+1:]
	default:
		idx := strings.Index(text, "\n"+delimiter+"\n")
		if idx < 0 || idx+1 > maxPreamble {
			return Block{}, false
		}
		rest = text[idx+len(delimiter)+2:]
	}

	var raw, after string
	switch {
	case rest == delimiter:
		raw, after = "", ""
	case strings.HasPrefix(rest, delimiter+"\n"):
		raw, after = "", rest[len(delimiter)+1:]
	default:
		end := closingIndex(rest)
		if end < 0 {
			return Block{}, false
		}
		raw = rest[:end]
		after = rest[end+1+len(delimiter):]
		if i := strings.IndexByte(after, '\n'); i >= 0 {
			after = after[i+1:]
		} else {
			after = ""
		}
	}

	return Block{Raw: raw, Body: strings.TrimLeft(after, "\n")}, true
}

// closingIndex returns the index of the newline preceding the closing
// delimiter line, or -1.
func closingIndex(rest string) int {
	offset := 0
	for {
		idx := strings.Index(rest[offset:], "\n"+delimiter)
		if idx < 0 {
			return -1
		}
		pos := offset + idx
		tail := rest[pos+1+len(delimiter):]
		if tail == "" || tail[0] == '\n' || strings.TrimRight(lineOf(tail), " \t") == "" {
			return pos
		}
		offset = pos + 1
	}
}

func lineOf(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
