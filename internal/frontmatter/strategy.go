package frontmatter

import (
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DecodeYAML sanitizes the block and decodes it as a YAML mapping.
func DecodeYAML(b Block) (map[string]any, bool) {
	if strings.TrimSpace(b.Raw) == "" {
		return map[string]any{}, true
	}
	var meta map[string]any
	if err := yaml.Unmarshal([]byte(Sanitize(b.Raw)), &meta); err != nil {
		return nil, false
	}
	if meta == nil {
		meta = map[string]any{}
	}
	return meta, true
}

var (
	stringFields = []string{"persona_id", "persona_name", "persona", "thesis", "winner", "title"}
	listFields   = []string{"risks", "anti_plan", "falsifiers", "next_actions"}

	topLevelScalar = regexp.MustCompile(`^([A-Za-z_][\w-]*):[ \t]*(.*)$`)
	listItem       = regexp.MustCompile(`^\s*-\s+(.+)$`)
	urlPattern     = regexp.MustCompile(`https?://[^\s"'<>)\]]+`)
	titlePattern   = regexp.MustCompile(`(?:^|\s)title:\s*(.+)$`)
	totalPattern   = regexp.MustCompile(`^\s+total:\s*(-?[0-9]+(?:\.[0-9]+)?)`)
	scoreIDPattern = regexp.MustCompile(`^(\s+)([\w.-]+):\s*(-?[0-9]+(?:\.[0-9]+)?)?\s*$`)
)

// RegexFallback returns a strategy that scans the raw block for the fields the
// pipeline needs: a fixed set of string fields, a fixed set of string lists,
// source URLs, and per-executor score totals. It succeeds only when req holds.
func RegexFallback(req Requirement) Strategy {
	return func(b Block) (map[string]any, bool) {
		sections := splitSections(b.Raw)
		meta := map[string]any{}

		for _, key := range stringFields {
			if s, ok := sections[key]; ok && s.inline != "" {
				meta[key] = unquote(s.inline)
			}
		}
		for _, key := range listFields {
			if s, ok := sections[key]; ok {
				if items := s.items(); len(items) > 0 {
					meta[key] = items
				}
			}
		}
		if s, ok := sections["sources"]; ok {
			if sources := s.sources(); len(sources) > 0 {
				meta["sources"] = sources
			}
		}
		if s, ok := sections["scores"]; ok {
			if scores := s.scores(); len(scores) > 0 {
				meta["scores"] = scores
			}
		}

		if len(meta) == 0 || !req(meta, b.Body) {
			return nil, false
		}
		return meta, true
	}
}

// section is one top-level key of the block: its inline value and the
// indented or list lines that follow it.
type section struct {
	inline string
	lines  []string
}

func splitSections(raw string) map[string]*section {
	sections := map[string]*section{}
	var current *section
	for _, line := range strings.Split(raw, "\n") {
		if m := topLevelScalar.FindStringSubmatch(line); m != nil {
			current = &section{inline: strings.TrimSpace(m[2])}
			if _, seen := sections[m[1]]; !seen {
				sections[m[1]] = current
			}
			continue
		}
		if current != nil && strings.TrimSpace(line) != "" {
			current.lines = append(current.lines, line)
		}
	}
	return sections
}

func (s *section) items() []any {
	var out []any
	if strings.HasPrefix(s.inline, "[") && strings.HasSuffix(s.inline, "]") {
		for _, part := range strings.Split(strings.Trim(s.inline, "[]"), ",") {
			if v := unquote(part); v != "" {
				out = append(out, v)
			}
		}
		return out
	}
	for _, line := range s.lines {
		if m := listItem.FindStringSubmatch(line); m != nil {
			if v := unquote(m[1]); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func (s *section) sources() []any {
	var out []any
	title := ""
	for _, line := range s.lines {
		if m := titlePattern.FindStringSubmatch(line); m != nil {
			title = unquote(m[1])
			continue
		}
		if u := urlPattern.FindString(line); u != "" {
			out = append(out, map[string]any{"title": title, "url": u})
			title = ""
		}
	}
	return out
}

func (s *section) scores() map[string]any {
	out := map[string]any{}
	idIndent := -1
	current := ""
	for _, line := range s.lines {
		if m := scoreIDPattern.FindStringSubmatch(line); m != nil && (idIndent < 0 || len(m[1]) == idIndent) {
			if m[2] == "total" && current != "" {
				continue
			}
			idIndent = len(m[1])
			current = m[2]
			if m[3] != "" {
				if v, err := strconv.ParseFloat(m[3], 64); err == nil {
					out[current] = map[string]any{"total": v}
				}
			}
			continue
		}
		if current == "" {
			continue
		}
		if m := totalPattern.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				out[current] = map[string]any{"total": v}
			}
		}
	}
	return out
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = s[1 : len(s)-1]
		}
	}
	return strings.TrimSpace(s)
}
