package frontmatter

import (
	"strings"

	"github.com/spf13/cast"
)

// Requirement reports whether recovered metadata carries the minimum fields a
// caller needs. It gates the regex fallback, which can only recover a subset
// of fields.
type Requirement func(meta map[string]any, body string) bool

// RequireNothing accepts any metadata.
func RequireNothing(map[string]any, string) bool { return true }

// RequireIdea requires a persona identifier and a thesis.
func RequireIdea(meta map[string]any, _ string) bool {
	persona := firstString(meta, "persona_id", "persona")
	return persona != "" && firstString(meta, "thesis") != ""
}

// RequireJudgment requires a non-empty scores map and a synthesis, which is
// either a metadata field or the body.
func RequireJudgment(meta map[string]any, body string) bool {
	scores, err := cast.ToStringMapE(meta["scores"])
	if err != nil || len(scores) == 0 {
		return false
	}
	return firstString(meta, "synthesis") != "" || strings.TrimSpace(body) != ""
}

func firstString(meta map[string]any, keys ...string) string {
	for _, key := range keys {
		v, ok := meta[key]
		if !ok || v == nil {
			continue
		}
		if s := strings.TrimSpace(cast.ToString(v)); s != "" {
			return s
		}
	}
	return ""
}
