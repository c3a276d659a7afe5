package frontmatter

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Render serializes a Result back into a frontmatter document. Parsing the
// output yields equivalent metadata and an identical body.
func Render(r Result) (string, error) {
	meta := r.Metadata
	if meta == nil {
		meta = map[string]any{}
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")
	if len(meta) > 0 {
		data, err := yaml.Marshal(meta)
		if err != nil {
			return "", fmt.Errorf("frontmatter: encode metadata: %w", err)
		}
		buf.Write(data)
	}
	buf.WriteString(delimiter + "\n\n")
	buf.WriteString(r.Body)
	return buf.String(), nil
}
