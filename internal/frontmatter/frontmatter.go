// Package frontmatter recovers a metadata map and markdown body from model
// output that is supposed to start with a YAML frontmatter block.
//
// Model authors rarely emit valid YAML, so parsing is a cascade:
// the raw text is unwrapped from a markdown fence, the delimiters are located
// (tolerating a short preamble), and an ordered list of [Strategy] values is
// tried against the block. The first strategy that succeeds wins. Parsing
// never panics and never returns an error; callers get (nil, false) when the
// output is unusable.
package frontmatter

// Result is a parsed document.
type Result struct {
	Metadata map[string]any
	Body     string
}

// Block is the located frontmatter block handed to each strategy.
type Block struct {
	// Raw is the text between the delimiters, unsanitized.
	Raw string
	// Body is everything after the closing delimiter.
	Body string
}

// Strategy attempts to recover metadata from a block. Strategies are pure
// functions and must not panic.
type Strategy func(Block) (map[string]any, bool)

// Parser runs its strategies in order against located blocks.
type Parser struct {
	strategies []Strategy
}

// New returns a Parser using the default cascade: sanitized YAML decoding,
// then a targeted regex scan that succeeds only when req holds.
func New(req Requirement) *Parser {
	if req == nil {
		req = RequireNothing
	}
	return &Parser{strategies: []Strategy{DecodeYAML, RegexFallback(req)}}
}

// NewWithStrategies returns a Parser that uses exactly the given strategies.
func NewWithStrategies(strategies ...Strategy) *Parser {
	return &Parser{strategies: strategies}
}

// Parse recovers metadata and body from raw model output.
func (p *Parser) Parse(raw string) (res *Result, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			res, ok = nil, false
		}
	}()

	block, found := Locate(Unwrap(raw))
	if !found {
		return nil, false
	}

	for _, strategy := range p.strategies {
		if meta, ok := strategy(block); ok {
			if meta == nil {
				meta = map[string]any{}
			}
			return &Result{Metadata: meta, Body: block.Body}, true
		}
	}
	return nil, false
}

// Parse runs the default cascade with no field requirement.
func Parse(raw string) (*Result, bool) {
	return New(RequireNothing).Parse(raw)
}
