package pipeline

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"

	"github.com/Iron-Ham/conclave/internal/frontmatter"
	"github.com/Iron-Ham/conclave/internal/util"
)

// ideaMeta mirrors the idea frontmatter. List fields stay untyped because
// models emit scalars, lists and objects interchangeably.
type ideaMeta struct {
	PersonaName string `mapstructure:"persona_name"`
	Persona     string `mapstructure:"persona"`
	Thesis      string `mapstructure:"thesis"`
	Plan        any    `mapstructure:"plan"`
	PlanSteps   any    `mapstructure:"plan_steps"`
	Risks       any    `mapstructure:"risks"`
	AntiPlan    any    `mapstructure:"anti_plan"`
	Falsifiers  any    `mapstructure:"falsifiers"`
	Sources     any    `mapstructure:"sources"`
}

type stepMeta struct {
	Step      string `mapstructure:"step"`
	Title     string `mapstructure:"title"`
	Rationale string `mapstructure:"rationale"`
	Artifact  string `mapstructure:"artifact"`
}

type judgmentMeta struct {
	Rubric      map[string]any `mapstructure:"rubric"`
	Scores      map[string]any `mapstructure:"scores"`
	Winner      string         `mapstructure:"winner"`
	Synthesis   string         `mapstructure:"synthesis"`
	NextActions any            `mapstructure:"next_actions"`
	Sources     any            `mapstructure:"sources"`
}

// decode fills out from a metadata map, coercing loose scalars.
func decode(in any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

// toIdea converts a parsed idea document. The configured task ID is the
// persona ID; the document's own persona fields only supply the name.
func toIdea(task Task, parsed *frontmatter.Result) Idea {
	var meta ideaMeta
	if err := decode(parsed.Metadata, &meta); err != nil {
		meta = ideaMeta{
			PersonaName: cast.ToString(parsed.Metadata["persona_name"]),
			Persona:     cast.ToString(parsed.Metadata["persona"]),
			Thesis:      cast.ToString(parsed.Metadata["thesis"]),
			Plan:        parsed.Metadata["plan"],
			PlanSteps:   parsed.Metadata["plan_steps"],
			Risks:       parsed.Metadata["risks"],
			AntiPlan:    parsed.Metadata["anti_plan"],
			Falsifiers:  parsed.Metadata["falsifiers"],
			Sources:     parsed.Metadata["sources"],
		}
	}

	name := firstNonBlank(meta.PersonaName, meta.Persona, task.displayName())

	steps := planSteps(meta.Plan)
	if len(steps) == 0 {
		steps = planSteps(meta.PlanSteps)
	}
	if len(steps) == 0 {
		steps = bodySteps(parsed.Body)
	}

	return Idea{
		PersonaID:   task.ID,
		PersonaName: name,
		Thesis:      strings.TrimSpace(meta.Thesis),
		PlanSteps:   steps,
		Risks:       stringList(meta.Risks),
		AntiPlan:    stringList(meta.AntiPlan),
		Falsifiers:  stringList(meta.Falsifiers),
		Sources:     sourceList(meta.Sources),
		Body:        parsed.Body,
	}
}

// planSteps reads a frontmatter plan: a list of strings or of
// {step, rationale, artifact} objects.
func planSteps(v any) []PlanStep {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var steps []PlanStep
	for _, item := range items {
		switch it := item.(type) {
		case map[string]any:
			var sm stepMeta
			if err := decode(it, &sm); err != nil {
				continue
			}
			text := firstNonBlank(sm.Step, sm.Title)
			if text == "" {
				continue
			}
			steps = append(steps, PlanStep{
				Step:      text,
				Rationale: strings.TrimSpace(sm.Rationale),
				Artifact:  strings.TrimSpace(sm.Artifact),
			})
		default:
			if s := strings.TrimSpace(cast.ToString(it)); s != "" {
				steps = append(steps, PlanStep{Step: s})
			}
		}
	}
	return steps
}

var (
	stepHeading  = regexp.MustCompile(`(?i)^#{2,4}\s*step\s*(\d+)\s*[:.)\-]?\s*(.*)$`)
	planHeading  = regexp.MustCompile(`(?i)^#{1,3}\s*(?:the\s+)?plan\b`)
	anyHeading   = regexp.MustCompile(`^#{1,6}\s`)
	numberedItem = regexp.MustCompile(`^\s*\d+[.)]\s+(.+)$`)
	labelLine    = regexp.MustCompile(`(?i)^\s*[-*]?\s*\**\s*(rationale|why|artifact|output|deliverable)\s*\**\s*:\s*\**\s*(.+)$`)
)

// bodySteps recovers plan steps from the markdown body: "### Step N: ..."
// headings with optional Rationale/Artifact lines, or numbered items under
// a "## Plan" heading.
func bodySteps(body string) []PlanStep {
	lines := strings.Split(body, "\n")

	var steps []PlanStep
	var current *PlanStep
	flush := func() {
		if current != nil && current.Step != "" {
			steps = append(steps, *current)
		}
		current = nil
	}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if m := stepHeading.FindStringSubmatch(trimmed); m != nil {
			flush()
			current = &PlanStep{Step: cleanInline(m[2])}
			continue
		}
		if current == nil {
			continue
		}
		if anyHeading.MatchString(trimmed) {
			flush()
			continue
		}
		if m := labelLine.FindStringSubmatch(trimmed); m != nil {
			applyLabel(current, m[1], cleanInline(m[2]))
			continue
		}
		if current.Step == "" && trimmed != "" {
			current.Step = cleanInline(trimmed)
		}
	}
	flush()
	if len(steps) > 0 {
		return steps
	}

	inPlan := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if anyHeading.MatchString(trimmed) {
			if inPlan && len(steps) > 0 {
				break
			}
			inPlan = planHeading.MatchString(trimmed)
			continue
		}
		if !inPlan {
			continue
		}
		if m := numberedItem.FindStringSubmatch(line); m != nil {
			steps = append(steps, PlanStep{Step: cleanInline(m[1])})
			continue
		}
		if m := labelLine.FindStringSubmatch(trimmed); m != nil && len(steps) > 0 {
			applyLabel(&steps[len(steps)-1], m[1], cleanInline(m[2]))
		}
	}
	return steps
}

func applyLabel(step *PlanStep, label, value string) {
	switch strings.ToLower(label) {
	case "rationale", "why":
		step.Rationale = value
	default:
		step.Artifact = value
	}
}

// cleanInline strips markdown emphasis around a fragment.
func cleanInline(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*_`"))
}

// stringList flattens a scalar or list into non-blank strings. Objects
// contribute their first text-like field.
func stringList(v any) []string {
	var out []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	switch t := v.(type) {
	case nil:
	case []any:
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				add(firstNonBlank(
					cast.ToString(m["text"]),
					cast.ToString(m["title"]),
					cast.ToString(m["step"]),
					cast.ToString(m["action"]),
				))
				continue
			}
			add(cast.ToString(item))
		}
	case []string:
		for _, s := range t {
			add(s)
		}
	default:
		add(cast.ToString(t))
	}
	return out
}

// sourceList reads [{title, url}] items; bare strings are taken as URLs.
// Entries without a URL are dropped.
func sourceList(v any) []Source {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []Source
	for _, item := range items {
		var src Source
		switch it := item.(type) {
		case map[string]any:
			src = Source{
				Title: strings.TrimSpace(cast.ToString(it["title"])),
				URL:   strings.TrimSpace(cast.ToString(it["url"])),
			}
		default:
			src = Source{URL: strings.TrimSpace(cast.ToString(it))}
		}
		if src.URL == "" {
			continue
		}
		if src.Title == "" {
			src.Title = src.URL
		}
		out = append(out, src)
	}
	return out
}

// toExecution builds an execution from raw executor output. Frontmatter is
// optional: only a block opening the output is stripped, where it may supply
// the title. Anything else is kept verbatim.
func toExecution(task Task, text string) (Execution, error) {
	content := frontmatter.Unwrap(text)
	title := ""
	if frontmatter.HasLeadingBlock(text) {
		if parsed, ok := frontmatter.Parse(text); ok {
			content = strings.TrimSpace(parsed.Body)
			title = cast.ToString(parsed.Metadata["title"])
		}
	}
	if content == "" {
		return Execution{}, errEmptyContent
	}
	if title == "" {
		title = util.FirstHeading(content, 1)
	}
	return Execution{
		ExecutorID: task.ID,
		Model:      task.Model,
		Content:    content,
		Title:      executionTitle(title, task.ID),
	}, nil
}

// executionTitle sanitizes title, falling back to a name keyed by executor.
func executionTitle(title, executorID string) string {
	if slug := util.Slugify(cleanInline(title), maxTitleLen); slug != "" {
		return slug
	}
	return util.Slugify("execution-"+executorSlug(executorID), maxTitleLen)
}

// toJudgment converts a parsed judgment document. Weights and the winner are
// taken as given.
func toJudgment(parsed *frontmatter.Result) *Judgment {
	var meta judgmentMeta
	if err := decode(parsed.Metadata, &meta); err != nil {
		meta.Rubric, _ = cast.ToStringMapE(parsed.Metadata["rubric"])
		meta.Scores, _ = cast.ToStringMapE(parsed.Metadata["scores"])
		meta.Winner = cast.ToString(parsed.Metadata["winner"])
		meta.Synthesis = cast.ToString(parsed.Metadata["synthesis"])
		meta.NextActions = parsed.Metadata["next_actions"]
		meta.Sources = parsed.Metadata["sources"]
	}

	j := &Judgment{
		Rubric:      weights(meta.Rubric),
		Scores:      make(map[string]Score, len(meta.Scores)),
		Winner:      strings.TrimSpace(meta.Winner),
		Synthesis:   firstNonBlank(meta.Synthesis, parsed.Body),
		NextActions: stringList(meta.NextActions),
		Sources:     sourceList(meta.Sources),
	}
	for id, v := range meta.Scores {
		j.Scores[id] = toScore(v, j.Rubric)
	}
	if j.Winner == "" {
		j.Winner = topScored(j.Scores)
	}
	return j
}

func weights(m map[string]any) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if f, err := cast.ToFloat64E(v); err == nil {
			out[k] = f
		}
	}
	return out
}

// toScore reads one executor's score. The total is the rubric-weighted sum of
// the raw criteria it covers; without rubric coverage the judge's own total is
// used, then the mean of the raw scores.
func toScore(v any, rubric map[string]float64) Score {
	m, err := cast.ToStringMapE(v)
	if err != nil {
		f, ferr := cast.ToFloat64E(v)
		if ferr != nil {
			return Score{Raw: map[string]float64{}}
		}
		return Score{Raw: map[string]float64{}, Total: f}
	}

	s := Score{Raw: make(map[string]float64, len(m))}
	declared, hasDeclared := 0.0, false
	for k, val := range m {
		switch strings.ToLower(k) {
		case "notes", "note", "rationale":
			s.Notes = strings.TrimSpace(cast.ToString(val))
		case "total", "score":
			if f, err := cast.ToFloat64E(val); err == nil {
				declared, hasDeclared = f, true
			}
		default:
			if f, err := cast.ToFloat64E(val); err == nil {
				s.Raw[k] = f
			}
		}
	}

	weighted, covered := 0.0, false
	for criterion, w := range rubric {
		if raw, ok := s.Raw[criterion]; ok {
			weighted += w * raw
			covered = true
		}
	}
	switch {
	case covered:
		s.Total = round2(weighted)
	case hasDeclared:
		s.Total = declared
	case len(s.Raw) > 0:
		sum := 0.0
		for _, raw := range s.Raw {
			sum += raw
		}
		s.Total = round2(sum / float64(len(s.Raw)))
	}
	return s
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

// topScored returns the highest-total executor, ties broken by ID.
func topScored(scores map[string]Score) string {
	ids := sortedByTotal(scores)
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

// sortedByTotal orders executor IDs by descending total, then ascending ID.
func sortedByTotal(scores map[string]Score) []string {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool {
		ta, tb := scores[ids[a]].Total, scores[ids[b]].Total
		if ta != tb {
			return ta > tb
		}
		return ids[a] < ids[b]
	})
	return ids
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
