package pipeline

import (
	"fmt"
	"strings"

	"github.com/Iron-Ham/conclave/internal/util"
)

// calloutSynthesisLen bounds the synthesis excerpt in a callout, in runes.
const calloutSynthesisLen = 280

// JudgmentUnavailable is the note written in place of a verdict.
const JudgmentUnavailable = "Judgment unavailable: this summary contains ideas and executions only."

// Assemble builds the run's summary and callout from its stage outputs.
func Assemble(run *Run) Artifacts {
	return Artifacts{Summary: Summary(run), Callout: Callout(run)}
}

// Summary renders the human-readable run document.
func Summary(run *Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Run %s\n\n", run.ID)
	if run.TargetID != "" {
		fmt.Fprintf(&b, "Target: `%s`\n\n", run.TargetID)
	}

	b.WriteString("## Input\n\n")
	b.WriteString(strings.TrimSpace(run.Input))
	b.WriteString("\n\n")

	b.WriteString("## Ideas\n\n")
	if len(run.Ideas) == 0 {
		b.WriteString("No usable ideas.\n\n")
	}
	for _, idea := range run.Ideas {
		fmt.Fprintf(&b, "### %s (`%s`)\n\n", idea.PersonaName, idea.PersonaID)
		if idea.Thesis != "" {
			b.WriteString(idea.Thesis)
			b.WriteString("\n\n")
		}
		for i, step := range idea.PlanSteps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step.Step)
		}
		if len(idea.PlanSteps) > 0 {
			b.WriteString("\n")
		}
	}

	b.WriteString("## Executions\n\n")
	if len(run.Executions) == 0 {
		b.WriteString("No usable executions.\n\n")
	}
	for _, e := range run.Executions {
		fmt.Fprintf(&b, "- **%s** by `%s`", e.Title, e.ExecutorID)
		if e.Model != "" {
			fmt.Fprintf(&b, " (%s)", e.Model)
		}
		b.WriteString("\n")
	}
	if len(run.Executions) > 0 {
		b.WriteString("\n")
	}

	j := run.Judgment
	if j == nil {
		if len(run.Executions) > 0 {
			b.WriteString("> " + JudgmentUnavailable + "\n")
		}
		return b.String()
	}

	b.WriteString("## Scores\n\n")
	b.WriteString("| Executor | Total | Notes |\n")
	b.WriteString("| --- | --- | --- |\n")
	for _, id := range sortedByTotal(j.Scores) {
		s := j.Scores[id]
		fmt.Fprintf(&b, "| %s | %.2f | %s |\n", id, s.Total, tableCell(s.Notes))
	}
	b.WriteString("\n")
	if j.Winner != "" {
		fmt.Fprintf(&b, "Winner: **%s**\n\n", j.Winner)
	}

	b.WriteString("## Synthesis\n\n")
	b.WriteString(strings.TrimSpace(j.Synthesis))
	b.WriteString("\n")

	if len(j.NextActions) > 0 {
		b.WriteString("\n## Next Actions\n\n")
		for i, action := range j.NextActions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, action)
		}
	}

	if len(j.Sources) > 0 {
		b.WriteString("\n## Sources\n\n")
		for _, src := range j.Sources {
			fmt.Fprintf(&b, "- [%s](%s)\n", src.Title, src.URL)
		}
	}
	return b.String()
}

// Callout renders a short block naming the winner and an excerpt of the
// synthesis, for embedding in another document.
func Callout(run *Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "> [!summary] Conclave run %s\n", run.ID)
	j := run.Judgment
	if j == nil {
		fmt.Fprintf(&b, "> %s\n", JudgmentUnavailable)
		fmt.Fprintf(&b, "> %d ideas, %d executions.\n", len(run.Ideas), len(run.Executions))
		return b.String()
	}
	if j.Winner != "" {
		fmt.Fprintf(&b, "> Winner: **%s**\n", j.Winner)
	}
	if excerpt := strings.Join(strings.Fields(j.Synthesis), " "); excerpt != "" {
		fmt.Fprintf(&b, "> %s\n", util.TruncateString(excerpt, calloutSynthesisLen))
	}
	return b.String()
}

func tableCell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
