package pipeline

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func scoredRun() *Run {
	return &Run{
		ID:       "0192f3c0-run",
		TargetID: "doc-1",
		Input:    "Reduce onboarding time",
		Ideas: []Idea{
			{PersonaID: "pragmatist", PersonaName: "Pragmatist", Thesis: "Fix access first", PlanSteps: []PlanStep{{Step: "Audit"}, {Step: "Automate"}}},
		},
		Executions: []Execution{
			{ExecutorID: "executor1", Title: "plan-a", Model: "anthropic:claude-sonnet-4-5"},
			{ExecutorID: "executor2", Title: "plan-b"},
		},
		Judgment: &Judgment{
			Scores: map[string]Score{
				"executor1": {Total: 6.5, Notes: "ok | but\nslow"},
				"executor2": {Total: 9, Notes: "best"},
			},
			Winner:      "executor2",
			Synthesis:   strings.Repeat("word ", 100),
			NextActions: []string{"Pilot", "Measure"},
			Sources:     []Source{{Title: "Study", URL: "https://example.com"}},
		},
	}
}

func TestSummary(t *testing.T) {
	summary := Summary(scoredRun())

	for _, want := range []string{
		"# Run 0192f3c0-run",
		"## Input\n\nReduce onboarding time",
		"### Pragmatist (`pragmatist`)",
		"1. Audit\n2. Automate",
		"- **plan-a** by `executor1` (anthropic:claude-sonnet-4-5)",
		"| Executor | Total | Notes |",
		"| executor1 | 6.50 | ok \\| but slow |",
		"Winner: **executor2**",
		"## Synthesis",
		"## Next Actions\n\n1. Pilot\n2. Measure",
		"- [Study](https://example.com)",
	} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}

	first := strings.Index(summary, "| executor2 |")
	second := strings.Index(summary, "| executor1 |")
	if first < 0 || second < 0 || first > second {
		t.Error("scores should be sorted by total, highest first")
	}
	if strings.Contains(summary, JudgmentUnavailable) {
		t.Error("judged run should not carry the unavailable note")
	}
}

func TestSummary_WithoutJudgment(t *testing.T) {
	run := scoredRun()
	run.Judgment = nil
	summary := Summary(run)

	if !strings.Contains(summary, JudgmentUnavailable) {
		t.Error("missing judgment-unavailable note")
	}
	if strings.Contains(summary, "## Scores") {
		t.Error("no scores table without a judgment")
	}
}

func TestCallout(t *testing.T) {
	t.Run("names winner and truncates synthesis", func(t *testing.T) {
		callout := Callout(scoredRun())
		lines := strings.Split(strings.TrimRight(callout, "\n"), "\n")
		if len(lines) != 3 {
			t.Fatalf("callout lines = %d:\n%s", len(lines), callout)
		}
		if !strings.HasPrefix(lines[0], "> [!summary]") {
			t.Errorf("header = %q", lines[0])
		}
		if lines[1] != "> Winner: **executor2**" {
			t.Errorf("winner line = %q", lines[1])
		}
		excerpt := strings.TrimPrefix(lines[2], "> ")
		if n := utf8.RuneCountInString(excerpt); n > calloutSynthesisLen {
			t.Errorf("excerpt is %d runes, want <= %d", n, calloutSynthesisLen)
		}
		if !strings.HasSuffix(excerpt, "...") {
			t.Errorf("excerpt should be marked truncated: %q", excerpt)
		}
	})

	t.Run("without judgment", func(t *testing.T) {
		run := scoredRun()
		run.Judgment = nil
		callout := Callout(run)
		if !strings.Contains(callout, JudgmentUnavailable) || !strings.Contains(callout, "1 ideas, 2 executions") {
			t.Errorf("callout = %q", callout)
		}
	})
}
