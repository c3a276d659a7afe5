package util

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"truncated", "hello world", 8, "hello..."},
		{"trailing space trimmed", "hello world", 9, "hello..."},
		{"tiny max", "hello", 3, "..."},
		{"runes not bytes", "日本語テキスト", 5, "日本..."},
		{"empty", "", 10, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateString(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}

	long := strings.Repeat("synthesis ", 100)
	if got := TruncateString(long, 280); len([]rune(got)) > 280 {
		t.Errorf("truncated length %d exceeds 280", len([]rune(got)))
	}
}

func TestTruncateANSI(t *testing.T) {
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	if got := TruncateANSI("hello", 10); got != "hello" {
		t.Errorf("got %q", got)
	}
	if got := TruncateANSI("hello world", 8); got != "hello..." {
		t.Errorf("got %q", got)
	}
	if got := TruncateANSI("hello", 2); got != "..." {
		t.Errorf("got %q", got)
	}
	styled := red.Render("hi")
	if got := TruncateANSI(styled, 10); got != styled {
		t.Error("styled string should be unchanged when it fits")
	}
	if w := lipgloss.Width(TruncateANSI(red.Render("hello world"), 8)); w > 8 {
		t.Errorf("width %d exceeds 8", w)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"Reduce Onboarding Time", 50, "reduce-onboarding-time"},
		{"  Plan: Buddy System (v2)!  ", 50, "plan-buddy-system-v2"},
		{"Café déjà vu", 50, "caf-d-j-vu"},
		{"***", 50, ""},
		{"a very long title that keeps going and going beyond fifty characters", 50, "a-very-long-title-that-keeps-going-and-going-beyon"},
		{"trailing hyphen at the cut", 12, "trailing-hyp"},
		{"cut on hyphen boundary", 4, "cut"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Slugify(tt.input, tt.maxLen)
			if got != tt.want {
				t.Errorf("Slugify(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
			if len(got) > tt.maxLen {
				t.Errorf("len %d exceeds %d", len(got), tt.maxLen)
			}
		})
	}
}

func TestFirstHeading(t *testing.T) {
	doc := "intro\n## Sub\n# Buddy Program\n# Second"
	if got := FirstHeading(doc, 1); got != "Buddy Program" {
		t.Errorf("FirstHeading(1) = %q", got)
	}
	if got := FirstHeading(doc, 2); got != "Sub" {
		t.Errorf("FirstHeading(2) = %q", got)
	}
	if got := FirstHeading("no headings", 1); got != "" {
		t.Errorf("FirstHeading = %q", got)
	}
}
