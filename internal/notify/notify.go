// Package notify delivers short, best-effort status messages to the user.
package notify

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/Iron-Ham/conclave/internal/event"
	"github.com/Iron-Ham/conclave/internal/util"
)

// Sink receives notifications. Notify must not block and must not fail.
type Sink interface {
	Notify(msg string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(msg string)

// Notify implements Sink.
func (f SinkFunc) Notify(msg string) { f(msg) }

// Discard drops every notification.
var Discard Sink = SinkFunc(func(string) {})

// Multi fans a notification out to several sinks.
type Multi []Sink

// Notify implements Sink.
func (m Multi) Notify(msg string) {
	for _, s := range m {
		if s != nil {
			s.Notify(msg)
		}
	}
}

// maxLineWidth caps a rendered notification.
const maxLineWidth = 160

var (
	prefixStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// Terminal writes one line per notification. Lines are styled only when the
// writer is a terminal.
type Terminal struct {
	mu     sync.Mutex
	w      io.Writer
	styled bool
}

// NewTerminal creates a terminal sink on w. A nil w means stderr.
func NewTerminal(w io.Writer) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	styled := false
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		styled = term.IsTerminal(int(f.Fd()))
	}
	return &Terminal{w: w, styled: styled}
}

// Notify implements Sink.
func (t *Terminal) Notify(msg string) {
	msg = strings.TrimSpace(strings.ReplaceAll(msg, "\n", " "))
	prefix := "conclave"
	if t.styled {
		prefix = prefixStyle.Render(prefix)
		switch {
		case strings.Contains(msg, "failed"), strings.Contains(msg, "unavailable"), strings.Contains(msg, "already running"):
			msg = failureStyle.Render(msg)
		case strings.Contains(msg, "complete"):
			msg = successStyle.Render(msg)
		}
	}
	line := util.TruncateANSI(prefix+" "+msg, maxLineWidth)

	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = fmt.Fprintln(t.w, line)
}

// Bridge subscribes sink to the bus and renders lifecycle events as
// notifications. It returns the subscription ID.
func Bridge(bus *event.Bus, sink Sink) string {
	return bus.SubscribeAll(func(e event.Event) {
		if msg := Message(e); msg != "" {
			sink.Notify(msg)
		}
	})
}

// Message renders an event as a one-line notification, or "" for events that
// are not worth surfacing.
func Message(e event.Event) string {
	switch ev := e.(type) {
	case event.RunStartedEvent:
		return fmt.Sprintf("run %s started for %s", ev.RunID, ev.TargetID)
	case event.StageProgressEvent:
		return fmt.Sprintf("%s %d/%d (%s)", ev.Stage, ev.Completed, ev.Total, ev.TaskID)
	case event.StageCompletedEvent:
		return fmt.Sprintf("%s complete: %d of %d usable", ev.Stage, ev.Succeeded, ev.Total)
	case event.JudgmentUnavailableEvent:
		return "judgment unavailable: summary contains ideas and executions only"
	case event.RunCompletedEvent:
		if ev.Winner == "" {
			return fmt.Sprintf("run %s complete", ev.RunID)
		}
		return fmt.Sprintf("run %s complete, winner %s", ev.RunID, ev.Winner)
	case event.RunFailedEvent:
		if ev.Stage != "" {
			return fmt.Sprintf("run %s failed: %s produced no usable output", ev.RunID, ev.Stage)
		}
		return fmt.Sprintf("run %s failed: %v", ev.RunID, ev.Err)
	case event.RunRejectedEvent:
		return fmt.Sprintf("a run is already running for %s", ev.TargetID)
	case event.SettingsUpdatedEvent:
		return fmt.Sprintf("settings reloaded from %s", ev.Source)
	default:
		return ""
	}
}
