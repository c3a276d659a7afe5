package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/conclave/internal/config"
	"github.com/Iron-Ham/conclave/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View run logs",
	Long: `View and filter the Conclave log file.

Examples:
  # Show the last 50 lines
  conclave logs

  # Show everything logged for one run
  conclave logs --run 01920c6e-... -n 0

  # Follow warnings for a target as they happen
  conclave logs -f --level warn --target notes/onboarding.md

  # Show logs from the last hour matching a pattern
  conclave logs --since 1h --grep "rate limit|429"`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	logsRun    string
	logsTarget string
	logsTail   int
	logsFollow bool
	logsLevel  string
	logsSince  string
	logsGrep   string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVar(&logsRun, "run", "", "Only show entries for this run ID")
	logsCmd.Flags().StringVar(&logsTarget, "target", "", "Only show entries for this target ID")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of lines to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter logs matching pattern (regex)")
}

// logEntry is one parsed JSON log line.
type logEntry struct {
	Time     time.Time      `json:"time"`
	Level    string         `json:"level"`
	Msg      string         `json:"msg"`
	RunID    string         `json:"run_id,omitempty"`
	TargetID string         `json:"target_id,omitempty"`
	Stage    string         `json:"stage,omitempty"`
	TaskID   string         `json:"task_id,omitempty"`
	Extra    map[string]any `json:"-"`
}

var knownLogFields = []string{"time", "level", "msg", "run_id", "target_id", "stage", "task_id"}

// UnmarshalJSON keeps unknown attributes in Extra.
func (e *logEntry) UnmarshalJSON(data []byte) error {
	type alias logEntry
	if err := json.Unmarshal(data, (*alias)(e)); err != nil {
		return err
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range knownLogFields {
		delete(all, k)
	}
	if len(all) > 0 {
		e.Extra = all
	}
	return nil
}

// logFilter selects entries for display.
type logFilter struct {
	minLevel int
	since    time.Time
	runID    string
	targetID string
	grep     *regexp.Regexp
}

var (
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	fieldStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	levelStyle = map[string]lipgloss.Style{
		logging.LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		logging.LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		logging.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		logging.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
)

// levelPriority returns the priority of a log level for filtering
func levelPriority(level string) int {
	switch strings.ToUpper(level) {
	case logging.LevelDebug:
		return 0
	case logging.LevelInfo:
		return 1
	case logging.LevelWarn:
		return 2
	case logging.LevelError:
		return 3
	default:
		return -1
	}
}

// formatLogEntry renders an entry as a single terminal line.
func formatLogEntry(entry *logEntry) string {
	level := strings.ToUpper(entry.Level)
	style, ok := levelStyle[level]
	if !ok {
		style = lipgloss.NewStyle()
	}

	var sb strings.Builder
	sb.WriteString(timeStyle.Render("[" + entry.Time.Format("15:04:05.000") + "]"))
	sb.WriteString(" ")
	sb.WriteString(style.Render("[" + level + "]"))
	sb.WriteString(" ")
	sb.WriteString(entry.Msg)

	for _, kv := range [][2]string{
		{"run_id", entry.RunID},
		{"stage", entry.Stage},
		{"task_id", entry.TaskID},
	} {
		if kv[1] != "" {
			sb.WriteString(" ")
			sb.WriteString(fieldStyle.Render(kv[0] + "=" + kv[1]))
		}
	}

	keys := make([]string, 0, len(entry.Extra))
	for k := range entry.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(" ")
		sb.WriteString(fieldStyle.Render(k + "="))
		sb.WriteString(fmt.Sprintf("%v", entry.Extra[k]))
	}

	return sb.String()
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	opts, ok := cfg.LogOptions()
	if !ok {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Logging is disabled (logging.enabled: false).")
		return nil
	}
	logPath := filepath.Join(opts.Dir, logging.LogFileName)

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No logs found at %s\n", logPath)
		return nil
	}

	filter, err := newLogFilter(logsLevel, logsSince, logsGrep, time.Now())
	if err != nil {
		return err
	}
	filter.runID = logsRun
	filter.targetID = logsTarget

	if logsFollow {
		return followLogs(cmd, logPath, filter)
	}

	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return displayLogs(cmd.OutOrStdout(), file, logsTail, filter)
}

func newLogFilter(level, since, grep string, now time.Time) (logFilter, error) {
	f := logFilter{minLevel: -1}
	if level != "" {
		f.minLevel = levelPriority(logging.ParseLevel(level))
	}
	if since != "" {
		d, err := time.ParseDuration(since)
		if err != nil {
			return f, fmt.Errorf("invalid duration format: %w", err)
		}
		f.since = now.Add(-d)
	}
	if grep != "" {
		re, err := regexp.Compile(grep)
		if err != nil {
			return f, fmt.Errorf("invalid grep pattern: %w", err)
		}
		f.grep = re
	}
	return f, nil
}

// displayLogs writes the last tail matching entries of r.
func displayLogs(w io.Writer, r io.Reader, tail int, filter logFilter) error {
	var lines []string
	scanner := bufio.NewScanner(r)

	// Increase buffer size for potentially long log lines
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if line, ok := renderLine(scanner.Text(), filter); ok {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading log file: %w", err)
	}

	if tail > 0 && len(lines) > tail {
		lines = lines[len(lines)-tail:]
	}
	for _, line := range lines {
		_, _ = fmt.Fprintln(w, line)
	}
	if len(lines) == 0 {
		_, _ = fmt.Fprintln(w, "No matching log entries found.")
	}
	return nil
}

// followLogs implements tail -f behavior for the log file
func followLogs(cmd *cobra.Command, logPath string, filter logFilter) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprint(out, "Following logs... (Ctrl+C to stop)\n\n")

	ctx := cmd.Context()
	reader := bufio.NewReader(file)
	var pending string
	for {
		chunk, err := reader.ReadString('\n')
		pending += chunk
		if err == io.EOF {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("error reading log file: %w", err)
		}
		line := pending
		pending = ""
		if rendered, ok := renderLine(line, filter); ok {
			_, _ = fmt.Fprintln(out, rendered)
		}
	}
}

// renderLine parses and filters one raw line. Lines that are not JSON are
// shown verbatim.
func renderLine(line string, filter logFilter) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	var entry logEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return line, true
	}
	if !filter.matches(&entry) {
		return "", false
	}
	return formatLogEntry(&entry), true
}

// matches checks if a log entry passes all filter criteria
func (f logFilter) matches(entry *logEntry) bool {
	if f.minLevel >= 0 && levelPriority(entry.Level) < f.minLevel {
		return false
	}
	if !f.since.IsZero() && entry.Time.Before(f.since) {
		return false
	}
	if f.runID != "" && entry.RunID != f.runID {
		return false
	}
	if f.targetID != "" && entry.TargetID != f.targetID {
		return false
	}
	if f.grep != nil {
		text := entry.Msg
		for _, v := range entry.Extra {
			text += " " + fmt.Sprintf("%v", v)
		}
		if !f.grep.MatchString(text) {
			return false
		}
	}
	return true
}
