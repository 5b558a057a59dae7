package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/a2a-aptos/bidagent/internal/logging"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View agent logs",
	Long: `View and filter the agent's log file (logging.dir/bidagent.log).

Examples:
  # Show the last 50 lines
  bidagent logs

  # Follow logs in real-time
  bidagent logs -f

  # Only warnings and errors from the last hour
  bidagent logs --level warn --since 1h

  # Everything the checkpoint store logged about one task
  bidagent logs --component checkpoint --grep task-1a2b`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	logsTail      int
	logsFollow    bool
	logsLevel     string
	logsSince     string
	logsGrep      string
	logsComponent string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of lines to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter logs matching pattern (regex)")
	logsCmd.Flags().StringVar(&logsComponent, "component", "", "Only show entries from this component (monitor, bidder, feed, checkpoint)")
}

// logEntry is a parsed JSON log line.
type logEntry struct {
	Time      time.Time      `json:"time"`
	Level     string         `json:"level"`
	Msg       string         `json:"msg"`
	Component string         `json:"component,omitempty"`
	TaskID    string         `json:"task_id,omitempty"`
	Extra     map[string]any `json:"-"`
}

// knownLogFields are decoded into logEntry fields rather than Extra.
var knownLogFields = []string{"time", "level", "msg", "component", "task_id"}

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

// logFilter selects which entries are displayed.
type logFilter struct {
	minLevel  int
	since     time.Time
	grep      *regexp.Regexp
	component string
}

var (
	logTimeStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	logFieldStyle = lipgloss.NewStyle().Foreground(colorPrimary)
	logLevelStyle = map[string]lipgloss.Style{
		logging.LevelDebug: lipgloss.NewStyle().Foreground(colorMuted),
		logging.LevelInfo:  lipgloss.NewStyle().Foreground(colorSecondary),
		logging.LevelWarn:  lipgloss.NewStyle().Foreground(colorWarning),
		logging.LevelError: lipgloss.NewStyle().Foreground(colorError).Bold(true),
	}
)

// levelPriority orders levels for filtering; unknown levels sort first.
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

func formatLogEntry(entry *logEntry) string {
	var sb strings.Builder

	sb.WriteString(logTimeStyle.Render("[" + entry.Time.Local().Format("15:04:05.000") + "]"))
	sb.WriteString(" ")
	level := strings.ToUpper(entry.Level)
	sb.WriteString(logLevelStyle[level].Render("[" + level + "]"))
	sb.WriteString(" ")
	sb.WriteString(entry.Msg)

	if entry.Component != "" {
		sb.WriteString(" " + logFieldStyle.Render("component=") + entry.Component)
	}
	if entry.TaskID != "" {
		sb.WriteString(" " + logFieldStyle.Render("task_id=") + entry.TaskID)
	}

	keys := make([]string, 0, len(entry.Extra))
	for k := range entry.Extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		sb.WriteString(" " + logFieldStyle.Render(k+"=") + fmt.Sprintf("%v", entry.Extra[k]))
	}

	return sb.String()
}

func (f logFilter) pass(entry *logEntry) bool {
	if f.minLevel >= 0 && levelPriority(entry.Level) < f.minLevel {
		return false
	}
	if !f.since.IsZero() && entry.Time.Before(f.since) {
		return false
	}
	if f.component != "" && entry.Component != f.component {
		return false
	}
	if f.grep != nil {
		searchText := entry.Msg + " " + entry.TaskID
		for _, v := range entry.Extra {
			searchText += " " + fmt.Sprintf("%v", v)
		}
		if !f.grep.MatchString(searchText) {
			return false
		}
	}
	return true
}

// render returns the display form of one raw line, or false if it is
// filtered out. Lines that are not JSON are shown as-is.
func (f logFilter) render(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	var entry logEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return line, true
	}
	if !f.pass(&entry) {
		return "", false
	}
	return formatLogEntry(&entry), true
}

func buildLogFilter() (logFilter, error) {
	f := logFilter{minLevel: -1, component: logsComponent}
	if logsLevel != "" {
		f.minLevel = levelPriority(logging.ParseLevel(logsLevel))
	}
	if logsSince != "" {
		d, err := time.ParseDuration(logsSince)
		if err != nil {
			return f, fmt.Errorf("invalid duration format: %w", err)
		}
		f.since = time.Now().Add(-d)
	}
	if logsGrep != "" {
		re, err := regexp.Compile(logsGrep)
		if err != nil {
			return f, fmt.Errorf("invalid grep pattern: %w", err)
		}
		f.grep = re
	}
	return f, nil
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if cfg.Logging.Dir == "" {
		fmt.Fprintln(out, "Logging goes to stderr. Set logging.dir to keep a log file.")
		return nil
	}

	logPath := filepath.Join(cfg.Logging.Dir, logging.LogFileName)
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Fprintf(out, "No logs found at %s\n", logPath)
		return nil
	}

	filter, err := buildLogFilter()
	if err != nil {
		return err
	}

	if logsFollow {
		return followLogs(cmd.Context(), out, logPath, filter)
	}
	return displayLogs(out, logPath, logsTail, filter)
}

// displayLogs prints the last tail matching entries of the log file.
func displayLogs(out io.Writer, logPath string, tail int, filter logFilter) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	var entries []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if s, ok := filter.render(scanner.Text()); ok {
			entries = append(entries, s)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading log file: %w", err)
	}

	if tail > 0 && len(entries) > tail {
		entries = entries[len(entries)-tail:]
	}
	for _, entry := range entries {
		fmt.Fprintln(out, entry)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No matching log entries found.")
	}
	return nil
}

// followLogs prints entries appended to the log file until ctx is done.
func followLogs(ctx context.Context, out io.Writer, logPath string, filter logFilter) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	fmt.Fprintf(out, "Following %s... (Ctrl+C to stop)\n\n", logPath)

	reader := bufio.NewReader(file)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	var partial string
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			// Keep an unterminated tail until the rest of the line arrives
			partial += line
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("error reading log file: %w", err)
		}
		line, partial = partial+line, ""
		if s, ok := filter.render(line); ok {
			fmt.Fprintln(out, s)
		}
	}
}
