package batch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// Summary counts the outcomes of one run.
type Summary struct {
	RunID    string
	Total    int
	Skipped  int
	Accepted int
	Absent   int
	Failed   int
	Elapsed  time.Duration
}

func (s *Summary) add(o Outcome) {
	switch {
	case o.Skipped:
		s.Skipped++
	case o.Err != nil:
		s.Failed++
	case o.Result == nil:
		s.Absent++
	default:
		s.Accepted++
	}
}

// Processed returns the number of images the engine ran on.
func (s Summary) Processed() int {
	return s.Total - s.Skipped
}

var (
	summaryTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	summaryLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0")).Width(10)
	summaryOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	summaryFail  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	summaryMuted = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	summaryBox   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// Render formats the summary as a bordered block for a terminal.
func (s Summary) Render() string {
	failed := summaryMuted
	if s.Failed > 0 {
		failed = summaryFail
	}

	rows := []string{
		summaryTitle.Render(fmt.Sprintf("RUN · %s", shortID(s.RunID))),
		row("images", summaryMuted, humanize.Comma(int64(s.Total))),
		row("accepted", summaryOK, humanize.Comma(int64(s.Accepted))),
		row("absent", summaryMuted, humanize.Comma(int64(s.Absent))),
		row("failed", failed, humanize.Comma(int64(s.Failed))),
	}
	if s.Skipped > 0 {
		rows = append(rows, row("skipped", summaryMuted, humanize.Comma(int64(s.Skipped))))
	}
	rows = append(rows, row("elapsed", summaryMuted, s.Elapsed.Round(time.Millisecond).String()))

	return summaryBox.Render(strings.Join(rows, "\n"))
}

func row(label string, style lipgloss.Style, value string) string {
	return summaryLabel.Render(label) + style.Render(value)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
