package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"voiceqa/internal/domain"
)

var (
	colorSuccess = lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#66bb6a"}
	colorError   = lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#ef5350"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#e65100", Dark: "#ffa726"}
	colorInfo    = lipgloss.AdaptiveColor{Light: "#0277bd", Dark: "#4fc3f7"}
	colorAccent  = lipgloss.AdaptiveColor{Light: "#6a1b9a", Dark: "#ce93d8"}
	colorBorder  = lipgloss.AdaptiveColor{Light: "#bdbdbd", Dark: "#616161"}
)

var (
	boldStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	statusStyle  = lipgloss.NewStyle().Foreground(colorInfo).Faint(true)
	questionTag  = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)

	answerBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
)

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, successStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, errorStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, warningStyle.Render("⚠ "+fmt.Sprintf(format, args...)))
}

func printStatus(w io.Writer, label string, format string, args ...any) {
	fmt.Fprintf(w, "  %s %s\n", boldStyle.Render(label+":"), fmt.Sprintf(format, args...))
}

// renderResponse prints the answer and, when exactly three were parsed, the
// numbered follow-up suggestions.
func renderResponse(w io.Writer, question string, resp *domain.ParsedResponse) {
	if question != "" {
		fmt.Fprintf(w, "%s %s\n", questionTag.Render("Q:"), question)
	}

	answer := resp.Answer
	if answer == "" {
		answer = dimStyle.Render("(empty answer)")
	}
	fmt.Fprintln(w, answerBox.Render(answer))

	suggestions := resp.Suggestions()
	if len(suggestions) == 0 {
		return
	}

	var b strings.Builder
	b.WriteString(boldStyle.Render("Follow-up questions:"))
	for i, s := range suggestions {
		fmt.Fprintf(&b, "\n  %s %s", questionTag.Render(fmt.Sprintf("%d)", i+1)), s)
	}
	fmt.Fprintln(w, b.String())
}

// consoleNotifier prints status lines from the Assistant.
type consoleNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func newConsoleNotifier(w io.Writer) *consoleNotifier {
	return &consoleNotifier{w: w}
}

func (n *consoleNotifier) Notify(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, err := fmt.Fprintln(n.w, statusStyle.Render("… "+message))
	return err
}
