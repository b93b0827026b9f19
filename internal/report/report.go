// Package report prints the outcome of a build for humans.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/specialistvlad/formulagrid/internal/executor"
)

// DefaultTailLines is how many lines of a failing step's output are shown.
const DefaultTailLines = 10

// Options controls the report layout.
type Options struct {
	// Color enables styling when w is a terminal that supports it.
	Color bool
	// TailLines caps the output shown per failure; zero means DefaultTailLines.
	TailLines int
}

type styles struct {
	ok, failed, skipped, canceled, muted lipgloss.Style
}

func newStyles(w io.Writer, color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain}
	}
	r := lipgloss.NewRenderer(w)
	return styles{
		ok:       r.NewStyle().Foreground(lipgloss.Color("2")),
		failed:   r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		skipped:  r.NewStyle().Foreground(lipgloss.Color("3")),
		canceled: r.NewStyle().Foreground(lipgloss.Color("5")),
		muted:    r.NewStyle().Faint(true),
	}
}

func (s styles) status(st executor.Status) (lipgloss.Style, string) {
	switch st {
	case executor.Succeeded:
		return s.ok, "✔"
	case executor.Failed:
		return s.failed, "✘"
	case executor.Skipped:
		return s.skipped, "-"
	default:
		return s.canceled, "!"
	}
}

// Write prints one line per result, in the given order, followed by a
// totals line.
func Write(w io.Writer, results []executor.BuildResult, opts Options) error {
	if opts.TailLines <= 0 {
		opts.TailLines = DefaultTailLines
	}
	st := newStyles(w, opts.Color)

	var buf bytes.Buffer
	counts := make(map[executor.Status]int)
	for _, r := range results {
		counts[r.Status]++
		style, mark := st.status(r.Status)
		fmt.Fprintf(&buf, "%s %s %s %s", style.Render(mark), style.Render(fmt.Sprintf("%-9s", r.Status)), r.Name, r.Version)
		if detail := detail(r); detail != "" {
			buf.WriteString(st.muted.Render("  (" + detail + ")"))
		}
		buf.WriteByte('\n')
		for _, line := range tail(r.Output, opts.TailLines) {
			buf.WriteString(st.muted.Render("    | "+line) + "\n")
		}
	}
	fmt.Fprintf(&buf, "%d succeeded, %d failed, %d skipped, %d canceled\n",
		counts[executor.Succeeded], counts[executor.Failed], counts[executor.Skipped], counts[executor.Canceled])

	_, err := w.Write(buf.Bytes())
	return err
}

func detail(r executor.BuildResult) string {
	switch r.Status {
	case executor.Failed:
		var timeout *executor.TimeoutError
		var failure *executor.StepFailure
		switch {
		case errors.As(r.Err, &timeout):
			return fmt.Sprintf("%s step %d timed out after %s", r.Phase, r.FailedStep, timeout.Timeout)
		case errors.As(r.Err, &failure):
			return fmt.Sprintf("%s step %d exited with status %d", r.Phase, r.FailedStep, failure.ExitStatus)
		default:
			return fmt.Sprintf("%s step %d: %v", r.Phase, r.FailedStep, r.Err)
		}
	case executor.Skipped:
		return fmt.Sprintf("dependency %s did not build", r.BlockedBy)
	case executor.Canceled:
		if r.FailedStep >= 0 {
			return fmt.Sprintf("stopped before %s step %d", r.Phase, r.FailedStep)
		}
		return "not started"
	}
	return ""
}

// tail returns the last n non-empty-trailing lines of out.
func tail(out []byte, n int) []string {
	text := strings.TrimRight(string(out), "\n")
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}
