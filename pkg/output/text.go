package output

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ccollicutt/steptrace/pkg/parser"
)

// TimestampLayout is how timestamps appear in text, CSV and HTML output.
const TimestampLayout = "2006-01-02 15:04:05.000"

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Extension returns the file extension.
func (f *TextFormatter) Extension() string {
	return "txt"
}

// ContentType returns the MIME type.
func (f *TextFormatter) ContentType() string {
	return "text/plain; charset=utf-8"
}

// textStyles colours outcomes. The renderer drops colour when w is not a
// terminal, so files and pipes get plain text.
type textStyles struct {
	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
	label   lipgloss.Style
}

func newTextStyles(w io.Writer) textStyles {
	r := lipgloss.NewRenderer(w)
	return textStyles{
		success: r.NewStyle().Foreground(lipgloss.Color("42")),
		failure: r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		warning: r.NewStyle().Foreground(lipgloss.Color("220")),
		label:   r.NewStyle().Faint(true),
	}
}

func (s textStyles) kind(k parser.Kind) lipgloss.Style {
	switch k {
	case parser.KindError:
		return s.failure
	case parser.KindWarning:
		return s.warning
	default:
		return s.success
	}
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	s := report.Summary
	_, err := fmt.Fprintf(w, "%s: %d steps, %d succeeded, %d failed, %d warnings, %.1f%% success\n",
		report.Metadata.Source,
		s.TotalSteps,
		s.SuccessCount,
		s.FailureCount,
		s.WarningCount,
		s.SuccessRate)
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	st := newTextStyles(w)
	s := report.Summary
	var b strings.Builder

	b.WriteString("=== Deployment Step Report ===\n")
	fmt.Fprintf(&b, "Source: %s\n\n", report.Metadata.Source)

	row := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", st.label.Render(fmt.Sprintf("%-12s", label+":")), value)
	}

	row("Steps", fmt.Sprintf("%d (%s, %s)",
		s.TotalSteps,
		st.success.Render(fmt.Sprintf("%d succeeded", s.SuccessCount)),
		st.failure.Render(fmt.Sprintf("%d failed", s.FailureCount))))
	row("Warnings", st.warning.Render(fmt.Sprintf("%d", s.WarningCount)))
	row("Success", fmt.Sprintf("%.1f%%", s.SuccessRate))

	if s.StartTime != nil {
		row("Started", s.StartTime.Format(TimestampLayout))
		row("Finished", s.EndTime.Format(TimestampLayout))
	}
	row("Duration", formatDuration(s.TotalDuration))
	row("Avg step", formatDuration(s.AverageStepDuration))

	if len(s.ErrorCodes) > 0 {
		row("Error codes", strings.Join(s.ErrorCodes, ", "))
	}

	if failed := failedSteps(report.Events); len(failed) > 0 {
		b.WriteString("\nFailed steps:\n")
		for _, ev := range failed {
			f.formatEvent(&b, st, ev)
		}
	}

	if f.opts.Verbose && len(report.Events) > 0 {
		b.WriteString("\nTimeline:\n")
		for _, ev := range report.Events {
			f.formatEvent(&b, st, ev)
		}
		fmt.Fprintf(&b, "\nLines read: %d\n", report.Metadata.LinesRead)
		fmt.Fprintf(&b, "Analysis took: %s\n", report.Metadata.Elapsed.Round(time.Millisecond))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (f *TextFormatter) formatEvent(b *strings.Builder, st textStyles, ev parser.LogEvent) {
	label := st.kind(ev.Kind()).Render(fmt.Sprintf("%-7s", ev.Kind()))
	fmt.Fprintf(b, "  %s %s %s", ev.Timestamp().Format(TimestampLayout), label, ev.Message())
	if code, ok := ev.ErrorCode(); ok {
		fmt.Fprintf(b, " (code %s)", code)
	}
	b.WriteString("\n")
}

func failedSteps(events []parser.LogEvent) []parser.LogEvent {
	var failed []parser.LogEvent
	for _, ev := range events {
		if ev.Kind() == parser.KindError {
			failed = append(failed, ev)
		}
	}
	return failed
}

// formatDuration rounds to milliseconds, the precision of the trace.
func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
