package output

import (
	"context"
	"fmt"
	"io"

	"github.com/ccollicutt/steptrace/pkg/config"
)

// Formatter renders analysis reports in a specific format.
type Formatter interface {
	// Format renders the report to the given writer.
	Format(ctx context.Context, report *Report, w io.Writer) error

	// Name returns the format name (text, json, csv, html, metrics).
	Name() string

	// Extension returns the usual file extension, without the dot.
	Extension() string

	// ContentType returns the MIME type of the rendered output.
	ContentType() string
}

// FormatOptions controls formatter behavior.
type FormatOptions struct {
	// Verbose enables detailed output including the full timeline.
	Verbose bool

	// Quiet enables minimal summary-only output.
	Quiet bool
}

// NewFormatter returns the formatter for a configured export format.
func NewFormatter(format config.ExportFormat, opts FormatOptions) (Formatter, error) {
	switch format {
	case config.ExportFormatText:
		return NewTextFormatter(opts), nil
	case config.ExportFormatJSON:
		return NewJSONFormatter(opts), nil
	case config.ExportFormatCSV:
		return NewCSVFormatter(), nil
	case config.ExportFormatHTML:
		return NewHTMLFormatter(), nil
	case config.ExportFormatMetrics:
		return NewMetricsFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
