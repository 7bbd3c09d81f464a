package output

import (
	"context"
	"encoding/csv"
	"io"
)

// CSVHeader is the first row of every CSV export.
var CSVHeader = []string{"timestamp", "outcome", "message"}

// CSVFormatter writes one row per timeline event. All three outcomes are
// exported, warnings included.
type CSVFormatter struct{}

// NewCSVFormatter creates a new CSV formatter.
func NewCSVFormatter() *CSVFormatter {
	return &CSVFormatter{}
}

// Name returns the format name.
func (f *CSVFormatter) Name() string {
	return "csv"
}

// Extension returns the file extension.
func (f *CSVFormatter) Extension() string {
	return "csv"
}

// ContentType returns the MIME type.
func (f *CSVFormatter) ContentType() string {
	return "text/csv; charset=utf-8"
}

// Format renders the timeline as CSV.
func (f *CSVFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(CSVHeader); err != nil {
		return err
	}

	for _, ev := range report.Events {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := []string{
			ev.Timestamp().Format(TimestampLayout),
			string(ev.Kind()),
			ev.Message(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
