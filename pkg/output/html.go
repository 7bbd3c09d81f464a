package output

import (
	"context"
	"embed"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/ccollicutt/steptrace/pkg/parser"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var htmlTemplate = template.Must(
	template.New("report.html.tmpl").
		Funcs(template.FuncMap{
			"timestamp": formatTimestamp,
			"duration":  formatDuration,
			"stepClass": stepClass,
		}).
		ParseFS(templateFS, "templates/report.html.tmpl"),
)

// HTMLFormatter renders a standalone HTML document.
type HTMLFormatter struct{}

// NewHTMLFormatter creates a new HTML formatter.
func NewHTMLFormatter() *HTMLFormatter {
	return &HTMLFormatter{}
}

// Name returns the format name.
func (f *HTMLFormatter) Name() string {
	return "html"
}

// Extension returns the file extension.
func (f *HTMLFormatter) Extension() string {
	return "html"
}

// ContentType returns the MIME type.
func (f *HTMLFormatter) ContentType() string {
	return "text/html; charset=utf-8"
}

// Format renders the report as HTML. Messages are escaped.
func (f *HTMLFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return htmlTemplate.Execute(w, report)
}

// stepClass maps a kind to its row class, e.g. "step-error".
func stepClass(k parser.Kind) string {
	return "step-" + strings.ToLower(string(k))
}

func formatTimestamp(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format(TimestampLayout)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format(TimestampLayout)
	default:
		return ""
	}
}
