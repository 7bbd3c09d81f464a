package output

import (
	"testing"
	"time"

	"github.com/ccollicutt/steptrace/pkg/analyzer"
	"github.com/ccollicutt/steptrace/pkg/parser"
)

var testStart = time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

func mustEvent(t *testing.T, kind parser.Kind, offset time.Duration, message, code string) parser.LogEvent {
	t.Helper()
	ev, err := parser.NewLogEvent(kind, testStart.Add(offset), message, code)
	if err != nil {
		t.Fatalf("NewLogEvent() error = %v", err)
	}
	return ev
}

// createTestReport builds a report with two successes, one failure and one
// warning spread over two minutes.
func createTestReport(t *testing.T) *Report {
	t.Helper()
	events := []parser.LogEvent{
		mustEvent(t, parser.KindSuccess, 0, "Install Agent", ""),
		mustEvent(t, parser.KindWarning, 30*time.Second, "Disk space low", ""),
		mustEvent(t, parser.KindError, time.Minute, "Install Office failed", "0x80004005"),
		mustEvent(t, parser.KindSuccess, 2*time.Minute, "Apply Settings", ""),
	}
	return NewReport(&analyzer.FileAnalysis{
		Source:     "smsts.log",
		Result:     analyzer.Aggregate(events),
		LinesRead:  120,
		AnalyzedAt: testStart.Add(time.Hour),
		Elapsed:    15 * time.Millisecond,
	})
}

func createEmptyReport() *Report {
	return NewReport(&analyzer.FileAnalysis{
		Source: "empty.log",
		Result: analyzer.Aggregate(nil),
	})
}
