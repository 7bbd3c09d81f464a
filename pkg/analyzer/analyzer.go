package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ccollicutt/steptrace/pkg/parser"
)

// DefaultConcurrency is how many trace files AnalyzeFiles reads at once.
const DefaultConcurrency = 4

// Analyzer runs extraction and aggregation over trace files.
type Analyzer struct {
	extractor   *parser.Extractor
	timeRange   *TimeRange
	kinds       map[parser.Kind]bool // nil means all kinds
	concurrency int
}

// TimeRange defines a time window for filtering events.
// A zero Start or End leaves that side open.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether ts falls inside the window, bounds included.
func (tr *TimeRange) Contains(ts time.Time) bool {
	if !tr.Start.IsZero() && ts.Before(tr.Start) {
		return false
	}
	if !tr.End.IsZero() && ts.After(tr.End) {
		return false
	}
	return true
}

// AnalyzerOption configures analyzer behavior.
type AnalyzerOption func(*Analyzer)

// WithExtractor replaces the default extractor.
func WithExtractor(x *parser.Extractor) AnalyzerOption {
	return func(a *Analyzer) {
		if x != nil {
			a.extractor = x
		}
	}
}

// WithTimeRange limits analysis to events within the given time range.
func WithTimeRange(start, end time.Time) AnalyzerOption {
	return func(a *Analyzer) {
		if !start.IsZero() || !end.IsZero() {
			a.timeRange = &TimeRange{Start: start, End: end}
		}
	}
}

// WithKinds limits analysis to events of the given kinds.
func WithKinds(kinds ...parser.Kind) AnalyzerOption {
	return func(a *Analyzer) {
		if len(kinds) > 0 {
			a.kinds = make(map[parser.Kind]bool)
			for _, k := range kinds {
				a.kinds[k] = true
			}
		}
	}
}

// WithConcurrency bounds how many files AnalyzeFiles processes in parallel.
func WithConcurrency(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		extractor:   parser.NewExtractor(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeText extracts, filters and aggregates one in-memory trace.
func (a *Analyzer) AnalyzeText(text string) AnalysisResult {
	return Aggregate(a.filter(a.extractor.Extract(text)))
}

func (a *Analyzer) filter(events []parser.LogEvent) []parser.LogEvent {
	if a.timeRange == nil && a.kinds == nil {
		return events
	}

	kept := events[:0:0]
	for _, ev := range events {
		if a.timeRange != nil && !a.timeRange.Contains(ev.Timestamp()) {
			continue
		}
		if a.kinds != nil && !a.kinds[ev.Kind()] {
			continue
		}
		kept = append(kept, ev)
	}
	return kept
}

// AnalyzeFile reads a trace file and analyzes it. A read failure is
// returned as *parser.SourceError and no result is produced.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*FileAnalysis, error) {
	start := time.Now()

	text, err := parser.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}

	result := a.AnalyzeText(text)
	fa := &FileAnalysis{
		Source:     path,
		Result:     result,
		LinesRead:  countLines(text),
		AnalyzedAt: time.Now(),
	}
	fa.Elapsed = fa.AnalyzedAt.Sub(start)

	slog.Debug("analyzed trace file",
		"source", path,
		"lines", fa.LinesRead,
		"events", len(result.Events),
		"failures", result.FailureCount,
		"elapsed", fa.Elapsed)

	return fa, nil
}

// AnalyzeFiles analyzes each file independently and returns the results
// in the order of paths. The first read failure cancels the remaining work.
func (a *Analyzer) AnalyzeFiles(ctx context.Context, paths []string) ([]*FileAnalysis, error) {
	results := make([]*FileAnalysis, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, path := range paths {
		g.Go(func() error {
			fa, err := a.AnalyzeFile(ctx, path)
			if err != nil {
				return fmt.Errorf("analyzing %s: %w", path, err)
			}
			results[i] = fa
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
