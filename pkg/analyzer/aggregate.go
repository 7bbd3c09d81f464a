package analyzer

import (
	"sort"
	"time"

	"github.com/ccollicutt/steptrace/pkg/parser"
)

// Aggregate builds an AnalysisResult from events in any order.
// It never fails; an empty sequence yields zero counts and no bounds.
// The input slice is not modified.
func Aggregate(events []parser.LogEvent) AnalysisResult {
	timeline := make([]parser.LogEvent, len(events))
	copy(timeline, events)

	// Stable so steps logged in the same millisecond keep file order
	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].Timestamp().Before(timeline[j].Timestamp())
	})

	result := AnalysisResult{
		Events:     timeline,
		ErrorCodes: []string{},
	}

	seen := make(map[string]bool)
	for _, ev := range timeline {
		switch ev.Kind() {
		case parser.KindSuccess:
			result.SuccessCount++
		case parser.KindError:
			result.FailureCount++
			if code, ok := ev.ErrorCode(); ok && !seen[code] {
				seen[code] = true
				result.ErrorCodes = append(result.ErrorCodes, code)
			}
		case parser.KindWarning:
			result.WarningCount++
		}
	}
	sort.Strings(result.ErrorCodes)

	if len(timeline) == 0 {
		return result
	}

	start := timeline[0].Timestamp()
	end := timeline[len(timeline)-1].Timestamp()
	result.StartTime = &start
	result.EndTime = &end
	result.TotalDuration = end.Sub(start)

	if steps := result.TotalSteps(); steps > 0 {
		result.SuccessRate = float64(result.SuccessCount) / float64(steps) * 100
		result.AverageStepDuration = result.TotalDuration / time.Duration(steps)
	}

	return result
}

// Analyze extracts step events from text with the default extractor and
// aggregates them.
func Analyze(text string) AnalysisResult {
	return Aggregate(parser.Extract(text))
}
