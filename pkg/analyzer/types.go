// Package analyzer aggregates extracted step events into deployment statistics.
package analyzer

import (
	"time"

	"github.com/ccollicutt/steptrace/pkg/parser"
)

// AnalysisResult is the aggregate over one full event sequence. It is
// rebuilt from scratch for every run and treated as a value.
type AnalysisResult struct {
	// Events is the timeline: every accepted event, ascending by timestamp.
	Events []parser.LogEvent `json:"events"`

	// SuccessCount, FailureCount and WarningCount count events per kind.
	SuccessCount int `json:"success_count"`
	FailureCount int `json:"failure_count"`
	WarningCount int `json:"warning_count"`

	// ErrorCodes holds each distinct error code once, sorted.
	ErrorCodes []string `json:"error_codes"`

	// StartTime and EndTime bound the timeline; nil when there are no events.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// TotalDuration is EndTime - StartTime.
	TotalDuration time.Duration `json:"total_duration"`

	// SuccessRate is the percentage of successes among successes and
	// failures, 0 when there are neither.
	SuccessRate float64 `json:"success_rate"`

	// AverageStepDuration is TotalDuration spread over successes and
	// failures, 0 when there are neither.
	AverageStepDuration time.Duration `json:"average_step_duration"`
}

// TotalSteps returns the number of steps that finished, successfully or not.
// Warnings are not steps of their own.
func (r AnalysisResult) TotalSteps() int {
	return r.SuccessCount + r.FailureCount
}

// HasFailures returns true if any Error event was recorded.
func (r AnalysisResult) HasFailures() bool {
	return r.FailureCount > 0
}

// Count returns the number of events of the given kind.
func (r AnalysisResult) Count(kind parser.Kind) int {
	switch kind {
	case parser.KindSuccess:
		return r.SuccessCount
	case parser.KindError:
		return r.FailureCount
	case parser.KindWarning:
		return r.WarningCount
	}
	return 0
}

// FileAnalysis is the result of analyzing one trace file.
type FileAnalysis struct {
	// Source is the file path that was analyzed.
	Source string

	// Result is the aggregate over the file's events.
	Result AnalysisResult

	// LinesRead is the number of text lines in the file.
	LinesRead int

	// AnalyzedAt is when analysis of the file completed.
	AnalyzedAt time.Time

	// Elapsed is how long reading and analysis took.
	Elapsed time.Duration
}
