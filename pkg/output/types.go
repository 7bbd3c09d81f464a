// Package output provides formatting and export of deployment analysis results.
package output

import (
	"time"

	"github.com/google/uuid"

	"github.com/ccollicutt/steptrace/pkg/analyzer"
	"github.com/ccollicutt/steptrace/pkg/parser"
)

// Report is the complete analysis output for one trace file.
type Report struct {
	// Summary provides the aggregate figures.
	Summary Summary `json:"summary"`

	// Events is the chronological timeline.
	Events []parser.LogEvent `json:"events"`

	// Metadata provides context about the analysis.
	Metadata Metadata `json:"metadata"`
}

// Summary provides aggregate statistics.
type Summary struct {
	// TotalSteps counts finished steps: successes plus failures.
	TotalSteps int `json:"total_steps"`

	SuccessCount int `json:"success_count"`
	FailureCount int `json:"failure_count"`
	WarningCount int `json:"warning_count"`

	// SuccessRate is a percentage in [0, 100].
	SuccessRate float64 `json:"success_rate"`

	TotalDuration       time.Duration `json:"total_duration"`
	AverageStepDuration time.Duration `json:"average_step_duration"`

	// StartTime and EndTime are nil when no step was recorded.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// ErrorCodes lists each distinct error code once.
	ErrorCodes []string `json:"error_codes"`
}

// Metadata provides context about the analysis run.
type Metadata struct {
	// ReportID uniquely identifies this report, e.g. for upload keys.
	ReportID string `json:"report_id"`

	// Source is the trace file that was analyzed.
	Source string `json:"source"`

	// LinesRead is the number of lines in the trace file.
	LinesRead int `json:"lines_read"`

	// AnalyzedAt is when the analysis was performed.
	AnalyzedAt time.Time `json:"analyzed_at"`

	// Elapsed is how long the analysis took.
	Elapsed time.Duration `json:"elapsed"`
}

// NewReport creates a Report from a file analysis.
func NewReport(fa *analyzer.FileAnalysis) *Report {
	result := fa.Result

	return &Report{
		Summary: Summary{
			TotalSteps:          result.TotalSteps(),
			SuccessCount:        result.SuccessCount,
			FailureCount:        result.FailureCount,
			WarningCount:        result.WarningCount,
			SuccessRate:         result.SuccessRate,
			TotalDuration:       result.TotalDuration,
			AverageStepDuration: result.AverageStepDuration,
			StartTime:           result.StartTime,
			EndTime:             result.EndTime,
			ErrorCodes:          result.ErrorCodes,
		},
		Events: result.Events,
		Metadata: Metadata{
			ReportID:   uuid.NewString(),
			Source:     fa.Source,
			LinesRead:  fa.LinesRead,
			AnalyzedAt: fa.AnalyzedAt,
			Elapsed:    fa.Elapsed,
		},
	}
}

// HasFailures returns true if any step failed.
func (r *Report) HasFailures() bool {
	return r.Summary.FailureCount > 0
}
