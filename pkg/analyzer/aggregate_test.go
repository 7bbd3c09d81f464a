package analyzer

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ccollicutt/steptrace/pkg/parser"
)

var baseTime = time.Date(2024, 1, 2, 3, 4, 5, 6*int(time.Millisecond), time.UTC)

func mustEvent(t *testing.T, kind parser.Kind, offset time.Duration, msg, code string) parser.LogEvent {
	t.Helper()
	ev, err := parser.NewLogEvent(kind, baseTime.Add(offset), msg, code)
	if err != nil {
		t.Fatalf("NewLogEvent() error = %v", err)
	}
	return ev
}

func stepLine(label, message string, ts time.Time) string {
	return fmt.Sprintf(`<![LOG[STEP %s: %s]LOG]!><time="%s+000" date="%s" component="TSManager" context="" type="1" thread="1" file="">`,
		label, message, ts.Format("15:04:05.000"), ts.Format("01-02-2006"))
}

func checkInvariants(t *testing.T, r AnalysisResult) {
	t.Helper()

	if r.SuccessCount+r.FailureCount+r.WarningCount != len(r.Events) {
		t.Errorf("counts %d+%d+%d != %d events",
			r.SuccessCount, r.FailureCount, r.WarningCount, len(r.Events))
	}
	if r.SuccessRate < 0 || r.SuccessRate > 100 {
		t.Errorf("SuccessRate = %v, out of range", r.SuccessRate)
	}
	if r.TotalSteps() == 0 && r.SuccessRate != 0 {
		t.Errorf("SuccessRate = %v with no steps, want 0", r.SuccessRate)
	}
	for i := 1; i < len(r.Events); i++ {
		if r.Events[i].Timestamp().Before(r.Events[i-1].Timestamp()) {
			t.Errorf("Events not sorted at index %d", i)
		}
	}

	want := map[string]bool{}
	for _, ev := range r.Events {
		if code, ok := ev.ErrorCode(); ok {
			want[code] = true
		}
	}
	seen := map[string]bool{}
	for _, code := range r.ErrorCodes {
		if seen[code] {
			t.Errorf("ErrorCodes contains duplicate %q", code)
		}
		seen[code] = true
	}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("ErrorCodes = %v, want set %v", r.ErrorCodes, want)
	}
}

func TestAggregate_Empty(t *testing.T) {
	r := Aggregate(nil)
	checkInvariants(t, r)

	if len(r.Events) != 0 {
		t.Errorf("len(Events) = %d, want 0", len(r.Events))
	}
	if r.SuccessCount != 0 || r.FailureCount != 0 || r.WarningCount != 0 {
		t.Errorf("counts = %d/%d/%d, want 0/0/0", r.SuccessCount, r.FailureCount, r.WarningCount)
	}
	if r.SuccessRate != 0 {
		t.Errorf("SuccessRate = %v, want 0", r.SuccessRate)
	}
	if r.TotalDuration != 0 || r.AverageStepDuration != 0 {
		t.Errorf("durations = %v/%v, want 0", r.TotalDuration, r.AverageStepDuration)
	}
	if r.StartTime != nil || r.EndTime != nil {
		t.Errorf("bounds = %v/%v, want nil", r.StartTime, r.EndTime)
	}
}

func TestAnalyze_EmptyText(t *testing.T) {
	r := Analyze("")
	checkInvariants(t, r)

	if len(r.Events) != 0 || r.SuccessRate != 0 || r.TotalDuration != 0 {
		t.Errorf("Analyze(\"\") = %+v, want zero result", r)
	}
}

func TestAnalyze_SingleSuccess(t *testing.T) {
	r := Analyze(stepLine("Success", "Step A", baseTime))
	checkInvariants(t, r)

	if len(r.Events) != 1 {
		t.Fatalf("len(Events) = %d, want 1", len(r.Events))
	}
	ev := r.Events[0]
	if ev.Kind() != parser.KindSuccess || ev.Message() != "Step A" || !ev.Timestamp().Equal(baseTime) {
		t.Errorf("Events[0] = %v %q %v", ev.Kind(), ev.Message(), ev.Timestamp())
	}
	if r.SuccessCount != 1 || r.FailureCount != 0 {
		t.Errorf("counts = %d/%d, want 1/0", r.SuccessCount, r.FailureCount)
	}
	if r.SuccessRate != 100 {
		t.Errorf("SuccessRate = %v, want 100", r.SuccessRate)
	}
	if r.TotalDuration != 0 {
		t.Errorf("TotalDuration = %v, want 0 for a single event", r.TotalDuration)
	}
	if r.StartTime == nil || !r.StartTime.Equal(baseTime) || !r.EndTime.Equal(baseTime) {
		t.Errorf("bounds = %v/%v, want %v", r.StartTime, r.EndTime, baseTime)
	}
}

func TestAnalyze_ChronologicalNotFileOrder(t *testing.T) {
	text := strings.Join([]string{
		stepLine("Success", "Logged first", baseTime.Add(time.Minute)),
		stepLine("Error", "Happened first", baseTime),
	}, "\n")

	r := Analyze(text)
	checkInvariants(t, r)

	if len(r.Events) != 2 {
		t.Fatalf("len(Events) = %d, want 2", len(r.Events))
	}
	if r.Events[0].Kind() != parser.KindError {
		t.Errorf("Events[0].Kind() = %v, want Error", r.Events[0].Kind())
	}
	if !r.StartTime.Equal(baseTime) {
		t.Errorf("StartTime = %v, want %v", r.StartTime, baseTime)
	}
	if !r.EndTime.Equal(baseTime.Add(time.Minute)) {
		t.Errorf("EndTime = %v, want %v", r.EndTime, baseTime.Add(time.Minute))
	}
	if r.TotalDuration != time.Minute {
		t.Errorf("TotalDuration = %v, want 1m", r.TotalDuration)
	}
	if r.AverageStepDuration != 30*time.Second {
		t.Errorf("AverageStepDuration = %v, want 30s", r.AverageStepDuration)
	}
	if r.SuccessRate != 50 {
		t.Errorf("SuccessRate = %v, want 50", r.SuccessRate)
	}
}

func TestAnalyze_DuplicateErrorCodes(t *testing.T) {
	text := strings.Join([]string{
		stepLine("Error code=80004005", "Install Office", baseTime),
		stepLine("Error code=80004005", "Install Visio", baseTime.Add(time.Second)),
	}, "\n")

	r := Analyze(text)
	checkInvariants(t, r)

	if !reflect.DeepEqual(r.ErrorCodes, []string{"80004005"}) {
		t.Errorf("ErrorCodes = %v, want [80004005]", r.ErrorCodes)
	}
	if r.FailureCount != 2 {
		t.Errorf("FailureCount = %d, want 2", r.FailureCount)
	}
}

func TestAnalyze_InvalidDateDropped(t *testing.T) {
	text := strings.Join([]string{
		stepLine("Success", "Good", baseTime),
		`<![LOG[STEP Success: Bad]LOG]!><time="03:04:05.006+000" date="13-40-2024" component="TSManager" context="" type="1" thread="1" file="">`,
	}, "\n")

	r := Analyze(text)
	checkInvariants(t, r)

	if len(r.Events) != 1 || r.Events[0].Message() != "Good" {
		t.Errorf("Events = %v, want only the valid line", r.Events)
	}
}

func TestAggregate_WarningsOnly(t *testing.T) {
	events := []parser.LogEvent{
		mustEvent(t, parser.KindWarning, 0, "w1", ""),
		mustEvent(t, parser.KindWarning, 10*time.Second, "w2", ""),
	}

	r := Aggregate(events)
	checkInvariants(t, r)

	if r.WarningCount != 2 {
		t.Errorf("WarningCount = %d, want 2", r.WarningCount)
	}
	if r.SuccessRate != 0 || r.AverageStepDuration != 0 {
		t.Errorf("SuccessRate/AverageStepDuration = %v/%v, want 0/0", r.SuccessRate, r.AverageStepDuration)
	}
	if r.TotalDuration != 10*time.Second {
		t.Errorf("TotalDuration = %v, want 10s", r.TotalDuration)
	}
}

func TestAggregate_StableForEqualTimestamps(t *testing.T) {
	events := []parser.LogEvent{
		mustEvent(t, parser.KindSuccess, time.Second, "b", ""),
		mustEvent(t, parser.KindSuccess, 0, "first", ""),
		mustEvent(t, parser.KindError, 0, "second", "1"),
		mustEvent(t, parser.KindWarning, 0, "third", ""),
	}

	r := Aggregate(events)
	checkInvariants(t, r)

	var got []string
	for _, ev := range r.Events {
		got = append(got, ev.Message())
	}
	want := []string{"first", "second", "third", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("timeline = %v, want %v", got, want)
	}
}

func TestAggregate_DoesNotModifyInput(t *testing.T) {
	events := []parser.LogEvent{
		mustEvent(t, parser.KindSuccess, time.Minute, "late", ""),
		mustEvent(t, parser.KindSuccess, 0, "early", ""),
	}

	_ = Aggregate(events)

	if events[0].Message() != "late" {
		t.Errorf("Aggregate() reordered caller's slice")
	}
}

func TestAggregate_ErrorCodesSorted(t *testing.T) {
	events := []parser.LogEvent{
		mustEvent(t, parser.KindError, 0, "a", "80070005"),
		mustEvent(t, parser.KindError, time.Second, "b", "0x87D00324"),
		mustEvent(t, parser.KindError, 2*time.Second, "c", "80070005"),
		mustEvent(t, parser.KindError, 3*time.Second, "d", ""),
	}

	r := Aggregate(events)
	checkInvariants(t, r)

	want := []string{"0x87D00324", "80070005"}
	if !reflect.DeepEqual(r.ErrorCodes, want) {
		t.Errorf("ErrorCodes = %v, want %v", r.ErrorCodes, want)
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	text := strings.Join([]string{
		stepLine("Success", "Partition disk", baseTime),
		stepLine("Warning", "Slow network", baseTime.Add(2*time.Second)),
		stepLine("Error code=1603", "Install app", baseTime.Add(time.Second)),
		"noise",
		stepLine("Success", "Apply image", baseTime.Add(3*time.Minute)),
	}, "\r\n")

	first := Analyze(text)
	second := Analyze(text)
	checkInvariants(t, first)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Analyze() not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestAnalysisResult_Helpers(t *testing.T) {
	r := AnalysisResult{SuccessCount: 3, FailureCount: 1, WarningCount: 2}

	if r.TotalSteps() != 4 {
		t.Errorf("TotalSteps() = %d, want 4", r.TotalSteps())
	}
	if !r.HasFailures() {
		t.Error("HasFailures() = false, want true")
	}
	if r.Count(parser.KindWarning) != 2 {
		t.Errorf("Count(Warning) = %d, want 2", r.Count(parser.KindWarning))
	}
	if (AnalysisResult{}).HasFailures() {
		t.Error("zero result HasFailures() = true")
	}
}
