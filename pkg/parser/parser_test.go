package parser

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

// stepLine renders a CMTrace step line the way the deployment engine writes it.
func stepLine(label, message, date, clock string) string {
	return fmt.Sprintf(`<![LOG[STEP %s: %s]LOG]!><time="%s+000" date="%s" component="TSManager" context="" type="1" thread="1204" file="engine.cpp:512">`,
		label, message, clock, date)
}

func TestExtract_SingleSuccess(t *testing.T) {
	events := Extract(stepLine("Success", "Step A", "01-02-2024", "03:04:05.006"))

	if len(events) != 1 {
		t.Fatalf("Extract() returned %d events, want 1", len(events))
	}

	ev := events[0]
	if ev.Kind() != KindSuccess {
		t.Errorf("Kind() = %q, want %q", ev.Kind(), KindSuccess)
	}
	want := time.Date(2024, 1, 2, 3, 4, 5, 6*int(time.Millisecond), time.UTC)
	if !ev.Timestamp().Equal(want) {
		t.Errorf("Timestamp() = %v, want %v", ev.Timestamp(), want)
	}
	if ev.Message() != "Step A" {
		t.Errorf("Message() = %q, want %q", ev.Message(), "Step A")
	}
	if code, ok := ev.ErrorCode(); ok {
		t.Errorf("ErrorCode() = %q, want none", code)
	}
}

func TestExtract_Kinds(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantKind Kind
		wantMsg  string
		wantCode string
	}{
		{
			name:     "success",
			line:     stepLine("Success", "Apply Operating System", "03-10-2024", "09:15:00.100"),
			wantKind: KindSuccess,
			wantMsg:  "Apply Operating System",
		},
		{
			name:     "warning",
			line:     stepLine("Warning", "Driver package skipped", "03-10-2024", "09:16:00.000"),
			wantKind: KindWarning,
			wantMsg:  "Driver package skipped",
		},
		{
			name:     "error without code",
			line:     stepLine("Error", "Join domain failed", "03-10-2024", "09:17:00.000"),
			wantKind: KindError,
			wantMsg:  "Join domain failed",
		},
		{
			name:     "error with decimal code",
			line:     stepLine("Error code=80004005", "Install Office failed", "03-10-2024", "09:18:00.000"),
			wantKind: KindError,
			wantMsg:  "Install Office failed",
			wantCode: "80004005",
		},
		{
			name:     "error with hex code",
			line:     stepLine("Error code=0x80070002", "Copy files failed", "03-10-2024", "09:19:00.000"),
			wantKind: KindError,
			wantMsg:  "Copy files failed",
			wantCode: "0x80070002",
		},
		{
			name:     "empty message",
			line:     `<![LOG[STEP Success]LOG]!><time="09:20:00.000+000" date="03-10-2024" component="TSManager" context="" type="1" thread="1" file="">`,
			wantKind: KindSuccess,
			wantMsg:  "",
		},
		{
			name:     "negative bias",
			line:     `<![LOG[STEP Success: Restart]LOG]!><time="09:21:00.000-300" date="03-10-2024" component="TSManager" context="" type="1" thread="1" file="">`,
			wantKind: KindSuccess,
			wantMsg:  "Restart",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := Extract(tt.line)
			if len(events) != 1 {
				t.Fatalf("Extract() returned %d events, want 1", len(events))
			}
			ev := events[0]
			if ev.Kind() != tt.wantKind {
				t.Errorf("Kind() = %q, want %q", ev.Kind(), tt.wantKind)
			}
			if ev.Message() != tt.wantMsg {
				t.Errorf("Message() = %q, want %q", ev.Message(), tt.wantMsg)
			}
			code, _ := ev.ErrorCode()
			if code != tt.wantCode {
				t.Errorf("ErrorCode() = %q, want %q", code, tt.wantCode)
			}
		})
	}
}

func TestExtract_SkipsMalformedLines(t *testing.T) {
	lines := []string{
		stepLine("Success", "Valid first", "01-02-2024", "03:04:05.006"),
		"plain text without any marker",
		`<![LOG[Gathering OS state]LOG]!><time="03:04:05.100+000" date="01-02-2024" component="TSManager" context="" type="1" thread="1" file="">`,
		stepLine("Success", "Bad date", "13-40-2024", "03:04:05.006"),
		stepLine("Done", "Unknown outcome", "01-02-2024", "03:04:06.000"),
		stepLine("Success code=5", "Code on success", "01-02-2024", "03:04:06.500"),
		`<![LOG[STEP Error: truncated at shutdown]LOG]!><time="03:04:0`,
		stepLine("Warning", "Valid last", "01-02-2024", "03:04:08.000"),
	}

	events := Extract(strings.Join(lines, "\n"))

	if len(events) != 2 {
		t.Fatalf("Extract() returned %d events, want 2 (skipping malformed)", len(events))
	}
	if events[0].Message() != "Valid first" || events[1].Message() != "Valid last" {
		t.Errorf("Extract() kept %q and %q", events[0].Message(), events[1].Message())
	}
}

func TestExtract_ErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		label    string
		wantCode string
	}{
		{name: "decimal", label: "Error code=1603", wantCode: "1603"},
		{name: "hex", label: "Error code=0x87D00324", wantCode: "0x87D00324"},
		{name: "negative decimal", label: "Error code=-2147467259", wantCode: "-2147467259"},
		{name: "bad hex digits", label: "Error code=0xGG", wantCode: ""},
		{name: "letters", label: "Error code=zz", wantCode: ""},
		{name: "empty", label: "Error code=", wantCode: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := Extract(stepLine(tt.label, "Install failed", "01-02-2024", "03:04:05.000"))
			if len(events) != 1 {
				t.Fatalf("Extract() returned %d events, want 1", len(events))
			}
			ev := events[0]
			if ev.Kind() != KindError {
				t.Errorf("Kind() = %q, want %q", ev.Kind(), KindError)
			}
			if ev.Message() != "Install failed" {
				t.Errorf("Message() = %q, want %q", ev.Message(), "Install failed")
			}
			code, ok := ev.ErrorCode()
			if tt.wantCode == "" {
				if ok {
					t.Errorf("ErrorCode() = %q, want none", code)
				}
				return
			}
			if !ok || code != tt.wantCode {
				t.Errorf("ErrorCode() = %q, %v, want %q", code, ok, tt.wantCode)
			}
		})
	}
}

func TestExtract_InvalidDateDropped(t *testing.T) {
	events := Extract(stepLine("Error code=1", "Impossible date", "13-40-2024", "10:00:00.000"))
	if len(events) != 0 {
		t.Errorf("Extract() returned %d events, want 0", len(events))
	}
}

func TestExtract_WindowsLineEndings(t *testing.T) {
	text := "\uFEFF" + stepLine("Success", "One", "01-02-2024", "03:04:05.000") + "\r\n" +
		stepLine("Error", "Two", "01-02-2024", "03:04:06.000") + "\r\n"

	events := Extract(text)
	if len(events) != 2 {
		t.Fatalf("Extract() returned %d events, want 2", len(events))
	}
	if events[1].Message() != "Two" {
		t.Errorf("Message() = %q, want %q", events[1].Message(), "Two")
	}
}

func TestExtract_PreservesLineOrder(t *testing.T) {
	text := strings.Join([]string{
		stepLine("Success", "Later", "01-02-2024", "10:00:00.000"),
		stepLine("Error", "Earlier", "01-02-2024", "09:00:00.000"),
	}, "\n")

	events := Extract(text)
	if len(events) != 2 {
		t.Fatalf("Extract() returned %d events, want 2", len(events))
	}
	if events[0].Message() != "Later" {
		t.Errorf("Extract() reordered lines: first = %q", events[0].Message())
	}
}

func TestExtract_Empty(t *testing.T) {
	if events := Extract(""); len(events) != 0 {
		t.Errorf("Extract(\"\") returned %d events, want 0", len(events))
	}
}

func TestExtractor_WithMarker(t *testing.T) {
	x := NewExtractor(WithMarker("DEPLOY-STEP"))
	if x.Marker() != "DEPLOY-STEP" {
		t.Errorf("Marker() = %q, want %q", x.Marker(), "DEPLOY-STEP")
	}

	text := strings.Join([]string{
		`<![LOG[DEPLOY-STEP Success: Custom marker]LOG]!><time="10:00:00.000+000" date="01-02-2024" component="x" context="" type="1" thread="1" file="">`,
		stepLine("Success", "Default marker", "01-02-2024", "10:00:01.000"),
	}, "\n")

	events := x.Extract(text)
	if len(events) != 1 {
		t.Fatalf("Extract() returned %d events, want 1", len(events))
	}
	if events[0].Message() != "Custom marker" {
		t.Errorf("Message() = %q, want %q", events[0].Message(), "Custom marker")
	}
}

func TestExtractor_WithLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	x := NewExtractor(WithLocation(loc))

	events := x.Extract(stepLine("Success", "Zoned", "01-02-2024", "12:00:00.000"))
	if len(events) != 1 {
		t.Fatalf("Extract() returned %d events, want 1", len(events))
	}

	want := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	if !events[0].Timestamp().Equal(want) {
		t.Errorf("Timestamp() = %v, want %v", events[0].Timestamp(), want)
	}
}
