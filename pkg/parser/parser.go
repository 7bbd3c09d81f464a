package parser

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// DefaultMarker is the token that follows the CMTrace message opener on
// step lines.
const DefaultMarker = "STEP"

// cmtraceOpen starts every CMTrace line; the marker follows it directly.
const cmtraceOpen = "<![LOG["

// stepLineFormat is the fixed shape of a step line. %s is the quoted
// marker. Groups: 1 Success|Warning, 2 Error, 3 raw error code, 4 message,
// 5 time, 6 date.
const stepLineFormat = `^<!\[LOG\[%s ` +
	`(?:(Success|Warning)|(Error)(?: code=([^\s:\]]*))?)` +
	`(?::(.*?))?\]LOG\]!>` +
	`<time="(\d{2}:\d{2}:\d{2}\.\d{3})(?:[+-]\d+)?" ` +
	`date="(\d{2}-\d{2}-\d{4})"`

// errorCodePattern is a well-formed code: decimal, optionally negative
// (HRESULTs are often logged signed), or 0x-prefixed hex.
var errorCodePattern = regexp.MustCompile(`^(?:-?[0-9]+|0[xX][0-9A-Fa-f]+)$`)

// Extractor turns raw trace text into step events. It holds only
// immutable configuration and is safe for concurrent use.
type Extractor struct {
	marker     string
	pattern    *regexp.Regexp
	timestamps *TimestampParser
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*extractorConfig)

type extractorConfig struct {
	marker   string
	location *time.Location
}

// WithMarker sets the step marker token (default "STEP").
func WithMarker(marker string) ExtractorOption {
	return func(c *extractorConfig) {
		if marker != "" {
			c.marker = marker
		}
	}
}

// WithLocation sets the time zone the trace timestamps were written in.
func WithLocation(loc *time.Location) ExtractorOption {
	return func(c *extractorConfig) {
		if loc != nil {
			c.location = loc
		}
	}
}

// NewExtractor creates an extractor for CMTrace step lines.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	cfg := extractorConfig{
		marker:   DefaultMarker,
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Extractor{
		marker:     cfg.marker,
		pattern:    regexp.MustCompile(fmt.Sprintf(stepLineFormat, regexp.QuoteMeta(cfg.marker))),
		timestamps: NewTimestampParser(DefaultTimestampLayout, cfg.location),
	}
}

// Marker returns the step marker token.
func (x *Extractor) Marker() string {
	return x.marker
}

// Extract parses every step line in text, in line order.
// Lines that are not step lines, or whose fields are malformed, are
// skipped; Extract never fails.
func (x *Extractor) Extract(text string) []LogEvent {
	var events []LogEvent
	prefix := cmtraceOpen + x.marker + " "

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimLeft(strings.TrimRight(line, "\r"), "\uFEFF \t")
		if !strings.HasPrefix(line, prefix) {
			continue
		}

		ev, err := x.parseLine(line)
		if err != nil {
			slog.Debug("skipping malformed step line", "line", i+1, "error", err)
			continue
		}
		events = append(events, ev)
	}

	return events
}

// parseLine extracts one event from a line that carries the marker.
func (x *Extractor) parseLine(line string) (LogEvent, error) {
	m := x.pattern.FindStringSubmatch(line)
	if m == nil {
		return LogEvent{}, fmt.Errorf("step line does not match expected shape")
	}

	ts, err := x.timestamps.Parse(m[6], m[5])
	if err != nil {
		return LogEvent{}, err
	}

	kind := Kind(m[1])
	code := ""
	if m[2] != "" {
		kind = KindError
		code = m[3]
		if code != "" && !errorCodePattern.MatchString(code) {
			slog.Debug("dropping malformed error code", "code", code)
			code = ""
		}
	}

	return NewLogEvent(kind, ts, strings.TrimSpace(m[4]), code)
}

var defaultExtractor = NewExtractor()

// Extract parses text with the default marker and UTC timestamps.
func Extract(text string) []LogEvent {
	return defaultExtractor.Extract(text)
}
