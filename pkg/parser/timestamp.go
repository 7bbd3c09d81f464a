package parser

import (
	"fmt"
	"time"
)

// DefaultTimestampLayout is the Go layout for a CMTrace date field joined
// to its time field: month-day-year hour:minute:second.millisecond.
const DefaultTimestampLayout = "01-02-2006 15:04:05.000"

// TimestampParser builds timestamps from the separate date and time fields
// of a step line.
type TimestampParser struct {
	layout   string
	location *time.Location
}

// NewTimestampParser creates a timestamp parser. A nil location means UTC.
func NewTimestampParser(layout string, location *time.Location) *TimestampParser {
	if location == nil {
		location = time.UTC
	}
	return &TimestampParser{
		layout:   layout,
		location: location,
	}
}

// Parse joins date and clock with a single space and parses the result.
// Returns zero time and error if the fields do not fit the layout or name
// an impossible date.
func (p *TimestampParser) Parse(date, clock string) (time.Time, error) {
	tsStr := date + " " + clock

	ts, err := time.ParseInLocation(p.layout, tsStr, p.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", tsStr, err)
	}

	return ts, nil
}
