// Package parser provides deployment trace reading and step event extraction.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind is the outcome recorded by a step line.
type Kind string

const (
	KindSuccess Kind = "Success"
	KindError   Kind = "Error"
	KindWarning Kind = "Warning"
)

// Kinds lists every outcome in reporting order.
var Kinds = []Kind{KindSuccess, KindError, KindWarning}

// Valid reports whether k is one of the known outcomes.
func (k Kind) Valid() bool {
	switch k {
	case KindSuccess, KindError, KindWarning:
		return true
	}
	return false
}

// ParseKind converts a label such as "error" or "Warning" to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(string(k), s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown outcome %q (must be Success, Error, or Warning)", s)
}

// ErrInvalidEvent is returned by NewLogEvent for inconsistent fields.
var ErrInvalidEvent = errors.New("invalid log event")

// LogEvent is one parsed step. The zero value is not a valid event;
// values are built by the Extractor and never change afterwards.
type LogEvent struct {
	kind      Kind
	timestamp time.Time
	message   string
	errorCode string
}

// NewLogEvent builds an event. An error code is only accepted on
// Error events; an empty code means none was recorded.
func NewLogEvent(kind Kind, ts time.Time, message, errorCode string) (LogEvent, error) {
	if !kind.Valid() {
		return LogEvent{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, kind)
	}
	if errorCode != "" && kind != KindError {
		return LogEvent{}, fmt.Errorf("%w: error code on %s event", ErrInvalidEvent, kind)
	}
	return LogEvent{
		kind:      kind,
		timestamp: ts,
		message:   message,
		errorCode: errorCode,
	}, nil
}

// Kind returns the step outcome.
func (e LogEvent) Kind() Kind { return e.kind }

// Timestamp returns when the step was logged.
func (e LogEvent) Timestamp() time.Time { return e.timestamp }

// Message returns the free-text step description.
func (e LogEvent) Message() string { return e.message }

// ErrorCode returns the recorded code and whether one was present.
func (e LogEvent) ErrorCode() (string, bool) {
	return e.errorCode, e.errorCode != ""
}

type eventJSON struct {
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	ErrorCode string    `json:"error_code,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e LogEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventJSON{
		Kind:      e.kind,
		Timestamp: e.timestamp,
		Message:   e.message,
		ErrorCode: e.errorCode,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Decoded events go through
// the same checks as NewLogEvent.
func (e *LogEvent) UnmarshalJSON(data []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ev, err := NewLogEvent(raw.Kind, raw.Timestamp, raw.Message, raw.ErrorCode)
	if err != nil {
		return err
	}
	*e = ev
	return nil
}
