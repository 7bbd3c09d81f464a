package parser

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// SourceError reports that a trace file could not be read. No partial
// content is ever returned alongside it.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("reading trace file %s: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// ReadFile loads a whole trace file into memory as text.
//
// Deployment tools write these logs as UTF-8, UTF-16 with a BOM, or in the
// Windows ANSI code page. A BOM selects the Unicode encoding; otherwise
// bytes that are not valid UTF-8 are decoded as Windows-1252.
func ReadFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return "", &SourceError{Path: path, Err: err}
	}

	text, err := Decode(data)
	if err != nil {
		return "", &SourceError{Path: path, Err: err}
	}
	return text, nil
}

// Decode converts raw trace bytes to a string.
func Decode(data []byte) (string, error) {
	var fallback encoding.Encoding = encoding.Nop
	if !utf8.Valid(data) {
		fallback = charmap.Windows1252
	}

	out, _, err := transform.Bytes(unicode.BOMOverride(fallback.NewDecoder()), data)
	if err != nil {
		return "", fmt.Errorf("decoding text: %w", err)
	}
	return string(out), nil
}
