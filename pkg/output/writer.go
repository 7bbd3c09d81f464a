package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ExportError reports a failed export. The report itself is unaffected.
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("exporting %s report to %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// WriteFile renders report with f and writes it to path. The file is
// written to a temporary sibling and renamed into place, so readers never
// see a partial report.
func WriteFile(ctx context.Context, f Formatter, report *Report, path string) error {
	if err := writeFile(ctx, f, report, path); err != nil {
		return &ExportError{Format: f.Name(), Path: path, Err: err}
	}
	return nil
}

func writeFile(ctx context.Context, f Formatter, report *Report, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if err := f.Format(ctx, report, tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
