package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func stepLine(label, message, clock string) string {
	return fmt.Sprintf(`<![LOG[STEP %s: %s]LOG]!><time="%s+000" date="01-02-2024" component="TSManager" context="" type="1" thread="1204" file="">`,
		label, message, clock)
}

// deploymentLog has two successes, one failure with a code and one warning.
func deploymentLog() string {
	return strings.Join([]string{
		`<![LOG[Task sequence started]LOG]!><time="10:00:00.000+000" date="01-02-2024" component="TSManager" context="" type="1" thread="1204" file="">`,
		stepLine("Success", "Install Agent", "10:00:00.000"),
		stepLine("Warning", "Disk space low", "10:00:30.000"),
		stepLine("Error code=0x80004005", "Install Office failed", "10:01:00.000"),
		stepLine("Success", "Apply Settings", "10:02:00.000"),
	}, "\r\n") + "\r\n"
}

func cleanLog() string {
	return stepLine("Success", "Install Agent", "10:00:00.000") + "\n" +
		stepLine("Success", "Apply Settings", "10:01:00.000") + "\n"
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}
