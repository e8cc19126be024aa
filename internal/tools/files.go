package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileWriter writes agent output files inside a workspace root. Paths are
// resolved relative to the root and may not escape it.
type FileWriter struct {
	Root string
}

// NewFileWriter creates a FileWriter rooted at root.
func NewFileWriter(root string) *FileWriter {
	return &FileWriter{Root: root}
}

// Write stores content at relPath under the workspace root and returns a
// confirmation line.
func (f *FileWriter) Write(relPath, content string) (string, error) {
	relPath = strings.TrimSpace(relPath)
	if relPath == "" {
		return "", fmt.Errorf("write_file requires params.filePath")
	}
	if filepath.IsAbs(relPath) {
		return "", fmt.Errorf("write_file path must be relative to the workspace")
	}

	root, err := filepath.Abs(f.Root)
	if err != nil {
		return "", err
	}
	full := filepath.Join(root, relPath)
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", fmt.Errorf("write_file path escapes the workspace: %s", relPath)
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		return "", err
	}
	return fmt.Sprintf("Wrote %d bytes to %s", len(content), relPath), nil
}
