package analyzer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// SummaryWriter writes summaries to a JSON file atomically.
//
// Writes are serialized through a lock file next to the output, so a watch
// loop and a one-off run never interleave.
type SummaryWriter struct {
	path string
	lock *flock.Flock
}

// NewSummaryWriter creates a writer for outputDir/fileName, creating
// outputDir if needed.
func NewSummaryWriter(outputDir, fileName string) (*SummaryWriter, error) {
	if fileName == "" {
		fileName = DefaultOutputFile
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(outputDir, fileName)
	return &SummaryWriter{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Path returns the summary file path.
func (w *SummaryWriter) Path() string {
	return w.path
}

// Write marshals the summary with two-space indentation, leaving non-ASCII
// and HTML characters unescaped, and renames it into place.
func (w *SummaryWriter) Write(summary *Summary) error {
	data, err := MarshalSummary(summary)
	if err != nil {
		return err
	}

	if err := w.lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", w.path, err)
	}
	defer w.lock.Unlock()

	tempFile, err := os.CreateTemp(filepath.Dir(w.path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Rename to final location (atomic operation)
	if err := os.Rename(tempPath, w.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// MarshalSummary renders the summary document.
func MarshalSummary(summary *Summary) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(summary); err != nil {
		return nil, fmt.Errorf("failed to marshal summary: %w", err)
	}
	return buf.Bytes(), nil
}
