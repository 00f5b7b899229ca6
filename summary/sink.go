// Package summary persists and validates export attempt summaries.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Sink receives the summary document of one export attempt
type Sink interface {
	Write(ctx context.Context, attemptID string, doc map[string]any) error
}

// FileSink writes one indented JSON summary file per attempt into a directory
type FileSink struct {
	dir string
}

// NewFileSink creates a FileSink writing into dir, creating it if needed
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("summary: create dir %s: %w", dir, err)
	}
	return &FileSink{dir: dir}, nil
}

// Write persists the summary as <attemptID>-result.json
func (s *FileSink) Write(ctx context.Context, attemptID string, doc map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("summary: marshal %s: %w", attemptID, err)
	}
	path := filepath.Join(s.dir, attemptID+"-result.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("summary: write %s: %w", path, err)
	}
	return nil
}

// Path returns the file path a given attempt's summary is written to
func (s *FileSink) Path(attemptID string) string {
	return filepath.Join(s.dir, attemptID+"-result.json")
}
