package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
)

var _ domrepo.BacktestReportSink = (*JSONReportSink)(nil)

// JSONReportSink writes the result as indented JSON to a file, or to w when path is empty.
type JSONReportSink struct {
	path string
	w    io.Writer
}

func NewJSONReportSink(path string, w io.Writer) *JSONReportSink {
	if w == nil {
		w = os.Stdout
	}
	return &JSONReportSink{path: path, w: w}
}

func (s *JSONReportSink) Write(_ context.Context, r models.BacktestResult) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	b = append(b, '\n')
	if s.path == "" {
		_, err = s.w.Write(b)
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("report dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return os.Rename(tmp, s.path)
}
