// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sloperunner/engine/pkg/core"
)

// LeaderboardExport is the root JSON structure written on Close
type LeaderboardExport struct {
	ExportedAt time.Time               `json:"exportedAt"`
	Saves      int                     `json:"saves"`
	Entries    []core.LeaderboardEntry `json:"entries"`
}

// exportJSON writes the list to a (optionally gzipped) JSON file. Callers hold mu.
func (s *Store) exportJSON() error {
	started := s.started
	if started.IsZero() {
		started = time.Now()
	}
	timestamp := started.Format("20060102_150405")

	var filename string
	if s.cfg.CompressOutput {
		filename = fmt.Sprintf("leaderboard_%s.json.gz", timestamp)
	} else {
		filename = fmt.Sprintf("leaderboard_%s.json", timestamp)
	}
	outputPath := filepath.Join(s.cfg.OutputDir, filename)

	if err := os.MkdirAll(s.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	export := LeaderboardExport{
		ExportedAt: time.Now().UTC(),
		Saves:      s.saves,
		Entries:    clone(s.entries),
	}

	var err error
	if s.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	s.lastExportPath = outputPath
	return nil
}

func writeJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func writeGzipJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	if err := json.NewEncoder(gw).Encode(data); err != nil {
		_ = gw.Close()
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return nil
}
