// Package merge reassembles converted chunks into the final video through
// ffmpeg's concat demuxer and removes the per-chunk intermediates afterward.
package merge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"equirect/internal/fileutil"
	"equirect/internal/jobstore"
	"equirect/internal/logging"
	"equirect/internal/segment"
	"equirect/internal/services/ffmpeg"
	"equirect/internal/status"
)

const manifestName = "chunks.txt"

// Merger concatenates a job's converted chunks into one output file.
type Merger struct {
	client *ffmpeg.Client
	logger *slog.Logger
}

// New constructs a merger. A nil logger is replaced with a no-op logger.
func New(client *ffmpeg.Client, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Merger{client: client, logger: logger}
}

// Run writes the concat manifest in playback order, concatenates the
// converted chunks into outputPath, and then removes the chunks and the
// manifest. The manifest and output are regenerated from scratch on every
// run, so an interrupted merge simply repeats. Removal of intermediates
// happens only after the output exists in full.
func (m *Merger) Run(ctx context.Context, store *jobstore.Store, outputPath string, reporter *status.Reporter) error {
	rec, err := store.Load()
	if err != nil {
		return err
	}
	if len(rec.ChunksAll) == 0 {
		return status.ErrNoChunks
	}

	reporter.Merging("Merging converted chunks into single video file")

	// ChunksAll is held highest sequence first; playback order is the
	// reverse.
	converted := make([]string, 0, len(rec.ChunksAll))
	for i := len(rec.ChunksAll) - 1; i >= 0; i-- {
		converted = append(converted, segment.ConvertedName(rec.ChunksAll[i]))
	}

	manifestPath := filepath.Join(store.Dir(), manifestName)
	if err := writeManifest(manifestPath, converted); err != nil {
		return err
	}

	if err := fileutil.RemoveIfExists(outputPath); err != nil {
		return err
	}
	if err := m.client.Concat(ctx, manifestPath, outputPath); err != nil {
		return err
	}
	m.logger.Info("merged converted chunks",
		logging.FieldJobDir, store.Dir(),
		"chunks", len(converted),
		"output", outputPath)

	reporter.CleanUp("Removing chunk files")
	for _, name := range converted {
		if err := fileutil.RemoveIfExists(filepath.Join(store.Dir(), name)); err != nil {
			return err
		}
	}
	return fileutil.RemoveIfExists(manifestPath)
}

func writeManifest(path string, entries []string) error {
	var b strings.Builder
	for _, entry := range entries {
		fmt.Fprintf(&b, "file '%s'\n", entry)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat manifest: %w", err)
	}
	return nil
}
