// Package segment splits a source video into fixed-duration chunk files and
// seeds the job store that drives the rest of the pipeline. It also owns the
// chunk file naming conventions the transcode and merge stages rely on.
package segment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"equirect/internal/jobstore"
	"equirect/internal/logging"
	"equirect/internal/services/ffmpeg"
	"equirect/internal/status"
)

// ConvertedSuffix is appended to a chunk's stem to name its converted
// counterpart.
const ConvertedSuffix = "_conv"

// ErrNoChunksProduced indicates the split finished without producing any
// chunk files, which means the source is unreadable or empty.
var ErrNoChunksProduced = errors.New("segmentation produced no chunks")

// Stem returns the file name without its extension.
func Stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ConvertedName maps a chunk filename to its converted counterpart
// (stem + "_conv.mp4").
func ConvertedName(chunk string) string {
	return Stem(chunk) + ConvertedSuffix + ".mp4"
}

// Segmenter cuts the source into chunks and records them durably.
type Segmenter struct {
	client         *ffmpeg.Client
	logger         *slog.Logger
	segmentSeconds int
}

// New constructs a Segmenter. segmentSeconds below 1 falls back to 1.
func New(client *ffmpeg.Client, logger *slog.Logger, segmentSeconds int) *Segmenter {
	if logger == nil {
		logger = logging.NewNop()
	}
	if segmentSeconds < 1 {
		segmentSeconds = 1
	}
	return &Segmenter{client: client, logger: logger, segmentSeconds: segmentSeconds}
}

// Run splits inputPath into jobDir and seeds the job store. The store record
// is written only after the chunk files exist on disk, so an interrupted
// segmentation leaves a directory that fails the resume integrity gate
// instead of a record pointing at missing files.
//
// Chunks are listed in descending numeric order; that is the canonical
// processing order (highest-numbered chunk first). The merge stage restores
// chronological order explicitly.
func (s *Segmenter) Run(ctx context.Context, inputPath, jobDir string, fov int, reporter *status.Reporter) (*jobstore.Store, error) {
	reporter.Initializing("Cutting video into chunks")
	if err := s.client.Segment(ctx, inputPath, jobDir, s.segmentSeconds); err != nil {
		return nil, err
	}

	chunks, err := discoverChunks(jobDir, filepath.Ext(inputPath))
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrNoChunksProduced
	}
	s.logger.Info("video segmented",
		slog.String(logging.FieldJobDir, jobDir),
		slog.Int("chunks", len(chunks)),
	)

	reporter.Initializing("Creating conversion data files")
	store, err := jobstore.Create(jobDir, jobstore.Record{
		VideoName:       filepath.Base(inputPath),
		FOV:             fov,
		ChunksAll:       chunks,
		ChunksToConvert: append([]string(nil), chunks...),
	})
	if err != nil {
		return nil, fmt.Errorf("seed job store: %w", err)
	}
	return store, nil
}

// discoverChunks lists files in dir whose stem is an integer and whose
// extension matches the source, sorted descending by that integer.
func discoverChunks(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	type chunk struct {
		seq  int
		name string
	}
	found := make([]chunk, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != ext {
			continue
		}
		seq, err := strconv.Atoi(strings.TrimSuffix(name, ext))
		if err != nil {
			continue
		}
		found = append(found, chunk{seq: seq, name: name})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].seq > found[j].seq })

	names := make([]string, len(found))
	for i, c := range found {
		names[i] = c.name
	}
	return names, nil
}
