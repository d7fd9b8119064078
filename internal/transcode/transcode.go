// Package transcode drains a job's pending chunk list, reprojecting each
// chunk from side by side fisheye to equirectangular through ffmpeg. Every
// chunk is committed to the job store before its original is removed, so a
// crash at any point leaves the job resumable without losing finished work.
package transcode

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"equirect/internal/fileutil"
	"equirect/internal/jobstore"
	"equirect/internal/logging"
	"equirect/internal/segment"
	"equirect/internal/services/ffmpeg"
	"equirect/internal/status"
)

// Transcoder converts pending chunks one at a time, lowest sequence first.
type Transcoder struct {
	client   *ffmpeg.Client
	logger   *slog.Logger
	encoding ffmpeg.EncodeSettings
}

// New constructs a transcoder. A nil logger is replaced with a no-op logger.
func New(client *ffmpeg.Client, logger *slog.Logger, encoding ffmpeg.EncodeSettings) *Transcoder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Transcoder{client: client, logger: logger, encoding: encoding}
}

// Run processes the store's pending chunks until none remain. The pending
// list is persisted after each chunk completes, with the converted output on
// disk before the list shrinks and the original chunk removed only after the
// shrunken list is durable. Any pre-existing converted output for a chunk is
// discarded before transcoding so an interrupted attempt never contributes a
// partial file.
func (t *Transcoder) Run(ctx context.Context, store *jobstore.Store, fov int, reporter *status.Reporter) error {
	rec, err := store.Load()
	if err != nil {
		return err
	}
	total := len(rec.ChunksAll)
	pending := append([]string(nil), rec.ChunksToConvert...)

	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk := pending[len(pending)-1]
		if err := reporter.ConvertingChunk(total, len(pending), fmt.Sprintf("Converting chunk %s", segment.Stem(chunk))); err != nil {
			return err
		}
		t.logger.Info("converting chunk",
			logging.FieldChunk, chunk,
			"remaining", len(pending),
			"total", total)

		chunkPath := filepath.Join(store.Dir(), chunk)
		convPath := filepath.Join(store.Dir(), segment.ConvertedName(chunk))

		if err := fileutil.RemoveIfExists(convPath); err != nil {
			return fmt.Errorf("chunk %s: %w", chunk, err)
		}
		if err := t.client.Transform(ctx, chunkPath, convPath, fov, t.encoding); err != nil {
			return fmt.Errorf("chunk %s: %w", chunk, err)
		}

		pending = pending[:len(pending)-1]
		if err := store.SetChunksToConvert(pending); err != nil {
			return fmt.Errorf("chunk %s: %w", chunk, err)
		}
		if err := fileutil.RemoveIfExists(chunkPath); err != nil {
			return fmt.Errorf("chunk %s: %w", chunk, err)
		}
	}
	return nil
}
