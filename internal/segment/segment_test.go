package segment_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"

	"equirect/internal/segment"
	"equirect/internal/services/ffmpeg"
	"equirect/internal/status"
)

// segmentingExecutor mimics ffmpeg's segment muxer by writing numbered chunk
// files matching the output pattern.
type segmentingExecutor struct {
	chunkCount int
	err        error
}

func (e *segmentingExecutor) Run(_ context.Context, _ string, args []string) error {
	if e.err != nil {
		return e.err
	}
	pattern := args[len(args)-1]
	dir := filepath.Dir(pattern)
	ext := filepath.Ext(pattern)
	for i := 0; i < e.chunkCount; i++ {
		path := filepath.Join(dir, strconv.Itoa(i)+ext)
		if err := os.WriteFile(path, []byte("chunk"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func discardReporter() *status.Reporter {
	return status.NewReporter("holiday.mp4", 190, status.SinkFunc(func(status.Event) {}))
}

func TestRunSeedsStoreDescending(t *testing.T) {
	jobDir := t.TempDir()
	client := ffmpeg.New("ffmpeg", ffmpeg.WithExecutor(&segmentingExecutor{chunkCount: 3}))
	segmenter := segment.New(client, nil, 1)

	store, err := segmenter.Run(context.Background(), "/videos/holiday.mp4", jobDir, 190, discardReporter())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	rec, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"2.mp4", "1.mp4", "0.mp4"}
	if !reflect.DeepEqual(rec.ChunksAll, want) {
		t.Fatalf("chunks_all = %v, want %v", rec.ChunksAll, want)
	}
	if !reflect.DeepEqual(rec.ChunksToConvert, want) {
		t.Fatalf("chunks_to_convert = %v, want %v", rec.ChunksToConvert, want)
	}
	if rec.VideoName != "holiday.mp4" || rec.FOV != 190 {
		t.Fatalf("unexpected identity %q/%d", rec.VideoName, rec.FOV)
	}
}

func TestRunIgnoresForeignFiles(t *testing.T) {
	jobDir := t.TempDir()
	for _, name := range []string{"notes.txt", "3.mkv", "x.mp4"} {
		if err := os.WriteFile(filepath.Join(jobDir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	client := ffmpeg.New("ffmpeg", ffmpeg.WithExecutor(&segmentingExecutor{chunkCount: 2}))
	segmenter := segment.New(client, nil, 1)

	store, err := segmenter.Run(context.Background(), "/videos/holiday.mp4", jobDir, 190, discardReporter())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	rec, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"1.mp4", "0.mp4"}
	if !reflect.DeepEqual(rec.ChunksAll, want) {
		t.Fatalf("chunks_all = %v, want %v", rec.ChunksAll, want)
	}
}

func TestRunFailsWhenNoChunksProduced(t *testing.T) {
	client := ffmpeg.New("ffmpeg", ffmpeg.WithExecutor(&segmentingExecutor{chunkCount: 0}))
	segmenter := segment.New(client, nil, 1)

	_, err := segmenter.Run(context.Background(), "/videos/holiday.mp4", t.TempDir(), 190, discardReporter())
	if !errors.Is(err, segment.ErrNoChunksProduced) {
		t.Fatalf("expected ErrNoChunksProduced, got %v", err)
	}
}

func TestRunPropagatesToolFailureWithoutStore(t *testing.T) {
	jobDir := t.TempDir()
	toolErr := errors.New("exit status 1")
	client := ffmpeg.New("ffmpeg", ffmpeg.WithExecutor(&segmentingExecutor{err: toolErr}))
	segmenter := segment.New(client, nil, 1)

	_, err := segmenter.Run(context.Background(), "/videos/holiday.mp4", jobDir, 190, discardReporter())
	if !errors.Is(err, toolErr) {
		t.Fatalf("expected tool error, got %v", err)
	}

	// An interrupted segmentation must not leave a resumable store behind.
	if _, err := os.Stat(filepath.Join(jobDir, "conversion_data.json")); !os.IsNotExist(err) {
		t.Fatal("store record must not exist after failed segmentation")
	}
}

func TestStemAndConvertedName(t *testing.T) {
	if got := segment.Stem("12.mkv"); got != "12" {
		t.Fatalf("Stem = %q", got)
	}
	if got := segment.ConvertedName("12.mkv"); got != "12_conv.mp4" {
		t.Fatalf("ConvertedName = %q", got)
	}
	if got := segment.ConvertedName("/jobs/trip/0.webm"); got != "0_conv.mp4" {
		t.Fatalf("ConvertedName with path = %q", got)
	}
}
