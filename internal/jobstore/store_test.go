package jobstore_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"equirect/internal/jobstore"
)

func newRecord() jobstore.Record {
	return jobstore.Record{
		VideoName:       "holiday.mp4",
		FOV:             190,
		ChunksAll:       []string{"2.mp4", "1.mp4", "0.mp4"},
		ChunksToConvert: []string{"2.mp4", "1.mp4", "0.mp4"},
	}
}

func TestCreateWritesAllArtifacts(t *testing.T) {
	dir := t.TempDir()
	if _, err := jobstore.Create(dir, newRecord()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, name := range []string{"conversion_data.json", "conversion_data.json.bak", "conversion_data.meta"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}
	if err := jobstore.Check(dir); err != nil {
		t.Fatalf("Check after Create: %v", err)
	}
}

func TestCreateRejectsEmptyChunks(t *testing.T) {
	rec := newRecord()
	rec.ChunksAll = nil
	if _, err := jobstore.Create(t.TempDir(), rec); err == nil {
		t.Fatal("expected error for empty chunk list")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := newRecord()
	store, err := jobstore.Create(dir, want)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("record mismatch:\n got %#v\nwant %#v", got, want)
	}

	meta, err := store.Meta()
	if err != nil {
		t.Fatalf("Meta: %v", err)
	}
	if meta.JobID == "" || meta.CreatedAt.IsZero() {
		t.Fatalf("incomplete meta: %#v", meta)
	}
}

func TestSetChunksToConvertShrinksAndKeepsBackup(t *testing.T) {
	dir := t.TempDir()
	store, err := jobstore.Create(dir, newRecord())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.SetChunksToConvert([]string{"2.mp4", "1.mp4"}); err != nil {
		t.Fatalf("SetChunksToConvert: %v", err)
	}

	rec, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(rec.ChunksToConvert, []string{"2.mp4", "1.mp4"}) {
		t.Fatalf("unexpected pending list %v", rec.ChunksToConvert)
	}
	if !reflect.DeepEqual(rec.ChunksAll, []string{"2.mp4", "1.mp4", "0.mp4"}) {
		t.Fatalf("chunks_all must not change, got %v", rec.ChunksAll)
	}
	if err := jobstore.Check(dir); err != nil {
		t.Fatalf("Check after update: %v", err)
	}
}

func TestOpenAfterRestart(t *testing.T) {
	dir := t.TempDir()
	if _, err := jobstore.Create(dir, newRecord()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	store, err := jobstore.Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rec, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec.VideoName != "holiday.mp4" || rec.FOV != 190 {
		t.Fatalf("unexpected record %#v", rec)
	}
}

func TestCheckRejectsMissingArtifacts(t *testing.T) {
	for _, name := range []string{"conversion_data.json", "conversion_data.json.bak", "conversion_data.meta"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			if _, err := jobstore.Create(dir, newRecord()); err != nil {
				t.Fatalf("Create: %v", err)
			}
			if err := os.Remove(filepath.Join(dir, name)); err != nil {
				t.Fatalf("Remove: %v", err)
			}
			if err := jobstore.Check(dir); !errors.Is(err, jobstore.ErrCorrupt) {
				t.Fatalf("expected ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestCheckRejectsWrongShapes(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"fov as text", `{"video_name":"a.mp4","fov":"190","chunks_all":["0.mp4"],"chunks_to_convert":["0.mp4"]}`},
		{"chunks as scalar", `{"video_name":"a.mp4","fov":190,"chunks_all":"0.mp4","chunks_to_convert":["0.mp4"]}`},
		{"missing key", `{"video_name":"a.mp4","fov":190,"chunks_all":["0.mp4"]}`},
		{"not json", `shelve`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			if _, err := jobstore.Create(dir, newRecord()); err != nil {
				t.Fatalf("Create: %v", err)
			}
			if err := os.WriteFile(filepath.Join(dir, "conversion_data.json"), []byte(tc.content), 0o644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			if err := jobstore.Check(dir); !errors.Is(err, jobstore.ErrCorrupt) {
				t.Fatalf("expected ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestCheckRejectsMissingDirectory(t *testing.T) {
	if err := jobstore.Check(filepath.Join(t.TempDir(), "nope")); !errors.Is(err, jobstore.ErrCorrupt) {
		t.Fatal("expected ErrCorrupt for missing directory")
	}
}

func TestDeleteRemovesArtifactsAndIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	store, err := jobstore.Create(dir, newRecord())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(); err != nil {
		t.Fatalf("second Delete: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty job directory, found %d entries", len(entries))
	}
}
