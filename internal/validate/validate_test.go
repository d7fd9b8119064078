package validate_test

import (
	"os"
	"path/filepath"
	"testing"

	"equirect/internal/jobstore"
	"equirect/internal/validate"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestInputVideo(t *testing.T) {
	dir := t.TempDir()

	accepted := []string{"clip.mp4", "clip.avi", "clip.mkv", "clip.webm", "clip.mov", "CLIP.MP4"}
	for _, name := range accepted {
		path := filepath.Join(dir, name)
		writeFile(t, path)
		if !validate.InputVideo(path) {
			t.Errorf("expected %s to be accepted", name)
		}
	}

	rejected := filepath.Join(dir, "notes.txt")
	writeFile(t, rejected)
	if validate.InputVideo(rejected) {
		t.Error("expected .txt to be rejected")
	}
	if validate.InputVideo(filepath.Join(dir, "missing.mp4")) {
		t.Error("expected missing file to be rejected")
	}
	if validate.InputVideo(dir) {
		t.Error("expected directory to be rejected")
	}
}

func TestOutputDir(t *testing.T) {
	dir := t.TempDir()
	if !validate.OutputDir(dir) {
		t.Error("expected existing directory to be accepted")
	}
	if validate.OutputDir(filepath.Join(dir, "missing")) {
		t.Error("expected missing directory to be rejected")
	}
	file := filepath.Join(dir, "file.mp4")
	writeFile(t, file)
	if validate.OutputDir(file) {
		t.Error("expected regular file to be rejected")
	}
}

func TestWritableDir(t *testing.T) {
	dir := t.TempDir()
	if !validate.WritableDir(dir) {
		t.Error("expected temp dir to be writable")
	}
	if validate.WritableDir(filepath.Join(dir, "missing")) {
		t.Error("expected missing dir to be rejected")
	}
}

func TestFOV(t *testing.T) {
	cases := []struct {
		value int
		want  bool
	}{
		{1, true},
		{190, true},
		{360, true},
		{0, false},
		{361, false},
		{-45, false},
	}
	for _, tc := range cases {
		if got := validate.FOV(tc.value); got != tc.want {
			t.Errorf("FOV(%d) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestJobDir(t *testing.T) {
	dir := t.TempDir()
	if validate.JobDir(dir) {
		t.Error("expected empty directory to be rejected")
	}

	if _, err := jobstore.Create(dir, jobstore.Record{
		VideoName:       "a.mp4",
		FOV:             190,
		ChunksAll:       []string{"0.mp4"},
		ChunksToConvert: []string{"0.mp4"},
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !validate.JobDir(dir) {
		t.Error("expected seeded job directory to be accepted")
	}

	if err := os.Remove(filepath.Join(dir, "conversion_data.meta")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if validate.JobDir(dir) {
		t.Error("expected job dir with missing artifact to be rejected")
	}
}
