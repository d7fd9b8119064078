package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteVideo creates a placeholder video file at path. The contents are not
// real media; they only need to satisfy path validation.
func WriteVideo(t testing.TB, path string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("not a real video"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
