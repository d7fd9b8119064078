// Package validate provides the stateless pre-flight checks that gate
// pipeline entry: input video path, output directory, field-of-view range,
// and job-directory integrity for resumption.
package validate

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"equirect/internal/jobstore"
)

// inputExtensions is the fixed allow-list of container formats accepted as
// conversion input. No content sniffing is performed.
var inputExtensions = map[string]struct{}{
	".mp4":  {},
	".avi":  {},
	".mkv":  {},
	".webm": {},
	".mov":  {},
}

// InputVideo reports whether path exists, is a regular file, and carries an
// allowed container extension.
func InputVideo(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := inputExtensions[ext]
	return ok
}

// OutputDir reports whether path exists as a directory.
func OutputDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// WritableDir reports whether path is a directory the current user can
// write into and traverse. Used where a check-only OutputDir pass is not
// enough to guarantee the job directory can actually be created.
func WritableDir(path string) bool {
	if !OutputDir(path) {
		return false
	}
	return unix.Access(path, unix.W_OK|unix.X_OK) == nil
}

// FOV reports whether value is a valid field of view in degrees.
func FOV(value int) bool {
	return value >= 1 && value <= 360
}

// JobDir reports whether path holds a resumable job: the directory exists,
// all backing store artifacts exist, and the record deserializes with the
// expected shape. A job directory failing this check must never be resumed.
func JobDir(path string) bool {
	return jobstore.Check(path) == nil
}
