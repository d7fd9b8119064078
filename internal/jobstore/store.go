package jobstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"equirect/internal/fileutil"
)

// Backing artifacts inside the job directory. All three must exist for the
// job to be considered resumable.
const (
	recordFileName = "conversion_data.json"
	backupFileName = "conversion_data.json.bak"
	metaFileName   = "conversion_data.meta"
)

// schemaVersion is bumped when the record layout changes. A job directory
// written by a different version is treated as corrupt rather than migrated;
// jobs are short-lived by design.
const schemaVersion = 1

// ErrCorrupt indicates the job directory's record is missing, unreadable, or
// has the wrong shape. A corrupt job must never be resumed.
var ErrCorrupt = errors.New("conversion record corrupt")

// Record is the durable state of one conversion job. ChunksAll is fixed at
// segmentation time and stored in descending numeric order; ChunksToConvert
// shrinks from the tail, one element per completed transcode.
type Record struct {
	VideoName       string   `json:"video_name"`
	FOV             int      `json:"fov"`
	ChunksAll       []string `json:"chunks_all"`
	ChunksToConvert []string `json:"chunks_to_convert"`
}

// Meta is the immutable creation stamp written once when the job is seeded.
type Meta struct {
	SchemaVersion int       `json:"schema_version"`
	JobID         string    `json:"job_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store persists one job's record inside its job directory.
type Store struct {
	dir string
}

// Create seeds a new store in dir. The caller must ensure the segment files
// listed in rec already exist on disk; the record is only written after them
// so an interrupted segmentation never leaves a record pointing at missing
// files.
func Create(dir string, rec Record) (*Store, error) {
	if rec.VideoName == "" {
		return nil, errors.New("record requires video_name")
	}
	if len(rec.ChunksAll) == 0 {
		return nil, errors.New("record requires at least one chunk")
	}

	meta := Meta{
		SchemaVersion: schemaVersion,
		JobID:         uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
	}
	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal meta: %w", err)
	}
	recordData, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	store := &Store{dir: dir}
	if err := fileutil.WriteFileAtomic(store.path(metaFileName), metaData, 0o644); err != nil {
		return nil, fmt.Errorf("write meta: %w", err)
	}
	if err := fileutil.WriteFileAtomic(store.path(backupFileName), recordData, 0o644); err != nil {
		return nil, fmt.Errorf("write backup: %w", err)
	}
	if err := fileutil.WriteFileAtomic(store.path(recordFileName), recordData, 0o644); err != nil {
		return nil, fmt.Errorf("write record: %w", err)
	}
	return store, nil
}

// Open attaches to an existing job directory after verifying its integrity.
func Open(dir string) (*Store, error) {
	if err := Check(dir); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Check is the crash-recovery integrity gate: it verifies the directory
// exists, all three backing artifacts exist, and the record deserializes with
// the expected field types. Any failure is reported as ErrCorrupt with
// detail.
func Check(dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: job directory missing: %s", ErrCorrupt, dir)
	}
	for _, name := range []string{recordFileName, backupFileName, metaFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("%w: missing artifact %s", ErrCorrupt, name)
		}
	}
	if _, err := readRecord(filepath.Join(dir, recordFileName)); err != nil {
		return err
	}
	return nil
}

// Dir returns the job directory the store lives in.
func (s *Store) Dir() string {
	return s.dir
}

// Load reads the current record.
func (s *Store) Load() (Record, error) {
	return readRecord(s.path(recordFileName))
}

// Meta reads the creation stamp.
func (s *Store) Meta() (Meta, error) {
	data, err := os.ReadFile(s.path(metaFileName))
	if err != nil {
		return Meta{}, fmt.Errorf("%w: read meta: %v", ErrCorrupt, err)
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, fmt.Errorf("%w: parse meta: %v", ErrCorrupt, err)
	}
	return meta, nil
}

// SetChunksToConvert durably replaces the pending-chunk list. The previous
// record is preserved as the backup before the atomic replace, so a crash at
// any point leaves a complete record on disk. Callers must only invoke this
// after the chunk's converted output is fully written.
func (s *Store) SetChunksToConvert(chunks []string) error {
	rec, err := s.Load()
	if err != nil {
		return err
	}
	rec.ChunksToConvert = chunks

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := fileutil.CopyFile(s.path(recordFileName), s.path(backupFileName)); err != nil {
		return fmt.Errorf("refresh backup: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path(recordFileName), data, 0o644); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Delete removes the three backing artifacts. This is the terminal operation
// for a job, performed only after the merge succeeded; it is idempotent.
func (s *Store) Delete() error {
	for _, name := range []string{recordFileName, backupFileName, metaFileName} {
		if err := fileutil.RemoveIfExists(s.path(name)); err != nil {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// rawRecord mirrors Record with pointer fields so a missing key is
// distinguishable from a zero value. A wrong-typed value (fov stored as a
// string, chunks stored as a scalar) fails to decode.
type rawRecord struct {
	VideoName       *string   `json:"video_name"`
	FOV             *int      `json:"fov"`
	ChunksAll       *[]string `json:"chunks_all"`
	ChunksToConvert *[]string `json:"chunks_to_convert"`
}

func readRecord(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("%w: read record: %v", ErrCorrupt, err)
	}
	var raw rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return Record{}, fmt.Errorf("%w: parse record: %v", ErrCorrupt, err)
	}
	if raw.VideoName == nil || raw.FOV == nil || raw.ChunksAll == nil || raw.ChunksToConvert == nil {
		return Record{}, fmt.Errorf("%w: record is missing required fields", ErrCorrupt)
	}
	return Record{
		VideoName:       *raw.VideoName,
		FOV:             *raw.FOV,
		ChunksAll:       *raw.ChunksAll,
		ChunksToConvert: *raw.ChunksToConvert,
	}, nil
}
