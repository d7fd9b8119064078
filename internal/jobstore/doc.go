// Package jobstore persists per-job conversion state inside the job
// directory and is the single source of truth for crash recovery.
//
// The record holds four fields: the immutable video_name, fov, and
// chunks_all, plus the mutable chunks_to_convert list that shrinks as chunks
// complete. Three artifacts back the record: the current JSON document, a
// backup refreshed before every replace, and an immutable creation stamp.
// All writes go through atomic write-replace so a crash at any point leaves
// a complete record on disk.
//
// Two orderings make interrupted runs recoverable: the record is first
// written only after the segment files it lists exist, and the pending list
// is only rewritten after the finished chunk's converted output is fully on
// disk. Check enforces the integrity gate a directory must pass before it is
// resumed.
package jobstore
