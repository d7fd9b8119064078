// Package pipeline drives a conversion job through its phases: segmenting
// the source, reprojecting each chunk, merging the results, and cleaning up.
// Validation runs synchronously so callers get immediate errors; the rest of
// the job runs on a worker goroutine that reports progress through a
// buffered event channel.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"equirect/internal/config"
	"equirect/internal/fileutil"
	"equirect/internal/jobstore"
	"equirect/internal/logging"
	"equirect/internal/merge"
	"equirect/internal/segment"
	"equirect/internal/services/ffmpeg"
	"equirect/internal/status"
	"equirect/internal/transcode"
	"equirect/internal/validate"
)

// Validation and admission errors. All are detectable with errors.Is.
var (
	ErrInvalidInputVideo = errors.New("input is not a readable video file")
	ErrInvalidOutputDir  = errors.New("output directory does not exist or is not writable")
	ErrInvalidFOV        = errors.New("field of view must be between 1 and 360 degrees")
	ErrCorruptJob        = errors.New("conversion directory is missing or corrupt")
	ErrJobLocked         = errors.New("conversion directory is in use by another process")
)

const (
	lockFileName    = "conversion.lock"
	jobDirTimestamp = "2006-01-02_15-04-05"
	outputSuffix    = "_converted"
)

// Runner starts and resumes conversion jobs.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
	client *ffmpeg.Client
}

// Option configures a Runner.
type Option func(*Runner)

// WithClient substitutes the ffmpeg client, used by tests to avoid spawning
// real processes.
func WithClient(client *ffmpeg.Client) Option {
	return func(r *Runner) { r.client = client }
}

// NewRunner constructs a runner from configuration. A nil logger is replaced
// with a no-op logger.
func NewRunner(cfg *config.Config, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Runner{
		cfg:    cfg,
		logger: logger,
		client: ffmpeg.New(cfg.FFmpegBinary()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Job is a running conversion. Consume Events until the channel closes, then
// call Wait for the outcome.
type Job struct {
	// Dir is the conversion directory holding chunks and the durable record.
	Dir string
	// OutputPath is where the merged video lands on success.
	OutputPath string

	videoName string
	fov       int
	sink      *status.ChannelSink
	done      chan struct{}
	err       error
}

// Events returns the job's status stream. The channel closes when the job
// finishes, whether it succeeded or failed.
func (j *Job) Events() <-chan status.Event { return j.sink.Events() }

// Wait blocks until the job finishes and returns its terminal error, if any.
func (j *Job) Wait() error {
	<-j.done
	return j.err
}

// StartNewJob validates the request, creates the conversion directory, and
// launches the conversion worker. The directory name embeds the start time so
// repeated conversions of the same source never collide.
func (r *Runner) StartNewJob(ctx context.Context, inputPath, outputDir string, fov int) (*Job, error) {
	inputPath, err := config.ExpandPath(inputPath)
	if err != nil {
		return nil, err
	}
	outputDir, err = config.ExpandPath(outputDir)
	if err != nil {
		return nil, err
	}
	if !validate.InputVideo(inputPath) {
		return nil, fmt.Errorf("%q: %w", inputPath, ErrInvalidInputVideo)
	}
	if !validate.WritableDir(outputDir) {
		return nil, fmt.Errorf("%q: %w", outputDir, ErrInvalidOutputDir)
	}
	if !validate.FOV(fov) {
		return nil, fmt.Errorf("%d: %w", fov, ErrInvalidFOV)
	}

	stem := segment.Stem(inputPath)
	jobDir := filepath.Join(outputDir, fmt.Sprintf("%s%s_%s", stem, outputSuffix, time.Now().Format(jobDirTimestamp)))
	if err := os.Mkdir(jobDir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversion directory: %w", err)
	}

	lock, err := acquireLock(jobDir)
	if err != nil {
		return nil, err
	}

	job := r.newJob(jobDir, outputDir, stem)
	job.videoName = filepath.Base(inputPath)
	job.fov = fov
	go r.run(ctx, job, lock, func(reporter *status.Reporter) (*jobstore.Store, int, error) {
		reporter.Initializing("Creating conversion directory")
		segmenter := segment.New(r.client, r.logger, r.cfg.FFmpeg.SegmentSeconds)
		store, err := segmenter.Run(ctx, inputPath, jobDir, fov, reporter)
		if err != nil {
			return nil, fov, err
		}
		return store, fov, nil
	})
	return job, nil
}

// ResumeJob picks up a job from its conversion directory. The directory must
// pass the store integrity check; anything less is reported as corrupt so
// the caller can distinguish a typo from a real interrupted job. Segmenting
// is never repeated on resume.
func (r *Runner) ResumeJob(ctx context.Context, jobDir string) (*Job, error) {
	jobDir, err := config.ExpandPath(jobDir)
	if err != nil {
		return nil, err
	}
	if err := jobstore.Check(jobDir); err != nil {
		return nil, fmt.Errorf("%q: %w: %w", jobDir, ErrCorruptJob, err)
	}

	store, err := jobstore.Open(jobDir)
	if err != nil {
		return nil, fmt.Errorf("%q: %w: %w", jobDir, ErrCorruptJob, err)
	}
	rec, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("%q: %w: %w", jobDir, ErrCorruptJob, err)
	}

	lock, err := acquireLock(jobDir)
	if err != nil {
		return nil, err
	}

	job := r.newJob(jobDir, filepath.Dir(jobDir), segment.Stem(rec.VideoName))
	job.videoName = rec.VideoName
	job.fov = rec.FOV
	go r.run(ctx, job, lock, func(*status.Reporter) (*jobstore.Store, int, error) {
		return store, rec.FOV, nil
	})
	return job, nil
}

func (r *Runner) newJob(jobDir, outputDir, stem string) *Job {
	return &Job{
		Dir:        jobDir,
		OutputPath: filepath.Join(outputDir, stem+outputSuffix+".mp4"),
		sink:       status.NewChannelSink(64),
		done:       make(chan struct{}),
	}
}

// run executes the remaining phases of a job. prepare yields the job store,
// either by segmenting a fresh input or by reopening an existing directory.
func (r *Runner) run(ctx context.Context, job *Job, lock *flock.Flock, prepare func(*status.Reporter) (*jobstore.Store, int, error)) {
	defer close(job.done)
	defer job.sink.Close()
	defer releaseLock(lock)

	reporter := status.NewReporter(job.videoName, job.fov, job.sink)

	store, fov, err := prepare(reporter)
	if err != nil {
		job.err = err
		reporter.Failure(status.PhaseInitializing, "segmenting input video", err)
		r.logger.Error("job failed", logging.FieldJobDir, job.Dir, logging.FieldPhase, string(status.PhaseInitializing), "error", err)
		return
	}

	transcoder := transcode.New(r.client, r.logger, ffmpeg.EncodeSettings{
		Codec:       r.cfg.Encoding.Codec,
		CRF:         r.cfg.Encoding.CRF,
		PixelFormat: r.cfg.Encoding.PixelFormat,
	})
	if err := transcoder.Run(ctx, store, fov, reporter); err != nil {
		job.err = err
		reporter.Failure(status.PhaseConvertingChunks, "converting chunk", err)
		r.logger.Error("job failed", logging.FieldJobDir, job.Dir, logging.FieldPhase, string(status.PhaseConvertingChunks), "error", err)
		return
	}

	merger := merge.New(r.client, r.logger)
	merged := filepath.Join(job.Dir, filepath.Base(job.OutputPath))
	if err := merger.Run(ctx, store, merged, reporter); err != nil {
		job.err = err
		reporter.Failure(status.PhaseMerging, "merging converted chunks", err)
		r.logger.Error("job failed", logging.FieldJobDir, job.Dir, logging.FieldPhase, string(status.PhaseMerging), "error", err)
		return
	}
	if err := os.Rename(merged, job.OutputPath); err != nil {
		job.err = err
		reporter.Failure(status.PhaseMerging, "moving merged video", err)
		r.logger.Error("job failed", logging.FieldJobDir, job.Dir, logging.FieldPhase, string(status.PhaseMerging), "error", err)
		return
	}

	reporter.CleanUp("Removing conversion data files")
	if err := store.Delete(); err != nil {
		job.err = err
		reporter.Failure(status.PhaseCleanUp, "removing conversion data files", err)
		return
	}
	if err := removeLockAndDir(lock, job.Dir); err != nil {
		job.err = err
		reporter.Failure(status.PhaseCleanUp, "removing conversion directory", err)
		return
	}

	reporter.Finished("Conversion completed")
	r.logger.Info("conversion completed", "output", job.OutputPath)
}

func acquireLock(jobDir string) (*flock.Flock, error) {
	lock := flock.New(filepath.Join(jobDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock conversion directory: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%q: %w", jobDir, ErrJobLocked)
	}
	return lock, nil
}

func releaseLock(lock *flock.Flock) {
	_ = lock.Unlock()
}

// removeLockAndDir releases the lock, deletes the lock file, and removes the
// now empty conversion directory.
func removeLockAndDir(lock *flock.Flock, jobDir string) error {
	if err := lock.Unlock(); err != nil {
		return fmt.Errorf("release conversion lock: %w", err)
	}
	if err := fileutil.RemoveIfExists(filepath.Join(jobDir, lockFileName)); err != nil {
		return err
	}
	if err := os.Remove(jobDir); err != nil {
		return fmt.Errorf("remove conversion directory: %w", err)
	}
	return nil
}
