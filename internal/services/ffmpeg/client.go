package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// EncodeSettings is the fixed quality policy applied to converted chunks.
type EncodeSettings struct {
	Codec       string
	CRF         int
	PixelFormat string
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps ffmpeg CLI interactions. Exactly one invocation runs at a
// time per client use site; the pipeline's strictly sequential steps
// guarantee no overlap.
type Client struct {
	binary string
	exec   Executor
}

// New constructs an ffmpeg client.
func New(binary string, opts ...Option) *Client {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	client := &Client{
		binary: binary,
		exec:   commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Segment splits inputPath into fixed-length stream-copied pieces inside
// destDir, named by ascending integer with the source's extension.
func (c *Client) Segment(ctx context.Context, inputPath, destDir string, segmentSeconds int) error {
	if inputPath == "" {
		return errors.New("input path required")
	}
	if destDir == "" {
		return errors.New("destination directory required")
	}
	if segmentSeconds < 1 {
		return errors.New("segment length must be at least 1 second")
	}

	ext := filepath.Ext(inputPath)
	args := []string{
		"-i", inputPath,
		"-c", "copy",
		"-map", "0",
		"-segment_time", strconv.Itoa(segmentSeconds),
		"-f", "segment",
		"-reset_timestamps", "1",
		filepath.Join(destDir, "%d"+ext),
	}
	if err := c.exec.Run(ctx, c.binary, args); err != nil {
		return fmt.Errorf("ffmpeg segment: %w", err)
	}
	return nil
}

// Transform reprojects one chunk from side-by-side fisheye to side-by-side
// half-equirectangular, mapping the video stream only, with both the
// horizontal and vertical field of view set to fov degrees.
func (c *Client) Transform(ctx context.Context, inputPath, outputPath string, fov int, enc EncodeSettings) error {
	if inputPath == "" {
		return errors.New("input path required")
	}
	if outputPath == "" {
		return errors.New("output path required")
	}
	if fov < 1 || fov > 360 {
		return fmt.Errorf("field of view %d out of range", fov)
	}

	filter := fmt.Sprintf(
		"v360=input=fisheye:ih_fov=%d:iv_fov=%d:output=hequirect:in_stereo=sbs:out_stereo=sbs",
		fov, fov,
	)
	args := []string{
		"-i", inputPath,
		"-filter:v", filter,
		"-map", "0",
		"-c:v", enc.Codec,
		"-crf", strconv.Itoa(enc.CRF),
		"-pix_fmt", enc.PixelFormat,
		outputPath,
	}
	if err := c.exec.Run(ctx, c.binary, args); err != nil {
		return fmt.Errorf("ffmpeg transform: %w", err)
	}
	return nil
}

// Concat demux-concatenates the files listed in manifestPath, stream-copied,
// into outputPath.
func (c *Client) Concat(ctx context.Context, manifestPath, outputPath string) error {
	if manifestPath == "" {
		return errors.New("manifest path required")
	}
	if outputPath == "" {
		return errors.New("output path required")
	}

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c", "copy",
		outputPath,
	}
	if err := c.exec.Run(ctx, c.binary, args); err != nil {
		return fmt.Errorf("ffmpeg concat: %w", err)
	}
	return nil
}
