// Package ffmpeg supervises the external transcoder for the three
// invocations the pipeline needs: splitting the source into chunks,
// reprojecting one chunk from fisheye to half-equirectangular, and
// concatenating converted chunks into the final output.
//
// The child's stdout is discarded and only a bounded stderr tail is kept for
// error reporting. Each invocation runs in its own process group so that
// cancelling the calling context (normal error unwind or host shutdown
// signal) tears the whole transcoder tree down rather than orphaning it.
// Exit status is always checked; a failing step surfaces as an error instead
// of being silently ignored.
package ffmpeg
