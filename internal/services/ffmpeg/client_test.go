package ffmpeg_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"equirect/internal/services/ffmpeg"
)

type fakeExecutor struct {
	binary string
	args   []string
	err    error
}

func (f *fakeExecutor) Run(_ context.Context, binary string, args []string) error {
	f.binary = binary
	f.args = append([]string(nil), args...)
	return f.err
}

func TestSegmentArgs(t *testing.T) {
	fake := &fakeExecutor{}
	client := ffmpeg.New("ffmpeg", ffmpeg.WithExecutor(fake))

	if err := client.Segment(context.Background(), "/videos/trip.mkv", "/jobs/trip", 1); err != nil {
		t.Fatalf("Segment: %v", err)
	}
	want := []string{
		"-i", "/videos/trip.mkv",
		"-c", "copy",
		"-map", "0",
		"-segment_time", "1",
		"-f", "segment",
		"-reset_timestamps", "1",
		"/jobs/trip/%d.mkv",
	}
	if strings.Join(fake.args, " ") != strings.Join(want, " ") {
		t.Fatalf("unexpected args:\n got %v\nwant %v", fake.args, want)
	}
}

func TestSegmentRejectsBadInput(t *testing.T) {
	client := ffmpeg.New("ffmpeg", ffmpeg.WithExecutor(&fakeExecutor{}))
	if err := client.Segment(context.Background(), "", "/jobs", 1); err == nil {
		t.Fatal("expected error for empty input")
	}
	if err := client.Segment(context.Background(), "/v.mp4", "/jobs", 0); err == nil {
		t.Fatal("expected error for zero segment length")
	}
}

func TestTransformArgs(t *testing.T) {
	fake := &fakeExecutor{}
	client := ffmpeg.New("ffmpeg", ffmpeg.WithExecutor(fake))
	enc := ffmpeg.EncodeSettings{Codec: "libx265", CRF: 18, PixelFormat: "yuv420p"}

	if err := client.Transform(context.Background(), "/jobs/trip/0.mkv", "/jobs/trip/0_conv.mp4", 190, enc); err != nil {
		t.Fatalf("Transform: %v", err)
	}
	joined := strings.Join(fake.args, " ")
	wantFilter := "v360=input=fisheye:ih_fov=190:iv_fov=190:output=hequirect:in_stereo=sbs:out_stereo=sbs"
	if !strings.Contains(joined, "-filter:v "+wantFilter) {
		t.Fatalf("missing v360 filter in %q", joined)
	}
	for _, fragment := range []string{"-map 0", "-c:v libx265", "-crf 18", "-pix_fmt yuv420p"} {
		if !strings.Contains(joined, fragment) {
			t.Errorf("missing %q in %q", fragment, joined)
		}
	}
	if fake.args[len(fake.args)-1] != "/jobs/trip/0_conv.mp4" {
		t.Fatalf("output path should be last arg, got %v", fake.args)
	}
}

func TestTransformRejectsBadFOV(t *testing.T) {
	client := ffmpeg.New("ffmpeg", ffmpeg.WithExecutor(&fakeExecutor{}))
	enc := ffmpeg.EncodeSettings{Codec: "libx265", CRF: 18, PixelFormat: "yuv420p"}
	for _, fov := range []int{0, 361, -1} {
		if err := client.Transform(context.Background(), "/in.mp4", "/out.mp4", fov, enc); err == nil {
			t.Errorf("expected error for fov %d", fov)
		}
	}
}

func TestConcatArgs(t *testing.T) {
	fake := &fakeExecutor{}
	client := ffmpeg.New("ffmpeg", ffmpeg.WithExecutor(fake))

	if err := client.Concat(context.Background(), "/jobs/trip/chunks.txt", "/jobs/trip/trip_converted.mp4"); err != nil {
		t.Fatalf("Concat: %v", err)
	}
	want := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", "/jobs/trip/chunks.txt",
		"-c", "copy",
		"/jobs/trip/trip_converted.mp4",
	}
	if strings.Join(fake.args, " ") != strings.Join(want, " ") {
		t.Fatalf("unexpected args:\n got %v\nwant %v", fake.args, want)
	}
}

func TestStepErrorsAreWrapped(t *testing.T) {
	toolErr := errors.New("exit status 1: No such filter: 'v361'")
	fake := &fakeExecutor{err: toolErr}
	client := ffmpeg.New("ffmpeg", ffmpeg.WithExecutor(fake))
	enc := ffmpeg.EncodeSettings{Codec: "libx265", CRF: 18, PixelFormat: "yuv420p"}

	err := client.Transform(context.Background(), "/in.mp4", "/out.mp4", 190, enc)
	if !errors.Is(err, toolErr) {
		t.Fatalf("expected wrapped tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "ffmpeg transform") {
		t.Fatalf("expected step name in error, got %v", err)
	}
}

func TestNewDefaultsBinary(t *testing.T) {
	fake := &fakeExecutor{}
	client := ffmpeg.New("  ", ffmpeg.WithExecutor(fake))
	if err := client.Concat(context.Background(), "/m.txt", "/o.mp4"); err != nil {
		t.Fatalf("Concat: %v", err)
	}
	if fake.binary != "ffmpeg" {
		t.Fatalf("expected default binary, got %q", fake.binary)
	}
}
