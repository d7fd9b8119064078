package status

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Phase identifies one of the five linear pipeline stages.
type Phase string

const (
	PhaseInitializing     Phase = "INITIALIZING"
	PhaseConvertingChunks Phase = "CONVERTING_CHUNKS"
	PhaseMerging          Phase = "MERGING"
	PhaseCleanUp          Phase = "CLEAN_UP"
	PhaseFinished         Phase = "FINISHED"
)

// Type classifies events pushed into the sink.
type Type string

const (
	// TypeStatus marks a normal phase progress event.
	TypeStatus Type = "status"
	// TypeError marks a pipeline failure; Error carries the cause.
	TypeError Type = "error"
)

// Fixed percentages for the non-chunk phases.
const (
	PercentInitializing = 0
	PercentMerging      = 98
	PercentCleanUp      = 99
	PercentFinished     = 100
)

// ErrNoChunks indicates a job record with an empty chunks_all list, which can
// only come from a corrupted store.
var ErrNoChunks = errors.New("job has no chunks")

// Event is an immutable progress snapshot. Ownership transfers to the sink on
// publish; events are never mutated afterwards.
type Event struct {
	Type                 Type      `json:"type"`
	VideoName            string    `json:"video_name"`
	FOV                  int       `json:"fov"`
	CompletionPercentage int       `json:"completion_percentage"`
	CurrentProcess       Phase     `json:"current_process"`
	Message              string    `json:"message"`
	Error                string    `json:"error,omitempty"`
	Timestamp            time.Time `json:"timestamp"`
}

// Sink receives events from the pipeline worker. Publish is called
// synchronously once per event and must not block indefinitely; typical
// implementations enqueue for a separate consumer.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Publish implements Sink.
func (f SinkFunc) Publish(event Event) { f(event) }

// ChannelSink buffers events for a polling consumer.
type ChannelSink struct {
	ch chan Event
}

// NewChannelSink creates a sink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChannelSink{ch: make(chan Event, buffer)}
}

// Publish implements Sink. It blocks only when the consumer has fallen an
// entire buffer behind.
func (s *ChannelSink) Publish(event Event) {
	s.ch <- event
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}

// Close closes the event channel. Call only after the publishing worker has
// exited.
func (s *ChannelSink) Close() {
	close(s.ch)
}

// ChunkPercentage derives the CONVERTING_CHUNKS completion percentage from
// chunk counts: 1 + round(97 * done / total), spanning 1-98 inclusive. A zero
// total indicates a corrupted job and fails rather than dividing by zero.
func ChunkPercentage(total, remaining int) (int, error) {
	if total <= 0 {
		return 0, ErrNoChunks
	}
	done := total - remaining
	return 1 + int(math.Round(97*float64(done)/float64(total))), nil
}

// Reporter builds and publishes events for one conversion job. The zero value
// is not usable; construct with NewReporter. Reporters are used from a single
// worker goroutine and are not safe for concurrent publishing.
type Reporter struct {
	videoName   string
	fov         int
	sink        Sink
	lastPercent int
}

// NewReporter constructs a reporter bound to a job identity and a sink.
func NewReporter(videoName string, fov int, sink Sink) *Reporter {
	return &Reporter{videoName: videoName, fov: fov, sink: sink}
}

// Initializing publishes an INITIALIZING event at 0%.
func (r *Reporter) Initializing(message string) {
	r.publish(PhaseInitializing, PercentInitializing, message)
}

// ConvertingChunk publishes a CONVERTING_CHUNKS event with the percentage
// derived from the chunk counts.
func (r *Reporter) ConvertingChunk(total, remaining int, message string) error {
	percent, err := ChunkPercentage(total, remaining)
	if err != nil {
		return err
	}
	r.publish(PhaseConvertingChunks, percent, message)
	return nil
}

// Merging publishes a MERGING event at 98%.
func (r *Reporter) Merging(message string) {
	r.publish(PhaseMerging, PercentMerging, message)
}

// CleanUp publishes a CLEAN_UP event at 99%.
func (r *Reporter) CleanUp(message string) {
	r.publish(PhaseCleanUp, PercentCleanUp, message)
}

// Finished publishes a FINISHED event at 100%.
func (r *Reporter) Finished(message string) {
	r.publish(PhaseFinished, PercentFinished, message)
}

// Failure publishes an error event naming the phase and step that failed.
// The percentage repeats the last value the consumer saw, so the progress
// display never regresses.
func (r *Reporter) Failure(phase Phase, step string, err error) {
	r.sink.Publish(Event{
		Type:                 TypeError,
		VideoName:            r.videoName,
		FOV:                  r.fov,
		CompletionPercentage: r.lastPercent,
		CurrentProcess:       phase,
		Message:              fmt.Sprintf("%s failed", step),
		Error:                err.Error(),
		Timestamp:            time.Now(),
	})
}

func (r *Reporter) publish(phase Phase, percent int, message string) {
	r.lastPercent = percent
	r.sink.Publish(Event{
		Type:                 TypeStatus,
		VideoName:            r.videoName,
		FOV:                  r.fov,
		CompletionPercentage: percent,
		CurrentProcess:       phase,
		Message:              message,
		Timestamp:            time.Now(),
	})
}
