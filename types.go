package screencapture

import (
	"fmt"
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/chunk"
	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/rate"
)

// CaptureState is the lifecycle state of the Manager.
//
// Transitions: Idle → Starting → Running → Stopping → Idle, and
// Starting → Idle when a start attempt fails.
type CaptureState int

const (
	// StateIdle means no session exists (initial state, and the state after every stop)
	StateIdle CaptureState = iota
	// StateStarting means pipelines are being built and started
	StateStarting
	// StateRunning means every requested pipeline is producing samples
	StateRunning
	// StateStopping means pipelines are being torn down
	StateStopping
)

// IsActive reports whether a session exists (any state other than Idle).
func (s CaptureState) IsActive() bool {
	return s != StateIdle
}

// String returns the snake_case name of the state
func (s CaptureState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// MarshalText encodes the state by name (JSON uses it too).
func (s CaptureState) MarshalText() ([]byte, error) {
	switch s {
	case StateIdle, StateStarting, StateRunning, StateStopping:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("screen-capture: invalid capture state %d", int(s))
	}
}

// UnmarshalText decodes a state name.
func (s *CaptureState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = StateIdle
	case "starting":
		*s = StateStarting
	case "running":
		*s = StateRunning
	case "stopping":
		*s = StateStopping
	default:
		return fmt.Errorf("screen-capture: unknown capture state %q", text)
	}
	return nil
}

// StreamKind identifies a capture stream.
type StreamKind = chunk.Kind

// Stream kinds.
const (
	StreamVideo       = chunk.KindVideo
	StreamSystemAudio = chunk.KindSystemAudio
	StreamMic         = chunk.KindMic
)

// CapturedChunk is a completed, immutable chunk of raw samples from one
// stream, handed to the consumer.
type CapturedChunk = chunk.Chunk

// ChunkMetadata is the stream-specific metadata of a chunk (nil when no
// sample in the window carried a usable format).
type ChunkMetadata = chunk.Metadata

// VideoMetadata describes a video chunk.
type VideoMetadata = chunk.VideoMetadata

// AudioMetadata describes an audio chunk.
type AudioMetadata = chunk.AudioMetadata

// SampleDelivery is one raw-data callback invocation from a pipeline.
type SampleDelivery = chunk.Delivery

// SampleFormat is the decoded caps description of a delivery.
type SampleFormat = chunk.Format

// DeliveryRate describes how regularly a pipeline delivered samples over
// one chunk window: mean/stddev/min/max rate, jitter and a stability verdict
// (stddev < 15% of mean AND jitter < 20% of the expected interval).
type DeliveryRate = rate.Stats

// StreamStats contains per-stream counters for one session
type StreamStats struct {
	// Stream identifies the stream
	Stream StreamKind
	// Deliveries is the number of raw sample deliveries received
	Deliveries uint64
	// BytesDelivered is the total raw bytes received
	BytesDelivered uint64
	// ChunksEmitted is the number of chunks handed to the dispatch queue
	ChunksEmitted uint64
	// ChunksDropped is the number of chunks lost because no consumer was listening
	ChunksDropped uint64
	// Rate covers the last completed chunk window
	Rate DeliveryRate
}

// CaptureStats is a snapshot of the manager
type CaptureStats struct {
	State CaptureState
	// SessionID identifies the current (or most recent) session
	SessionID string
	// StartedAt is when the current (or most recent) session started
	StartedAt time.Time
	// Uptime is the age of the current session (zero when idle)
	Uptime time.Duration
	// Streams holds one entry per pipeline of the current (or most recent) session
	Streams []StreamStats
	// ChunksConsumed is the number of chunks the consumer has handled
	ChunksConsumed uint64
	// ConsumerErrors is the number of chunks the consumer failed to persist
	ConsumerErrors uint64
	// QueuedChunks is the number of chunks waiting for the consumer
	QueuedChunks int
}
