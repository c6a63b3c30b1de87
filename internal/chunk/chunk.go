// Package chunk turns an unbounded stream of raw sample deliveries into a
// sequence of fixed-duration chunks.
//
// This package is INTERNAL - clients use the re-exported types in the parent
// package.
package chunk

import "time"

// Kind identifies the stream a chunk was captured from.
type Kind string

const (
	// KindVideo is the display video stream.
	KindVideo Kind = "video"
	// KindSystemAudio is the system audio (default sink monitor) stream.
	KindSystemAudio Kind = "system_audio"
	// KindMic is the microphone stream.
	KindMic Kind = "mic"
)

// String returns the stream label.
func (k Kind) String() string {
	return string(k)
}

// IsAudio reports whether the stream carries audio samples.
func (k Kind) IsAudio() bool {
	return k == KindSystemAudio || k == KindMic
}

// Format is the decoded format description attached to a sample delivery.
//
// Video deliveries fill Width, Height and PixelFormat; audio deliveries fill
// Rate, Channels and SampleFormat. Zero values mean "not present in caps".
type Format struct {
	Media        string
	Width        int
	Height       int
	PixelFormat  string
	Rate         int
	Channels     int
	SampleFormat string
}

// Delivery is one raw-data callback invocation from a pipeline.
type Delivery struct {
	// Data is owned by the receiver once HandleSample is called.
	Data []byte
	// PTS is the presentation timestamp of the buffer (valid when HasPTS).
	PTS    time.Duration
	HasPTS bool
	// Format is nil when the sample carried no caps.
	Format *Format
}

// VideoMetadata describes a video chunk.
type VideoMetadata struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	PixelFormat string  `json:"pixel_format"`
	FrameCount  uint64  `json:"frame_count"`
	PTSNanos    *uint64 `json:"pts_ns,omitempty"`
}

// AudioMetadata describes an audio chunk.
type AudioMetadata struct {
	SampleRate   int     `json:"sample_rate"`
	Channels     int     `json:"channels"`
	SampleFormat string  `json:"sample_format"`
	FrameCount   uint64  `json:"frame_count"`
	PTSNanos     *uint64 `json:"pts_ns,omitempty"`
}

// Metadata is the stream-specific metadata of a chunk. Exactly one of Video
// or Audio is set.
type Metadata struct {
	Video *VideoMetadata `json:"video,omitempty"`
	Audio *AudioMetadata `json:"audio,omitempty"`
}

// Chunk is a completed, immutable slice of accumulated samples from one stream.
type Chunk struct {
	// ID is the per-stream sequence number, starting at 0.
	ID   uint64
	Kind Kind
	// StartTimestamp is the wall clock at chunk start, in Unix nanoseconds.
	StartTimestamp int64
	// Duration is the configured chunk duration.
	Duration time.Duration
	// Metadata is nil when no delivery in the window carried a usable format.
	Metadata   *Metadata
	ByteLength int
	Data       []byte
}

// StartTime returns StartTimestamp as a time.Time.
func (c Chunk) StartTime() time.Time {
	return time.Unix(0, c.StartTimestamp)
}
