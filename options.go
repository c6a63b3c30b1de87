package screencapture

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Chunk duration bounds, in milliseconds.
const (
	DefaultChunkDurationMs uint64 = 5000
	MinChunkDurationMs     uint64 = 1000
)

// TargetKind selects what the video stream captures.
type TargetKind string

const (
	// TargetFullDisplay captures the whole display (the platform may prompt)
	TargetFullDisplay TargetKind = "full_display"
	// TargetWindow captures one native window identified by CaptureTarget.ID
	TargetWindow TargetKind = "window"
)

// CaptureTarget is the video capture target.
//
// JSON: {"kind":"full_display"} or {"kind":"window","id":"12345"}.
type CaptureTarget struct {
	Kind TargetKind `json:"kind"`
	ID   string     `json:"id,omitempty"`
}

// FullDisplay returns the full-display target.
func FullDisplay() CaptureTarget {
	return CaptureTarget{Kind: TargetFullDisplay}
}

// Window returns a single-window target. id is a native window handle in
// decimal or 0x-prefixed hex.
func Window(id string) CaptureTarget {
	return CaptureTarget{Kind: TargetWindow, ID: id}
}

// WindowID returns the window handle to restrict capture to, or "" for the
// full display.
//
// Non-numeric ids are not rejected here: the video pipeline ignores ids it
// cannot apply and falls back to full-display capture.
func (t CaptureTarget) WindowID() string {
	if t.Kind != TargetWindow {
		return ""
	}
	return strings.TrimSpace(t.ID)
}

// String returns "full_display" or "window:<id>".
func (t CaptureTarget) String() string {
	if t.Kind == TargetWindow {
		return "window:" + t.ID
	}
	return string(TargetFullDisplay)
}

// UnmarshalJSON decodes a target and rejects unknown kinds. A missing kind
// means full display.
func (t *CaptureTarget) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind TargetKind `json:"kind"`
		ID   string     `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Kind {
	case "", TargetFullDisplay:
		*t = FullDisplay()
	case TargetWindow:
		*t = Window(raw.ID)
	default:
		return fmt.Errorf("screen-capture: unknown capture target kind %q", raw.Kind)
	}
	return nil
}

// CaptureOptions is the configuration snapshot for one session. It is
// copied into the session at start and never changes while it runs.
type CaptureOptions struct {
	// ChunkDurationMs is the chunk length; values below MinChunkDurationMs are clamped
	ChunkDurationMs uint64 `json:"chunk_duration_ms"`
	// CaptureMic adds a microphone stream
	CaptureMic bool `json:"capture_mic"`
	// DebugSave persists every chunk as raw bytes + JSON sidecar instead of logging it
	DebugSave bool `json:"debug_save"`
	// Target selects the video source
	Target CaptureTarget `json:"target"`
}

// DefaultOptions returns the documented defaults: 5s chunks, no mic, no
// debug save, full display.
func DefaultOptions() CaptureOptions {
	return CaptureOptions{
		ChunkDurationMs: DefaultChunkDurationMs,
		Target:          FullDisplay(),
	}
}

// ParseOptions decodes a CaptureOptions JSON payload. Every field is
// optional; missing fields keep their defaults. An empty payload yields
// DefaultOptions.
func ParseOptions(data []byte) (CaptureOptions, error) {
	opts := DefaultOptions()
	if len(strings.TrimSpace(string(data))) == 0 {
		return opts, nil
	}
	if err := json.Unmarshal(data, &opts); err != nil {
		return CaptureOptions{}, fmt.Errorf("screen-capture: invalid capture options: %w", err)
	}
	return opts.Normalize(), nil
}

// ChunkDuration returns the effective chunk duration (clamped to the floor).
func (o CaptureOptions) ChunkDuration() time.Duration {
	ms := o.ChunkDurationMs
	if ms < MinChunkDurationMs {
		ms = MinChunkDurationMs
	}
	return time.Duration(ms) * time.Millisecond
}

// Normalize clamps the chunk duration and fills an empty target.
func (o CaptureOptions) Normalize() CaptureOptions {
	if o.ChunkDurationMs < MinChunkDurationMs {
		o.ChunkDurationMs = MinChunkDurationMs
	}
	if o.Target.Kind == "" {
		o.Target = FullDisplay()
	}
	return o
}

// Streams returns the streams a session with these options captures, in
// build order.
func (o CaptureOptions) Streams() []StreamKind {
	streams := []StreamKind{StreamVideo, StreamSystemAudio}
	if o.CaptureMic {
		streams = append(streams, StreamMic)
	}
	return streams
}
