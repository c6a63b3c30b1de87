package screencapture

import (
	"log/slog"
	"sync/atomic"

	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/debugsave"
	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/dispatch"
	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/metrics"
)

// ChunkSink handles completed chunks on the consumer goroutine. A Consume
// error is logged and counted; the consumer keeps going.
type ChunkSink interface {
	Consume(c CapturedChunk) error
}

// LogSink logs one line per chunk.
type LogSink struct {
	SessionID string
}

func (s LogSink) Consume(c CapturedChunk) error {
	attrs := []any{
		"session_id", s.SessionID,
		"stream", c.Kind.String(),
		"chunk_id", c.ID,
		"start_timestamp", c.StartTimestamp,
		"duration_ms", c.Duration.Milliseconds(),
		"bytes", c.ByteLength,
	}
	if c.Metadata != nil {
		if v := c.Metadata.Video; v != nil {
			attrs = append(attrs, "frames", v.FrameCount, "width", v.Width, "height", v.Height, "pixel_format", v.PixelFormat)
		}
		if a := c.Metadata.Audio; a != nil {
			attrs = append(attrs, "frames", a.FrameCount, "sample_rate", a.SampleRate, "channels", a.Channels, "sample_format", a.SampleFormat)
		}
	}

	slog.Info("screen-capture: chunk ready", attrs...)
	return nil
}

// DiskSink writes every chunk as <dir>/<base>.raw plus a JSON sidecar.
type DiskSink struct {
	w *debugsave.Writer
}

// NewDiskSink creates a sink writing into dir (debugsave.DefaultDir when
// empty). The directory is created on first write.
func NewDiskSink(dir, sessionID string) *DiskSink {
	return &DiskSink{w: debugsave.NewWriter(dir, sessionID)}
}

// Dir returns the output directory.
func (s *DiskSink) Dir() string {
	return s.w.Dir()
}

func (s *DiskSink) Consume(c CapturedChunk) error {
	rawPath, _, err := s.w.Write(c)
	if err != nil {
		return err
	}

	slog.Info("screen-capture: chunk saved",
		"stream", c.Kind.String(),
		"chunk_id", c.ID,
		"bytes", c.ByteLength,
		"path", rawPath,
	)
	return nil
}

// session is one Start..Stop lifetime: the queue's receiving side and the
// consumer's counters.
type session struct {
	id  string
	rx  *dispatch.Receiver[CapturedChunk]
	tx  *dispatch.Sender[CapturedChunk]
	opt CaptureOptions

	consumed atomic.Uint64
	errors   atomic.Uint64
	done     chan struct{}
}

// runConsumer drains the session queue into sink until every sender has
// been released and the queue is empty.
func runConsumer(s *session, sink ChunkSink, rec *metrics.Recorder) {
	defer close(s.done)

	slog.Debug("screen-capture: consumer started", "session_id", s.id)

	for {
		c, ok := s.rx.Recv()
		if !ok {
			slog.Info("screen-capture: consumer finished",
				"session_id", s.id,
				"chunks", s.consumed.Load(),
				"errors", s.errors.Load(),
			)
			return
		}

		err := sink.Consume(c)
		rec.ChunkPersisted(c.Kind, err)
		s.consumed.Add(1)
		if err != nil {
			s.errors.Add(1)
			slog.Error("screen-capture: failed to handle chunk",
				"session_id", s.id,
				"stream", c.Kind.String(),
				"chunk_id", c.ID,
				"error", err,
			)
		}
	}
}
