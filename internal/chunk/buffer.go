package chunk

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/dispatch"
	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/rate"
)

// Observer receives buffer events. All methods must be non-blocking; they are
// called on the sample-delivery path.
type Observer interface {
	Delivery(kind Kind, bytes int)
	ChunkEmitted(kind Kind, bytes int)
	ChunkDropped(kind Kind)
}

// Config configures a Buffer.
type Config struct {
	Kind          Kind
	ChunkDuration time.Duration

	// Sender receives completed chunks. nil means every chunk is dropped
	// (logged and counted).
	Sender *dispatch.Sender[Chunk]

	// Clock returns the current time. Defaults to time.Now. Both the
	// monotonic and wall-clock readings are used.
	Clock func() time.Time

	// Observer is optional.
	Observer Observer
}

// Stats is a snapshot of a buffer's counters.
type Stats struct {
	Kind           Kind
	Deliveries     uint64
	ChunksEmitted  uint64
	ChunksDropped  uint64
	BytesDelivered uint64
	NextChunkID    uint64

	// Rate describes delivery regularity over the last completed chunk
	// window (zero until the first chunk is emitted).
	Rate rate.Stats
}

// accumulator holds the kind-specific counters and last metadata.
type accumulator interface {
	observe(d Delivery)
	metadata() *Metadata
	reset()
}

// Buffer accumulates raw sample deliveries for one stream and emits a Chunk
// every ChunkDuration.
//
// HandleSample may be called from any goroutine; calls are serialized by the
// buffer's own mutex, never by the caller.
type Buffer struct {
	kind     Kind
	duration time.Duration
	clock    func() time.Time
	observer Observer

	mu         sync.Mutex
	sender     *dispatch.Sender[Chunk]
	acc        accumulator
	data       []byte
	chunkStart time.Time // carries the monotonic reading
	wallStart  int64
	arrivals   []time.Time
	lastRate   rate.Stats
	nextID     uint64
	closed     bool

	deliveries uint64
	emitted    uint64
	dropped    uint64
	bytes      uint64
}

// NewBuffer creates a buffer for cfg.Kind. The chunk window starts now.
func NewBuffer(cfg Config) (*Buffer, error) {
	if cfg.ChunkDuration <= 0 {
		return nil, fmt.Errorf("chunk: chunk duration must be > 0, got %v", cfg.ChunkDuration)
	}

	var acc accumulator
	switch cfg.Kind {
	case KindVideo:
		acc = &videoAccumulator{}
	case KindSystemAudio, KindMic:
		acc = &audioAccumulator{}
	default:
		return nil, fmt.Errorf("chunk: unknown stream kind %q", cfg.Kind)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	b := &Buffer{
		kind:     cfg.Kind,
		duration: cfg.ChunkDuration,
		clock:    clock,
		observer: cfg.Observer,
		sender:   cfg.Sender,
		acc:      acc,
	}
	b.restart()

	return b, nil
}

// Kind returns the stream this buffer serves.
func (b *Buffer) Kind() Kind {
	return b.kind
}

// HandleSample appends one delivery. If the current chunk window has elapsed,
// the chunk is flushed before returning. Deliveries after Close are ignored.
func (b *Buffer) HandleSample(d Delivery) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	now := b.clock()

	b.data = append(b.data, d.Data...)
	b.acc.observe(d)
	b.arrivals = append(b.arrivals, now)
	b.deliveries++
	b.bytes += uint64(len(d.Data))

	if b.observer != nil {
		b.observer.Delivery(b.kind, len(d.Data))
	}

	if now.Sub(b.chunkStart) >= b.duration {
		b.flushLocked()
	}
}

// Flush emits the current chunk regardless of elapsed time.
func (b *Buffer) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.flushLocked()
}

// Close flushes a partial chunk if it holds data, then releases the sender.
// Idempotent.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	if len(b.data) > 0 {
		b.flushLocked()
	}

	b.closed = true
	if b.sender != nil {
		b.sender.Close()
		b.sender = nil
	}
}

// Stats returns a snapshot of the buffer's counters.
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		Kind:           b.kind,
		Deliveries:     b.deliveries,
		ChunksEmitted:  b.emitted,
		ChunksDropped:  b.dropped,
		BytesDelivered: b.bytes,
		NextChunkID:    b.nextID,
		Rate:           b.lastRate,
	}
}

// flushLocked snapshots the current window into a Chunk, dispatches it and
// starts the next window. Caller holds b.mu.
func (b *Buffer) flushLocked() {
	data := b.data
	b.data = nil

	c := Chunk{
		ID:             b.nextID,
		Kind:           b.kind,
		StartTimestamp: b.wallStart,
		Duration:       b.duration,
		Metadata:       b.acc.metadata(),
		ByteLength:     len(data),
		Data:           data,
	}
	b.nextID++

	if err := b.send(c); err != nil {
		b.dropped++
		slog.Warn("chunk: dropping chunk",
			"stream", b.kind,
			"chunk_id", c.ID,
			"bytes", c.ByteLength,
			"error", err,
		)
		if b.observer != nil {
			b.observer.ChunkDropped(b.kind)
		}
	} else {
		b.emitted++
		if b.observer != nil {
			b.observer.ChunkEmitted(b.kind, c.ByteLength)
		}
	}

	b.lastRate = rate.Calculate(b.arrivals, b.clock().Sub(b.chunkStart))
	if b.kind == KindVideo && b.lastRate.Deliveries > 1 && !b.lastRate.Stable {
		slog.Debug("chunk: irregular frame delivery",
			"stream", b.kind,
			"chunk_id", c.ID,
			"rate_mean", b.lastRate.RateMean,
			"rate_stddev", b.lastRate.RateStdDev,
			"jitter_mean_s", b.lastRate.JitterMean,
		)
	}
	b.arrivals = b.arrivals[:0]

	b.acc.reset()
	b.restart()
}

var errNoSender = errors.New("no chunk sender configured")

func (b *Buffer) send(c Chunk) error {
	if b.sender == nil {
		return errNoSender
	}
	return b.sender.Send(c)
}

func (b *Buffer) restart() {
	now := b.clock()
	b.chunkStart = now
	b.wallStart = now.UnixNano()
}

// videoAccumulator counts deliveries (≈ frames).
type videoAccumulator struct {
	frames uint64
	last   *VideoMetadata
	pts    *uint64
}

func (a *videoAccumulator) observe(d Delivery) {
	a.frames++
	if a.pts == nil && d.HasPTS && d.PTS >= 0 {
		pts := uint64(d.PTS)
		a.pts = &pts
	}

	f := d.Format
	if f == nil || (f.Width == 0 && f.Height == 0 && f.PixelFormat == "") {
		return
	}
	a.last = &VideoMetadata{
		Width:       f.Width,
		Height:      f.Height,
		PixelFormat: f.PixelFormat,
	}
}

func (a *videoAccumulator) metadata() *Metadata {
	if a.last == nil {
		return nil
	}
	m := *a.last
	m.FrameCount = a.frames
	m.PTSNanos = copyPTS(a.pts)
	return &Metadata{Video: &m}
}

func (a *videoAccumulator) reset() {
	*a = videoAccumulator{}
}

// audioAccumulator counts decoded sample frames (bytes / bytes-per-frame).
type audioAccumulator struct {
	frames uint64
	last   *AudioMetadata
	pts    *uint64
}

func (a *audioAccumulator) observe(d Delivery) {
	bpf := BytesPerFrame(d.Format)
	if bpf == 0 {
		// Format unresolved: no metadata and no frame count for this delivery.
		return
	}

	a.frames += uint64(len(d.Data) / bpf)
	if a.pts == nil && d.HasPTS && d.PTS >= 0 {
		pts := uint64(d.PTS)
		a.pts = &pts
	}
	a.last = &AudioMetadata{
		SampleRate:   d.Format.Rate,
		Channels:     d.Format.Channels,
		SampleFormat: d.Format.SampleFormat,
	}
}

func (a *audioAccumulator) metadata() *Metadata {
	if a.last == nil {
		return nil
	}
	m := *a.last
	m.FrameCount = a.frames
	m.PTSNanos = copyPTS(a.pts)
	return &Metadata{Audio: &m}
}

func (a *audioAccumulator) reset() {
	*a = audioAccumulator{}
}

func copyPTS(p *uint64) *uint64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
