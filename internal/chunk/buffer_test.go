package chunk

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/dispatch"
)

// fakeClock is advanced manually by tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func drain(rx *dispatch.Receiver[Chunk]) []Chunk {
	var out []Chunk
	for rx.Len() > 0 {
		c, ok := rx.Recv()
		if !ok {
			break
		}
		out = append(out, c)
	}
	return out
}

var videoFormat = &Format{Media: "video/x-raw", Width: 1920, Height: 1080, PixelFormat: "BGRA"}
var audioFormat = &Format{Media: "audio/x-raw", Rate: 48000, Channels: 2, SampleFormat: "S16LE"}

func TestNewBuffer_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero duration", Config{Kind: KindVideo}},
		{"negative duration", Config{Kind: KindVideo, ChunkDuration: -time.Second}},
		{"unknown kind", Config{Kind: "screen", ChunkDuration: time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuffer(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestBuffer_ChunkCountMatchesElapsedTime(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		duration time.Duration
		interval time.Duration
		total    time.Duration
	}{
		{"video 1s chunks at 30fps over 10s", KindVideo, time.Second, 33 * time.Millisecond, 10 * time.Second},
		{"audio 1s chunks at 10ms over 5s", KindSystemAudio, time.Second, 10 * time.Millisecond, 5 * time.Second},
		{"mic 2s chunks at 20ms over 7s", KindMic, 2 * time.Second, 20 * time.Millisecond, 7 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			tx, rx := newQueue()
			buf, err := NewBuffer(Config{
				Kind:          tt.kind,
				ChunkDuration: tt.duration,
				Sender:        tx,
				Clock:         clock.Now,
			})
			require.NoError(t, err)

			format := videoFormat
			if tt.kind.IsAudio() {
				format = audioFormat
			}

			for elapsed := time.Duration(0); elapsed < tt.total; elapsed += tt.interval {
				clock.Advance(tt.interval)
				buf.HandleSample(Delivery{Data: make([]byte, 64), Format: format})
			}

			chunks := drain(rx)
			expected := int(tt.total / tt.duration)
			assert.InDelta(t, expected, len(chunks), 1, "floor(T/D) ±1")

			for i, c := range chunks {
				assert.Equal(t, uint64(i), c.ID, "ids strictly increase from 0")
				assert.Equal(t, tt.kind, c.Kind)
				assert.Equal(t, tt.duration, c.Duration)
				assert.Equal(t, len(c.Data), c.ByteLength)
			}
		})
	}
}

// newQueue is a shorthand for a chunk queue.
func newQueue() (*dispatch.Sender[Chunk], *dispatch.Receiver[Chunk]) {
	return dispatch.New[Chunk]()
}

func TestBuffer_VideoMetadata(t *testing.T) {
	clock := newFakeClock()
	tx, rx := newQueue()
	buf, err := NewBuffer(Config{Kind: KindVideo, ChunkDuration: time.Second, Sender: tx, Clock: clock.Now})
	require.NoError(t, err)

	start := clock.Now().UnixNano()

	buf.HandleSample(Delivery{Data: []byte{1, 2}, PTS: 100 * time.Millisecond, HasPTS: true, Format: videoFormat})
	buf.HandleSample(Delivery{Data: []byte{3, 4}, PTS: 133 * time.Millisecond, HasPTS: true, Format: videoFormat})
	clock.Advance(time.Second)
	buf.HandleSample(Delivery{Data: []byte{5}, PTS: 166 * time.Millisecond, HasPTS: true, Format: videoFormat})

	chunks := drain(rx)
	require.Len(t, chunks, 1)

	c := chunks[0]
	assert.Equal(t, start, c.StartTimestamp)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, c.Data)
	assert.Equal(t, 5, c.ByteLength)

	require.NotNil(t, c.Metadata)
	require.NotNil(t, c.Metadata.Video)
	assert.Nil(t, c.Metadata.Audio)

	v := c.Metadata.Video
	assert.Equal(t, 1920, v.Width)
	assert.Equal(t, 1080, v.Height)
	assert.Equal(t, "BGRA", v.PixelFormat)
	assert.Equal(t, uint64(3), v.FrameCount)
	require.NotNil(t, v.PTSNanos)
	assert.Equal(t, uint64(100*time.Millisecond), *v.PTSNanos)
}

func TestBuffer_AudioFrameCount(t *testing.T) {
	clock := newFakeClock()
	tx, rx := newQueue()
	buf, err := NewBuffer(Config{Kind: KindMic, ChunkDuration: time.Second, Sender: tx, Clock: clock.Now})
	require.NoError(t, err)

	// S16LE stereo: 4 bytes per frame.
	buf.HandleSample(Delivery{Data: make([]byte, 400), Format: audioFormat})
	buf.HandleSample(Delivery{Data: make([]byte, 40), Format: audioFormat})
	buf.Flush()

	chunks := drain(rx)
	require.Len(t, chunks, 1)
	require.NotNil(t, chunks[0].Metadata)
	a := chunks[0].Metadata.Audio
	require.NotNil(t, a)

	assert.Equal(t, uint64(110), a.FrameCount)
	assert.Equal(t, 48000, a.SampleRate)
	assert.Equal(t, 2, a.Channels)
	assert.Equal(t, "S16LE", a.SampleFormat)
	assert.Nil(t, a.PTSNanos)
}

func TestBuffer_AudioZeroBytesPerFrame(t *testing.T) {
	tests := []struct {
		name   string
		format *Format
	}{
		{"no caps", nil},
		{"zero channels", &Format{Rate: 48000, SampleFormat: "S16LE"}},
		{"unknown sample format", &Format{Rate: 48000, Channels: 2, SampleFormat: "MYSTERY"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, rx := newQueue()
			buf, err := NewBuffer(Config{Kind: KindSystemAudio, ChunkDuration: time.Second, Sender: tx, Clock: newFakeClock().Now})
			require.NoError(t, err)

			assert.NotPanics(t, func() {
				buf.HandleSample(Delivery{Data: make([]byte, 128), Format: tt.format})
			})
			buf.Flush()

			chunks := drain(rx)
			require.Len(t, chunks, 1)
			assert.Nil(t, chunks[0].Metadata, "metadata unavailable")
			assert.Equal(t, 128, chunks[0].ByteLength, "bytes are still accumulated")
		})
	}
}

func TestBuffer_EmptyChunkCompleteness(t *testing.T) {
	tx, rx := newQueue()
	buf, err := NewBuffer(Config{Kind: KindSystemAudio, ChunkDuration: time.Second, Sender: tx, Clock: newFakeClock().Now})
	require.NoError(t, err)

	buf.Flush()
	buf.Flush()

	chunks := drain(rx)
	require.Len(t, chunks, 2)
	for i, c := range chunks {
		assert.Equal(t, uint64(i), c.ID)
		assert.Equal(t, KindSystemAudio, c.Kind)
		assert.Nil(t, c.Metadata)
		assert.Equal(t, 0, c.ByteLength)
	}
}

func TestBuffer_MetadataResetsBetweenChunks(t *testing.T) {
	tx, rx := newQueue()
	buf, err := NewBuffer(Config{Kind: KindVideo, ChunkDuration: time.Second, Sender: tx, Clock: newFakeClock().Now})
	require.NoError(t, err)

	buf.HandleSample(Delivery{Data: []byte{1}, Format: videoFormat})
	buf.Flush()
	buf.HandleSample(Delivery{Data: []byte{2}})
	buf.Flush()

	chunks := drain(rx)
	require.Len(t, chunks, 2)
	assert.NotNil(t, chunks[0].Metadata)
	assert.Nil(t, chunks[1].Metadata, "no format seen in second window")
}

func TestBuffer_DropWithoutSender(t *testing.T) {
	buf, err := NewBuffer(Config{Kind: KindVideo, ChunkDuration: time.Second, Clock: newFakeClock().Now})
	require.NoError(t, err)

	buf.HandleSample(Delivery{Data: []byte{1, 2, 3}, Format: videoFormat})
	buf.Flush()
	buf.Flush()

	stats := buf.Stats()
	assert.Equal(t, uint64(2), stats.ChunksDropped)
	assert.Equal(t, uint64(0), stats.ChunksEmitted)
	assert.Equal(t, uint64(2), stats.NextChunkID, "dropped chunks still consume ids")
}

func TestBuffer_DropWhenConsumerGone(t *testing.T) {
	tx, rx := newQueue()
	buf, err := NewBuffer(Config{Kind: KindMic, ChunkDuration: time.Second, Sender: tx, Clock: newFakeClock().Now})
	require.NoError(t, err)

	rx.Close()

	assert.NotPanics(t, func() {
		buf.HandleSample(Delivery{Data: make([]byte, 8), Format: audioFormat})
		buf.Flush()
	})
	assert.Equal(t, uint64(1), buf.Stats().ChunksDropped)
}

func TestBuffer_CloseFlushesPartialChunk(t *testing.T) {
	tx, rx := newQueue()
	buf, err := NewBuffer(Config{Kind: KindVideo, ChunkDuration: time.Hour, Sender: tx, Clock: newFakeClock().Now})
	require.NoError(t, err)

	buf.HandleSample(Delivery{Data: []byte{9, 9}, Format: videoFormat})
	buf.Close()
	buf.Close() // idempotent

	c, ok := rx.Recv()
	require.True(t, ok)
	assert.Equal(t, 2, c.ByteLength)

	// Sender released: receiver observes end of stream.
	_, ok = rx.Recv()
	assert.False(t, ok)

	// Deliveries after close are ignored.
	buf.HandleSample(Delivery{Data: []byte{1}})
	assert.Equal(t, uint64(1), buf.Stats().Deliveries)
}

func TestBuffer_CloseSkipsEmptyPartialChunk(t *testing.T) {
	tx, rx := newQueue()
	buf, err := NewBuffer(Config{Kind: KindVideo, ChunkDuration: time.Hour, Sender: tx, Clock: newFakeClock().Now})
	require.NoError(t, err)

	buf.Close()

	_, ok := rx.Recv()
	assert.False(t, ok)
}

type countingObserver struct {
	mu         sync.Mutex
	deliveries int
	emitted    int
	dropped    int
}

func (o *countingObserver) Delivery(Kind, int) {
	o.mu.Lock()
	o.deliveries++
	o.mu.Unlock()
}

func (o *countingObserver) ChunkEmitted(Kind, int) {
	o.mu.Lock()
	o.emitted++
	o.mu.Unlock()
}

func (o *countingObserver) ChunkDropped(Kind) {
	o.mu.Lock()
	o.dropped++
	o.mu.Unlock()
}

func TestBuffer_ConcurrentDeliveries(t *testing.T) {
	obs := &countingObserver{}
	tx, rx := newQueue()
	buf, err := NewBuffer(Config{Kind: KindVideo, ChunkDuration: time.Hour, Sender: tx, Observer: obs})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				buf.HandleSample(Delivery{Data: []byte{1}, Format: videoFormat})
			}
		}()
	}
	wg.Wait()
	buf.Close()

	c, ok := rx.Recv()
	require.True(t, ok)
	assert.Equal(t, 1000, c.ByteLength)
	assert.Equal(t, uint64(1000), c.Metadata.Video.FrameCount)
	assert.Equal(t, 1000, obs.deliveries)
	assert.Equal(t, 1, obs.emitted)
}

func TestBuffer_RateOfLastWindow(t *testing.T) {
	clock := newFakeClock()
	tx, rx := newQueue()
	defer rx.Close()

	buf, err := NewBuffer(Config{Kind: KindVideo, ChunkDuration: time.Second, Sender: tx, Clock: clock.Now})
	require.NoError(t, err)
	assert.Zero(t, buf.Stats().Rate.Deliveries, "no window completed yet")

	// 10 frames at 10 Hz; the 10th closes the window.
	for i := 0; i < 10; i++ {
		clock.Advance(100 * time.Millisecond)
		buf.HandleSample(Delivery{Data: []byte{0}, Format: videoFormat})
	}

	r := buf.Stats().Rate
	assert.Equal(t, 10, r.Deliveries)
	assert.Equal(t, time.Second, r.Window)
	assert.InDelta(t, 10, r.RateMean, 0.001)
	assert.True(t, r.Stable)

	require.Len(t, drain(rx), 1)
}
