package screencapture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/chunk"
	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/dispatch"
	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/metrics"
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Backend builds pipelines (required)
	Backend Backend

	// Options are the initial stored options. Zero value means DefaultOptions.
	Options *CaptureOptions

	// DebugDir is where debug_save sessions write chunks
	// (debugsave.DefaultDir when empty).
	DebugDir string

	// Metrics is optional
	Metrics *metrics.Recorder

	// NewSink overrides the consumer sink chosen for a session. By default
	// sessions with DebugSave use a DiskSink and all others a LogSink.
	NewSink func(sessionID string, opts CaptureOptions) ChunkSink

	// Clock is passed to every chunk buffer. Defaults to time.Now.
	Clock func() time.Time
}

// Manager owns the capture lifecycle: at most one session at a time, each
// made of one pipeline per requested stream, every pipeline feeding a chunk
// buffer that emits into the session's dispatch queue.
type Manager struct {
	backend  Backend
	debugDir string
	metrics  *metrics.Recorder
	newSink  func(sessionID string, opts CaptureOptions) ChunkSink
	clock    func() time.Time

	// lifecycle serializes Start and Stop so a stop never interleaves with
	// a half-built session
	lifecycle sync.Mutex

	mu          sync.RWMutex
	state       CaptureState
	options     CaptureOptions
	handles     []*pipelineHandle
	session     *session
	startedAt   time.Time
	lastStreams []StreamStats
}

// NewManager creates an idle manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("screen-capture: backend is required")
	}

	opts := DefaultOptions()
	if cfg.Options != nil {
		opts = cfg.Options.Normalize()
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	m := &Manager{
		backend:  cfg.Backend,
		debugDir: cfg.DebugDir,
		metrics:  cfg.Metrics,
		newSink:  cfg.NewSink,
		clock:    clock,
		state:    StateIdle,
		options:  opts,
	}
	m.metrics.SetState(StateIdle.String())

	return m, nil
}

// Start begins a session with opts. See CaptureController.
func (m *Manager) Start(opts CaptureOptions) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	opts = opts.Normalize()

	m.mu.Lock()
	if m.state.IsActive() {
		state := m.state
		m.mu.Unlock()
		slog.Warn("screen-capture: start rejected, session already active", "state", state.String())
		return ErrAlreadyActive
	}
	m.options = opts
	m.setStateLocked(StateStarting)
	m.mu.Unlock()

	sess := &session{
		id:   uuid.NewString(),
		opt:  opts,
		done: make(chan struct{}),
	}
	sess.tx, sess.rx = dispatch.New[CapturedChunk]()

	slog.Info("screen-capture: starting session",
		"session_id", sess.id,
		"chunk_duration_ms", opts.ChunkDurationMs,
		"capture_mic", opts.CaptureMic,
		"debug_save", opts.DebugSave,
		"target", opts.Target.String(),
	)

	handles := make([]*pipelineHandle, 0, 3)
	for _, stream := range opts.Streams() {
		h, err := m.startStream(stream, opts, sess.tx.Clone())
		if err != nil {
			m.rollback(sess, handles)
			m.metrics.SessionStarted(err)
			slog.Error("screen-capture: failed to start session",
				"session_id", sess.id,
				"stream", stream.String(),
				"error", err,
			)
			return err
		}
		handles = append(handles, h)
	}

	// Only the buffers' clones keep the queue open from here on.
	sess.tx.Close()

	go runConsumer(sess, m.sinkFor(sess.id, opts), m.metrics)

	m.mu.Lock()
	m.handles = handles
	m.session = sess
	m.startedAt = m.clock()
	m.lastStreams = nil
	m.setStateLocked(StateRunning)
	m.mu.Unlock()

	m.metrics.SessionStarted(nil)
	slog.Info("screen-capture: session running", "session_id", sess.id, "streams", len(handles))

	return nil
}

// StartConfigured starts a session with the stored options.
func (m *Manager) StartConfigured() error {
	return m.Start(m.Options())
}

// startStream builds and starts one pipeline. On failure everything it
// created is released, including sender.
func (m *Manager) startStream(stream StreamKind, opts CaptureOptions, sender *dispatch.Sender[CapturedChunk]) (*pipelineHandle, error) {
	var observer chunk.Observer
	if m.metrics != nil {
		observer = m.metrics
	}

	buf, err := chunk.NewBuffer(chunk.Config{
		Kind:          stream,
		ChunkDuration: opts.ChunkDuration(),
		Sender:        sender,
		Clock:         m.clock,
		Observer:      observer,
	})
	if err != nil {
		sender.Close()
		return nil, err
	}

	p, err := m.backend.Build(PipelineRequest{
		Stream:   stream,
		Options:  opts,
		OnSample: buf.HandleSample,
	})
	if err != nil {
		buf.Close()
		return nil, err
	}

	h := &pipelineHandle{stream: stream, pipeline: p, buffer: buf}
	if err := p.Start(); err != nil {
		if terr := h.teardown(); terr != nil {
			slog.Warn("screen-capture: teardown after failed start", "stream", stream.String(), "error", terr)
		}
		return nil, &PipelineStartError{Stream: stream, Err: err}
	}

	slog.Debug("screen-capture: pipeline started", "stream", stream.String())
	return h, nil
}

// rollback releases a failed start: the queue is closed first so nothing
// from the aborted session reaches a consumer, then every started pipeline
// is torn down in reverse order.
func (m *Manager) rollback(sess *session, handles []*pipelineHandle) {
	sess.rx.Close()
	sess.tx.Close()

	for i := len(handles) - 1; i >= 0; i-- {
		if err := handles[i].teardown(); err != nil {
			slog.Warn("screen-capture: rollback teardown failed",
				"stream", handles[i].stream.String(),
				"error", err,
			)
		}
	}

	m.mu.Lock()
	m.setStateLocked(StateIdle)
	m.mu.Unlock()
}

// Stop tears down the current session. See CaptureController.
func (m *Manager) Stop() error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.Lock()
	if !m.state.IsActive() {
		m.mu.Unlock()
		return nil
	}
	m.setStateLocked(StateStopping)
	handles := m.handles
	m.handles = nil
	sess := m.session
	m.mu.Unlock()

	slog.Info("screen-capture: stopping session", "session_id", sess.id)

	// Teardown failures are logged only; the session ends regardless.
	streams := make([]StreamStats, 0, len(handles))
	for _, h := range handles {
		if err := h.teardown(); err != nil {
			slog.Warn("screen-capture: pipeline teardown failed", "stream", h.stream.String(), "error", err)
		}
		streams = append(streams, h.stats())
	}

	m.mu.Lock()
	m.lastStreams = streams
	m.setStateLocked(StateIdle)
	m.mu.Unlock()

	slog.Info("screen-capture: session stopped", "session_id", sess.id)
	return nil
}

// Status returns the current lifecycle state.
func (m *Manager) Status() CaptureState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Configure replaces the stored options. Rejected with ErrCaptureActive
// while a session exists; the stored options are then left untouched.
func (m *Manager) Configure(opts CaptureOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.IsActive() {
		return ErrCaptureActive
	}
	m.options = opts.Normalize()

	slog.Debug("screen-capture: options updated",
		"chunk_duration_ms", m.options.ChunkDurationMs,
		"capture_mic", m.options.CaptureMic,
		"debug_save", m.options.DebugSave,
		"target", m.options.Target.String(),
	)
	return nil
}

// Options returns the stored options.
func (m *Manager) Options() CaptureOptions {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.options
}

// Stats returns a snapshot of the current (or most recent) session.
func (m *Manager) Stats() CaptureStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := CaptureStats{State: m.state}
	if m.session == nil {
		return stats
	}

	stats.SessionID = m.session.id
	stats.StartedAt = m.startedAt
	stats.ChunksConsumed = m.session.consumed.Load()
	stats.ConsumerErrors = m.session.errors.Load()
	stats.QueuedChunks = m.session.rx.Len()

	if m.state == StateRunning {
		stats.Uptime = m.clock().Sub(m.startedAt)
	}

	if len(m.handles) > 0 {
		stats.Streams = make([]StreamStats, 0, len(m.handles))
		for _, h := range m.handles {
			stats.Streams = append(stats.Streams, h.stats())
		}
	} else {
		stats.Streams = append([]StreamStats(nil), m.lastStreams...)
	}

	return stats
}

// WaitDrained blocks until the consumer of the most recent session has
// handled every queued chunk, or ctx is done. Returns nil immediately if no
// session has run. Call after Stop; while a session runs the consumer does
// not finish.
func (m *Manager) WaitDrained(ctx context.Context) error {
	m.mu.RLock()
	sess := m.session
	m.mu.RUnlock()

	if sess == nil {
		return nil
	}

	select {
	case <-sess.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) sinkFor(sessionID string, opts CaptureOptions) ChunkSink {
	if m.newSink != nil {
		return m.newSink(sessionID, opts)
	}
	if opts.DebugSave {
		return NewDiskSink(m.debugDir, sessionID)
	}
	return LogSink{SessionID: sessionID}
}

func (m *Manager) setStateLocked(state CaptureState) {
	m.state = state
	m.metrics.SetState(state.String())
}
