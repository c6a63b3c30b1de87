package screencapture

import (
	"sync"

	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/chunk"
)

// pipelineHandle pairs a running pipeline with the chunk buffer its sample
// callback feeds.
type pipelineHandle struct {
	stream   StreamKind
	pipeline Pipeline
	buffer   *chunk.Buffer

	once sync.Once
	err  error
}

// teardown stops the pipeline, then flushes the buffer's final partial
// chunk and releases its queue sender. Idempotent.
func (h *pipelineHandle) teardown() error {
	h.once.Do(func() {
		if h.pipeline != nil {
			h.err = h.pipeline.Teardown()
		}
		h.buffer.Close()
	})
	return h.err
}

func (h *pipelineHandle) stats() StreamStats {
	s := h.buffer.Stats()
	return StreamStats{
		Stream:         h.stream,
		Deliveries:     s.Deliveries,
		BytesDelivered: s.BytesDelivered,
		ChunksEmitted:  s.ChunksEmitted,
		ChunksDropped:  s.ChunksDropped,
		Rate:           s.Rate,
	}
}
