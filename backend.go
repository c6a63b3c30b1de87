package screencapture

import (
	"errors"
	"fmt"

	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/config"
	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/gstpipe"
	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/metrics"
)

// SampleHandler receives raw sample deliveries from a pipeline's streaming
// thread. It must not block for long.
type SampleHandler func(SampleDelivery)

// PipelineRequest describes one pipeline to build.
type PipelineRequest struct {
	Stream   StreamKind
	Options  CaptureOptions
	OnSample SampleHandler
}

// Pipeline is a constructed, not yet producing, capture pipeline.
type Pipeline interface {
	// Start moves the pipeline to its producing state
	Start() error
	// Teardown stops sample delivery and releases the pipeline. Safe to
	// call on a pipeline that never started.
	Teardown() error
}

// Backend builds capture pipelines. The manager owns sequencing and
// rollback; a backend only knows how to construct one stream.
type Backend interface {
	// Build constructs the pipeline for req.Stream. A missing host
	// processing stage is reported as *MissingCapabilityError.
	Build(req PipelineRequest) (Pipeline, error)
}

// gstBackend builds GStreamer pipelines.
type gstBackend struct {
	devices *config.DeviceResolver
	metrics *metrics.Recorder
}

// NewGStreamerBackend returns the GStreamer-backed Backend. devices selects
// audio source devices (nil uses platform defaults); rec counts bus errors
// (may be nil).
func NewGStreamerBackend(devices *config.DeviceResolver, rec *metrics.Recorder) Backend {
	return &gstBackend{devices: devices, metrics: rec}
}

func (b *gstBackend) Build(req PipelineRequest) (Pipeline, error) {
	if req.OnSample == nil {
		return nil, fmt.Errorf("screen-capture: %s pipeline requires a sample handler", req.Stream)
	}

	cfg := gstpipe.Config{
		Kind:       req.Stream,
		OnSample:   gstpipe.SampleHandler(req.OnSample),
		OnBusError: b.onBusError,
	}
	if req.Stream == StreamVideo {
		cfg.WindowID = req.Options.Target.WindowID()
	} else {
		cfg.Device = b.devices.Device(req.Stream)
	}

	p, err := gstpipe.Build(cfg)
	if err != nil {
		var missing *gstpipe.MissingElementError
		if errors.As(err, &missing) {
			return nil, &MissingCapabilityError{
				Stream:     req.Stream,
				Capability: missing.Factory,
				Err:        err,
			}
		}
		return nil, fmt.Errorf("screen-capture: failed to build %s pipeline: %w", req.Stream, err)
	}

	return p, nil
}

func (b *gstBackend) onBusError(kind StreamKind, category gstpipe.ErrorCategory, _ error) {
	b.metrics.PipelineError(kind, category.String())
}
