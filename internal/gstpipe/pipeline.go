// Package gstpipe builds the GStreamer capture pipelines (screen video,
// system audio, microphone) and delivers their raw samples to a callback.
//
// This package is INTERNAL - clients use the Backend in the parent package.
package gstpipe

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/chunk"
)

// Config contains configuration for one capture pipeline.
type Config struct {
	Kind chunk.Kind

	// WindowID restricts video capture to one native window. Empty means
	// full display. Ignored for audio.
	WindowID string

	// Device selects the audio source device. Empty uses the kind default.
	Device string

	OnSample   SampleHandler
	OnBusError BusErrorHandler
}

// Pipeline is one constructed capture pipeline. It is created in the NULL
// state; Start moves it to PLAYING.
type Pipeline struct {
	kind     chunk.Kind
	pipeline *gst.Pipeline
	sink     *app.Sink
	onError  BusErrorHandler

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var initOnce sync.Once

// Init initializes GStreamer once per process.
func Init() {
	initOnce.Do(func() { gst.Init(nil) })
}

// Build creates and links a pipeline for cfg.Kind.
//
// Pipeline structure:
//
//	video: <screen source> → videoconvert → videoscale → videorate → capsfilter(BGRA@30) → appsink
//	audio: <audio source> → audioconvert → audioresample → capsfilter(S16LE/48k/2ch) → appsink
//
// Returns *MissingElementError when a required element factory is not
// installed.
func Build(cfg Config) (*Pipeline, error) {
	if cfg.OnSample == nil {
		return nil, fmt.Errorf("gstpipe: sample handler is required")
	}

	desc := sourceFor(cfg.Kind)
	if err := desc.available(); err != nil {
		return nil, err
	}

	Init()

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	src, err := newElement(desc.factory)
	if err != nil {
		return nil, err
	}
	for name, value := range desc.props {
		if err := src.SetProperty(name, value); err != nil {
			slog.Debug("gstpipe: failed to set source property",
				"source", desc.factory,
				"property", name,
				"error", err,
			)
		}
	}

	var chain []string
	var capsStr string

	switch cfg.Kind {
	case chunk.KindVideo:
		applyWindowTarget(src, desc, cfg.WindowID)
		chain = []string{"videoconvert", "videoscale", "videorate"}
		capsStr = VideoCaps

	case chunk.KindSystemAudio, chunk.KindMic:
		device := cfg.Device
		if device == "" {
			device = desc.defaultDevice
		}
		if desc.deviceProp != "" && device != "" {
			if err := src.SetProperty(desc.deviceProp, device); err != nil {
				slog.Warn("gstpipe: failed to set audio device", "stream", cfg.Kind, "device", device, "error", err)
			}
		}
		chain = []string{"audioconvert", "audioresample"}
		capsStr = AudioCaps

	default:
		return nil, fmt.Errorf("gstpipe: unknown stream kind %q", cfg.Kind)
	}

	elements := []*gst.Element{src}
	for _, factory := range chain {
		el, err := newElement(factory)
		if err != nil {
			return nil, err
		}
		elements = append(elements, el)
	}

	capsfilter, err := newElement("capsfilter")
	if err != nil {
		return nil, err
	}
	capsfilter.SetProperty("caps", gst.NewCapsFromString(capsStr))
	elements = append(elements, capsfilter)

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, &MissingElementError{Factory: "appsink", Err: err}
	}
	appsink.SetProperty("sync", false) // No sync with clock (real-time)
	elements = append(elements, appsink.Element)

	if err := pipeline.AddMany(elements...); err != nil {
		return nil, fmt.Errorf("failed to add %s pipeline elements: %w", cfg.Kind, err)
	}
	if err := gst.ElementLinkMany(elements...); err != nil {
		return nil, fmt.Errorf("failed to link %s pipeline elements: %w", cfg.Kind, err)
	}

	kind := cfg.Kind
	handle := cfg.OnSample
	appsink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			return OnNewSample(sink, kind, handle)
		},
	})

	slog.Debug("gstpipe: pipeline created",
		"stream", cfg.Kind,
		"source", desc.factory,
		"caps", capsStr,
	)

	return &Pipeline{
		kind:     cfg.Kind,
		pipeline: pipeline,
		sink:     appsink,
		onError:  cfg.OnBusError,
	}, nil
}

// Kind returns the stream this pipeline produces.
func (p *Pipeline) Kind() chunk.Kind {
	return p.kind
}

// Start sets the pipeline to PLAYING and starts the bus monitor.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return nil
	}

	if err := p.pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("failed to set %s pipeline to PLAYING: %w", p.kind, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		monitorBus(ctx, p.pipeline, p.kind, p.onError)
	}()

	return nil
}

// Teardown stops the bus monitor and sets the pipeline to NULL (stops and
// releases resources). Safe to call on a pipeline that was never started.
func (p *Pipeline) Teardown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
		<-p.done
		p.cancel = nil
	}

	if err := p.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("failed to set %s pipeline to NULL: %w", p.kind, err)
	}

	return nil
}

func newElement(factory string) (*gst.Element, error) {
	el, err := gst.NewElement(factory)
	if err != nil {
		return nil, &MissingElementError{Factory: factory, Err: err}
	}
	return el, nil
}
