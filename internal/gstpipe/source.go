package gstpipe

import (
	"log/slog"
	"runtime"
	"strconv"
	"strings"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/chunk"
)

// Fixed output formats. Every pipeline normalizes to these so the chunk
// buffers never see format changes mid-session.
const (
	VideoCaps = "video/x-raw,format=BGRA,framerate=30/1"
	AudioCaps = "audio/x-raw,format=S16LE,rate=48000,channels=2,layout=interleaved"
)

// Default PulseAudio device selectors.
const (
	DefaultSystemAudioDevice = "@DEFAULT_MONITOR@"
	DefaultMicDevice         = "@DEFAULT_SOURCE@"
)

// sourceDesc describes the platform source element for one stream.
type sourceDesc struct {
	factory string
	// windowProp is the property restricting capture to one window ("" if the
	// source has none).
	windowProp string
	// deviceProp is the audio device selector property ("" if unsupported).
	deviceProp string
	// defaultDevice is used when no override is configured.
	defaultDevice string
	props         map[string]interface{}
	// capability names what is missing when factory is empty.
	capability string
}

// available returns *MissingElementError when the platform has no source for
// the stream.
func (d sourceDesc) available() error {
	if d.factory == "" {
		return &MissingElementError{Factory: d.capability, Err: ErrNoSource}
	}
	return nil
}

// videoSource returns the screen source for goos.
func videoSource(goos string) sourceDesc {
	switch goos {
	case "darwin":
		return sourceDesc{
			factory: "avfvideosrc",
			props:   map[string]interface{}{"capture-screen": true},
		}
	case "windows":
		return sourceDesc{
			factory:    "d3d11screencapturesrc",
			windowProp: "window-handle",
		}
	default:
		return sourceDesc{
			factory:    "ximagesrc",
			windowProp: "xid",
			props:      map[string]interface{}{"use-damage": false},
		}
	}
}

// audioSource returns the audio source for kind on goos.
func audioSource(goos string, kind chunk.Kind) sourceDesc {
	switch goos {
	case "darwin":
		// osxaudiosrc only records input devices.
		if kind == chunk.KindSystemAudio {
			return sourceDesc{capability: "system audio loopback"}
		}
		return sourceDesc{factory: "osxaudiosrc"}
	case "windows":
		desc := sourceDesc{factory: "wasapisrc", deviceProp: "device"}
		if kind == chunk.KindSystemAudio {
			desc.props = map[string]interface{}{"loopback": true}
		}
		return desc
	default:
		desc := sourceDesc{factory: "pulsesrc", deviceProp: "device", defaultDevice: DefaultMicDevice}
		if kind == chunk.KindSystemAudio {
			desc.defaultDevice = DefaultSystemAudioDevice
		}
		return desc
	}
}

func sourceFor(kind chunk.Kind) sourceDesc {
	if kind == chunk.KindVideo {
		return videoSource(runtime.GOOS)
	}
	return audioSource(runtime.GOOS, kind)
}

// ParseWindowID parses a native window handle. Accepts decimal or 0x-prefixed
// hex. ok is false for empty or non-numeric ids.
func ParseWindowID(id string) (uint64, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(id, 0, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// applyWindowTarget restricts src to one window when the id parses and the
// source exposes a window property. Anything else falls back to the default
// source behavior.
func applyWindowTarget(src *gst.Element, desc sourceDesc, windowID string) {
	if windowID == "" {
		return
	}

	handle, ok := ParseWindowID(windowID)
	if !ok {
		slog.Debug("gstpipe: ignoring non-numeric window id", "window_id", windowID)
		return
	}

	if desc.windowProp == "" || !hasProperty(src, desc.windowProp) {
		slog.Debug("gstpipe: source has no window property, capturing full display",
			"source", desc.factory,
			"window_id", windowID,
		)
		return
	}

	if err := src.SetProperty(desc.windowProp, handle); err != nil {
		slog.Debug("gstpipe: failed to apply window id, capturing full display",
			"source", desc.factory,
			"window_id", windowID,
			"error", err,
		)
		return
	}

	slog.Debug("gstpipe: capture restricted to window",
		"source", desc.factory,
		"property", desc.windowProp,
		"window_id", handle,
	)
}

func hasProperty(el *gst.Element, name string) bool {
	_, err := el.GetProperty(name)
	return err == nil
}
