package gstpipe

import (
	"log/slog"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/chunk"
)

// SampleHandler receives one delivery per appsink sample. It runs on the
// GStreamer streaming thread and must not block on I/O.
type SampleHandler func(chunk.Delivery)

// OnNewSample is called by GStreamer when a new sample is available
//
// This callback:
//  1. Pulls the sample from the appsink
//  2. Maps the buffer to read raw data
//  3. Copies data (GStreamer will reuse the buffer)
//  4. Decodes the sample caps and presentation timestamp
//  5. Hands the delivery to the stream's handler
//
// A bad sample is skipped instead of terminating the stream.
func OnNewSample(sink *app.Sink, kind chunk.Kind, handle SampleHandler) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		slog.Warn("gstpipe: failed to pull sample from appsink, skipping", "stream", kind)
		return gst.FlowOK
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("gstpipe: failed to get buffer from sample, skipping", "stream", kind)
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()

	// Copy sample data (GStreamer will reuse buffer)
	raw := make([]byte, len(data))
	copy(raw, data)
	buffer.Unmap()

	d := chunk.Delivery{
		Data:   raw,
		Format: FormatFromCaps(sample.GetCaps()),
	}
	if pts := buffer.PresentationTimestamp(); pts >= 0 {
		d.PTS = pts
		d.HasPTS = true
	}

	handle(d)

	return gst.FlowOK
}
