package gstpipe

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/chunk"
)

// BusErrorHandler is notified of classified bus errors.
type BusErrorHandler func(kind chunk.Kind, category ErrorCategory, err error)

// monitorBus polls the pipeline bus until ctx is cancelled or the stream
// ends.
//
// This function:
//  1. Polls pipeline bus for messages (EOS, Error, StateChanged)
//  2. Classifies errors for logs and metrics
//  3. Reports errors to onError (if set)
//
// Bus errors never stop the session: teardown is owned by the manager.
func monitorBus(ctx context.Context, pipeline *gst.Pipeline, kind chunk.Kind, onError BusErrorHandler) {
	bus := pipeline.GetPipelineBus()
	startedAt := time.Now()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("gstpipe: context cancelled, stopping bus monitor", "stream", kind)
			return

		default:
			// Poll for messages with short timeout for responsive shutdown
			msg := bus.TimedPop(50 * time.Millisecond)
			if msg == nil {
				continue
			}

			switch msg.Type() {
			case gst.MessageEOS:
				slog.Info("gstpipe: end of stream received",
					"stream", kind,
					"uptime", time.Since(startedAt),
				)
				return

			case gst.MessageError:
				gerr := msg.ParseError()
				category := ClassifyGError(gerr)

				slog.Error("gstpipe: pipeline error",
					"stream", kind,
					"error", gerr.Error(),
					"debug", gerr.DebugString(),
					"category", category.String(),
					"uptime", time.Since(startedAt),
				)

				if onError != nil {
					onError(kind, category, errors.New(gerr.Error()))
				}

			case gst.MessageStateChanged:
				if msg.Source() == pipeline.GetName() {
					old, new := msg.ParseStateChanged()
					slog.Debug("gstpipe: pipeline state changed",
						"stream", kind,
						"from", old,
						"to", new,
					)
				}
			}
		}
	}
}
