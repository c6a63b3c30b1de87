package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	screencapture "github.com/e7canasta/orion-care-sensor/modules/screen-capture"
	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/config"
	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/control"
	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/metrics"
)

const drainTimeout = 10 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a capture session until interrupted",
	Long: `Starts a capture session with the configured options (flags override the
config file) and stops it on SIGINT/SIGTERM or after --duration. Queued
chunks are drained before exit.

With an MQTT broker configured the process also accepts start/stop/status/
configure commands; --wait skips the initial start so that the session is
driven entirely by the control plane.`,
	RunE: runRun,
}

var (
	runChunkMs   uint64
	runMic       bool
	runDebugSave bool
	runWindow    string
	runDebugDir  string
	runDuration  time.Duration
	runWait      bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Uint64Var(&runChunkMs, "chunk-ms", screencapture.DefaultChunkDurationMs, "Chunk duration in milliseconds (minimum 1000)")
	runCmd.Flags().BoolVar(&runMic, "mic", false, "Also capture the microphone")
	runCmd.Flags().BoolVar(&runDebugSave, "debug-save", false, "Write chunks to disk instead of logging them")
	runCmd.Flags().StringVar(&runWindow, "window", "", "Capture one native window (decimal or 0x-prefixed id)")
	runCmd.Flags().StringVar(&runDebugDir, "debug-dir", "", "Directory for debug-saved chunks")
	runCmd.Flags().DurationVar(&runDuration, "duration", 0, "Stop after this long (0 = until interrupted)")
	runCmd.Flags().BoolVar(&runWait, "wait", false, "Do not start a session until a control command arrives")
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := optionsFromConfig(cfg)
	applyRunFlags(cmd, &opts, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rec *metrics.Recorder
	if cfg.MetricsAddr != "" {
		exporter := metrics.NewExporter(cfg.MetricsAddr)
		rec = metrics.New(exporter.Registry())
		go func() {
			if err := exporter.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("screen-capture: metrics exporter failed", "error", err, "addr", cfg.MetricsAddr)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = exporter.Shutdown(shutdownCtx)
		}()
		slog.Info("screen-capture: metrics enabled", "addr", cfg.MetricsAddr)
	}

	mgr, err := screencapture.NewManager(screencapture.ManagerConfig{
		Backend:  screencapture.NewGStreamerBackend(config.NewDeviceResolver(cfg), rec),
		Options:  &opts,
		DebugDir: cfg.DebugDir,
		Metrics:  rec,
	})
	if err != nil {
		return err
	}

	if cfg.MQTT.Enabled() {
		var current atomic.Pointer[control.Handler]
		client, err := control.Connect(ctx, cfg.MQTT, func() {
			if h := current.Load(); h != nil {
				h.Resubscribe()
			}
		})
		if err != nil {
			return err
		}
		defer client.Disconnect(250)

		handler := control.NewHandler(cfg.MQTT, client, controlCallbacks(mgr))
		if err := handler.Start(ctx); err != nil {
			return err
		}
		current.Store(handler)
		defer handler.Stop()
	} else if runWait {
		return fmt.Errorf("--wait requires an MQTT broker (mqtt.broker)")
	}

	if !runWait {
		if err := mgr.Start(opts); err != nil {
			return fmt.Errorf("failed to start capture: %w", err)
		}
	}

	if runDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runDuration)
		defer cancel()
	}

	<-ctx.Done()
	slog.Info("screen-capture: shutting down", "reason", context.Cause(ctx))

	if err := mgr.Stop(); err != nil {
		slog.Warn("screen-capture: stop reported errors", "error", err)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := mgr.WaitDrained(drainCtx); err != nil {
		slog.Warn("screen-capture: consumer did not drain in time", "error", err)
	}

	printStats(cmd.OutOrStdout(), mgr.Stats())
	return nil
}

// optionsFromConfig maps the capture defaults of cfg to session options.
func optionsFromConfig(cfg *config.Config) screencapture.CaptureOptions {
	opts := screencapture.DefaultOptions()
	opts.ChunkDurationMs = cfg.ChunkDurationMs
	opts.CaptureMic = cfg.CaptureMic
	opts.DebugSave = cfg.DebugSave
	if cfg.TargetWindow != "" {
		opts.Target = screencapture.Window(cfg.TargetWindow)
	}
	return opts.Normalize()
}

func applyRunFlags(cmd *cobra.Command, opts *screencapture.CaptureOptions, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("chunk-ms") {
		opts.ChunkDurationMs = runChunkMs
	}
	if flags.Changed("mic") {
		opts.CaptureMic = runMic
	}
	if flags.Changed("debug-save") {
		opts.DebugSave = runDebugSave
	}
	if flags.Changed("window") {
		opts.Target = screencapture.FullDisplay()
		if runWindow != "" {
			opts.Target = screencapture.Window(runWindow)
		}
	}
	if flags.Changed("debug-dir") {
		cfg.DebugDir = runDebugDir
	}
	*opts = opts.Normalize()
}

// controlCallbacks connects control plane commands to mgr. A start without
// options uses the stored options.
func controlCallbacks(mgr *screencapture.Manager) control.Callbacks {
	return control.Callbacks{
		OnStart: func(raw json.RawMessage) error {
			if len(raw) == 0 {
				return mgr.StartConfigured()
			}
			opts, err := screencapture.ParseOptions(raw)
			if err != nil {
				return err
			}
			return mgr.Start(opts)
		},
		OnStop: mgr.Stop,
		OnConfigure: func(raw json.RawMessage) error {
			opts, err := screencapture.ParseOptions(raw)
			if err != nil {
				return err
			}
			return mgr.Configure(opts)
		},
		OnStatus: func() map[string]interface{} {
			return statusData(mgr)
		},
	}
}

func statusData(mgr *screencapture.Manager) map[string]interface{} {
	stats := mgr.Stats()

	streams := make([]map[string]interface{}, 0, len(stats.Streams))
	for _, s := range stats.Streams {
		streams = append(streams, map[string]interface{}{
			"stream":          s.Stream.String(),
			"deliveries":      s.Deliveries,
			"bytes_delivered": s.BytesDelivered,
			"chunks_emitted":  s.ChunksEmitted,
			"chunks_dropped":  s.ChunksDropped,
			"rate_hz":         s.Rate.RateMean,
			"rate_stable":     s.Rate.Stable,
		})
	}

	return map[string]interface{}{
		"state":           stats.State.String(),
		"session_id":      stats.SessionID,
		"uptime_s":        stats.Uptime.Seconds(),
		"chunks_consumed": stats.ChunksConsumed,
		"consumer_errors": stats.ConsumerErrors,
		"queued_chunks":   stats.QueuedChunks,
		"streams":         streams,
		"options":         mgr.Options(),
	}
}

func printStats(w io.Writer, stats screencapture.CaptureStats) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "                     Final Statistics                      \n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	if stats.SessionID == "" {
		fmt.Fprintf(w, "  No session was started\n")
	} else {
		fmt.Fprintf(w, "  Session:            %s\n", stats.SessionID)
		fmt.Fprintf(w, "  Chunks Consumed:    %d\n", stats.ChunksConsumed)
		fmt.Fprintf(w, "  Consumer Errors:    %d\n", stats.ConsumerErrors)
		for _, s := range stats.Streams {
			fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
			fmt.Fprintf(w, "  Stream:             %s\n", s.Stream)
			fmt.Fprintf(w, "  Deliveries:         %d\n", s.Deliveries)
			fmt.Fprintf(w, "  Bytes Delivered:    %.2f MB\n", float64(s.BytesDelivered)/1024/1024)
			fmt.Fprintf(w, "  Chunks Emitted:     %d\n", s.ChunksEmitted)
			if s.ChunksDropped > 0 {
				fmt.Fprintf(w, "  Chunks Dropped:     %d\n", s.ChunksDropped)
			}
			if s.Rate.Deliveries > 0 {
				fmt.Fprintf(w, "  Delivery Rate:      %.2f Hz (stable: %v)\n", s.Rate.RateMean, s.Rate.Stable)
			}
		}
	}
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
}
