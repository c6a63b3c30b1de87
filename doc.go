// Package screencapture orchestrates desktop capture sessions using GStreamer.
//
// A session captures the screen (full display or one window) plus system
// audio, and optionally the microphone. Each stream runs in its own
// pipeline; raw sample deliveries are accumulated into fixed-duration
// chunks which are handed to a single consumer through an unbounded queue.
//
// # Quick Start
//
//	mgr, err := screencapture.NewManager(screencapture.ManagerConfig{
//	    Backend: screencapture.NewGStreamerBackend(nil, nil),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	opts := screencapture.DefaultOptions()
//	opts.CaptureMic = true
//	opts.DebugSave = true // write chunks to ./debug_chunks
//
//	if err := mgr.Start(opts); err != nil {
//	    log.Fatal(err)
//	}
//	time.Sleep(30 * time.Second)
//	mgr.Stop()
//	mgr.WaitDrained(context.Background())
//
// # Lifecycle
//
// The manager is a four-state machine:
//
//	Idle → Starting → Running → Stopping → Idle
//	          └──────── (start failure) ───────┘
//
// Start is all-or-nothing: if any pipeline cannot be built or started,
// every pipeline already started is torn down and the manager returns to
// Idle. A missing GStreamer element is reported as *MissingCapabilityError.
// Start during an active session returns ErrAlreadyActive; Configure
// returns ErrCaptureActive. Stop is idempotent.
//
// # Chunks
//
// Every stream has its own chunk buffer with ids starting at 0. A chunk is
// emitted when the first delivery after ChunkDurationMs arrives (minimum
// 1000ms), so chunks are never shorter than the configured duration. Empty
// windows still produce a chunk (zero bytes, no metadata), which keeps the
// id sequence gap-free. Stop flushes each stream's final partial chunk.
//
// Chunk metadata:
//
//   - Video: frame count (one per delivery), width, height, pixel format,
//     first presentation timestamp
//   - Audio: frame count (bytes / (channels × sample width)), sample rate,
//     channels, sample format, first presentation timestamp
//
// # Consumer
//
// The consumer logs one line per chunk. With DebugSave it writes
// <start>_<id>_<stream>.raw plus a pretty-printed JSON sidecar instead;
// write failures are logged and counted, never fatal.
//
// # Pipelines
//
//	video: <screen source> → videoconvert → videoscale → videorate → BGRA@30fps → appsink
//	audio: <audio source> → audioconvert → audioresample → S16LE/48kHz/stereo → appsink
//
// Screen sources: ximagesrc (Linux), avfvideosrc (macOS),
// d3d11screencapturesrc (Windows). Audio sources: pulsesrc (Linux, monitor
// device for system audio), osxaudiosrc (macOS), wasapisrc (Windows,
// loopback for system audio).
//
// Pipeline bus errors are logged and counted; they never stop a session.
//
// # Dependencies
//
// GStreamer 1.x must be installed on the system:
//
//	# Ubuntu/Debian
//	sudo apt-get install \
//	    gstreamer1.0-tools \
//	    gstreamer1.0-plugins-base \
//	    gstreamer1.0-plugins-good \
//	    gstreamer1.0-pulseaudio
//
// Verify GStreamer installation:
//
//	gst-inspect-1.0 ximagesrc
//	gst-inspect-1.0 pulsesrc
//
// # Thread Safety
//
// All Manager methods are safe for concurrent use. Start and Stop are
// serialized; Status, Options and Stats never wait on pipeline work.
package screencapture
