package screencapture

// CaptureController defines the contract for driving a capture session.
//
// Implementations must guarantee:
//   - at most one session exists at a time
//   - Start either leaves every requested pipeline running or none of them
//   - Stop is idempotent (safe to call when idle)
//   - Status and Stats are thread-safe and never block on pipeline work
//     beyond the manager's own lock
type CaptureController interface {
	// Start begins a session with opts. The options are stored as the
	// manager's current options before any pipeline is built.
	//
	// Returns ErrAlreadyActive if a session exists, *MissingCapabilityError
	// if a host processing stage is absent, or *PipelineStartError if a
	// pipeline refuses to start. On any error the manager is back in Idle
	// with no pipeline running.
	//
	// Example:
	//   opts := screencapture.DefaultOptions()
	//   opts.CaptureMic = true
	//   if err := mgr.Start(opts); err != nil {
	//       log.Fatal(err)
	//   }
	Start(opts CaptureOptions) error

	// Stop tears down every pipeline of the current session and returns to
	// Idle. Each stream's final partial chunk is flushed to the consumer.
	// Teardown failures are logged and never reported: Stop always returns
	// nil, including when idle.
	Stop() error

	// Status returns the current lifecycle state.
	Status() CaptureState

	// Configure replaces the stored options used by the next session.
	// Returns ErrCaptureActive while a session exists.
	Configure(opts CaptureOptions) error

	// Stats returns a snapshot of the current (or most recent) session.
	Stats() CaptureStats
}

var _ CaptureController = (*Manager)(nil)
