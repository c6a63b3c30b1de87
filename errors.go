package screencapture

import (
	"errors"
	"fmt"
)

// Session-conflict errors. They never alter the existing session.
var (
	// ErrAlreadyActive is returned by Start while a session exists
	ErrAlreadyActive = errors.New("screen-capture: capture already active")
	// ErrCaptureActive is returned by Configure while a session exists
	ErrCaptureActive = errors.New("screen-capture: stop capture before updating options")
)

// MissingCapabilityError reports that the host cannot supply a processing
// stage a stream requires (for example a missing GStreamer plugin). It is
// fatal for the start attempt and not retryable.
type MissingCapabilityError struct {
	Stream     StreamKind
	Capability string
	Err        error
}

func (e *MissingCapabilityError) Error() string {
	return fmt.Sprintf("screen-capture: missing capability %q for %s stream: %v", e.Capability, e.Stream, e.Err)
}

func (e *MissingCapabilityError) Unwrap() error {
	return e.Err
}

// PipelineStartError reports that a built pipeline refused to reach the
// producing state.
type PipelineStartError struct {
	Stream StreamKind
	Err    error
}

func (e *PipelineStartError) Error() string {
	return fmt.Sprintf("screen-capture: failed to start %s pipeline: %v", e.Stream, e.Err)
}

func (e *PipelineStartError) Unwrap() error {
	return e.Err
}
