package gstpipe

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tinyzimmer/go-gst/gst"
)

// ErrNoSource is wrapped by MissingElementError when the platform has no
// source element for a stream at all.
var ErrNoSource = errors.New("no source element on this platform")

// MissingElementError reports that an element factory is not installed on
// this host. It is not retryable.
type MissingElementError struct {
	Factory string
	Err     error
}

func (e *MissingElementError) Error() string {
	return fmt.Sprintf("element %q unavailable: %v", e.Factory, e.Err)
}

func (e *MissingElementError) Unwrap() error {
	return e.Err
}

// ErrorCategory represents the classification of GStreamer bus errors for
// logs and metrics.
type ErrorCategory int

const (
	// ErrCategoryCapability indicates a missing plugin or unsupported feature
	ErrCategoryCapability ErrorCategory = iota
	// ErrCategoryDevice indicates the capture device or display could not be opened
	ErrCategoryDevice
	// ErrCategoryNegotiation indicates caps/format negotiation failures
	ErrCategoryNegotiation
	// ErrCategoryUnknown indicates unclassified errors
	ErrCategoryUnknown
)

// String returns a human-readable string representation of the error category
func (e ErrorCategory) String() string {
	switch e {
	case ErrCategoryCapability:
		return "capability"
	case ErrCategoryDevice:
		return "device"
	case ErrCategoryNegotiation:
		return "negotiation"
	default:
		return "unknown"
	}
}

// ClassifyGError categorizes a bus error. go-gst's GError does not expose the
// error domain, so classification relies on message heuristics.
func ClassifyGError(gerr *gst.GError) ErrorCategory {
	if gerr == nil {
		return ErrCategoryUnknown
	}
	return ClassifyMessage(gerr.Error(), gerr.DebugString())
}

// ClassifyMessage categorizes an error from its message and debug string.
//
// Priority: capability (most specific), then negotiation, then device.
func ClassifyMessage(msg, debug string) ErrorCategory {
	combined := strings.ToLower(msg + " " + debug)

	switch {
	case containsAny(combined, capabilityKeywords):
		return ErrCategoryCapability
	case containsAny(combined, negotiationKeywords):
		return ErrCategoryNegotiation
	case containsAny(combined, deviceKeywords):
		return ErrCategoryDevice
	default:
		return ErrCategoryUnknown
	}
}

var capabilityKeywords = []string{
	"missing plugin",
	"no such element",
	"no element",
	"not supported",
	"unsupported",
	"not implemented",
}

var negotiationKeywords = []string{
	"not negotiated",
	"negotiation",
	"caps",
	"format",
}

var deviceKeywords = []string{
	"device",
	"could not open",
	"resource",
	"busy",
	"permission",
	"denied",
	"display",
	"pulse",
	"connection refused",
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
