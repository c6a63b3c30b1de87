package screencapture_test

import (
	"fmt"

	screencapture "github.com/e7canasta/orion-care-sensor/modules/screen-capture"
)

// ExampleParseOptions shows decoding a control payload. Missing fields keep
// their defaults and the chunk duration is clamped to one second.
func ExampleParseOptions() {
	opts, err := screencapture.ParseOptions([]byte(`{"chunk_duration_ms":500,"capture_mic":true}`))
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(opts.ChunkDurationMs, opts.CaptureMic, opts.DebugSave, opts.Target)
	fmt.Println(opts.Streams())
	// Output:
	// 1000 true false full_display
	// [video system_audio mic]
}

func ExampleCaptureState_String() {
	for _, s := range []screencapture.CaptureState{
		screencapture.StateIdle,
		screencapture.StateStarting,
		screencapture.StateRunning,
		screencapture.StateStopping,
	} {
		fmt.Println(s, s.IsActive())
	}
	// Output:
	// idle false
	// starting true
	// running true
	// stopping true
}

func ExampleWindow() {
	target := screencapture.Window("0x3a00007")
	fmt.Println(target)
	fmt.Println(target.WindowID())
	// Output:
	// window:0x3a00007
	// 0x3a00007
}
