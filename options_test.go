package screencapture

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    CaptureOptions
		wantErr bool
	}{
		{
			name:    "empty payload",
			payload: "",
			want:    DefaultOptions(),
		},
		{
			name:    "empty object",
			payload: `{}`,
			want:    DefaultOptions(),
		},
		{
			name:    "all fields",
			payload: `{"chunk_duration_ms":2500,"capture_mic":true,"debug_save":true,"target":{"kind":"window","id":"0x3a00007"}}`,
			want: CaptureOptions{
				ChunkDurationMs: 2500,
				CaptureMic:      true,
				DebugSave:       true,
				Target:          Window("0x3a00007"),
			},
		},
		{
			name:    "duration below floor is clamped",
			payload: `{"chunk_duration_ms":250}`,
			want:    CaptureOptions{ChunkDurationMs: MinChunkDurationMs, Target: FullDisplay()},
		},
		{
			name:    "target without kind",
			payload: `{"target":{}}`,
			want:    DefaultOptions(),
		},
		{
			name:    "unknown target kind",
			payload: `{"target":{"kind":"monitor"}}`,
			wantErr: true,
		},
		{
			name:    "negative duration",
			payload: `{"chunk_duration_ms":-1}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			payload: `{`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOptions([]byte(tt.payload))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCaptureOptions_ChunkDuration(t *testing.T) {
	tests := []struct {
		ms   uint64
		want time.Duration
	}{
		{0, time.Second},
		{999, time.Second},
		{1000, time.Second},
		{5000, 5 * time.Second},
	}

	for _, tt := range tests {
		got := CaptureOptions{ChunkDurationMs: tt.ms}.ChunkDuration()
		assert.Equal(t, tt.want, got, "ms=%d", tt.ms)
	}
}

func TestCaptureOptions_Streams(t *testing.T) {
	assert.Equal(t, []StreamKind{StreamVideo, StreamSystemAudio}, DefaultOptions().Streams())

	opts := DefaultOptions()
	opts.CaptureMic = true
	assert.Equal(t, []StreamKind{StreamVideo, StreamSystemAudio, StreamMic}, opts.Streams())
}

func TestCaptureTarget(t *testing.T) {
	assert.Equal(t, "", FullDisplay().WindowID())
	assert.Equal(t, "12345", Window(" 12345 ").WindowID())
	assert.Equal(t, "", CaptureTarget{Kind: TargetFullDisplay, ID: "12345"}.WindowID(), "id ignored for full display")

	assert.Equal(t, "full_display", FullDisplay().String())
	assert.Equal(t, "window:12345", Window("12345").String())

	data, err := json.Marshal(FullDisplay())
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"full_display"}`, string(data))
}

func TestCaptureState_Text(t *testing.T) {
	for _, s := range []CaptureState{StateIdle, StateStarting, StateRunning, StateStopping} {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var back CaptureState
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, s, back)
	}

	_, err := CaptureState(42).MarshalText()
	assert.Error(t, err)

	var s CaptureState
	assert.Error(t, s.UnmarshalText([]byte("paused")))

	assert.False(t, StateIdle.IsActive())
	assert.True(t, StateStarting.IsActive())
	assert.True(t, StateRunning.IsActive())
	assert.True(t, StateStopping.IsActive())
}
