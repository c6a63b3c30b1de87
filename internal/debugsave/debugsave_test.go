package debugsave

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/chunk"
)

func ptr(v uint64) *uint64 { return &v }

func TestWriter_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		chunk chunk.Chunk
	}{
		{
			name: "video",
			chunk: chunk.Chunk{
				ID:             3,
				Kind:           chunk.KindVideo,
				StartTimestamp: 1_700_000_000_123_456_789,
				Duration:       5 * time.Second,
				Metadata: &chunk.Metadata{Video: &chunk.VideoMetadata{
					Width: 1920, Height: 1080, PixelFormat: "BGRA", FrameCount: 150, PTSNanos: ptr(33_000_000),
				}},
				ByteLength: 6,
				Data:       []byte{1, 2, 3, 4, 5, 6},
			},
		},
		{
			name: "audio",
			chunk: chunk.Chunk{
				ID:             0,
				Kind:           chunk.KindMic,
				StartTimestamp: 1_700_000_001_000_000_000,
				Duration:       time.Second,
				Metadata: &chunk.Metadata{Audio: &chunk.AudioMetadata{
					SampleRate: 48000, Channels: 2, SampleFormat: "S16LE", FrameCount: 2,
				}},
				ByteLength: 8,
				Data:       []byte{0, 1, 0, 1, 0, 1, 0, 1},
			},
		},
		{
			name: "empty chunk without metadata",
			chunk: chunk.Chunk{
				ID:             7,
				Kind:           chunk.KindSystemAudio,
				StartTimestamp: 1_700_000_002_000_000_000,
				Duration:       time.Second,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out")
			w := NewWriter(dir, "session-1")

			rawPath, metaPath, err := w.Write(tt.chunk)
			require.NoError(t, err)
			assert.FileExists(t, rawPath)
			assert.FileExists(t, metaPath)
			assert.Equal(t, BaseName(tt.chunk)+".raw", filepath.Base(rawPath))

			sc, data, err := Read(dir, BaseName(tt.chunk))
			require.NoError(t, err)

			assert.Equal(t, tt.chunk.ByteLength, len(data))
			assert.Equal(t, tt.chunk.ByteLength, sc.ByteLength)
			assert.Equal(t, tt.chunk.ID, sc.ID)
			assert.Equal(t, tt.chunk.Kind, sc.Kind)
			assert.Equal(t, tt.chunk.StartTimestamp, sc.StartTimestamp)
			assert.Equal(t, tt.chunk.Duration.Milliseconds(), sc.DurationMs)
			assert.Equal(t, tt.chunk.Metadata, sc.Metadata)
			assert.Equal(t, "session-1", sc.SessionID)
		})
	}
}

func TestWriter_SidecarIsPrettyJSONWithNullMetadata(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "")

	_, metaPath, err := w.Write(chunk.Chunk{ID: 1, Kind: chunk.KindVideo, StartTimestamp: 10})
	require.NoError(t, err)

	raw, err := os.ReadFile(metaPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  \"id\": 1")
	assert.Contains(t, string(raw), "\"metadata\": null")
	assert.NotContains(t, string(raw), "session_id")
}

func TestWriter_DirectoryCreatedOnFirstUse(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "chunks")
	w := NewWriter(dir, "")

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "directory must not exist before the first write")

	_, _, err = w.Write(chunk.Chunk{Kind: chunk.KindMic})
	require.NoError(t, err)
	assert.DirExists(t, dir)
}

func TestNewWriter_DefaultDir(t *testing.T) {
	assert.Equal(t, DefaultDir, NewWriter("", "").Dir())
}

func TestRead_LengthMismatch(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "")
	c := chunk.Chunk{ID: 2, Kind: chunk.KindVideo, ByteLength: 3, Data: []byte{1, 2, 3}}

	rawPath, _, err := w.Write(c)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(rawPath, []byte{1}, 0o644))

	_, _, err = Read(dir, BaseName(c))
	assert.Error(t, err)
}

func TestRead_AcceptsFileNames(t *testing.T) {
	dir := t.TempDir()
	c := chunk.Chunk{ID: 4, Kind: chunk.KindMic, StartTimestamp: 99, ByteLength: 1, Data: []byte{9}}
	_, _, err := NewWriter(dir, "").Write(c)
	require.NoError(t, err)

	for _, name := range []string{BaseName(c), BaseName(c) + ".raw", BaseName(c) + ".json"} {
		_, data, err := Read(dir, name)
		require.NoError(t, err, name)
		assert.Equal(t, []byte{9}, data)
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "")

	chunks := []chunk.Chunk{
		{ID: 1, Kind: chunk.KindVideo, StartTimestamp: 200},
		{ID: 0, Kind: chunk.KindVideo, StartTimestamp: 100},
		{ID: 0, Kind: chunk.KindMic, StartTimestamp: 100},
	}
	for _, c := range chunks {
		_, _, err := w.Write(c)
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0o644))

	names, err := List(dir)
	require.NoError(t, err)
	require.Len(t, names, 3)
	assert.Equal(t, "200_1_video", names[2])

	missing, err := List(filepath.Join(dir, "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}
