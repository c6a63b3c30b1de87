// Package debugsave persists captured chunks as a raw-bytes file plus a
// pretty-printed JSON metadata sidecar, and reads them back.
//
// Layout:
//
//	<dir>/<start_timestamp>_<id>_<kind>.raw
//	<dir>/<start_timestamp>_<id>_<kind>.json
package debugsave

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/chunk"
)

// DefaultDir is the output directory used when none is configured.
const DefaultDir = "debug_chunks"

const (
	rawExt  = ".raw"
	metaExt = ".json"
)

// Sidecar is the JSON metadata written next to each raw chunk.
type Sidecar struct {
	SessionID      string          `json:"session_id,omitempty"`
	ID             uint64          `json:"id"`
	Kind           chunk.Kind      `json:"kind"`
	StartTimestamp int64           `json:"start_timestamp"`
	DurationMs     int64           `json:"duration_ms"`
	ByteLength     int             `json:"byte_length"`
	Metadata       *chunk.Metadata `json:"metadata"`
}

// NewSidecar describes c.
func NewSidecar(c chunk.Chunk, sessionID string) Sidecar {
	return Sidecar{
		SessionID:      sessionID,
		ID:             c.ID,
		Kind:           c.Kind,
		StartTimestamp: c.StartTimestamp,
		DurationMs:     c.Duration.Milliseconds(),
		ByteLength:     c.ByteLength,
		Metadata:       c.Metadata,
	}
}

// BaseName returns the deterministic file stem for c.
func BaseName(c chunk.Chunk) string {
	return fmt.Sprintf("%d_%d_%s", c.StartTimestamp, c.ID, c.Kind)
}

// Writer writes chunks under one directory. The directory is created on the
// first write. A Writer is used from a single goroutine.
type Writer struct {
	dir       string
	sessionID string

	mkdirOnce sync.Once
	mkdirErr  error
}

// NewWriter creates a writer for dir (DefaultDir when empty).
func NewWriter(dir, sessionID string) *Writer {
	if dir == "" {
		dir = DefaultDir
	}
	return &Writer{dir: dir, sessionID: sessionID}
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Write persists c and returns the raw and sidecar paths.
func (w *Writer) Write(c chunk.Chunk) (rawPath, metaPath string, err error) {
	w.mkdirOnce.Do(func() {
		w.mkdirErr = os.MkdirAll(w.dir, 0o755)
	})
	if w.mkdirErr != nil {
		return "", "", fmt.Errorf("debugsave: create %s: %w", w.dir, w.mkdirErr)
	}

	base := filepath.Join(w.dir, BaseName(c))
	rawPath = base + rawExt
	metaPath = base + metaExt

	if err := os.WriteFile(rawPath, c.Data, 0o644); err != nil {
		return "", "", fmt.Errorf("debugsave: write raw chunk: %w", err)
	}

	meta, err := json.MarshalIndent(NewSidecar(c, w.sessionID), "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("debugsave: encode sidecar: %w", err)
	}
	if err := os.WriteFile(metaPath, meta, 0o644); err != nil {
		return "", "", fmt.Errorf("debugsave: write sidecar: %w", err)
	}

	slog.Debug("debugsave: chunk written",
		"chunk_id", c.ID,
		"stream", c.Kind,
		"raw_path", rawPath,
		"bytes", c.ByteLength,
	)

	return rawPath, metaPath, nil
}

// Read loads the raw bytes and sidecar stored under base in dir.
func Read(dir, base string) (Sidecar, []byte, error) {
	var sc Sidecar

	stem := filepath.Join(dir, strings.TrimSuffix(strings.TrimSuffix(base, rawExt), metaExt))

	meta, err := os.ReadFile(stem + metaExt)
	if err != nil {
		return sc, nil, fmt.Errorf("debugsave: read sidecar: %w", err)
	}
	if err := json.Unmarshal(meta, &sc); err != nil {
		return sc, nil, fmt.Errorf("debugsave: decode sidecar: %w", err)
	}

	data, err := os.ReadFile(stem + rawExt)
	if err != nil {
		return sc, nil, fmt.Errorf("debugsave: read raw chunk: %w", err)
	}

	if len(data) != sc.ByteLength {
		return sc, data, fmt.Errorf("debugsave: %s: sidecar says %d bytes, raw file has %d",
			filepath.Base(stem), sc.ByteLength, len(data))
	}

	return sc, data, nil
}

// List returns the base names of every sidecar in dir, ordered by start
// timestamp then id. A missing directory yields an empty list.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("debugsave: list %s: %w", dir, err)
	}

	type entry struct {
		base  string
		start int64
		id    uint64
	}

	var found []entry
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), metaExt) {
			continue
		}
		base := strings.TrimSuffix(e.Name(), metaExt)

		var start int64
		var id uint64
		if _, err := fmt.Sscanf(base, "%d_%d_", &start, &id); err != nil {
			continue
		}
		found = append(found, entry{base: base, start: start, id: id})
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].start != found[j].start {
			return found[i].start < found[j].start
		}
		return found[i].id < found[j].id
	})

	names := make([]string, len(found))
	for i, e := range found {
		names[i] = e.base
	}
	return names, nil
}
