// internal/state/file.go
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	custom_errors "starred-digest/internal/errors"
	"starred-digest/internal/fileutil"
)

// fileDocument is the on-disk layout of the cache file.
type fileDocument struct {
	Version    *int              `json:"__version__"`
	Timestamps map[string]string `json:"timestamps"`
}

// FileBackend stores markers in a pretty-printed JSON file.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend writing to path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Load reads the cache file. A missing file yields an empty map.
func (b *FileBackend) Load(_ context.Context) (map[string]time.Time, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]time.Time{}, nil
	}
	if err != nil {
		return nil, err
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &custom_errors.CorruptStateError{Source: b.path, Err: err}
	}
	if doc.Version == nil || *doc.Version != SchemaVersion {
		return nil, custom_errors.ErrStateVersionMismatch
	}

	markers := make(map[string]time.Time, len(doc.Timestamps))
	for repo, raw := range doc.Timestamps {
		t, err := parseTimestamp(raw)
		if err != nil {
			return nil, &custom_errors.CorruptStateError{Source: b.path, Err: fmt.Errorf("repo %s: %w", repo, err)}
		}
		markers[repo] = t
	}
	return markers, nil
}

// Save writes the markers to a temporary file and renames it over the cache file,
// so an interrupted write never leaves a truncated cache behind.
func (b *FileBackend) Save(_ context.Context, markers map[string]time.Time) error {
	version := SchemaVersion
	doc := fileDocument{Version: &version, Timestamps: make(map[string]string, len(markers))}
	for repo, t := range markers {
		doc.Timestamps[repo] = formatTimestamp(t)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(b.path, append(data, '\n'))
}

// Close is a no-op.
func (b *FileBackend) Close() error { return nil }
