// internal/state/file_test.go
package state

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	custom_errors "starred-digest/internal/errors"
)

func TestFileBackend_Load(t *testing.T) {
	ctx := context.Background()

	write := func(t *testing.T, content string) string {
		path := filepath.Join(t.TempDir(), "cache.json")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("missing file is empty, not an error", func(t *testing.T) {
		b := NewFileBackend(filepath.Join(t.TempDir(), "nope.json"))
		markers, err := b.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, markers)
	})

	t.Run("reads versioned document", func(t *testing.T) {
		b := NewFileBackend(write(t, `{"__version__": 1, "timestamps": {"a/b": "2024-01-02T03:04:05Z"}}`))
		markers, err := b.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), markers["a/b"])
	})

	t.Run("accepts zone-less timestamps as UTC", func(t *testing.T) {
		b := NewFileBackend(write(t, `{"__version__": 1, "timestamps": {"a/b": "2024-01-02T03:04:05.123456"}}`))
		markers, err := b.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC), markers["a/b"])
	})

	t.Run("unparsable JSON is corrupt", func(t *testing.T) {
		b := NewFileBackend(write(t, `{"__version__": 1, "timestamps": `))
		_, err := b.Load(ctx)
		var corrupt *custom_errors.CorruptStateError
		assert.ErrorAs(t, err, &corrupt)
	})

	t.Run("bad timestamp is corrupt", func(t *testing.T) {
		b := NewFileBackend(write(t, `{"__version__": 1, "timestamps": {"a/b": "yesterday"}}`))
		_, err := b.Load(ctx)
		var corrupt *custom_errors.CorruptStateError
		assert.ErrorAs(t, err, &corrupt)
	})

	t.Run("other version is a mismatch", func(t *testing.T) {
		b := NewFileBackend(write(t, `{"__version__": 2, "timestamps": {}}`))
		_, err := b.Load(ctx)
		assert.ErrorIs(t, err, custom_errors.ErrStateVersionMismatch)
	})

	t.Run("unversioned document is a mismatch", func(t *testing.T) {
		b := NewFileBackend(write(t, `{"a/b": "2024-01-02T03:04:05Z"}`))
		_, err := b.Load(ctx)
		assert.ErrorIs(t, err, custom_errors.ErrStateVersionMismatch)
	})
}

func TestFileBackend_SaveWritesPrettyVersionedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "cache.json")
	b := NewFileBackend(path)

	marker := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))
	require.NoError(t, b.Save(context.Background(), map[string]time.Time{"a/b": marker}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"__version__\": 1")

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, map[string]any{"a/b": "2024-01-02T02:04:05Z"}, doc["timestamps"])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must be renamed away")
}
