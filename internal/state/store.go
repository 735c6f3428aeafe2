// internal/state/store.go
package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	custom_errors "starred-digest/internal/errors"
)

// SchemaVersion is the schema tag every backend writes next to the markers.
const SchemaVersion = 1

// Backend persists the whole marker map at once.
//
// Load returns an empty map and no error when nothing was persisted yet. Undecodable data
// is reported as *errors.CorruptStateError, a schema tag mismatch as
// errors.ErrStateVersionMismatch.
type Backend interface {
	Load(ctx context.Context) (map[string]time.Time, error)
	Save(ctx context.Context, markers map[string]time.Time) error
	Close() error
}

// Store keeps the per-repository sync markers of a run in memory and persists them
// through a Backend at a single save point.
type Store struct {
	backend   Backend
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
	markers   map[string]time.Time
}

// NewStore creates a Store. Markers older than retention are dropped on Save.
func NewStore(backend Backend, retention time.Duration, logger *slog.Logger) *Store {
	return &Store{
		backend:   backend,
		retention: retention,
		now:       time.Now,
		logger:    logger,
		markers:   make(map[string]time.Time),
	}
}

// Load replaces the in-memory markers with the persisted ones. Corrupt or
// version-mismatched data resets the store to empty instead of failing.
func (s *Store) Load(ctx context.Context) error {
	markers, err := s.backend.Load(ctx)

	var corrupt *custom_errors.CorruptStateError
	switch {
	case errors.As(err, &corrupt):
		s.logger.Warn("Failed to decode sync state, starting with empty state", "error", err)
		markers = nil
	case errors.Is(err, custom_errors.ErrStateVersionMismatch):
		s.logger.Warn("Sync state version mismatch, starting with empty state", "expected_version", SchemaVersion)
		markers = nil
	case err != nil:
		return fmt.Errorf("load sync state: %w", err)
	}

	if markers == nil {
		markers = make(map[string]time.Time)
	}
	s.markers = markers
	s.logger.Info("Loaded sync markers", "count", len(s.markers))
	return nil
}

// Get returns the marker of a repository.
func (s *Store) Get(repoID string) (time.Time, bool) {
	t, ok := s.markers[repoID]
	return t, ok
}

// Set overwrites the marker of a repository. Callers own monotonicity.
func (s *Store) Set(repoID string, t time.Time) {
	s.markers[repoID] = t
}

// Len returns the number of markers held in memory.
func (s *Store) Len() int {
	return len(s.markers)
}

// Save prunes markers older than the retention window and persists the rest.
func (s *Store) Save(ctx context.Context) error {
	pruned := s.prune()
	if err := s.backend.Save(ctx, s.markers); err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}
	s.logger.Info("Saved sync markers", "count", len(s.markers), "pruned", pruned)
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) prune() int {
	if s.retention <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.retention)
	pruned := 0
	for id, t := range s.markers {
		if t.Before(cutoff) {
			delete(s.markers, id)
			pruned++
		}
	}
	return pruned
}

// parseTimestamp accepts RFC 3339 and the zone-less ISO format written by older
// versions of the cache file, which is read as UTC.
func parseTimestamp(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", v, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", v)
	}
	return t, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
