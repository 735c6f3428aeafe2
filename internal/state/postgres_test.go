// internal/state/postgres_test.go
package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"starred-digest/internal/database"
)

// MockQuerier is a mock of the database.Querier interface.
type MockQuerier struct {
	mock.Mock
}

func (m *MockQuerier) CreateSyncMarkers(ctx context.Context, arg []database.CreateSyncMarkersParams) (int64, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockQuerier) DeleteAllSyncMarkers(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockQuerier) ListSyncMarkers(ctx context.Context) ([]database.SyncMarker, error) {
	args := m.Called(ctx)
	return args.Get(0).([]database.SyncMarker), args.Error(1)
}

func TestPostgres_LoadMarkers(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)

	mockQ := new(MockQuerier)
	mockQ.On("ListSyncMarkers", ctx).Return([]database.SyncMarker{
		{Repo: "a/b", SyncedAt: pgtype.Timestamptz{Time: ts, Valid: true}},
		{Repo: "null/row"},
	}, nil).Once()

	markers, err := loadMarkers(ctx, mockQ)

	assert.NoError(t, err)
	assert.Equal(t, map[string]time.Time{"a/b": ts}, markers)
	mockQ.AssertExpectations(t)
}

func TestPostgres_SaveMarkers(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)

	t.Run("replaces all rows", func(t *testing.T) {
		mockQ := new(MockQuerier)
		expected := []database.CreateSyncMarkersParams{
			{Repo: "a/b", SyncedAt: pgtype.Timestamptz{Time: ts, Valid: true}},
			{Repo: "c/d", SyncedAt: pgtype.Timestamptz{Time: ts.Add(time.Hour), Valid: true}},
		}
		mockQ.On("DeleteAllSyncMarkers", ctx).Return(nil).Once()
		mockQ.On("CreateSyncMarkers", ctx, expected).Return(int64(2), nil).Once()

		err := saveMarkers(ctx, mockQ, map[string]time.Time{"c/d": ts.Add(time.Hour), "a/b": ts})

		assert.NoError(t, err)
		mockQ.AssertExpectations(t)
	})

	t.Run("skips insert for an empty map", func(t *testing.T) {
		mockQ := new(MockQuerier)
		mockQ.On("DeleteAllSyncMarkers", ctx).Return(nil).Once()

		err := saveMarkers(ctx, mockQ, map[string]time.Time{})

		assert.NoError(t, err)
		mockQ.AssertNotCalled(t, "CreateSyncMarkers")
	})

	t.Run("returns delete errors", func(t *testing.T) {
		mockQ := new(MockQuerier)
		dbError := errors.New("unexpected database error")
		mockQ.On("DeleteAllSyncMarkers", ctx).Return(dbError).Once()

		err := saveMarkers(ctx, mockQ, map[string]time.Time{"a/b": ts})

		assert.Equal(t, dbError, err)
		mockQ.AssertNotCalled(t, "CreateSyncMarkers")
	})
}
