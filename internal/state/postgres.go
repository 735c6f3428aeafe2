// internal/state/postgres.go
package state

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"starred-digest/internal/database"
)

// PostgresBackend stores markers in the sync_markers table.
type PostgresBackend struct {
	dbpool *pgxpool.Pool
}

// NewPostgresBackend applies migrations and opens a connection pool.
func NewPostgresBackend(ctx context.Context, dbURL string) (*PostgresBackend, error) {
	if err := database.RunMigrations(dbURL); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	dbpool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := dbpool.Ping(ctx); err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresBackend{dbpool: dbpool}, nil
}

// Load reads every marker row.
func (b *PostgresBackend) Load(ctx context.Context) (map[string]time.Time, error) {
	return loadMarkers(ctx, database.New(b.dbpool))
}

// Save replaces the table contents in one transaction.
func (b *PostgresBackend) Save(ctx context.Context, markers map[string]time.Time) error {
	tx, err := b.dbpool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // Rollback is a no-op if the transaction is already committed.

	if err := saveMarkers(ctx, database.New(tx), markers); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Close closes the pool.
func (b *PostgresBackend) Close() error {
	b.dbpool.Close()
	return nil
}

func loadMarkers(ctx context.Context, q database.Querier) (map[string]time.Time, error) {
	rows, err := q.ListSyncMarkers(ctx)
	if err != nil {
		return nil, err
	}
	markers := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		if !row.SyncedAt.Valid {
			continue
		}
		markers[row.Repo] = row.SyncedAt.Time
	}
	return markers, nil
}

func saveMarkers(ctx context.Context, q database.Querier, markers map[string]time.Time) error {
	if err := q.DeleteAllSyncMarkers(ctx); err != nil {
		return err
	}
	if len(markers) == 0 {
		return nil
	}
	n, err := q.CreateSyncMarkers(ctx, prepareMarkerBulkInsert(markers))
	if err != nil {
		return err
	}
	if int(n) != len(markers) {
		return fmt.Errorf("inserted %d of %d markers", n, len(markers))
	}
	return nil
}

func prepareMarkerBulkInsert(markers map[string]time.Time) []database.CreateSyncMarkersParams {
	params := make([]database.CreateSyncMarkersParams, 0, len(markers))
	for repo, t := range markers {
		params = append(params, database.CreateSyncMarkersParams{
			Repo:     repo,
			SyncedAt: pgtype.Timestamptz{Time: t, Valid: true},
		})
	}
	sort.Slice(params, func(i, j int) bool { return params[i].Repo < params[j].Repo })
	return params
}
