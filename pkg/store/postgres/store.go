// Package postgres provides the PostgreSQL-backed [store.Store]
// implementation. Extraction artifacts are persisted as JSONB so the schema
// stays stable as the artifact grows and the HUD can query into the document
// server-side when needed.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adrpadua/battlereport-hud/pkg/store"
	"github.com/adrpadua/battlereport-hud/pkg/types"
)

const defaultListLimit = 50

var _ store.Store = (*Store)(nil)

// Store is the PostgreSQL-backed report store. It holds a single
// [pgxpool.Pool]; all operations are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore establishes a connection pool to the database at dsn, verifies
// connectivity, and runs [Migrate] to ensure the schema exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("report store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("report store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("report store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// SaveReport inserts or replaces the report.
func (s *Store) SaveReport(ctx context.Context, report store.Report) error {
	if report.ID == "" {
		return fmt.Errorf("report store: empty report ID")
	}
	payload, err := json.Marshal(report.Result)
	if err != nil {
		return fmt.Errorf("report store: encode result: %w", err)
	}

	createdAt := report.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO reports (id, title, created_at, result)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title, created_at = EXCLUDED.created_at, result = EXCLUDED.result`,
		report.ID, report.Title, createdAt, payload,
	)
	if err != nil {
		return fmt.Errorf("report store: save %q: %w", report.ID, err)
	}
	return nil
}

// GetReport loads one report by ID.
func (s *Store) GetReport(ctx context.Context, id string) (*store.Report, error) {
	var (
		report  store.Report
		payload []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, created_at, result FROM reports WHERE id = $1`, id,
	).Scan(&report.ID, &report.Title, &report.CreatedAt, &payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("report store: get %q: %w", id, err)
	}

	report.Result = &types.ExtractionResult{}
	if err := json.Unmarshal(payload, report.Result); err != nil {
		return nil, fmt.Errorf("report store: decode result for %q: %w", id, err)
	}
	return &report, nil
}

// ListReports returns up to limit summaries, newest first.
func (s *Store) ListReports(ctx context.Context, limit, offset int) ([]store.Summary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, title, created_at FROM reports
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("report store: list: %w", err)
	}

	summaries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Summary, error) {
		var sum store.Summary
		err := row.Scan(&sum.ID, &sum.Title, &sum.CreatedAt)
		return sum, err
	})
	if err != nil {
		return nil, fmt.Errorf("report store: collect rows: %w", err)
	}
	return summaries, nil
}
