package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlReports = `
CREATE TABLE IF NOT EXISTS reports (
    id          TEXT         PRIMARY KEY,
    title       TEXT         NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    result      JSONB        NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_created_at
    ON reports (created_at DESC);

CREATE INDEX IF NOT EXISTS idx_reports_result_term_map
    ON reports USING GIN ((result -> 'termMap'));
`

// Migrate ensures all required tables and indexes exist. It is idempotent
// and safe to run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlReports); err != nil {
		return fmt.Errorf("migrate reports schema: %w", err)
	}
	return nil
}
