// Package store defines the persistence interface for extraction results.
// The produced artifact of a pipeline run is stored whole so the HUD overlay
// can load a report's normalized transcript and mention indices in one read.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/adrpadua/battlereport-hud/pkg/types"
)

// ErrNotFound is returned by [Store.GetReport] when no report exists with
// the requested ID.
var ErrNotFound = errors.New("store: report not found")

// Report is one persisted extraction run.
type Report struct {
	// ID identifies the report, typically the source video ID.
	ID string `json:"id"`

	// Title is the human-readable report title.
	Title string `json:"title"`

	// CreatedAt is when the extraction run was stored.
	CreatedAt time.Time `json:"createdAt"`

	// Result is the full extraction artifact.
	Result *types.ExtractionResult `json:"result"`
}

// Summary is a listing row without the full artifact payload.
type Summary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists extraction results. Implementations must be safe for
// concurrent use.
type Store interface {
	// SaveReport inserts or replaces the report.
	SaveReport(ctx context.Context, report Report) error

	// GetReport loads one report by ID. Returns [ErrNotFound] when absent.
	GetReport(ctx context.Context, id string) (*Report, error)

	// ListReports returns up to limit summaries, newest first, skipping
	// offset rows. limit <= 0 selects a default page size.
	ListReports(ctx context.Context, limit, offset int) ([]Summary, error)

	// Close releases any underlying resources.
	Close()
}
