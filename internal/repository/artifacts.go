package repository

import (
	"context"
	"fmt"

	"github.com/UnknownOlympus/dealer-geocoder/internal/dealers"
	"github.com/UnknownOlympus/dealer-geocoder/internal/models"
	"github.com/spf13/afero"
)

// LoadDealers reads and parses the dealer collection.
func (r *Repository) LoadDealers(ctx context.Context) ([]dealers.Record, error) {
	data, err := afero.ReadFile(r.fs, r.paths.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to read dealer collection: %w", err)
	}

	records, err := dealers.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dealer collection %s: %w", r.paths.Input, err)
	}
	r.log.InfoContext(ctx, "Dealer collection loaded", "path", r.paths.Input, "records", len(records))

	return records, nil
}

// WriteProgress replaces the progress snapshot.
func (r *Repository) WriteProgress(ctx context.Context, progress models.Progress) error {
	if err := r.writeJSON(r.paths.Progress, progress); err != nil {
		return fmt.Errorf("failed to write progress snapshot: %w", err)
	}
	r.log.DebugContext(ctx, "Progress snapshot written", "path", r.paths.Progress,
		"completed", progress.CompletedCount, "total", progress.TotalCount)

	return nil
}

// ClearProgress removes the progress snapshot, marking the run as cleanly finished.
func (r *Repository) ClearProgress(ctx context.Context) error {
	if err := r.removeFile(r.paths.Progress); err != nil {
		return fmt.Errorf("failed to clear progress snapshot: %w", err)
	}
	r.log.DebugContext(ctx, "Progress snapshot removed", "path", r.paths.Progress)

	return nil
}

// WriteDealers writes the annotated dealer collection.
func (r *Repository) WriteDealers(ctx context.Context, records []dealers.Record) error {
	if err := r.writeFile(r.paths.DealersOutput, dealers.Encode(records)); err != nil {
		return fmt.Errorf("failed to write dealers output: %w", err)
	}
	r.log.InfoContext(ctx, "Dealers output written", "path", r.paths.DealersOutput, "records", len(records))

	return nil
}

// WriteCoordinates writes the postal code to coordinates reference mapping.
func (r *Repository) WriteCoordinates(ctx context.Context, cache *Cache) error {
	if err := r.writeJSON(r.paths.CoordinatesOutput, cache.Snapshot()); err != nil {
		return fmt.Errorf("failed to write coordinates output: %w", err)
	}
	r.log.InfoContext(ctx, "Coordinates output written", "path", r.paths.CoordinatesOutput, "entries", cache.Len())

	return nil
}
