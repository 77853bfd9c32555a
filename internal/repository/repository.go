package repository

import (
	"context"
	"log/slog"

	"github.com/UnknownOlympus/dealer-geocoder/internal/dealers"
	"github.com/UnknownOlympus/dealer-geocoder/internal/models"
	"github.com/spf13/afero"
)

// Paths locates every artifact the pipeline reads or writes.
type Paths struct {
	Input             string // Input is the dealer collection to enrich.
	Cache             string // Cache is the persisted postal code to coordinates mapping.
	Progress          string // Progress is the in-progress snapshot, removed on clean completion.
	DealersOutput     string // DealersOutput receives the annotated dealer collection.
	CoordinatesOutput string // CoordinatesOutput receives the postal code to coordinates mapping.
}

// Repository stores pipeline artifacts on a filesystem.
type Repository struct {
	fs    afero.Fs
	paths Paths
	log   *slog.Logger
}

// Interface is the storage contract of the enrichment pipeline.
type Interface interface {
	LoadDealers(ctx context.Context) ([]dealers.Record, error)
	LoadCache(ctx context.Context) *Cache
	SaveCache(ctx context.Context, cache *Cache) error
	WriteProgress(ctx context.Context, progress models.Progress) error
	ClearProgress(ctx context.Context) error
	WriteDealers(ctx context.Context, records []dealers.Record) error
	WriteCoordinates(ctx context.Context, cache *Cache) error
}

// NewRepository creates a new instance of Repository on the provided filesystem.
// It returns a pointer to the newly created Repository.
func NewRepository(fs afero.Fs, paths Paths, log *slog.Logger) *Repository {
	return &Repository{fs: fs, paths: paths, log: log}
}
