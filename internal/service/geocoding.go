package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/dealer-geocoder/internal/dealers"
	"github.com/UnknownOlympus/dealer-geocoder/internal/geocoding"
	"github.com/UnknownOlympus/dealer-geocoder/internal/metrics"
	"github.com/UnknownOlympus/dealer-geocoder/internal/models"
	"github.com/UnknownOlympus/dealer-geocoder/internal/repository"
)

const defaultSaveInterval = 10

// ErrInterrupted is returned by Run when the context is cancelled before every
// pending postal code was processed. The cache has been persisted by then.
var ErrInterrupted = errors.New("geocoding interrupted")

// Options tunes the lookup loop.
type Options struct {
	RequestDelay    time.Duration // Idle time between two consecutive lookups.
	SaveInterval    int           // Number of processed codes between checkpoints.
	PostalCodeField string        // Record attribute holding the postal code.
}

// Summary describes the outcome of a single run.
type Summary struct {
	Records      int           // Dealer records in the input.
	PostalCodes  int           // Distinct postal codes across the records.
	CachedBefore int           // Codes already resolved when the run started.
	Resolved     int           // Codes resolved by this run.
	Failed       int           // Codes whose lookup failed in this run.
	Lookups      int           // Provider calls issued.
	Duration     time.Duration // Wall time of the run.
}

// GeocodingService enriches dealer records with the coordinates of their
// postal codes. Lookups are strictly sequential.
type GeocodingService struct {
	log             *slog.Logger         // Logger for logging service activities
	repo            repository.Interface // Storage of dealers, cache and artifacts
	provider        geocoding.Provider   // Geocoding provider for external geocoding services
	providerName    string               // Name of the provider for metrics labeling
	metrics         *metrics.Metrics     // Metrics for tracking service performance
	delay           time.Duration
	saveInterval    int
	postalCodeField string

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// checkpointFunc persists the cache and reports progress after processed
// pending codes, of which succeeded resolved and failed did not.
type checkpointFunc func(ctx context.Context, processed, succeeded, failed int) error

// NewGeocodingService creates a new instance of GeocodingService.
// A zero SaveInterval falls back to 10 and an empty PostalCodeField to "postalCode".
func NewGeocodingService(
	log *slog.Logger,
	repo repository.Interface,
	provider geocoding.Provider,
	providerName string,
	metrics *metrics.Metrics,
	opts Options,
) *GeocodingService {
	if opts.SaveInterval <= 0 {
		opts.SaveInterval = defaultSaveInterval
	}
	if opts.PostalCodeField == "" {
		opts.PostalCodeField = dealers.DefaultPostalCodeField
	}

	return &GeocodingService{
		log:             log,
		repo:            repo,
		provider:        provider,
		providerName:    providerName,
		metrics:         metrics,
		delay:           opts.RequestDelay,
		saveInterval:    opts.SaveInterval,
		postalCodeField: opts.PostalCodeField,
		sleep:           sleepContext,
		now:             time.Now,
	}
}

// Run executes one enrichment pass: load the dealers and the cache, resolve
// every uncached postal code, then write the annotated dealers and the
// coordinates mapping and remove the progress snapshot.
//
// On interruption the cache and progress are checkpointed, the final
// artifacts are skipped, and an error wrapping ErrInterrupted is returned.
func (gs *GeocodingService) Run(ctx context.Context) (Summary, error) {
	start := gs.now()

	records, err := gs.repo.LoadDealers(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load dealers: %w", err)
	}

	codes := dealers.PostalCodes(records, gs.postalCodeField)
	cache := gs.repo.LoadCache(ctx)
	pending := cache.Missing(codes)

	summary := Summary{
		Records:      len(records),
		PostalCodes:  len(codes),
		CachedBefore: cache.CountResolved(codes),
	}
	gs.metrics.CacheEntries.Set(float64(cache.Len()))
	gs.metrics.PendingPostalCodes.Set(float64(len(pending)))

	gs.log.InfoContext(ctx, "Geocoding started",
		"records", summary.Records,
		"postal_codes", summary.PostalCodes,
		"cached", summary.CachedBefore,
		"pending", len(pending),
		"provider", gs.providerName,
	)

	checkpoint := func(ctx context.Context, processed, succeeded, failed int) error {
		if err := gs.repo.SaveCache(ctx, cache); err != nil {
			return err
		}

		progress := models.NewProgress(
			summary.CachedBefore+processed,
			summary.PostalCodes,
			summary.CachedBefore+succeeded,
			failed,
			gs.now(),
		)
		if err := gs.repo.WriteProgress(ctx, progress); err != nil {
			return err
		}

		gs.metrics.Checkpoints.Inc()
		gs.log.InfoContext(ctx, "Progress saved",
			"completed", progress.CompletedCount,
			"total", progress.TotalCount,
			"percentage", progress.Percentage,
		)

		return nil
	}

	loopErr := gs.resolvePending(ctx, pending, cache, &summary, checkpoint)
	summary.Duration = gs.now().Sub(start)
	if loopErr != nil {
		return summary, loopErr
	}

	annotated, err := dealers.Annotate(records, gs.postalCodeField, cache.Get)
	if err != nil {
		return summary, fmt.Errorf("failed to annotate dealers: %w", err)
	}
	if err = gs.repo.WriteDealers(ctx, annotated); err != nil {
		return summary, err
	}
	if err = gs.repo.WriteCoordinates(ctx, cache); err != nil {
		return summary, err
	}
	if err = gs.repo.ClearProgress(ctx); err != nil {
		return summary, err
	}

	summary.Duration = gs.now().Sub(start)
	gs.log.InfoContext(ctx, "Geocoding finished",
		"records", summary.Records,
		"postal_codes", summary.PostalCodes,
		"cached", summary.CachedBefore,
		"resolved", summary.Resolved,
		"failed", summary.Failed,
		"lookups", summary.Lookups,
		"duration", summary.Duration,
	)

	return summary, nil
}

// resolvePending looks up every pending code in order, storing successes in
// the cache. The checkpoint runs after every saveInterval processed codes and
// once more when the loop ends, including on interruption.
func (gs *GeocodingService) resolvePending(
	ctx context.Context,
	pending []string,
	cache *repository.Cache,
	summary *Summary,
	checkpoint checkpointFunc,
) error {
	processed := 0
	interrupted := false

	for idx, code := range pending {
		if ctx.Err() != nil {
			interrupted = true
			break
		}

		coords := gs.resolve(ctx, code)
		summary.Lookups++
		if coords == nil && ctx.Err() != nil {
			// The lookup was cut short, so it is neither a success nor a failure.
			interrupted = true
			break
		}

		processed++
		if coords != nil {
			cache.Put(code, *coords)
			summary.Resolved++
		} else {
			summary.Failed++
		}
		gs.metrics.CacheEntries.Set(float64(cache.Len()))
		gs.metrics.PendingPostalCodes.Set(float64(len(pending) - processed))

		if processed%gs.saveInterval == 0 {
			if err := checkpoint(ctx, processed, summary.Resolved, summary.Failed); err != nil {
				return fmt.Errorf("failed to checkpoint progress: %w", err)
			}
		}

		if idx < len(pending)-1 {
			if err := gs.sleep(ctx, gs.delay); err != nil {
				interrupted = true
				break
			}
		}
	}

	if err := checkpoint(context.WithoutCancel(ctx), processed, summary.Resolved, summary.Failed); err != nil {
		return fmt.Errorf("failed to checkpoint progress: %w", err)
	}

	if interrupted {
		gs.log.WarnContext(ctx, "Geocoding interrupted, re-run to resume from the saved cache",
			"processed", processed,
			"remaining", len(pending)-processed,
		)
		return fmt.Errorf("%w after %d of %d pending postal codes", ErrInterrupted, processed, len(pending))
	}

	return nil
}

// resolve performs a single lookup. Every provider error is logged, counted
// and turned into a nil result.
func (gs *GeocodingService) resolve(ctx context.Context, code string) *models.Coordinates {
	gs.log.DebugContext(ctx, "Geocoding postal code", "postal_code", code)

	startTime := time.Now()
	coords, err := gs.provider.Geocode(ctx, code)
	duration := time.Since(startTime).Seconds()
	gs.metrics.RequestSeconds.WithLabelValues(gs.providerName).Observe(duration)

	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		gs.log.WarnContext(ctx, "Failed to geocode postal code", "postal_code", code, "error", err)
		gs.metrics.LookupsTotal.WithLabelValues(metrics.StatusFailure).Inc()
		gs.metrics.ProviderErrors.Inc()
		return nil
	}
	if coords == nil {
		gs.log.WarnContext(ctx, "Provider returned no coordinates", "postal_code", code)
		gs.metrics.LookupsTotal.WithLabelValues(metrics.StatusFailure).Inc()
		return nil
	}

	gs.metrics.LookupsTotal.WithLabelValues(metrics.StatusSuccess).Inc()
	gs.log.DebugContext(ctx, "Postal code geocoded",
		"postal_code", code,
		"latitude", coords.Latitude,
		"longitude", coords.Longitude,
	)

	return coords
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
