package repository_test

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/dealer-geocoder/internal/dealers"
	"github.com/UnknownOlympus/dealer-geocoder/internal/models"
	"github.com/UnknownOlympus/dealer-geocoder/internal/repository"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPaths = repository.Paths{
	Input:             "/data/dealers.json",
	Cache:             "/data/cache/geocode-cache.json",
	Progress:          "/data/cache/geocode-progress.json",
	DealersOutput:     "/data/out/dealers-with-coordinates.json",
	CoordinatesOutput: "/data/out/postal-code-coordinates.json",
}

func newMemRepo(t *testing.T) (*repository.Repository, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return repository.NewRepository(fs, testPaths, slog.Default()), fs
}

func TestLoadDealers(t *testing.T) {
	ctx := t.Context()

	t.Run("success", func(t *testing.T) {
		repo, fs := newMemRepo(t)
		require.NoError(t, afero.WriteFile(fs, testPaths.Input,
			[]byte(`[{"name":"A","postalCode":"12345"},{"name":"B"}]`), 0o644))

		records, err := repo.LoadDealers(ctx)

		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("missing input", func(t *testing.T) {
		repo, _ := newMemRepo(t)

		records, err := repo.LoadDealers(ctx)

		require.Error(t, err)
		require.ErrorContains(t, err, "failed to read dealer collection")
		assert.Nil(t, records)
	})

	t.Run("malformed input", func(t *testing.T) {
		repo, fs := newMemRepo(t)
		require.NoError(t, afero.WriteFile(fs, testPaths.Input, []byte(`{"name":"A"}`), 0o644))

		records, err := repo.LoadDealers(ctx)

		require.ErrorIs(t, err, dealers.ErrNotArray)
		assert.Nil(t, records)
	})
}

func TestLoadCache(t *testing.T) {
	ctx := t.Context()

	t.Run("missing cache yields empty cache", func(t *testing.T) {
		repo, _ := newMemRepo(t)

		cache := repo.LoadCache(ctx)

		require.NotNil(t, cache)
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("corrupted cache yields empty cache", func(t *testing.T) {
		repo, fs := newMemRepo(t)
		require.NoError(t, afero.WriteFile(fs, testPaths.Cache, []byte(`{"12345": {"latitude":`), 0o644))

		cache := repo.LoadCache(ctx)

		require.NotNil(t, cache)
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("wrong shape yields empty cache", func(t *testing.T) {
		repo, fs := newMemRepo(t)
		require.NoError(t, afero.WriteFile(fs, testPaths.Cache, []byte(`["12345"]`), 0o644))

		cache := repo.LoadCache(ctx)

		assert.Equal(t, 0, cache.Len())
	})

	t.Run("null entries are treated as unresolved", func(t *testing.T) {
		repo, fs := newMemRepo(t)
		require.NoError(t, afero.WriteFile(fs, testPaths.Cache,
			[]byte(`{"12345":{"latitude":40,"longitude":-75},"99999":null}`), 0o644))

		cache := repo.LoadCache(ctx)

		assert.Equal(t, 1, cache.Len())
		coords, ok := cache.Get("12345")
		assert.True(t, ok)
		assert.Equal(t, models.Coordinates{Latitude: 40, Longitude: -75}, coords)
		_, ok = cache.Get("99999")
		assert.False(t, ok)
	})

	t.Run("incomplete entries are treated as unresolved", func(t *testing.T) {
		repo, fs := newMemRepo(t)
		require.NoError(t, afero.WriteFile(fs, testPaths.Cache, []byte(`{
			"11111":{},
			"22222":{"latitude":40},
			"33333":{"longitude":-75},
			"44444":{"latitude":0,"longitude":0}
		}`), 0o644))

		cache := repo.LoadCache(ctx)

		assert.Equal(t, []string{"11111", "22222", "33333"}, cache.Missing([]string{"11111", "22222", "33333", "44444"}))
		coords, ok := cache.Get("44444")
		assert.True(t, ok)
		assert.Equal(t, models.Coordinates{}, coords)
	})
}

func TestSaveCache_RoundTrip(t *testing.T) {
	ctx := t.Context()
	repo, fs := newMemRepo(t)

	cache := repository.NewCache()
	cache.Put("19103", models.Coordinates{Latitude: 39.9526, Longitude: -75.1652})
	cache.Put("02110", models.Coordinates{Latitude: 42.3601, Longitude: -71.0589})

	require.NoError(t, repo.SaveCache(ctx, cache))

	data, err := afero.ReadFile(fs, testPaths.Cache)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"02110":{"latitude":42.3601,"longitude":-71.0589},"19103":{"latitude":39.9526,"longitude":-75.1652}}`,
		string(data))
	assert.Contains(t, string(data), "\n  \"02110\"", "cache file should be indented")

	loaded := repo.LoadCache(ctx)
	assert.Equal(t, 2, loaded.Len())

	// no temporary files are left next to the cache
	entries, err := afero.ReadDir(fs, filepath.Dir(testPaths.Cache))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(testPaths.Cache), entries[0].Name())
}

func TestSaveCache_ReadOnlyFs(t *testing.T) {
	repo := repository.NewRepository(afero.NewReadOnlyFs(afero.NewMemMapFs()), testPaths, slog.Default())

	err := repo.SaveCache(t.Context(), repository.NewCache())

	require.Error(t, err)
	require.ErrorContains(t, err, "failed to save geocode cache")
}

func TestProgress(t *testing.T) {
	ctx := t.Context()
	repo, fs := newMemRepo(t)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, repo.WriteProgress(ctx, models.NewProgress(10, 40, 9, 1, now)))

	data, err := afero.ReadFile(fs, testPaths.Progress)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"completedCount": 10,
		"totalCount": 40,
		"successCount": 9,
		"failureCount": 1,
		"timestamp": "2025-01-02T03:04:05Z",
		"percentage": 25
	}`, string(data))

	require.NoError(t, repo.WriteProgress(ctx, models.NewProgress(20, 40, 19, 1, now)))
	data, err = afero.ReadFile(fs, testPaths.Progress)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"completedCount": 20`)

	require.NoError(t, repo.ClearProgress(ctx))
	exists, err := afero.Exists(fs, testPaths.Progress)
	require.NoError(t, err)
	assert.False(t, exists)

	// clearing twice is fine
	require.NoError(t, repo.ClearProgress(ctx))
}

func TestWriteOutputs(t *testing.T) {
	ctx := t.Context()
	repo, fs := newMemRepo(t)

	records := []dealers.Record{
		dealers.NewRecord([]byte(`{"name":"A","postalCode":"19103","coordinates":{"latitude":39.9526,"longitude":-75.1652}}`)),
		dealers.NewRecord([]byte(`{"name":"B","coordinates":null}`)),
	}
	require.NoError(t, repo.WriteDealers(ctx, records))

	data, err := afero.ReadFile(fs, testPaths.DealersOutput)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"name":"A","postalCode":"19103","coordinates":{"latitude":39.9526,"longitude":-75.1652}},
		{"name":"B","coordinates":null}
	]`, string(data))

	cache := repository.NewCache()
	cache.Put("19103", models.Coordinates{Latitude: 39.9526, Longitude: -75.1652})
	require.NoError(t, repo.WriteCoordinates(ctx, cache))

	data, err = afero.ReadFile(fs, testPaths.CoordinatesOutput)
	require.NoError(t, err)
	assert.JSONEq(t, `{"19103":{"latitude":39.9526,"longitude":-75.1652}}`, string(data))
}

func TestRepository_OsFs(t *testing.T) {
	defer filet.CleanUp(t)
	ctx := t.Context()

	dir := filet.TmpDir(t, "")
	paths := repository.Paths{
		Input:             filepath.Join(dir, "dealers.json"),
		Cache:             filepath.Join(dir, "cache.json"),
		Progress:          filepath.Join(dir, "progress.json"),
		DealersOutput:     filepath.Join(dir, "out", "dealers.json"),
		CoordinatesOutput: filepath.Join(dir, "out", "coordinates.json"),
	}
	filet.File(t, paths.Input, `[{"name":"A","postalCode":"12345"}]`)
	filet.File(t, paths.Cache, `{"12345":{"latitude":40,"longitude":-75}}`)

	repo := repository.NewRepository(afero.NewOsFs(), paths, slog.Default())

	records, err := repo.LoadDealers(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	cache := repo.LoadCache(ctx)
	require.Equal(t, 1, cache.Len())

	cache.Put("60601", models.Coordinates{Latitude: 41.8858, Longitude: -87.6181})
	require.NoError(t, repo.SaveCache(ctx, cache))
	assert.Equal(t, 2, repo.LoadCache(ctx).Len())

	require.NoError(t, repo.WriteDealers(ctx, records))
	assert.True(t, filet.Exists(t, paths.DealersOutput))
}
