package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/dealer-geocoder/internal/config"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "")
	flags.String("input", "", "")
	flags.String("env", "", "")
	require.NoError(t, flags.Parse(args))

	return flags
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, 0, cfg.Monitoring.Port)
	assert.Equal(t, "data/dealers.json", cfg.Input.Path)
	assert.Equal(t, "postalCode", cfg.Input.PostalCodeField)
	assert.Equal(t, "data/geocode-cache.json", cfg.Storage.CacheFile)
	assert.Equal(t, "data/geocode-progress.json", cfg.Storage.ProgressFile)
	assert.Equal(t, "data/dealers-geocoded.json", cfg.Output.DealersFile)
	assert.Equal(t, "data/postal-coordinates.json", cfg.Output.CoordinatesFile)
	assert.Equal(t, "nominatim", cfg.Provider.Type)
	assert.Equal(t, "US", cfg.Provider.Country)
	assert.Equal(t, 10*time.Second, cfg.Provider.Timeout)
	assert.InDelta(t, 1.0, cfg.Provider.RateLimit, 0)
	assert.Equal(t, 1000, cfg.Geocoder.RequestDelayMs)
	assert.Equal(t, time.Second, cfg.Geocoder.RequestDelay())
	assert.Equal(t, 10, cfg.Geocoder.SaveInterval)
	assert.Empty(t, cfg.Metrics.Textfile)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("DEALERGEO_ENV", "local")
	t.Setenv("DEALERGEO_MONITORING_PORT", "9100")
	t.Setenv("DEALERGEO_STORAGE_CACHE_FILE", "/tmp/cache.json")
	t.Setenv("DEALERGEO_PROVIDER_TYPE", "google")
	t.Setenv("DEALERGEO_PROVIDER_API_KEY", "testAPIKey")
	t.Setenv("DEALERGEO_PROVIDER_BASE_URL", "http://localhost:8088")
	t.Setenv("DEALERGEO_PROVIDER_TIMEOUT", "3s")
	t.Setenv("DEALERGEO_GEOCODER_REQUEST_DELAY_MS", "250")
	t.Setenv("DEALERGEO_GEOCODER_SAVE_INTERVAL", "5")

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, 9100, cfg.Monitoring.Port)
	assert.Equal(t, "/tmp/cache.json", cfg.Storage.CacheFile)
	assert.Equal(t, "google", cfg.Provider.Type)
	assert.Equal(t, "testAPIKey", cfg.Provider.APIKey)
	assert.Equal(t, "http://localhost:8088", cfg.Provider.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Geocoder.RequestDelay())
	assert.Equal(t, 5, cfg.Geocoder.SaveInterval)
}

func TestLoad_ConfigFileAndFlags(t *testing.T) {
	defer filet.CleanUp(t)

	dir := filet.TmpDir(t, "")
	path := filepath.Join(dir, "geocoder.yaml")
	filet.File(t, path, `
env: development
input:
  path: from-file.json
  postal_code_field: zip
output:
  dealers_file: out/dealers.json
geocoder:
  save_interval: 25
`)

	t.Run("file values", func(t *testing.T) {
		cfg, err := config.Load(newFlags(t, "--config", path))
		require.NoError(t, err)

		assert.Equal(t, "development", cfg.Env)
		assert.Equal(t, "from-file.json", cfg.Input.Path)
		assert.Equal(t, "zip", cfg.Input.PostalCodeField)
		assert.Equal(t, "out/dealers.json", cfg.Output.DealersFile)
		assert.Equal(t, 25, cfg.Geocoder.SaveInterval)
		assert.Equal(t, 1000, cfg.Geocoder.RequestDelayMs)
	})

	t.Run("flags override file", func(t *testing.T) {
		cfg, err := config.Load(newFlags(t, "--config", path, "--input", "from-flag.json", "--env", "local"))
		require.NoError(t, err)

		assert.Equal(t, "from-flag.json", cfg.Input.Path)
		assert.Equal(t, "local", cfg.Env)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := config.Load(newFlags(t, "--config", filepath.Join(dir, "absent.yaml")))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  error
	}{
		{name: "zero save interval", key: "DEALERGEO_GEOCODER_SAVE_INTERVAL", value: "0", want: config.ErrInvalidSaveInterval},
		{name: "negative delay", key: "DEALERGEO_GEOCODER_REQUEST_DELAY_MS", value: "-1", want: config.ErrInvalidRequestDelay},
		{name: "port out of range", key: "DEALERGEO_MONITORING_PORT", value: "70000", want: config.ErrInvalidPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := config.Load(nil)
			require.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("not a number", func(t *testing.T) {
		t.Setenv("DEALERGEO_GEOCODER_SAVE_INTERVAL", "error_value")

		_, err := config.Load(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode configuration")
	})
}

func TestValidate_MissingPath(t *testing.T) {
	cfg := config.Config{
		Input:    config.InputConfig{Path: "dealers.json"},
		Storage:  config.StorageConfig{CacheFile: "cache.json", ProgressFile: "progress.json"},
		Output:   config.OutputConfig{DealersFile: "out.json"},
		Geocoder: config.GeocoderConfig{SaveInterval: 10},
	}

	err := cfg.Validate()
	require.ErrorIs(t, err, config.ErrMissingPath)
	assert.Contains(t, err.Error(), "output.coordinates_file")
}
