package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. DEALERGEO_STORAGE_CACHE_FILE.
const EnvPrefix = "DEALERGEO"

const maxPort = 65535

var (
	ErrInvalidSaveInterval = errors.New("save interval must be a positive integer")
	ErrInvalidRequestDelay = errors.New("request delay must not be negative")
	ErrInvalidPort         = errors.New("monitoring port must be between 0 and 65535")
	ErrMissingPath         = errors.New("artifact path must not be empty")
)

// Config holds the configuration settings for the dealer geocoder.
//
// Fields:
// - Env: The current environment (local, development, production).
// - Monitoring: The optional monitoring server.
// - Input: The dealer collection and the attribute holding the postal code.
// - Storage: The resolution cache and progress artifacts.
// - Output: The enriched dealer collection and the coordinates reference.
// - Provider: The geocoding provider and its transport settings.
// - Geocoder: Pacing and checkpoint cadence of the lookup loop.
// - Metrics: Where to dump metrics once the run ends.
type Config struct {
	Env        string           `mapstructure:"env"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Input      InputConfig      `mapstructure:"input"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Output     OutputConfig     `mapstructure:"output"`
	Provider   ProviderConfig   `mapstructure:"provider"`
	Geocoder   GeocoderConfig   `mapstructure:"geocoder"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// MonitoringConfig configures the health and metrics server. Port 0 disables it.
type MonitoringConfig struct {
	Port int `mapstructure:"port"`
}

type InputConfig struct {
	Path            string `mapstructure:"path"`              // Path is the dealer collection to enrich.
	PostalCodeField string `mapstructure:"postal_code_field"` // PostalCodeField names the postal code attribute.
}

type StorageConfig struct {
	CacheFile    string `mapstructure:"cache_file"`    // CacheFile holds resolved postal codes across runs.
	ProgressFile string `mapstructure:"progress_file"` // ProgressFile holds the latest progress snapshot.
}

type OutputConfig struct {
	DealersFile     string `mapstructure:"dealers_file"`     // DealersFile receives the annotated records.
	CoordinatesFile string `mapstructure:"coordinates_file"` // CoordinatesFile receives the postal code mapping.
}

// ProviderConfig selects and tunes the geocoding provider.
type ProviderConfig struct {
	Type      string        `mapstructure:"type"`       // Type is nominatim or google.
	BaseURL   string        `mapstructure:"base_url"`   // BaseURL overrides the provider endpoint.
	APIKey    string        `mapstructure:"api_key"`    // APIKey is required for Google.
	Country   string        `mapstructure:"country"`    // Country restricts postal code matches.
	UserAgent string        `mapstructure:"user_agent"` // UserAgent identifies the client to Nominatim.
	Timeout   time.Duration `mapstructure:"timeout"`    // Timeout bounds a single HTTP request.
	RateLimit float64       `mapstructure:"rate_limit"` // RateLimit caps requests per second, 0 for none.
}

type GeocoderConfig struct {
	RequestDelayMs int `mapstructure:"request_delay_ms"` // RequestDelayMs is the idle time between lookups.
	SaveInterval   int `mapstructure:"save_interval"`    // SaveInterval is the number of codes per checkpoint.
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"` // Textfile is written in the node exporter textfile format.
}

// RequestDelay returns the idle time between two consecutive lookups.
func (c GeocoderConfig) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelayMs) * time.Millisecond
}

// Load reads the configuration from, in increasing priority: defaults, an
// optional YAML file, a .env file, the environment and command line flags.
//
// Recognized flags: "config" (explicit YAML file), "input" and "env". Flags
// may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configFile := ""
	if flags != nil {
		if flag := flags.Lookup("config"); flag != nil {
			configFile = flag.Value.String()
		}
		for key, name := range map[string]string{"input.path": "input", "env": "env"} {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the values Load cannot enforce through types.
func (c *Config) Validate() error {
	if c.Geocoder.SaveInterval <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSaveInterval, c.Geocoder.SaveInterval)
	}
	if c.Geocoder.RequestDelayMs < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRequestDelay, c.Geocoder.RequestDelayMs)
	}
	if c.Monitoring.Port < 0 || c.Monitoring.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Monitoring.Port)
	}

	for name, path := range map[string]string{
		"input.path":              c.Input.Path,
		"storage.cache_file":      c.Storage.CacheFile,
		"storage.progress_file":   c.Storage.ProgressFile,
		"output.dealers_file":     c.Output.DealersFile,
		"output.coordinates_file": c.Output.CoordinatesFile,
	} {
		if path == "" {
			return fmt.Errorf("%w: %s", ErrMissingPath, name)
		}
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "production")
	v.SetDefault("monitoring.port", 0)
	v.SetDefault("input.path", "data/dealers.json")
	v.SetDefault("input.postal_code_field", "postalCode")
	v.SetDefault("storage.cache_file", "data/geocode-cache.json")
	v.SetDefault("storage.progress_file", "data/geocode-progress.json")
	v.SetDefault("output.dealers_file", "data/dealers-geocoded.json")
	v.SetDefault("output.coordinates_file", "data/postal-coordinates.json")
	v.SetDefault("provider.type", "nominatim")
	v.SetDefault("provider.base_url", "")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.country", "US")
	v.SetDefault("provider.user_agent", "")
	v.SetDefault("provider.timeout", "10s")
	v.SetDefault("provider.rate_limit", 1.0)
	v.SetDefault("geocoder.request_delay_ms", 1000)
	v.SetDefault("geocoder.save_interval", 10)
	v.SetDefault("metrics.textfile", "")
}
