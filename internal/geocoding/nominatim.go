package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/UnknownOlympus/dealer-geocoder/internal/models"
	"golang.org/x/time/rate"
)

const (
	// NominatimBaseURL is the public OpenStreetMap Nominatim search endpoint.
	NominatimBaseURL = "https://nominatim.openstreetmap.org/search"
	// DefaultUserAgent identifies this client, as required by the Nominatim usage policy.
	DefaultUserAgent = "Dealer-Geocoder/1.0 (https://github.com/UnknownOlympus/dealer-geocoder)"
	// DefaultCountry restricts postal code lookups.
	DefaultCountry = "US"
)

// NominatimProvider implements the Provider interface using OpenStreetMap's Nominatim API.
// This is a free geocoding service with usage limits (1 request/second for fair use).
type NominatimProvider struct {
	client  HTTPClient    // HTTP client for making requests
	baseURL string        // Base URL for the Nominatim API
	country string        // Country every lookup is restricted to
	limiter *rate.Limiter // Absolute request rate cap
	log     *slog.Logger  // Logger for logging operations
	// userAgent is required by Nominatim usage policy
	userAgent string
}

// NominatimOptions tunes a NominatimProvider. Zero values fall back to defaults.
type NominatimOptions struct {
	BaseURL   string
	Country   string
	UserAgent string
	Timeout   time.Duration
	Limiter   *rate.Limiter
}

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// nominatimResponse represents one candidate in the JSON response from Nominatim API.
type nominatimResponse struct {
	Lat string `json:"lat"` // Latitude as string
	Lon string `json:"lon"` // Longitude as string
}

// Common errors for Nominatim provider.
var (
	ErrEmptyPostalCode        = errors.New("postal code is empty")
	ErrNominatimEmptyResponse = errors.New("nominatim API returned empty response")
	ErrNominatimMissingCoords = errors.New("nominatim API returned a candidate without coordinates")
	ErrNominatimInvalidCoords = errors.New("nominatim API returned invalid coordinates")
	ErrNominatimBadStatus     = errors.New("nominatim API returned status")
)

// NewNominatimProvider creates a new Nominatim geocoding provider with its own HTTP client.
func NewNominatimProvider(opts NominatimOptions, log *slog.Logger) *NominatimProvider {
	const defaultTimeout = 10 * time.Second

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return NewNominatimProviderWithClient(&http.Client{Timeout: timeout}, opts, log)
}

// NewNominatimProviderWithClient creates a Nominatim provider with a custom HTTP client.
// Useful for testing with mocked HTTP clients.
func NewNominatimProviderWithClient(client HTTPClient, opts NominatimOptions, log *slog.Logger) *NominatimProvider {
	provider := &NominatimProvider{
		client:    client,
		baseURL:   opts.BaseURL,
		country:   opts.Country,
		limiter:   opts.Limiter,
		log:       log,
		userAgent: opts.UserAgent,
	}
	if provider.baseURL == "" {
		provider.baseURL = NominatimBaseURL
	}
	if provider.country == "" {
		provider.country = DefaultCountry
	}
	if provider.userAgent == "" {
		provider.userAgent = DefaultUserAgent
	}
	if provider.limiter == nil {
		provider.limiter = rate.NewLimiter(rate.Inf, 0)
	}

	return provider
}

// Geocode resolves a postal code to coordinates using a structured Nominatim search
// restricted to the configured country. Only the top candidate is requested.
func (np *NominatimProvider) Geocode(ctx context.Context, postalCode string) (*models.Coordinates, error) {
	if postalCode == "" {
		return nil, ErrEmptyPostalCode
	}

	if err := np.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	np.log.DebugContext(ctx, "Geocoding using Nominatim", "postal_code", postalCode, "country", np.country)

	reqURL, err := url.Parse(np.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	query := reqURL.Query()
	query.Set("postalcode", postalCode)
	query.Set("country", np.country)
	query.Set("format", "json")
	query.Set("limit", "1") // Only need the top result
	reqURL.RawQuery = query.Encode()

	np.log.DebugContext(ctx, "Nominatim request URL", "url", reqURL.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set required headers per Nominatim usage policy
	req.Header.Set("User-Agent", np.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := np.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	np.log.DebugContext(ctx, "Nominatim raw response", "status", resp.StatusCode, "body", string(body))

	coords, err := ParseNominatimResponse(resp.StatusCode, body)
	if err != nil {
		return nil, err
	}

	np.log.DebugContext(ctx, "Nominatim found result",
		"postal_code", postalCode, "lat", coords.Latitude, "lon", coords.Longitude)

	return coords, nil
}

// ParseNominatimResponse turns a raw Nominatim search response into coordinates.
// It has no side effects: every failure (non-200 status, malformed body, no
// candidates, missing or non-numeric coordinates) is reported as an error.
func ParseNominatimResponse(statusCode int, body []byte) (*models.Coordinates, error) {
	if statusCode != http.StatusOK {
		return nil, fmt.Errorf("%w %d: %s", ErrNominatimBadStatus, statusCode, string(body))
	}

	var results []nominatimResponse
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}

	if len(results) == 0 {
		return nil, ErrNominatimEmptyResponse
	}

	first := results[0]
	if first.Lat == "" || first.Lon == "" {
		return nil, ErrNominatimMissingCoords
	}

	lat, err := parseCoordinate(first.Lat)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid latitude: %s", ErrNominatimInvalidCoords, first.Lat)
	}
	lon, err := parseCoordinate(first.Lon)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid longitude: %s", ErrNominatimInvalidCoords, first.Lon)
	}

	return &models.Coordinates{
		Latitude:  lat,
		Longitude: lon,
	}, nil
}

func parseCoordinate(value string) (float64, error) {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, strconv.ErrRange
	}

	return parsed, nil
}
