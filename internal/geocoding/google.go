package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/dealer-geocoder/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleProvider is a struct that holds the client for Google Maps API
// and a logger for logging purposes. It resolves postal codes through the
// Google Maps geocoding components filter.
type GoogleProvider struct {
	client  GoogleAPIClient // client is the Google Maps API client
	country string          // country restricts every lookup
	log     *slog.Logger    // log is the logger for logging operations
}

type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// ErrEmptyResponse is returned when the Google Maps API responds with an empty result.
var ErrEmptyResponse = errors.New("get empty response from Google Maps API")

// NewGoogleProvider initializes a new GoogleProvider with the given client, country and logger.
func NewGoogleProvider(client GoogleAPIClient, country string, log *slog.Logger) *GoogleProvider {
	if country == "" {
		country = DefaultCountry
	}

	return &GoogleProvider{client: client, country: country, log: log}
}

// googleRequest builds the components-only request for a postal code.
func (gp *GoogleProvider) googleRequest(postalCode string) *maps.GeocodingRequest {
	return &maps.GeocodingRequest{
		Components: map[maps.Component]string{
			maps.ComponentPostalCode: postalCode,
			maps.ComponentCountry:    gp.country,
		},
	}
}

// Geocode takes a context and a postal code as input, and returns the coordinates of
// the first match restricted to the provider's country. If the postal code cannot be
// geocoded or if the response is empty, it returns an appropriate error.
func (gp *GoogleProvider) Geocode(ctx context.Context, postalCode string) (*models.Coordinates, error) {
	if postalCode == "" {
		return nil, ErrEmptyPostalCode
	}

	gp.log.DebugContext(ctx, "Geocoding using Google Maps", "postal_code", postalCode, "country", gp.country)

	geocodeResponse, err := gp.client.Geocode(ctx, gp.googleRequest(postalCode))
	if err != nil {
		return nil, fmt.Errorf("failed to geocode postal code: %w", err)
	}

	if len(geocodeResponse) == 0 {
		return nil, ErrEmptyResponse
	}
	coords := geocodeResponse[0].Geometry.Location

	return &models.Coordinates{Latitude: coords.Lat, Longitude: coords.Lng}, nil
}
