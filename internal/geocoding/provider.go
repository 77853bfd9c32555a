package geocoding

import (
	"context"

	"github.com/UnknownOlympus/dealer-geocoder/internal/models"
)

// Provider is an interface that defines a method for geocoding a postal code.
// The Geocode method takes a context and a postal code as input,
// and returns the corresponding coordinates and an error if any occurs.
type Provider interface {
	Geocode(ctx context.Context, postalCode string) (*models.Coordinates, error)
}
