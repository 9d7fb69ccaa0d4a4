package geocode

import (
	"context"
	"errors"
	"strings"

	"github.com/gestione-tecnici/backend/internal/models"
)

var ErrNotFound = errors.New("geocode not found")

// Geocoder resolves a freeform street address to a coordinate. Implementations
// must not be called faster than one request per second; the Nominatim client
// enforces this itself, batch importers relying on other implementations must
// serialize calls with an explicit delay.
type Geocoder interface {
	Geocode(ctx context.Context, address string, city string) (models.Coordinate, error)
}

func BuildQuery(address string, city string) string {
	address = strings.TrimSpace(address)
	city = strings.TrimSpace(city)
	parts := []string{}
	if address != "" {
		parts = append(parts, address)
	}
	if city != "" {
		parts = append(parts, city)
	}
	return strings.Join(parts, ", ")
}

func ShouldGeocode(c models.Customer, force bool) bool {
	if force {
		return true
	}
	return !c.HasCoordinates()
}
