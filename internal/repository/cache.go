package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/UnknownOlympus/dealer-geocoder/internal/models"
	"github.com/spf13/afero"
)

// Cache maps postal codes to resolved coordinates. Only successful
// resolutions are stored; a code that failed is simply absent.
type Cache struct {
	entries map[string]models.Coordinates
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]models.Coordinates)}
}

// Get returns the coordinates stored for postalCode.
func (c *Cache) Get(postalCode string) (models.Coordinates, bool) {
	coords, ok := c.entries[postalCode]
	return coords, ok
}

// Put stores coordinates for postalCode. Other entries are never touched.
func (c *Cache) Put(postalCode string, coords models.Coordinates) {
	if postalCode == "" {
		return
	}
	c.entries[postalCode] = coords
}

// Len returns the number of cached postal codes.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Missing returns the codes that have no cache entry, keeping their order.
func (c *Cache) Missing(codes []string) []string {
	missing := make([]string, 0, len(codes))
	for _, code := range codes {
		if _, ok := c.entries[code]; !ok {
			missing = append(missing, code)
		}
	}

	return missing
}

// Snapshot returns a copy of the cached entries.
func (c *Cache) Snapshot() map[string]models.Coordinates {
	out := make(map[string]models.Coordinates, len(c.entries))
	for code, coords := range c.entries {
		out[code] = coords
	}

	return out
}

// CountResolved returns how many of codes have a cache entry.
func (c *Cache) CountResolved(codes []string) int {
	return len(codes) - len(c.Missing(codes))
}

// MarshalJSON encodes the cache as an object keyed by postal code.
func (c *Cache) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.entries)
}

// cacheEntry is the on-disk form of an entry. Pointer fields tell a missing
// coordinate apart from a zero one.
type cacheEntry struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// UnmarshalJSON decodes an object keyed by postal code. Null entries and
// entries lacking either coordinate are treated as unresolved and dropped.
func (c *Cache) UnmarshalJSON(data []byte) error {
	var raw map[string]*cacheEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return errors.New("cache must be a JSON object")
	}

	entries := make(map[string]models.Coordinates, len(raw))
	for code, entry := range raw {
		if code == "" || entry == nil || entry.Latitude == nil || entry.Longitude == nil {
			continue
		}
		entries[code] = models.Coordinates{Latitude: *entry.Latitude, Longitude: *entry.Longitude}
	}
	c.entries = entries

	return nil
}

// LoadCache reads the persisted cache. A missing or unreadable cache is
// never fatal: the run continues with an empty cache.
func (r *Repository) LoadCache(ctx context.Context) *Cache {
	data, err := afero.ReadFile(r.fs, r.paths.Cache)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.log.InfoContext(ctx, "No geocode cache found, starting with an empty one", "path", r.paths.Cache)
		} else {
			r.log.WarnContext(ctx, "Failed to read geocode cache, starting with an empty one",
				"path", r.paths.Cache, "error", err)
		}
		return NewCache()
	}

	cache := NewCache()
	if err = json.Unmarshal(data, cache); err != nil {
		r.log.WarnContext(ctx, "Failed to parse geocode cache, starting with an empty one",
			"path", r.paths.Cache, "error", err)
		return NewCache()
	}

	r.log.InfoContext(ctx, "Geocode cache loaded", "path", r.paths.Cache, "entries", cache.Len())

	return cache
}

// SaveCache persists the whole cache, replacing the previous snapshot.
func (r *Repository) SaveCache(ctx context.Context, cache *Cache) error {
	if err := r.writeJSON(r.paths.Cache, cache); err != nil {
		return fmt.Errorf("failed to save geocode cache: %w", err)
	}
	r.log.DebugContext(ctx, "Geocode cache saved", "path", r.paths.Cache, "entries", cache.Len())

	return nil
}
