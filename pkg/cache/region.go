package cache

import (
	"errors"
	"fmt"
	"time"
)

// Region names a cache partition. The set of regions is closed.
type Region string

const (
	// RegionCategories holds the public category list.
	RegionCategories Region = "categories"

	// RegionHero holds the public hero banner settings.
	RegionHero Region = "hero"
)

// FixedKey is the only key used by the public read models.
const FixedKey = "public"

// Defaults for every region.
const (
	DefaultTTL        = 5 * time.Minute
	DefaultMaxEntries = 10
)

var (
	// ErrUnknownRegion is returned when a region name is outside the declared set.
	ErrUnknownRegion = errors.New("unknown cache region")

	// ErrInvalidRegionConfig is returned for a missing or non-positive TTL or size.
	ErrInvalidRegionConfig = errors.New("invalid cache region config")
)

// Regions returns the closed set of regions in declaration order.
func Regions() []Region {
	return []Region{RegionCategories, RegionHero}
}

// ParseRegion converts a name into a Region, rejecting anything outside the set.
func ParseRegion(name string) (Region, error) {
	for _, r := range Regions() {
		if string(r) == name {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRegion, name)
}

// RegionConfig is the immutable policy of a single region.
type RegionConfig struct {
	// TTL is the maximum age of an entry. Entries at or past it read as absent.
	TTL time.Duration

	// MaxEntries bounds the number of entries held at once.
	MaxEntries int

	// Keys is the declared key set. Put rejects any other key.
	Keys []string

	// SweepInterval enables background removal of expired entries (0 disables).
	SweepInterval time.Duration
}

// DefaultRegions returns the production region table.
func DefaultRegions() map[Region]RegionConfig {
	return map[Region]RegionConfig{
		RegionCategories: {
			TTL:           DefaultTTL,
			MaxEntries:    DefaultMaxEntries,
			Keys:          []string{FixedKey},
			SweepInterval: time.Minute,
		},
		RegionHero: {
			TTL:           DefaultTTL,
			MaxEntries:    DefaultMaxEntries,
			Keys:          []string{FixedKey},
			SweepInterval: time.Minute,
		},
	}
}

func (c RegionConfig) validate(region Region) error {
	if c.TTL <= 0 {
		return fmt.Errorf("%w: region %q ttl must be > 0 (got %s)", ErrInvalidRegionConfig, region, c.TTL)
	}
	if c.MaxEntries <= 0 {
		return fmt.Errorf("%w: region %q max entries must be > 0 (got %d)", ErrInvalidRegionConfig, region, c.MaxEntries)
	}
	if len(c.Keys) == 0 {
		return fmt.Errorf("%w: region %q declares no keys", ErrInvalidRegionConfig, region)
	}
	return nil
}
