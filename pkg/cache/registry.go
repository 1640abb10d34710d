package cache

import (
	"fmt"
	"sort"
)

// Registry owns one Store per declared region.
//
// It is built once at process start and passed to every component that reads
// through or invalidates the cache. Construction fails if the configuration
// names a region outside the closed set or leaves one out.
type Registry struct {
	stores map[Region]*Store
}

// NewRegistry validates cfg and creates a store per region.
func NewRegistry(cfg map[Region]RegionConfig, opts ...Option) (*Registry, error) {
	for name := range cfg {
		if _, err := ParseRegion(string(name)); err != nil {
			return nil, err
		}
	}

	stores := make(map[Region]*Store, len(cfg))
	for _, region := range Regions() {
		rc, ok := cfg[region]
		if !ok {
			return nil, fmt.Errorf("%w: region %q not configured", ErrInvalidRegionConfig, region)
		}
		if err := rc.validate(region); err != nil {
			return nil, err
		}
	}
	for _, region := range Regions() {
		stores[region] = NewStore(region, cfg[region], opts...)
	}

	return &Registry{stores: stores}, nil
}

// MustNewRegistry is like NewRegistry but panics on error. Intended for tests
// and static configuration.
func MustNewRegistry(cfg map[Region]RegionConfig, opts ...Option) *Registry {
	r, err := NewRegistry(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Categories returns the store for the public category list.
func (r *Registry) Categories() *Store {
	return r.stores[RegionCategories]
}

// Hero returns the store for the public hero settings.
func (r *Registry) Hero() *Store {
	return r.stores[RegionHero]
}

// Lookup resolves a region by name. It exists for diagnostics; read and write
// paths use the typed accessors.
func (r *Registry) Lookup(name string) (*Store, error) {
	region, err := ParseRegion(name)
	if err != nil {
		return nil, err
	}
	return r.stores[region], nil
}

// Stats returns a snapshot for every region, ordered by region name.
func (r *Registry) Stats() []Stats {
	out := make([]Stats, 0, len(r.stores))
	for _, s := range r.stores {
		out = append(out, s.Stats())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Region < out[j].Region })
	return out
}

// InvalidateAll empties every region.
func (r *Registry) InvalidateAll() {
	for _, s := range r.stores {
		s.InvalidateAll()
	}
}

// Close stops all background sweepers.
func (r *Registry) Close() {
	for _, s := range r.stores {
		s.Close()
	}
}
