// Package cache provides the in-process cache for public catalog read models.
//
// The cache is a fixed registry of named regions, not a general cache:
//
// - Closed region set ("categories", "hero"), rejected at startup otherwise
// - Fixed keys per region (the literal "public"), so no key explosion
// - Per-region TTL and maximum entry count, immutable after construction
// - LRU eviction when a region is full, lazy expiry on access
// - Read-through slots with single-flight loading
// - Generation-guarded puts so invalidation wins over in-flight loads
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	// Build the registry once at startup
//	registry, err := cache.NewRegistry(cache.DefaultRegions())
//	if err != nil {
//		return err
//	}
//	defer registry.Close()
//
//	// Bind a typed slot to the fixed key
//	categories := cache.MustNewSlot[[]catalog.Category](registry.Categories(), cache.FixedKey)
//
//	// Read through
//	list, err := categories.GetOrLoad(ctx, func(ctx context.Context) ([]catalog.Category, error) {
//		return repo.ListActive(ctx)
//	})
//
//	// After a committed write
//	categories.Invalidate()
//
// # Consistency
//
// A write must call Invalidate after its commit and before it reports
// success. Invalidate bumps the key's generation; a load that observed an
// older generation never stores its result. Together these give
// write-then-read consistency inside one process.
//
// # Metrics
//
// The stores export Prometheus metrics:
//
//   - catalog_cache_hits_total{region} - Cache hits
//   - catalog_cache_misses_total{region} - Cache misses (absent or expired)
//   - catalog_cache_evictions_total{region,reason} - Removed entries
//   - catalog_cache_entries{region} - Current entries
//   - catalog_cache_loads_total{region} - Read-through loads
//   - catalog_cache_load_errors_total{region} - Failed loads
//   - catalog_cache_stale_puts_dropped_total{region} - Loads discarded after invalidation
package cache
