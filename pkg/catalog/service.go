package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/samahstore/catalog/pkg/cache"
)

// Service serves the public read models through the cache and runs the
// write paths that invalidate it.
//
// Every write commits through its repository and then invalidates the
// affected region before returning, on success and on failure alike.
type Service struct {
	repos      Repositories
	categories *cache.Slot[[]Category]
	hero       *cache.Slot[HeroSettings]
	logger     zerolog.Logger
}

// NewService wires the repositories to the registry's fixed-key slots.
func NewService(repos Repositories, registry *cache.Registry, logger zerolog.Logger) (*Service, error) {
	if repos.Categories == nil || repos.Products == nil || repos.Hero == nil {
		return nil, fmt.Errorf("all repositories are required")
	}
	if registry == nil {
		return nil, fmt.Errorf("cache registry is required")
	}

	categories, err := cache.NewSlot[[]Category](registry.Categories(), cache.FixedKey)
	if err != nil {
		return nil, fmt.Errorf("bind categories slot: %w", err)
	}
	hero, err := cache.NewSlot[HeroSettings](registry.Hero(), cache.FixedKey)
	if err != nil {
		return nil, fmt.Errorf("bind hero slot: %w", err)
	}

	return &Service{
		repos:      repos,
		categories: categories,
		hero:       hero,
		logger:     logger,
	}, nil
}

// ListPublicCategories returns the active categories, read through the
// categories region. The returned slice is a copy and may be modified.
func (s *Service) ListPublicCategories(ctx context.Context) ([]Category, error) {
	list, err := s.categories.GetOrLoad(ctx, s.loadCategories)
	if err != nil {
		return nil, err
	}
	return slices.Clone(list), nil
}

// GetPublicHero returns the hero banner, read through the hero region.
// DefaultHero is returned (and cached) when none has been saved.
func (s *Service) GetPublicHero(ctx context.Context) (HeroSettings, error) {
	return s.hero.GetOrLoad(ctx, s.loadHero)
}

// GetProduct returns a product by slug. Product detail is not held in a
// cache region; the HTTP layer still serves it with a validator.
func (s *Service) GetProduct(ctx context.Context, slug string) (ProductDetail, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ProductDetail{}, fmt.Errorf("%w: product slug is required", ErrNotFound)
	}
	p, err := s.repos.Products.GetBySlug(ctx, slug)
	if err != nil {
		return ProductDetail{}, fmt.Errorf("get product %q: %w", slug, err)
	}
	return p, nil
}

// SearchProducts runs a product search. Results are never cached.
func (s *Service) SearchProducts(ctx context.Context, q Query) (Page[ProductSummary], error) {
	q = q.Normalize()
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return Page[ProductSummary]{}, fmt.Errorf("%w: minPrice is greater than maxPrice", ErrInvalid)
	}
	page, err := s.repos.Products.Search(ctx, q)
	if err != nil {
		return Page[ProductSummary]{}, fmt.Errorf("search products: %w", err)
	}
	return page, nil
}

// CreateCategory adds a category and invalidates the category list.
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (Category, error) {
	in, err := in.normalize()
	if err != nil {
		return Category{}, err
	}

	defer s.invalidateCategories("create")
	c, err := s.repos.Categories.Create(ctx, in)
	if err != nil {
		return Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

// UpdateCategory changes a category and invalidates the category list.
func (s *Service) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (Category, error) {
	in, err := in.normalize()
	if err != nil {
		return Category{}, err
	}

	defer s.invalidateCategories("update")
	c, err := s.repos.Categories.Update(ctx, id, in)
	if err != nil {
		return Category{}, fmt.Errorf("update category %d: %w", id, err)
	}
	return c, nil
}

// DeleteCategory removes a category and invalidates the category list.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	defer s.invalidateCategories("delete")
	if err := s.repos.Categories.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	return nil
}

// UpdateHero saves the hero banner and invalidates the hero region.
func (s *Service) UpdateHero(ctx context.Context, in HeroInput) (HeroSettings, error) {
	in, err := in.normalize()
	if err != nil {
		return HeroSettings{}, err
	}

	defer s.invalidateHero()
	h, err := s.repos.Hero.Save(ctx, in)
	if err != nil {
		return HeroSettings{}, fmt.Errorf("save hero: %w", err)
	}
	return h, nil
}

func (s *Service) loadCategories(ctx context.Context) ([]Category, error) {
	start := time.Now()
	list, err := s.repos.Categories.ListActive(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load categories")
		return nil, fmt.Errorf("list active categories: %w", err)
	}
	if list == nil {
		list = []Category{}
	}
	s.logger.Debug().Int("count", len(list)).Dur("duration", time.Since(start)).Msg("Loaded categories")
	return list, nil
}

func (s *Service) loadHero(ctx context.Context) (HeroSettings, error) {
	start := time.Now()
	h, err := s.repos.Hero.Get(ctx)
	if errors.Is(err, ErrNotFound) {
		s.logger.Debug().Dur("duration", time.Since(start)).Msg("No hero saved, using defaults")
		return DefaultHero(), nil
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load hero")
		return HeroSettings{}, fmt.Errorf("get hero: %w", err)
	}
	s.logger.Debug().Dur("duration", time.Since(start)).Msg("Loaded hero")
	return h, nil
}

func (s *Service) invalidateCategories(op string) {
	s.categories.Invalidate()
	s.logger.Info().
		Str("region", string(cache.RegionCategories)).
		Str("operation", op).
		Msg("Cache invalidated after write")
}

func (s *Service) invalidateHero() {
	s.hero.Invalidate()
	s.logger.Info().
		Str("region", string(cache.RegionHero)).
		Str("operation", "update").
		Msg("Cache invalidated after write")
}
