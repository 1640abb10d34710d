// Package store provides the catalog data sources: an in-memory store for
// development and tests, PostgreSQL for categories and products, and Redis
// for the hero banner document.
package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samahstore/catalog/pkg/catalog"
)

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithMemoryClock replaces time.Now for timestamps.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// ProductInput seeds a product into the memory store.
type ProductInput struct {
	CategoryID  int64
	Name        string
	Slug        string
	Description string
	Price       float64
	Active      bool
}

// Memory is an in-process implementation of every catalog repository.
// Timestamps are millisecond precision and strictly increasing.
type Memory struct {
	mu   sync.RWMutex
	now  func() time.Time
	last time.Time

	categories     map[int64]catalog.Category
	nextCategoryID int64
	products       map[int64]catalog.ProductDetail
	nextProductID  int64
	hero           *catalog.HeroSettings
}

// NewMemory creates an empty memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		now:        time.Now,
		categories: make(map[int64]catalog.Category),
		products:   make(map[int64]catalog.ProductDetail),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Repositories exposes the store through the catalog interfaces.
func (m *Memory) Repositories() catalog.Repositories {
	return catalog.Repositories{
		Categories: memoryCategories{m},
		Products:   memoryProducts{m},
		Hero:       memoryHero{m},
	}
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error {
	return nil
}

// SeedProduct inserts a product and returns it.
func (m *Memory) SeedProduct(in ProductInput) (catalog.ProductDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.categories[in.CategoryID]
	if !ok {
		return catalog.ProductDetail{}, fmt.Errorf("category %d: %w", in.CategoryID, catalog.ErrNotFound)
	}
	slug := in.Slug
	if slug == "" {
		slug = catalog.Slugify(in.Name)
	}
	for _, p := range m.products {
		if p.Slug == slug {
			return catalog.ProductDetail{}, fmt.Errorf("product slug %q: %w", slug, catalog.ErrConflict)
		}
	}

	m.nextProductID++
	p := catalog.ProductDetail{
		ID:           m.nextProductID,
		CategoryID:   c.ID,
		CategorySlug: c.Slug,
		Name:         in.Name,
		Slug:         slug,
		Description:  in.Description,
		Price:        in.Price,
		Active:       in.Active,
		UpdatedAt:    m.stampLocked(),
	}
	m.products[p.ID] = p
	return p, nil
}

// stampLocked returns a millisecond timestamp later than any issued before.
func (m *Memory) stampLocked() time.Time {
	m.last = nextStamp(m.now(), m.last)
	return m.last
}

// nextStamp truncates now to milliseconds, moving it one millisecond past
// prev when the clock has not advanced beyond it.
func nextStamp(now, prev time.Time) time.Time {
	ts := now.UTC().Truncate(time.Millisecond)
	if !ts.After(prev) {
		ts = prev.UTC().Add(time.Millisecond)
	}
	return ts
}

type memoryCategories struct{ m *Memory }

func (r memoryCategories) ListActive(context.Context) ([]catalog.Category, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	out := make([]catalog.Category, 0, len(r.m.categories))
	for _, c := range r.m.categories {
		if c.Active {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b catalog.Category) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (r memoryCategories) Get(_ context.Context, id int64) (catalog.Category, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	c, ok := r.m.categories[id]
	if !ok {
		return catalog.Category{}, fmt.Errorf("category %d: %w", id, catalog.ErrNotFound)
	}
	return c, nil
}

func (r memoryCategories) Create(_ context.Context, in catalog.CategoryInput) (catalog.Category, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if err := r.checkUniqueLocked(0, in); err != nil {
		return catalog.Category{}, err
	}
	r.m.nextCategoryID++
	c := catalog.Category{
		ID:        r.m.nextCategoryID,
		Name:      in.Name,
		Slug:      in.Slug,
		Active:    in.Active,
		UpdatedAt: r.m.stampLocked(),
	}
	r.m.categories[c.ID] = c
	return c, nil
}

func (r memoryCategories) Update(_ context.Context, id int64, in catalog.CategoryInput) (catalog.Category, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	c, ok := r.m.categories[id]
	if !ok {
		return catalog.Category{}, fmt.Errorf("category %d: %w", id, catalog.ErrNotFound)
	}
	if err := r.checkUniqueLocked(id, in); err != nil {
		return catalog.Category{}, err
	}
	c.Name = in.Name
	c.Slug = in.Slug
	c.Active = in.Active
	c.UpdatedAt = r.m.stampLocked()
	r.m.categories[id] = c

	for pid, p := range r.m.products {
		if p.CategoryID == id {
			p.CategorySlug = c.Slug
			r.m.products[pid] = p
		}
	}
	return c, nil
}

func (r memoryCategories) Delete(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.categories[id]; !ok {
		return fmt.Errorf("category %d: %w", id, catalog.ErrNotFound)
	}
	for _, p := range r.m.products {
		if p.CategoryID == id {
			return fmt.Errorf("category %d has products: %w", id, catalog.ErrConflict)
		}
	}
	delete(r.m.categories, id)
	return nil
}

func (r memoryCategories) checkUniqueLocked(id int64, in catalog.CategoryInput) error {
	for _, c := range r.m.categories {
		if c.ID == id {
			continue
		}
		if c.Slug == in.Slug {
			return fmt.Errorf("category slug %q: %w", in.Slug, catalog.ErrConflict)
		}
		if strings.EqualFold(c.Name, in.Name) {
			return fmt.Errorf("category name %q: %w", in.Name, catalog.ErrConflict)
		}
	}
	return nil
}

type memoryProducts struct{ m *Memory }

func (r memoryProducts) GetBySlug(_ context.Context, slug string) (catalog.ProductDetail, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	for _, p := range r.m.products {
		if p.Slug == slug && p.Active {
			return p, nil
		}
	}
	return catalog.ProductDetail{}, fmt.Errorf("product %q: %w", slug, catalog.ErrNotFound)
}

func (r memoryProducts) Search(_ context.Context, q catalog.Query) (catalog.Page[catalog.ProductSummary], error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(q.Q))
	var matched []catalog.ProductDetail
	for _, p := range r.m.products {
		if !p.Active {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			continue
		}
		if q.CategoryID != 0 && p.CategoryID != q.CategoryID {
			continue
		}
		if q.MinPrice != nil && p.Price < *q.MinPrice {
			continue
		}
		if q.MaxPrice != nil && p.Price > *q.MaxPrice {
			continue
		}
		matched = append(matched, p)
	}
	// Newest first.
	slices.SortFunc(matched, func(a, b catalog.ProductDetail) int { return cmp.Compare(b.ID, a.ID) })

	total := len(matched)
	start := min(q.Offset(), total)
	end := min(start+q.Size, total)

	items := make([]catalog.ProductSummary, 0, end-start)
	for _, p := range matched[start:end] {
		items = append(items, catalog.ProductSummary{
			ID:         p.ID,
			CategoryID: p.CategoryID,
			Name:       p.Name,
			Slug:       p.Slug,
			Price:      p.Price,
		})
	}
	return catalog.NewPage(items, q, total), nil
}

type memoryHero struct{ m *Memory }

func (r memoryHero) Get(context.Context) (catalog.HeroSettings, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	if r.m.hero == nil {
		return catalog.HeroSettings{}, fmt.Errorf("hero: %w", catalog.ErrNotFound)
	}
	return *r.m.hero, nil
}

func (r memoryHero) Save(_ context.Context, in catalog.HeroInput) (catalog.HeroSettings, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	h := heroFromInput(in)
	h.UpdatedAt = r.m.stampLocked()
	r.m.hero = &h
	return h, nil
}

func heroFromInput(in catalog.HeroInput) catalog.HeroSettings {
	return catalog.HeroSettings{
		ID:       1,
		Title:    in.Title,
		Subtitle: in.Subtitle,
		ImageURL: in.ImageURL,
		CTAText:  in.CTAText,
		CTALink:  in.CTALink,
		Active:   in.Active,
	}
}
