// Package testutil provides testing utilities for the catalog service.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/samahstore/catalog/pkg/catalog"
	"github.com/samahstore/catalog/pkg/store"
)

// Repository operations that can be counted, failed or hooked.
const (
	OpListCategories = "categories.list"
	OpGetCategory    = "categories.get"
	OpCreateCategory = "categories.create"
	OpUpdateCategory = "categories.update"
	OpDeleteCategory = "categories.delete"
	OpGetProduct     = "products.get"
	OpSearchProducts = "products.search"
	OpGetHero        = "hero.get"
	OpSaveHero       = "hero.save"
)

// Repos wraps a memory store and records every repository call.
// Failures and hooks make it possible to script loader errors and to
// pause a call at a known point.
type Repos struct {
	Memory *store.Memory

	mu       sync.Mutex
	calls    map[string]int
	failures map[string]error
	after    map[string]func()
	delay    time.Duration
}

// NewRepos creates an instrumented memory store.
func NewRepos(opts ...store.MemoryOption) *Repos {
	return &Repos{
		Memory:   store.NewMemory(opts...),
		calls:    make(map[string]int),
		failures: make(map[string]error),
		after:    make(map[string]func()),
	}
}

// Repositories returns the instrumented repositories.
func (r *Repos) Repositories() catalog.Repositories {
	inner := r.Memory.Repositories()
	return catalog.Repositories{
		Categories: categories{r, inner.Categories},
		Products:   products{r, inner.Products},
		Hero:       hero{r, inner.Hero},
	}
}

// Calls returns how often op was invoked.
func (r *Repos) Calls(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

// Reset clears all counters, failures and hooks.
func (r *Repos) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = make(map[string]int)
	r.failures = make(map[string]error)
	r.after = make(map[string]func())
	r.delay = 0
}

// Fail makes op return err until cleared with Fail(op, nil).
// Failing writes still reach the memory store first, like a commit whose
// acknowledgement was lost.
func (r *Repos) Fail(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.failures, op)
		return
	}
	r.failures[op] = err
}

// After runs fn once op has reached the store, before the call returns.
func (r *Repos) After(op string, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn == nil {
		delete(r.after, op)
		return
	}
	r.after[op] = fn
}

// SetDelay slows every call down by d.
func (r *Repos) SetDelay(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delay = d
}

// begin counts the call and applies the delay.
func (r *Repos) begin(op string) {
	r.mu.Lock()
	r.calls[op]++
	delay := r.delay
	r.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
}

// finish runs the hook and returns the scripted failure, if any.
func (r *Repos) finish(op string) error {
	r.mu.Lock()
	hook := r.after[op]
	err := r.failures[op]
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	return err
}

type categories struct {
	r     *Repos
	inner catalog.CategoryRepository
}

func (c categories) ListActive(ctx context.Context) ([]catalog.Category, error) {
	c.r.begin(OpListCategories)
	list, err := c.inner.ListActive(ctx)
	if ferr := c.r.finish(OpListCategories); ferr != nil {
		return nil, ferr
	}
	return list, err
}

func (c categories) Get(ctx context.Context, id int64) (catalog.Category, error) {
	c.r.begin(OpGetCategory)
	cat, err := c.inner.Get(ctx, id)
	if ferr := c.r.finish(OpGetCategory); ferr != nil {
		return catalog.Category{}, ferr
	}
	return cat, err
}

func (c categories) Create(ctx context.Context, in catalog.CategoryInput) (catalog.Category, error) {
	c.r.begin(OpCreateCategory)
	cat, err := c.inner.Create(ctx, in)
	if ferr := c.r.finish(OpCreateCategory); ferr != nil {
		return catalog.Category{}, ferr
	}
	return cat, err
}

func (c categories) Update(ctx context.Context, id int64, in catalog.CategoryInput) (catalog.Category, error) {
	c.r.begin(OpUpdateCategory)
	cat, err := c.inner.Update(ctx, id, in)
	if ferr := c.r.finish(OpUpdateCategory); ferr != nil {
		return catalog.Category{}, ferr
	}
	return cat, err
}

func (c categories) Delete(ctx context.Context, id int64) error {
	c.r.begin(OpDeleteCategory)
	err := c.inner.Delete(ctx, id)
	if ferr := c.r.finish(OpDeleteCategory); ferr != nil {
		return ferr
	}
	return err
}

type products struct {
	r     *Repos
	inner catalog.ProductRepository
}

func (p products) GetBySlug(ctx context.Context, slug string) (catalog.ProductDetail, error) {
	p.r.begin(OpGetProduct)
	detail, err := p.inner.GetBySlug(ctx, slug)
	if ferr := p.r.finish(OpGetProduct); ferr != nil {
		return catalog.ProductDetail{}, ferr
	}
	return detail, err
}

func (p products) Search(ctx context.Context, q catalog.Query) (catalog.Page[catalog.ProductSummary], error) {
	p.r.begin(OpSearchProducts)
	page, err := p.inner.Search(ctx, q)
	if ferr := p.r.finish(OpSearchProducts); ferr != nil {
		return catalog.Page[catalog.ProductSummary]{}, ferr
	}
	return page, err
}

type hero struct {
	r     *Repos
	inner catalog.HeroRepository
}

func (h hero) Get(ctx context.Context) (catalog.HeroSettings, error) {
	h.r.begin(OpGetHero)
	settings, err := h.inner.Get(ctx)
	if ferr := h.r.finish(OpGetHero); ferr != nil {
		return catalog.HeroSettings{}, ferr
	}
	return settings, err
}

func (h hero) Save(ctx context.Context, in catalog.HeroInput) (catalog.HeroSettings, error) {
	h.r.begin(OpSaveHero)
	settings, err := h.inner.Save(ctx, in)
	if ferr := h.r.finish(OpSaveHero); ferr != nil {
		return catalog.HeroSettings{}, ferr
	}
	return settings, err
}
