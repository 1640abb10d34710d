// Package catalog holds the storefront read models, their validators, and
// the service that serves them through the cache.
package catalog

import (
	"math"
	"time"
)

// Category is the public read model of a product category.
type Category struct {
	ID        int64     `json:"id" msgpack:"id"`
	Name      string    `json:"name" msgpack:"name"`
	Slug      string    `json:"slug" msgpack:"slug"`
	Active    bool      `json:"active" msgpack:"active"`
	UpdatedAt time.Time `json:"updatedAt" msgpack:"updated_at"`
}

// CategoryInput carries the writable fields of a category.
type CategoryInput struct {
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Active bool   `json:"active"`
}

// ProductDetail is the public read model of a single product.
type ProductDetail struct {
	ID           int64     `json:"id"`
	CategoryID   int64     `json:"categoryId"`
	CategorySlug string    `json:"categorySlug"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	Active       bool      `json:"active"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ProductSummary is a search result row.
type ProductSummary struct {
	ID         int64   `json:"id"`
	CategoryID int64   `json:"categoryId"`
	Name       string  `json:"name"`
	Slug       string  `json:"slug"`
	Price      float64 `json:"price"`
}

// Query filters a product search. Zero values mean "no filter".
type Query struct {
	Q          string
	CategoryID int64
	MinPrice   *float64
	MaxPrice   *float64
	Page       int
	Size       int
}

// Pagination bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	// MaxPage is the largest page index whose offset fits in an int.
	MaxPage = math.MaxInt / MaxPageSize
)

// Normalize clamps paging to valid bounds. Pages are zero-based.
func (q Query) Normalize() Query {
	if q.Page < 0 {
		q.Page = 0
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.Size <= 0 {
		q.Size = DefaultPageSize
	}
	if q.Size > MaxPageSize {
		q.Size = MaxPageSize
	}
	return q
}

// Offset returns the row offset of the page, saturating at math.MaxInt.
func (q Query) Offset() int {
	if q.Page <= 0 || q.Size <= 0 {
		return 0
	}
	if q.Page > math.MaxInt/q.Size {
		return math.MaxInt
	}
	return q.Page * q.Size
}

// Page is one page of results.
type Page[T any] struct {
	Items      []T `json:"content"`
	Page       int `json:"page"`
	Size       int `json:"size"`
	TotalItems int `json:"totalElements"`
	TotalPages int `json:"totalPages"`
}

// NewPage builds a page, computing the page count from total.
func NewPage[T any](items []T, q Query, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if q.Size > 0 {
		pages = (total + q.Size - 1) / q.Size
	}
	return Page[T]{
		Items:      items,
		Page:       q.Page,
		Size:       q.Size,
		TotalItems: total,
		TotalPages: pages,
	}
}

// HeroSettings is the public read model of the home page banner.
type HeroSettings struct {
	ID        int64     `json:"id" msgpack:"id"`
	Title     string    `json:"title" msgpack:"title"`
	Subtitle  string    `json:"subtitle" msgpack:"subtitle"`
	ImageURL  string    `json:"imageUrl" msgpack:"image_url"`
	CTAText   string    `json:"ctaText" msgpack:"cta_text"`
	CTALink   string    `json:"ctaLink" msgpack:"cta_link"`
	Active    bool      `json:"active" msgpack:"active"`
	UpdatedAt time.Time `json:"updatedAt,omitzero" msgpack:"updated_at"`
}

// HeroInput carries the writable fields of the hero banner.
type HeroInput struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	ImageURL string `json:"imageUrl"`
	CTAText  string `json:"ctaText"`
	CTALink  string `json:"ctaLink"`
	Active   bool   `json:"active"`
}

// DefaultHero is served when no hero has been saved yet.
func DefaultHero() HeroSettings {
	return HeroSettings{
		ID:      1,
		Title:   "Welcome",
		CTAText: "Shop now",
		CTALink: "/products",
		Active:  true,
	}
}
