package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samahstore/catalog/pkg/cache"
	"github.com/samahstore/catalog/pkg/catalog"
	"github.com/samahstore/catalog/pkg/store"
)

const testToken = "s3cret"

type fixture struct {
	mem      *store.Memory
	registry *cache.Registry
	handler  http.Handler
	books    catalog.Category
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	mem := store.NewMemory()
	registry := cache.MustNewRegistry(cache.DefaultRegions())
	t.Cleanup(registry.Close)

	service, err := catalog.NewService(mem.Repositories(), registry, zerolog.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	books, err := mem.Repositories().Categories.Create(ctx, catalog.CategoryInput{Name: "Books", Slug: "books", Active: true})
	require.NoError(t, err)
	_, err = mem.Repositories().Categories.Create(ctx, catalog.CategoryInput{Name: "Toys", Slug: "toys", Active: true})
	require.NoError(t, err)
	_, err = mem.SeedProduct(store.ProductInput{CategoryID: books.ID, Name: "Dune", Description: "Desert planet", Price: 12.5, Active: true})
	require.NoError(t, err)
	_, err = mem.SeedProduct(store.ProductInput{CategoryID: books.ID, Name: "Emma", Price: 7, Active: true})
	require.NoError(t, err)

	opts = append([]Option{WithAuthorizer(StaticToken(testToken))}, opts...)
	h := New(service, registry, opts...)

	return &fixture{mem: mem, registry: registry, handler: h.Routes(), books: books}
}

func (f *fixture) do(t *testing.T, method, target string, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func bearer() http.Header {
	return http.Header{"Authorization": {"Bearer " + testToken}}
}

func TestCategories_ConditionalGet(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	assert.Regexp(t, `^"c2-\d+"$`, etag)
	assert.Equal(t, "public, max-age=300", w.Header().Get("Cache-Control"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var list []catalog.Category
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "Books", list[0].Name)

	w = f.do(t, http.MethodGet, "/api/categories", "", http.Header{"If-None-Match": {etag}})
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())

	stats := f.registry.Categories().Stats()
	assert.Equal(t, uint64(1), stats.Hits, "second read is served from the cache")
}

func TestCategories_WriteChangesETag(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	before := w.Header().Get("ETag")

	w = f.do(t, http.MethodPut, "/api/admin/categories/"+itoa(f.books.ID),
		`{"name":"Old Books","slug":"old-books","active":true}`, bearer())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/categories", "", http.Header{"If-None-Match": {before}})
	require.Equal(t, http.StatusOK, w.Code, "stale validator must not yield 304 after a write")
	assert.NotEqual(t, before, w.Header().Get("ETag"))
	assert.Contains(t, w.Body.String(), "Old Books")
}

func TestAdminCategories(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/admin/categories", `{"name":"Garden Tools","active":true}`, bearer())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created catalog.Category
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "garden-tools", created.Slug)

	w = f.do(t, http.MethodPost, "/api/admin/categories", `{"name":"Books","slug":"books","active":true}`, bearer())
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/api/admin/categories", `{"name":""}`, bearer())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/admin/categories", `{"name":"X","colour":"red"}`, bearer())
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown fields are rejected")

	w = f.do(t, http.MethodPut, "/api/admin/categories/abc", `{"name":"X"}`, bearer())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodDelete, "/api/admin/categories/999", "", bearer())
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodDelete, "/api/admin/categories/"+itoa(f.books.ID), "", bearer())
	assert.Equal(t, http.StatusConflict, w.Code, "category still has products")

	w = f.do(t, http.MethodDelete, "/api/admin/categories/"+itoa(created.ID), "", bearer())
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/api/categories", "", nil)
	assert.NotContains(t, w.Body.String(), "Garden Tools")
}

func TestAdmin_Unauthorized(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		header http.Header
	}{
		{name: "no header"},
		{name: "wrong token", header: http.Header{"Authorization": {"Bearer nope"}}},
		{name: "wrong scheme", header: http.Header{"Authorization": {"Basic " + testToken}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPut, "/api/admin/hero", `{"title":"x"}`, tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
		})
	}

	t.Run("no authorizer", func(t *testing.T) {
		h := New(nil, nil)
		w := httptest.NewRecorder()
		h.Routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/cache", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHero(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/hero", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	defaultTag := w.Header().Get("ETag")
	assert.Regexp(t, `^"h1-x[0-9a-f]{16}"$`, defaultTag)
	assert.NotContains(t, w.Body.String(), "updatedAt")

	w = f.do(t, http.MethodGet, "/api/public/hero", "", http.Header{"If-None-Match": {defaultTag}})
	assert.Equal(t, http.StatusNotModified, w.Code, "both hero routes serve the same resource")

	w = f.do(t, http.MethodPut, "/api/admin/hero", `{"title":"Sale","ctaText":"Go","ctaLink":"/sale","active":true}`, bearer())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/hero", "", http.Header{"If-None-Match": {defaultTag}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Regexp(t, `^"h1-\d+"$`, w.Header().Get("ETag"))

	var hero catalog.HeroSettings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hero))
	assert.Equal(t, "Sale", hero.Title)
	assert.False(t, hero.UpdatedAt.IsZero())
}

func TestProduct(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/products/dune", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	assert.Regexp(t, `^"p1-\d+"$`, etag)
	assert.Equal(t, "public, max-age=120", w.Header().Get("Cache-Control"))

	var p catalog.ProductDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "books", p.CategorySlug)

	w = f.do(t, http.MethodGet, "/api/products/dune", "", http.Header{"If-None-Match": {etag}})
	assert.Equal(t, http.StatusNotModified, w.Code)

	w = f.do(t, http.MethodGet, "/api/products/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not found"}`, w.Body.String())
}

func TestSearchProducts(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/products?q=dune", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=60", w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("ETag"), "search results carry no validator")

	var page catalog.Page[catalog.ProductSummary]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.TotalItems)
	assert.Equal(t, catalog.DefaultPageSize, page.Size)

	w = f.do(t, http.MethodGet, "/api/products?page=0&size=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.TotalPages)

	bad := []string{
		"/api/products?page=-1",
		"/api/products?size=abc",
		"/api/products?categoryId=x",
		"/api/products?minPrice=-5",
		"/api/products?minPrice=10&maxPrice=1",
		"/api/products?page=461168601842738791",
		"/api/products?page=9223372036854775807&size=100",
	}
	for _, target := range bad {
		t.Run(target, func(t *testing.T) {
			w := f.do(t, http.MethodGet, target, "", nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSearchProducts_LastPageBeyondResults(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/products?page="+strconv.Itoa(catalog.MaxPage)+"&size=100", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var page catalog.Page[catalog.ProductSummary]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Empty(t, page.Items)
	assert.Equal(t, 2, page.TotalItems)
}

func TestAdminCache(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodGet, "/api/categories", "", nil)
	f.do(t, http.MethodGet, "/api/categories", "", nil)

	w := f.do(t, http.MethodGet, "/api/admin/cache", "", bearer())
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Regions []struct {
			Region   string   `json:"region"`
			Hits     uint64   `json:"hits"`
			Misses   uint64   `json:"misses"`
			HitRatio float64  `json:"hit_ratio"`
			Keys     []string `json:"keys"`
		} `json:"regions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Regions, 2)

	categories := body.Regions[0]
	assert.Equal(t, "categories", categories.Region)
	assert.Equal(t, uint64(1), categories.Hits)
	assert.Equal(t, uint64(1), categories.Misses)
	assert.InDelta(t, 0.5, categories.HitRatio, 0.0001)
	assert.Equal(t, []string{cache.FixedKey}, categories.Keys)

	w = f.do(t, http.MethodDelete, "/api/admin/cache", "", bearer())
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, f.registry.Categories().Len())
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t,
		WithReadyCheck("memory", func(context.Context) error { return nil }),
	)

	w := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready","checks":{"memory":"ok"}}`, w.Body.String())

	down := newFixture(t,
		WithReadyCheck("memory", func(context.Context) error { return nil }),
		WithReadyCheck("redis", func(context.Context) error { return errors.New("connection refused") }),
	)
	w = down.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"not ready","checks":{"memory":"ok","redis":"connection refused"}}`, w.Body.String())
}

func TestMetricsRoute(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/api/categories", "", nil)

	w := f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "catalog_http_request_duration_seconds")
	assert.Contains(t, w.Body.String(), "catalog_cache_")
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/api/categories", "{}", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
