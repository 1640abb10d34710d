// Package httpapi serves the catalog over HTTP.
//
// Public read routes answer conditional requests: each response carries a
// deterministic ETag and a Cache-Control lifetime, and a matching
// If-None-Match yields 304 without a body. Admin routes run the write paths
// that invalidate the server-side cache.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/samahstore/catalog/pkg/cache"
	"github.com/samahstore/catalog/pkg/catalog"
	"github.com/samahstore/catalog/pkg/metrics"
)

// Route labels used in logs and metrics.
const (
	RouteCategories = "categories"
	RouteProduct    = "product"
	RouteSearch     = "products"
	RouteHero       = "hero"
	RouteAdmin      = "admin"
	RouteHealth     = "health"
	RouteReady      = "ready"
)

const (
	maxBodyBytes = 1 << 20
	readyTimeout = 2 * time.Second
)

// ReadyCheck pings a dependency for the readiness endpoint.
type ReadyCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// Option configures a Handler.
type Option func(*Handler)

// WithAuthorizer protects the admin routes. Without one they reject every request.
func WithAuthorizer(a Authorizer) Option {
	return func(h *Handler) { h.auth = a }
}

// WithReadyCheck adds a dependency to GET /ready.
func WithReadyCheck(name string, ping func(ctx context.Context) error) Option {
	return func(h *Handler) { h.checks = append(h.checks, ReadyCheck{Name: name, Ping: ping}) }
}

// WithSlowThreshold sets the slow request log threshold.
func WithSlowThreshold(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.slowThreshold = d
		}
	}
}

// WithAllowedOrigins enables CORS for the given origins.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Handler) { h.origins = origins }
}

// WithLogger sets the handler logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithClock replaces time.Now for request timing.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// Handler holds the HTTP dependencies.
type Handler struct {
	service       *catalog.Service
	registry      *cache.Registry
	auth          Authorizer
	checks        []ReadyCheck
	origins       []string
	slowThreshold time.Duration
	logger        zerolog.Logger
	now           func() time.Time
}

// New creates a Handler.
func New(service *catalog.Service, registry *cache.Registry, opts ...Option) *Handler {
	h := &Handler{
		service:       service,
		registry:      registry,
		auth:          denyAll,
		slowThreshold: DefaultSlowThreshold,
		logger:        zerolog.Nop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the router.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/categories", h.instrument(RouteCategories, h.categories))
	mux.HandleFunc("GET /api/products", h.instrument(RouteSearch, h.searchProducts))
	mux.HandleFunc("GET /api/products/{slug}", h.instrument(RouteProduct, h.product))
	mux.HandleFunc("GET /api/hero", h.instrument(RouteHero, h.hero))
	mux.HandleFunc("GET /api/public/hero", h.instrument(RouteHero, h.hero))

	mux.HandleFunc("POST /api/admin/categories", h.instrument(RouteAdmin, h.admin(h.createCategory)))
	mux.HandleFunc("PUT /api/admin/categories/{id}", h.instrument(RouteAdmin, h.admin(h.updateCategory)))
	mux.HandleFunc("DELETE /api/admin/categories/{id}", h.instrument(RouteAdmin, h.admin(h.deleteCategory)))
	mux.HandleFunc("PUT /api/admin/hero", h.instrument(RouteAdmin, h.admin(h.updateHero)))
	mux.HandleFunc("GET /api/admin/cache", h.instrument(RouteAdmin, h.admin(h.cacheStats)))
	mux.HandleFunc("DELETE /api/admin/cache", h.instrument(RouteAdmin, h.admin(h.flushCache)))

	mux.HandleFunc("GET /health", h.instrument(RouteHealth, h.health))
	mux.HandleFunc("GET /ready", h.instrument(RouteReady, h.ready))
	mux.Handle("GET /metrics", metrics.Handler())

	return h.cors(mux)
}

func (h *Handler) categories(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListPublicCategories(r.Context())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeConditional(w, r, RouteCategories, catalog.CategoriesETag(list), maxAgeCategories, list)
}

func (h *Handler) product(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProduct(r.Context(), r.PathValue("slug"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeConditional(w, r, RouteProduct, catalog.ProductETag(p), maxAgeProduct, p)
}

func (h *Handler) searchProducts(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.errorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}

	page, err := h.service.SearchProducts(r.Context(), q)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", cacheControl(maxAgeSearch))
	h.writeJSON(w, page, http.StatusOK)
}

func (h *Handler) hero(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.GetPublicHero(r.Context())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	etag, err := catalog.HeroETag(settings)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeConditional(w, r, RouteHero, etag, maxAgeHero, settings)
}

// parseQuery reads the search parameters. Absent parameters mean no filter.
func parseQuery(r *http.Request) (catalog.Query, error) {
	values := r.URL.Query()
	q := catalog.Query{Q: strings.TrimSpace(values.Get("q"))}

	var err error
	if q.CategoryID, err = parseInt64(values.Get("categoryId"), "categoryId"); err != nil {
		return q, err
	}
	if q.MinPrice, err = parsePrice(values.Get("minPrice"), "minPrice"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = parsePrice(values.Get("maxPrice"), "maxPrice"); err != nil {
		return q, err
	}
	page, err := parseInt64(values.Get("page"), "page")
	if err != nil {
		return q, err
	}
	size, err := parseInt64(values.Get("size"), "size")
	if err != nil {
		return q, err
	}
	if page > catalog.MaxPage {
		return q, errors.New("invalid page")
	}
	q.Page, q.Size = int(page), int(size)
	return q, nil
}

func parseInt64(raw, name string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}

func parsePrice(raw, name string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, errors.New("invalid " + name)
	}
	return &v, nil
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// ready pings every configured dependency.
func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			h.logger.Warn().Err(err).Str("dependency", check.Name).Msg("Readiness check failed")
			results[check.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[check.Name] = "ok"
	}

	body := map[string]any{"status": "ready", "checks": results}
	if status != http.StatusOK {
		body["status"] = "not ready"
	}
	h.writeJSON(w, body, status)
}

// serviceError maps catalog errors to HTTP status codes.
func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		h.errorJSON(w, "not found", http.StatusNotFound)
	case errors.Is(err, catalog.ErrInvalid):
		h.errorJSON(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, catalog.ErrConflict):
		h.errorJSON(w, "conflict", http.StatusConflict)
	case errors.Is(err, context.Canceled):
		h.logger.Debug().Str("path", r.URL.Path).Msg("Client went away")
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		h.errorJSON(w, "internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) errorJSON(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, map[string]string{"error": message}, status)
}
