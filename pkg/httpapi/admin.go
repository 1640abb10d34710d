package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/samahstore/catalog/pkg/cache"
	"github.com/samahstore/catalog/pkg/catalog"
)

// admin rejects requests the Authorizer does not accept.
func (h *Handler) admin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.auth.Authorize(r); err != nil {
			h.logger.Warn().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("Admin request rejected")
			w.Header().Set("WWW-Authenticate", `Bearer realm="catalog"`)
			h.errorJSON(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var in catalog.CategoryInput
	if !h.decode(w, r, &in) {
		return
	}
	c, err := h.service.CreateCategory(r.Context(), in)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, c, http.StatusCreated)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var in catalog.CategoryInput
	if !h.decode(w, r, &in) {
		return
	}
	c, err := h.service.UpdateCategory(r.Context(), id, in)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, c, http.StatusOK)
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		h.serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updateHero(w http.ResponseWriter, r *http.Request) {
	var in catalog.HeroInput
	if !h.decode(w, r, &in) {
		return
	}
	settings, err := h.service.UpdateHero(r.Context(), in)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, settings, http.StatusOK)
}

type regionStats struct {
	cache.Stats
	HitRatio float64  `json:"hit_ratio"`
	Keys     []string `json:"keys"`
}

// cacheStats reports every region's counters and resident keys.
func (h *Handler) cacheStats(w http.ResponseWriter, _ *http.Request) {
	stats := h.registry.Stats()
	out := make([]regionStats, 0, len(stats))
	for _, s := range stats {
		rs := regionStats{Stats: s, HitRatio: s.HitRatio(), Keys: []string{}}
		if store, err := h.registry.Lookup(string(s.Region)); err == nil {
			rs.Keys = store.Keys()
		}
		out = append(out, rs)
	}
	h.writeJSON(w, map[string]any{"regions": out}, http.StatusOK)
}

// flushCache drops every cached read model. The next read reloads from source.
func (h *Handler) flushCache(w http.ResponseWriter, _ *http.Request) {
	h.registry.InvalidateAll()
	h.logger.Info().Msg("All cache regions invalidated")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.errorJSON(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorJSON(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		h.errorJSON(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
