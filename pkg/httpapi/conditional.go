package httpapi

import (
	"net/http"
	"strconv"
	"strings"
)

// Cache lifetimes advertised to clients, in seconds.
const (
	maxAgeCategories = 300
	maxAgeProduct    = 120
	maxAgeSearch     = 60
	maxAgeHero       = 300
)

// NotModified reports whether the request's If-None-Match header matches
// etag. It accepts a comma-separated list, the "*" wildcard, and weak
// validators (the W/ prefix is ignored on both sides).
func NotModified(r *http.Request, etag string) bool {
	if etag == "" {
		return false
	}
	header := r.Header.Values("If-None-Match")
	if len(header) == 0 {
		return false
	}

	want := opaqueTag(etag)
	for _, line := range header {
		for _, candidate := range strings.Split(line, ",") {
			candidate = strings.TrimSpace(candidate)
			if candidate == "" {
				continue
			}
			if candidate == "*" || opaqueTag(candidate) == want {
				return true
			}
		}
	}
	return false
}

// opaqueTag strips the weakness indicator.
func opaqueTag(tag string) string {
	return strings.TrimPrefix(tag, "W/")
}

func cacheControl(maxAge int) string {
	return "public, max-age=" + strconv.Itoa(maxAge)
}

// writeConditional answers with 304 when the client already holds etag and
// with the JSON body otherwise. The validator check runs on every request;
// only the read model behind it is cached.
func (h *Handler) writeConditional(w http.ResponseWriter, r *http.Request, route, etag string, maxAge int, body any) {
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", cacheControl(maxAge))

	if NotModified(r, etag) {
		httpNotModifiedTotal.WithLabelValues(route).Inc()
		h.logger.Debug().
			Str("route", route).
			Str("etag", etag).
			Msg("Not modified")
		w.WriteHeader(http.StatusNotModified)
		return
	}

	h.writeJSON(w, body, http.StatusOK)
}
