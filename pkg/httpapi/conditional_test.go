package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotModified(t *testing.T) {
	const etag = `"c3-1700000000000"`

	tests := []struct {
		name   string
		header []string
		etag   string
		want   bool
	}{
		{name: "no header", etag: etag, want: false},
		{name: "exact match", header: []string{etag}, etag: etag, want: true},
		{name: "different tag", header: []string{`"c2-1700000000000"`}, etag: etag, want: false},
		{name: "unquoted does not match", header: []string{"c3-1700000000000"}, etag: etag, want: false},
		{name: "list contains tag", header: []string{`"a", "b",` + etag}, etag: etag, want: true},
		{name: "wildcard", header: []string{"*"}, etag: etag, want: true},
		{name: "weak client tag", header: []string{"W/" + etag}, etag: etag, want: true},
		{name: "weak server tag", header: []string{etag}, etag: "W/" + etag, want: true},
		{name: "repeated header lines", header: []string{`"x"`, etag}, etag: etag, want: true},
		{name: "empty entries ignored", header: []string{" , ,"}, etag: etag, want: false},
		{name: "empty etag never matches", header: []string{"*"}, etag: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
			for _, v := range tt.header {
				r.Header.Add("If-None-Match", v)
			}
			assert.Equal(t, tt.want, NotModified(r, tt.etag))
		})
	}
}

func TestCacheControl(t *testing.T) {
	assert.Equal(t, "public, max-age=300", cacheControl(maxAgeCategories))
	assert.Equal(t, "public, max-age=120", cacheControl(maxAgeProduct))
	assert.Equal(t, "public, max-age=60", cacheControl(maxAgeSearch))
}

func TestWriteConditional(t *testing.T) {
	h := New(nil, nil)
	etag := `"p7-1700000000000"`

	w := httptest.NewRecorder()
	h.writeConditional(w, httptest.NewRequest(http.MethodGet, "/", nil), RouteProduct, etag, maxAgeProduct, map[string]int{"id": 7})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, etag, w.Header().Get("ETag"))
	assert.Equal(t, "public, max-age=120", w.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"id":7}`, w.Body.String())

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	h.writeConditional(w, r, RouteProduct, etag, maxAgeProduct, map[string]int{"id": 7})

	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, etag, w.Header().Get("ETag"), "304 repeats the validator")
	assert.Equal(t, "public, max-age=120", w.Header().Get("Cache-Control"))
}
