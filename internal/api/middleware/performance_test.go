package middleware_test

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bondusy/spa-booking/backend/internal/api/middleware"
)

const catalogBody = `{"procedures":[{"name":"Facial Hidratante"}],"count":1}`

func catalog() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(catalogBody))
	})
}

func TestETag(t *testing.T) {
	h := middleware.ETag(catalog())

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/procedures", nil))
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, catalogBody, first.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/procedures", nil)
	req.Header.Set("If-None-Match", etag)
	second := httptest.NewRecorder()
	h.ServeHTTP(second, req)

	assert.Equal(t, http.StatusNotModified, second.Code)
	assert.Empty(t, second.Body.String())
}

func TestCompression(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/procedures", nil)
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	w := httptest.NewRecorder()
	middleware.Compression(catalog()).ServeHTTP(w, req)

	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, catalogBody, string(body))
}

func TestCompression_SkipsBucketImages(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/storage/v1/object/public/procedures/masaje.jpg", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	middleware.Compression(catalog()).ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, catalogBody, w.Body.String())
}

func TestCacheControl(t *testing.T) {
	tests := map[string]string{
		"/api/procedures/search?q=facial": "public, max-age=60, must-revalidate",
		"/api/procedures":                 "public, max-age=300, must-revalidate",
		"/storage/v1/a.jpg":               "public, max-age=86400",
		"/api/appointments":               "private, no-cache, must-revalidate",
	}
	for target, want := range tests {
		w := httptest.NewRecorder()
		middleware.CacheControl(catalog()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, want, w.Header().Get("Cache-Control"), target)
	}
}
