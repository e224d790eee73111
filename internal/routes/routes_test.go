package routes

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"map_exhibits/internal/config"
	"map_exhibits/internal/middleware"
	"map_exhibits/internal/models"
	"map_exhibits/internal/storage"
)

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	prev := storage.GetAdapter()
	storage.SetAdapter(storage.NewFilesystem(dir, "/files"))
	t.Cleanup(func() { storage.SetAdapter(prev) })
	return SetupRouter(config.Settings{StorageWebURL: "/files"})
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	r := newEngine(t)
	w := get(r, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestStoredFilesAreServed(t *testing.T) {
	r := newEngine(t)
	require.NoError(t, os.WriteFile(filepath.Join(storage.WebDir(), "marker.png"), []byte("png"), 0644))

	w := get(r, "/files/marker.png", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png", w.Body.String())

	// the directory can be swapped at runtime
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.png"), []byte("other"), 0644))
	storage.SetWebDir(dir)
	w = get(r, "/files/other.png", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "other", w.Body.String())

	assert.Equal(t, http.StatusNotFound, get(r, "/files/missing.png", "").Code)
	assert.NotEqual(t, http.StatusOK, get(r, "/files/../routes.go", "").Code)
}

func TestAdminRoutesRequireRole(t *testing.T) {
	r := newEngine(t)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/admin/storage", "").Code)

	token, err := middleware.GenerateToken(7, models.RoleResearcher)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(r, "/admin/storage", token).Code)

	token, err = middleware.GenerateToken(8, models.RoleSuper)
	require.NoError(t, err)
	w := get(r, "/admin/storage", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "web_dir")
}

func TestWriteRoutesRequireAuth(t *testing.T) {
	r := newEngine(t)
	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodPost, "/exhibits"},
		{http.MethodPut, "/exhibits/1"},
		{http.MethodDelete, "/exhibits/1"},
		{http.MethodPost, "/exhibits/1/records"},
		{http.MethodPost, "/exhibits/1/images"},
		{http.MethodPut, "/records/1"},
		{http.MethodDelete, "/records/1"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}
