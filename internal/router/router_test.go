package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurema-cms/internal/config"
	"neurema-cms/internal/database"
	"neurema-cms/internal/handlers"
	"neurema-cms/internal/logger"
	"neurema-cms/internal/middleware"
	"neurema-cms/internal/services"
	"neurema-cms/internal/websocket"
)

func newTestHandler(t *testing.T, secret string, rateLimit int) (http.Handler, *middleware.JWTAuth) {
	t.Helper()
	db, err := database.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	store := database.NewSQLiteStore(db)
	t.Cleanup(store.Close)
	_, err = database.RunMigrations(context.Background(), store)
	require.NoError(t, err)

	cfg := &config.Config{
		AllowedHosts:      []string{"localhost"},
		FrontendURL:       "http://localhost:5173",
		BulkSyncRateLimit: rateLimit,
	}
	log := logger.Nop()
	auth := middleware.NewJWTAuth(secret)
	hub := websocket.NewHub(nil, auth, []string{"exams"}, log)
	t.Cleanup(hub.Close)

	h := New(Deps{
		Config:   cfg,
		Log:      log,
		JWTAuth:  auth,
		Health:   handlers.NewHealthHandler(store, log),
		BulkSync: handlers.NewBulkSyncHandler(services.NewBulkSyncService(store, hub, log), log),
		Contents: services.NewContents(store, hub, log, services.PageLimits{Default: 25, Max: 100}),
		Hub:      hub,
	})
	return h, auth
}

func request(h http.Handler, method, host, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Host = host
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouter_Health(t *testing.T) {
	h, _ := newTestHandler(t, "", 10)

	rr := request(h, http.MethodGet, "unlisted.example", "/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestRouter_HostAllowList(t *testing.T) {
	h, _ := newTestHandler(t, "", 10)

	rr := request(h, http.MethodGet, "unlisted.example", "/api/exams", "", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = request(h, http.MethodGet, "localhost:1337", "/api/exams", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_RoutesAllCollections(t *testing.T) {
	h, _ := newTestHandler(t, "", 10)

	for _, path := range []string{"/api/conceptuals", "/api/edges", "/api/exams", "/api/study-sessions", "/api/user-topics"} {
		rr := request(h, http.MethodGet, "localhost", path, "", "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}

	rr := request(h, http.MethodPost, "localhost", "/api/study-sessions/bulk-sync", `{"data":[]}`, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":[]}`, rr.Body.String())
}

func TestRouter_TokenRequiredWhenSecretSet(t *testing.T) {
	h, auth := newTestHandler(t, "secret", 10)

	rr := request(h, http.MethodPost, "localhost", "/api/user-topics/bulk-sync", `{"data":[]}`, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token, err := auth.GenerateToken("mobile-app", time.Hour)
	require.NoError(t, err)
	rr = request(h, http.MethodPost, "localhost", "/api/user-topics/bulk-sync", `{"data":[]}`, token)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_BulkSyncRateLimited(t *testing.T) {
	h, _ := newTestHandler(t, "", 1)

	rr := request(h, http.MethodPost, "localhost", "/api/study-sessions/bulk-sync", `{"data":[]}`, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = request(h, http.MethodPost, "localhost", "/api/study-sessions/bulk-sync", `{"data":[]}`, "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	rr = request(h, http.MethodGet, "localhost", "/api/study-sessions", "", "")
	assert.Equal(t, http.StatusOK, rr.Code, "CRUD routes are not throttled")
}
