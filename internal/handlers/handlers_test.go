package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurema-cms/internal/database"
	"neurema-cms/internal/logger"
	"neurema-cms/internal/models"
	"neurema-cms/internal/services"
)

type countingStore struct {
	database.Store
	txCount int
}

func (s *countingStore) WithinTx(ctx context.Context, fn func(tx database.Querier) error) error {
	s.txCount++
	return s.Store.WithinTx(ctx, fn)
}

func newTestRouter(t *testing.T) (http.Handler, *countingStore) {
	t.Helper()
	db, err := database.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	sqlite := database.NewSQLiteStore(db)
	t.Cleanup(sqlite.Close)
	_, err = database.RunMigrations(context.Background(), sqlite)
	require.NoError(t, err)

	store := &countingStore{Store: sqlite}
	log := logger.Nop()
	bulk := NewBulkSyncHandler(services.NewBulkSyncService(store, nil, log), log)
	contents := services.NewContents(store, nil, log, services.PageLimits{Default: 25, Max: 100})

	r := chi.NewRouter()
	r.Post("/api/study-sessions/bulk-sync", bulk.StudySessions)
	r.Post("/api/user-topics/bulk-sync", bulk.UserTopics)
	r.Route("/api/exams", NewContentHandler(contents.Exams, nil, log).Routes)
	r.Route("/api/study-sessions", NewContentHandler(contents.StudySessions, map[string]string{
		"userTopic": "user_topic_id",
	}, log).Routes)
	r.Route("/api/user-topics", NewContentHandler(contents.UserTopics, map[string]string{
		"topic":   "topic_id",
		"profile": "profile_id",
	}, log).Routes)
	return r, store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// ─── Bulk sync ───

func TestBulkSync_RejectsMissingDataArray(t *testing.T) {
	bodies := []string{`{"data":"oops"}`, `{}`, `{"data":null}`, `[1,2]`, `not json`}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			h, store := newTestRouter(t)

			rr := do(t, h, http.MethodPost, "/api/study-sessions/bulk-sync", body)
			require.Equal(t, http.StatusBadRequest, rr.Code)

			var resp struct {
				Error struct {
					Message   string `json:"message"`
					RequestID string `json:"request_id"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, `The request body must include a "data" array.`, resp.Error.Message)
			assert.Equal(t, "req-1", resp.Error.RequestID)
			assert.Zero(t, store.txCount)
		})
	}
}

func TestBulkSync_StudySessionScenario(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := do(t, h, http.MethodPost, "/api/study-sessions/bulk-sync",
		`{"data":[{"userTopicId":5,"scheduledFor":"2024-01-01T00:00:00.000Z"}]}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":[{"clientKey":"5:2024-01-01T00:00:00.000Z","sessionId":1,"userTopicId":5,"created":true}]}`, rr.Body.String())

	rr = do(t, h, http.MethodPost, "/api/study-sessions/bulk-sync",
		`{"data":[{"user_topic":{"id":"5"},"scheduledFor":"2024-01-01T00:00:00Z","isPaused":"yes","clientKey":"c1"}]}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":[{"clientKey":"c1","sessionId":1,"userTopicId":5,"created":false}]}`, rr.Body.String())
}

func TestBulkSync_EmptyAndRejectedInput(t *testing.T) {
	h, store := newTestRouter(t)

	for _, body := range []string{`{"data":[]}`, `{"data":[1,"x",{"topicId":2}]}`} {
		rr := do(t, h, http.MethodPost, "/api/user-topics/bulk-sync", body)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"data":[]}`, rr.Body.String())
	}
	assert.Zero(t, store.txCount)
}

func TestBulkSync_UserTopicsKeepInputOrder(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := do(t, h, http.MethodPost, "/api/user-topics", `{"data":{"topic":2,"profile":1}}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/user-topics/bulk-sync", `{"data":[
		{"topicId":3,"profileId":1},
		{"topic":{"id":2},"profile":1,"timeTotal":"40"},
		{"profileId":1}
	]}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":[
		{"clientKey":"1:3","userTopicId":2,"topicId":3,"created":true},
		{"clientKey":"1:2","userTopicId":1,"topicId":2,"created":false}
	]}`, rr.Body.String())
}

// ─── Content CRUD ───

func TestContent_CreateGetList(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := do(t, h, http.MethodPost, "/api/exams", `{"data":{"name":"Finals","subjects":[1,2],"highYieldTopics":{"a":1}}}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	var created struct {
		Data struct {
			ID       int64   `json:"id"`
			Name     string  `json:"name"`
			Subjects []int64 `json:"subjects"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "Finals", created.Data.Name)
	assert.Equal(t, []int64{1, 2}, created.Data.Subjects)

	rr = do(t, h, http.MethodGet, "/api/exams/1", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/exams?pagination[pageSize]=10", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Data []json.RawMessage `json:"data"`
		Meta struct {
			Pagination struct {
				Page     int `json:"page"`
				PageSize int `json:"pageSize"`
				Total    int `json:"total"`
			} `json:"pagination"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list.Data, 1)
	assert.Equal(t, 1, list.Meta.Pagination.Page)
	assert.Equal(t, 10, list.Meta.Pagination.PageSize)
	assert.Equal(t, 1, list.Meta.Pagination.Total)
}

func TestContent_ErrorStatuses(t *testing.T) {
	h, _ := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown id", http.MethodGet, "/api/exams/42", "", http.StatusNotFound},
		{"non numeric id", http.MethodGet, "/api/exams/abc", "", http.StatusNotFound},
		{"missing data", http.MethodPost, "/api/exams", `{"name":"x"}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/api/exams", `{`, http.StatusBadRequest},
		{"validation", http.MethodPost, "/api/user-topics", `{"data":{"topic":1}}`, http.StatusBadRequest},
		{"bad filter", http.MethodGet, "/api/user-topics?profile=abc", "", http.StatusBadRequest},
		{"delete unknown", http.MethodDelete, "/api/exams/9", "", http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, h, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, rr.Code, rr.Body.String())
		})
	}
}

func TestContent_StudySessionUsesUserTopicKey(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := do(t, h, http.MethodPost, "/api/study-sessions", `{"data":{"scheduledFor":"2024-01-01T00:00:00Z"}}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var failed models.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &failed))
	assert.Equal(t, map[string]string{"userTopic": "is required"}, failed.Error.Fields)

	rr = do(t, h, http.MethodPost, "/api/study-sessions", `{"data":{"userTopic":5,"scheduledFor":"2024-01-01T00:00:00Z"}}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, float64(5), created.Data["userTopic"])
	assert.NotContains(t, created.Data, "user_topic")

	var list struct {
		Meta models.ListMeta `json:"meta"`
	}
	rr = do(t, h, http.MethodGet, "/api/study-sessions?userTopic=5", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Meta.Pagination.Total)

	rr = do(t, h, http.MethodGet, "/api/study-sessions?userTopic=6", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 0, list.Meta.Pagination.Total)
}

func TestContent_NaturalKeyConflict(t *testing.T) {
	h, _ := newTestRouter(t)

	body := `{"data":{"topic":1,"profile":2}}`
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/user-topics", body).Code)

	rr := do(t, h, http.MethodPost, "/api/user-topics", body)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), `"code":"CONFLICT"`)
}
