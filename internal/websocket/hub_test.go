package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurema-cms/internal/logger"
	"neurema-cms/internal/middleware"
	"neurema-cms/internal/models"
)

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?" + query
}

func TestHub_RelaysEventsToCollectionSubscribers(t *testing.T) {
	hub := NewHub(nil, nil, []string{"study-sessions", "exams"}, logger.Nop())
	t.Cleanup(hub.Close)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "collection=study-sessions"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers("study-sessions") == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(context.Background(), models.ChangeEvent{Collection: "exams", Action: models.ActionCreate, IDs: []int64{9}})
	hub.Publish(context.Background(), models.ChangeEvent{Collection: "study-sessions", Action: models.ActionSync, IDs: []int64{1, 2}, Created: 2})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev models.ChangeEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, "study-sessions", ev.Collection)
	assert.Equal(t, []int64{1, 2}, ev.IDs)
}

func TestHub_RejectsUnknownCollection(t *testing.T) {
	hub := NewHub(nil, nil, []string{"exams"}, logger.Nop())
	rr := httptest.NewRecorder()
	hub.HandleWebSocket(rr, httptest.NewRequest(http.MethodGet, "/ws?collection=users", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHub_RequiresTokenWhenAuthEnabled(t *testing.T) {
	auth := middleware.NewJWTAuth("secret")
	hub := NewHub(nil, auth, []string{"exams"}, logger.Nop())
	t.Cleanup(hub.Close)

	rr := httptest.NewRecorder()
	hub.HandleWebSocket(rr, httptest.NewRequest(http.MethodGet, "/ws?collection=exams&token=bogus", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(srv.Close)
	token, err := auth.GenerateToken("viewer", time.Hour)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "collection=exams&token="+token), nil)
	require.NoError(t, err)
	conn.Close()
}
