package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"neurema-cms/internal/events"
	"neurema-cms/internal/logger"
	"neurema-cms/internal/middleware"
	"neurema-cms/internal/models"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub relays change events to websocket subscribers of a collection. With a
// Redis client it follows the collection's channel, so events published by
// any instance arrive; without one it only relays events given to Publish.
type Hub struct {
	mu          sync.RWMutex
	connections map[string][]*client
	collections map[string]bool
	redisClient *redis.Client
	auth        *middleware.JWTAuth
	log         *logger.Logger
	cancelFuncs map[string]context.CancelFunc
}

func NewHub(redisClient *redis.Client, auth *middleware.JWTAuth, collections []string, log *logger.Logger) *Hub {
	known := make(map[string]bool, len(collections))
	for _, c := range collections {
		known[c] = true
	}
	return &Hub{
		connections: make(map[string][]*client),
		collections: known,
		redisClient: redisClient,
		auth:        auth,
		log:         log,
		cancelFuncs: make(map[string]context.CancelFunc),
	}
}

// HandleWebSocket serves GET /api/ws?collection=<plural>[&token=].
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	collection := r.URL.Query().Get("collection")
	if !h.collections[collection] {
		http.Error(w, "Unknown collection", http.StatusBadRequest)
		return
	}

	subject := "anonymous"
	if h.auth != nil && h.auth.Enabled() {
		var err error
		subject, err = h.auth.Verify(r.URL.Query().Get("token"))
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn}
	h.registerConnection(collection, subject, c)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(collection, subject, c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Subscribers reports how many connections follow collection.
func (h *Hub) Subscribers(collection string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[collection])
}

// Publish delivers ev to local subscribers. It makes the hub usable as an
// events.Publisher when no Redis is configured.
func (h *Hub) Publish(ctx context.Context, ev models.ChangeEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("failed to encode change event", "error", err)
		return
	}
	h.broadcast(ev.Collection, data)
}

// Close disconnects every subscriber and stops the Redis subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for collection, clients := range h.connections {
		for _, c := range clients {
			c.conn.Close()
		}
		delete(h.connections, collection)
	}
	for collection, cancel := range h.cancelFuncs {
		cancel()
		delete(h.cancelFuncs, collection)
	}
}

func (h *Hub) registerConnection(collection, subject string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[collection] = append(h.connections[collection], c)

	// Follow the Redis channel while the collection has subscribers
	if len(h.connections[collection]) == 1 && h.redisClient != nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[collection] = cancel
		go h.subscribeToPubSub(ctx, collection)
	}

	h.log.Debug("websocket connected", "collection", collection, "subject", subject, "total", len(h.connections[collection]))
}

func (h *Hub) unregisterConnection(collection, subject string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.conn.Close()

	clients := h.connections[collection]
	for i, existing := range clients {
		if existing == c {
			h.connections[collection] = append(clients[:i], clients[i+1:]...)
			break
		}
	}

	if len(h.connections[collection]) == 0 {
		delete(h.connections, collection)
		if cancel, ok := h.cancelFuncs[collection]; ok {
			cancel()
			delete(h.cancelFuncs, collection)
		}
	}

	h.log.Debug("websocket disconnected", "collection", collection, "subject", subject)
}

func (h *Hub) subscribeToPubSub(ctx context.Context, collection string) {
	pubsub := h.redisClient.Subscribe(ctx, events.Channel(collection))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(events.CollectionOf(msg.Channel), []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(collection string, data []byte) {
	h.mu.RLock()
	clients := append([]*client(nil), h.connections[collection]...)
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(data); err != nil {
			h.log.Debug("websocket write failed", "collection", collection, "error", err)
		}
	}
}
