// Package events publishes content change notifications.
package events

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"

	"neurema-cms/internal/logger"
	"neurema-cms/internal/models"
)

const channelPrefix = "content_updates:"

// Channel is the Redis channel carrying the events of one collection.
func Channel(collection string) string {
	return channelPrefix + collection
}

// CollectionOf reverses Channel.
func CollectionOf(channel string) string {
	return strings.TrimPrefix(channel, channelPrefix)
}

// Publisher delivers change events after a write has committed. Delivery is
// best effort: implementations log failures instead of returning them.
type Publisher interface {
	Publish(ctx context.Context, ev models.ChangeEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, models.ChangeEvent) {}

// Nop discards every event.
var Nop Publisher = nopPublisher{}

type RedisPublisher struct {
	client *redis.Client
	log    *logger.Logger
}

func NewRedisPublisher(client *redis.Client, log *logger.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, log: log}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev models.ChangeEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("failed to encode change event", "collection", ev.Collection, "error", err)
		return
	}
	if err := p.client.Publish(ctx, Channel(ev.Collection), payload).Err(); err != nil {
		p.log.Warn("failed to publish change event", "collection", ev.Collection, "action", ev.Action, "error", err)
	}
}
