package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/tenant-catalog/internal/core/domain"
)

// RedisPublisher publishes each alert as JSON on a pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Notify(ctx context.Context, event domain.StockTransition) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode alert %s: %w", event.ID, err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish alert %s: %w", event.ID, err)
	}
	return nil
}
