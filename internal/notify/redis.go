package notify

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/guardline/workforce-service/internal/config"
	"github.com/guardline/workforce-service/internal/persistence"
)

// RedisPublisher delivers notifications over Redis pub/sub. The websocket
// gateway subscribes to both channels and forwards messages to connected
// sessions, so every instance of the service sees every delivery.
type RedisPublisher struct {
	rdb    *persistence.Redis
	cfg    config.NotifyConfig
	logger *zap.Logger
}

// NewRedisPublisher creates the publisher.
func NewRedisPublisher(rdb *persistence.Redis, cfg config.NotifyConfig, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, cfg: cfg, logger: logger}
}

// NotifyUser publishes a user notification on the user channel.
func (p *RedisPublisher) NotifyUser(ctx context.Context, notification Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	return p.publish(ctx, p.cfg.UserChannel, payload)
}

// Broadcast publishes a presence event on the presence channel.
func (p *RedisPublisher) Broadcast(ctx context.Context, event PresenceEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.publish(ctx, p.cfg.PresenceChannel, payload)
}

func (p *RedisPublisher) publish(ctx context.Context, channel string, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout())
	defer cancel()

	if err := p.rdb.Publish(ctx, channel, payload); err != nil {
		return err
	}
	p.logger.Debug("published notification",
		zap.String("channel", channel),
		zap.Int("bytes", len(payload)))
	return nil
}
