package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
)

// RedisCommander is the subset of the redis client used for reads and writes.
type RedisCommander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSubscriber opens pub/sub subscriptions. *redis.Client satisfies it.
type RedisSubscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// RedisBackend keeps each collection under its own key and announces writes
// on a pub/sub channel shared by every session pointing at the same Redis.
type RedisBackend struct {
	cmd     RedisCommander
	sub     RedisSubscriber
	channel string
	cb      *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

var _ ports.StoreBackend = (*RedisBackend)(nil)

func NewRedisBackend(cmd RedisCommander, sub RedisSubscriber, channel string, cb *gobreaker.CircuitBreaker, logger *zap.Logger) *RedisBackend {
	return &RedisBackend{
		cmd:     cmd,
		sub:     sub,
		channel: channel,
		cb:      cb,
		logger:  logger,
	}
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		val, err := b.cmd.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return []byte(nil), nil
		}
		return val, err
	})
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return result.([]byte), nil
}

// Put writes the value and then publishes the event. A failed publish is
// logged but does not fail the write; the value is already stored.
func (b *RedisBackend) Put(ctx context.Context, key string, value []byte, evt ports.ChangeEvent) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.cmd.Set(ctx, key, value, 0).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := b.cmd.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.logger.Warn("failed to publish change event",
			zap.String("channel", b.channel),
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return nil
}

func (b *RedisBackend) Listen(ctx context.Context, fn func(ports.ChangeEvent)) error {
	pubsub := b.sub.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var evt ports.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				b.logger.Warn("ignoring malformed change event",
					zap.String("channel", msg.Channel),
					zap.Error(err),
				)
				continue
			}
			fn(evt)
		}
	}
}
