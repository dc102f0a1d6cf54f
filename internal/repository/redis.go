package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore keeps the cart in Redis and announces every write on a pub/sub
// channel so other processes sharing the cart can re-read it.
type RedisStore struct {
	client *redis.Client
	origin string
	logger *zap.Logger
}

type redisEvent struct {
	Origin string  `json:"origin"`
	Value  *string `json:"value"`
}

func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client: client,
		origin: uuid.NewString(),
		logger: logger,
	}
}

func (r *RedisStore) Origin() string {
	return r.origin
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, storageKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	s := string(value)
	msg, err := json.Marshal(redisEvent{Origin: r.origin, Value: &s})
	if err != nil {
		return fmt.Errorf("marshal storage event failed: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, storageKey(key), value, 0)
		pipe.Publish(ctx, eventsChannel(key), msg)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	msg, err := json.Marshal(redisEvent{Origin: r.origin})
	if err != nil {
		return fmt.Errorf("marshal storage event failed: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, storageKey(key))
		pipe.Publish(ctx, eventsChannel(key), msg)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Watch subscribes to the key's event channel and calls fn for writes made
// by other origins.
func (r *RedisStore) Watch(ctx context.Context, key string, fn func(StorageEvent)) error {
	sub := r.client.Subscribe(ctx, eventsChannel(key))
	defer sub.Close()

	// Wait for the subscription to be confirmed before reporting events.
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("redis subscribe failed: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev redisEvent
			if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
				r.logger.Warn("malformed storage event", zap.String("channel", m.Channel), zap.Error(err))
				continue
			}
			if ev.Origin == r.origin {
				continue
			}
			out := StorageEvent{Key: key, Origin: ev.Origin}
			if ev.Value != nil {
				out.Value = []byte(*ev.Value)
			}
			fn(out)
		}
	}
}

func storageKey(key string) string {
	return fmt.Sprintf("cart:%s", key)
}

func eventsChannel(key string) string {
	return fmt.Sprintf("cart-events:%s", key)
}
