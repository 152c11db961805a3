package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore guarda sessões como JSON no Redis com TTL deslizante
type RedisStore struct {
	client      *redis.Client
	serviceName string
	ttl         time.Duration
}

// NewRedisStore cria uma nova instância de RedisStore
func NewRedisStore(client *redis.Client, serviceName string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, serviceName: serviceName, ttl: ttl}
}

// GenerateKey builds "<service>:session:<id>".
func (r *RedisStore) GenerateKey(id string) string {
	return fmt.Sprintf("%s:session:%s", r.serviceName, id)
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := r.client.Get(ctx, r.GenerateKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	s.UpdatedAt = time.Now()
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.GenerateKey(s.ID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.GenerateKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
