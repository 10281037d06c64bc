// Package redis provides a Redis-backed session store. Expiry is delegated
// to Redis key TTLs, so there is nothing to reap.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/promptvault/promptvault/internal/domain"
)

type Sessions struct {
	client *redis.Client
}

func New(ctx context.Context, addr, password string, db int) (*Sessions, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &Sessions{client: client}, nil
}

func (s *Sessions) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("redis.Sessions.Close: %w", err)
	}
	return nil
}

func sessionKey(sid string) string {
	return "session:" + sid
}

func (s *Sessions) Create(ctx context.Context, sess *domain.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("redis.Sessions.Create: marshal: %w", err)
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return nil // already expired, nothing to store
	}

	if err := s.client.Set(ctx, sessionKey(sess.SID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis.Sessions.Create: %w", err)
	}

	return nil
}

func (s *Sessions) Get(ctx context.Context, sid string) (*domain.Session, error) {
	payload, err := s.client.Get(ctx, sessionKey(sid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis.Sessions.Get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis.Sessions.Get: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("redis.Sessions.Get: unmarshal: %w", err)
	}

	return &sess, nil
}

func (s *Sessions) Delete(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, sessionKey(sid)).Err(); err != nil {
		return fmt.Errorf("redis.Sessions.Delete: %w", err)
	}

	return nil
}
