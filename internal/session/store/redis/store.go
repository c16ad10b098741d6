package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"complyscan/internal/session/models"
	"complyscan/pkg/platform/sentinel"
	"complyscan/pkg/requestcontext"
)

const keyPrefix = "complyscan:session:"

// Store keeps sessions in Redis; the key TTL follows the session expiry.
type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

func (s *Store) Save(ctx context.Context, sess *models.Session) error {
	ttl := sess.ExpiresAt.Sub(requestcontext.Now(ctx))
	if ttl <= 0 {
		return sentinel.ErrExpired
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, key(sess.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	data, err := s.client.Get(ctx, key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if sess.IsExpired(requestcontext.Now(ctx)) {
		return nil, sentinel.ErrExpired
	}
	return &sess, nil
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	n, err := s.client.Del(ctx, key(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
