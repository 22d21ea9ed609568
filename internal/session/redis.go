package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/me/blogd/pkg/model"
)

const redisKeyPrefix = "sess:"

// redisRecord is the wire form of a session in Redis. The token is the
// key, not part of the value.
type redisRecord struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	CreatedAt int64  `json:"created_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// RedisStore is the Redis-backed session backend. Single-key GET/SET/DEL
// gives the per-key serialization the session map needs; Redis key TTLs
// mirror session expiry so the server never accumulates dead records.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisStore creates a session store over the given Redis client.
func NewRedisStore(client *redis.Client, logger *slog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		logger: logger.With("component", "session_redis"),
	}
}

func (s *RedisStore) Put(ctx context.Context, sess *model.Session) error {
	rec := redisRecord{
		UserID:    sess.UserID,
		Username:  sess.Username,
		Role:      string(sess.Role),
		CreatedAt: sess.CreatedAt.Unix(),
		ExpiresAt: sess.ExpiresAt.Unix(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	if err := s.client.Set(ctx, redisKeyPrefix+sess.Token, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (*model.Session, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var rec redisRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		// A corrupt blob is unusable; treat as absent and drop it.
		s.logger.Warn("corrupt session record", "token", model.TokenPrefix(token))
		_ = s.client.Del(ctx, redisKeyPrefix+token).Err()
		return nil, nil
	}

	return &model.Session{
		Token:     token,
		UserID:    rec.UserID,
		Username:  rec.Username,
		Role:      model.UserRole(rec.Role),
		CreatedAt: time.Unix(rec.CreatedAt, 0),
		ExpiresAt: time.Unix(rec.ExpiresAt, 0),
	}, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	// DEL of an absent key is a no-op in Redis, which matches the
	// idempotent destroy contract.
	if err := s.client.Del(ctx, redisKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *RedisStore) DeleteExpired(ctx context.Context) (int64, error) {
	// Redis expires session keys on its own via the per-key TTL.
	return 0, nil
}
