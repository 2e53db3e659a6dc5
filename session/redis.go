package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "voicebridge:session:"

// RedisStore persists sessions in Redis so calls survive instance restarts
// and can be handled by any replica.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisTTL overrides the session expiry.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithRedisPrefix overrides the key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a Redis-backed session store and verifies
// connectivity.
func NewRedisStore(ctx context.Context, addr string, opts ...RedisOption) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}

	s := &RedisStore{
		client: client,
		ttl:    DefaultSessionTTL,
		prefix: defaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *RedisStore) key(callSID string) string {
	return s.prefix + callSID
}

// Load retrieves a session.
func (s *RedisStore) Load(ctx context.Context, callSID string) (*Session, error) {
	if callSID == "" {
		return nil, ErrInvalidID
	}

	data, err := s.client.Get(ctx, s.key(callSID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", callSID, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", callSID, err)
	}
	return &sess, nil
}

// Save persists a session with the configured TTL.
func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil || sess.CallSID == "" {
		return ErrInvalidID
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", sess.CallSID, err)
	}

	if err := s.client.Set(ctx, s.key(sess.CallSID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving session %s: %w", sess.CallSID, err)
	}
	return nil
}

// Delete removes a session.
func (s *RedisStore) Delete(ctx context.Context, callSID string) error {
	if callSID == "" {
		return ErrInvalidID
	}

	if err := s.client.Del(ctx, s.key(callSID)).Err(); err != nil {
		return fmt.Errorf("deleting session %s: %w", callSID, err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
