package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	platformconfig "github.com/peakform/peakform/internal/platform/config"
)

// ErrCacheUnavailable is returned when the Redis backend cannot be reached.
var ErrCacheUnavailable = fmt.Errorf("cache backend unavailable")

// SessionCache is a Redis-backed allowlist of active session IDs per user.
// The auth middleware consults it (when configured) so revoked tokens stop
// working before their expiry.
type SessionCache struct {
	client *redis.Client
	prefix string
}

// NewSessionCache connects to Redis and verifies the connection.
func NewSessionCache(cfg *platformconfig.CacheConfig) (*SessionCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.Database,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	return &SessionCache{client: client, prefix: "peakform:sessions:"}, nil
}

func (s *SessionCache) key(userID string) string {
	return s.prefix + userID
}

// AddSession registers a session ID (JWT jti) for a user.
func (s *SessionCache) AddSession(ctx context.Context, userID, sessionID string) error {
	if err := s.client.SAdd(ctx, s.key(userID), sessionID).Err(); err != nil {
		return fmt.Errorf("redis sadd error: %w", err)
	}
	return nil
}

// RemoveSession revokes a session ID for a user.
func (s *SessionCache) RemoveSession(ctx context.Context, userID, sessionID string) error {
	if err := s.client.SRem(ctx, s.key(userID), sessionID).Err(); err != nil {
		return fmt.Errorf("redis srem error: %w", err)
	}
	return nil
}

// IsSessionActive reports whether the session ID is in the user's allowlist.
func (s *SessionCache) IsSessionActive(ctx context.Context, userID, sessionID string) (bool, error) {
	member, err := s.client.SIsMember(ctx, s.key(userID), sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("redis sismember error: %w", err)
	}
	return member, nil
}

// Ping tests the Redis connection.
func (s *SessionCache) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *SessionCache) Close() error {
	return s.client.Close()
}
