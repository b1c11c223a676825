package users

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistKeyPrefix = "token_blacklist:"

// Blacklist records revoked refresh tokens by jti until they would expire anyway.
type Blacklist interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisBlacklist stores revoked token ids as expiring Redis keys.
type RedisBlacklist struct {
	client redis.Cmdable
	now    func() time.Time
}

// NewRedisBlacklist creates a Redis-backed blacklist.
func NewRedisBlacklist(client redis.Cmdable) *RedisBlacklist {
	return &RedisBlacklist{client: client, now: time.Now}
}

func (b *RedisBlacklist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(b.now())
	if ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, blacklistKeyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("users: blacklist token: %w", err)
	}
	return nil
}

func (b *RedisBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, blacklistKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("users: check blacklist: %w", err)
	}
	return n > 0, nil
}

// MemoryBlacklist is an in-process Blacklist for development and tests.
type MemoryBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryBlacklist creates an empty in-memory blacklist.
func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{revoked: make(map[string]time.Time), now: time.Now}
}

func (b *MemoryBlacklist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	for id, exp := range b.revoked {
		if !exp.After(now) {
			delete(b.revoked, id)
		}
	}
	if expiresAt.After(now) {
		b.revoked[jti] = expiresAt
	}
	return nil
}

func (b *MemoryBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	exp, ok := b.revoked[jti]
	return ok && exp.After(b.now()), nil
}
