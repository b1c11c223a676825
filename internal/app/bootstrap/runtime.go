package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/lead-manager/internal/config"
	"github.com/wolfman30/lead-manager/internal/leads"
	"github.com/wolfman30/lead-manager/internal/users"
	"github.com/wolfman30/lead-manager/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildBlacklist stores revoked refresh tokens in Redis when a client is
// available and in process memory otherwise.
func BuildBlacklist(client *redis.Client, logger *logging.Logger) users.Blacklist {
	if logger == nil {
		logger = logging.Default()
	}
	if client == nil {
		logger.Warn("token blacklist is in-memory; revocations are lost on restart")
		return users.NewMemoryBlacklist()
	}
	return users.NewRedisBlacklist(client)
}

// Stores bundles the repositories the API runs on.
type Stores struct {
	Leads leads.Repository
	Users users.Repository
}

// BuildStores returns Postgres repositories when pool is set and in-memory
// ones otherwise. Callers pass a nil pool only when no database is configured.
func BuildStores(pool *pgxpool.Pool, logger *logging.Logger) Stores {
	if logger == nil {
		logger = logging.Default()
	}
	if pool == nil {
		logger.Warn("no database configured; using in-memory repositories")
		return Stores{
			Leads: leads.NewInMemoryRepository(),
			Users: users.NewInMemoryRepository(),
		}
	}
	return Stores{
		Leads: leads.NewPostgresRepository(pool),
		Users: users.NewPostgresRepository(pool),
	}
}
