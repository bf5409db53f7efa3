package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/ticketbooth-backend/pkg/config"
	"github.com/angelmondragon/ticketbooth-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Keys look like tb:<kind>:<parts...>.
const (
	keyNamespace  = "tb"
	kindRateLimit = "rate_limit"
	kindSession   = "session"
)

var errNotInitialized = errors.New("redis client not initialized")

// commands is the slice of go-redis this package drives.
type commands interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	Del(context.Context, ...string) *redis.IntCmd
	Incr(context.Context, string) *redis.IntCmd
	Expire(context.Context, string, time.Duration) *redis.BoolCmd
}

// Client keeps live session ids and auth rate-limit counters.
type Client struct {
	cmds commands
	conn *redis.Client
}

// RateLimiter is the surface used by the auth rate limit middleware.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// New connects with the configured pool and fails fast when Redis is unreachable.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	conn := redis.NewClient(opts)
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "redis_addr", opts.Addr), "redis connection established")
	}
	return &Client{cmds: conn, conn: conn}, nil
}

// optionsFromConfig prefers TICKETBOOTH_REDIS_URL. Pool and timeout settings
// from config fill whatever the URL left unset.
func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	opts := &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	case cfg.Address == "":
		return nil, errors.New("redis url or address is required")
	}

	fill(&opts.DB, cfg.DB)
	fill(&opts.PoolSize, cfg.PoolSize)
	fill(&opts.MinIdleConns, cfg.MinIdleConns)
	fill(&opts.DialTimeout, cfg.DialTimeout)
	fill(&opts.ReadTimeout, cfg.ReadTimeout)
	fill(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func fill[T int | time.Duration](dst *T, fallback T) {
	if *dst == 0 {
		*dst = fallback
	}
}

// FixedWindowAllow counts one hit against scope. The window starts with the
// first hit; a counter found without a TTL gets one so it cannot stick forever.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if c.cmds == nil {
		return false, 0, errNotInitialized
	}
	key := c.RateLimitKey(scope)
	count, err := c.cmds.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("count %s: %w", key, err)
	}
	if count == 1 && window > 0 {
		if err := c.cmds.Expire(ctx, key, window).Err(); err != nil {
			return false, count, fmt.Errorf("start window %s: %w", key, err)
		}
	}
	return count <= limit, count, nil
}

// PutSession records accessID as a live session owned by userID.
func (c *Client) PutSession(ctx context.Context, accessID, userID string, ttl time.Duration) error {
	if c.cmds == nil {
		return errNotInitialized
	}
	return c.cmds.Set(ctx, c.AccessSessionKey(accessID), userID, ttl).Err()
}

// SessionOwner returns the user id behind accessID. found is false once the
// session expired or was revoked.
func (c *Client) SessionOwner(ctx context.Context, accessID string) (owner string, found bool, err error) {
	if c.cmds == nil {
		return "", false, errNotInitialized
	}
	owner, err = c.cmds.Get(ctx, c.AccessSessionKey(accessID)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return owner, true, nil
}

// DropSession revokes accessID. Dropping an unknown session is not an error.
func (c *Client) DropSession(ctx context.Context, accessID string) error {
	if c.cmds == nil {
		return errNotInitialized
	}
	return c.cmds.Del(ctx, c.AccessSessionKey(accessID)).Err()
}

func (c *Client) RateLimitKey(scope string) string {
	return key(kindRateLimit, scope)
}

func (c *Client) AccessSessionKey(accessID string) string {
	return key(kindSession, "access", accessID)
}

// Ping backs the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	if c.cmds == nil {
		return errNotInitialized
	}
	return c.cmds.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func key(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}
