package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/kiko-social-backend/pkg/config"
	"github.com/angelmondragon/kiko-social-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	defaultNamespace = "kiko"
	rateLimitPrefix  = "rate_limit"
	docPrefix        = "doc"
	indexPrefix      = "idx"
	membersPrefix    = "members"
)

const maxWatchAttempts = 5

var errNotInitialized = errors.New("redis client not initialized")

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Time(context.Context) *redis.TimeCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	MGet(context.Context, ...string) *redis.SliceCmd
	Incr(context.Context, string) *redis.IntCmd
	Expire(context.Context, string, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
	SAdd(context.Context, string, ...any) *redis.IntCmd
	SRem(context.Context, string, ...any) *redis.IntCmd
	SMembers(context.Context, string) *redis.StringSliceCmd
	ZAdd(context.Context, string, ...redis.Z) *redis.IntCmd
	ZRem(context.Context, string, ...any) *redis.IntCmd
	ZRange(context.Context, string, int64, int64) *redis.StringSliceCmd
}

// docWriter is the write surface shared by the client and a MULTI pipeline.
type docWriter interface {
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	SAdd(context.Context, string, ...any) *redis.IntCmd
	ZAdd(context.Context, string, ...redis.Z) *redis.IntCmd
}

// docTx reads inside a WATCH and queues writes for EXEC.
type docTx interface {
	Get(context.Context, string) *redis.StringCmd
	Exec(context.Context, func(docWriter) error) error
}

type watchFunc func(ctx context.Context, fn func(docTx) error, keys ...string) error

// Client wraps the redis connection helpers needed by the engine.
type Client struct {
	store     cmdable
	watch     watchFunc
	raw       *redis.Client
	namespace string
}

type redisTx struct {
	tx *redis.Tx
}

func (t redisTx) Get(ctx context.Context, key string) *redis.StringCmd {
	return t.tx.Get(ctx, key)
}

func (t redisTx) Exec(ctx context.Context, fn func(docWriter) error) error {
	_, err := t.tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		return fn(pipe)
	})
	return err
}

func watchClient(raw *redis.Client) watchFunc {
	return func(ctx context.Context, fn func(docTx) error, keys ...string) error {
		return raw.Watch(ctx, func(tx *redis.Tx) error {
			return fn(redisTx{tx: tx})
		}, keys...)
	}
}

// New bootstraps a Redis client with pooling/timeouts and verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig, namespace string, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "redis connection established")
	}
	return &Client{store: raw, watch: watchClient(raw), raw: raw, namespace: namespace}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// withWatch runs fn under WATCH on keys and retries when another client
// modified them before EXEC.
func (c *Client) withWatch(ctx context.Context, fn func(docTx) error, keys ...string) error {
	if c.watch == nil {
		return errNotInitialized
	}
	var err error
	for attempt := 0; attempt < maxWatchAttempts; attempt++ {
		err = c.watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("watch %s: %w", strings.Join(keys, ","), err)
}

// Incr increments the counter stored at key.
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	if c.store == nil {
		return 0, errNotInitialized
	}
	return c.store.Incr(ctx, key).Result()
}

// IncrWithTTL increments and ensures the key has the supplied TTL on the first increment.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := c.Incr(ctx, key)
	if err != nil {
		return 0, err
	}
	if ttl > 0 && count == 1 {
		if _, expErr := c.store.Expire(ctx, key, ttl).Result(); expErr != nil {
			return count, expErr
		}
	}
	return count, nil
}

// FixedWindowAllow applies a simple fixed-window rate limit.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	key := c.RateLimitKey(scope)
	count, err := c.IncrWithTTL(ctx, key, window)
	if err != nil {
		return false, 0, err
	}
	return count <= limit, count, nil
}

// RateLimitKey returns a namespaced key for rate limit counters.
func (c *Client) RateLimitKey(scope string) string {
	return c.buildKey(rateLimitPrefix, scope)
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Ping(ctx).Err()
}

// Close shuts down the underlying client if available.
func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

func (c *Client) docKey(collection, child string) string {
	return c.buildKey(docPrefix, collection, child)
}

func (c *Client) indexKey(collection, field string) string {
	return c.buildKey(indexPrefix, collection, field)
}

func (c *Client) membersKey(collection string) string {
	return c.buildKey(membersPrefix, collection)
}

func (c *Client) buildKey(parts ...string) string {
	ns := c.namespace
	if ns == "" {
		ns = defaultNamespace
	}
	clean := []string{ns}
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		clean = append(clean, part)
	}
	return strings.Join(clean, ":")
}
