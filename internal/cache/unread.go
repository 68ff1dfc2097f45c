// Package cache keeps per-user unread notification counts out of postgres
// on the hot polling path.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/emilythestrangee/devcove/internal/config"
)

const (
	// UnreadKeyPrefix prefixes the per-recipient count key.
	UnreadKeyPrefix = "notifications:unread:"
	// GenerationKeyPrefix prefixes the per-recipient invalidation counter.
	GenerationKeyPrefix = "notifications:unread-gen:"

	generationTTL = 24 * time.Hour
)

// ErrStale is returned by Set when the recipient was invalidated after the
// generation handed to Set was read.
var ErrStale = errors.New("unread count invalidated while it was loaded")

// Lookup is a cache read. On a miss Generation must be passed back to Set.
type Lookup struct {
	Count      int
	Found      bool
	Generation int64
}

// UnreadCounter caches the unread notification count of a recipient.
// Invalidate bumps the recipient's generation, so a count computed before
// it can never be stored after it.
type UnreadCounter interface {
	Get(ctx context.Context, userID int) (Lookup, error)
	Set(ctx context.Context, userID int, generation int64, count int) error
	Invalidate(ctx context.Context, userID int) error
}

// Outcome labels how ReadThrough served a count.
type Outcome string

const (
	OutcomeHit   Outcome = "hit"
	OutcomeMiss  Outcome = "miss"
	OutcomeStale Outcome = "stale"
	OutcomeError Outcome = "error"
)

// ReadThrough serves userID's count from c and falls back to load on a
// miss. A loaded count is stored only if no Invalidate ran meanwhile.
// Cache failures are logged and never fail the read.
func ReadThrough(ctx context.Context, c UnreadCounter, userID int, load func(context.Context) (int, error)) (int, Outcome, error) {
	lookup, err := c.Get(ctx, userID)
	if err == nil && lookup.Found {
		return lookup.Count, OutcomeHit, nil
	}
	outcome := OutcomeMiss
	if err != nil {
		outcome = OutcomeError
		slog.Warn("unread cache read failed", "user_id", userID, "error", err)
	}

	count, err := load(ctx)
	if err != nil {
		return 0, outcome, err
	}
	if outcome == OutcomeError {
		return count, outcome, nil
	}

	switch err := c.Set(ctx, userID, lookup.Generation, count); {
	case errors.Is(err, ErrStale):
		return count, OutcomeStale, nil
	case err != nil:
		slog.Warn("unread cache write failed", "user_id", userID, "error", err)
	}
	return count, outcome, nil
}

// UnreadKey is the redis key holding userID's count.
func UnreadKey(userID int) string {
	return UnreadKeyPrefix + strconv.Itoa(userID)
}

// GenerationKey is the redis key counting userID's invalidations.
func GenerationKey(userID int) string {
	return GenerationKeyPrefix + strconv.Itoa(userID)
}

type RedisUnreadCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to the configured redis and verifies it answers.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*RedisUnreadCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Address, err)
	}

	return NewRedisWithClient(client, cfg.TTL), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, ttl time.Duration) *RedisUnreadCache {
	return &RedisUnreadCache{client: client, ttl: ttl}
}

func (r *RedisUnreadCache) Get(ctx context.Context, userID int) (Lookup, error) {
	vals, err := r.client.MGet(ctx, UnreadKey(userID), GenerationKey(userID)).Result()
	if err != nil {
		return Lookup{}, fmt.Errorf("reading unread count for user %d: %w", userID, err)
	}

	var lookup Lookup
	if gen, ok := vals[1].(string); ok {
		if lookup.Generation, err = strconv.ParseInt(gen, 10, 64); err != nil {
			return Lookup{}, fmt.Errorf("parsing unread generation for user %d: %w", userID, err)
		}
	}
	if count, ok := vals[0].(string); ok {
		if lookup.Count, err = strconv.Atoi(count); err != nil {
			return Lookup{}, fmt.Errorf("parsing unread count for user %d: %w", userID, err)
		}
		lookup.Found = true
	}
	return lookup, nil
}

// Set stores count if userID's generation still equals generation.
func (r *RedisUnreadCache) Set(ctx context.Context, userID int, generation int64, count int) error {
	genKey := GenerationKey(userID)
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return ErrStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, UnreadKey(userID), count, r.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case errors.Is(err, ErrStale), errors.Is(err, redis.TxFailedErr):
		return ErrStale
	case err != nil:
		return fmt.Errorf("writing unread count for user %d: %w", userID, err)
	}
	return nil
}

func (r *RedisUnreadCache) Invalidate(ctx context.Context, userID int) error {
	genKey := GenerationKey(userID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, UnreadKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidating unread count for user %d: %w", userID, err)
	}
	return nil
}

func (r *RedisUnreadCache) Close() error {
	return r.client.Close()
}

// Nop never finds anything; used when redis is not configured.
type Nop struct{}

func (Nop) Get(context.Context, int) (Lookup, error)   { return Lookup{}, nil }
func (Nop) Set(context.Context, int, int64, int) error { return nil }
func (Nop) Invalidate(context.Context, int) error      { return nil }
