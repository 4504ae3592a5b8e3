package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/actuallystonmai/menu-planner/internal/domain"
)

const (
	defaultTTL = 10 * time.Minute
	keyPrefix  = "plan:"
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{client: client, ttl: ttl, now: time.Now}
}

// Key identifies a plan by the catalog version it was solved against and
// the request that produced it.
func Key(version string, req domain.PlanRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal plan request: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(version))
	h.Write([]byte{0})
	h.Write(body)
	return keyPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

// Cacheable reports whether a result is a pure function of its key.
// Timed-out and unsolved results depend on how long the search was given.
func Cacheable(res *domain.PlanResult) bool {
	return res.Status == domain.StatusOptimal || res.Status == domain.StatusInfeasible
}

// Get plan from cache
func (c *Cache) Get(ctx context.Context, key string) (*domain.PlanResult, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get plan from cache: %w", err)
	}

	var res domain.PlanResult
	if err := json.Unmarshal(val, &res); err != nil {
		return nil, false, fmt.Errorf("unmarshal plan %s: %w", key, err)
	}
	return &res, true, nil
}

// Store plan in cache. A non-zero notAfter caps the entry's lifetime; a
// notAfter already past stores nothing.
func (c *Cache) Set(ctx context.Context, key string, res *domain.PlanResult, notAfter time.Time) error {
	ttl := c.ttl
	if !notAfter.IsZero() {
		left := notAfter.Sub(c.now())
		if left <= 0 {
			return nil
		}
		ttl = min(ttl, left)
	}
	val, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	if err := c.client.Set(ctx, key, val, ttl).Err(); err != nil {
		return fmt.Errorf("set plan in cache: %w", err)
	}
	return nil
}

// Clear drops every cached plan. The server calls it after seeding.
func (c *Cache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("cache delete %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}

// Ping connectivity
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
