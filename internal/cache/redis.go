package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"candleboard/internal/domain"
	"candleboard/internal/provider"
)

// Compile-time interface check.
var _ provider.ChartCache = (*RedisCache)(nil)

// RedisCache is a hot front for chart payloads, storing each lookup as
// one JSON blob with a TTL. A missing key is a miss, never an error.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// NewRedisCache connects to Redis at addr and verifies the connection.
func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
		log:    slog.Default().With("component", "redis-cache"),
	}, nil
}

// Close closes the client connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func chartKey(ticker, period string) string {
	return "chart:" + ticker + ":" + period
}

func dayNewsKey(ticker, date string) string {
	return "news:" + ticker + ":" + date
}

func (c *RedisCache) getJSON(ctx context.Context, key string, out any) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		c.log.Warn("get failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.log.Warn("decode failed", "key", key, "error", err)
		return false
	}
	return true
}

func (c *RedisCache) setJSON(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("encode failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("set failed", "key", key, "error", err)
	}
}

// GetChart returns the cached payload for (ticker, period).
func (c *RedisCache) GetChart(ctx context.Context, ticker, period string) (provider.ChartData, bool) {
	var data provider.ChartData
	if !c.getJSON(ctx, chartKey(ticker, period), &data) {
		return provider.ChartData{}, false
	}
	return data, len(data.Bars) > 0
}

// PutChart stores the payload under its (ticker, period) key.
func (c *RedisCache) PutChart(ctx context.Context, ticker, period string, data provider.ChartData) {
	c.setJSON(ctx, chartKey(ticker, period), data)
}

// GetDayNews returns cached news for one day; a stored empty list is a
// hit.
func (c *RedisCache) GetDayNews(ctx context.Context, ticker, date string) ([]domain.NewsItem, bool) {
	var items []domain.NewsItem
	if !c.getJSON(ctx, dayNewsKey(ticker, date), &items) {
		return nil, false
	}
	if items == nil {
		items = []domain.NewsItem{}
	}
	return items, true
}

// PutDayNews stores one day's articles.
func (c *RedisCache) PutDayNews(ctx context.Context, ticker, date string, items []domain.NewsItem) {
	if items == nil {
		items = []domain.NewsItem{}
	}
	c.setJSON(ctx, dayNewsKey(ticker, date), items)
}
