// Package cache persists fetched chart data so repeat loads and
// upstream outages don't hit the market-data APIs. The SQLite layer is
// the durable store; Redis is an optional hot front; Parquet archives
// bar history for offline use.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"candleboard/internal/domain"
	"candleboard/internal/provider"
)

// Compile-time interface check.
var _ provider.ChartCache = (*SQLiteCache)(nil)

// SQLiteCache stores raw OHLCV rows and news articles keyed the way the
// chart API asks for them. Freshness is tracked per (ticker, period)
// and per (ticker, date) so a cached-empty news day is a hit, not a
// miss.
type SQLiteCache struct {
	db  *sql.DB
	mu  sync.Mutex
	ttl time.Duration
	log *slog.Logger
}

// NewSQLiteCache opens (or creates) the cache database at dbPath, runs
// migrations, and enables WAL for concurrent readers.
func NewSQLiteCache(dbPath string, ttl time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	c := &SQLiteCache{db: db, ttl: ttl, log: slog.Default().With("component", "sqlite-cache")}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return c, nil
}

func (c *SQLiteCache) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ohlcv_cache (
			ticker     TEXT NOT NULL,
			date       TEXT NOT NULL,
			open       REAL,
			high       REAL,
			low        REAL,
			close      REAL,
			volume     INTEGER,
			PRIMARY KEY (ticker, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ohlcv_date ON ohlcv_cache(date)`,

		`CREATE TABLE IF NOT EXISTS news_cache (
			ticker   TEXT NOT NULL,
			pub_date TEXT NOT NULL,
			title    TEXT NOT NULL,
			summary  TEXT,
			url      TEXT,
			source   TEXT,
			PRIMARY KEY (ticker, pub_date, title)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_news_pubdate ON news_cache(pub_date)`,

		`CREATE TABLE IF NOT EXISTS chart_meta (
			ticker     TEXT NOT NULL,
			period     TEXT NOT NULL,
			fetched_at INTEGER NOT NULL,
			PRIMARY KEY (ticker, period)
		)`,

		`CREATE TABLE IF NOT EXISTS day_news_meta (
			ticker     TEXT NOT NULL,
			date       TEXT NOT NULL,
			fetched_at INTEGER NOT NULL,
			PRIMARY KEY (ticker, date)
		)`,
	}
	for _, s := range stmts {
		if _, err := c.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

func (c *SQLiteCache) fresh(fetchedAt int64) bool {
	return time.Since(time.Unix(fetchedAt, 0)) <= c.ttl
}

// GetChart returns the cached payload for (ticker, period) when the
// meta row is fresh. Bars come back raw; the provider re-enriches.
func (c *SQLiteCache) GetChart(ctx context.Context, ticker, period string) (provider.ChartData, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var fetchedAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT fetched_at FROM chart_meta WHERE ticker = ? AND period = ?`,
		ticker, period).Scan(&fetchedAt)
	if err != nil || !c.fresh(fetchedAt) {
		return provider.ChartData{}, false
	}

	startDay := domain.Day(provider.PeriodStart(period))

	rows, err := c.db.QueryContext(ctx,
		`SELECT date, open, high, low, close, volume FROM ohlcv_cache
		 WHERE ticker = ? AND date >= ? ORDER BY date`,
		ticker, startDay)
	if err != nil {
		c.log.Warn("bar scan failed", "ticker", ticker, "error", err)
		return provider.ChartData{}, false
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var b domain.Bar
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return provider.ChartData{}, false
		}
		bars = append(bars, b)
	}
	if rows.Err() != nil || len(bars) == 0 {
		return provider.ChartData{}, false
	}

	items, err := c.newsSince(ctx, ticker, startDay)
	if err != nil {
		return provider.ChartData{}, false
	}
	return provider.ChartData{Bars: bars, News: items}, true
}

// PutChart upserts bars and news rows and refreshes the meta stamp in
// one transaction.
func (c *SQLiteCache) PutChart(ctx context.Context, ticker, period string, data provider.ChartData) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		c.log.Warn("begin tx failed", "error", err)
		return
	}
	defer tx.Rollback()

	for _, b := range data.Bars {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO ohlcv_cache (ticker, date, open, high, low, close, volume)
			 VALUES (?,?,?,?,?,?,?)`,
			ticker, b.Time, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			c.log.Warn("bar upsert failed", "ticker", ticker, "date", b.Time, "error", err)
			return
		}
	}
	if err := c.insertNews(ctx, tx, ticker, data.News); err != nil {
		return
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO chart_meta (ticker, period, fetched_at) VALUES (?,?,?)`,
		ticker, period, time.Now().Unix()); err != nil {
		c.log.Warn("meta upsert failed", "ticker", ticker, "error", err)
		return
	}
	if err := tx.Commit(); err != nil {
		c.log.Warn("commit failed", "ticker", ticker, "error", err)
	}
}

// GetDayNews returns cached news for one day. A fresh meta row with
// zero articles is a hit with an empty list.
func (c *SQLiteCache) GetDayNews(ctx context.Context, ticker, date string) ([]domain.NewsItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var fetchedAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT fetched_at FROM day_news_meta WHERE ticker = ? AND date = ?`,
		ticker, date).Scan(&fetchedAt)
	if err != nil || !c.fresh(fetchedAt) {
		return nil, false
	}

	items, err := c.newsForDay(ctx, ticker, date)
	if err != nil {
		return nil, false
	}
	if items == nil {
		items = []domain.NewsItem{}
	}
	return items, true
}

// PutDayNews stores one day's articles and stamps the day as fetched.
func (c *SQLiteCache) PutDayNews(ctx context.Context, ticker, date string, items []domain.NewsItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		c.log.Warn("begin tx failed", "error", err)
		return
	}
	defer tx.Rollback()

	if err := c.insertNews(ctx, tx, ticker, items); err != nil {
		return
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO day_news_meta (ticker, date, fetched_at) VALUES (?,?,?)`,
		ticker, date, time.Now().Unix()); err != nil {
		c.log.Warn("day meta upsert failed", "ticker", ticker, "date", date, "error", err)
		return
	}
	if err := tx.Commit(); err != nil {
		c.log.Warn("commit failed", "ticker", ticker, "error", err)
	}
}

func (c *SQLiteCache) insertNews(ctx context.Context, tx *sql.Tx, ticker string, items []domain.NewsItem) error {
	for _, it := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO news_cache (ticker, pub_date, title, summary, url, source)
			 VALUES (?,?,?,?,?,?)`,
			ticker, it.PubDate, it.Title, it.Summary, it.URL, it.Source); err != nil {
			c.log.Warn("news upsert failed", "ticker", ticker, "error", err)
			return err
		}
	}
	return nil
}

func (c *SQLiteCache) newsSince(ctx context.Context, ticker, startDay string) ([]domain.NewsItem, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT pub_date, title, summary, url, source FROM news_cache
		 WHERE ticker = ? AND pub_date >= ? ORDER BY pub_date`,
		ticker, startDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNews(rows)
}

func (c *SQLiteCache) newsForDay(ctx context.Context, ticker, date string) ([]domain.NewsItem, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT pub_date, title, summary, url, source FROM news_cache
		 WHERE ticker = ? AND pub_date = ? ORDER BY title`,
		ticker, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNews(rows)
}

func scanNews(rows *sql.Rows) ([]domain.NewsItem, error) {
	var items []domain.NewsItem
	for rows.Next() {
		var it domain.NewsItem
		if err := rows.Scan(&it.PubDate, &it.Title, &it.Summary, &it.URL, &it.Source); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
