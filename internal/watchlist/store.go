// Package watchlist manages named ticker lists. Categories persist in
// SQLite; one category can optionally mirror to an Alpaca watchlist.
package watchlist

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// DefaultCategory is the category used when a caller names none.
const DefaultCategory = "default"

// Store persists named watchlist categories.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens (or creates) the watchlist database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS watchlist (
		category TEXT NOT NULL,
		ticker   TEXT NOT NULL,
		pos      INTEGER NOT NULL,
		PRIMARY KEY (category, ticker)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func normCategory(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return DefaultCategory
	}
	return category
}

// Categories lists all category names, sorted.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM watchlist ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Symbols returns a category's tickers in insertion order.
func (s *Store) Symbols(ctx context.Context, category string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT ticker FROM watchlist WHERE category = ? ORDER BY pos`,
		normCategory(category))
	if err != nil {
		return nil, fmt.Errorf("listing symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		symbols = append(symbols, t)
	}
	return symbols, rows.Err()
}

// Add appends a ticker to a category. Re-adding an existing ticker is a
// no-op that keeps its position.
func (s *Store) Add(ctx context.Context, category, ticker string) error {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return fmt.Errorf("empty ticker")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	category = normCategory(category)
	var next int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(pos)+1, 0) FROM watchlist WHERE category = ?`,
		category).Scan(&next); err != nil {
		return fmt.Errorf("next position: %w", err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO watchlist (category, ticker, pos) VALUES (?,?,?)`,
		category, ticker, next)
	if err != nil {
		return fmt.Errorf("adding %s to %s: %w", ticker, category, err)
	}
	return nil
}

// Remove deletes a ticker from a category.
func (s *Store) Remove(ctx context.Context, category, ticker string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM watchlist WHERE category = ? AND ticker = ?`,
		normCategory(category), strings.ToUpper(strings.TrimSpace(ticker)))
	if err != nil {
		return fmt.Errorf("removing %s from %s: %w", ticker, category, err)
	}
	return nil
}

// DeleteCategory removes a category and everything in it.
func (s *Store) DeleteCategory(ctx context.Context, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM watchlist WHERE category = ?`, normCategory(category))
	if err != nil {
		return fmt.Errorf("deleting category %s: %w", category, err)
	}
	return nil
}
