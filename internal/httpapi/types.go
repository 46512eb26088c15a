// Package httpapi serves the chart data over a REST surface: OHLCV
// payloads with per-window moving averages, per-day news lookups, and
// watchlist management.
package httpapi

import (
	"fmt"

	"candleboard/internal/domain"
)

// NewsItemJSON is one news article in API responses.
type NewsItemJSON struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	URL     string `json:"url,omitempty"`
	Source  string `json:"source"`
	PubDate string `json:"pubDate"`
}

// OHLCVResponse is the payload for GET /api/ohlcv. The bar objects
// carry one maN/vol_maN pair per configured window, so the set of keys
// follows the server's window configuration.
type OHLCVResponse struct {
	Ticker  string           `json:"ticker"`
	Period  string           `json:"period"`
	Data    []map[string]any `json:"data"`
	News    []NewsItemJSON   `json:"news"`
	Success bool             `json:"success"`
	Error   string           `json:"error,omitempty"`
}

// NewsByDateResponse is the payload for GET /api/news-by-date.
type NewsByDateResponse struct {
	Ticker  string         `json:"ticker"`
	Date    string         `json:"date"`
	News    []NewsItemJSON `json:"news"`
	Source  string         `json:"source"`
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
}

// WatchlistResponse lists one category's symbols.
type WatchlistResponse struct {
	Category string   `json:"category"`
	Symbols  []string `json:"symbols"`
}

// CategoriesResponse lists watchlist category names.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// convertBar flattens one bar into the wire shape. Windows without a
// value emit explicit nulls so clients see the leading stretch.
func convertBar(b domain.Bar, windows []int) map[string]any {
	m := map[string]any{
		"time":   b.Time,
		"open":   b.Open,
		"high":   b.High,
		"low":    b.Low,
		"close":  b.Close,
		"volume": b.Volume,
	}
	for _, w := range windows {
		maKey := fmt.Sprintf("ma%d", w)
		volKey := fmt.Sprintf("vol_ma%d", w)
		if v, ok := b.MA[w]; ok {
			m[maKey] = v
		} else {
			m[maKey] = nil
		}
		if v, ok := b.VolMA[w]; ok {
			m[volKey] = v
		} else {
			m[volKey] = nil
		}
	}
	if b.CloseChangePct != nil {
		m["close_change_pct"] = *b.CloseChangePct
	} else {
		m["close_change_pct"] = nil
	}
	if b.VolumeChangePct != nil {
		m["volume_change_pct"] = *b.VolumeChangePct
	} else {
		m["volume_change_pct"] = nil
	}
	return m
}

func convertNews(items []domain.NewsItem) []NewsItemJSON {
	out := make([]NewsItemJSON, 0, len(items))
	for _, it := range items {
		out = append(out, NewsItemJSON{
			Title:   it.Title,
			Summary: it.Summary,
			URL:     it.URL,
			Source:  it.Source,
			PubDate: it.PubDate,
		})
	}
	return out
}
