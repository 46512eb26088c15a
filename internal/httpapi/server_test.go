package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"candleboard/internal/domain"
	"candleboard/internal/provider"
	"candleboard/internal/watchlist"
)

// stubCache pre-seeds provider lookups so handler tests never reach the
// network.
type stubCache struct {
	charts map[string]provider.ChartData
	news   map[string][]domain.NewsItem
}

func (c *stubCache) GetChart(_ context.Context, ticker, period string) (provider.ChartData, bool) {
	d, ok := c.charts[ticker+":"+period]
	return d, ok
}

func (c *stubCache) PutChart(_ context.Context, ticker, period string, data provider.ChartData) {
	c.charts[ticker+":"+period] = data
}

func (c *stubCache) GetDayNews(_ context.Context, ticker, date string) ([]domain.NewsItem, bool) {
	items, ok := c.news[ticker+":"+date]
	return items, ok
}

func (c *stubCache) PutDayNews(_ context.Context, ticker, date string, items []domain.NewsItem) {
	c.news[ticker+":"+date] = items
}

func newTestServer(t *testing.T) (*Server, *stubCache) {
	t.Helper()
	cache := &stubCache{
		charts: make(map[string]provider.ChartData),
		news:   make(map[string][]domain.NewsItem),
	}
	svc := provider.NewService(
		provider.NewAlpacaSource("", "", ""),
		provider.NewYahooSource(),
		cache,
		[]int{5, 20},
	)
	lists, err := watchlist.NewStore(filepath.Join(t.TempDir(), "wl.db"))
	if err != nil {
		t.Fatalf("watchlist store: %v", err)
	}
	t.Cleanup(func() { lists.Close() })
	return NewServer(svc, lists, nil, []int{5, 20}, slog.Default()), cache
}

func doRequest(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestOHLCVValidation(t *testing.T) {
	s, _ := newTestServer(t)

	if rec := doRequest(s, "GET", "/api/ohlcv"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing ticker: status %d", rec.Code)
	}
	if rec := doRequest(s, "GET", "/api/ohlcv?ticker=AAPL&period=intraday"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad period: status %d", rec.Code)
	}
}

func TestOHLCVFromCache(t *testing.T) {
	s, cache := newTestServer(t)

	cache.charts["AAPL:6mo"] = provider.ChartData{
		Bars: []domain.Bar{
			{Time: "2024-01-02", Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 1000},
			{Time: "2024-01-03", Open: 100.5, High: 103, Low: 100, Close: 102, Volume: 1500},
		},
		News: []domain.NewsItem{
			{Title: "Earnings beat", Source: "alpaca", PubDate: "2024-01-03"},
		},
	}

	rec := doRequest(s, "GET", "/api/ohlcv?ticker=aapl&period=6mo")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp OHLCVResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Ticker != "AAPL" || len(resp.Data) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if len(resp.News) != 1 || resp.News[0].PubDate != "2024-01-03" {
		t.Errorf("news = %+v", resp.News)
	}

	bar := resp.Data[0]
	if bar["time"] != "2024-01-02" {
		t.Errorf("bar time = %v", bar["time"])
	}
	// First bar sits in the 5-day leading stretch: explicit null.
	if v, present := bar["ma5"]; !present || v != nil {
		t.Errorf("ma5 = %v (present=%v), want explicit null", v, present)
	}
	if v, present := bar["close_change_pct"]; !present || v != nil {
		t.Errorf("first bar close_change_pct = %v (present=%v), want null", v, present)
	}
	if v, ok := resp.Data[1]["close_change_pct"].(float64); !ok || v < 1.4 || v > 1.6 {
		t.Errorf("second bar close_change_pct = %v", resp.Data[1]["close_change_pct"])
	}
}

func TestNewsByDate(t *testing.T) {
	s, cache := newTestServer(t)

	if rec := doRequest(s, "GET", "/api/news-by-date?ticker=AAPL"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing date: status %d", rec.Code)
	}
	if rec := doRequest(s, "GET", "/api/news-by-date?ticker=AAPL&date=tomorrow"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad date: status %d", rec.Code)
	}

	cache.news["AAPL:2024-01-03"] = []domain.NewsItem{
		{Title: "Earnings beat", Source: "alpaca", PubDate: "2024-01-03"},
	}
	rec := doRequest(s, "GET", "/api/news-by-date?ticker=AAPL&date=2024-01-03")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp NewsByDateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || len(resp.News) != 1 || resp.Source != "alpaca" {
		t.Errorf("resp = %+v", resp)
	}

	// A cached empty day is success with an empty list.
	cache.news["AAPL:2024-01-04"] = []domain.NewsItem{}
	rec = doRequest(s, "GET", "/api/news-by-date?ticker=AAPL&date=2024-01-04")
	resp = NewsByDateResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || len(resp.News) != 0 || resp.Source != "none" {
		t.Errorf("empty day resp = %+v", resp)
	}
}

func TestWatchlistEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, "GET", "/api/watchlist")
	var wl WatchlistResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &wl); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(wl.Symbols) != 0 {
		t.Errorf("fresh watchlist = %v", wl.Symbols)
	}

	if rec := doRequest(s, "PUT", "/api/watchlist/aapl?category=tech"); rec.Code != http.StatusNoContent {
		t.Fatalf("add: status %d", rec.Code)
	}
	if rec := doRequest(s, "PUT", "/api/watchlist/MSFT?category=tech"); rec.Code != http.StatusNoContent {
		t.Fatalf("add: status %d", rec.Code)
	}

	rec = doRequest(s, "GET", "/api/watchlist?category=tech")
	wl = WatchlistResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &wl); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(wl.Symbols) != 2 || wl.Symbols[0] != "AAPL" {
		t.Errorf("symbols = %v", wl.Symbols)
	}

	if rec := doRequest(s, "DELETE", "/api/watchlist/AAPL?category=tech"); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}
	rec = doRequest(s, "GET", "/api/watchlist?category=tech")
	wl = WatchlistResponse{}
	json.Unmarshal(rec.Body.Bytes(), &wl)
	if len(wl.Symbols) != 1 || wl.Symbols[0] != "MSFT" {
		t.Errorf("after delete: %v", wl.Symbols)
	}

	rec = doRequest(s, "GET", "/api/watchlist/categories")
	var cats CategoriesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &cats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cats.Categories) != 1 || cats.Categories[0] != "tech" {
		t.Errorf("categories = %v", cats.Categories)
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, "OPTIONS", "/api/ohlcv")
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
