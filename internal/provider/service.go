package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"candleboard/internal/domain"
	"candleboard/internal/news"
	"candleboard/internal/util"
)

// ChartData is one complete payload for a ticker/period: enriched bars
// plus the news covering the same span.
type ChartData struct {
	Bars []domain.Bar
	News []domain.NewsItem
}

// ChartCache stores assembled chart payloads and per-day news lists.
// Implementations must treat a miss as (zero, false), never an error.
type ChartCache interface {
	GetChart(ctx context.Context, ticker, period string) (ChartData, bool)
	PutChart(ctx context.Context, ticker, period string, data ChartData)
	GetDayNews(ctx context.Context, ticker, date string) ([]domain.NewsItem, bool)
	PutDayNews(ctx context.Context, ticker, date string, items []domain.NewsItem)
}

// Service assembles chart data cache-first, then Alpaca, then the
// fallback sources.
type Service struct {
	alpaca  *AlpacaSource
	yahoo   *YahooSource
	cache   ChartCache // nil disables caching
	windows []int
	log     *slog.Logger
}

// NewService wires a provider service. cache may be nil.
func NewService(alpaca *AlpacaSource, yahoo *YahooSource, cache ChartCache, windows []int) *Service {
	return &Service{
		alpaca:  alpaca,
		yahoo:   yahoo,
		cache:   cache,
		windows: windows,
		log:     slog.Default().With("component", "provider"),
	}
}

// periodDays maps a chart period to its calendar-day span. Unknown
// periods fall back to one year.
var periodDays = map[string]int{
	"1mo": 31,
	"3mo": 92,
	"6mo": 183,
	"1y":  365,
	"2y":  731,
	"5y":  1827,
}

func periodSpan(period string) (time.Time, time.Time) {
	days, ok := periodDays[period]
	if !ok {
		days = periodDays["1y"]
	}
	end := time.Now().UTC()
	return end.AddDate(0, 0, -days), end
}

// PeriodStart returns the first calendar day covered by a chart period.
// Cache layers use it to bound their row scans.
func PeriodStart(period string) time.Time {
	start, _ := periodSpan(period)
	return start
}

// ValidPeriod reports whether period names a supported chart span.
func ValidPeriod(period string) bool {
	_, ok := periodDays[period]
	return ok
}

func yahooRange(period string) string {
	if _, ok := periodDays[period]; ok {
		return period
	}
	return "1y"
}

// ChartData returns enriched bars and news for a ticker/period. Bars
// come from cache, then Alpaca, then Yahoo; a total bar failure is an
// error. News failures are not: the payload ships with an empty list
// and the chart stays usable.
func (s *Service) ChartData(ctx context.Context, ticker, period string) (ChartData, error) {
	if s.cache != nil {
		if data, ok := s.cache.GetChart(ctx, ticker, period); ok {
			// The cache stores raw OHLCV; derived fields are cheap to
			// recompute and track the configured windows.
			Enrich(data.Bars, s.windows)
			return data, nil
		}
	}

	start, end := periodSpan(period)

	var bars []domain.Bar
	err := util.Retry(ctx, 2, 500*time.Millisecond, func() error {
		var ferr error
		bars, ferr = s.alpaca.DailyBars(ctx, ticker, start, end)
		return ferr
	})
	if err != nil || len(bars) == 0 {
		if err != nil {
			s.log.Warn("alpaca bars failed, trying yahoo", "ticker", ticker, "error", err)
		}
		bars, err = s.yahoo.DailyBars(ctx, ticker, yahooRange(period))
		if err != nil {
			return ChartData{}, fmt.Errorf("fetching bars for %s: %w", ticker, err)
		}
	}
	bars = normalizeBars(bars)
	Enrich(bars, s.windows)

	items, err := s.alpaca.News(ctx, ticker, start, end)
	if err != nil {
		s.log.Warn("news fetch failed", "ticker", ticker, "error", err)
		items = nil
	}

	data := ChartData{Bars: bars, News: items}
	if s.cache != nil {
		s.cache.PutChart(ctx, ticker, period, data)
	}
	return data, nil
}

// NewsByDate resolves news for one ticker on one calendar day: cache,
// then Alpaca for that day, then Google News RSS. All sources failing
// yields an empty list, not an error; only a malformed date errors.
func (s *Service) NewsByDate(ctx context.Context, ticker, date string) ([]domain.NewsItem, error) {
	day, err := domain.ParseDay(date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	if s.cache != nil {
		if items, ok := s.cache.GetDayNews(ctx, ticker, date); ok {
			return items, nil
		}
	}

	items, err := s.alpaca.News(ctx, ticker, day, day.AddDate(0, 0, 1))
	if err != nil || len(items) == 0 {
		if err != nil {
			s.log.Warn("alpaca news failed, trying google", "ticker", ticker, "date", date, "error", err)
		}
		items, err = news.FetchGoogleNews(ticker, date)
		if err != nil {
			s.log.Warn("google news failed", "ticker", ticker, "date", date, "error", err)
			items = nil
		}
	}
	if items == nil {
		items = []domain.NewsItem{}
	}

	if s.cache != nil {
		s.cache.PutDayNews(ctx, ticker, date, items)
	}
	return items, nil
}

// normalizeBars sorts bars by day key and collapses duplicate days,
// keeping the later record. Downstream the series store rejects any
// remaining disorder outright, so upstream quirks get smoothed here.
func normalizeBars(bars []domain.Bar) []domain.Bar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time < bars[j].Time })
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Time == b.Time {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
