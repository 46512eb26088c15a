// Package provider assembles chart-ready bar series and news from the
// upstream market-data sources. Alpaca is primary; Yahoo Finance serves
// as bar fallback and Google News RSS as news fallback.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"candleboard/internal/domain"
	"candleboard/internal/news"
)

// AlpacaSource fetches daily bars and news from the Alpaca market-data
// API.
type AlpacaSource struct {
	client *marketdata.Client
	log    *slog.Logger
}

// NewAlpacaSource creates an AlpacaSource with the given credentials.
// dataURL overrides the default marketdata endpoint when non-empty.
func NewAlpacaSource(apiKey, apiSecret, dataURL string) *AlpacaSource {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &AlpacaSource{
		client: marketdata.NewClient(opts),
		log:    slog.Default().With("source", "alpaca"),
	}
}

// DailyBars fetches daily OHLCV bars for one symbol within [start, end].
func (s *AlpacaSource) DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	alpacaBars, err := s.client.GetBars(strings.ToUpper(symbol), marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
		Feed:      "iex",
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}

	bars := make([]domain.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		bars = append(bars, domain.Bar{
			Time:   domain.Day(ab.Timestamp),
			Open:   ab.Open,
			High:   ab.High,
			Low:    ab.Low,
			Close:  ab.Close,
			Volume: int64(ab.Volume),
		})
	}
	return bars, nil
}

// News fetches news articles for one symbol within [start, end].
func (s *AlpacaSource) News(ctx context.Context, symbol string, start, end time.Time) ([]domain.NewsItem, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return news.FetchAlpacaNews(s.client, strings.ToUpper(symbol), start, end)
}
