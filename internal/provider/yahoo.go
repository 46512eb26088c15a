package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"candleboard/internal/domain"
)

// YahooSource fetches daily bars from the Yahoo Finance v8 chart API.
// It needs no credentials and downgrades gracefully, so it backs up
// Alpaca when that source errors or returns nothing.
type YahooSource struct {
	client *resty.Client
	log    *slog.Logger
}

// NewYahooSource creates a YahooSource with a shared resty client.
func NewYahooSource() *YahooSource {
	client := resty.New().
		SetBaseURL("https://query1.finance.yahoo.com/v8/finance/chart").
		SetTimeout(10 * time.Second).
		SetHeaders(map[string]string{
			"Accept":     "application/json",
			"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		})
	return &YahooSource{
		client: client,
		log:    slog.Default().With("source", "yahoo"),
	}
}

// yahooChartResponse mirrors the subset of the Yahoo v8 chart payload
// we consume. Nulls in the quote arrays decode to zero and are skipped.
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// DailyBars fetches daily OHLCV bars for one symbol over the given
// Yahoo range string ("1mo", "6mo", "1y", ...).
func (s *YahooSource) DailyBars(ctx context.Context, symbol, rng string) ([]domain.Bar, error) {
	var chart yahooChartResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"range":    rng,
			"interval": "1d",
		}).
		SetResult(&chart).
		Get("/" + strings.ToUpper(symbol))
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch %s: %w", symbol, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("yahoo fetch %s: status %d", symbol, resp.StatusCode())
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no data for %s", symbol)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]domain.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) ||
			i >= len(quote.Close) || i >= len(quote.Volume) {
			break
		}
		// Null bars (holidays, half sessions) decode as all-zero.
		if quote.Open[i] == 0 && quote.High[i] == 0 && quote.Low[i] == 0 && quote.Close[i] == 0 {
			continue
		}
		bars = append(bars, domain.Bar{
			Time:   domain.Day(time.Unix(ts, 0)),
			Open:   quote.Open[i],
			High:   quote.High[i],
			Low:    quote.Low[i],
			Close:  quote.Close[i],
			Volume: quote.Volume[i],
		})
	}
	return bars, nil
}
