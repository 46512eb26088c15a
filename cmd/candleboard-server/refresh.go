package main

import (
	"context"
	"log/slog"

	"candleboard/internal/cache"
	"candleboard/internal/provider"
	"candleboard/internal/util"
	"candleboard/internal/watchlist"
)

// refreshJob re-fetches chart data for every watched ticker so the
// cache stays warm outside the TTL window, and appends the bars to the
// long-term parquet archive.
type refreshJob struct {
	svc     *provider.Service
	lists   *watchlist.Store
	archive *cache.BarArchive
	limiter *util.RateLimiter
	period  string
	log     *slog.Logger
}

func (j *refreshJob) Run(ctx context.Context) {
	period := j.period
	if !provider.ValidPeriod(period) {
		period = "6mo"
	}

	symbols, err := j.lists.Symbols(ctx, watchlist.DefaultCategory)
	if err != nil {
		j.log.Error("listing watchlist", "error", err)
		return
	}
	if len(symbols) == 0 {
		j.log.Info("watchlist empty, nothing to refresh")
		return
	}

	j.log.Info("refreshing watched tickers", "count", len(symbols), "period", period)
	var failed int
	for _, sym := range symbols {
		if err := j.limiter.Wait(ctx); err != nil {
			j.log.Warn("refresh interrupted", "error", err)
			return
		}
		data, err := j.svc.ChartData(ctx, sym, period)
		if err != nil {
			j.log.Warn("refresh failed", "ticker", sym, "error", err)
			failed++
			continue
		}
		if err := j.archive.Append(sym, data.Bars); err != nil {
			j.log.Warn("archive append failed", "ticker", sym, "error", err)
		}
	}
	j.log.Info("refresh complete", "ok", len(symbols)-failed, "failed", failed)
}
