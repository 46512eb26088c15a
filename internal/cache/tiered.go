package cache

import (
	"context"

	"candleboard/internal/domain"
	"candleboard/internal/provider"
)

// Compile-time interface check.
var _ provider.ChartCache = (*Tiered)(nil)

// Tiered chains cache layers fastest-first. Reads probe each layer in
// order and backfill the faster layers on a hit; writes go to every
// layer.
type Tiered struct {
	layers []provider.ChartCache
}

// NewTiered builds a tiered cache from the given layers, fastest first.
// Nil layers are skipped so optional tiers wire in cleanly.
func NewTiered(layers ...provider.ChartCache) *Tiered {
	t := &Tiered{}
	for _, l := range layers {
		if l != nil {
			t.layers = append(t.layers, l)
		}
	}
	return t
}

// Empty reports whether no layers are configured.
func (t *Tiered) Empty() bool {
	return len(t.layers) == 0
}

func (t *Tiered) GetChart(ctx context.Context, ticker, period string) (provider.ChartData, bool) {
	for i, l := range t.layers {
		if data, ok := l.GetChart(ctx, ticker, period); ok {
			for _, front := range t.layers[:i] {
				front.PutChart(ctx, ticker, period, data)
			}
			return data, true
		}
	}
	return provider.ChartData{}, false
}

func (t *Tiered) PutChart(ctx context.Context, ticker, period string, data provider.ChartData) {
	for _, l := range t.layers {
		l.PutChart(ctx, ticker, period, data)
	}
}

func (t *Tiered) GetDayNews(ctx context.Context, ticker, date string) ([]domain.NewsItem, bool) {
	for i, l := range t.layers {
		if items, ok := l.GetDayNews(ctx, ticker, date); ok {
			for _, front := range t.layers[:i] {
				front.PutDayNews(ctx, ticker, date, items)
			}
			return items, true
		}
	}
	return nil, false
}

func (t *Tiered) PutDayNews(ctx context.Context, ticker, date string, items []domain.NewsItem) {
	for _, l := range t.layers {
		l.PutDayNews(ctx, ticker, date, items)
	}
}
