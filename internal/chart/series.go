// Package chart implements the interactive OHLCV charting engine: the
// validated bar series, scale and layout computation, the layered render
// pipeline, pointer hit-testing, news correlation, and the component
// lifecycle that ties them together.
package chart

import (
	"fmt"
	"sync/atomic"

	"candleboard/internal/domain"
)

// seriesVersion hands out a distinct tag per constructed series. The
// render pipeline keys its trigger condition on this tag instead of
// comparing bar slices.
var seriesVersion atomic.Uint64

// Series is an immutable, validated sequence of bars sorted strictly
// ascending by day key. A ticker/timeframe change produces a whole new
// Series; bars are never mutated in place.
type Series struct {
	Ticker  string
	Period  string
	Bars    []domain.Bar
	Version uint64
}

// NewSeries validates bars and wraps them into a Series. The entire
// series is rejected when any bar is malformed or when day keys are out
// of order or duplicated.
func NewSeries(ticker, period string, bars []domain.Bar) (*Series, error) {
	for i := range bars {
		if err := bars[i].Validate(); err != nil {
			return nil, err
		}
		if i > 0 && bars[i].Time <= bars[i-1].Time {
			return nil, &domain.MalformedBarError{
				Time:   bars[i].Time,
				Reason: fmt.Sprintf("day key not strictly ascending after %s", bars[i-1].Time),
			}
		}
	}
	return &Series{
		Ticker:  ticker,
		Period:  period,
		Bars:    bars,
		Version: seriesVersion.Add(1),
	}, nil
}

// Len returns the number of bars.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Empty reports whether the series has no bars. An empty series is a
// valid "no data" condition, not an error.
func (s *Series) Empty() bool { return s.Len() == 0 }

// Bar returns the bar at index i.
func (s *Series) Bar(i int) domain.Bar { return s.Bars[i] }
