package chart

import "errors"

// ErrEmptySeries signals that scales were requested for a series with
// zero bars. Callers must not invoke the render pipeline in that case.
var ErrEmptySeries = errors.New("chart: empty series")

// Layout constants. These are design constants, deliberately not
// configurable: visual parity tests depend on the exact values.
const (
	// bandPadding is the fractional gap between adjacent time bands.
	bandPadding = 0.2
	// priceDomainPad pads the price domain by 2% on each side.
	priceDomainPad = 0.02
	// volumeHeadroom leaves 20% of headroom above the tallest volume bar.
	volumeHeadroom = 0.2
	// volumePaneFrac is the fraction of the plot height reserved for the
	// volume histogram at the bottom of the plot.
	volumePaneFrac = 0.25
)

// Margins is the space around the plot area, in pixels.
type Margins struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// Viewport is the drawable geometry owned by the lifecycle controller
// and mutated only by resize events.
type Viewport struct {
	Width   int
	Height  int
	Margins Margins
}

// PlotWidth returns the width of the plot area.
func (v Viewport) PlotWidth() int {
	return v.Width - v.Margins.Left - v.Margins.Right
}

// PlotHeight returns the height of the plot area.
func (v Viewport) PlotHeight() int {
	return v.Height - v.Margins.Top - v.Margins.Bottom
}

// Scales maps series values onto plot-area pixels. All coordinates are
// relative to the plot area's top-left corner; y grows downward. Scales
// are derived state: a pure function of (series, viewport), recomputed
// on every change of either and never stored across them.
type Scales struct {
	// TimeX returns the horizontal center of band i.
	TimeX func(i int) float64
	// PriceY maps a price into the plot's vertical pixel range.
	PriceY func(p float64) float64
	// VolumeY maps a volume into the pixel range of the volume pane.
	VolumeY func(v int64) float64

	// Step is the full width of one time band including padding;
	// BandWidth is the painted width within it.
	Step      float64
	BandWidth float64

	// PriceMin and PriceMax bound the padded price domain.
	PriceMin, PriceMax float64
	// VolumeMax bounds the volume domain ([0, VolumeMax]).
	VolumeMax float64

	PlotW, PlotH float64
}

// ComputeScales derives the three mapping functions for a series within
// a viewport. Identical inputs yield identical scales. Returns
// ErrEmptySeries when the series has zero bars.
func ComputeScales(s *Series, vp Viewport) (Scales, error) {
	if s.Empty() {
		return Scales{}, ErrEmptySeries
	}

	plotW := float64(vp.PlotWidth())
	plotH := float64(vp.PlotHeight())
	n := s.Len()

	low := s.Bars[0].Low
	high := s.Bars[0].High
	var maxVol int64
	for i := range s.Bars {
		if s.Bars[i].Low < low {
			low = s.Bars[i].Low
		}
		if s.Bars[i].High > high {
			high = s.Bars[i].High
		}
		if s.Bars[i].Volume > maxVol {
			maxVol = s.Bars[i].Volume
		}
	}

	priceMin := low * (1 - priceDomainPad)
	priceMax := high * (1 + priceDomainPad)
	priceSpan := priceMax - priceMin
	if priceSpan <= 0 {
		priceSpan = 1
	}

	volMax := float64(maxVol) * (1 + volumeHeadroom)
	if volMax <= 0 {
		volMax = 1
	}

	step := plotW / float64(n)
	band := step * (1 - bandPadding)

	return Scales{
		TimeX: func(i int) float64 {
			return (float64(i) + 0.5) * step
		},
		PriceY: func(p float64) float64 {
			return plotH * (1 - (p-priceMin)/priceSpan)
		},
		VolumeY: func(v int64) float64 {
			return plotH - (float64(v)/volMax)*(plotH*volumePaneFrac)
		},
		Step:      step,
		BandWidth: band,
		PriceMin:  priceMin,
		PriceMax:  priceMax,
		VolumeMax: volMax,
		PlotW:     plotW,
		PlotH:     plotH,
	}, nil
}
