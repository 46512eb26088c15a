package chart

import (
	"fmt"
	"math"
	"sort"

	"github.com/NimbleMarkets/ntcharts/canvas"
	"github.com/NimbleMarkets/ntcharts/linechart"
	"github.com/charmbracelet/lipgloss"
)

// Styles.
var (
	upStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	downStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	upVolStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("22")) // muted green
	downVolStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("52")) // muted red
	gridStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	axisStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	crosshairStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	// Overlay curve palette, cycled in window order.
	maPalette = []lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("51")),  // cyan
		lipgloss.NewStyle().Foreground(lipgloss.Color("213")), // pink
		lipgloss.NewStyle().Foreground(lipgloss.Color("226")), // yellow
		lipgloss.NewStyle().Foreground(lipgloss.Color("99")),  // purple
	}
)

const (
	gridRows = 4
	// timeTickTarget caps the number of labelled time ticks; labels are
	// sampled at most every ceil(n/timeTickTarget) bars.
	timeTickTarget = 8
	// brailleXStep is the horizontal resolution of braille cells used
	// when filling candle bodies.
	brailleXStep = 0.5
)

// Renderer is the render pipeline. It exclusively owns the drawing
// surface: the surface is acquired when the chart becomes ready and
// released on dispose, and no other component touches it. Every Redraw
// is a full clear-and-redraw; there is no incremental patch path.
type Renderer struct {
	handle  *linechart.Model
	vp      Viewport
	windows []int
}

// NewRenderer creates a renderer drawing the given MA windows, in
// ascending window order.
func NewRenderer(windows []int) *Renderer {
	ws := append([]int(nil), windows...)
	sort.Ints(ws)
	return &Renderer{windows: ws}
}

// Acquire takes ownership of a drawing surface sized to the viewport.
func (r *Renderer) Acquire(vp Viewport) {
	r.vp = vp
	lc := linechart.New(vp.PlotWidth(), vp.PlotHeight(), 0, 1, 0, 1)
	r.handle = &lc
}

// Release frees the drawing surface. Redraw after Release is a no-op.
func (r *Renderer) Release() {
	r.handle = nil
}

// Acquired reports whether the renderer currently owns a surface.
func (r *Renderer) Acquired() bool { return r.handle != nil }

// Redraw performs a full clear-and-redraw of all layers in order: grid,
// axes, wicks, bodies, volume histogram, moving-average overlays, and
// finally the crosshair read from the interaction state.
func (r *Renderer) Redraw(s *Series, sc Scales, state Interaction) string {
	if r.handle == nil || s.Empty() {
		return ""
	}

	every := sampleEvery(s.Len())
	lc := linechart.New(
		r.vp.PlotWidth(), r.vp.PlotHeight(),
		0, sc.PlotW,
		sc.PriceMin, sc.PriceMax,
		linechart.WithXYSteps(timeTickTarget, gridRows+1),
		linechart.WithXLabelFormatter(timeLabelFormatter(s, sc, every)),
		linechart.WithYLabelFormatter(priceLabelFormatter),
		linechart.WithStyles(axisStyle, labelStyle, lipgloss.NewStyle()),
	)
	r.handle = &lc

	r.drawGrid(sc)
	lc.DrawXYAxisAndLabel()
	r.drawCandles(s, sc)
	r.drawVolume(s, sc)
	r.drawOverlays(s, sc)
	r.drawVolumeTick(sc)
	r.drawCrosshair(sc, state)

	return lc.View()
}

// CellToPlotX maps a terminal column of the rendered frame back into
// plot-area x. The linechart reserves a label gutter left of its origin
// and compresses the plot width onto the remaining graph columns, so a
// point at plot x lands near column origin.X+1+x·graphWidth/PlotW;
// pointer lookups must invert that, not assume a fixed margin.
func (r *Renderer) CellToPlotX(col int, sc Scales) (float64, bool) {
	if r.handle == nil || sc.PlotW <= 0 {
		return 0, false
	}
	gutter := r.handle.Origin().X + 1
	gw := r.handle.GraphWidth()
	c := col - gutter
	if gw <= 0 || c < 0 || c >= gw {
		return 0, false
	}
	// Cell center, to stay inside the band the column was drawn from.
	return (float64(c) + 0.5) * sc.PlotW / float64(gw), true
}

// View returns the last drawn frame without redrawing.
func (r *Renderer) View() string {
	if r.handle == nil {
		return ""
	}
	return r.handle.View()
}

// sampleEvery returns the time-tick sampling interval for n bars.
func sampleEvery(n int) int {
	every := (n + timeTickTarget - 1) / timeTickTarget
	if every < 1 {
		every = 1
	}
	return every
}

// timeLabelFormatter labels ticks with the day key of the band under the
// tick, sampled so labels never crowd.
func timeLabelFormatter(s *Series, sc Scales, every int) func(int, float64) string {
	return func(_ int, x float64) string {
		i := int(x / sc.Step)
		if i < 0 || i >= s.Len() {
			return ""
		}
		if i%every != 0 {
			return ""
		}
		// MM-DD keeps labels narrow.
		key := s.Bar(i).Time
		if len(key) == 10 {
			return key[5:]
		}
		return key
	}
}

// priceLabelFormatter picks precision by magnitude.
func priceLabelFormatter(_ int, v float64) string {
	switch {
	case v >= 1000:
		return fmt.Sprintf("%.0f", v)
	case v >= 100:
		return fmt.Sprintf("%.1f", v)
	case v >= 1:
		return fmt.Sprintf("%.2f", v)
	default:
		return fmt.Sprintf("%.4f", v)
	}
}

// valueY converts a plot-area pixel row into the chart's value space.
func (r *Renderer) valueY(sc Scales, py float64) float64 {
	return sc.PriceMax - (py/sc.PlotH)*(sc.PriceMax-sc.PriceMin)
}

func (r *Renderer) drawGrid(sc Scales) {
	span := sc.PriceMax - sc.PriceMin
	for k := 1; k <= gridRows; k++ {
		p := sc.PriceMin + span*float64(k)/float64(gridRows+1)
		r.handle.DrawBrailleLineWithStyle(
			canvas.Float64Point{X: 0, Y: p},
			canvas.Float64Point{X: sc.PlotW, Y: p},
			gridStyle,
		)
	}
	// Ceiling of the volume pane.
	volTop := r.valueY(sc, sc.PlotH*(1-volumePaneFrac))
	r.handle.DrawBrailleLineWithStyle(
		canvas.Float64Point{X: 0, Y: volTop},
		canvas.Float64Point{X: sc.PlotW, Y: volTop},
		gridStyle,
	)
}

func (r *Renderer) drawCandles(s *Series, sc Scales) {
	// One pixel of price, used to keep zero-range bodies visible.
	pxPrice := (sc.PriceMax - sc.PriceMin) / sc.PlotH

	for i := 0; i < s.Len(); i++ {
		bar := s.Bar(i)
		style := downStyle
		if bar.Up() {
			style = upStyle
		}
		x := sc.TimeX(i)

		// Wick: low to high at the band center.
		r.handle.DrawBrailleLineWithStyle(
			canvas.Float64Point{X: x, Y: bar.Low},
			canvas.Float64Point{X: x, Y: bar.High},
			style,
		)

		// Body: open/close span, at least one pixel tall.
		top := math.Max(bar.Open, bar.Close)
		bot := math.Min(bar.Open, bar.Close)
		if top-bot < pxPrice {
			mid := (top + bot) / 2
			top = mid + pxPrice/2
			bot = mid - pxPrice/2
		}
		half := sc.BandWidth / 2
		for dx := -half; dx <= half; dx += brailleXStep {
			r.handle.DrawBrailleLineWithStyle(
				canvas.Float64Point{X: x + dx, Y: bot},
				canvas.Float64Point{X: x + dx, Y: top},
				style,
			)
		}
	}
}

func (r *Renderer) drawVolume(s *Series, sc Scales) {
	base := r.valueY(sc, sc.PlotH)
	for i := 0; i < s.Len(); i++ {
		bar := s.Bar(i)
		if bar.Volume <= 0 {
			continue
		}
		style := downVolStyle
		if bar.Up() {
			style = upVolStyle
		}
		x := sc.TimeX(i)
		top := r.valueY(sc, sc.VolumeY(bar.Volume))
		r.handle.DrawBrailleLineWithStyle(
			canvas.Float64Point{X: x, Y: base},
			canvas.Float64Point{X: x, Y: top},
			style,
		)
	}
}

// drawOverlays draws one smoothed curve per moving-average window,
// restricted to maximal contiguous runs of non-null values. A null ends
// the current run; the curve never interpolates across it.
func (r *Renderer) drawOverlays(s *Series, sc Scales) {
	for wi, window := range r.windows {
		style := maPalette[wi%len(maPalette)]
		for _, run := range overlayRuns(s, window) {
			if len(run) == 1 {
				p := canvas.Float64Point{X: sc.TimeX(run[0].index), Y: run[0].value}
				r.handle.DrawBrailleLineWithStyle(p, p, style)
				continue
			}
			for j := 0; j < len(run)-1; j++ {
				r.handle.DrawBrailleLineWithStyle(
					canvas.Float64Point{X: sc.TimeX(run[j].index), Y: run[j].value},
					canvas.Float64Point{X: sc.TimeX(run[j+1].index), Y: run[j+1].value},
					style,
				)
			}
		}
	}
}

type overlayPoint struct {
	index int
	value float64
}

// overlayRuns splits a window's MA series into maximal contiguous
// non-null runs, in band order.
func overlayRuns(s *Series, window int) [][]overlayPoint {
	var runs [][]overlayPoint
	var cur []overlayPoint
	for i := 0; i < s.Len(); i++ {
		v, ok := s.Bar(i).MAValue(window)
		if !ok {
			if len(cur) > 0 {
				runs = append(runs, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, overlayPoint{index: i, value: v})
	}
	if len(cur) > 0 {
		runs = append(runs, cur)
	}
	return runs
}

// drawVolumeTick labels the volume pane's ceiling with the top of the
// volume domain. The linechart has a single Y axis, so the pane gets an
// in-plot label instead of a second tick column.
func (r *Renderer) drawVolumeTick(sc Scales) {
	gh := r.handle.GraphHeight()
	row := int(math.Round(float64(gh) * (1 - volumePaneFrac)))
	if row < 0 || row >= gh || sc.VolumeMax <= 0 {
		return
	}
	label := volumeLabel(sc.VolumeMax)
	p := canvas.Point{X: r.handle.Origin().X + 2, Y: row}
	r.handle.Canvas.SetStringWithStyle(p, label, labelStyle)
}

func volumeLabel(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

func (r *Renderer) drawCrosshair(sc Scales, state Interaction) {
	if !state.CrosshairOn {
		return
	}
	r.handle.DrawBrailleLineWithStyle(
		canvas.Float64Point{X: state.CrosshairX, Y: sc.PriceMin},
		canvas.Float64Point{X: state.CrosshairX, Y: sc.PriceMax},
		crosshairStyle,
	)
}
