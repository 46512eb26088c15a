package chart

import (
	"fmt"
	"log/slog"

	"candleboard/internal/domain"
)

// State is the chart component's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateRedrawing
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateRedrawing:
		return "redrawing"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrDisposed is returned for any operation on a disposed chart;
// Disposed is terminal.
var ErrDisposed = fmt.Errorf("chart: disposed")

// Chart is the lifecycle controller. It owns the viewport, the renderer
// handle, and the load generation counter, and orchestrates
// load → render → interactive → redraw → dispose transitions. Redraw
// triggers arriving in the same tick (a resize plus a series
// replacement) fold into a single full redraw.
type Chart struct {
	log *slog.Logger

	state    State
	vp       Viewport
	renderer *Renderer
	interact InteractionController
	resolver Resolver

	series *Series
	index  *NewsIndex
	scales Scales
	hits   HitMap

	// loadGen tags every fetch; completions whose generation is not
	// current are stale and ignored.
	loadGen uint64

	frame   string
	loadErr string
	noData  bool

	seriesDirty   bool
	viewportDirty bool
	redraws       int
}

// New creates an idle chart for the given viewport and MA window set.
func New(vp Viewport, windows []int, log *slog.Logger) *Chart {
	if log == nil {
		log = slog.Default()
	}
	return &Chart{
		log:      log,
		vp:       vp,
		renderer: NewRenderer(windows),
	}
}

// State returns the current lifecycle state.
func (c *Chart) State() State { return c.state }

// Viewport returns the current viewport.
func (c *Chart) Viewport() Viewport { return c.vp }

// Series returns the active series, nil before the first load.
func (c *Chart) Series() *Series { return c.series }

// Err returns the error text shown in place of the chart, if any.
func (c *Chart) Err() string { return c.loadErr }

// NoData reports whether the last load succeeded with zero bars.
func (c *Chart) NoData() bool { return c.noData }

// Redraws returns the number of full redraws performed via Flush. Used
// to verify redraw folding.
func (c *Chart) Redraws() int { return c.redraws }

// StartLoad begins a fetch for (ticker, period) and returns its
// generation tag. Starting a new load logically cancels interest in any
// in-flight fetch: the old generation's completion will be discarded.
func (c *Chart) StartLoad() (uint64, error) {
	if c.state == StateDisposed {
		return 0, ErrDisposed
	}
	c.state = StateLoading
	c.loadErr = ""
	c.loadGen++
	return c.loadGen, nil
}

// CompleteLoad delivers a fetch result. Results tagged with a stale
// generation are dropped. A failed fetch surfaces an error display and
// returns to Idle; a successful fetch with zero bars is the recoverable
// "no data" display; a series violating bar invariants is rejected whole
// and treated as a fetch failure.
func (c *Chart) CompleteLoad(gen uint64, ticker, period string, bars []domain.Bar, news []domain.NewsItem, err error) {
	if c.state == StateDisposed {
		return
	}
	if gen != c.loadGen {
		c.log.Debug("dropping stale load", "gen", gen, "current", c.loadGen)
		return
	}
	if err != nil {
		c.state = StateIdle
		c.loadErr = err.Error()
		c.series = nil
		c.frame = ""
		return
	}

	series, serr := NewSeries(ticker, period, bars)
	if serr != nil {
		c.log.Warn("rejecting series", "ticker", ticker, "error", serr)
		c.state = StateIdle
		c.loadErr = serr.Error()
		c.series = nil
		c.frame = ""
		return
	}

	c.series = series
	c.index = BuildNewsIndex(news)
	c.resolver.Bind(c.index)
	c.noData = series.Empty()
	c.seriesDirty = true
	c.state = StateReady

	if !c.renderer.Acquired() {
		c.renderer.Acquire(c.vp)
	}
	c.Flush()
}

// Resize updates the viewport. Only a width change marks the chart for
// redraw; the actual redraw happens on the next Flush so that a resize
// and a series replacement in the same tick cost one redraw, not two.
func (c *Chart) Resize(width, height int) {
	if c.state == StateDisposed {
		return
	}
	if width != c.vp.Width {
		c.viewportDirty = true
	}
	c.vp.Width = width
	c.vp.Height = height
	if c.renderer.Acquired() {
		c.renderer.Acquire(c.vp)
	}
}

// Flush performs at most one full redraw covering every trigger recorded
// since the previous Flush. It is a no-op when nothing is dirty or no
// series is ready.
func (c *Chart) Flush() {
	if c.state != StateReady || (!c.seriesDirty && !c.viewportDirty) {
		return
	}
	seriesChanged := c.seriesDirty
	c.seriesDirty = false
	c.viewportDirty = false

	if c.series.Empty() {
		c.frame = ""
		return
	}

	c.state = StateRedrawing
	sc, err := ComputeScales(c.series, c.vp)
	if err != nil {
		// Unreachable for non-empty series; keep the previous frame.
		c.state = StateReady
		return
	}
	c.scales = sc
	c.hits = BuildHitMap(c.series.Len(), sc.PlotW)
	if seriesChanged {
		// Interaction state resets on every series replacement.
		c.interact.Rebind(c.series, sc, c.hits)
	} else {
		c.interact.Reframe(sc, c.hits)
	}
	c.frame = c.renderer.Redraw(c.series, sc, c.interact.State())
	c.redraws++
	c.state = StateReady
}

// Frame returns the last rendered frame.
func (c *Chart) Frame() string { return c.frame }

// Hovered returns the current interaction state.
func (c *Chart) Hovered() Interaction { return c.interact.State() }

// CellToPlotX maps a terminal column of the rendered frame into
// plot-area x for pointer handling. It reports false before the first
// successful load or when the column falls outside the drawn graph.
func (c *Chart) CellToPlotX(col int) (float64, bool) {
	if c.state != StateReady || c.series == nil || c.series.Empty() {
		return 0, false
	}
	return c.renderer.CellToPlotX(col, c.scales)
}

// PointerMove handles pointer motion at plot-area coordinates and
// repaints the crosshair when the hover changed.
func (c *Chart) PointerMove(x float64) (HoverEvent, bool) {
	if c.state != StateReady || c.series.Empty() {
		return HoverEvent{}, false
	}
	ev, changed := c.interact.PointerMove(x)
	if changed {
		c.frame = c.renderer.Redraw(c.series, c.scales, c.interact.State())
	}
	return ev, changed
}

// PointerLeave clears the hover when the pointer exits the plot area.
func (c *Chart) PointerLeave() (HoverEvent, bool) {
	if c.state != StateReady {
		return HoverEvent{}, false
	}
	ev, changed := c.interact.PointerLeave()
	if changed && !c.series.Empty() {
		c.frame = c.renderer.Redraw(c.series, c.scales, c.interact.State())
	}
	return ev, changed
}

// Click handles primary activation at plot-area x and starts news
// resolution for the selected date. When needFetch is true the caller
// must run the fallback lookup and deliver it via CompleteNews with the
// resolution's generation.
func (c *Chart) Click(x float64) (res Resolution, selected, needFetch bool) {
	if c.state != StateReady || c.series.Empty() {
		return Resolution{}, false, false
	}
	ev, ok := c.interact.Click(x)
	if !ok {
		return Resolution{}, false, false
	}
	c.frame = c.renderer.Redraw(c.series, c.scales, c.interact.State())
	res, needFetch = c.resolver.Resolve(ev.Date)
	return res, true, needFetch
}

// CompleteNews delivers a fallback lookup result to the resolver.
func (c *Chart) CompleteNews(gen uint64, items []domain.NewsItem, err error) (Resolution, bool) {
	if c.state == StateDisposed {
		return Resolution{}, false
	}
	return c.resolver.Complete(gen, items, err)
}

// NewsResolution returns the latest resolution.
func (c *Chart) NewsResolution() Resolution { return c.resolver.Current() }

// Dispose tears the chart down: the drawing surface is released, the
// interaction state discarded, and every later call is a no-op or
// ErrDisposed. Disposed is terminal.
func (c *Chart) Dispose() {
	if c.state == StateDisposed {
		return
	}
	c.state = StateDisposed
	c.renderer.Release()
	c.interact = InteractionController{}
	c.series = nil
	c.index = nil
	c.frame = ""
}
