package chart

import "candleboard/internal/domain"

// Interaction is the pointer-driven state of the chart. It is owned by
// the interaction controller and mutated only by pointer events; the
// render pipeline reads it to draw the crosshair but never writes it.
type Interaction struct {
	Hovered      *domain.Bar
	HoveredIndex int
	SelectedDate string
	CrosshairX   float64
	CrosshairOn  bool
}

// HoverEvent is emitted whenever the hovered bar changes. Bar is nil
// when the pointer left the plot area.
type HoverEvent struct {
	Bar *domain.Bar
}

// SelectEvent is emitted on click, carrying the selected bar's day key.
type SelectEvent struct {
	Date string
}

// InteractionController turns plot-area pointer positions into hover and
// date-selection events against the active series.
type InteractionController struct {
	series *Series
	scales Scales
	hits   HitMap
	state  Interaction
}

// Rebind points the controller at a freshly loaded series and its
// geometry. Interaction state resets to empty on every series
// replacement.
func (c *InteractionController) Rebind(s *Series, sc Scales, hits HitMap) {
	c.series = s
	c.scales = sc
	c.hits = hits
	c.state = Interaction{HoveredIndex: -1}
}

// Reframe installs recomputed geometry after a resize, preserving the
// hovered bar and re-centering the crosshair on its new band position.
func (c *InteractionController) Reframe(sc Scales, hits HitMap) {
	c.scales = sc
	c.hits = hits
	if c.state.Hovered != nil && c.state.HoveredIndex >= 0 {
		c.state.CrosshairX = sc.TimeX(c.state.HoveredIndex)
	}
}

// State returns a copy of the current interaction state.
func (c *InteractionController) State() Interaction { return c.state }

// PointerMove handles pointer motion at plot-area x. Moving directly
// from one region into an adjacent one swaps the hover atomically; there
// is no transient cleared state in between. Motion outside the plot
// clears the hover.
func (c *InteractionController) PointerMove(x float64) (HoverEvent, bool) {
	i, ok := c.hits.Locate(x)
	if !ok || c.series == nil || i >= c.series.Len() {
		return c.PointerLeave()
	}
	if c.state.Hovered != nil && c.state.HoveredIndex == i {
		return HoverEvent{}, false
	}
	bar := c.series.Bar(i)
	c.state.Hovered = &bar
	c.state.HoveredIndex = i
	c.state.CrosshairX = c.scales.TimeX(i)
	c.state.CrosshairOn = true
	return HoverEvent{Bar: &bar}, true
}

// PointerLeave clears the hover and hides the crosshair.
func (c *InteractionController) PointerLeave() (HoverEvent, bool) {
	if c.state.Hovered == nil && !c.state.CrosshairOn {
		return HoverEvent{}, false
	}
	c.state.Hovered = nil
	c.state.HoveredIndex = -1
	c.state.CrosshairOn = false
	return HoverEvent{}, true
}

// Click handles primary activation at plot-area x. It emits a selection
// for the bar's day key and updates the hover exactly as entering the
// region would.
func (c *InteractionController) Click(x float64) (SelectEvent, bool) {
	i, ok := c.hits.Locate(x)
	if !ok || c.series == nil || i >= c.series.Len() {
		return SelectEvent{}, false
	}
	c.PointerMove(x)
	c.state.SelectedDate = c.series.Bar(i).Time
	return SelectEvent{Date: c.state.SelectedDate}, true
}
