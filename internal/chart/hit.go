package chart

// Region is the pointer-reachable area of one bar. Regions are wider
// than the painted candle body: together they partition the full plot
// width, so every x position over the plot resolves to exactly one bar
// and narrow bars stay easy to target.
type Region struct {
	Index int
	Left  float64 // inclusive
	Right float64 // exclusive, except the last region which closes the plot
}

// HitMap resolves plot-area x positions to bar indices.
type HitMap struct {
	regions []Region
	plotW   float64
}

// BuildHitMap constructs one region per bar over a plot of the given
// width. A single-bar series yields one region spanning the whole plot.
func BuildHitMap(n int, plotW float64) HitMap {
	if n <= 0 || plotW <= 0 {
		return HitMap{}
	}
	step := plotW / float64(n)
	regions := make([]Region, n)
	for i := 0; i < n; i++ {
		regions[i] = Region{
			Index: i,
			Left:  float64(i) * step,
			Right: float64(i+1) * step,
		}
	}
	// Close the last region exactly at the plot edge to absorb float
	// accumulation.
	regions[n-1].Right = plotW
	return HitMap{regions: regions, plotW: plotW}
}

// Len returns the number of regions.
func (h HitMap) Len() int { return len(h.regions) }

// Regions returns the full region list in band order.
func (h HitMap) Regions() []Region { return h.regions }

// Locate maps an x position to its bar index. ok is false outside the
// plot area.
func (h HitMap) Locate(x float64) (int, bool) {
	if len(h.regions) == 0 || x < 0 || x > h.plotW {
		return 0, false
	}
	step := h.plotW / float64(len(h.regions))
	i := int(x / step)
	if i >= len(h.regions) {
		i = len(h.regions) - 1
	}
	return i, true
}
