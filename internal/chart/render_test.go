package chart

import (
	"fmt"
	"math"
	"testing"

	"candleboard/internal/domain"
)

func maBar(day string, close float64, ma5 *float64) domain.Bar {
	b := domain.Bar{Time: day, Open: close, High: close + 1, Low: close - 1, Close: close, Volume: 10}
	if ma5 != nil {
		b.MA = map[int]float64{5: *ma5}
	}
	return b
}

func ptr(v float64) *float64 { return &v }

func TestOverlayRunsBreakAtNulls(t *testing.T) {
	s, err := NewSeries("AAPL", "1mo", []domain.Bar{
		maBar("2024-01-02", 10, ptr(5)),
		maBar("2024-01-03", 11, nil),
		maBar("2024-01-04", 12, ptr(7)),
	})
	if err != nil {
		t.Fatalf("NewSeries returned error: %v", err)
	}

	runs := overlayRuns(s, 5)
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2 (never interpolate across a null)", len(runs))
	}
	if len(runs[0]) != 1 || runs[0][0].value != 5 {
		t.Errorf("first run = %+v, want single point 5", runs[0])
	}
	if len(runs[1]) != 1 || runs[1][0].value != 7 {
		t.Errorf("second run = %+v, want single point 7", runs[1])
	}
}

func TestOverlayRunsLeadingNulls(t *testing.T) {
	s, err := NewSeries("AAPL", "1mo", []domain.Bar{
		maBar("2024-01-02", 10, nil),
		maBar("2024-01-03", 11, nil),
		maBar("2024-01-04", 12, ptr(11)),
		maBar("2024-01-05", 13, ptr(12)),
	})
	if err != nil {
		t.Fatalf("NewSeries returned error: %v", err)
	}
	runs := overlayRuns(s, 5)
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	if runs[0][0].index != 2 || len(runs[0]) != 2 {
		t.Errorf("run = %+v, want indices 2..3", runs[0])
	}
}

func TestSampleEvery(t *testing.T) {
	cases := []struct{ n, want int }{
		{1, 1},
		{8, 1},
		{9, 2},
		{16, 2},
		{126, 16},
	}
	for _, c := range cases {
		if got := sampleEvery(c.n); got != c.want {
			t.Errorf("sampleEvery(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestRendererAcquireRelease(t *testing.T) {
	r := NewRenderer([]int{5, 20})
	if r.Acquired() {
		t.Fatal("renderer acquired before Acquire")
	}
	r.Acquire(testViewport())
	if !r.Acquired() {
		t.Fatal("renderer not acquired after Acquire")
	}
	r.Release()
	if r.Acquired() {
		t.Fatal("renderer still acquired after Release")
	}

	s := twoBarSeries(t)
	sc, err := ComputeScales(s, testViewport())
	if err != nil {
		t.Fatalf("ComputeScales returned error: %v", err)
	}
	if frame := r.Redraw(s, sc, Interaction{}); frame != "" {
		t.Error("Redraw produced output on a released surface")
	}
}

func TestRendererRedrawProducesFrame(t *testing.T) {
	r := NewRenderer([]int{5})
	vp := testViewport()
	r.Acquire(vp)

	s, err := NewSeries("AAPL", "1mo", []domain.Bar{
		maBar("2024-01-02", 10, nil),
		maBar("2024-01-03", 11, ptr(10.5)),
		maBar("2024-01-04", 12, ptr(11)),
	})
	if err != nil {
		t.Fatalf("NewSeries returned error: %v", err)
	}
	sc, err := ComputeScales(s, vp)
	if err != nil {
		t.Fatalf("ComputeScales returned error: %v", err)
	}

	frame := r.Redraw(s, sc, Interaction{})
	if frame == "" {
		t.Fatal("Redraw produced an empty frame")
	}
	// A full clear-and-redraw with identical inputs is deterministic.
	if again := r.Redraw(s, sc, Interaction{}); again != frame {
		t.Error("identical redraws produced different frames")
	}
}

// Columns in the rendered frame are offset by the linechart's label
// gutter and compressed onto its graph area. Mapping a drawn column
// back through CellToPlotX must land in the hit region of the bar that
// was drawn there, for every bar.
func TestCellToPlotXMatchesDrawnColumns(t *testing.T) {
	vp := Viewport{Width: 80, Height: 24, Margins: Margins{Right: 1}}
	bars := make([]domain.Bar, 30)
	for i := range bars {
		day := fmt.Sprintf("2024-03-%02d", i+1)
		price := 100 + float64(i)
		bars[i] = domain.Bar{Time: day, Open: price, High: price + 2, Low: price - 2, Close: price + 1, Volume: 1000}
	}
	s, err := NewSeries("AAPL", "1mo", bars)
	if err != nil {
		t.Fatalf("NewSeries returned error: %v", err)
	}
	sc, err := ComputeScales(s, vp)
	if err != nil {
		t.Fatalf("ComputeScales returned error: %v", err)
	}
	hits := BuildHitMap(s.Len(), sc.PlotW)

	r := NewRenderer([]int{5})
	r.Acquire(vp)
	if frame := r.Redraw(s, sc, Interaction{}); frame == "" {
		t.Fatal("Redraw produced an empty frame")
	}

	gutter := r.handle.Origin().X + 1
	gw := r.handle.GraphWidth()
	if gw <= 0 {
		t.Fatalf("graph width = %d", gw)
	}

	for i := 0; i < s.Len(); i++ {
		// The braille grid rounds a point at plot x onto grid column
		// round(x·(2·gw−1)/PlotW), and each frame column covers two
		// grid columns right of the gutter.
		gridX := int(math.Round(sc.TimeX(i) * float64(2*gw-1) / sc.PlotW))
		col := gutter + gridX/2

		px, ok := r.CellToPlotX(col, sc)
		if !ok {
			t.Fatalf("bar %d: column %d reported outside the graph", i, col)
		}
		if got, _ := hits.Locate(px); got != i {
			t.Errorf("bar %d drawn at column %d maps back to bar %d", i, col, got)
		}
	}

	// Columns in the label gutter or past the graph are not plot area.
	if _, ok := r.CellToPlotX(gutter-1, sc); ok {
		t.Error("gutter column mapped into the plot area")
	}
	if _, ok := r.CellToPlotX(gutter+gw, sc); ok {
		t.Error("column past the graph mapped into the plot area")
	}
	r.Release()
	if _, ok := r.CellToPlotX(gutter, sc); ok {
		t.Error("released renderer still maps columns")
	}
}

func TestVolumeLabel(t *testing.T) {
	cases := []struct {
		v    float64
		want string
	}{
		{750, "750"},
		{1800, "1.8K"},
		{2_400_000, "2.4M"},
		{3_100_000_000, "3.1B"},
	}
	for _, c := range cases {
		if got := volumeLabel(c.v); got != c.want {
			t.Errorf("volumeLabel(%v) = %q, want %q", c.v, got, c.want)
		}
	}
}
