package chart

import (
	"testing"
)

func readyController(t *testing.T) (*InteractionController, *Series, Scales) {
	t.Helper()
	s := twoBarSeries(t)
	sc, err := ComputeScales(s, testViewport())
	if err != nil {
		t.Fatalf("ComputeScales returned error: %v", err)
	}
	c := &InteractionController{}
	c.Rebind(s, sc, BuildHitMap(s.Len(), sc.PlotW))
	return c, s, sc
}

func TestPointerMoveSetsHover(t *testing.T) {
	c, s, sc := readyController(t)

	// Anywhere in region 1 hovers bars[1].
	ev, changed := c.PointerMove(sc.PlotW * 0.75)
	if !changed || ev.Bar == nil {
		t.Fatal("expected hover event for region 1")
	}
	if ev.Bar.Close != s.Bar(1).Close {
		t.Errorf("hovered close = %v, want %v", ev.Bar.Close, s.Bar(1).Close)
	}
	st := c.State()
	if !st.CrosshairOn {
		t.Error("crosshair not visible after hover")
	}
	if st.CrosshairX != sc.TimeX(1) {
		t.Errorf("crosshair at %v, want band center %v", st.CrosshairX, sc.TimeX(1))
	}
}

func TestPointerMoveWithinRegionIsQuiet(t *testing.T) {
	c, _, sc := readyController(t)
	c.PointerMove(sc.PlotW * 0.1)
	if _, changed := c.PointerMove(sc.PlotW * 0.2); changed {
		t.Error("motion within one region re-emitted a hover event")
	}
}

func TestPointerMoveAdjacentRegionSwapsAtomically(t *testing.T) {
	c, s, sc := readyController(t)
	c.PointerMove(sc.PlotW * 0.25)
	ev, changed := c.PointerMove(sc.PlotW * 0.55)
	if !changed || ev.Bar == nil {
		t.Fatal("expected hover swap into adjacent region")
	}
	if ev.Bar.Time != s.Bar(1).Time {
		t.Errorf("hover swapped to %q, want %q", ev.Bar.Time, s.Bar(1).Time)
	}
	if c.State().Hovered == nil {
		t.Error("transient nil hover observed during adjacent swap")
	}
}

func TestPointerLeaveClears(t *testing.T) {
	c, _, sc := readyController(t)
	c.PointerMove(sc.PlotW * 0.25)
	if _, changed := c.PointerLeave(); !changed {
		t.Fatal("PointerLeave reported no change after hover")
	}
	st := c.State()
	if st.Hovered != nil || st.CrosshairOn {
		t.Error("hover/crosshair not cleared on leave")
	}
	// Hovering outside the plot behaves like leaving.
	c.PointerMove(sc.PlotW * 0.25)
	if _, changed := c.PointerMove(sc.PlotW + 10); !changed {
		t.Error("out-of-plot motion did not clear hover")
	}
	if c.State().Hovered != nil {
		t.Error("hover survives out-of-plot motion")
	}
}

func TestClickSelectsAndHovers(t *testing.T) {
	c, s, sc := readyController(t)
	ev, ok := c.Click(sc.PlotW * 0.75)
	if !ok {
		t.Fatal("Click inside region 1 not ok")
	}
	if ev.Date != s.Bar(1).Time {
		t.Errorf("selected date = %q, want %q", ev.Date, s.Bar(1).Time)
	}
	st := c.State()
	if st.Hovered == nil || st.Hovered.Time != s.Bar(1).Time {
		t.Error("click did not update hover like entering would")
	}
	if st.SelectedDate != s.Bar(1).Time {
		t.Errorf("SelectedDate = %q, want %q", st.SelectedDate, s.Bar(1).Time)
	}
}

func TestRebindResetsState(t *testing.T) {
	c, _, sc := readyController(t)
	c.Click(sc.PlotW * 0.25)

	s2 := twoBarSeries(t)
	c.Rebind(s2, sc, BuildHitMap(s2.Len(), sc.PlotW))
	st := c.State()
	if st.Hovered != nil || st.SelectedDate != "" || st.CrosshairOn {
		t.Error("interaction state not reset on series replacement")
	}
}
