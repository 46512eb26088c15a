package provider

import (
	"testing"
	"time"

	"candleboard/internal/domain"
)

func TestNormalizeBars(t *testing.T) {
	bars := []domain.Bar{
		{Time: "2024-01-05", Close: 3},
		{Time: "2024-01-02", Close: 1},
		{Time: "2024-01-05", Close: 4},
		{Time: "2024-01-03", Close: 2},
	}
	out := normalizeBars(bars)

	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	want := []string{"2024-01-02", "2024-01-03", "2024-01-05"}
	for i, day := range want {
		if out[i].Time != day {
			t.Errorf("out[%d].Time = %s, want %s", i, out[i].Time, day)
		}
	}
	// Duplicate day keeps the later record.
	if out[2].Close != 4 {
		t.Errorf("duplicate day kept Close %v, want 4", out[2].Close)
	}
}

func TestPeriodSpan(t *testing.T) {
	start, end := periodSpan("3mo")
	if d := end.Sub(start); d < 91*24*time.Hour || d > 93*24*time.Hour {
		t.Errorf("3mo span = %v", d)
	}

	start, end = periodSpan("bogus")
	if d := end.Sub(start); d < 364*24*time.Hour || d > 366*24*time.Hour {
		t.Errorf("unknown period should default to 1y, got %v", d)
	}
}

func TestYahooRange(t *testing.T) {
	if got := yahooRange("6mo"); got != "6mo" {
		t.Errorf("yahooRange(6mo) = %q", got)
	}
	if got := yahooRange("intraday"); got != "1y" {
		t.Errorf("yahooRange(intraday) = %q, want 1y", got)
	}
}
