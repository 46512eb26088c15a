package provider

import (
	"math"
	"testing"

	"candleboard/internal/domain"
)

func dayBar(day string, close float64, volume int64) domain.Bar {
	return domain.Bar{Time: day, Open: close, High: close, Low: close, Close: close, Volume: volume}
}

func TestEnrichMovingAverages(t *testing.T) {
	bars := []domain.Bar{
		dayBar("2024-01-02", 10, 100),
		dayBar("2024-01-03", 12, 200),
		dayBar("2024-01-04", 14, 300),
		dayBar("2024-01-05", 16, 400),
	}
	Enrich(bars, []int{3})

	// Leading stretch: first two bars have no 3-day MA.
	if _, ok := bars[0].MAValue(3); ok {
		t.Error("bar 0 should be in the leading stretch")
	}
	if _, ok := bars[1].MAValue(3); ok {
		t.Error("bar 1 should be in the leading stretch")
	}

	if v, ok := bars[2].MAValue(3); !ok || math.Abs(v-12) > 1e-9 {
		t.Errorf("bar 2 MA3 = %v, %v; want 12", v, ok)
	}
	if v, ok := bars[3].MAValue(3); !ok || math.Abs(v-14) > 1e-9 {
		t.Errorf("bar 3 MA3 = %v, %v; want 14", v, ok)
	}
	if v, ok := bars[3].VolMA[3]; !ok || math.Abs(v-300) > 1e-9 {
		t.Errorf("bar 3 VolMA3 = %v, %v; want 300", v, ok)
	}
}

func TestEnrichChangePercentages(t *testing.T) {
	bars := []domain.Bar{
		dayBar("2024-01-02", 100, 1000),
		dayBar("2024-01-03", 110, 500),
	}
	Enrich(bars, []int{5})

	if bars[0].CloseChangePct != nil || bars[0].VolumeChangePct != nil {
		t.Error("first bar must have nil change percentages")
	}
	if bars[1].CloseChangePct == nil || math.Abs(*bars[1].CloseChangePct-10) > 1e-9 {
		t.Errorf("close change = %v, want 10", bars[1].CloseChangePct)
	}
	if bars[1].VolumeChangePct == nil || math.Abs(*bars[1].VolumeChangePct+50) > 1e-9 {
		t.Errorf("volume change = %v, want -50", bars[1].VolumeChangePct)
	}
}

func TestEnrichZeroPrevVolume(t *testing.T) {
	bars := []domain.Bar{
		dayBar("2024-01-02", 100, 0),
		dayBar("2024-01-03", 100, 500),
	}
	Enrich(bars, nil)
	if bars[1].VolumeChangePct != nil {
		t.Error("volume change over zero previous volume must be nil")
	}
}

func TestEnrichEmpty(t *testing.T) {
	Enrich(nil, []int{5, 20})
}
