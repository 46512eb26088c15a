package provider

import (
	"sort"

	"candleboard/internal/domain"
)

// Enrich computes derived per-bar fields in place: the simple moving
// average of close and of volume for each configured window, and the
// day-over-day change percentages. Bars inside a window's leading
// stretch get no entry for that window; the first bar gets nil change
// percentages.
func Enrich(bars []domain.Bar, windows []int) {
	if len(bars) == 0 {
		return
	}
	ws := make([]int, 0, len(windows))
	for _, w := range windows {
		if w > 0 {
			ws = append(ws, w)
		}
	}
	sort.Ints(ws)

	closeSum := make(map[int]float64, len(ws))
	volSum := make(map[int]float64, len(ws))

	for i := range bars {
		b := &bars[i]
		b.MA = make(map[int]float64, len(ws))
		b.VolMA = make(map[int]float64, len(ws))

		for _, w := range ws {
			closeSum[w] += b.Close
			volSum[w] += float64(b.Volume)
			if i >= w {
				closeSum[w] -= bars[i-w].Close
				volSum[w] -= float64(bars[i-w].Volume)
			}
			if i+1 >= w {
				b.MA[w] = closeSum[w] / float64(w)
				b.VolMA[w] = volSum[w] / float64(w)
			}
		}

		if i == 0 {
			continue
		}
		prev := bars[i-1]
		if prev.Close != 0 {
			pct := (b.Close - prev.Close) / prev.Close * 100
			b.CloseChangePct = &pct
		}
		if prev.Volume != 0 {
			pct := (float64(b.Volume) - float64(prev.Volume)) / float64(prev.Volume) * 100
			b.VolumeChangePct = &pct
		}
	}
}
