package chart

import "candleboard/internal/domain"

// NewsIndex buckets the news list delivered alongside a bar series by
// calendar-day key. It is built once per series load and read-only until
// the series is replaced.
type NewsIndex struct {
	byDay map[string][]domain.NewsItem
}

// BuildNewsIndex buckets items by PubDate. Items without a parseable day
// key are dropped; multiple items may share a day.
func BuildNewsIndex(items []domain.NewsItem) *NewsIndex {
	byDay := make(map[string][]domain.NewsItem, len(items))
	for _, it := range items {
		if _, err := domain.ParseDay(it.PubDate); err != nil {
			continue
		}
		byDay[it.PubDate] = append(byDay[it.PubDate], it)
	}
	return &NewsIndex{byDay: byDay}
}

// Lookup returns the items published on the given day key. The returned
// slice is shared; callers must not mutate it.
func (idx *NewsIndex) Lookup(day string) []domain.NewsItem {
	if idx == nil {
		return nil
	}
	return idx.byDay[day]
}

// Days returns the number of distinct day buckets.
func (idx *NewsIndex) Days() int {
	if idx == nil {
		return 0
	}
	return len(idx.byDay)
}
