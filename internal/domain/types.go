// Package domain defines the core data types shared across candleboard:
// OHLCV bars, news items, and the calendar-day keys that join them.
package domain

import (
	"fmt"
	"time"
)

// DayLayout is the canonical format of a calendar-day key.
const DayLayout = "2006-01-02"

// ParseDay parses a calendar-day key.
func ParseDay(key string) (time.Time, error) {
	return time.Parse(DayLayout, key)
}

// Day truncates a timestamp to its calendar-day key in UTC.
func Day(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// Bar is one time-bucketed price/volume record for a ticker. Moving
// averages are keyed by window size; a missing key means the bar sits in
// the leading stretch where insufficient history exists.
type Bar struct {
	Time   string // calendar-day key
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64

	// MA maps window size to the simple moving average of Close over the
	// trailing window. VolMA is the same for Volume.
	MA    map[int]float64
	VolMA map[int]float64

	// Day-over-day change percentages; nil on the first bar.
	CloseChangePct  *float64
	VolumeChangePct *float64
}

// Up reports whether the bar closed at or above its open. It decides the
// up/down coloring of wick, body, and volume alike.
func (b Bar) Up() bool {
	return b.Close >= b.Open
}

// MAValue returns the moving average for the given window, with ok=false
// where the value is null.
func (b Bar) MAValue(window int) (float64, bool) {
	v, ok := b.MA[window]
	return v, ok
}

// Validate checks the bar's internal invariants.
func (b Bar) Validate() error {
	if _, err := ParseDay(b.Time); err != nil {
		return &MalformedBarError{Time: b.Time, Reason: "unparseable day key"}
	}
	hi := b.Open
	if b.Close > hi {
		hi = b.Close
	}
	lo := b.Open
	if b.Close < lo {
		lo = b.Close
	}
	if b.High < hi {
		return &MalformedBarError{Time: b.Time, Reason: fmt.Sprintf("high %.4f < max(open, close) %.4f", b.High, hi)}
	}
	if b.Low > lo {
		return &MalformedBarError{Time: b.Time, Reason: fmt.Sprintf("low %.4f > min(open, close) %.4f", b.Low, lo)}
	}
	if b.Volume < 0 {
		return &MalformedBarError{Time: b.Time, Reason: "negative volume"}
	}
	return nil
}

// MalformedBarError reports a bar violating a series invariant. A single
// malformed bar rejects its whole series; partial geometry is never
// rendered.
type MalformedBarError struct {
	Time   string
	Reason string
}

func (e *MalformedBarError) Error() string {
	return fmt.Sprintf("malformed bar %s: %s", e.Time, e.Reason)
}

// NewsItem is a single news article correlated to bars by PubDate.
type NewsItem struct {
	Title   string
	Summary string
	URL     string // optional
	Source  string
	PubDate string // calendar-day key
}
