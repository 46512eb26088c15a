package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/parquet-go/parquet-go"

	"candleboard/internal/domain"
)

// BarArchive writes fetched bar history to Parquet files on disk, one
// file per ticker and year. The archive survives cache TTLs and feeds
// offline analysis.
type BarArchive struct {
	DataDir string
}

// NewBarArchive creates an archive rooted at dataDir.
func NewBarArchive(dataDir string) *BarArchive {
	return &BarArchive{DataDir: dataDir}
}

// barRecord is the on-disk Parquet schema for one daily bar. The
// ticker lives in the file path, not the record.
type barRecord struct {
	Date   string  `parquet:"date"`
	Open   float64 `parquet:"open"`
	High   float64 `parquet:"high"`
	Low    float64 `parquet:"low"`
	Close  float64 `parquet:"close"`
	Volume int64   `parquet:"volume"`
}

// Append merges bars into the per-year files for a ticker,
// deduplicating by day key with new bars winning.
func (a *BarArchive) Append(ticker string, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	byYear := make(map[string][]barRecord)
	for _, b := range bars {
		if len(b.Time) < 4 {
			continue
		}
		year := b.Time[:4]
		byYear[year] = append(byYear[year], barRecord{
			Date:   b.Time,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}

	for year, records := range byYear {
		path := a.barPath(ticker, year)
		existing, _ := parquet.ReadFile[barRecord](path)
		merged := mergeBarRecords(existing, records)
		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("archiving bars for %s/%s: %w", ticker, year, err)
		}
	}
	return nil
}

// Read returns all archived bars for a ticker with day keys in
// [startDay, endDay], sorted ascending.
func (a *BarArchive) Read(ticker, startDay, endDay string) ([]domain.Bar, error) {
	if len(startDay) < 4 || len(endDay) < 4 {
		return nil, fmt.Errorf("bad day range %q..%q", startDay, endDay)
	}
	var bars []domain.Bar
	for y := startDay[:4]; y <= endDay[:4]; y = nextYear(y) {
		records, err := parquet.ReadFile[barRecord](a.barPath(ticker, y))
		if err != nil {
			// No file for this year.
			continue
		}
		for _, r := range records {
			if r.Date < startDay || r.Date > endDay {
				continue
			}
			bars = append(bars, domain.Bar{
				Time:   r.Date,
				Open:   r.Open,
				High:   r.High,
				Low:    r.Low,
				Close:  r.Close,
				Volume: r.Volume,
			})
		}
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time < bars[j].Time })
	return bars, nil
}

// Tickers lists tickers with archived data.
func (a *BarArchive) Tickers() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(a.DataDir, "daily"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var tickers []string
	for _, e := range entries {
		if e.IsDir() {
			tickers = append(tickers, e.Name())
		}
	}
	sort.Strings(tickers)
	return tickers, nil
}

// barPath layout: <dataDir>/daily/<TICKER>/<YYYY>.parquet
func (a *BarArchive) barPath(ticker, year string) string {
	return filepath.Join(a.DataDir, "daily", strings.ToUpper(ticker), year+".parquet")
}

func nextYear(y string) string {
	var n int
	fmt.Sscanf(y, "%d", &n)
	return fmt.Sprintf("%04d", n+1)
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

// mergeBarRecords deduplicates by day key, preferring incoming records,
// and returns the result sorted by day.
func mergeBarRecords(existing, incoming []barRecord) []barRecord {
	seen := make(map[string]barRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Date] = r
	}
	for _, r := range incoming {
		seen[r.Date] = r
	}
	merged := make([]barRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date < merged[j].Date })
	return merged
}
