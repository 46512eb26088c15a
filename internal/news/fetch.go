// Package news fetches article headlines from the Alpaca marketdata API
// and Google News RSS, normalized to calendar-day keys for correlation
// against daily bars.
package news

import (
	"encoding/xml"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"candleboard/internal/domain"
)

// --- HTTP client ---

var httpClient = &http.Client{Timeout: 10 * time.Second}

// --- Alpaca ---

// FetchAlpacaNews fetches news for a symbol within [start, end] from the
// Alpaca marketdata API.
func FetchAlpacaNews(mdc *marketdata.Client, symbol string, start, end time.Time) ([]domain.NewsItem, error) {
	alpacaNews, err := mdc.GetNews(marketdata.GetNewsRequest{
		Symbols:    []string{symbol},
		Start:      start,
		End:        end,
		TotalLimit: 50,
		Sort:       marketdata.SortAsc,
	})
	if err != nil {
		return nil, err
	}

	items := make([]domain.NewsItem, 0, len(alpacaNews))
	for _, a := range alpacaNews {
		items = append(items, domain.NewsItem{
			Title:   a.Headline,
			Summary: StripHTML(a.Summary),
			URL:     a.URL,
			Source:  "alpaca",
			PubDate: domain.Day(a.CreatedAt),
		})
	}
	return items, nil
}

// --- Google News RSS ---

type rssResponse struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
	Desc    string `xml:"description"`
}

// FetchGoogleNews fetches news from Google News RSS. When day is non-empty
// only items published on that calendar day are kept; otherwise everything
// in the feed is returned.
func FetchGoogleNews(symbol, day string) ([]domain.NewsItem, error) {
	q := url.QueryEscape(symbol + " stock")
	u := "https://news.google.com/rss/search?q=" + q + "&hl=en-US&gl=US&ceid=US:en"

	req, err := http.NewRequest("GET", u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rss rssResponse
	if err := xml.NewDecoder(resp.Body).Decode(&rss); err != nil {
		return nil, err
	}

	var items []domain.NewsItem
	for _, item := range rss.Channel.Items {
		t, err := parsePubDate(item.PubDate)
		if err != nil {
			continue
		}
		pubDay := domain.Day(t)
		if day != "" && pubDay != day {
			continue
		}
		items = append(items, domain.NewsItem{
			Title:   trimFeedSource(item.Title),
			Summary: StripHTML(item.Desc),
			URL:     item.Link,
			Source:  "google",
			PubDate: pubDay,
		})
	}
	return items, nil
}

func parsePubDate(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC1123Z, s)
	if err != nil {
		t, err = time.Parse(time.RFC1123, s)
	}
	return t, err
}

// trimFeedSource drops the trailing " - Publisher" suffix Google News
// appends to headlines.
func trimFeedSource(headline string) string {
	if idx := strings.LastIndex(headline, " - "); idx > 0 {
		headline = headline[:idx]
	}
	return headline
}

// --- HTML helpers ---

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes HTML tags and normalizes whitespace.
func StripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
