package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"candleboard/internal/provider"
	"candleboard/internal/watchlist"
)

// Server serves the chart REST API.
type Server struct {
	svc     *provider.Service
	lists   *watchlist.Store
	sync    *watchlist.AlpacaSync // nil if not configured
	windows []int
	log     *slog.Logger
}

// NewServer creates the API server. sync may be nil when no Alpaca
// credentials are configured.
func NewServer(svc *provider.Service, lists *watchlist.Store, sync *watchlist.AlpacaSync, windows []int, log *slog.Logger) *Server {
	ws := append([]int(nil), windows...)
	sort.Ints(ws)
	return &Server{
		svc:     svc,
		lists:   lists,
		sync:    sync,
		windows: ws,
		log:     log,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/ohlcv", s.handleOHLCV)
	mux.HandleFunc("GET /api/news-by-date", s.handleNewsByDate)
	mux.HandleFunc("GET /api/watchlist", s.handleGetWatchlist)
	mux.HandleFunc("GET /api/watchlist/categories", s.handleCategories)
	mux.HandleFunc("PUT /api/watchlist/{symbol}", s.handleAddWatchlist)
	mux.HandleFunc("DELETE /api/watchlist/{symbol}", s.handleRemoveWatchlist)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) handleOHLCV(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("ticker")))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "6mo"
	}
	if !provider.ValidPeriod(period) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid period %q", period))
		return
	}

	data, err := s.svc.ChartData(r.Context(), ticker, period)
	if err != nil || len(data.Bars) == 0 {
		// Upstream failure or an unknown ticker: the response still
		// carries the structure so clients render an empty chart.
		resp := OHLCVResponse{
			Ticker:  ticker,
			Period:  period,
			Data:    []map[string]any{},
			News:    []NewsItemJSON{},
			Success: false,
			Error:   "no data available for this ticker",
		}
		if err != nil {
			s.log.Warn("chart data failed", "ticker", ticker, "error", err)
			resp.Error = err.Error()
		}
		writeJSON(w, resp)
		return
	}

	bars := make([]map[string]any, 0, len(data.Bars))
	for _, b := range data.Bars {
		bars = append(bars, convertBar(b, s.windows))
	}
	writeJSON(w, OHLCVResponse{
		Ticker:  ticker,
		Period:  period,
		Data:    bars,
		News:    convertNews(data.News),
		Success: true,
	})
}

func (s *Server) handleNewsByDate(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("ticker")))
	date := r.URL.Query().Get("date")
	if ticker == "" || date == "" {
		writeError(w, http.StatusBadRequest, "ticker and date are required")
		return
	}

	items, err := s.svc.NewsByDate(r.Context(), ticker, date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	source := "none"
	if len(items) > 0 {
		source = items[0].Source
	}
	writeJSON(w, NewsByDateResponse{
		Ticker:  ticker,
		Date:    date,
		News:    convertNews(items),
		Source:  source,
		Success: true,
	})
}

func (s *Server) handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	symbols, err := s.lists.Symbols(r.Context(), category)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read watchlist")
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	writeJSON(w, WatchlistResponse{Category: category, Symbols: symbols})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.lists.Categories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	if cats == nil {
		cats = []string{}
	}
	writeJSON(w, CategoriesResponse{Categories: cats})
}

func (s *Server) handleAddWatchlist(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	category := r.URL.Query().Get("category")

	if err := s.lists.Add(r.Context(), category, symbol); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to add %s: %v", symbol, err))
		return
	}
	s.pushSync(r.Context(), category)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveWatchlist(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	category := r.URL.Query().Get("category")

	if err := s.lists.Remove(r.Context(), category, symbol); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to remove %s: %v", symbol, err))
		return
	}
	s.pushSync(r.Context(), category)
	w.WriteHeader(http.StatusNoContent)
}

// pushSync mirrors the default category to Alpaca when configured.
func (s *Server) pushSync(ctx context.Context, category string) {
	if s.sync == nil || (category != "" && category != watchlist.DefaultCategory) {
		return
	}
	symbols, err := s.lists.Symbols(ctx, watchlist.DefaultCategory)
	if err != nil {
		s.log.Warn("reading watchlist for sync", "error", err)
		return
	}
	if err := s.sync.Push(ctx, symbols); err != nil {
		s.log.Warn("pushing watchlist to alpaca", "error", err)
	}
}
