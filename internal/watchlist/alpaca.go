package watchlist

import (
	"context"
	"log/slog"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
)

// AlpacaSync mirrors one local category to a named Alpaca watchlist so
// other Alpaca-connected tools see the same tickers.
type AlpacaSync struct {
	client *alpacaapi.Client
	name   string
	listID string
	log    *slog.Logger
}

// NewAlpacaSync creates a sync for the Alpaca watchlist with the given
// name, creating the remote list if it doesn't exist yet.
func NewAlpacaSync(client *alpacaapi.Client, name string) (*AlpacaSync, error) {
	s := &AlpacaSync{
		client: client,
		name:   name,
		log:    slog.Default().With("component", "watchlist-sync"),
	}

	lists, err := client.GetWatchlists()
	if err != nil {
		return nil, err
	}
	for _, w := range lists {
		if w.Name == name {
			s.listID = w.ID
			return s, nil
		}
	}
	w, err := client.CreateWatchlist(alpacaapi.CreateWatchlistRequest{Name: name})
	if err != nil {
		return nil, err
	}
	s.listID = w.ID
	return s, nil
}

// Push reconciles the remote watchlist to match the given symbols.
func (s *AlpacaSync) Push(ctx context.Context, symbols []string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	wl, err := s.client.GetWatchlist(s.listID)
	if err != nil {
		return err
	}

	want := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		want[sym] = true
	}
	remote := make(map[string]bool, len(wl.Assets))
	for _, a := range wl.Assets {
		remote[a.Symbol] = true
	}

	for sym := range remote {
		if !want[sym] {
			if err := s.client.RemoveSymbolFromWatchlist(s.listID, alpacaapi.RemoveSymbolFromWatchlistRequest{Symbol: sym}); err != nil {
				s.log.Warn("removing remote symbol", "symbol", sym, "error", err)
			}
		}
	}
	for sym := range want {
		if !remote[sym] {
			if _, err := s.client.AddSymbolToWatchlist(s.listID, alpacaapi.AddSymbolToWatchlistRequest{Symbol: sym}); err != nil {
				s.log.Warn("adding remote symbol", "symbol", sym, "error", err)
			}
		}
	}
	return nil
}
