// Package market aggregates the external market-data sources behind
// their cache cells: crypto listings, the fear & greed index, gold,
// SOL and the USD/THB exchange rate.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/papaya09/Personal-Finance-Tracker/internal/clientcache"
	"github.com/papaya09/Personal-Finance-Tracker/internal/clientdata"
	"github.com/papaya09/Personal-Finance-Tracker/internal/clients/feargreed"
	"github.com/papaya09/Personal-Finance-Tracker/internal/clients/gold"
	"github.com/papaya09/Personal-Finance-Tracker/internal/solprice"
)

// ListingsFetcher returns the raw CoinMarketCap listings payload.
type ListingsFetcher interface {
	GetListings(ctx context.Context) (json.RawMessage, error)
}

// FearGreedFetcher returns the fear & greed index.
type FearGreedFetcher interface {
	GetLatest(ctx context.Context) (feargreed.Point, error)
	GetHistorical(ctx context.Context) ([]feargreed.Point, error)
}

// GoldFetcher returns converted gold prices.
type GoldFetcher interface {
	GetPrice(ctx context.Context) (gold.Price, error)
}

// RateFetcher returns a live currency conversion rate.
type RateFetcher interface {
	GetRate(ctx context.Context, fromCurrency, toCurrency string) (float64, error)
}

// FearGreedSnapshot bundles the latest reading with recent history so
// both expire together.
type FearGreedSnapshot struct {
	Latest     feargreed.Point   `json:"latest"`
	Historical []feargreed.Point `json:"historical"`
}

// Deps are the upstream sources the service reads from.
type Deps struct {
	Listings  ListingsFetcher
	FearGreed FearGreedFetcher
	Gold      GoldFetcher
	SOL       *solprice.Poller
	Exchange  RateFetcher
	Repo      *clientdata.Repository
	Clock     clientcache.Clock
	Log       zerolog.Logger
}

// Service serves market data through per-source cache cells. The
// exchange rate is deliberately uncached - it backs currency toggles
// that should reflect the live rate.
type Service struct {
	listings *clientcache.Cache[json.RawMessage]
	fng      *clientcache.Cache[FearGreedSnapshot]
	gold     *clientcache.Cache[gold.Price]
	sol      *solprice.Poller
	fx       RateFetcher
}

func NewService(deps Deps) *Service {
	return &Service{
		listings: clientcache.New(clientcache.Config[json.RawMessage]{
			Table: "cmc_listings",
			Key:   "latest",
			TTL:   clientdata.TTLListings,
			Fetch: deps.Listings.GetListings,
			Repo:  deps.Repo,
			Clock: deps.Clock,
			Log:   deps.Log,
		}),
		fng: clientcache.New(clientcache.Config[FearGreedSnapshot]{
			Table: "feargreed",
			Key:   "snapshot",
			TTL:   clientdata.TTLFearGreed,
			Fetch: func(ctx context.Context) (FearGreedSnapshot, error) {
				latest, err := deps.FearGreed.GetLatest(ctx)
				if err != nil {
					return FearGreedSnapshot{}, err
				}
				historical, err := deps.FearGreed.GetHistorical(ctx)
				if err != nil {
					return FearGreedSnapshot{}, err
				}
				return FearGreedSnapshot{Latest: latest, Historical: historical}, nil
			},
			Repo:  deps.Repo,
			Clock: deps.Clock,
			Log:   deps.Log,
		}),
		gold: clientcache.New(clientcache.Config[gold.Price]{
			Table: "goldprice",
			Key:   "USD",
			TTL:   clientdata.TTLGoldPrice,
			Fetch: deps.Gold.GetPrice,
			Repo:  deps.Repo,
			Clock: deps.Clock,
			Log:   deps.Log,
		}),
		sol: deps.SOL,
		fx:  deps.Exchange,
	}
}

// Listings returns the cached CoinMarketCap listings payload.
func (s *Service) Listings(ctx context.Context) (json.RawMessage, bool, error) {
	return s.listings.Get(ctx)
}

// FearGreed returns the cached fear & greed snapshot.
func (s *Service) FearGreed(ctx context.Context) (FearGreedSnapshot, bool, error) {
	return s.fng.Get(ctx)
}

// GoldPrice returns the cached gold prices.
func (s *Service) GoldPrice(ctx context.Context) (gold.Price, bool, error) {
	return s.gold.Get(ctx)
}

// SOLPrice returns the poller's last known SOL price. Never blocks on
// the upstream.
func (s *Service) SOLPrice() (float64, time.Time) {
	return s.sol.Price()
}

// ExchangeRate returns the live USD/THB rate.
func (s *Service) ExchangeRate(ctx context.Context) (float64, error) {
	rate, err := s.fx.GetRate(ctx, "USD", "THB")
	if err != nil {
		return 0, fmt.Errorf("failed to fetch exchange rate: %w", err)
	}
	return rate, nil
}
