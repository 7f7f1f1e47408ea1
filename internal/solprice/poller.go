// Package solprice keeps an always-warm SOL/USD price in memory,
// refreshed on a fixed schedule instead of on request.
package solprice

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Fetcher returns the current SOL price in USD from an upstream source.
type Fetcher interface {
	GetSOLPrice(ctx context.Context) (float64, error)
}

// Poller holds the last successfully fetched SOL price. Reads never hit
// the upstream; a scheduler job drives Run on an interval.
type Poller struct {
	fetcher Fetcher
	log     zerolog.Logger

	mu        sync.RWMutex
	price     float64
	updatedAt time.Time
}

func NewPoller(fetcher Fetcher, log zerolog.Logger) *Poller {
	return &Poller{
		fetcher: fetcher,
		log:     log.With().Str("component", "solprice").Logger(),
	}
}

// Name implements scheduler.Job.
func (p *Poller) Name() string {
	return "sol_price_refresh"
}

// Run fetches a fresh price. On failure the previous value stays in
// place, so readers keep seeing the last good price.
func (p *Poller) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	price, err := p.fetcher.GetSOLPrice(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("SOL price refresh failed, keeping previous value")
		return err
	}

	p.mu.Lock()
	p.price = price
	p.updatedAt = time.Now()
	p.mu.Unlock()

	p.log.Debug().Float64("price", price).Msg("SOL price refreshed")
	return nil
}

// Price returns the last known price and when it was fetched. Before the
// first successful refresh the price is 0 and the timestamp is zero.
func (p *Poller) Price() (float64, time.Time) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.price, p.updatedAt
}
