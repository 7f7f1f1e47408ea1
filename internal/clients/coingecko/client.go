// Package coingecko provides a CoinGecko client for single-token prices.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client for api.coingecko.com
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new CoinGecko client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://api.coingecko.com",
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "coingecko").Logger(),
	}
}

type marketEntry struct {
	CurrentPrice float64 `json:"current_price"`
}

// GetSOLPrice fetches the current SOL price in USD.
// A non-positive price is treated as a fetch failure so callers never
// replace a good value with a bad one.
func (c *Client) GetSOLPrice(ctx context.Context) (float64, error) {
	url := c.baseURL + "/api/v3/coins/markets?vs_currency=usd&ids=solana"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var entries []marketEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(entries) == 0 {
		return 0, fmt.Errorf("token missing from response")
	}

	price := entries[0].CurrentPrice
	if price <= 0 {
		return 0, fmt.Errorf("invalid price in response: %f", price)
	}

	return price, nil
}
