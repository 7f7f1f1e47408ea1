// Package cmc provides a CoinMarketCap API client for coin listings.
package cmc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// DefaultLimit is the fixed page size requested from the listings endpoint.
const DefaultLimit = 100

// Client for pro-api.coinmarketcap.com
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new CoinMarketCap client
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://pro-api.coinmarketcap.com",
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "coinmarketcap").Logger(),
	}
}

// listingsResponse is the envelope returned by the listings endpoint.
// The data array is passed through opaquely - the frontend interprets it.
type listingsResponse struct {
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
	Data json.RawMessage `json:"data"`
}

// GetListings fetches the latest coin listings (first page, USD quotes).
func (c *Client) GetListings(ctx context.Context) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/v1/cryptocurrency/listings/latest?start=1&limit=%d&convert=USD", c.baseURL, DefaultLimit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result listingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Status.ErrorCode != 0 {
		return nil, fmt.Errorf("API error %d: %s", result.Status.ErrorCode, result.Status.ErrorMessage)
	}

	if len(result.Data) == 0 {
		return nil, fmt.Errorf("listings missing from response")
	}

	c.log.Info().Int("limit", DefaultLimit).Msg("Fetched coin listings")

	return result.Data, nil
}
