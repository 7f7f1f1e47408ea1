// Package gold provides a gold spot price client and baht-weight conversion.
package gold

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// Unit conversion constants. The Thai gold trade quotes per baht-weight,
// a mass unit of 15.244 grams; upstream quotes are per troy ounce.
const (
	GramsPerTroyOunce  = 31.1034768
	GramsPerBahtWeight = 15.244
	BahtPerOunceRatio  = GramsPerBahtWeight / GramsPerTroyOunce
)

// Quotes holds the two upstream quotes needed to derive local gold prices:
// 1 USD expressed in gold troy ounces (USDXAU) and in Thai baht (USDTHB).
type Quotes struct {
	USDXAU float64
	USDTHB float64
}

// Price is the derived gold price in both currencies and both mass units.
type Price struct {
	PerOzUSD   float64 `json:"goldPricePerOzUSD"`
	PerOzTHB   float64 `json:"goldPricePerOzTHB"`
	PerBahtUSD float64 `json:"goldPricePerBahtUSD"`
	PerBahtTHB float64 `json:"goldPricePerBahtTHB"`
}

// Convert derives the gold price from the upstream quotes.
// Reciprocal of USDXAU gives USD per ounce; multiplying by USDTHB converts
// currency; the ounce->baht-weight ratio converts mass.
func Convert(q Quotes) Price {
	perOzUSD := 1 / q.USDXAU
	perOzTHB := perOzUSD * q.USDTHB

	return Price{
		PerOzUSD:   perOzUSD,
		PerOzTHB:   perOzTHB,
		PerBahtUSD: perOzUSD * BahtPerOunceRatio,
		PerBahtTHB: perOzTHB * BahtPerOunceRatio,
	}
}

// Client for a currencylayer-style metals quote API
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
	log      zerolog.Logger
}

// NewClient creates a new gold quote client
func NewClient(endpoint, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      log.With().Str("client", "gold").Logger(),
	}
}

type quotesResponse struct {
	Success bool               `json:"success"`
	Quotes  map[string]float64 `json:"quotes"`
}

// GetPrice fetches the USD quotes and derives the gold price.
func (c *Client) GetPrice(ctx context.Context) (Price, error) {
	u := fmt.Sprintf("%s?api_key=%s&base=USD&currencies=%s",
		c.endpoint, url.QueryEscape(c.apiKey), url.QueryEscape("XAU,THB"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Price{}, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Price{}, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Price{}, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result quotesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Price{}, fmt.Errorf("failed to parse response: %w", err)
	}

	usdxau, okXAU := result.Quotes["USDXAU"]
	usdthb, okTHB := result.Quotes["USDTHB"]
	if !result.Success || !okXAU || !okTHB || usdxau <= 0 || usdthb <= 0 {
		return Price{}, fmt.Errorf("quote keys missing or invalid in response")
	}

	price := Convert(Quotes{USDXAU: usdxau, USDTHB: usdthb})

	c.log.Info().
		Float64("per_oz_usd", price.PerOzUSD).
		Float64("per_baht_thb", price.PerBahtTHB).
		Msg("Fetched gold price")

	return price, nil
}
