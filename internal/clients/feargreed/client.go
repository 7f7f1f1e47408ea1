// Package feargreed provides a client for the alternative.me fear/greed index.
package feargreed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HistoricalLimit is the fixed lookback window for historical sentiment data.
const HistoricalLimit = 50

// Point is a single fear/greed index reading.
// Values arrive as strings from the API and are passed through unchanged.
type Point struct {
	Value          string `json:"value"`
	Classification string `json:"value_classification"`
	Timestamp      string `json:"timestamp"`
}

// Client for api.alternative.me
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new fear/greed index client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://api.alternative.me",
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "feargreed").Logger(),
	}
}

type fngResponse struct {
	Name string  `json:"name"`
	Data []Point `json:"data"`
}

// GetLatest fetches the most recent index reading.
func (c *Client) GetLatest(ctx context.Context) (Point, error) {
	points, err := c.fetch(ctx, 1)
	if err != nil {
		return Point{}, err
	}
	return points[0], nil
}

// GetHistorical fetches the fixed lookback window of index readings.
func (c *Client) GetHistorical(ctx context.Context) ([]Point, error) {
	return c.fetch(ctx, HistoricalLimit)
}

func (c *Client) fetch(ctx context.Context, limit int) ([]Point, error) {
	url := fmt.Sprintf("%s/fng/?limit=%d&format=json", c.baseURL, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result fngResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(result.Data) == 0 {
		return nil, fmt.Errorf("index data missing from response")
	}

	c.log.Info().Int("points", len(result.Data)).Msg("Fetched fear/greed index")

	return result.Data, nil
}
