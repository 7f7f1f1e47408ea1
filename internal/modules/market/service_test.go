package market

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papaya09/Personal-Finance-Tracker/internal/clients/feargreed"
	"github.com/papaya09/Personal-Finance-Tracker/internal/clients/gold"
	"github.com/papaya09/Personal-Finance-Tracker/internal/solprice"
)

type stubListings struct {
	calls int
	err   error
}

func (s *stubListings) GetListings(ctx context.Context) (json.RawMessage, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(`[{"symbol":"BTC"}]`), nil
}

type stubFearGreed struct{}

func (stubFearGreed) GetLatest(ctx context.Context) (feargreed.Point, error) {
	return feargreed.Point{Value: "60", Classification: "Greed"}, nil
}

func (stubFearGreed) GetHistorical(ctx context.Context) ([]feargreed.Point, error) {
	return []feargreed.Point{{Value: "60", Classification: "Greed"}, {Value: "41", Classification: "Fear"}}, nil
}

type stubGold struct{}

func (stubGold) GetPrice(ctx context.Context) (gold.Price, error) {
	return gold.Convert(gold.Quotes{USDXAU: 0.0005, USDTHB: 34.0}), nil
}

type stubSOL struct{ price float64 }

func (s stubSOL) GetSOLPrice(ctx context.Context) (float64, error) { return s.price, nil }

type stubRate struct {
	rate float64
	err  error
}

func (s stubRate) GetRate(ctx context.Context, from, to string) (float64, error) {
	return s.rate, s.err
}

func testService(listings *stubListings, rate stubRate) *Service {
	poller := solprice.NewPoller(stubSOL{price: 150}, zerolog.Nop())
	_ = poller.Run()

	return NewService(Deps{
		Listings:  listings,
		FearGreed: stubFearGreed{},
		Gold:      stubGold{},
		SOL:       poller,
		Exchange:  rate,
		Log:       zerolog.Nop(),
	})
}

func TestListingsCachedOnSecondRead(t *testing.T) {
	listings := &stubListings{}
	service := testService(listings, stubRate{rate: 34.0})
	ctx := context.Background()

	data, cached, err := service.Listings(ctx)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.JSONEq(t, `[{"symbol":"BTC"}]`, string(data))

	_, cached, err = service.Listings(ctx)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, listings.calls)
}

func TestListingsErrorWithEmptyCache(t *testing.T) {
	listings := &stubListings{err: errors.New("upstream down")}
	service := testService(listings, stubRate{rate: 34.0})

	_, _, err := service.Listings(context.Background())
	assert.Error(t, err)
}

func TestFearGreedSnapshot(t *testing.T) {
	service := testService(&stubListings{}, stubRate{rate: 34.0})

	snapshot, cached, err := service.FearGreed(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "60", snapshot.Latest.Value)
	assert.Len(t, snapshot.Historical, 2)
}

func TestGoldPrice(t *testing.T) {
	service := testService(&stubListings{}, stubRate{rate: 34.0})

	price, _, err := service.GoldPrice(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 2000.0, price.PerOzUSD, 1e-9)
}

func TestSOLPriceFromPoller(t *testing.T) {
	service := testService(&stubListings{}, stubRate{rate: 34.0})

	price, updatedAt := service.SOLPrice()
	assert.Equal(t, 150.0, price)
	assert.False(t, updatedAt.IsZero())
}

func TestExchangeRateIsLive(t *testing.T) {
	service := testService(&stubListings{}, stubRate{rate: 34.05})

	rate, err := service.ExchangeRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 34.05, rate)
}

func TestExchangeRateError(t *testing.T) {
	service := testService(&stubListings{}, stubRate{err: errors.New("upstream down")})

	_, err := service.ExchangeRate(context.Background())
	assert.Error(t, err)
}
