package gold

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	price := Convert(Quotes{USDXAU: 0.0005, USDTHB: 34.0})

	assert.InDelta(t, 2000.0, price.PerOzUSD, 1e-9)
	assert.InDelta(t, 68000.0, price.PerOzTHB, 1e-9)
	assert.InDelta(t, 980.21, price.PerBahtUSD, 0.01)
	assert.InDelta(t, 33327.2, price.PerBahtTHB, 0.1)
}

func TestConvertRatio(t *testing.T) {
	assert.InDelta(t, 0.490105993, BahtPerOunceRatio, 1e-9)
}

func TestGetPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "USD", r.URL.Query().Get("base"))
		assert.Equal(t, "XAU,THB", r.URL.Query().Get("currencies"))
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		w.Write([]byte(`{"success":true,"quotes":{"USDXAU":0.0005,"USDTHB":34.0}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", zerolog.Nop())

	price, err := client.GetPrice(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 2000.0, price.PerOzUSD, 1e-9)
	assert.InDelta(t, 33327.2, price.PerBahtTHB, 0.1)
}

func TestGetPriceMissingQuoteKeys(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"quotes":{"USDXAU":0.0005}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", zerolog.Nop())

	_, err := client.GetPrice(context.Background())
	assert.Error(t, err)
}

func TestGetPriceUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", zerolog.Nop())

	_, err := client.GetPrice(context.Background())
	assert.Error(t, err)
}

func TestGetPriceZeroQuoteRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"quotes":{"USDXAU":0,"USDTHB":34.0}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", zerolog.Nop())

	_, err := client.GetPrice(context.Background())
	assert.Error(t, err)
}
