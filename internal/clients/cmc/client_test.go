package cmc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetListings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/cryptocurrency/listings/latest", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-CMC_PRO_API_KEY"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Equal(t, "USD", r.URL.Query().Get("convert"))
		w.Write([]byte(`{"status":{"error_code":0},"data":[{"id":1,"symbol":"BTC"}]}`))
	}))
	defer server.Close()

	client := NewClient("test-key", zerolog.Nop())
	client.baseURL = server.URL

	data, err := client.GetListings(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"symbol":"BTC"}]`, string(data))
}

func TestGetListingsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":{"error_code":1001,"error_message":"API key invalid"},"data":null}`))
	}))
	defer server.Close()

	client := NewClient("bad-key", zerolog.Nop())
	client.baseURL = server.URL

	_, err := client.GetListings(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key invalid")
}

func TestGetListingsUpstreamStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient("test-key", zerolog.Nop())
	client.baseURL = server.URL

	_, err := client.GetListings(context.Background())
	assert.Error(t, err)
}
