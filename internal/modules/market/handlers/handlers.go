// Package handlers exposes the market-data endpoints.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/papaya09/Personal-Finance-Tracker/internal/clients/gold"
	"github.com/papaya09/Personal-Finance-Tracker/internal/modules/market"
)

type Handler struct {
	service *market.Service
	log     zerolog.Logger
}

func NewHandler(service *market.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("module", "market").Logger(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/cmc/listings", h.handleListings)
	r.Get("/fng", h.handleFearGreed)
	r.Get("/goldprice", h.handleGoldPrice)
	r.Get("/solprice", h.handleSOLPrice)
	r.Get("/exchange-rate", h.handleExchangeRate)
}

func (h *Handler) handleListings(w http.ResponseWriter, r *http.Request) {
	data, cached, err := h.service.Listings(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("listings unavailable")
		writeError(w, http.StatusInternalServerError, "Failed to fetch crypto listings.")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Cached bool            `json:"cached"`
		Data   json.RawMessage `json:"data"`
	}{Cached: cached, Data: data})
}

func (h *Handler) handleFearGreed(w http.ResponseWriter, r *http.Request) {
	snapshot, cached, err := h.service.FearGreed(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("fear & greed index unavailable")
		writeError(w, http.StatusInternalServerError, "Failed to fetch fear & greed index.")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Cached bool `json:"cached"`
		market.FearGreedSnapshot
	}{Cached: cached, FearGreedSnapshot: snapshot})
}

func (h *Handler) handleGoldPrice(w http.ResponseWriter, r *http.Request) {
	price, cached, err := h.service.GoldPrice(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("gold price unavailable")
		writeError(w, http.StatusInternalServerError, "Failed to fetch gold price.")
		return
	}

	writeJSON(w, http.StatusOK, goldResponse{Cached: cached, Price: price})
}

// handleSOLPrice serves the poller's in-memory value. Before the first
// successful poll the price is 0 and updatedAt is null.
func (h *Handler) handleSOLPrice(w http.ResponseWriter, r *http.Request) {
	price, updatedAt := h.service.SOLPrice()

	resp := solResponse{Price: price}
	if !updatedAt.IsZero() {
		resp.UpdatedAt = &updatedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleExchangeRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.service.ExchangeRate(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("exchange rate unavailable")
		writeError(w, http.StatusInternalServerError, "Failed to fetch exchange rate.")
		return
	}

	writeJSON(w, http.StatusOK, rateResponse{From: "USD", To: "THB", Rate: rate})
}

// goldResponse embeds the price so the four gold fields sit at the top
// level of the response alongside the cached flag.
type goldResponse struct {
	Cached bool `json:"cached"`
	gold.Price
}

type solResponse struct {
	Price     float64    `json:"price"`
	UpdatedAt *time.Time `json:"updatedAt"`
}

type rateResponse struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Rate float64 `json:"rate"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
