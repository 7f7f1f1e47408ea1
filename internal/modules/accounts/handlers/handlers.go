// Package handlers exposes the save/load endpoints for user portfolio
// documents.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/papaya09/Personal-Finance-Tracker/internal/auth"
	"github.com/papaya09/Personal-Finance-Tracker/internal/modules/accounts"
)

type Handler struct {
	repo *accounts.Repository
	log  zerolog.Logger
}

func NewHandler(repo *accounts.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("module", "accounts").Logger(),
	}
}

// RegisterRoutes mounts the document endpoints. The caller is expected
// to have already applied the auth gate.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/save", h.handleSave)
	r.Get("/load", h.handleLoad)
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	var doc accounts.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if err := h.repo.Save(principal.Key, doc); err != nil {
		h.log.Error().Err(err).Str("user", principal.Key).Msg("save failed")
		writeError(w, http.StatusInternalServerError, "Failed to save data.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Data saved successfully."})
}

func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	doc, err := h.repo.Load(principal.Key)
	if err != nil {
		h.log.Error().Err(err).Str("user", principal.Key).Msg("load failed")
		writeError(w, http.StatusInternalServerError, "Failed to load data.")
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
