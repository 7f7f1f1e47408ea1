package auth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const stateCookieName = "folio_oauth_state"

// RegisterRoutes mounts the sign-in, sign-out and status endpoints.
// All of them are public: /user reports the signed-in state instead of
// demanding one, and an expired session must still be able to clear
// its cookie via /logout.
func (s *Service) RegisterRoutes(r chi.Router) {
	r.Get("/auth/google", s.handleLogin)
	r.Get("/auth/google/callback", s.handleCallback)
	r.Post("/auth/google/token", s.handleTokenSignIn)
	r.Get("/user", s.handleUser)
	r.Get("/logout", s.handleLogout)
	r.Post("/logout", s.handleLogout)
}

// handleLogin starts the OAuth code flow. The state value round-trips
// through a short-lived cookie to bind callback and initiator.
func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to generate OAuth state")
		writeError(w, http.StatusInternalServerError, "Failed to start sign-in.")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, s.google.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (s *Service) handleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		writeError(w, http.StatusUnauthorized, "Invalid sign-in state.")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusUnauthorized, "Missing authorization code.")
		return
	}

	principal, err := s.google.ExchangeCode(r.Context(), code)
	if err != nil {
		s.log.Error().Err(err).Msg("OAuth code exchange failed")
		writeError(w, http.StatusUnauthorized, "Google sign-in failed.")
		return
	}

	if err := s.startSession(w, principal); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session.")
		return
	}

	// State cookie is single-use.
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: "/", MaxAge: -1})

	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// handleTokenSignIn accepts a Google ID token from a front end using
// Google Identity Services directly.
func (s *Service) handleTokenSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDToken string `json:"idToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.IDToken == "" {
		writeError(w, http.StatusBadRequest, "Missing idToken.")
		return
	}

	principal, err := s.google.VerifyIDToken(r.Context(), body.IDToken)
	if err != nil {
		s.log.Warn().Err(err).Msg("ID token verification failed")
		writeError(w, http.StatusUnauthorized, "Google sign-in failed.")
		return
	}

	if err := s.startSession(w, principal); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"loggedIn": true, "user": principal})
}

// handleUser reports the signed-in state. Anonymous callers get
// {loggedIn: false} with 200, never a 401.
func (s *Service) handleUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{"loggedIn": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"loggedIn": true, "user": principal})
}

func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(CookieName); err == nil {
		if err := s.store.Destroy(cookie.Value); err != nil {
			s.log.Error().Err(err).Msg("failed to destroy session")
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	if r.Method == http.MethodGet {
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out."})
}

func (s *Service) startSession(w http.ResponseWriter, principal Principal) error {
	cookieValue, err := s.store.Create(principal)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create session")
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    cookieValue,
		Path:     "/",
		MaxAge:   int(SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
