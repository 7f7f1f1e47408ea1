package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/papaya09/Personal-Finance-Tracker/internal/auth"
)

// handleHealth reports liveness plus a quick integrity check of both
// databases.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	databases := map[string]string{}
	healthy := true
	for _, db := range s.systemHandlers.databases() {
		if err := db.HealthCheck(ctx); err != nil {
			s.log.Error().Err(err).Str("database", db.Name()).Msg("Health check failed")
			databases[db.Name()] = "unhealthy"
			healthy = false
			continue
		}
		databases[db.Name()] = "ok"
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	writeJSON(w, status, map[string]interface{}{
		"status":    overall,
		"databases": databases,
	})
}

// handleHome serves the dashboard shell, or bounces to /login.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.PrincipalFrom(r.Context()); !ok {
		http.Redirect(w, r, "/login", http.StatusTemporaryRedirect)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(homePage)); err != nil {
		s.log.Error().Err(err).Msg("Failed to write home page")
	}
}

// handleLogin serves the sign-in page. Signed-in users go straight to
// the dashboard.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.PrincipalFrom(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(loginPage)); err != nil {
		s.log.Error().Err(err).Msg("Failed to write login page")
	}
}

const loginPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Personal Finance Tracker - Sign in</title>
</head>
<body>
  <main>
    <h1>Personal Finance Tracker</h1>
    <p>Sign in with your Google account to continue.</p>
    <a href="/auth/google">Sign in with Google</a>
  </main>
</body>
</html>
`

const homePage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Personal Finance Tracker</title>
</head>
<body>
  <main>
    <h1>Personal Finance Tracker</h1>
    <p>You are signed in. The API is available under this origin.</p>
    <a href="/logout">Sign out</a>
  </main>
</body>
</html>
`

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
