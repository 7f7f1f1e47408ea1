package auth

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Service ties session resolution and the Google verifier together and
// provides the HTTP middleware gate.
type Service struct {
	store   *SessionStore
	google  *GoogleVerifier
	devMode bool
	log     zerolog.Logger
}

func NewService(store *SessionStore, google *GoogleVerifier, devMode bool, log zerolog.Logger) *Service {
	return &Service{
		store:   store,
		google:  google,
		devMode: devMode,
		log:     log.With().Str("component", "auth").Logger(),
	}
}

// Middleware resolves the session cookie into a request principal. It
// never rejects - RequireAuth does that for protected routes. In dev
// mode every request runs as the fixed dev principal.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.devMode {
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), DevPrincipal)))
			return
		}

		cookie, err := r.Cookie(CookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := s.store.Resolve(cookie.Value)
		if err != nil {
			s.log.Error().Err(err).Msg("session resolution failed")
			next.ServeHTTP(w, r)
			return
		}
		if principal == nil {
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), *principal)))
	})
}

// RequireAuth rejects requests without a resolved principal.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFrom(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
