package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoPrincipal() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFrom(r.Context())
		writeJSON(w, http.StatusOK, p)
	})
}

func TestMiddlewareResolvesSession(t *testing.T) {
	store := testStore(t)
	service := NewService(store, nil, false, zerolog.Nop())

	cookie, err := store.Create(Principal{Key: "user@example.com", Name: "Test User"})
	require.NoError(t, err)

	handler := service.Middleware(RequireAuth(echoPrincipal()))

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: cookie})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got Principal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "user@example.com", got.Key)
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	service := NewService(testStore(t), nil, false, zerolog.Nop())
	handler := service.Middleware(RequireAuth(echoPrincipal()))

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Authentication required.", body["error"])
}

func TestMiddlewareDevMode(t *testing.T) {
	service := NewService(testStore(t), nil, true, zerolog.Nop())
	handler := service.Middleware(RequireAuth(echoPrincipal()))

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got Principal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "dev-admin", got.Key)
	assert.Equal(t, "Admin (dev)", got.Name)
}

func TestUserEndpointAnonymousEnvelope(t *testing.T) {
	service := NewService(testStore(t), nil, false, zerolog.Nop())

	rec := httptest.NewRecorder()
	service.handleUser(rec, httptest.NewRequest(http.MethodGet, "/user", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["loggedIn"])
	assert.NotContains(t, body, "user")
}

func TestUserEndpointSignedInEnvelope(t *testing.T) {
	store := testStore(t)
	service := NewService(store, nil, false, zerolog.Nop())

	cookie, err := store.Create(Principal{Key: "109876543210", Name: "Test User", Email: "user@example.com"})
	require.NoError(t, err)

	handler := service.Middleware(http.HandlerFunc(service.handleUser))
	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: cookie})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		LoggedIn bool      `json:"loggedIn"`
		User     Principal `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.LoggedIn)
	assert.Equal(t, "109876543210", body.User.Key)
}

func TestTokenSignIn(t *testing.T) {
	tokeninfo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"aud":"client-123","sub":"109876543210","email":"user@example.com","name":"Test User"}`))
	}))
	defer tokeninfo.Close()

	verifier := NewGoogleVerifier("client-123", "secret", "http://localhost/cb", zerolog.Nop())
	verifier.tokeninfoURL = tokeninfo.URL

	store := testStore(t)
	service := NewService(store, verifier, false, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/auth/google/token", strings.NewReader(`{"idToken":"some-token"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	service.handleTokenSignIn(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		LoggedIn bool      `json:"loggedIn"`
		User     Principal `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.LoggedIn)
	assert.Equal(t, "109876543210", body.User.Key)

	// The session cookie must resolve back to the same principal
	var sessionCookie string
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			sessionCookie = c.Value
		}
	}
	require.NotEmpty(t, sessionCookie)
	resolved, err := store.Resolve(sessionCookie)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, "109876543210", resolved.Key)
}

func TestTokenSignInMissingToken(t *testing.T) {
	service := NewService(testStore(t), nil, false, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/auth/google/token", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	service.handleTokenSignIn(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutGetRedirectsHome(t *testing.T) {
	store := testStore(t)
	service := NewService(store, nil, false, zerolog.Nop())

	cookie, err := store.Create(Principal{Key: "109876543210", Name: "Test User"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: cookie})
	rec := httptest.NewRecorder()
	service.handleLogout(rec, req)

	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	resolved, err := store.Resolve(cookie)
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestLogoutDestroysSession(t *testing.T) {
	store := testStore(t)
	service := NewService(store, nil, false, zerolog.Nop())

	cookie, err := store.Create(Principal{Key: "user@example.com", Name: "Test User"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: cookie})
	rec := httptest.NewRecorder()
	service.handleLogout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	resolved, err := store.Resolve(cookie)
	require.NoError(t, err)
	assert.Nil(t, resolved)
}
