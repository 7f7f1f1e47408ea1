package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papaya09/Personal-Finance-Tracker/internal/auth"
	"github.com/papaya09/Personal-Finance-Tracker/internal/modules/accounts"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, accounts.InitSchema(db))

	handler := NewHandler(accounts.NewRepository(db), zerolog.Nop())

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func asUser(req *http.Request, key string) *http.Request {
	ctx := auth.WithPrincipal(req.Context(), auth.Principal{Key: key, Name: "Test User"})
	return req.WithContext(ctx)
}

func TestSaveThenLoad(t *testing.T) {
	router := setupRouter(t)

	body := `{"accounts":[{"name":"Brokerage","balance":500}],"manualBreakdowns":{"Brokerage":{"stocks":1}}}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/save", strings.NewReader(body)), "user@example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var saveResp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saveResp))
	assert.Equal(t, "Data saved successfully.", saveResp["message"])

	req = asUser(httptest.NewRequest(http.MethodGet, "/load", nil), "user@example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, body, rec.Body.String())
}

func TestLoadDefaultsForNewUser(t *testing.T) {
	router := setupRouter(t)

	req := asUser(httptest.NewRequest(http.MethodGet, "/load", nil), "new@example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"accounts":[],"manualBreakdowns":{}}`, rec.Body.String())
}

func TestSaveWithoutPrincipal(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/save", strings.NewReader(`{"accounts":[]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["error"])
}

func TestSaveRejectsMalformedBody(t *testing.T) {
	router := setupRouter(t)

	req := asUser(httptest.NewRequest(http.MethodPost, "/save", strings.NewReader(`{not json`)), "user@example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
