package clientdata

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	require.NoError(t, InitSchema(db))

	return db
}

func TestNewRepository(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	assert.NotNil(t, repo)
}

func TestStoreAndGetIfFresh(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	payload := map[string]interface{}{"price": 2000.0, "currency": "USD"}
	err := repo.Store("goldprice", "THB", payload, time.Hour)
	require.NoError(t, err)

	data, err := repo.GetIfFresh("goldprice", "THB")
	require.NoError(t, err)
	require.NotNil(t, data)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 2000.0, got["price"])
	assert.Equal(t, "USD", got["currency"])
}

func TestStoreReplacesExistingEntry(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	require.NoError(t, repo.Store("feargreed", "latest", map[string]int{"value": 25}, time.Hour))
	require.NoError(t, repo.Store("feargreed", "latest", map[string]int{"value": 74}, time.Hour))

	data, err := repo.GetIfFresh("feargreed", "latest")
	require.NoError(t, err)

	var got map[string]int
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 74, got["value"])

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM feargreed").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestGetIfFreshMiss(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	data, err := repo.GetIfFresh("cmc_listings", "latest")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestGetIfFreshExpired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	// Expired entry is invisible to GetIfFresh but visible to Get
	expiredAt := time.Now().Add(-time.Hour).Unix()
	_, err := db.Exec("INSERT INTO goldprice (cache_key, data, expires_at) VALUES (?, ?, ?)",
		"THB", `{"price":1900}`, expiredAt)
	require.NoError(t, err)

	fresh, err := repo.GetIfFresh("goldprice", "THB")
	require.NoError(t, err)
	assert.Nil(t, fresh)

	stale, err := repo.Get("goldprice", "THB")
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":1900}`, string(stale))
}

func TestInvalidTableName(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	err := repo.Store("settings; DROP TABLE goldprice", "k", "v", time.Hour)
	assert.Error(t, err)

	_, err = repo.GetIfFresh("nope", "k")
	assert.Error(t, err)
}

func TestDeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	now := time.Now()
	expiredAt := now.Add(-time.Hour).Unix()
	freshAt := now.Add(time.Hour).Unix()

	_, err := db.Exec("INSERT INTO feargreed (cache_key, data, expires_at) VALUES (?, ?, ?)",
		"latest", `{}`, expiredAt)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO feargreed (cache_key, data, expires_at) VALUES (?, ?, ?)",
		"historical", `{}`, freshAt)
	require.NoError(t, err)

	deleted, err := repo.DeleteExpired("feargreed")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM feargreed").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestCleanupJobRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	job := NewCleanupJob(repo, zerolog.Nop())

	assert.Equal(t, "client_data_cleanup", job.Name())

	now := time.Now()
	expiredAt := now.Add(-time.Hour).Unix()
	freshAt := now.Add(time.Hour).Unix()

	for _, table := range AllTables {
		_, err := db.Exec("INSERT INTO "+table+" (cache_key, data, expires_at) VALUES (?, ?, ?)",
			"expired", `{}`, expiredAt)
		require.NoError(t, err)
		_, err = db.Exec("INSERT INTO "+table+" (cache_key, data, expires_at) VALUES (?, ?, ?)",
			"fresh", `{}`, freshAt)
		require.NoError(t, err)
	}

	require.NoError(t, job.Run())

	for _, table := range AllTables {
		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&count))
		assert.Equal(t, 1, count, "table %s should retain only the fresh entry", table)
	}
}

func TestCleanupJobRunEmptyTables(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	job := NewCleanupJob(repo, zerolog.Nop())

	require.NoError(t, job.Run())
}
