package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// CookieName is the session cookie set after sign-in.
	CookieName = "folio_session"

	// SessionTTL is how long a session stays valid after creation.
	SessionTTL = 7 * 24 * time.Hour
)

// SessionSchema creates the sessions table in the standard database.
const SessionSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	principal TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
`

// InitSessionSchema creates the sessions table if it doesn't exist.
func InitSessionSchema(db *sql.DB) error {
	if _, err := db.Exec(SessionSchema); err != nil {
		return fmt.Errorf("failed to initialize sessions schema: %w", err)
	}
	return nil
}

// SessionStore persists sessions in SQLite. Cookie values are the
// session id plus an HMAC-SHA256 signature, so a tampered cookie is
// rejected before the database is ever consulted.
type SessionStore struct {
	db     *sql.DB
	secret []byte
	log    zerolog.Logger
}

func NewSessionStore(db *sql.DB, secret string, log zerolog.Logger) *SessionStore {
	return &SessionStore{
		db:     db,
		secret: []byte(secret),
		log:    log.With().Str("component", "sessions").Logger(),
	}
}

// Create persists a new session for the principal and returns the
// signed cookie value.
func (s *SessionStore) Create(p Principal) (string, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to serialize principal: %w", err)
	}

	id := uuid.New().String()
	now := time.Now()

	_, err = s.db.Exec(
		"INSERT INTO sessions (id, principal, created_at, expires_at) VALUES (?, ?, ?, ?)",
		id, string(payload), now.Unix(), now.Add(SessionTTL).Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	s.log.Debug().Str("user", p.Key).Msg("session created")
	return id + "." + s.sign(id), nil
}

// Resolve verifies the cookie signature and loads the session's
// principal. Returns (nil, nil) for invalid, unknown or expired
// sessions - those are not errors, just "not signed in".
func (s *SessionStore) Resolve(cookieValue string) (*Principal, error) {
	id, ok := s.verify(cookieValue)
	if !ok {
		return nil, nil
	}

	var payload string
	var expiresAt int64
	err := s.db.QueryRow(
		"SELECT principal, expires_at FROM sessions WHERE id = ?", id,
	).Scan(&payload, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if time.Now().Unix() >= expiresAt {
		return nil, nil
	}

	var p Principal
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("failed to parse session principal: %w", err)
	}
	return &p, nil
}

// Destroy removes the session behind the cookie value. Unknown or
// malformed cookies are ignored.
func (s *SessionStore) Destroy(cookieValue string) error {
	id, ok := s.verify(cookieValue)
	if !ok {
		return nil
	}

	if _, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions past their expiry.
func (s *SessionStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec("DELETE FROM sessions WHERE expires_at <= ?", time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

func (s *SessionStore) sign(id string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))
}

// verify splits a cookie value into id and signature and checks the
// signature. Returns the id and whether the cookie is authentic.
func (s *SessionStore) verify(cookieValue string) (string, bool) {
	id, sig, found := strings.Cut(cookieValue, ".")
	if !found || id == "" {
		return "", false
	}

	expected, err := hex.DecodeString(s.sign(id))
	if err != nil {
		return "", false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return "", false
	}
	if !hmac.Equal(expected, got) {
		return "", false
	}
	return id, true
}

// SweepJob deletes expired sessions on a schedule.
type SweepJob struct {
	store *SessionStore
	log   zerolog.Logger
}

func NewSweepJob(store *SessionStore, log zerolog.Logger) *SweepJob {
	return &SweepJob{
		store: store,
		log:   log.With().Str("job", "session_sweep").Logger(),
	}
}

// Name implements scheduler.Job.
func (j *SweepJob) Name() string {
	return "session_sweep"
}

// Run removes all expired sessions.
func (j *SweepJob) Run() error {
	deleted, err := j.store.DeleteExpired()
	if err != nil {
		return err
	}
	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("expired sessions removed")
	}
	return nil
}
