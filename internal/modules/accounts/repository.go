package accounts

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Schema creates the user_accounts table. One row per user; saves
// replace the whole document.
const Schema = `
CREATE TABLE IF NOT EXISTS user_accounts (
	user_key TEXT PRIMARY KEY,
	accounts TEXT NOT NULL,
	manual_breakdowns TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// InitSchema creates the accounts table if it doesn't exist.
func InitSchema(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to initialize accounts schema: %w", err)
	}
	return nil
}

// Repository persists per-user portfolio documents.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save replaces the user's document. Missing fields are normalized to
// their empty forms so Load never returns null JSON.
func (r *Repository) Save(userKey string, doc Document) error {
	if len(doc.Accounts) == 0 {
		doc.Accounts = json.RawMessage("[]")
	}
	if len(doc.ManualBreakdowns) == 0 {
		doc.ManualBreakdowns = json.RawMessage("{}")
	}

	_, err := r.db.Exec(`
		INSERT INTO user_accounts (user_key, accounts, manual_breakdowns, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_key) DO UPDATE SET
			accounts = excluded.accounts,
			manual_breakdowns = excluded.manual_breakdowns,
			updated_at = excluded.updated_at
	`, userKey, string(doc.Accounts), string(doc.ManualBreakdowns), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save accounts for %s: %w", userKey, err)
	}
	return nil
}

// Load returns the user's document, or the empty document if they have
// never saved.
func (r *Repository) Load(userKey string) (Document, error) {
	var accounts, breakdowns string
	err := r.db.QueryRow(
		"SELECT accounts, manual_breakdowns FROM user_accounts WHERE user_key = ?", userKey,
	).Scan(&accounts, &breakdowns)
	if err == sql.ErrNoRows {
		return EmptyDocument(), nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("failed to load accounts for %s: %w", userKey, err)
	}

	return Document{
		Accounts:         json.RawMessage(accounts),
		ManualBreakdowns: json.RawMessage(breakdowns),
	}, nil
}
