package cart

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// OpenDB opens the local cart database and configures pragmas.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cart database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	return db, nil
}

// EnsureSchema creates the carts table if missing. One row per browser
// profile, items serialized as JSON.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS carts (
			id         TEXT PRIMARY KEY,
			items      TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating carts schema: %w", err)
	}
	return nil
}

// SQLiteStorage persists one cart, keyed by the browser's cart id.
type SQLiteStorage struct {
	db     *sql.DB
	cartID string
}

func NewSQLiteStorage(db *sql.DB, cartID string) *SQLiteStorage {
	return &SQLiteStorage{db: db, cartID: cartID}
}

func (s *SQLiteStorage) Load() ([]Item, error) {
	var raw string
	err := s.db.QueryRow(`SELECT items FROM carts WHERE id = ?`, s.cartID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading cart %s: %w", s.cartID, err)
	}

	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decoding cart %s: %w", s.cartID, err)
	}
	return items, nil
}

func (s *SQLiteStorage) Save(items []Item) error {
	if items == nil {
		items = []Item{}
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding cart %s: %w", s.cartID, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO carts (id, items, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET items = excluded.items, updated_at = excluded.updated_at
	`, s.cartID, string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving cart %s: %w", s.cartID, err)
	}
	return nil
}
