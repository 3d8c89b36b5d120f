package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

const sweetColumns = "id, name, description, category, price_cents, quantity, image, created_by, created_at, updated_at"

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the sweets table and indexes if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sweets (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL,
			category    TEXT NOT NULL,
			price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
			quantity    BIGINT NOT NULL CHECK (quantity >= 0),
			image       TEXT NOT NULL DEFAULT 'default-sweet.jpg',
			created_by  TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sweets_category ON sweets (category);
	`)
	if err != nil {
		return fmt.Errorf("ensure sweets schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *PostgresStore) Create(ctx context.Context, sw Sweet) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO sweets (`+sweetColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, sw.ID, sw.Name, sw.Description, sw.Category, sw.PriceCents, sw.Quantity,
			sw.Image, sw.CreatedBy, sw.CreatedAt, sw.UpdatedAt)
		return err
	})
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Sweet, bool, error) {
	var sw Sweet

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return scanSweet(s.db.QueryRowContext(ctx, `
			SELECT `+sweetColumns+` FROM sweets WHERE id = $1
		`, id), &sw)
	})

	if err == sql.ErrNoRows {
		return Sweet{}, false, nil
	}
	if err != nil {
		return Sweet{}, false, err
	}
	return sw, true, nil
}

func (s *PostgresStore) Search(ctx context.Context, f Filter) ([]Sweet, error) {
	query, args := buildSearchQuery(f)

	var out []Sweet
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Sweet, 0, 16)
		for rows.Next() {
			var sw Sweet
			if err := scanSweet(rows, &sw); err != nil {
				return err
			}
			out = append(out, sw)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

// buildSearchQuery assembles the WHERE clause from the supplied predicates
// only. The free-text predicate is a case-insensitive substring match over
// name or description, never tokenized.
func buildSearchQuery(f Filter) (string, []any) {
	var (
		where []string
		args  []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Query != "" {
		p := arg("%" + escapeLike(f.Query) + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", p, p))
	}
	if f.Category != "" {
		where = append(where, "category = "+arg(string(f.Category)))
	}
	if f.MinPriceCents != nil {
		where = append(where, "price_cents >= "+arg(*f.MinPriceCents))
	}
	if f.MaxPriceCents != nil {
		where = append(where, "price_cents <= "+arg(*f.MaxPriceCents))
	}

	q := "SELECT " + sweetColumns + " FROM sweets"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id ASC"
	if f.Limit > 0 {
		q += " LIMIT " + arg(f.Limit)
	}

	return q, args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *PostgresStore) Update(ctx context.Context, id string, p Patch) (Sweet, bool, error) {
	if p.Empty() {
		return s.Get(ctx, id)
	}

	var (
		sets []string
		args []any
	)

	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if p.Name != nil {
		set("name", *p.Name)
	}
	if p.Description != nil {
		set("description", *p.Description)
	}
	if p.Category != nil {
		set("category", string(*p.Category))
	}
	if p.PriceCents != nil {
		set("price_cents", *p.PriceCents)
	}
	if p.Quantity != nil {
		set("quantity", *p.Quantity)
	}
	if p.Image != nil {
		set("image", *p.Image)
	}
	set("updated_at", time.Now().UTC())

	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE sweets SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), sweetColumns,
	)

	var sw Sweet
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return scanSweet(s.db.QueryRowContext(ctx, query, args...), &sw)
	})

	if err == sql.ErrNoRows {
		return Sweet{}, false, nil
	}
	if err != nil {
		return Sweet{}, false, err
	}
	return sw, true, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) (bool, error) {
	var found bool

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM sweets WHERE id = $1`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		found = n > 0
		return nil
	})

	return found, err
}

func (s *PostgresStore) Purchase(ctx context.Context, id string, qty int64) (Sweet, error) {
	if qty <= 0 {
		return Sweet{}, ErrInvalidQuantity
	}

	var sw Sweet
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		// Conditional decrement in one statement; the WHERE clause is the
		// availability check, evaluated against the stored value.
		err := scanSweet(s.db.QueryRowContext(ctx, `
			UPDATE sweets
			SET quantity = quantity - $2, updated_at = $3
			WHERE id = $1 AND quantity >= $2
			RETURNING `+sweetColumns+`
		`, id, qty, time.Now().UTC()), &sw)
		if err != sql.ErrNoRows {
			return err
		}

		// No row matched: either the sweet is gone or stock is short.
		var exists bool
		if err := s.db.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM sweets WHERE id = $1)
		`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrInsufficientStock
	})

	if err != nil {
		return Sweet{}, err
	}
	return sw, nil
}

func (s *PostgresStore) Restock(ctx context.Context, id string, qty int64) (Sweet, error) {
	if qty <= 0 {
		return Sweet{}, ErrInvalidQuantity
	}

	var sw Sweet
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		err := scanSweet(s.db.QueryRowContext(ctx, `
			UPDATE sweets
			SET quantity = quantity + $2, updated_at = $3
			WHERE id = $1
			RETURNING `+sweetColumns+`
		`, id, qty, time.Now().UTC()), &sw)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return err
	})

	if err != nil {
		return Sweet{}, err
	}
	return sw, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSweet(row rowScanner, sw *Sweet) error {
	return row.Scan(&sw.ID, &sw.Name, &sw.Description, &sw.Category, &sw.PriceCents,
		&sw.Quantity, &sw.Image, &sw.CreatedBy, &sw.CreatedAt, &sw.UpdatedAt)
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
