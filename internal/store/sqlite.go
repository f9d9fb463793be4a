package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/openkiosk/priceboard/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It is the
// single-file development driver; Postgres is the production one.
//
// SQLite has no NaN value: a NaN figure is stored as NULL and mapped back
// to NaN on read. figure is not part of the uniqueness key, so sentinel
// rows deduplicate across runs the same as numeric ones.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS displays (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	payload    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS price_facts (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id    INTEGER NOT NULL,
	figure      REAL,
	description TEXT NOT NULL,
	quote       TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (order_id, description, quote)
);

CREATE INDEX IF NOT EXISTS idx_displays_user_id ON displays(user_id);
CREATE INDEX IF NOT EXISTS idx_price_facts_created_at ON price_facts(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertPriceFacts(ctx context.Context, facts []model.PriceFact) (int, error) {
	if len(facts) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	inserted := 0
	for _, f := range facts {
		var figure any
		if !math.IsNaN(f.Figure) {
			figure = f.Figure
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO price_facts (order_id, figure, description, quote, created_at) VALUES (?, ?, ?, ?, ?)`,
			f.OrderID, figure, f.Description, f.Quote, now,
		)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: insert price fact")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit tx")
	}
	return inserted, nil
}

func (s *SQLiteStore) LatestPriceFacts(ctx context.Context, limit int) ([]model.PriceFact, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, order_id, figure, description, quote, created_at FROM price_facts ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest price facts")
	}
	defer rows.Close()

	var facts []model.PriceFact
	for rows.Next() {
		var f model.PriceFact
		var figure sql.NullFloat64
		if err := rows.Scan(&f.ID, &f.OrderID, &figure, &f.Description, &f.Quote, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan price fact")
		}
		if figure.Valid {
			f.Figure = figure.Float64
		} else {
			f.Figure = math.NaN()
		}
		facts = append(facts, f)
	}
	return facts, eris.Wrap(rows.Err(), "sqlite: latest price facts iterate")
}

func (s *SQLiteStore) CreateUser(ctx context.Context, email string, passwordHash string) (*model.User, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		id, email, passwordHash, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrConflict
		}
		return nil, eris.Wrap(err, "sqlite: insert user")
	}

	return &model.User{ID: id, Email: email, PasswordHash: passwordHash, CreatedAt: now}, nil
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`,
		email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "sqlite: get user by email")
	}
	return &u, nil
}

func (s *SQLiteStore) CreateDisplay(ctx context.Context, userID string, name string, payload json.RawMessage) (*model.Display, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO displays (id, user_id, name, payload, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, name, string(payload), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert display")
	}

	return &model.Display{
		ID:        id,
		UserID:    userID,
		Name:      name,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) GetDisplay(ctx context.Context, userID string, id string) (*model.Display, error) {
	var d model.Display
	var payload sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, payload, created_at, updated_at FROM displays WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(&d.ID, &d.UserID, &d.Name, &payload, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "sqlite: get display %s", id)
	}
	if payload.Valid {
		d.Payload = json.RawMessage(payload.String)
	}
	return &d, nil
}

func (s *SQLiteStore) ListDisplays(ctx context.Context, userID string) ([]model.Display, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, payload, created_at, updated_at FROM displays WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list displays")
	}
	defer rows.Close()

	var displays []model.Display
	for rows.Next() {
		var d model.Display
		var payload sql.NullString
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &payload, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan display")
		}
		if payload.Valid {
			d.Payload = json.RawMessage(payload.String)
		}
		displays = append(displays, d)
	}
	return displays, eris.Wrap(rows.Err(), "sqlite: list displays iterate")
}

func (s *SQLiteStore) UpdateDisplay(ctx context.Context, userID string, id string, name string, payload json.RawMessage) (*model.Display, error) {
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE displays SET name = ?, payload = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		name, string(payload), now, id, userID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update display %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return nil, ErrNotFound
	}

	return s.GetDisplay(ctx, userID, id)
}

func (s *SQLiteStore) DeleteDisplay(ctx context.Context, userID string, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM displays WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete display %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
