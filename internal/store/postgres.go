package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/openkiosk/priceboard/internal/db"
	"github.com/openkiosk/priceboard/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"latest_facts":      `SELECT id, order_id, figure, description, quote, created_at FROM price_facts ORDER BY id DESC LIMIT $1`,
	"get_user_by_email": `SELECT id, email, password_hash, created_at FROM users WHERE email = $1`,
	"list_displays":     `SELECT id, user_id, name, payload, created_at, updated_at FROM displays WHERE user_id = $1 ORDER BY created_at DESC`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS displays (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	payload    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS price_facts (
	id          BIGSERIAL PRIMARY KEY,
	order_id    INTEGER NOT NULL,
	figure      DOUBLE PRECISION NOT NULL,
	description TEXT NOT NULL,
	quote       TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (order_id, description, quote)
);

CREATE INDEX IF NOT EXISTS idx_displays_user_id ON displays(user_id);
CREATE INDEX IF NOT EXISTS idx_price_facts_created_at ON price_facts(created_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// InsertPriceFacts persists a scrape batch. created_at is assigned here, at
// persistence time, not at extraction time. Rows colliding on the
// (order_id, description, quote) constraint are skipped, not failed, so
// re-running over unchanged source data inserts nothing.
func (s *PostgresStore) InsertPriceFacts(ctx context.Context, facts []model.PriceFact) (int, error) {
	if len(facts) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(facts))
	for _, f := range facts {
		rows = append(rows, []any{f.OrderID, f.Figure, f.Description, f.Quote, now})
	}

	n, err := db.InsertSkipConflicts(ctx, s.pool, db.InsertConfig{
		Table:        "price_facts",
		Columns:      []string{"order_id", "figure", "description", "quote", "created_at"},
		ConflictKeys: []string{"order_id", "description", "quote"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert price facts")
	}
	return int(n), nil
}

func (s *PostgresStore) LatestPriceFacts(ctx context.Context, limit int) ([]model.PriceFact, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, order_id, figure, description, quote, created_at FROM price_facts ORDER BY id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest price facts")
	}
	defer rows.Close()

	var facts []model.PriceFact
	for rows.Next() {
		var f model.PriceFact
		if err := rows.Scan(&f.ID, &f.OrderID, &f.Figure, &f.Description, &f.Quote, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan price fact")
		}
		facts = append(facts, f)
	}
	return facts, eris.Wrap(rows.Err(), "postgres: latest price facts iterate")
}

func (s *PostgresStore) CreateUser(ctx context.Context, email string, passwordHash string) (*model.User, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		id, email, passwordHash, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, eris.Wrap(err, "postgres: insert user")
	}

	return &model.User{ID: id, Email: email, PasswordHash: passwordHash, CreatedAt: now}, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "postgres: get user by email")
	}
	return &u, nil
}

func (s *PostgresStore) CreateDisplay(ctx context.Context, userID string, name string, payload json.RawMessage) (*model.Display, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO displays (id, user_id, name, payload, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, userID, name, []byte(payload), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert display")
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

func (s *PostgresStore) GetDisplay(ctx context.Context, userID string, id string) (*model.Display, error) {
	var d model.Display
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, name, payload, created_at, updated_at FROM displays WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&d.ID, &d.UserID, &d.Name, &payload, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get display %s", id)
	}
	d.Payload = payload
	return &d, nil
}

func (s *PostgresStore) ListDisplays(ctx context.Context, userID string) ([]model.Display, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, payload, created_at, updated_at FROM displays WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list displays")
	}
	defer rows.Close()

	var displays []model.Display
	for rows.Next() {
		var d model.Display
		var payload []byte
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &payload, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan display")
		}
		d.Payload = payload
		displays = append(displays, d)
	}
	return displays, eris.Wrap(rows.Err(), "postgres: list displays iterate")
}

func (s *PostgresStore) UpdateDisplay(ctx context.Context, userID string, id string, name string, payload json.RawMessage) (*model.Display, error) {
	now := time.Now().UTC()

	tag, err := s.pool.Exec(ctx,
		`UPDATE displays SET name = $1, payload = $2, updated_at = $3 WHERE id = $4 AND user_id = $5`,
		name, []byte(payload), now, id, userID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: update display %s", id)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	return s.GetDisplay(ctx, userID, id)
}

func (s *PostgresStore) DeleteDisplay(ctx context.Context, userID string, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM displays WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete display %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
