package store

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/propdata-cli/internal/model"
)

// Pool abstracts the subset of pgxpool.Pool the store uses, so tests
// can substitute a mock pool.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store on top of a pgx connection pool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres connects to the given database URL and verifies the
// connection with a ping.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS properties (
	id          UUID PRIMARY KEY,
	property_id TEXT NOT NULL,
	apn         TEXT,
	street      TEXT,
	city        TEXT,
	state       TEXT,
	zip_code    TEXT,
	record      JSONB NOT NULL,
	fetched_at  TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_properties_property_id ON properties(property_id);
CREATE INDEX IF NOT EXISTS idx_properties_city_state ON properties(city, state);
`

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// SaveProperties inserts each record as an independent row and returns
// the number inserted.
func (s *PostgresStore) SaveProperties(ctx context.Context, records []model.PropertyRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	for _, rec := range records {
		blob, err := json.Marshal(rec)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal record")
		}
		if _, err := s.pool.Exec(ctx, `
			INSERT INTO properties (id, property_id, apn, street, city, state, zip_code, record, fetched_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			uuid.NewString(),
			rec.ID,
			rec.APN,
			rec.Address.Street,
			rec.Address.City,
			rec.Address.State,
			rec.Address.ZipCode,
			blob,
			rec.FetchedAt,
		); err != nil {
			return 0, eris.Wrap(err, "postgres: insert property")
		}
	}
	return len(records), nil
}

// ListProperties returns saved records, newest first.
func (s *PostgresStore) ListProperties(ctx context.Context, filter Filter) ([]model.PropertyRecord, error) {
	query := `SELECT record FROM properties WHERE 1=1`
	var args []any
	if filter.City != "" {
		args = append(args, filter.City)
		query += ` AND city = $1`
	}
	if filter.State != "" {
		args = append(args, filter.State)
		query += ` AND state = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list properties")
	}
	defer rows.Close()

	var out []model.PropertyRecord
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		var rec model.PropertyRecord
		if err := json.Unmarshal(blob, &rec); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal record")
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountProperties returns the total number of saved records.
func (s *PostgresStore) CountProperties(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM properties`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count properties")
	}
	return n, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
