package issuance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists issuance state in PostgreSQL so the naming counter
// survives restarts and tokens stay auditable across instances.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS issuance_counter (
			id INT PRIMARY KEY CHECK (id = 1),
			value BIGINT NOT NULL
		);`,
		`INSERT INTO issuance_counter (id, value) VALUES (1, 0) ON CONFLICT (id) DO NOTHING;`,
		`CREATE TABLE IF NOT EXISTS issuance_records (
			id TEXT PRIMARY KEY,
			identity TEXT NOT NULL,
			room TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_issuance_records_created ON issuance_records (created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) NextCounter(ctx context.Context) (int64, error) {
	var value int64
	err := s.pool.QueryRow(ctx,
		`UPDATE issuance_counter SET value = value + 1 WHERE id = 1 RETURNING value`,
	).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("increment counter: %w", err)
	}
	return value, nil
}

func (s *PostgresStore) SaveRecord(ctx context.Context, record Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO issuance_records (id, identity, room, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		record.ID,
		record.Identity,
		record.Room,
		record.ExpiresAt,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentRecords(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, identity, room, expires_at, created_at
		 FROM issuance_records ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Identity, &r.Room, &r.ExpiresAt, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
