package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"regexp"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"timbercalc/internal/config"
	"timbercalc/internal/errors"
)

const defaultKVTable = "kv_store"

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresKV stores keys in a single Postgres table
type PostgresKV struct {
	db    *sql.DB
	table string
}

// NewPostgresKV opens the database through the pgx driver and ensures the table exists
func NewPostgresKV(ctx context.Context, cfg config.PostgresConfig) (*PostgresKV, error) {
	if cfg.DSN == "" {
		return nil, errors.Config("postgres storage requires a dsn", nil)
	}
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, errors.Storage("open postgres", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Storage("connect to postgres", err)
	}

	s, err := NewPostgresKVFromDB(db, cfg.Table)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresKVFromDB wraps an open database
func NewPostgresKVFromDB(db *sql.DB, table string) (*PostgresKV, error) {
	if table == "" {
		table = defaultKVTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, errors.Config("invalid postgres table name: "+table, nil)
	}
	return &PostgresKV{db: db, table: table}, nil
}

// EnsureSchema creates the key-value table if missing
func (s *PostgresKV) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return errors.Storage("create table "+s.table, err)
	}
	return nil
}

func (s *PostgresKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.table)
	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Storage("postgres get "+key, err)
	}
	return []byte(value), true, nil
}

func (s *PostgresKV) Put(ctx context.Context, key string, value []byte) error {
	query := fmt.Sprintf(`
INSERT INTO %s (key, value, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (key)
DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`, s.table)
	if _, err := s.db.ExecContext(ctx, query, key, string(value), time.Now().UTC()); err != nil {
		return errors.Storage("postgres put "+key, err)
	}
	return nil
}

func (s *PostgresKV) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table)
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return errors.Storage("postgres delete "+key, err)
	}
	return nil
}

func (s *PostgresKV) Keys(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT key FROM %s ORDER BY key`, s.table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Storage("postgres keys", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, errors.Storage("postgres keys", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage("postgres keys", err)
	}
	return keys, nil
}

func (s *PostgresKV) Close() error {
	return s.db.Close()
}
