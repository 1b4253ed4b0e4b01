package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresBackend persists the aggregate in a one-row key-value table
// of a PostgreSQL database.
type PostgresBackend struct {
	db  *sql.DB
	key string
}

// NewPostgresBackend connects to the database identified by dsn and
// prepares the key-value table.
func NewPostgresBackend(dsn, key string) (*PostgresBackend, error) {
	if dsn == "" {
		return nil, fmt.Errorf("PostgreSQL connection string is required")
	}
	if key == "" {
		return nil, fmt.Errorf("store key is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS progscout_kv (
		key TEXT PRIMARY KEY,
		value BYTEA NOT NULL,
		updated_at TIMESTAMPTZ DEFAULT NOW()
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create store table: %w", err)
	}

	return &PostgresBackend{db: db, key: key}, nil
}

// Load reads the stored value, returning (nil, nil) when the key has
// not been written yet.
func (b *PostgresBackend) Load(ctx context.Context) ([]byte, error) {
	var value []byte
	err := b.db.QueryRowContext(ctx, "SELECT value FROM progscout_kv WHERE key = $1", b.key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store row: %w", err)
	}
	return value, nil
}

// Save upserts the stored value.
func (b *PostgresBackend) Save(ctx context.Context, data []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO progscout_kv (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		b.key, data)
	if err != nil {
		return fmt.Errorf("failed to write store row: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (b *PostgresBackend) Close() error {
	if b.db != nil {
		err := b.db.Close()
		b.db = nil
		return err
	}
	return nil
}
