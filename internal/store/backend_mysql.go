package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// MySQLBackend persists the aggregate in a one-row key-value table of
// a MySQL database.
type MySQLBackend struct {
	db  *sql.DB
	key string
}

// NewMySQLBackend connects to the database identified by dsn and
// prepares the key-value table.
func NewMySQLBackend(dsn, key string) (*MySQLBackend, error) {
	if dsn == "" {
		return nil, fmt.Errorf("MySQL connection string is required")
	}
	if key == "" {
		return nil, fmt.Errorf("store key is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS progscout_kv (
		` + "`key`" + ` VARCHAR(191) PRIMARY KEY,
		value MEDIUMBLOB NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create store table: %w", err)
	}

	return &MySQLBackend{db: db, key: key}, nil
}

// Load reads the stored value, returning (nil, nil) when the key has
// not been written yet.
func (b *MySQLBackend) Load(ctx context.Context) ([]byte, error) {
	var value []byte
	err := b.db.QueryRowContext(ctx, "SELECT value FROM progscout_kv WHERE `key` = ?", b.key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store row: %w", err)
	}
	return value, nil
}

// Save upserts the stored value.
func (b *MySQLBackend) Save(ctx context.Context, data []byte) error {
	_, err := b.db.ExecContext(ctx, "INSERT INTO progscout_kv (`key`, value) VALUES (?, ?) "+
		"ON DUPLICATE KEY UPDATE value = VALUES(value)",
		b.key, data)
	if err != nil {
		return fmt.Errorf("failed to write store row: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (b *MySQLBackend) Close() error {
	if b.db != nil {
		err := b.db.Close()
		b.db = nil
		return err
	}
	return nil
}
