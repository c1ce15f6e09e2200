package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteDB is the single-node alternative to the PostgreSQL pool.
type SQLiteDB struct {
	Conn *sql.DB
}

func NewSQLite(ctx context.Context, path string) (*SQLiteDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One writer at a time; the refresh-token compare-and-swap relies on
	// statements not interleaving inside the driver.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	slog.Info("sqlite connected", "path", path)
	return &SQLiteDB{Conn: conn}, nil
}

func (db *SQLiteDB) Close() {
	if db.Conn != nil {
		_ = db.Conn.Close()
	}
}

func (db *SQLiteDB) Health(ctx context.Context) error {
	return db.Conn.PingContext(ctx)
}
