package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

func (db *DB) EnsureSchema(ctx context.Context) error {
	if db == nil || db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	// The sql.DB shares the pool's connections and is not closed here: closing
	// it would not release anything the pool does not already own.
	return migrate(ctx, stdlib.OpenDBFromPool(db.Pool), goose.DialectPostgres, postgresMigrations, "migrations/postgres")
}

func (db *SQLiteDB) EnsureSchema(ctx context.Context) error {
	if db == nil || db.Conn == nil {
		return fmt.Errorf("sqlite connection is not initialized")
	}

	return migrate(ctx, db.Conn, goose.DialectSQLite3, sqliteMigrations, "migrations/sqlite")
}

func migrate(ctx context.Context, conn *sql.DB, dialect goose.Dialect, migrations embed.FS, dir string) error {
	sub, err := fs.Sub(migrations, dir)
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(dialect, conn, sub)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	for _, result := range results {
		slog.Info("migration applied", "source", result.Source.Path, "duration", result.Duration)
	}

	slog.Info("database schema ensured", "dialect", dialect)
	return nil
}
