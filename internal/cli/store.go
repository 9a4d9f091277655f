package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/pkordes/secret-santa/internal/config"
	"github.com/pkordes/secret-santa/internal/repo"
	"github.com/pkordes/secret-santa/migrations"
)

// openStore builds the WorkshopRepo selected by cfg.Store and brings SQL
// schemas up to date. The returned func releases the underlying connection.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (repo.WorkshopRepo, func(), error) {
	switch cfg.Store {
	case config.StoreMemory:
		log.Info("using in-memory store")
		return repo.NewMemoryWorkshopRepo(), func() {}, nil

	case config.StorePostgres:
		// pgxpool manages a pool of Postgres connections.
		// New() does not open connections immediately; the first query does.
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("create database pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		log.Info("database connection established", "store", cfg.Store)

		// goose needs database/sql; borrow connections from the pool.
		db := stdlib.OpenDBFromPool(pool)
		defer db.Close()
		if err := migrateUp(ctx, goose.DialectPostgres, db, migrations.Postgres(), log); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo.NewWorkshopRepo(pool), pool.Close, nil

	case config.StoreSQLite:
		db, err := repo.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info("database connection established", "store", cfg.Store, "path", cfg.SQLitePath)
		if err := migrateUp(ctx, goose.DialectSQLite3, db, migrations.SQLite(), log); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repo.NewSQLiteWorkshopRepo(db), func() { db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
}

// openMigrations returns a goose provider for the SQL store named by cfg.
func openMigrations(ctx context.Context, cfg config.Config) (*goose.Provider, func(), error) {
	var (
		db      *sql.DB
		dialect goose.Dialect
		fsys    fs.FS
		err     error
	)
	switch cfg.Store {
	case config.StorePostgres:
		dialect, fsys = goose.DialectPostgres, migrations.Postgres()
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err == nil {
			err = db.PingContext(ctx)
		}
	case config.StoreSQLite:
		dialect, fsys = goose.DialectSQLite3, migrations.SQLite()
		db, err = repo.OpenSQLite(ctx, cfg.SQLitePath)
	default:
		return nil, nil, fmt.Errorf("store %q has no schema to migrate", cfg.Store)
	}
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, nil, fmt.Errorf("open %s: %w", cfg.Store, err)
	}

	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create goose provider: %w", err)
	}
	return provider, func() { db.Close() }, nil
}

func migrateUp(ctx context.Context, dialect goose.Dialect, db *sql.DB, fsys fs.FS, log *slog.Logger) error {
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	for _, r := range results {
		log.Info("migration applied", "version", r.Source.Version, "duration_ms", r.Duration.Milliseconds())
	}
	return nil
}
