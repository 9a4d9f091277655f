package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	_ "github.com/mattn/go-sqlite3" // registers "sqlite3" driver for database/sql

	"github.com/pkordes/secret-santa/internal/domain"
)

// OpenSQLite opens the SQLite database at path, creating the file if needed.
// SQLite allows one writer at a time, so the pool is limited to a single
// connection.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("repo.OpenSQLite: open: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("repo.OpenSQLite: ping: %w", err)
	}
	return conn, nil
}

// sqliteWorkshopRepo is the SQLite implementation of WorkshopRepo. It uses
// the same document layout as the Postgres repo with JSON stored as TEXT.
type sqliteWorkshopRepo struct {
	db *sql.DB
}

// NewSQLiteWorkshopRepo constructs a WorkshopRepo backed by a SQLite
// database that has had the sqlite migrations applied.
func NewSQLiteWorkshopRepo(db *sql.DB) WorkshopRepo {
	return &sqliteWorkshopRepo{db: db}
}

// Save inserts on a zero Version and otherwise updates only the row still at
// w.Version. The row id is only generated on insert.
func (r *sqliteWorkshopRepo) Save(ctx context.Context, w domain.Workshop) (domain.Workshop, error) {
	const insert = `
		INSERT INTO workshops (id, code, name, dollar_limit, players, pairs)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (code) DO NOTHING
		RETURNING ` + workshopColumns

	const update = `
		UPDATE workshops
		SET name         = ?,
		    dollar_limit = ?,
		    players      = ?,
		    pairs        = ?,
		    version      = version + 1,
		    updated_at   = CURRENT_TIMESTAMP
		WHERE code = ? AND version = ?
		RETURNING ` + workshopColumns

	doc, err := encodeWorkshop(w)
	if err != nil {
		return domain.Workshop{}, fmt.Errorf("repo.SQLiteWorkshopRepo.Save: %w", err)
	}

	var row *sql.Row
	if w.Version == 0 {
		row = r.db.QueryRowContext(ctx, insert,
			uuid.NewString(), doc.code, doc.name, doc.dollarLimit, string(doc.players), string(doc.pairs))
	} else {
		row = r.db.QueryRowContext(ctx, update,
			doc.name, doc.dollarLimit, string(doc.players), string(doc.pairs), doc.code, w.Version)
	}
	result, err := scanWorkshop(row)
	if errors.Is(err, domain.ErrNotFound) {
		err = r.missedSave(ctx, w)
	}
	if err != nil {
		return domain.Workshop{}, fmt.Errorf("repo.SQLiteWorkshopRepo.Save: %w", err)
	}
	return result, nil
}

func (r *sqliteWorkshopRepo) missedSave(ctx context.Context, w domain.Workshop) error {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM workshops WHERE code = ?`, w.ID.String()).Scan(&n)
	switch {
	case err != nil:
		return err
	case n == 0:
		return notFound(w.ID)
	}
	return conflict(w)
}

// Find retrieves a workshop by code.
func (r *sqliteWorkshopRepo) Find(ctx context.Context, id domain.Identifier) (domain.Workshop, error) {
	const q = `SELECT ` + workshopColumns + ` FROM workshops WHERE code = ?`

	result, err := scanWorkshop(r.db.QueryRowContext(ctx, q, id.String()))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = notFound(id)
		}
		return domain.Workshop{}, fmt.Errorf("repo.SQLiteWorkshopRepo.Find: %w", err)
	}
	return result, nil
}

// All returns every workshop, most recently created first.
func (r *sqliteWorkshopRepo) All(ctx context.Context) ([]domain.Workshop, error) {
	const q = `SELECT ` + workshopColumns + ` FROM workshops ORDER BY created_at DESC, rowid DESC`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.SQLiteWorkshopRepo.All: %w", err)
	}
	defer rows.Close()

	workshops, err := collectSQLWorkshops(rows)
	if err != nil {
		return nil, fmt.Errorf("repo.SQLiteWorkshopRepo.All: %w", err)
	}
	return workshops, nil
}

// ListPaged returns one page of workshops and the total count.
func (r *sqliteWorkshopRepo) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Workshop, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM workshops`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.SQLiteWorkshopRepo.ListPaged: count: %w", err)
	}

	const q = `
		SELECT ` + workshopColumns + `
		FROM workshops
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, q, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("repo.SQLiteWorkshopRepo.ListPaged: %w", err)
	}
	defer rows.Close()

	workshops, err := collectSQLWorkshops(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.SQLiteWorkshopRepo.ListPaged: %w", err)
	}
	return workshops, total, nil
}

// Delete removes a workshop by code and returns the deleted row.
func (r *sqliteWorkshopRepo) Delete(ctx context.Context, id domain.Identifier) (domain.Workshop, error) {
	const q = `DELETE FROM workshops WHERE code = ? RETURNING ` + workshopColumns

	result, err := scanWorkshop(r.db.QueryRowContext(ctx, q, id.String()))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = notFound(id)
		}
		return domain.Workshop{}, fmt.Errorf("repo.SQLiteWorkshopRepo.Delete: %w", err)
	}
	return result, nil
}

func collectSQLWorkshops(rows *sql.Rows) ([]domain.Workshop, error) {
	workshops := []domain.Workshop{}
	for rows.Next() {
		w, err := scanWorkshop(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		workshops = append(workshops, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return workshops, nil
}

// isNoRows reports whether err means "no row", for either driver.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}
