// Package repo contains all persistence logic for the Secret Santa API.
// WorkshopRepo is implemented three times: in memory, on Postgres and on
// SQLite. No business logic lives here, only storage and type mapping.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pkordes/secret-santa/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WorkshopRepo defines the persistence operations for Workshops.
// The service layer depends on this interface, not on any implementation.
type WorkshopRepo interface {
	// Save inserts a workshop whose Version is zero, or replaces the stored
	// copy if it is still at w.Version. The returned value carries the new
	// version. Returns domain.ErrConflict if the code is already taken or the
	// stored copy has moved on, and domain.ErrNotFound if an update targets a
	// workshop that no longer exists.
	Save(ctx context.Context, w domain.Workshop) (domain.Workshop, error)

	// Find retrieves a workshop by its code.
	// Returns domain.ErrNotFound if no workshop with that code exists.
	Find(ctx context.Context, id domain.Identifier) (domain.Workshop, error)

	// All returns every workshop, most recently created first.
	All(ctx context.Context) ([]domain.Workshop, error)

	// ListPaged returns one page of workshops, most recently created first,
	// and the total number of workshops.
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Workshop, int64, error)

	// Delete removes a workshop and returns the removed value.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id domain.Identifier) (domain.Workshop, error)
}

// notFound builds the error returned for a missing workshop.
func notFound(id domain.Identifier) error {
	return domain.Errorf(domain.ErrNotFound, "workshop %s was not found", id)
}

// conflict builds the error returned when Save matched no row although the
// workshop exists.
func conflict(w domain.Workshop) error {
	if w.Version == 0 {
		return domain.Errorf(domain.ErrConflict, "workshop %s already exists", w.ID)
	}
	return domain.Errorf(domain.ErrConflict, "workshop %s was changed by another request", w.ID)
}

// pgWorkshopRepo is the Postgres implementation of WorkshopRepo. Players and
// pairs are stored as JSONB documents next to the scalar columns.
type pgWorkshopRepo struct {
	db db
}

// NewWorkshopRepo constructs a WorkshopRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewWorkshopRepo(db db) WorkshopRepo {
	return &pgWorkshopRepo{db: db}
}

const workshopColumns = `code, name, dollar_limit, players, pairs, version`

// Save inserts on a zero Version and otherwise updates only the row still at
// w.Version, bumping it.
func (r *pgWorkshopRepo) Save(ctx context.Context, w domain.Workshop) (domain.Workshop, error) {
	const insert = `
		INSERT INTO workshops (code, name, dollar_limit, players, pairs)
		VALUES (@code, @name, @dollar_limit, @players, @pairs)
		ON CONFLICT (code) DO NOTHING
		RETURNING ` + workshopColumns

	const update = `
		UPDATE workshops
		SET name         = @name,
		    dollar_limit = @dollar_limit,
		    players      = @players,
		    pairs        = @pairs,
		    version      = version + 1,
		    updated_at   = now()
		WHERE code = @code AND version = @version
		RETURNING ` + workshopColumns

	doc, err := encodeWorkshop(w)
	if err != nil {
		return domain.Workshop{}, fmt.Errorf("repo.WorkshopRepo.Save: %w", err)
	}

	args := pgx.NamedArgs{
		"code":         doc.code,
		"name":         w.Name,
		"dollar_limit": w.DollarLimit,
		"players":      doc.players,
		"pairs":        doc.pairs,
		"version":      w.Version,
	}

	q := insert
	if w.Version > 0 {
		q = update
	}
	result, err := scanWorkshop(r.db.QueryRow(ctx, q, args))
	if errors.Is(err, domain.ErrNotFound) {
		err = r.missedSave(ctx, w)
	}
	if err != nil {
		return domain.Workshop{}, fmt.Errorf("repo.WorkshopRepo.Save: %w", err)
	}
	return result, nil
}

// missedSave explains why a Save wrote no row.
func (r *pgWorkshopRepo) missedSave(ctx context.Context, w domain.Workshop) error {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM workshops WHERE code = @code)`,
		pgx.NamedArgs{"code": w.ID.String()}).Scan(&exists)
	switch {
	case err != nil:
		return err
	case !exists:
		return notFound(w.ID)
	}
	return conflict(w)
}

// Find retrieves a workshop by code.
func (r *pgWorkshopRepo) Find(ctx context.Context, id domain.Identifier) (domain.Workshop, error) {
	const q = `SELECT ` + workshopColumns + ` FROM workshops WHERE code = @code`

	result, err := scanWorkshop(r.db.QueryRow(ctx, q, pgx.NamedArgs{"code": id.String()}))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = notFound(id)
		}
		return domain.Workshop{}, fmt.Errorf("repo.WorkshopRepo.Find: %w", err)
	}
	return result, nil
}

// All returns every workshop ordered by created_at descending.
func (r *pgWorkshopRepo) All(ctx context.Context) ([]domain.Workshop, error) {
	const q = `SELECT ` + workshopColumns + ` FROM workshops ORDER BY created_at DESC, code`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.WorkshopRepo.All: %w", err)
	}
	defer rows.Close()

	workshops, err := collectWorkshops(rows)
	if err != nil {
		return nil, fmt.Errorf("repo.WorkshopRepo.All: %w", err)
	}
	return workshops, nil
}

// ListPaged returns one page of workshops and the total count.
func (r *pgWorkshopRepo) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Workshop, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM workshops`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.WorkshopRepo.ListPaged: count: %w", err)
	}

	const q = `
		SELECT ` + workshopColumns + `
		FROM workshops
		ORDER BY created_at DESC, code
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"limit": p.Limit, "offset": p.Offset()})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.WorkshopRepo.ListPaged: %w", err)
	}
	defer rows.Close()

	workshops, err := collectWorkshops(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.WorkshopRepo.ListPaged: %w", err)
	}
	return workshops, total, nil
}

// Delete removes a workshop by code and returns the deleted row.
func (r *pgWorkshopRepo) Delete(ctx context.Context, id domain.Identifier) (domain.Workshop, error) {
	const q = `DELETE FROM workshops WHERE code = @code RETURNING ` + workshopColumns

	result, err := scanWorkshop(r.db.QueryRow(ctx, q, pgx.NamedArgs{"code": id.String()}))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = notFound(id)
		}
		return domain.Workshop{}, fmt.Errorf("repo.WorkshopRepo.Delete: %w", err)
	}
	return result, nil
}

// scanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows, allowing
// scanWorkshop to be shared by the Postgres and SQLite implementations.
type scanner interface {
	Scan(dest ...any) error
}

// scanWorkshop maps one row of workshopColumns into a domain.Workshop.
func scanWorkshop(s scanner) (domain.Workshop, error) {
	var doc document
	err := s.Scan(&doc.code, &doc.name, &doc.dollarLimit, &doc.players, &doc.pairs, &doc.version)
	if err != nil {
		if isNoRows(err) {
			return domain.Workshop{}, domain.ErrNotFound
		}
		return domain.Workshop{}, err
	}
	return doc.decode()
}

func collectWorkshops(rows pgx.Rows) ([]domain.Workshop, error) {
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

// document is the stored form of a workshop: scalar columns plus the
// players and pairs as JSON text.
type document struct {
	code        string
	name        string
	dollarLimit float64
	players     []byte
	pairs       []byte
	version     int64
}

func encodeWorkshop(w domain.Workshop) (document, error) {
	if w.ID.IsZero() {
		return document{}, domain.Errorf(domain.ErrValidation, "workshop has no code")
	}
	players, err := json.Marshal(nonNil(w.Players))
	if err != nil {
		return document{}, fmt.Errorf("encode players: %w", err)
	}
	pairs, err := json.Marshal(nonNil(w.Pairs))
	if err != nil {
		return document{}, fmt.Errorf("encode pairs: %w", err)
	}
	return document{
		code:        w.ID.String(),
		name:        w.Name,
		dollarLimit: w.DollarLimit,
		players:     players,
		pairs:       pairs,
	}, nil
}

func (d document) decode() (domain.Workshop, error) {
	id, err := domain.ParseIdentifier(d.code).Unwrap()
	if err != nil {
		return domain.Workshop{}, fmt.Errorf("decode code: %w", err)
	}
	w := domain.Workshop{ID: id, Name: d.name, DollarLimit: d.dollarLimit, Version: d.version}
	if err := json.Unmarshal(d.players, &w.Players); err != nil {
		return domain.Workshop{}, fmt.Errorf("decode players: %w", err)
	}
	if err := json.Unmarshal(d.pairs, &w.Pairs); err != nil {
		return domain.Workshop{}, fmt.Errorf("decode pairs: %w", err)
	}
	w.Players = nonNil(w.Players)
	w.Pairs = nonNil(w.Pairs)
	return w, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
