// Package service contains the business logic for the Secret Santa API.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here; services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pkordes/secret-santa/internal/domain"
	"github.com/pkordes/secret-santa/internal/repo"
)

const (
	// maxCodeAttempts bounds how many fresh codes Create tries before giving up.
	maxCodeAttempts = 5
	// maxSaveAttempts bounds how often update reloads after losing a race
	// with another writer.
	maxSaveAttempts = 5
)

// WorkshopService implements business logic for Workshop operations.
type WorkshopService struct {
	repo  repo.WorkshopRepo
	mm    domain.MatchMaker
	log   *slog.Logger
	newID func() domain.Identifier
	locks sync.Map // workshop code -> *sync.Mutex
}

// NewWorkshopService constructs a WorkshopService. mm is used for every
// match request; a nil log discards output.
func NewWorkshopService(r repo.WorkshopRepo, mm domain.MatchMaker, log *slog.Logger) *WorkshopService {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &WorkshopService{repo: r, mm: mm, log: log, newID: domain.NewIdentifier}
}

// WithIdentifiers replaces the workshop code generator.
func (s *WorkshopService) WithIdentifiers(f func() domain.Identifier) *WorkshopService {
	s.newID = f
	return s
}

// Create validates and persists a new workshop. Duplicate player names are
// dropped, keeping the first. A fresh code is drawn until one is unused.
func (s *WorkshopService) Create(ctx context.Context, name string, dollarLimit float64, players []domain.Player) (domain.Workshop, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Workshop{}, domain.Errorf(domain.ErrValidation, "workshop name is required")
	}
	if dollarLimit < 0 {
		return domain.Workshop{}, domain.Errorf(domain.ErrValidation, "dollar limit must not be negative")
	}
	if err := validatePlayers(players); err != nil {
		return domain.Workshop{}, err
	}

	w := domain.NewWorkshop(name, dollarLimit, nil).AddPlayers(players...)
	for attempt := 1; ; attempt++ {
		w.ID = s.newID()
		saved, err := s.insert(ctx, w)
		if err == nil {
			s.log.InfoContext(ctx, "workshop created", "code", saved.ID.String(), "players", len(saved.Players))
			return saved, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return domain.Workshop{}, fmt.Errorf("service.WorkshopService.Create: %w", err)
		}
		s.log.InfoContext(ctx, "workshop code collision", "code", w.ID.String(), "attempt", attempt)
		if attempt == maxCodeAttempts {
			return domain.Workshop{}, fmt.Errorf("service.WorkshopService.Create: no free code after %d attempts", attempt)
		}
	}
}

// insert saves w under a code nobody holds yet. A taken code is reported as
// domain.ErrConflict whether it is seen on lookup or by the store itself.
func (s *WorkshopService) insert(ctx context.Context, w domain.Workshop) (domain.Workshop, error) {
	_, err := s.repo.Find(ctx, w.ID)
	switch {
	case err == nil:
		return domain.Workshop{}, domain.Errorf(domain.ErrConflict, "workshop %s already exists", w.ID)
	case !errors.Is(err, domain.ErrNotFound):
		return domain.Workshop{}, err
	}
	return s.repo.Save(ctx, w)
}

// Get returns a single workshop by code.
func (s *WorkshopService) Get(ctx context.Context, code string) (domain.Workshop, error) {
	id, err := domain.ParseIdentifier(code).Unwrap()
	if err != nil {
		return domain.Workshop{}, err
	}
	w, err := s.repo.Find(ctx, id)
	if err != nil {
		return domain.Workshop{}, fmt.Errorf("service.WorkshopService.Get: %w", err)
	}
	return w, nil
}

// List returns every workshop, most recently created first.
func (s *WorkshopService) List(ctx context.Context) ([]domain.Workshop, error) {
	ws, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.WorkshopService.List: %w", err)
	}
	return ws, nil
}

// ListPaged returns one page of workshops and the total count.
func (s *WorkshopService) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Workshop, int64, error) {
	ws, total, err := s.repo.ListPaged(ctx, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.WorkshopService.ListPaged: %w", err)
	}
	return ws, total, nil
}

// Delete removes a workshop by code.
func (s *WorkshopService) Delete(ctx context.Context, code string) error {
	id, err := domain.ParseIdentifier(code).Unwrap()
	if err != nil {
		return err
	}
	if _, err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.WorkshopService.Delete: %w", err)
	}
	s.locks.Delete(id.String())
	s.log.InfoContext(ctx, "workshop deleted", "code", code)
	return nil
}

// AddPlayers adds players whose names are not already taken.
// Existing pairs are left as they are; call Match to re-pair.
func (s *WorkshopService) AddPlayers(ctx context.Context, code string, players []domain.Player) (domain.Workshop, error) {
	if err := validatePlayers(players); err != nil {
		return domain.Workshop{}, err
	}
	return s.update(ctx, "AddPlayers", code, func(w domain.Workshop) domain.Result[domain.Workshop] {
		return domain.Success(w.AddPlayers(players...))
	})
}

// RemovePlayers keeps only the named players and drops everyone else.
func (s *WorkshopService) RemovePlayers(ctx context.Context, code string, names []string) (domain.Workshop, error) {
	keep := make([]domain.Player, len(names))
	for i, n := range names {
		keep[i] = domain.NewPlayer(n)
	}
	return s.update(ctx, "RemovePlayers", code, func(w domain.Workshop) domain.Result[domain.Workshop] {
		return domain.Success(w.RemovePlayers(keep...))
	})
}

// Match pairs the workshop's players and saves the result. On failure the
// stored workshop is left untouched and the matcher's error is returned.
func (s *WorkshopService) Match(ctx context.Context, code string) (domain.Workshop, error) {
	w, err := s.update(ctx, "Match", code, func(w domain.Workshop) domain.Result[domain.Workshop] {
		return domain.FlatMap(w.MatchPlayersWith(s.mm), checkPairs)
	})
	if err != nil {
		s.log.WarnContext(ctx, "workshop match failed", "code", code, "error", err.Error())
		return domain.Workshop{}, err
	}
	s.log.InfoContext(ctx, "workshop matched", "code", code, "pairs", len(w.Pairs))
	return w, nil
}

// UpdateWishlist replaces a player's wishlist.
func (s *WorkshopService) UpdateWishlist(ctx context.Context, code, name string, items []domain.WishlistItem) (domain.Workshop, error) {
	if err := validateWishlist(items); err != nil {
		return domain.Workshop{}, err
	}
	return s.update(ctx, "UpdateWishlist", code, func(w domain.Workshop) domain.Result[domain.Workshop] {
		return w.UpdatePlayerWishlist(name, items)
	})
}

// GetPair returns the named player and, once matched, who they give to.
func (s *WorkshopService) GetPair(ctx context.Context, code, name string) (domain.PairLookup, error) {
	w, err := s.Get(ctx, code)
	if err != nil {
		return domain.PairLookup{}, err
	}
	return w.GetPlayerPair(name).Unwrap()
}

// Export returns one row per player of the workshop.
func (s *WorkshopService) Export(ctx context.Context, code string) ([]domain.ExportRow, error) {
	w, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	return w.ExportRows(), nil
}

// update loads a workshop, applies f and saves the result. Nothing is saved
// when f fails. Updates to one code are serialised within this service, and
// a save that loses to another process is retried on a fresh copy.
func (s *WorkshopService) update(ctx context.Context, op, code string, f func(domain.Workshop) domain.Result[domain.Workshop]) (domain.Workshop, error) {
	id, err := domain.ParseIdentifier(code).Unwrap()
	if err != nil {
		return domain.Workshop{}, err
	}
	unlock := s.lock(id.String())
	defer unlock()

	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		var w domain.Workshop
		if w, err = s.Get(ctx, code); err != nil {
			return domain.Workshop{}, err
		}
		saved := domain.FlatMap(f(w), func(w domain.Workshop) domain.Result[domain.Workshop] {
			return domain.Try(s.repo.Save(ctx, w))
		})
		if err = saved.Err(); err == nil {
			return saved.Value(), nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			break
		}
		s.log.InfoContext(ctx, "workshop changed while updating", "op", op, "code", code, "attempt", attempt)
	}
	return domain.Workshop{}, fmt.Errorf("service.WorkshopService.%s: %w", op, err)
}

// lock takes the mutex for code and returns its release.
func (s *WorkshopService) lock(code string) func() {
	v, _ := s.locks.LoadOrStore(code, new(sync.Mutex))
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// checkPairs refuses to pass on a pairing that breaks the derangement rules.
// Such a pairing is a matcher fault, not bad input, so the kind is dropped.
func checkPairs(w domain.Workshop) domain.Result[domain.Workshop] {
	if err := domain.ValidatePairs(w.Players, w.Pairs); err != nil {
		return domain.Failure[domain.Workshop](fmt.Errorf("matcher produced an invalid pairing: %v", err))
	}
	return domain.Success(w)
}

func validatePlayers(players []domain.Player) error {
	for _, p := range players {
		if strings.TrimSpace(p.Name) == "" {
			return domain.Errorf(domain.ErrValidation, "player name is required")
		}
		if err := validateWishlist(p.Wishlist); err != nil {
			return err
		}
	}
	return nil
}

func validateWishlist(items []domain.WishlistItem) error {
	for _, it := range items {
		if strings.TrimSpace(it.Name) == "" {
			return domain.Errorf(domain.ErrValidation, "wishlist item name is required")
		}
	}
	return nil
}
