package service_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/secret-santa/internal/domain"
	"github.com/pkordes/secret-santa/internal/repo"
	"github.com/pkordes/secret-santa/internal/service"
)

// mockWorkshopRepo is a hand-written test double for repo.WorkshopRepo.
// Each method is a function field; set only the ones your test needs.
type mockWorkshopRepo struct {
	save      func(ctx context.Context, w domain.Workshop) (domain.Workshop, error)
	find      func(ctx context.Context, id domain.Identifier) (domain.Workshop, error)
	all       func(ctx context.Context) ([]domain.Workshop, error)
	listPaged func(ctx context.Context, p domain.PaginationParams) ([]domain.Workshop, int64, error)
	delete    func(ctx context.Context, id domain.Identifier) (domain.Workshop, error)
}

func (m *mockWorkshopRepo) Save(ctx context.Context, w domain.Workshop) (domain.Workshop, error) {
	return m.save(ctx, w)
}
func (m *mockWorkshopRepo) Find(ctx context.Context, id domain.Identifier) (domain.Workshop, error) {
	return m.find(ctx, id)
}
func (m *mockWorkshopRepo) All(ctx context.Context) ([]domain.Workshop, error) {
	return m.all(ctx)
}
func (m *mockWorkshopRepo) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Workshop, int64, error) {
	return m.listPaged(ctx, p)
}
func (m *mockWorkshopRepo) Delete(ctx context.Context, id domain.Identifier) (domain.Workshop, error) {
	return m.delete(ctx, id)
}

// compile-time check: mockWorkshopRepo must satisfy repo.WorkshopRepo.
var _ repo.WorkshopRepo = (*mockWorkshopRepo)(nil)

// ---- helpers ---------------------------------------------------------------

func seededMatchMaker() domain.MatchMaker {
	mm := domain.NewMatchMaker()
	mm.Rand = rand.New(rand.NewPCG(7, 7))
	return mm
}

func newService(r repo.WorkshopRepo) *service.WorkshopService {
	return service.NewWorkshopService(r, seededMatchMaker(), nil)
}

func storedWorkshop(players ...domain.Player) domain.Workshop {
	w := domain.NewWorkshop("Office", 20, players)
	w.ID = domain.MustParseIdentifier("snowy-pine")
	return w
}

// savingRepo returns a mock repo holding w and a func reporting the last
// workshop saved, or nil if Save was never called.
func savingRepo(w domain.Workshop) (*mockWorkshopRepo, func() *domain.Workshop) {
	var saved *domain.Workshop
	m := &mockWorkshopRepo{
		find: func(_ context.Context, id domain.Identifier) (domain.Workshop, error) {
			if id != w.ID {
				return domain.Workshop{}, domain.Errorf(domain.ErrNotFound, "workshop %s was not found", id)
			}
			return w, nil
		},
		save: func(_ context.Context, got domain.Workshop) (domain.Workshop, error) {
			saved = &got
			return got, nil
		},
	}
	return m, func() *domain.Workshop { return saved }
}

func emptyRepo() *mockWorkshopRepo {
	return &mockWorkshopRepo{
		find: func(_ context.Context, id domain.Identifier) (domain.Workshop, error) {
			return domain.Workshop{}, domain.Errorf(domain.ErrNotFound, "workshop %s was not found", id)
		},
		save: func(_ context.Context, w domain.Workshop) (domain.Workshop, error) { return w, nil },
	}
}

// ---- Create tests ----------------------------------------------------------

func TestWorkshopService_Create_Valid(t *testing.T) {
	svc := newService(emptyRepo())

	got, err := svc.Create(context.Background(), "  Office  ", 25, []domain.Player{
		domain.NewPlayer("alice"),
		domain.NewPlayer("bob"),
		domain.NewPlayer("alice", "dupe"),
	})

	require.NoError(t, err)
	assert.Equal(t, "Office", got.Name)
	assert.False(t, got.ID.IsZero())
	require.Len(t, got.Players, 2)
	assert.Equal(t, 0, got.Players[0].Tags.Len(), "first alice wins")
	assert.Empty(t, got.Pairs)
}

func TestWorkshopService_Create_Invalid(t *testing.T) {
	tests := map[string]struct {
		name    string
		limit   float64
		players []domain.Player
	}{
		"blank name":     {name: "  ", limit: 10},
		"negative limit": {name: "x", limit: -1},
		"blank player":   {name: "x", players: []domain.Player{domain.NewPlayer(" ")}},
		"blank item": {name: "x", players: []domain.Player{
			domain.NewPlayer("a").AddItem(domain.WishlistItem{URL: "https://example.com"}),
		}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			svc := newService(emptyRepo())

			_, err := svc.Create(context.Background(), tc.name, tc.limit, tc.players)

			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestWorkshopService_Create_RetriesTakenCode(t *testing.T) {
	taken := domain.MustParseIdentifier("taken-code")
	free := domain.MustParseIdentifier("free-code")
	codes := []domain.Identifier{taken, taken, free}

	r := emptyRepo()
	r.find = func(_ context.Context, id domain.Identifier) (domain.Workshop, error) {
		if id == taken {
			return domain.Workshop{ID: taken}, nil
		}
		return domain.Workshop{}, domain.ErrNotFound
	}
	svc := newService(r).WithIdentifiers(func() domain.Identifier {
		id := codes[0]
		codes = codes[1:]
		return id
	})

	got, err := svc.Create(context.Background(), "Office", 0, nil)

	require.NoError(t, err)
	assert.Equal(t, free, got.ID)
}

func TestWorkshopService_Create_GivesUpAfterCollisions(t *testing.T) {
	taken := domain.MustParseIdentifier("taken-code")
	r := emptyRepo()
	r.find = func(context.Context, domain.Identifier) (domain.Workshop, error) {
		return domain.Workshop{ID: taken}, nil
	}
	r.save = func(context.Context, domain.Workshop) (domain.Workshop, error) {
		t.Fatal("save must not be called")
		return domain.Workshop{}, nil
	}
	svc := newService(r).WithIdentifiers(func() domain.Identifier { return taken })

	_, err := svc.Create(context.Background(), "Office", 0, nil)

	assert.Error(t, err)
}

func TestWorkshopService_Create_RepoError(t *testing.T) {
	dbErr := errors.New("connection refused")
	r := emptyRepo()
	r.save = func(context.Context, domain.Workshop) (domain.Workshop, error) {
		return domain.Workshop{}, dbErr
	}

	_, err := newService(r).Create(context.Background(), "Office", 0, nil)

	assert.ErrorIs(t, err, dbErr)
}

// ---- Get / Delete tests ----------------------------------------------------

func TestWorkshopService_Get_BadCode(t *testing.T) {
	svc := newService(emptyRepo())

	_, err := svc.Get(context.Background(), "not a code!")

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestWorkshopService_Get_NotFound(t *testing.T) {
	svc := newService(emptyRepo())

	_, err := svc.Get(context.Background(), "missing-one")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWorkshopService_Delete(t *testing.T) {
	var deleted domain.Identifier
	r := &mockWorkshopRepo{
		delete: func(_ context.Context, id domain.Identifier) (domain.Workshop, error) {
			deleted = id
			return domain.Workshop{ID: id}, nil
		},
	}

	err := newService(r).Delete(context.Background(), "snowy-pine")

	require.NoError(t, err)
	assert.Equal(t, "snowy-pine", deleted.String())
}

func TestWorkshopService_ListPaged(t *testing.T) {
	want := []domain.Workshop{storedWorkshop()}
	r := &mockWorkshopRepo{
		listPaged: func(_ context.Context, p domain.PaginationParams) ([]domain.Workshop, int64, error) {
			assert.Equal(t, domain.PaginationParams{Page: 2, Limit: 5}, p)
			return want, 6, nil
		},
	}

	got, total, err := newService(r).ListPaged(context.Background(), domain.PaginationParams{Page: 2, Limit: 5})

	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, int64(6), total)
}

// ---- Roster tests ----------------------------------------------------------

func TestWorkshopService_AddPlayers(t *testing.T) {
	r, saved := savingRepo(storedWorkshop(domain.NewPlayer("alice")))

	got, err := newService(r).AddPlayers(context.Background(), "snowy-pine",
		[]domain.Player{domain.NewPlayer("alice", "x"), domain.NewPlayer("bob")})

	require.NoError(t, err)
	require.NotNil(t, saved())
	assert.Len(t, got.Players, 2)
	assert.Equal(t, got, *saved())
}

func TestWorkshopService_RemovePlayers_KeepsOnlyNamed(t *testing.T) {
	r, _ := savingRepo(storedWorkshop(domain.NewPlayer("alice"), domain.NewPlayer("bob"), domain.NewPlayer("carol")))

	got, err := newService(r).RemovePlayers(context.Background(), "snowy-pine", []string{"bob"})

	require.NoError(t, err)
	require.Len(t, got.Players, 1)
	assert.Equal(t, "bob", got.Players[0].Name)
}

// ---- Match tests -----------------------------------------------------------

func TestWorkshopService_Match(t *testing.T) {
	r, saved := savingRepo(storedWorkshop(domain.NewPlayer("a"), domain.NewPlayer("b"), domain.NewPlayer("c")))

	got, err := newService(r).Match(context.Background(), "snowy-pine")

	require.NoError(t, err)
	require.Len(t, got.Pairs, 3)
	require.NoError(t, domain.ValidatePairs(got.Players, got.Pairs))
	require.NotNil(t, saved())
}

func TestWorkshopService_Match_FailureIsNotSaved(t *testing.T) {
	r, saved := savingRepo(storedWorkshop(domain.NewPlayer("solo")))

	_, err := newService(r).Match(context.Background(), "snowy-pine")

	require.ErrorIs(t, err, domain.ErrValidation)
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.MsgTooFewPlayers, de.Message)
	assert.Nil(t, saved())
}

func TestWorkshopService_Match_MajorityTag(t *testing.T) {
	r, _ := savingRepo(storedWorkshop(
		domain.NewPlayer("a", "x"), domain.NewPlayer("b", "x"), domain.NewPlayer("c", "x"),
	))

	_, err := newService(r).Match(context.Background(), "snowy-pine")

	assert.ErrorIs(t, err, domain.ErrInfeasible)
}

// ---- Wishlist / pair tests -------------------------------------------------

func TestWorkshopService_UpdateWishlist(t *testing.T) {
	r, _ := savingRepo(storedWorkshop(domain.NewPlayer("alice")))
	items := []domain.WishlistItem{{Name: "book"}}

	got, err := newService(r).UpdateWishlist(context.Background(), "snowy-pine", "alice", items)

	require.NoError(t, err)
	assert.Equal(t, items, got.Players[0].Wishlist)
}

func TestWorkshopService_UpdateWishlist_UnknownPlayer(t *testing.T) {
	r, saved := savingRepo(storedWorkshop(domain.NewPlayer("alice")))

	_, err := newService(r).UpdateWishlist(context.Background(), "snowy-pine", "zed", nil)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, saved())
}

func TestWorkshopService_UpdateWishlist_BlankItem(t *testing.T) {
	r, _ := savingRepo(storedWorkshop(domain.NewPlayer("alice")))

	_, err := newService(r).UpdateWishlist(context.Background(), "snowy-pine", "alice", []domain.WishlistItem{{Name: ""}})

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestWorkshopService_GetPair(t *testing.T) {
	w := storedWorkshop(domain.NewPlayer("a"), domain.NewPlayer("b")).MatchPlayers()
	r, _ := savingRepo(w)
	svc := newService(r)

	got, err := svc.GetPair(context.Background(), "snowy-pine", "a")
	require.NoError(t, err)
	require.NotNil(t, got.Receiver)
	assert.Equal(t, "b", got.Receiver.Name)

	_, err = svc.GetPair(context.Background(), "snowy-pine", "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.EqualError(t, err, domain.MsgNotPaired)
}

func TestWorkshopService_Export(t *testing.T) {
	r, _ := savingRepo(storedWorkshop(domain.NewPlayer("a", "x"), domain.NewPlayer("b")))

	rows, err := newService(r).Export(context.Background(), "snowy-pine")

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "snowy-pine", rows[0].WorkshopCode)
	assert.Equal(t, []string{"x"}, rows[0].GiverTags)
	assert.Empty(t, rows[0].Receiver)
}

// ---- Concurrent update tests -----------------------------------------------

// slowRepo delays every lookup so that concurrent read-modify-write cycles
// overlap the way they do against a real database.
type slowRepo struct {
	repo.WorkshopRepo
	delay time.Duration
}

func (r slowRepo) Find(ctx context.Context, id domain.Identifier) (domain.Workshop, error) {
	time.Sleep(r.delay)
	return r.WorkshopRepo.Find(ctx, id)
}

func TestWorkshopService_AddPlayers_ConcurrentJoinsAllKept(t *testing.T) {
	mem := repo.NewMemoryWorkshopRepo()
	ctx := context.Background()
	_, err := mem.Save(ctx, storedWorkshop(domain.NewPlayer("host")))
	require.NoError(t, err)
	svc := newService(slowRepo{WorkshopRepo: mem, delay: 2 * time.Millisecond})

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddPlayers(ctx, "snowy-pine", []domain.Player{domain.NewPlayer(fmt.Sprintf("guest-%d", i))})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := svc.Get(ctx, "snowy-pine")
	require.NoError(t, err)
	assert.Len(t, got.Players, 21)
	assert.Equal(t, int64(21), got.Version)
}

func TestWorkshopService_Update_RetriesAfterConflict(t *testing.T) {
	stored := storedWorkshop(domain.NewPlayer("alice"))
	stored.Version = 1
	r, saved := savingRepo(stored)
	inner := r.save
	conflicts := 2
	r.save = func(ctx context.Context, w domain.Workshop) (domain.Workshop, error) {
		if conflicts > 0 {
			conflicts--
			return domain.Workshop{}, domain.Errorf(domain.ErrConflict, "workshop %s was changed by another request", w.ID)
		}
		return inner(ctx, w)
	}

	got, err := newService(r).AddPlayers(context.Background(), "snowy-pine", []domain.Player{domain.NewPlayer("bob")})

	require.NoError(t, err)
	assert.Len(t, got.Players, 2)
	assert.Equal(t, 0, conflicts)
	require.NotNil(t, saved())
}

func TestWorkshopService_Update_GivesUpOnPersistentConflict(t *testing.T) {
	r, _ := savingRepo(storedWorkshop(domain.NewPlayer("alice")))
	calls := 0
	r.save = func(_ context.Context, w domain.Workshop) (domain.Workshop, error) {
		calls++
		return domain.Workshop{}, domain.Errorf(domain.ErrConflict, "workshop %s was changed by another request", w.ID)
	}

	_, err := newService(r).AddPlayers(context.Background(), "snowy-pine", []domain.Player{domain.NewPlayer("bob")})

	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 5, calls)
}

func TestWorkshopService_Create_StoreReportsTakenCode(t *testing.T) {
	taken := domain.MustParseIdentifier("taken-code")
	free := domain.MustParseIdentifier("free-code")
	codes := []domain.Identifier{taken, free}

	r := emptyRepo()
	r.save = func(_ context.Context, w domain.Workshop) (domain.Workshop, error) {
		if w.ID == taken {
			return domain.Workshop{}, domain.Errorf(domain.ErrConflict, "workshop %s already exists", w.ID)
		}
		w.Version = 1
		return w, nil
	}
	svc := newService(r).WithIdentifiers(func() domain.Identifier {
		id := codes[0]
		codes = codes[1:]
		return id
	})

	got, err := svc.Create(context.Background(), "Office", 0, nil)

	require.NoError(t, err)
	assert.Equal(t, free, got.ID)
}

func TestWorkshopService_RemovePlayers_ClearsPairs(t *testing.T) {
	w := storedWorkshop(domain.NewPlayer("a"), domain.NewPlayer("b"), domain.NewPlayer("c")).MatchPlayers()
	require.True(t, w.IsMatched())
	r, _ := savingRepo(w)
	svc := newService(r)

	got, err := svc.RemovePlayers(context.Background(), "snowy-pine", []string{"a", "b"})

	require.NoError(t, err)
	assert.Empty(t, got.Pairs)
}
