package repo_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/secret-santa/internal/domain"
	"github.com/pkordes/secret-santa/internal/repo"
)

// workshopFixture returns a matched workshop with a fixed code so tests can
// look it up again.
func workshopFixture(code string) domain.Workshop {
	w := domain.NewWorkshop("Office Party", 25, []domain.Player{
		domain.NewPlayer("alice", "family").AddItem(domain.WishlistItem{Name: "socks", URL: "https://example.com/socks"}),
		domain.NewPlayer("bob", "friends"),
		domain.NewPlayer("carol"),
	})
	w.ID = domain.MustParseIdentifier(code)
	return w.MatchPlayers()
}

// testWorkshopRepo runs the behaviour every WorkshopRepo must share.
// newRepo must return an empty repo for each call.
func testWorkshopRepo(t *testing.T, newRepo func(t *testing.T) repo.WorkshopRepo) {
	t.Run("save and find", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()
		w := workshopFixture("frosty-pine")
		require.True(t, w.IsMatched())

		saved, err := r.Save(ctx, w)
		require.NoError(t, err)
		assert.Equal(t, int64(1), saved.Version)
		w.Version = 1
		assert.Equal(t, w, saved)

		got, err := r.Find(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, w, got)
	})

	t.Run("save replaces", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()
		w, err := r.Save(ctx, workshopFixture("icy-sled"))
		require.NoError(t, err)

		w.Name = "Renamed"
		w = w.AddPlayers(domain.NewPlayer("dave"))
		saved, err := r.Save(ctx, w)
		require.NoError(t, err)
		assert.Equal(t, int64(2), saved.Version)

		got, err := r.Find(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Name)
		assert.Len(t, got.Players, 4)
		assert.Equal(t, int64(2), got.Version)

		all, err := r.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("insert of taken code conflicts", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()
		_, err := r.Save(ctx, workshopFixture("busy-elf"))
		require.NoError(t, err)

		other := workshopFixture("busy-elf")
		other.Name = "Intruder"
		_, err = r.Save(ctx, other)

		assert.ErrorIs(t, err, domain.ErrConflict)
		got, err := r.Find(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, "Office Party", got.Name)
	})

	t.Run("stale save conflicts", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()
		loaded, err := r.Save(ctx, workshopFixture("slow-elf"))
		require.NoError(t, err)

		first := loaded.AddPlayers(domain.NewPlayer("dave"))
		_, err = r.Save(ctx, first)
		require.NoError(t, err)

		second := loaded.AddPlayers(domain.NewPlayer("erin"))
		_, err = r.Save(ctx, second)

		assert.ErrorIs(t, err, domain.ErrConflict)
		got, err := r.Find(ctx, loaded.ID)
		require.NoError(t, err)
		assert.Equal(t, "dave", got.Players[len(got.Players)-1].Name)
	})

	t.Run("update of missing workshop", func(t *testing.T) {
		r := newRepo(t)
		w := workshopFixture("lost-elf")
		w.Version = 3

		_, err := r.Save(context.Background(), w)

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("save without code", func(t *testing.T) {
		r := newRepo(t)

		_, err := r.Save(context.Background(), domain.Workshop{Name: "nameless"})

		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("find missing", func(t *testing.T) {
		r := newRepo(t)

		_, err := r.Find(context.Background(), domain.MustParseIdentifier("no-such-code"))

		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Contains(t, err.Error(), "workshop no-such-code was not found")
	})

	t.Run("all newest first", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()

		all, err := r.All(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)

		for _, code := range []string{"first-snow", "second-snow", "third-snow"} {
			_, err := r.Save(ctx, workshopFixture(code))
			require.NoError(t, err)
		}

		all, err = r.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "third-snow", all[0].ID.String())
		assert.Equal(t, "second-snow", all[1].ID.String())
		assert.Equal(t, "first-snow", all[2].ID.String())
	})

	t.Run("list paged", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()
		for _, code := range []string{"a-1", "a-2", "a-3", "a-4", "a-5"} {
			_, err := r.Save(ctx, workshopFixture(code))
			require.NoError(t, err)
		}

		page, total, err := r.ListPaged(ctx, domain.PaginationParams{Page: 2, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, page, 2)
		assert.Equal(t, "a-3", page[0].ID.String())
		assert.Equal(t, "a-2", page[1].ID.String())

		page, total, err = r.ListPaged(ctx, domain.PaginationParams{Page: 9, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Empty(t, page)

		huge := math.MaxInt64 / 50
		page, total, err = r.ListPaged(ctx, domain.NewPaginationParams(&huge, nil))
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Empty(t, page)
	})

	t.Run("delete", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()
		w, err := r.Save(ctx, workshopFixture("gone-soon"))
		require.NoError(t, err)

		deleted, err := r.Delete(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, w, deleted)

		_, err = r.Find(ctx, w.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = r.Delete(ctx, w.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
