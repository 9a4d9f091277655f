package repo

import (
	"context"
	"slices"
	"sync"

	gocache "github.com/patrickmn/go-cache"

	"github.com/pkordes/secret-santa/internal/domain"
)

// memoryEntry is what the in-memory repo stores per workshop. seq records
// insertion order so All can return newest first.
type memoryEntry struct {
	workshop domain.Workshop
	seq      uint64
}

// memoryWorkshopRepo keeps workshops in a go-cache instance with expiration
// disabled. It is the default store for local development and tests and is
// safe for concurrent use.
type memoryWorkshopRepo struct {
	mu    sync.Mutex // serialises Save so the version check and seq assignment are atomic with Set
	cache *gocache.Cache
	next  uint64
}

// NewMemoryWorkshopRepo constructs an empty in-memory WorkshopRepo.
func NewMemoryWorkshopRepo() WorkshopRepo {
	return &memoryWorkshopRepo{cache: gocache.New(gocache.NoExpiration, 0)}
}

// Save inserts w when its Version is zero and otherwise replaces the stored
// copy if it is still at w.Version.
func (r *memoryWorkshopRepo) Save(_ context.Context, w domain.Workshop) (domain.Workshop, error) {
	if w.ID.IsZero() {
		return domain.Workshop{}, domain.Errorf(domain.ErrValidation, "workshop has no code")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := w.ID.String()
	v, found := r.cache.Get(key)
	var seq uint64
	switch {
	case found && v.(memoryEntry).workshop.Version != w.Version:
		return domain.Workshop{}, conflict(w)
	case found:
		seq = v.(memoryEntry).seq
	case w.Version > 0:
		return domain.Workshop{}, notFound(w.ID)
	default:
		seq = r.next
		r.next++
	}

	w.Version++
	r.cache.Set(key, memoryEntry{workshop: w, seq: seq}, gocache.NoExpiration)
	return w, nil
}

// Find retrieves a workshop by code.
func (r *memoryWorkshopRepo) Find(_ context.Context, id domain.Identifier) (domain.Workshop, error) {
	v, ok := r.cache.Get(id.String())
	if !ok {
		return domain.Workshop{}, notFound(id)
	}
	return v.(memoryEntry).workshop, nil
}

// All returns every workshop, most recently created first.
func (r *memoryWorkshopRepo) All(_ context.Context) ([]domain.Workshop, error) {
	items := r.cache.Items()
	entries := make([]memoryEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, item.Object.(memoryEntry))
	}
	slices.SortFunc(entries, func(a, b memoryEntry) int {
		switch {
		case a.seq > b.seq:
			return -1
		case a.seq < b.seq:
			return 1
		}
		return 0
	})

	workshops := make([]domain.Workshop, len(entries))
	for i, e := range entries {
		workshops[i] = e.workshop
	}
	return workshops, nil
}

// ListPaged returns one page of All and the total count.
func (r *memoryWorkshopRepo) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Workshop, int64, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, 0, err
	}
	total := int64(len(all))
	start, end := p.Window(len(all))
	return all[start:end], total, nil
}

// Delete removes a workshop by code and returns it.
func (r *memoryWorkshopRepo) Delete(_ context.Context, id domain.Identifier) (domain.Workshop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := id.String()
	v, ok := r.cache.Get(key)
	if !ok {
		return domain.Workshop{}, notFound(id)
	}
	r.cache.Delete(key)
	return v.(memoryEntry).workshop, nil
}
