package domain_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pkordes/secret-santa/internal/domain"
)

func ptr(i int) *int { return &i }

func TestNewPaginationParams(t *testing.T) {
	tests := map[string]struct {
		page, limit *int
		want        domain.PaginationParams
	}{
		"defaults":       {want: domain.PaginationParams{Page: 1, Limit: domain.DefaultPageLimit}},
		"explicit":       {page: ptr(3), limit: ptr(5), want: domain.PaginationParams{Page: 3, Limit: 5}},
		"clamped limit":  {limit: ptr(500), want: domain.PaginationParams{Page: 1, Limit: domain.MaxPageLimit}},
		"zero page":      {page: ptr(0), want: domain.PaginationParams{Page: 1, Limit: domain.DefaultPageLimit}},
		"negative limit": {limit: ptr(-4), want: domain.PaginationParams{Page: 1, Limit: domain.DefaultPageLimit}},
		"huge page":      {page: ptr(math.MaxInt64), limit: ptr(100), want: domain.PaginationParams{Page: domain.MaxPage, Limit: 100}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.NewPaginationParams(tc.page, tc.limit))
		})
	}
}

func TestPaginationParams_Window(t *testing.T) {
	p := domain.PaginationParams{Page: 2, Limit: 2}
	assert.Equal(t, 2, p.Offset())

	start, end := p.Window(5)
	assert.Equal(t, [2]int{2, 4}, [2]int{start, end})

	start, end = p.Window(3)
	assert.Equal(t, [2]int{2, 3}, [2]int{start, end})

	start, end = domain.PaginationParams{Page: 9, Limit: 2}.Window(3)
	assert.Equal(t, start, end)
}

func TestPaginationParams_HugePageStaysEmpty(t *testing.T) {
	for _, page := range []int{math.MaxInt64, math.MaxInt64 / 50, domain.MaxPage} {
		p := domain.NewPaginationParams(ptr(page), ptr(domain.MaxPageLimit))

		assert.GreaterOrEqual(t, p.Offset(), 0, "page %d", page)
		start, end := p.Window(5)
		assert.Equal(t, 5, start, "page %d", page)
		assert.Equal(t, 5, end, "page %d", page)
	}
}

func TestPaginationParams_WindowOverflowedOffset(t *testing.T) {
	p := domain.PaginationParams{Page: math.MaxInt64 / 50, Limit: 100}
	assert.Less(t, p.Offset(), 0)

	start, end := p.Window(5)

	assert.Equal(t, 5, start)
	assert.Equal(t, 5, end)
}
