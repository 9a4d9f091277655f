package domain

import "math"

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100

	// MaxPage keeps Offset within an int for any permitted limit.
	MaxPage = math.MaxInt/MaxPageLimit + 1
)

// PaginationParams selects one page of a workshop listing. Page counts from 1.
type PaginationParams struct {
	Page  int
	Limit int
}

// NewPaginationParams reads the optional page and limit query values.
// Missing or non-positive values use page 1 and DefaultPageLimit; pages over
// MaxPage and limits over MaxPageLimit are clamped.
func NewPaginationParams(page, limit *int) PaginationParams {
	p := PaginationParams{Page: 1, Limit: DefaultPageLimit}
	if page != nil && *page > 0 {
		p.Page = min(*page, MaxPage)
	}
	if limit != nil && *limit > 0 {
		p.Limit = min(*limit, MaxPageLimit)
	}
	return p
}

// Offset is the number of workshops that precede this page.
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Window returns the [start, end) bounds of this page within a listing of n
// workshops. Pages past the end, and params built by hand whose offset
// overflows, yield an empty window.
func (p PaginationParams) Window(n int) (start, end int) {
	off := p.Offset()
	if p.Page < 1 || p.Limit < 1 || off < 0 || off >= n {
		return n, n
	}
	return off, off + min(p.Limit, n-off)
}
