package domain

// Page size bounds for roteiro listings.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PaginationParams selects one page of a query result. Page counts from 1.
// A zero Limit returns every row, which is what internal callers such as
// export and account deletion want.
type PaginationParams struct {
	Page  int
	Limit int
}

// NewPaginationParams turns the optional ?page= and ?limit= values into
// PaginationParams. Missing or non-positive values take the defaults and the
// limit is clamped to MaxPageLimit.
func NewPaginationParams(page, limit *int) PaginationParams {
	p := PaginationParams{Page: 1, Limit: DefaultPageLimit}
	if page != nil && *page > 0 {
		p.Page = *page
	}
	if limit != nil && *limit > 0 {
		p.Limit = min(*limit, MaxPageLimit)
	}
	return p
}

// Offset is the number of rows skipped before this page.
func (p PaginationParams) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}
