// Package domain holds types shared by the domain packages.
package domain

// ListFilter contains common filtering options for list operations.
type ListFilter struct {
	// Search matches names case-insensitively (ILIKE %search%).
	Search string

	// OrderBy is a whitelisted column, "-" prefix for descending.
	OrderBy string

	Limit  int
	Offset int
}

// Page sizes.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Normalize clamps pagination to sane bounds.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// NewListResult wraps items with the filter's pagination.
func NewListResult[T any](items []T, total int64, f ListFilter) ListResult[T] {
	if items == nil {
		items = []T{}
	}
	return ListResult[T]{Items: items, TotalCount: total, Limit: f.Limit, Offset: f.Offset}
}
