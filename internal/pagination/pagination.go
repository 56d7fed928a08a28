// Package pagination converts untrusted page/limit/search request
// parameters into a bounded, deterministic query specification.
package pagination

import "strconv"

const (
	// DefaultLimit is used whenever the limit parameter is absent,
	// non-numeric, or outside [1, MaxLimit].
	DefaultLimit = 10
	// MaxLimit caps the page size a caller can request.
	MaxLimit = 50
)

// Options is the normalized query specification consumed by listing
// operations. Skip is always derived, never supplied by the caller.
type Options struct {
	Page   int
	Limit  int
	Skip   int
	Search string
}

// Normalize builds Options from raw request parameters. It is total:
// malformed input degrades to defaults instead of erroring.
func Normalize(page, limit, search string) Options {
	p, err := strconv.Atoi(page)
	if err != nil || p < 1 {
		p = 1
	}

	l, err := strconv.Atoi(limit)
	if err != nil || l < 1 || l > MaxLimit {
		l = DefaultLimit
	}

	return Options{
		Page:   p,
		Limit:  l,
		Skip:   (p - 1) * l,
		Search: search,
	}
}

// Pagination describes the position of a result page within the full
// match set.
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// Response is the paginated collection envelope returned by listing
// operations.
type Response[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// NewResponse wraps a result page in the envelope. TotalPages is
// ceil(total/limit), and 0 when total is 0.
func NewResponse[T any](data []T, total int64, opts Options) Response[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(opts.Limit) - 1) / int64(opts.Limit))
	}
	return Response[T]{
		Data: data,
		Pagination: Pagination{
			Total:      total,
			Page:       opts.Page,
			Limit:      opts.Limit,
			TotalPages: totalPages,
		},
	}
}
