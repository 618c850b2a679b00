package paging

import (
	dErrors "cat/pkg/domain-errors"
)

// Request is a validated page request. Page numbers are 1-based at the API
// boundary; stores consume the 0-based Offset.
type Request struct {
	// Page is the 1-based page number.
	Page int
	// Size is the number of items per page, already clamped to the resource
	// maximum.
	Size int
}

// NewRequest validates boundary paging input against a per-resource maximum
// size. Page must be >= 1 and size must sit in [1, max].
func NewRequest(page, size, max int) (Request, error) {
	if page < 1 {
		return Request{}, dErrors.New(dErrors.CodeValidation, "page number must be >= 1")
	}
	if size < 1 || size > max {
		return Request{}, dErrors.Newf(dErrors.CodeValidation, "page size must be between 1 and %d", max)
	}
	return Request{Page: page, Size: size}, nil
}

// Index returns the 0-based page index for the request.
func (r Request) Index() int {
	return r.Page - 1
}

// Offset returns the 0-based item offset for the request.
func (r Request) Offset() int {
	return r.Index() * r.Size
}

// Page holds one page of results plus the paging actually applied, so callers
// can tell when the requested size was clamped.
type Page[T any] struct {
	Items []T `json:"items"`
	// Total is the number of records matching the filter across all pages.
	Total int `json:"total"`
	// Number is the 1-based page number served.
	Number int `json:"page"`
	// Size is the effective page size applied.
	Size int `json:"size"`
}

// NewPage assembles a result page for the given request.
func NewPage[T any](items []T, total int, req Request) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Number: req.Page, Size: req.Size}
}

// Slice applies a request to an already-filtered, already-sorted in-memory
// result set. In-memory stores use it so that paging semantics stay identical
// to the SQL LIMIT/OFFSET path.
func Slice[T any](items []T, req Request) ([]T, int) {
	total := len(items)
	start := req.Offset()
	if start >= total {
		return []T{}, total
	}
	end := start + req.Size
	if end > total {
		end = total
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return out, total
}
