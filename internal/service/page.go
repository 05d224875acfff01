package service

import "github.com/iliyamo/cinema-booking/internal/model"

// Page is one page of a list result.
type Page[T any] struct {
	Items   []T
	Total   int
	Request model.PageRequest
}

func (p Page[T]) TotalPages() int { return p.Request.TotalPages(p.Total) }

func newPage[T any](items []T, total int, req model.PageRequest) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Request: req}
}
