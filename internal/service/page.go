package service

import "math"

const (
	DefaultPerPage = 50
	MaxPerPage     = 200
)

// Page is a 1-based page request. Out-of-range values fall back to defaults.
type Page struct {
	Page    int `form:"page"`
	PerPage int `form:"perPage"`
}

func (p Page) Limit() int {
	if p.PerPage <= 0 || p.PerPage > MaxPerPage {
		return DefaultPerPage
	}
	return p.PerPage
}

// maxPage keeps Offset from overflowing; any page past it is simply empty.
const maxPage = math.MaxInt32

func (p Page) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (min(p.Page, maxPage) - 1) * p.Limit()
}
