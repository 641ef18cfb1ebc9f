package services

import (
	"strconv"

	"blogapi/app/apperrors"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// PageInfo describes one page of a larger result set.
type PageInfo struct {
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// normalizePaging fills in defaults for zero values and rejects the rest of
// the out-of-range input.
func normalizePaging(page, perPage, def, max int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if perPage == 0 {
		perPage = def
	}
	fields := map[string]string{}
	if page < 1 {
		fields["page"] = "must be at least 1"
	}
	if perPage < 1 || perPage > max {
		fields["per_page"] = "must be between 1 and " + strconv.Itoa(max)
	}
	if len(fields) > 0 {
		return 0, 0, apperrors.Validation("invalid pagination", fields)
	}
	return page, perPage, nil
}

// pageBounds returns the slice bounds of the requested page within total
// items, plus the page description. A page past the end is empty; its offset
// is never computed, so any page number is safe.
func pageBounds(total, page, perPage int) (start, end int, info PageInfo) {
	pages := (total + perPage - 1) / perPage
	start, end = total, total
	if page <= pages {
		start = (page - 1) * perPage
		end = min(start+perPage, total)
	}
	return start, end, PageInfo{
		Page:    page,
		PerPage: perPage,
		Total:   total,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	}
}
