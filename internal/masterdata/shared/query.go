package shared

import (
	"net/http"
	"strconv"
)

// ParseListFilters reads page/limit/search/sort query parameters.
func ParseListFilters(r *http.Request) ListFilters {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = DefaultPage
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	filters := ListFilters{
		Page:    page,
		Limit:   limit,
		Search:  q.Get("search"),
		SortBy:  q.Get("sort"),
		SortDir: q.Get("dir"),
	}
	if parent := q.Get("parent"); parent != "" {
		filters.Parent = &parent
	}
	if isGroup := q.Get("is_group"); isGroup != "" {
		if parsed, err := strconv.ParseBool(isGroup); err == nil {
			filters.IsGroup = &parsed
		}
	}
	return filters
}
