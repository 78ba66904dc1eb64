package handler

import (
	"net/http"
	"strconv"
)

// Call-history pages default to 50 rows; clients cannot pull more than
// 100 in one request.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

type PaginationParams struct {
	Limit  int
	Offset int
}

// ParsePagination reads limit/offset from the query string. Out-of-range
// values are clamped rather than rejected.
func ParsePagination(r *http.Request) PaginationParams {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > MaxLimit {
		limit = DefaultLimit
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	return PaginationParams{Limit: limit, Offset: offset}
}
