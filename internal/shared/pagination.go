package shared

import (
	"math"
	"net/http"
	"strconv"
)

const maxPerPage = 100

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	page, perPage = normalizePage(page, perPage)
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// PageRequest is the page a listing asks for.
type PageRequest struct {
	Page    int
	PerPage int
}

// PageFromQuery reads page and per_page query parameters.
func PageFromQuery(r *http.Request) PageRequest {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	page, perPage = normalizePage(page, perPage)
	return PageRequest{Page: page, PerPage: perPage}
}

// Offset returns the number of rows to skip.
func (p PageRequest) Offset() int {
	page, perPage := normalizePage(p.Page, p.PerPage)
	return (page - 1) * perPage
}

// Limit returns the page size.
func (p PageRequest) Limit() int {
	_, perPage := normalizePage(p.Page, p.PerPage)
	return perPage
}

func normalizePage(page, perPage int) (int, int) {
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	if page <= 0 {
		page = 1
	}
	return page, perPage
}
