package pagination

import (
	"net/http"
	"strconv"
	"strings"
)

// Params holds pagination and sorting parameters extracted from query strings.
type Params struct {
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
	Offset  int    `json:"-"`
	SortBy  string `json:"-"`
	SortDir string `json:"-"`
}

// DefaultParams returns sensible pagination defaults.
func DefaultParams() Params {
	return Params{
		Page:    1,
		PerPage: 20,
		Offset:  0,
		SortBy:  "created_at",
		SortDir: "desc",
	}
}

// FromRequest extracts pagination parameters from an HTTP request.
// The allowedSorts whitelist guards the sort column against injection; an
// unlisted sort_by falls back to the default.
func FromRequest(r *http.Request, allowedSorts ...string) Params {
	p := DefaultParams()

	if page := r.URL.Query().Get("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 0 {
			p.Page = v
		}
	}

	if perPage := r.URL.Query().Get("per_page"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 100 {
			p.PerPage = v
		}
	}

	if sortBy := r.URL.Query().Get("sort_by"); sortBy != "" {
		for _, allowed := range allowedSorts {
			if sortBy == allowed {
				p.SortBy = sortBy
				break
			}
		}
	}

	if dir := strings.ToLower(r.URL.Query().Get("sort_dir")); dir == "asc" || dir == "desc" {
		p.SortDir = dir
	}

	p.Offset = (p.Page - 1) * p.PerPage
	return p
}

// OrderBy renders the SQL ORDER BY clause body for the params. SortBy is
// whitelist-checked in FromRequest, so interpolation here is safe.
func (p Params) OrderBy() string {
	dir := "DESC"
	if p.SortDir == "asc" {
		dir = "ASC"
	}
	return p.SortBy + " " + dir
}

// Result wraps a paginated response.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewResult creates a paginated result.
func NewResult[T any](data []T, totalCount int, params Params) Result[T] {
	totalPages := totalCount / params.PerPage
	if totalCount%params.PerPage > 0 {
		totalPages++
	}

	return Result[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}
