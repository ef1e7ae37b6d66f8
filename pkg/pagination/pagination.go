package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxPage keeps (page-1)*limit well inside int32 so the offset can
	// never overflow into a negative OFFSET.
	MaxPage = 1_000_000
)

// Params holds page-based pagination parameters extracted from a request.
type Params struct {
	Page  int
	Limit int
}

// FromContext extracts page and limit from the query string. Missing or
// invalid values fall back to page 1 and DefaultLimit; limit is capped at
// MaxLimit and page at MaxPage.
func FromContext(c echo.Context) Params {
	return New(c.QueryParam("page"), c.QueryParam("limit"))
}

// New parses raw page and limit strings.
func New(rawPage, rawLimit string) Params {
	// Atoi saturates out-of-range input, so huge pages land on MaxPage.
	page, _ := strconv.Atoi(rawPage)
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}

	limit, _ := strconv.Atoi(rawLimit)
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{Page: page, Limit: limit}
}

// Offset returns the number of rows to skip for the current page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Meta is the pagination block returned alongside a page of records.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewMeta builds the pagination block for total matching records.
func NewMeta(p Params, total int) Meta {
	return Meta{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: TotalPages(total, p.Limit),
	}
}

// TotalPages returns ceil(total/limit). A non-positive limit yields 0.
func TotalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

