package pagination

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Page    int
	PerPage int
}

// FromContext reads ?page= and ?per_page= (falling back to ?limit=). Pages
// are 1-based; out-of-range values are clamped.
func FromContext(c echo.Context) Params {
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))
	if perPage <= 0 {
		perPage, _ = strconv.Atoi(c.QueryParam("limit"))
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Params{Page: page(c), PerPage: perPage}
}

// FromContextAllowed is FromContext for screens offering a fixed set of page
// sizes. A per_page outside allowed falls back to def.
func FromContextAllowed(c echo.Context, allowed []int, def int) Params {
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))
	if !slices.Contains(allowed, perPage) {
		perPage = def
	}
	return Params{Page: page(c), PerPage: perPage}
}

func page(c echo.Context) int {
	p, _ := strconv.Atoi(c.QueryParam("page"))
	if p < 1 {
		p = 1
	}
	return p
}

func (p Params) Limit() int {
	return p.PerPage
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// SQL returns the LIMIT and OFFSET clause for SQL queries.
func (p Params) SQL() string {
	return fmt.Sprintf("LIMIT %d OFFSET %d", p.Limit(), p.Offset())
}

// Response wraps a paginated API response.
type Response struct {
	Data     interface{} `json:"data"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PerPage  int         `json:"per_page"`
	LastPage int         `json:"last_page"`
	HasMore  bool        `json:"has_more"`
}

func NewResponse(data interface{}, total int, p Params) *Response {
	lastPage := 1
	if p.PerPage > 0 && total > 0 {
		lastPage = (total + p.PerPage - 1) / p.PerPage
	}
	return &Response{
		Data:     data,
		Total:    total,
		Page:     p.Page,
		PerPage:  p.PerPage,
		LastPage: lastPage,
		HasMore:  p.Offset()+p.PerPage < total,
	}
}
