// Package pagination provides the limit/offset paging params and the
// list response envelope shared by all list endpoints.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Params struct {
	Limit  int
	Offset int
}

// FromRequest parses limit/offset query params, clamping to sane bounds.
func FromRequest(c echo.Context) Params {
	p := Params{Limit: DefaultLimit}

	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Limit = n
		}
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	if v := c.QueryParam("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			p.Offset = n
		}
	}
	return p
}

// Response is the envelope list endpoints return.
type Response struct {
	Items  interface{} `json:"items"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

func NewResponse(items interface{}, total int, p Params) Response {
	return Response{Items: items, Total: total, Limit: p.Limit, Offset: p.Offset}
}
