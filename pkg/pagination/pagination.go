package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Window is a page request after clamping. Page is 1-based.
type Window struct {
	Page  int
	Limit int
}

// FromQuery reads ?page= and ?limit=. Missing or malformed values fall back
// to the defaults.
func FromQuery(c *gin.Context) Window {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return Clamp(page, limit)
}

func Clamp(page, limit int) Window {
	if page < 1 {
		page = DefaultPage
	}
	switch {
	case limit < 1:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	return Window{Page: page, Limit: limit}
}

// Offset is the number of rows to skip.
func (w Window) Offset() int {
	return (w.Page - 1) * w.Limit
}

// Page is the list envelope returned by every paginated endpoint.
type Page struct {
	Items   interface{} `json:"items"`
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	Limit   int         `json:"limit"`
	Pages   int         `json:"pages"`
	HasMore bool        `json:"has_more"`
}

// Of wraps one page of items together with the total row count.
func (w Window) Of(items interface{}, total int64) Page {
	pages := 0
	if total > 0 {
		pages = int((total + int64(w.Limit) - 1) / int64(w.Limit))
	}
	return Page{
		Items:   items,
		Total:   total,
		Page:    w.Page,
		Limit:   w.Limit,
		Pages:   pages,
		HasMore: w.Page < pages,
	}
}
