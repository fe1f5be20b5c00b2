package pagination

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxOffset bounds Offset so a huge page number cannot overflow it.
	MaxOffset = math.MaxInt32
)

// Params holds validated pagination parameters
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Parse reads page and limit from the query string. Malformed or out of
// range values fall back to the defaults; limit is capped at MaxLimit and
// page at the last page whose offset fits MaxOffset.
func Parse(c *gin.Context) Params {
	return New(queryInt(c, "page", DefaultPage), queryInt(c, "limit", DefaultLimit))
}

// New validates page and limit the same way Parse does.
func New(page, limit int) Params {
	if page < 1 {
		page = DefaultPage
	}
	switch {
	case limit < 1:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	if maxPage := MaxOffset/limit + 1; page > maxPage {
		page = maxPage
	}
	return Params{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

// TotalPages is the number of pages needed for total items.
func (p Params) TotalPages(total int64) int64 {
	if p.Limit < 1 || total <= 0 {
		return 0
	}
	return (total + int64(p.Limit) - 1) / int64(p.Limit)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return n
}
