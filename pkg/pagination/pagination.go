package pagination

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
)

// PageParams paging parameters
type PageParams struct {
	Page  int `json:"page" form:"page"`
	Limit int `json:"limit" form:"limit"`
}

// PageInfo paging metadata returned with list responses
type PageInfo struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// ParsePageParams reads page and limit from the query string
func ParsePageParams(c *gin.Context) *PageParams {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = DefaultPage
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		limit = DefaultLimit
	}

	return Normalize(page, limit)
}

// Normalize clamps page and limit to their allowed ranges
func Normalize(page, limit int) *PageParams {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return &PageParams{Page: page, Limit: limit}
}

// NewPageInfo computes paging metadata
func NewPageInfo(page, limit int, total int64) *PageInfo {
	totalPages := int(math.Ceil(float64(total) / float64(limit)))

	return &PageInfo{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

func (p *PageParams) GetOffset() int {
	return (p.Page - 1) * p.Limit
}

func (p *PageParams) GetLimit() int {
	return p.Limit
}
