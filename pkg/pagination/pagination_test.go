package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestParsePageParams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name  string
		query string
		page  int
		limit int
	}{
		{name: "defaults", query: "", page: 1, limit: 10},
		{name: "explicit", query: "?page=3&limit=25", page: 3, limit: 25},
		{name: "garbage", query: "?page=x&limit=y", page: 1, limit: 10},
		{name: "negative", query: "?page=-2&limit=0", page: 1, limit: 10},
		{name: "limit capped", query: "?limit=1000", page: 1, limit: MaxLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/items"+tt.query, nil)

			params := ParsePageParams(c)
			assert.Equal(t, tt.page, params.Page)
			assert.Equal(t, tt.limit, params.Limit)
		})
	}
}

func TestNewPageInfo(t *testing.T) {
	info := NewPageInfo(2, 10, 25)
	assert.Equal(t, 3, info.TotalPages)
	assert.True(t, info.HasNext)
	assert.True(t, info.HasPrev)

	info = NewPageInfo(1, 10, 0)
	assert.Equal(t, 0, info.TotalPages)
	assert.False(t, info.HasNext)
	assert.False(t, info.HasPrev)
}

func TestGetOffset(t *testing.T) {
	assert.Equal(t, 20, Normalize(3, 10).GetOffset())
}
