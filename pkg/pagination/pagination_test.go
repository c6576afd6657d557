package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	cases := []struct {
		name        string
		page, limit int
		want        Window
		offset      int
	}{
		{"defaults", 0, 0, Window{Page: 1, Limit: DefaultLimit}, 0},
		{"second page", 2, 10, Window{Page: 2, Limit: 10}, 10},
		{"limit capped", 1, 1000, Window{Page: 1, Limit: MaxLimit}, 0},
		{"negative page", -3, 5, Window{Page: 1, Limit: 5}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := Clamp(tc.page, tc.limit)
			assert.Equal(t, tc.want, w)
			assert.Equal(t, tc.offset, w.Offset())
		})
	}
}

func TestFromQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/items?page=3&limit=7", nil)
	w := FromQuery(c)
	assert.Equal(t, Window{Page: 3, Limit: 7}, w)
	assert.Equal(t, 14, w.Offset())

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/items?page=abc&limit=", nil)
	assert.Equal(t, Window{Page: 1, Limit: DefaultLimit}, FromQuery(c))
}

func TestOf(t *testing.T) {
	items := []string{"a", "b"}

	p := Clamp(1, 2).Of(items, 5)
	assert.Equal(t, 3, p.Pages)
	assert.True(t, p.HasMore)
	assert.Equal(t, items, p.Items)

	p = Clamp(3, 2).Of(items[:1], 5)
	assert.Equal(t, 3, p.Pages)
	assert.False(t, p.HasMore)

	p = Clamp(1, 20).Of([]string{}, 0)
	assert.Zero(t, p.Pages)
	assert.False(t, p.HasMore)
}
