package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePage(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantNumber int
		wantSize   int
	}{
		{"defaults", "", 1, 6},
		{"explicit", "?page=3&limit=10", 3, 10},
		{"garbage falls back", "?page=abc&limit=-4", 1, 6},
		{"page zero", "?page=0", 1, 6},
		{"limit capped", "?limit=5000", 1, maxPageSize},
		{"page capped", "?page=9223372036854775807&limit=100", maxPageNumber, maxPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/recipes/"+tt.query, nil)
			p := parsePage(r, 6)
			assert.Equal(t, tt.wantNumber, p.number)
			assert.Equal(t, tt.wantSize, p.size)
		})
	}
}

func TestNewPage(t *testing.T) {
	const base = "https://foodgram.example"

	t.Run("middle page has both links and keeps filters", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/recipes/?page=2&limit=2&tags=lunch", nil)
		p := parsePage(r, 6)
		page := newPage(r, base, p, 5, []int{3, 4})

		assert.Equal(t, 5, page.Count)
		require.NotNil(t, page.Next)
		require.NotNil(t, page.Previous)
		assert.Equal(t, base+"/api/recipes/?limit=2&page=3&tags=lunch", *page.Next)
		assert.Equal(t, base+"/api/recipes/?limit=2&tags=lunch", *page.Previous)
	})

	t.Run("last page", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/users/?page=3&limit=2", nil)
		page := newPage(r, base, parsePage(r, 6), 5, []int{5})
		assert.Nil(t, page.Next)
		assert.NotNil(t, page.Previous)
	})

	t.Run("page far past the end", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/recipes/?page=9223372036854775807", nil)
		p := parsePage(r, 6)
		assert.GreaterOrEqual(t, p.offset(), 0)

		page := newPage[int](r, base, p, 0, nil)
		assert.Nil(t, page.Next)
		require.NotNil(t, page.Previous)
		assert.Equal(t, base+"/api/recipes/", *page.Previous)

		page = newPage[int](r, base, p, 13, nil)
		assert.Nil(t, page.Next)
		require.NotNil(t, page.Previous)
		assert.Equal(t, base+"/api/recipes/?page=3", *page.Previous)
	})

	t.Run("nil results encode as an empty list", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/users/", nil)
		page := newPage[int](r, base, parsePage(r, 6), 0, nil)
		assert.NotNil(t, page.Results)
		assert.Empty(t, page.Results)
		assert.Nil(t, page.Next)
		assert.Nil(t, page.Previous)
	})
}
