package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPage_Navigation(t *testing.T) {
	tests := []struct {
		name     string
		page     Page[Note]
		pages    int
		hasPrev  bool
		hasNext  bool
		prevPage int
		nextPage int
	}{
		{name: "first of three", page: Page[Note]{Total: 25, Page: 1, PerPage: 10}, pages: 3, hasNext: true, nextPage: 2},
		{name: "middle", page: Page[Note]{Total: 25, Page: 2, PerPage: 10}, pages: 3, hasPrev: true, hasNext: true, prevPage: 1, nextPage: 3},
		{name: "last", page: Page[Note]{Total: 25, Page: 3, PerPage: 10}, pages: 3, hasPrev: true, prevPage: 2},
		{name: "exact multiple", page: Page[Note]{Total: 20, Page: 2, PerPage: 10}, pages: 2, hasPrev: true, prevPage: 1},
		{name: "empty", page: Page[Note]{Total: 0, Page: 1, PerPage: 10}, pages: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.pages, tt.page.Pages())
			assert.Equal(t, tt.hasPrev, tt.page.HasPrev())
			assert.Equal(t, tt.hasNext, tt.page.HasNext())
			assert.Equal(t, tt.prevPage, tt.page.PrevPage())
			assert.Equal(t, tt.nextPage, tt.page.NextPage())
		})
	}
}

func TestPage_IterPages(t *testing.T) {
	p := Page[Note]{Total: 200, Page: 10, PerPage: 10}
	assert.Equal(t, []int{1, 2, 0, 8, 9, 10, 11, 12, 13, 14, 0, 19, 20}, p.PageNumbers())

	p.Page = 1
	assert.Equal(t, []int{1, 2, 3, 4, 5, 0, 19, 20}, p.PageNumbers())

	small := Page[Note]{Total: 30, Page: 2, PerPage: 10}
	assert.Equal(t, []int{1, 2, 3}, small.IterPages(1, 1, 1, 1))

	assert.Empty(t, (&Page[Note]{PerPage: 10}).PageNumbers())
}
