package record

// DefaultPerPage is the page size used when none is given.
const DefaultPerPage = 10

// Page is one page of query results.
type Page[T any] struct {
	Items   []*T `json:"data"`
	Total   int  `json:"total"`
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
}

// Pages returns the number of pages.
func (p *Page[T]) Pages() int {
	if p.PerPage <= 0 || p.Total <= 0 {
		return 0
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

func (p *Page[T]) HasPrev() bool { return p.Page > 1 }

func (p *Page[T]) HasNext() bool { return p.Page < p.Pages() }

// PrevPage returns the previous page number, or 0 on the first page.
func (p *Page[T]) PrevPage() int {
	if !p.HasPrev() {
		return 0
	}
	return p.Page - 1
}

// NextPage returns the next page number, or 0 on the last page.
func (p *Page[T]) NextPage() int {
	if !p.HasNext() {
		return 0
	}
	return p.Page + 1
}

// IterPages returns the page numbers to show in a pager: leftEdge pages at the start,
// leftCurrent before and rightCurrent after the current page, and rightEdge at the end.
// A 0 marks a skipped run of pages.
//
// With 20 pages on page 10 and IterPages(2, 2, 5, 2):
//
//	1 2 0 8 9 10 11 12 13 14 0 19 20
func (p *Page[T]) IterPages(leftEdge, leftCurrent, rightCurrent, rightEdge int) []int {
	pages := p.Pages()
	out := make([]int, 0, pages)
	last := 0
	for num := 1; num <= pages; num++ {
		if num <= leftEdge ||
			(num > p.Page-leftCurrent-1 && num < p.Page+rightCurrent) ||
			num > pages-rightEdge {
			if last+1 != num {
				out = append(out, 0)
			}
			out = append(out, num)
			last = num
		}
	}
	return out
}

// PageNumbers is IterPages with the usual defaults (2, 2, 5, 2).
func (p *Page[T]) PageNumbers() []int {
	return p.IterPages(2, 2, 5, 2)
}
