package listing

// Pagination tracks the page bounds of the visible list.
// Totals are only ever derived from an accepted server response, or from a
// confirmed deletion; they are never guessed.
type Pagination struct {
	page       int
	pageSize   int
	totalCount int
	totalPages int
}

// NewPagination starts on page 1 with no known totals.
func NewPagination(pageSize int) Pagination {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return Pagination{page: 1, pageSize: pageSize}
}

func (p Pagination) Page() int       { return p.page }
func (p Pagination) PageSize() int   { return p.pageSize }
func (p Pagination) TotalCount() int { return p.totalCount }
func (p Pagination) TotalPages() int { return p.totalPages }

// Clamp bounds n to [1, max(1, totalPages)].
func (p Pagination) Clamp(n int) int {
	last := p.totalPages
	if last < 1 {
		last = 1
	}
	if n > last {
		n = last
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Reset moves to page 1. Used whenever filters change.
func (p *Pagination) Reset() {
	p.page = 1
}

// Apply takes totals from an accepted response for query q.
func (p *Pagination) Apply(q Query, pg Page) {
	p.pageSize = q.PageSize()
	p.totalCount = pg.TotalCount
	if p.totalCount < 0 {
		p.totalCount = 0
	}
	p.totalPages = pagesFor(p.totalCount, p.pageSize)
	page := pg.Page
	if page < 1 {
		page = q.Page()
	}
	p.page = p.Clamp(page)
}

// Remove accounts for n items deleted from the collection.
func (p *Pagination) Remove(n int) {
	p.totalCount -= n
	if p.totalCount < 0 {
		p.totalCount = 0
	}
	p.totalPages = pagesFor(p.totalCount, p.pageSize)
}

func pagesFor(count, size int) int {
	if count <= 0 || size <= 0 {
		return 0
	}
	return (count + size - 1) / size
}
