package listutil

import (
	"net/url"
	"strconv"
	"strings"
)

// Params carries the list view controls parsed from a request's query.
type Params struct {
	Page    int    // 1-indexed page number
	PerPage int    // rows per page
	Search  string // free-text query, trimmed
	Filter  string // exact-match value for the list's one filter column
	Sort    string // allowed column name, or "" for the list's default order
	Desc    bool
}

// PageInfo carries pagination metadata for rendering.
type PageInfo struct {
	Page       int // current page (1-indexed)
	PerPage    int
	Total      int // total matching rows
	TotalPages int
}

// DefaultPerPage is the default number of rows per page.
const DefaultPerPage = 25

// PerPageOptions are the allowed rows-per-page values.
var PerPageOptions = []int{10, 25, 50, 100}

// Parse extracts list controls from q. Unknown sort columns and filter values are dropped.
// PRE: none
// POST: Page >= 1; PerPage is one of PerPageOptions
func Parse(q url.Values, sortCols, filterValues []string) Params {
	p := Params{
		Search: strings.TrimSpace(q.Get("q")),
		Desc:   q.Get("dir") == "desc",
	}
	p.Page, _ = strconv.Atoi(q.Get("page"))
	if p.Page < 1 {
		p.Page = 1
	}
	p.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	if !contains(PerPageOptions, p.PerPage) {
		p.PerPage = DefaultPerPage
	}
	if s := q.Get("sort"); contains(sortCols, s) {
		p.Sort = s
	}
	if f := q.Get("filter"); contains(filterValues, f) {
		p.Filter = f
	}
	return p
}

// Matches reports whether any field contains the search query, ignoring case.
// An empty query matches everything.
func (p Params) Matches(fields ...string) bool {
	if p.Search == "" {
		return true
	}
	q := strings.ToLower(p.Search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// Query encodes p back into URL query values, dropping defaults.
func (p Params) Query() url.Values {
	q := url.Values{}
	if p.Search != "" {
		q.Set("q", p.Search)
	}
	if p.Filter != "" {
		q.Set("filter", p.Filter)
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	if p.Desc {
		q.Set("dir", "desc")
	}
	if p.PerPage != DefaultPerPage {
		q.Set("per_page", strconv.Itoa(p.PerPage))
	}
	return q
}

// PageURL returns path with p's controls and the given page number.
func (p Params) PageURL(path string, page int) string {
	q := p.Query()
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// Paginate returns the rows of items on p's page and the page metadata.
// The requested page is clamped to the last page.
func Paginate[T any](items []T, p Params) ([]T, PageInfo) {
	info := NewPageInfo(p.Page, p.PerPage, len(items))
	start := info.Offset()
	end := min(start+info.PerPage, len(items))
	return items[start:end], info
}

// NewPageInfo computes pagination metadata.
// PRE: total >= 0
// POST: 1 <= Page <= TotalPages; TotalPages >= 1
func NewPageInfo(page, perPage, total int) PageInfo {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	totalPages := max((total+perPage-1)/perPage, 1)
	page = min(max(page, 1), totalPages)
	return PageInfo{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Offset is the index of the first row on the page.
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// StartRow returns the 1-indexed first row number on the current page, or 0 when empty.
func (p PageInfo) StartRow() int {
	if p.Total == 0 {
		return 0
	}
	return p.Offset() + 1
}

// EndRow returns the 1-indexed last row number on the current page.
func (p PageInfo) EndRow() int {
	return min(p.Offset()+p.PerPage, p.Total)
}

// PageNumbers returns at most 5 page numbers centred on the current page.
func (p PageInfo) PageNumbers() []int {
	const maxButtons = 5
	start := max(p.Page-maxButtons/2, 1)
	end := start + maxButtons - 1
	if end > p.TotalPages {
		end = p.TotalPages
		start = max(end-maxButtons+1, 1)
	}
	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}

// HasPrev reports whether a previous page exists.
func (p PageInfo) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a later page exists.
func (p PageInfo) HasNext() bool { return p.Page < p.TotalPages }

// ShowPagination returns true if the rows span more than one page.
func (p PageInfo) ShowPagination() bool {
	return p.Total > p.PerPage
}

func contains[T comparable](options []T, v T) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}
