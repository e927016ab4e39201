package register

import "github.com/classbook/register-archive/internal/domain/school"

// Grid page layout. Widths are counted in day-column units: a summary
// column is twice as wide as a day column.
const (
	ColumnsPerPage = 20

	// TrailingTeacher reserves room for the absence total and the grade proposal.
	TrailingTeacher = 4
	// TrailingSupport reserves room for the absence total only.
	TrailingSupport = 2

	// TablesPerSupportPage is how many one-row grid tables share a physical page.
	TablesPerSupportPage = 4
)

// TrailingFor returns the summary width reserved for a scope kind.
func TrailingFor(kind school.ScopeKind) int {
	if kind == school.ScopeSupport {
		return TrailingSupport
	}
	return TrailingTeacher
}

// Page is one slice of the grid: day columns [From, To).
type Page struct {
	Index   int
	From    int
	To      int
	Summary bool
}

// Len returns the number of day columns on the page.
func (p Page) Len() int {
	return p.To - p.From
}

// HasDays reports whether the page carries at least one day column.
func (p Page) HasDays() bool {
	return p.To > p.From
}

// SubtotalRow reports whether a second header row with the hours taught per
// day is rendered. Without day columns there is nothing to subtotal.
func (p Page) SubtotalRow() bool {
	return p.HasDays()
}

// HeaderRows returns how many header rows the first-row cells must span.
func (p Page) HeaderRows() int {
	if p.SubtotalRow() {
		return 2
	}
	return 1
}

// Plan splits N day columns across pages of fixed capacity, leaving room
// for the trailing summary columns on the last page.
type Plan struct {
	Columns  int
	Capacity int
	Trailing int
	pages    []Page
}

// PageCount returns ceil((n+trailing)/capacity), never less than one.
func PageCount(n, capacity, trailing int) int {
	if capacity <= 0 {
		capacity = ColumnsPerPage
	}
	total := n + trailing
	pages := total / capacity
	if total%capacity > 0 {
		pages++
	}
	if pages < 1 {
		pages = 1
	}
	return pages
}

// NewPlan computes the pages for n day columns.
func NewPlan(n, capacity, trailing int) Plan {
	if capacity <= 0 {
		capacity = ColumnsPerPage
	}
	if n < 0 {
		n = 0
	}
	count := PageCount(n, capacity, trailing)

	pages := make([]Page, count)
	for p := 0; p < count; p++ {
		from := min(p*capacity, n)
		to := min((p+1)*capacity, n)
		pages[p] = Page{
			Index:   p,
			From:    from,
			To:      to,
			Summary: p == count-1,
		}
	}
	return Plan{Columns: n, Capacity: capacity, Trailing: trailing, pages: pages}
}

// PlanFor computes the standard plan for a scope.
func PlanFor(kind school.ScopeKind, n int) Plan {
	return NewPlan(n, ColumnsPerPage, TrailingFor(kind))
}

// Pages returns the page list in order.
func (p Plan) Pages() []Page {
	out := make([]Page, len(p.pages))
	copy(out, p.pages)
	return out
}

// Count returns the number of pages.
func (p Plan) Count() int {
	return len(p.pages)
}

// Last returns the page that carries the summary columns.
func (p Plan) Last() Page {
	return p.pages[len(p.pages)-1]
}
