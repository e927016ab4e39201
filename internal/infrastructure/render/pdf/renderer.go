// Package pdf lays out register markup with gofpdf.
//
// Pages are kept as a display list until Output, so that a page added
// speculatively (an assignment cover with nothing after it) can still be
// deleted. A logical page that overflows continues on further physical pages.
package pdf

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Options configures the document.
type Options struct {
	Orientation string  // "L" or "P"
	PageSize    string  // e.g. "A4"
	FontFamily  string  // a core font: Helvetica, Times, Courier
	FontSize    float64 // points
	Margin      float64 // millimetres, all sides
	Title       string
	Author      string
	Creator     string
	// CreatedAt is written as the creation date; a fixed value keeps output byte-stable.
	CreatedAt time.Time
	// Footer prints "Pagina N" at the bottom of every physical page.
	Footer bool
}

// DefaultOptions returns landscape A4 with a 9pt Helvetica body.
func DefaultOptions() Options {
	return Options{
		Orientation: "L",
		PageSize:    "A4",
		FontFamily:  "Helvetica",
		FontSize:    9,
		Margin:      10,
		Creator:     "register-archive",
		Footer:      true,
	}
}

type page struct {
	blocks []block
}

// Renderer accumulates pages of markup and writes them as a PDF.
// It is not safe for concurrent use; use one renderer per document.
type Renderer struct {
	opts  Options
	pages []*page
	err   error
}

// New creates an empty renderer.
func New(opts Options) *Renderer {
	def := DefaultOptions()
	if opts.Orientation == "" {
		opts.Orientation = def.Orientation
	}
	if opts.PageSize == "" {
		opts.PageSize = def.PageSize
	}
	if opts.FontFamily == "" {
		opts.FontFamily = def.FontFamily
	}
	if opts.FontSize <= 0 {
		opts.FontSize = def.FontSize
	}
	if opts.Margin <= 0 {
		opts.Margin = def.Margin
	}
	return &Renderer{opts: opts}
}

// AddPage starts a new logical page.
func (r *Renderer) AddPage() {
	r.pages = append(r.pages, &page{})
}

// WriteMarkup appends markup to the current page. align ("L", "C", "R") is
// the default paragraph alignment. Markup errors surface from Output.
func (r *Renderer) WriteMarkup(markup string, align string) {
	if r.err != nil {
		return
	}
	if len(r.pages) == 0 {
		r.AddPage()
	}
	if align == "" {
		align = "L"
	}
	blocks, err := parseMarkup(markup, style{size: r.opts.FontSize, align: align})
	if err != nil {
		r.err = err
		return
	}
	last := r.pages[len(r.pages)-1]
	last.blocks = append(last.blocks, blocks...)
}

// PageNo returns the number of logical pages.
func (r *Renderer) PageNo() int {
	return len(r.pages)
}

// DeletePage removes the logical page n (1-based).
func (r *Renderer) DeletePage(n int) error {
	if n < 1 || n > len(r.pages) {
		return fmt.Errorf("pdf: page %d out of range 1..%d", n, len(r.pages))
	}
	r.pages = append(r.pages[:n-1], r.pages[n:]...)
	return nil
}

// Output lays out every page and writes the PDF to w.
func (r *Renderer) Output(w io.Writer) error {
	if r.err != nil {
		return r.err
	}
	if len(r.pages) == 0 {
		return fmt.Errorf("pdf: document has no pages")
	}

	doc := gofpdf.New(r.opts.Orientation, "mm", r.opts.PageSize, "")
	doc.SetMargins(r.opts.Margin, r.opts.Margin, r.opts.Margin)
	doc.SetAutoPageBreak(false, r.opts.Margin)
	doc.SetCatalogSort(true)
	if !r.opts.CreatedAt.IsZero() {
		doc.SetCreationDate(r.opts.CreatedAt)
	}
	tr := doc.UnicodeTranslatorFromDescriptor("")
	if r.opts.Title != "" {
		doc.SetTitle(r.opts.Title, true)
	}
	if r.opts.Author != "" {
		doc.SetAuthor(r.opts.Author, true)
	}
	if r.opts.Creator != "" {
		doc.SetCreator(r.opts.Creator, true)
	}
	if r.opts.Footer {
		doc.SetFooterFunc(func() {
			doc.SetY(-r.opts.Margin + 2)
			doc.SetFont(r.opts.FontFamily, "I", 7)
			doc.CellFormat(0, 4, fmt.Sprintf("Pagina %d", doc.PageNo()), "", 0, "C", false, 0, "")
		})
	}

	l := &layout{doc: doc, tr: tr, family: r.opts.FontFamily, base: r.opts.FontSize}
	for _, p := range r.pages {
		doc.AddPage()
		for _, b := range p.blocks {
			l.draw(b)
		}
	}

	if err := doc.Error(); err != nil {
		return fmt.Errorf("pdf: layout: %w", err)
	}
	return doc.Output(w)
}
