package pdf

import (
	"github.com/jung-kurt/gofpdf"
)

const (
	ptToMM      = 25.4 / 72
	lineSpacing = 1.25
	cellPadding = 1.0
	blockGap    = 1.5
)

type layout struct {
	doc    *gofpdf.Fpdf
	tr     func(string) string
	family string
	base   float64
}

// piece is a measured word or space of a line.
type piece struct {
	text  string
	bold  bool
	ital  bool
	size  float64
	width float64
	space bool
}

type line struct {
	pieces []piece
	width  float64
	height float64
}

func (l *layout) draw(b block) {
	switch b := b.(type) {
	case textBlock:
		l.drawText(b)
	case tableBlock:
		l.drawTable(b)
	}
}

func (l *layout) area() (left, top, width, bottom float64) {
	pw, ph := l.doc.GetPageSize()
	ml, mt, mr, mb := l.doc.GetMargins()
	return ml, mt, pw - ml - mr, ph - mb
}

// ensure moves to a new physical page when h does not fit; it reports the move.
func (l *layout) ensure(h float64) bool {
	_, top, _, bottom := l.area()
	y := l.doc.GetY()
	if y+h <= bottom || y <= top+0.01 {
		return false
	}
	l.doc.AddPage()
	return true
}

// ─────────────────────────────────────────────────────────────────────────────
// Inline text
// ─────────────────────────────────────────────────────────────────────────────

func fontStyle(bold, italic bool) string {
	switch {
	case bold && italic:
		return "BI"
	case bold:
		return "B"
	case italic:
		return "I"
	}
	return ""
}

func (l *layout) measure(text string, bold, italic bool, size float64) float64 {
	l.doc.SetFont(l.family, fontStyle(bold, italic), size)
	return l.doc.GetStringWidth(l.tr(text))
}

func (l *layout) lineHeight(size float64) float64 {
	return size * ptToMM * lineSpacing
}

// wrap breaks runs into lines no wider than width.
func (l *layout) wrap(runs []run, width float64) []line {
	var (
		lines []line
		cur   line
	)
	finish := func(size float64) {
		for len(cur.pieces) > 0 && cur.pieces[len(cur.pieces)-1].space {
			cur.width -= cur.pieces[len(cur.pieces)-1].width
			cur.pieces = cur.pieces[:len(cur.pieces)-1]
		}
		if cur.height == 0 {
			cur.height = l.lineHeight(size)
		}
		lines = append(lines, cur)
		cur = line{}
	}
	add := func(p piece) {
		if p.space && len(cur.pieces) == 0 {
			return
		}
		if !p.space && len(cur.pieces) > 0 && cur.width+p.width > width {
			finish(p.size)
		}
		cur.pieces = append(cur.pieces, p)
		cur.width += p.width
		if h := l.lineHeight(p.size); h > cur.height {
			cur.height = h
		}
	}

	size := l.base
	for _, r := range runs {
		if r.size > 0 {
			size = r.size
		}
		if r.br {
			finish(size)
			continue
		}
		for _, word := range splitWords(r.text) {
			p := piece{text: word, bold: r.bold, ital: r.italic, size: size, space: word == " "}
			p.width = l.measure(word, r.bold, r.italic, size)
			add(p)
		}
	}
	if len(cur.pieces) > 0 {
		finish(size)
	}
	return lines
}

// splitWords splits on single spaces, returning the spaces as separate items.
func splitWords(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			if i > start {
				out = append(out, s[start:i])
			}
			out = append(out, " ")
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func linesHeight(lines []line) float64 {
	h := 0.0
	for _, ln := range lines {
		h += ln.height
	}
	return h
}

func (l *layout) drawLine(ln line, x, y, width float64, align string) {
	switch align {
	case "C":
		x += (width - ln.width) / 2
	case "R":
		x += width - ln.width
	}
	for _, p := range ln.pieces {
		if !p.space {
			l.doc.SetFont(l.family, fontStyle(p.bold, p.ital), p.size)
			l.doc.SetXY(x, y)
			l.doc.CellFormat(p.width, ln.height, l.tr(p.text), "", 0, "L", false, 0, "")
		}
		x += p.width
	}
}

func (l *layout) drawText(b textBlock) {
	left, _, width, _ := l.area()
	if b.spaceBefore > 0 {
		l.doc.SetY(l.doc.GetY() + b.spaceBefore)
	}
	for _, ln := range l.wrap(b.runs, width) {
		l.ensure(ln.height)
		y := l.doc.GetY()
		l.drawLine(ln, left, y, width, b.align)
		l.doc.SetY(y + ln.height)
	}
	l.doc.SetY(l.doc.GetY() + blockGap)
}

// ─────────────────────────────────────────────────────────────────────────────
// Tables
// ─────────────────────────────────────────────────────────────────────────────

type placed struct {
	cell  tableCell
	row   int
	col   int
	lines []line
}

func (l *layout) drawTable(t tableBlock) {
	if len(t.rows) == 0 {
		return
	}
	left, _, avail, _ := l.area()
	if t.width != nil {
		avail = resolve(*t.width, avail)
	}

	cells, ncols := place(t.rows)
	widths := columnWidths(cells, ncols, avail)

	heights := make([]float64, len(t.rows))
	for i := range cells {
		c := &cells[i]
		c.lines = l.wrap(c.cell.runs, span(widths, c.col, c.cell.colspan)-2*cellPadding)
		if c.cell.rowspan == 1 {
			heights[c.row] = max(heights[c.row], cellHeight(c.lines, l.lineHeight(l.base)))
		}
	}
	for i := range heights {
		if heights[i] == 0 {
			heights[i] = l.lineHeight(l.base) + 2*cellPadding
		}
	}
	for _, c := range cells {
		if c.cell.rowspan == 1 {
			continue
		}
		last := min(c.row+c.cell.rowspan, len(t.rows)) - 1
		need := cellHeight(c.lines, l.lineHeight(l.base))
		if have := span(heights, c.row, last-c.row+1); need > have {
			heights[last] += need - have
		}
	}

	groupEnd := rowGroups(cells, len(t.rows))
	head := t.headRows

	for r := 0; r < len(t.rows); {
		end := groupEnd[r]
		h := span(heights, r, end-r+1)
		if r >= head && l.ensure(h) && head > 0 {
			l.drawRows(cells, widths, heights, left, 0, head-1)
		}
		l.drawRows(cells, widths, heights, left, r, end)
		r = end + 1
	}
	l.doc.SetY(l.doc.GetY() + blockGap)
}

// drawRows draws rows from..to at the current y and advances past them.
func (l *layout) drawRows(cells []placed, widths, heights []float64, left float64, from, to int) {
	y := l.doc.GetY()
	for _, c := range cells {
		if c.row < from || c.row > to {
			continue
		}
		x := left + span(widths, 0, c.col)
		w := span(widths, c.col, c.cell.colspan)
		rows := min(c.cell.rowspan, len(heights)-c.row)
		h := span(heights, c.row, rows)
		cy := y + span(heights, from, c.row-from)

		l.doc.SetLineWidth(0.2)
		if c.cell.fill != nil {
			l.doc.SetFillColor(c.cell.fill.r, c.cell.fill.g, c.cell.fill.b)
			l.doc.Rect(x, cy, w, h, "FD")
		} else {
			l.doc.Rect(x, cy, w, h, "D")
		}

		ty := cy + (h-linesHeight(c.lines))/2
		for _, ln := range c.lines {
			l.drawLine(ln, x+cellPadding, ty, w-2*cellPadding, c.cell.align)
			ty += ln.height
		}
	}
	l.doc.SetY(y + span(heights, from, to-from+1))
}

func cellHeight(lines []line, minLine float64) float64 {
	h := linesHeight(lines)
	if h < minLine {
		h = minLine
	}
	return h + 2*cellPadding
}

// place assigns every cell its grid column, skipping slots held by rowspans.
func place(rows []tableRow) ([]placed, int) {
	var (
		out   []placed
		held  = map[[2]int]bool{}
		ncols int
	)
	for r, row := range rows {
		col := 0
		for _, cell := range row.cells {
			for held[[2]int{r, col}] {
				col++
			}
			out = append(out, placed{cell: cell, row: r, col: col})
			for dr := 0; dr < cell.rowspan; dr++ {
				for dc := 0; dc < cell.colspan; dc++ {
					held[[2]int{r + dr, col + dc}] = true
				}
			}
			col += cell.colspan
		}
		for held[[2]int{r, col}] {
			col++
		}
		ncols = max(ncols, col)
	}
	return out, ncols
}

// columnWidths uses the widths of single-column cells; the rest of the
// table width is shared by columns without one.
func columnWidths(cells []placed, ncols int, avail float64) []float64 {
	widths := make([]float64, ncols)
	set := make([]bool, ncols)
	for _, c := range cells {
		if c.cell.colspan != 1 || c.cell.width == nil || set[c.col] {
			continue
		}
		widths[c.col] = resolve(*c.cell.width, avail)
		set[c.col] = true
	}

	used, free := 0.0, 0
	for i := range widths {
		if set[i] {
			used += widths[i]
		} else {
			free++
		}
	}
	if free > 0 {
		share := (avail - used) / float64(free)
		if share < 0 {
			share = 0
		}
		for i := range widths {
			if !set[i] {
				widths[i] = share
			}
		}
		used += share * float64(free)
	}
	if used > avail && used > 0 {
		k := avail / used
		for i := range widths {
			widths[i] *= k
		}
	}
	return widths
}

// rowGroups returns, for each row, the last row it must stay on a page with.
func rowGroups(cells []placed, n int) []int {
	reach := make([]int, n)
	for i := range reach {
		reach[i] = i
	}
	for _, c := range cells {
		last := min(c.row+c.cell.rowspan, n) - 1
		reach[c.row] = max(reach[c.row], last)
	}
	end := make([]int, n)
	for r := 0; r < n; {
		e := reach[r]
		for k := r; k <= e; k++ {
			e = max(e, reach[k])
		}
		for k := r; k <= e; k++ {
			end[k] = e
		}
		r = e + 1
	}
	return end
}

func resolve(l length, avail float64) float64 {
	if l.percent {
		return avail * l.value / 100
	}
	return l.value
}

func span(values []float64, from, n int) float64 {
	s := 0.0
	for i := from; i < from+n && i < len(values); i++ {
		if i >= 0 {
			s += values[i]
		}
	}
	return s
}
