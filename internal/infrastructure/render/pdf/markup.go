package pdf

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ─────────────────────────────────────────────────────────────────────────────
// Parsed markup
// ─────────────────────────────────────────────────────────────────────────────

// run is a piece of inline text sharing one style; br runs force a line break.
type run struct {
	text   string
	bold   bool
	italic bool
	size   float64
	br     bool
}

type block interface{ isBlock() }

type textBlock struct {
	runs        []run
	align       string
	spaceBefore float64
}

type length struct {
	value   float64
	percent bool
}

type rgb struct{ r, g, b int }

type tableCell struct {
	runs    []run
	width   *length
	colspan int
	rowspan int
	fill    *rgb
	align   string
	header  bool
}

type tableRow struct {
	cells []tableCell
}

type tableBlock struct {
	rows     []tableRow
	headRows int
	width    *length
}

func (textBlock) isBlock()  {}
func (tableBlock) isBlock() {}

// inherited style while walking the tree
type style struct {
	bold   bool
	italic bool
	size   float64
	align  string
}

// ─────────────────────────────────────────────────────────────────────────────
// Parser
// ─────────────────────────────────────────────────────────────────────────────

type parser struct {
	blocks  []block
	pending []run
	align   string
	space   float64
}

// parseMarkup turns the markup subset (p, div, b, strong, i, em, span, br,
// table, thead, tbody, tr, th, td) into blocks.
func parseMarkup(markup string, base style) ([]block, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	p := &parser{align: base.align}
	for _, n := range nodes {
		p.node(n, base)
	}
	p.flush()
	return p.blocks, nil
}

func (p *parser) flush() {
	if len(p.pending) == 0 {
		return
	}
	if hasText(p.pending) {
		p.blocks = append(p.blocks, textBlock{runs: p.pending, align: p.align, spaceBefore: p.space})
		p.space = 0
	}
	p.pending = nil
}

func hasText(runs []run) bool {
	for _, r := range runs {
		if r.br || strings.TrimSpace(r.text) != "" {
			return true
		}
	}
	return false
}

func (p *parser) node(n *html.Node, st style) {
	switch n.Type {
	case html.TextNode:
		p.pending = appendText(p.pending, n.Data, st)
		return
	case html.ElementNode:
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			p.node(c, st)
		}
		return
	}

	st = inlineStyle(n, st)
	switch n.DataAtom {
	case atom.Table:
		p.flush()
		p.blocks = append(p.blocks, parseTable(n, st))
	case atom.P, atom.Div, atom.H1, atom.H2, atom.H3:
		p.flush()
		outer, outerSpace := p.align, p.space
		p.align = st.align
		p.space = outerSpace + marginTop(n)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			p.node(c, st)
		}
		p.flush()
		p.align, p.space = outer, 0
	case atom.Br:
		p.pending = append(p.pending, run{br: true, size: st.size})
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			p.node(c, st)
		}
	}
}

// inlineRuns collects the text of a table cell; nested blocks become line breaks.
func inlineRuns(n *html.Node, st style, out []run) []run {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			out = appendText(out, c.Data, st)
		case html.ElementNode:
			cst := inlineStyle(c, st)
			switch c.DataAtom {
			case atom.Br:
				out = append(out, run{br: true, size: st.size})
			case atom.P, atom.Div:
				if len(out) > 0 {
					out = append(out, run{br: true, size: st.size})
				}
				out = inlineRuns(c, cst, out)
			default:
				out = inlineRuns(c, cst, out)
			}
		}
	}
	return out
}

func appendText(runs []run, text string, st style) []run {
	text = collapseSpace(text)
	if text == "" {
		return runs
	}
	return append(runs, run{text: text, bold: st.bold, italic: st.italic, size: st.size})
}

func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

func parseTable(n *html.Node, st style) tableBlock {
	t := tableBlock{width: parseLength(attr(n, "width"))}
	var walk func(*html.Node, bool)
	walk = func(n *html.Node, head bool) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Thead:
				walk(c, true)
			case atom.Tbody, atom.Tfoot:
				walk(c, false)
			case atom.Tr:
				row := tableRow{}
				rst := inlineStyle(c, st)
				for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type != html.ElementNode || (cell.DataAtom != atom.Td && cell.DataAtom != atom.Th) {
						continue
					}
					row.cells = append(row.cells, parseCell(cell, rst))
				}
				t.rows = append(t.rows, row)
				if head {
					t.headRows = len(t.rows)
				}
			}
		}
	}
	walk(n, false)
	return t
}

func parseCell(n *html.Node, st style) tableCell {
	header := n.DataAtom == atom.Th
	if header {
		st.bold = true
		if attr(n, "align") == "" {
			st.align = "C"
		}
	}
	st = inlineStyle(n, st)
	cell := tableCell{
		width:   parseLength(attr(n, "width")),
		colspan: atoiMin1(attr(n, "colspan")),
		rowspan: atoiMin1(attr(n, "rowspan")),
		fill:    parseColor(attr(n, "bgcolor")),
		align:   st.align,
		header:  header,
	}
	if cell.fill == nil {
		cell.fill = parseColor(styleProp(n, "background-color"))
	}
	cell.runs = inlineRuns(n, st, nil)
	return cell
}

// ─────────────────────────────────────────────────────────────────────────────
// Attributes
// ─────────────────────────────────────────────────────────────────────────────

func inlineStyle(n *html.Node, st style) style {
	switch n.DataAtom {
	case atom.B, atom.Strong, atom.Th:
		st.bold = true
	case atom.I, atom.Em:
		st.italic = true
	case atom.H1:
		st.bold, st.size = true, 16
	case atom.H2:
		st.bold, st.size = true, 14
	case atom.H3:
		st.bold, st.size = true, 12
	case atom.Small:
		st.size = st.size * 0.8
	}
	if v := styleProp(n, "font-size"); v != "" {
		if size, err := strconv.ParseFloat(strings.TrimSuffix(v, "pt"), 64); err == nil && size > 0 {
			st.size = size
		}
	}
	if v := styleProp(n, "font-weight"); v == "bold" {
		st.bold = true
	}
	align := attr(n, "align")
	if align == "" {
		align = styleProp(n, "text-align")
	}
	switch strings.ToLower(align) {
	case "left":
		st.align = "L"
	case "center":
		st.align = "C"
	case "right":
		st.align = "R"
	case "justify":
		st.align = "L"
	}
	return st
}

func marginTop(n *html.Node) float64 {
	l := parseLength(styleProp(n, "margin-top"))
	if l == nil || l.percent {
		return 0
	}
	return l.value
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func styleProp(n *html.Node, prop string) string {
	for _, decl := range strings.Split(attr(n, "style"), ";") {
		k, v, ok := strings.Cut(decl, ":")
		if ok && strings.TrimSpace(strings.ToLower(k)) == prop {
			return strings.TrimSpace(strings.ToLower(v))
		}
	}
	return ""
}

// parseLength reads "10%", "75mm" or a bare number of millimetres.
func parseLength(v string) *length {
	if v == "" {
		return nil
	}
	percent := strings.HasSuffix(v, "%")
	v = strings.TrimSuffix(strings.TrimSuffix(v, "%"), "mm")
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f <= 0 {
		return nil
	}
	return &length{value: f, percent: percent}
}

func parseColor(v string) *rgb {
	v = strings.TrimPrefix(v, "#")
	if len(v) == 3 {
		v = string([]byte{v[0], v[0], v[1], v[1], v[2], v[2]})
	}
	if len(v) != 6 {
		return nil
	}
	n, err := strconv.ParseUint(v, 16, 32)
	if err != nil {
		return nil
	}
	return &rgb{r: int(n >> 16 & 0xff), g: int(n >> 8 & 0xff), b: int(n & 0xff)}
}

func atoiMin1(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
