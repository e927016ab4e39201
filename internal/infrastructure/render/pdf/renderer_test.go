package pdf

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarkup_TextStyles(t *testing.T) {
	blocks, err := parseMarkup(`<p align="center"><b>Registro</b> di <i>classe</i><br>3A</p>`, style{size: 9, align: "L"})
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	tb, ok := blocks[0].(textBlock)
	require.True(t, ok)
	assert.Equal(t, "C", tb.align)
	require.Len(t, tb.runs, 5)
	assert.Equal(t, run{text: "Registro", bold: true, size: 9}, tb.runs[0])
	assert.Equal(t, " di ", tb.runs[1].text)
	assert.True(t, tb.runs[2].italic)
	assert.True(t, tb.runs[3].br)
	assert.Equal(t, "3A", tb.runs[4].text)
}

func TestParseMarkup_FontSizeAndEntities(t *testing.T) {
	blocks, err := parseMarkup(`<div style="font-size:14pt;margin-top:20mm">Luned&igrave; 16 &amp; oltre</div>`, style{size: 9})
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	tb := blocks[0].(textBlock)
	assert.Equal(t, 14.0, tb.runs[0].size)
	assert.Equal(t, "Lunedì 16 & oltre", tb.runs[0].text)
	assert.Equal(t, 20.0, tb.spaceBefore)
}

func TestParseMarkup_Table(t *testing.T) {
	markup := `<table><thead><tr><th width="75mm" rowspan="2">Alunno</th><th width="10%">Lun</th></tr>
<tr><td><i>2</i></td></tr></thead>
<tr><td>Rossi</td><td bgcolor="#CCCCCC" colspan="1"></td></tr></table>`
	blocks, err := parseMarkup(markup, style{size: 9, align: "L"})
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	tb := blocks[0].(tableBlock)
	require.Len(t, tb.rows, 3)
	assert.Equal(t, 2, tb.headRows)

	alunno := tb.rows[0].cells[0]
	assert.True(t, alunno.header)
	assert.Equal(t, 2, alunno.rowspan)
	assert.Equal(t, &length{value: 75}, alunno.width)
	assert.Equal(t, "C", alunno.align)
	assert.Equal(t, &length{value: 10, percent: true}, tb.rows[0].cells[1].width)
	assert.Equal(t, &rgb{0xcc, 0xcc, 0xcc}, tb.rows[2].cells[1].fill)

	cells, ncols := place(tb.rows)
	assert.Equal(t, 2, ncols)
	assert.Equal(t, 1, cells[2].col, "the subtotal cell shifts past the rowspan")
}

func TestColumnWidths(t *testing.T) {
	cells := []placed{
		{cell: tableCell{colspan: 1, width: &length{value: 10, percent: true}}, col: 0},
		{cell: tableCell{colspan: 1}, col: 1},
		{cell: tableCell{colspan: 1}, col: 2},
	}
	w := columnWidths(cells, 3, 200)
	assert.InDeltaSlice(t, []float64{20, 90, 90}, w, 1e-9)

	over := []placed{
		{cell: tableCell{colspan: 1, width: &length{value: 150}}, col: 0},
		{cell: tableCell{colspan: 1, width: &length{value: 150}}, col: 1},
	}
	assert.InDeltaSlice(t, []float64{100, 100}, columnWidths(over, 2, 200), 1e-9)
}

func TestRowGroups(t *testing.T) {
	cells := []placed{
		{cell: tableCell{rowspan: 3, colspan: 1}, row: 1},
		{cell: tableCell{rowspan: 1, colspan: 1}, row: 0},
	}
	assert.Equal(t, []int{0, 3, 3, 3, 4}, rowGroups(cells, 5))
}

func TestRenderer_DeletePageAndOutput(t *testing.T) {
	r := New(Options{Title: "Registro del docente", CreatedAt: time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)})
	r.AddPage()
	r.WriteMarkup(`<p>Copertina</p>`, "C")
	r.AddPage()
	r.WriteMarkup(`<p>Segnaposto</p>`, "L")
	assert.Equal(t, 2, r.PageNo())

	require.NoError(t, r.DeletePage(2))
	assert.Equal(t, 1, r.PageNo())
	assert.Error(t, r.DeletePage(5))

	var buf bytes.Buffer
	require.NoError(t, r.Output(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "%PDF-"))
}

func TestRenderer_OutputIsStable(t *testing.T) {
	render := func() []byte {
		r := New(Options{CreatedAt: time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)})
		r.AddPage()
		rows := strings.Repeat(`<tr><td width="40mm">Rossi Maria (01/02/2008)</td><td>A</td><td>7½</td></tr>`, 80)
		r.WriteMarkup(`<table><thead><tr><th>Alunno</th><th>Lun</th><th>Voto</th></tr></thead>`+rows+`</table>`, "L")
		var buf bytes.Buffer
		require.NoError(t, r.Output(&buf))
		return buf.Bytes()
	}
	assert.Equal(t, render(), render())
}

func TestRenderer_EmptyDocument(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, New(DefaultOptions()).Output(&buf))
}
