package presenter

import (
	"fmt"
	"strings"

	"github.com/classbook/register-archive/internal/application/query"
	"github.com/classbook/register-archive/internal/domain/register"
	"github.com/classbook/register-archive/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ASSIGNMENT SECTION
// The pages one assignment adds to a teacher or support register per term.
// ══════════════════════════════════════════════════════════════════════════════

// Section writes every page of a compiled section. Parts without data add
// no page, so an empty section writes nothing.
func (p *RegisterPresenter) Section(c Canvas, s *query.Section) {
	a := s.Assignment
	support := a.IsSupport()
	h := header{class: a.Class, term: s.Term, subject: esc(a.Subject.Name), teacher: a.Teacher.FullName()}
	if support {
		h.subject = "Sostegno"
	}

	if s.Lessons != nil {
		if support {
			p.supportGrid(c, h, s.Lessons)
		} else {
			p.teacherGrid(c, h, s.Lessons)
		}
	}
	if len(s.Topics) > 0 {
		p.pageHeader(c, TitleTopics, h)
		if support {
			c.WriteMarkup(supportTopicsTable(s.Topics), AlignCenter)
		} else {
			c.WriteMarkup(topicsTable(s.Topics), AlignCenter)
		}
	}
	if len(s.Grades) > 0 {
		p.pageHeader(c, TitleGrades, h)
		for _, d := range s.Grades {
			c.WriteMarkup(p.gradesTable(d), AlignCenter)
		}
	}
	if len(s.StudentObservations) > 0 {
		p.pageHeader(c, TitleStudentObservations, h)
		c.WriteMarkup(studentObservationsTable(s), AlignCenter)
	}
	if len(s.ClassObservations) > 0 {
		p.pageHeader(c, TitleClassObservations, h)
		c.WriteMarkup(classObservationsTable(s), AlignCenter)
	}
	if len(s.Deferred) > 0 {
		p.pageHeader(c, TitleDeferred, h)
		c.WriteMarkup(deferredTable(s.Deferred), AlignCenter)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// LESSONS GRID
// ─────────────────────────────────────────────────────────────────────────────

// teacherGrid writes one page per plan page, each with its own header and legend.
func (p *RegisterPresenter) teacherGrid(c Canvas, h header, l *query.LessonsSection) {
	for _, pg := range l.Plan.Pages() {
		p.pageHeader(c, TitleLessons, h)
		if pg.Index == 0 {
			c.WriteMarkup("<p>Totale ore di lezione: "+hours(l.TotalHours)+"</p>", AlignCenter)
		}
		c.WriteMarkup(gridTable(l, pg, true), AlignCenter)

		var legend []string
		if pg.HasDays() {
			legend = append(legend, legendAbsence)
		}
		if l.AnyWithdrawn() {
			legend = append(legend, legendWithdrawn)
		}
		if len(legend) > 0 {
			c.WriteMarkup("<p>"+joinLines(legend)+"</p>", AlignCenter)
		}
	}
}

// supportGrid stacks up to TablesPerSupportPage one-row tables on a page;
// the legend closes the last table.
func (p *RegisterPresenter) supportGrid(c Canvas, h header, l *query.LessonsSection) {
	tables := 0
	for _, pg := range l.Plan.Pages() {
		switch {
		case pg.Index == 0:
			p.pageHeader(c, TitleLessons, h)
			c.WriteMarkup("<p>Totale ore di lezione: "+hours(l.TotalHours)+"</p>", AlignCenter)
			tables = 1
		case tables == register.TablesPerSupportPage:
			p.pageHeader(c, TitleLessons, h)
			tables = 1
		default:
			tables++
		}
		c.WriteMarkup(gridTable(l, pg, false), AlignCenter)

		if pg.Summary {
			legend := []string{legendAbsence}
			if l.AnyWithdrawn() {
				legend = append(legend, legendWithdrawn)
			}
			c.WriteMarkup("<p>"+joinLines(legend)+"</p>", AlignCenter)
		}
	}
}

func gridTable(l *query.LessonsSection, pg register.Page, proposals bool) string {
	days := l.Grid.Days()
	span := ""
	if pg.HeaderRows() > 1 {
		span = ` rowspan="2"`
	}

	var sb strings.Builder
	sb.WriteString("<table><thead><tr>")
	fmt.Fprintf(&sb, `<th width="75mm"%s>Alunno</th>`, span)
	for i := pg.From; i < pg.To; i++ {
		d := days[i].Date
		fmt.Fprintf(&sb, `<th width="10mm">%s<br>%d<br>%s</th>`,
			timeutil.WeekdayShort(d), d.In(timeutil.SchoolTZ).Day(), timeutil.MonthShort(d.In(timeutil.SchoolTZ).Month()))
	}
	if pg.Summary {
		fmt.Fprintf(&sb, `<th width="20mm"%s>Totale<br>ore di<br>assenza</th>`, span)
		if proposals {
			fmt.Fprintf(&sb, `<th width="20mm"%s>Proposte<br>di voto</th>`, span)
		}
	}
	sb.WriteString("</tr>")
	if pg.SubtotalRow() {
		sb.WriteString("<tr>")
		for i := pg.From; i < pg.To; i++ {
			fmt.Fprintf(&sb, "<td><i>%s</i></td>", hours(days[i].Hours()))
		}
		sb.WriteString("</tr>")
	}
	sb.WriteString("</thead>")

	for _, row := range l.Rows {
		sb.WriteString(`<tr style="font-size:9pt"><td align="left">`)
		if row.Withdrawn {
			sb.WriteString("* ")
		}
		sb.WriteString(esc(row.Student.Label()))
		sb.WriteString("</td>")
		for i := pg.From; i < pg.To; i++ {
			cell := l.Grid.Cell(i, row.Student.ID)
			if !cell.Member {
				sb.WriteString(greyCell)
				continue
			}
			sb.WriteString("<td>" + esc(cell.Marks()) + "</td>")
		}
		if pg.Summary {
			sb.WriteString("<td>" + hours(row.Absences) + "</td>")
			if proposals {
				if row.Proposal != "" {
					sb.WriteString("<td><b>" + esc(row.Proposal) + "</b></td>")
				} else {
					sb.WriteString("<td></td>")
				}
			}
		}
		sb.WriteString("</tr>")
	}
	sb.WriteString("</table>")
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// TOPICS
// ─────────────────────────────────────────────────────────────────────────────

func topicsTable(rows []register.TopicRow) string {
	var sb strings.Builder
	sb.WriteString(`<table><thead><tr><th width="10%">Data</th><th width="45%">Argomenti</th>` +
		`<th width="45%">Attivit&agrave;</th></tr></thead>`)
	for _, r := range rows {
		fmt.Fprintf(&sb, `<tr><td>%s</td><td align="left">%s</td><td align="left">%s</td></tr>`,
			timeutil.FormatDate(r.Date), joinLines(r.Topics), joinLines(r.Activities))
	}
	sb.WriteString("</table>")
	return sb.String()
}

func supportTopicsTable(rows []register.TopicRow) string {
	var sb strings.Builder
	sb.WriteString(`<table><thead><tr><th width="8%">Data</th><th width="12%">Materia</th>` +
		`<th width="40%">Argomenti/Attivit&agrave; della materia</th>` +
		`<th width="40%">Argomenti/Attivit&agrave; di sostegno</th></tr></thead>`)
	for _, r := range rows {
		fmt.Fprintf(&sb, `<tr><td>%s</td><td align="left">%s</td><td align="left">%s</td><td align="left">%s</td></tr>`,
			timeutil.FormatDate(r.Date), esc(r.Key), joinLines(r.Topics), joinLines(r.Activities))
	}
	sb.WriteString("</table>")
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// GRADES, OBSERVATIONS, SUSPENDED JUDGEMENT
// ─────────────────────────────────────────────────────────────────────────────

func (p *RegisterPresenter) gradesTable(d query.GradeDetail) string {
	var sb strings.Builder
	sb.WriteString(`<table style="font-size:10pt"><thead>`)
	fmt.Fprintf(&sb, `<tr><td colspan="5" align="center"><b>%s</b></td></tr>`, esc(d.Student.Label()))
	sb.WriteString(`<tr><th width="10%">Data</th><th width="8%">Tipo</th>` +
		`<th width="40%">Argomenti o descrizione della prova</th><th width="6%">Voto</th>` +
		`<th width="36%">Giudizio o commento</th></tr></thead>`)
	for _, g := range d.Grades {
		prompt := register.CleanText(g.Prompt)
		if !g.CountsTowardAverage {
			prompt += notForAverage
		}
		fmt.Fprintf(&sb, `<tr><td>%s</td><td>%s</td><td align="left" style="font-size:9pt">%s</td>`+
			`<td><b>%s</b></td><td align="left" style="font-size:9pt">%s</td></tr>`,
			timeutil.FormatDate(g.Date), g.Type.Label(), prompt,
			esc(p.markers.Format(g.Score)), register.CleanText(g.Remark))
	}
	sb.WriteString("</table>")
	return sb.String()
}

func studentObservationsTable(s *query.Section) string {
	var sb strings.Builder
	sb.WriteString(`<table><thead><tr><th width="10%">Data</th><th width="30%">Alunno</th>` +
		`<th width="60%">Osservazioni</th></tr></thead>`)
	for _, o := range s.StudentObservations {
		label := ""
		if o.Student != nil {
			label = esc(o.Student.Label())
		}
		fmt.Fprintf(&sb, `<tr><td>%s</td><td align="left">%s</td><td align="left" style="font-size:9pt">%s</td></tr>`,
			timeutil.FormatDate(o.Date), label, register.CleanText(o.Text))
	}
	sb.WriteString("</table>")
	return sb.String()
}

func classObservationsTable(s *query.Section) string {
	var sb strings.Builder
	sb.WriteString(`<table><thead><tr><th width="10%">Data</th><th width="90%">Osservazioni</th></tr></thead>`)
	for _, o := range s.ClassObservations {
		fmt.Fprintf(&sb, `<tr><td>%s</td><td align="left" style="font-size:9pt">%s</td></tr>`,
			timeutil.FormatDate(o.Date), register.CleanText(o.Text))
	}
	sb.WriteString("</table>")
	return sb.String()
}

func deferredTable(rows []query.DeferredRow) string {
	var sb strings.Builder
	sb.WriteString(`<table><thead><tr><th width="30%">Alunno</th><th width="60%">Giudizio sulla verifica</th>` +
		`<th width="10%">Proposta<br>di voto</th></tr></thead>`)
	for _, r := range rows {
		fmt.Fprintf(&sb, `<tr style="font-size:9pt"><td align="left">%s</td><td align="left">%s</td><td><b>%s</b></td></tr>`,
			esc(r.Student.Label()), register.CleanText(r.Debt), esc(r.Proposal))
	}
	sb.WriteString("</table>")
	return sb.String()
}
