// Package presenter turns compiled register sections into page markup.
// Presenters only format: every value they print has already been read and
// aggregated by the query handlers.
package presenter

import (
	"fmt"
	"html"
	"strings"

	"github.com/classbook/register-archive/internal/domain/period"
	"github.com/classbook/register-archive/internal/domain/register"
	"github.com/classbook/register-archive/internal/domain/school"
)

// Paragraph alignment passed along with each markup block.
const (
	AlignLeft   = "L"
	AlignCenter = "C"
	AlignRight  = "R"
)

// Canvas receives pages of markup. The PDF renderer implements it.
type Canvas interface {
	AddPage()
	WriteMarkup(markup string, align string)
}

// Section titles, also used by tests to locate pages.
const (
	TitleLessons             = "Lezioni della classe"
	TitleTopics              = "Argomenti e attivit&agrave; della classe"
	TitleGrades              = "Valutazioni della classe"
	TitleStudentObservations = "Osservazioni sugli alunni della classe"
	TitleClassObservations   = "Osservazioni sulla classe"
	TitleDeferred            = "Esami giudizio sospeso della classe"
	TitleClassRegister       = "Registro della classe"
)

const (
	legendAbsence   = "<b>A</b> = assenza di un'ora; <b>a</b> = assenza di mezzora."
	legendWithdrawn = "<b>*</b> Alunno ritirato/trasferito/frequenta l'anno all'estero"
	notForAverage   = "<br><em>(Non utilizzata nel calcolo della media)</em>"
	greyCell        = `<td bgcolor="#CCCCCC"></td>`
)

// RegisterPresenter writes the pages of teacher, support and class registers.
type RegisterPresenter struct {
	year    string
	markers register.ScoreMarkers
}

// NewRegisterPresenter creates a presenter for the school year label, e.g. "2024/2025".
func NewRegisterPresenter(year string, markers register.ScoreMarkers) *RegisterPresenter {
	return &RegisterPresenter{year: year, markers: markers}
}

// ─────────────────────────────────────────────────────────────────────────────
// COVERS
// ─────────────────────────────────────────────────────────────────────────────

// TeacherCover adds the first page of an assignment in a teacher register.
func (p *RegisterPresenter) TeacherCover(c Canvas, a school.Assignment) {
	p.cover(c, "Registro del docente", a, esc(a.Subject.Name))
}

// SupportCover adds the first page of a support assignment.
func (p *RegisterPresenter) SupportCover(c Canvas, a school.Assignment) {
	subject := "Sostegno"
	if a.Student != nil {
		subject = "Sostegno per " + esc(a.Student.Label())
	}
	p.cover(c, "Registro di sostegno", a, subject)
}

func (p *RegisterPresenter) cover(c Canvas, title string, a school.Assignment, subject string) {
	c.AddPage()
	var sb strings.Builder
	sb.WriteString(`<div style="font-size:18pt;font-weight:bold;margin-top:30mm">`)
	fmt.Fprintf(&sb, "<p>A.S. %s</p>", esc(p.year))
	fmt.Fprintf(&sb, `<p style="font-size:15pt">%s<br><span style="font-size:20pt">%s</span></p>`,
		title, esc(a.Teacher.FullName()))
	fmt.Fprintf(&sb, `<p>Classe %s<br><span style="font-size:15pt">%s</span></p>`,
		esc(a.Class.String()), esc(a.Class.CourseLabel()))
	fmt.Fprintf(&sb, "<p><i>%s</i></p>", subject)
	sb.WriteString("</div>")
	c.WriteMarkup(sb.String(), AlignCenter)
}

// ClassCover adds the first page of a term in the class register.
func (p *RegisterPresenter) ClassCover(c Canvas, class school.Class, term period.Term) {
	c.AddPage()
	var sb strings.Builder
	sb.WriteString(`<div style="font-size:18pt;font-weight:bold;margin-top:30mm">`)
	fmt.Fprintf(&sb, "<p>A.S. %s</p>", esc(p.yearTerm(term)))
	sb.WriteString(`<p style="font-size:20pt">Registro di classe</p>`)
	fmt.Fprintf(&sb, `<p style="font-size:20pt">%s<br>%s<br>%s</p>`,
		esc(class.String()), esc(class.Course), esc(class.Site.ShortName))
	sb.WriteString("</div>")
	c.WriteMarkup(sb.String(), AlignCenter)
}

// ─────────────────────────────────────────────────────────────────────────────
// PAGE HEADER
// ─────────────────────────────────────────────────────────────────────────────

// header identifies what a page belongs to.
type header struct {
	class   school.Class
	term    period.Term
	subject string // already escaped; empty on class register pages
	teacher string
}

func (p *RegisterPresenter) yearTerm(term period.Term) string {
	return p.year + " - " + term.Name
}

// pageHeader starts a new page with the year, section title, class and, for
// assignment registers, subject and teacher.
func (p *RegisterPresenter) pageHeader(c Canvas, title string, h header) {
	c.AddPage()
	var sb strings.Builder
	fmt.Fprintf(&sb, "<p><b>A.S. %s</b><br>", esc(p.yearTerm(h.term)))
	fmt.Fprintf(&sb, "%s <b>%s - %s</b>", title, esc(h.class.String()), esc(h.class.CourseLabel()))
	if h.subject != "" && h.teacher != "" {
		fmt.Fprintf(&sb, "<br>Materia: <b>%s</b> - Docente: <b>%s</b>", h.subject, esc(h.teacher))
	}
	sb.WriteString("</p>")
	c.WriteMarkup(sb.String(), AlignCenter)
}

// ─────────────────────────────────────────────────────────────────────────────
// HELPERS
// ─────────────────────────────────────────────────────────────────────────────

func esc(s string) string {
	return html.EscapeString(s)
}

func hours(h float64) string {
	return register.FormatHours(h)
}

// joinLines joins already escaped lines with line breaks.
func joinLines(lines []string) string {
	return strings.Join(lines, "<br>")
}
