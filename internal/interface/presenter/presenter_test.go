package presenter

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbook/register-archive/internal/application/query"
	"github.com/classbook/register-archive/internal/domain/period"
	"github.com/classbook/register-archive/internal/domain/register"
	"github.com/classbook/register-archive/internal/domain/school"
	"github.com/classbook/register-archive/internal/infrastructure/persistence/memory"
	"github.com/classbook/register-archive/pkg/timeutil"
)

// recorder keeps the markup written to each page.
type recorder struct {
	pages [][]string
}

func (r *recorder) AddPage() { r.pages = append(r.pages, nil) }

func (r *recorder) WriteMarkup(markup string, _ string) {
	if len(r.pages) == 0 {
		r.AddPage()
	}
	r.pages[len(r.pages)-1] = append(r.pages[len(r.pages)-1], markup)
}

func (r *recorder) page(i int) string { return strings.Join(r.pages[i], "\n") }

// titled returns the indexes of the pages whose header carries title.
func (r *recorder) titled(title string) []int {
	var out []int
	for i := range r.pages {
		if len(r.pages[i]) > 0 && strings.Contains(r.pages[i][0], title) {
			out = append(out, i)
		}
	}
	return out
}

func section(t *testing.T, teacherID int64, kind school.SubjectKind, classID int64, term int) *query.Section {
	t.Helper()
	s := memory.Demo()
	cal, err := period.NewCalendar(memory.DemoSettings())
	require.NoError(t, err)
	terms := cal.Terms()
	if term < 0 {
		term = len(terms) - 1
	}

	as, err := s.Assignments(context.Background(), teacherID, []school.SubjectKind{kind})
	require.NoError(t, err)
	for _, a := range as {
		if a.Class.ID != classID {
			continue
		}
		h := query.NewCompileSectionHandler(register.DefaultScales(), register.DefaultScoreMarkers(), nil)
		sec, err := h.Handle(context.Background(), s, query.CompileSectionQuery{Assignment: a, Term: terms[term]})
		require.NoError(t, err)
		return sec
	}
	t.Fatalf("no assignment for teacher %d in class %d", teacherID, classID)
	return nil
}

func newPresenter() *RegisterPresenter {
	return NewRegisterPresenter("2024/2025", register.DefaultScoreMarkers())
}

func TestTeacherCover(t *testing.T) {
	s := memory.Demo()
	as, err := s.Assignments(context.Background(), memory.DemoTeacherMath, []school.SubjectKind{school.SubjectOrdinary})
	require.NoError(t, err)
	require.NotEmpty(t, as)

	rec := &recorder{}
	newPresenter().TeacherCover(rec, as[0])
	require.Len(t, rec.pages, 1)
	page := rec.page(0)
	assert.Contains(t, page, "A.S. 2024/2025")
	assert.Contains(t, page, "Registro del docente")
	assert.Contains(t, page, as[0].Teacher.FullName())
	assert.Contains(t, page, "Classe "+as[0].Class.String())
}

func TestSection_TeacherPages(t *testing.T) {
	sec := section(t, memory.DemoTeacherMath, school.SubjectOrdinary, memory.DemoClass3A, 0)
	rec := &recorder{}
	newPresenter().Section(rec, sec)

	lessons := rec.titled(TitleLessons)
	require.Len(t, lessons, sec.Lessons.Plan.Count())
	first := rec.page(lessons[0])
	assert.Contains(t, first, "Totale ore di lezione: ")
	assert.Contains(t, first, "Materia: <b>")
	assert.Contains(t, first, `<th width="75mm"`)
	assert.Contains(t, first, "* "+sec.Lessons.Rows[0].Student.Label(), "withdrawn student is starred")
	assert.Contains(t, first, legendWithdrawn)

	last := rec.page(lessons[len(lessons)-1])
	assert.Contains(t, last, "Proposte<br>di voto")
	assert.Contains(t, last, "<td><b>4</b></td>")

	require.Len(t, rec.titled(TitleTopics), 1)
	require.Len(t, rec.titled(TitleGrades), 1)
	grades := rec.page(rec.titled(TitleGrades)[0])
	assert.Equal(t, len(sec.Grades), strings.Count(grades, `colspan="5"`))

	assert.Len(t, rec.titled(TitleStudentObservations), 1)
	assert.Len(t, rec.titled(TitleClassObservations), 1)
	assert.Empty(t, rec.titled(TitleDeferred))
}

func TestSection_SupportPages(t *testing.T) {
	sec := section(t, memory.DemoTeacherSupport, school.SubjectSupport, memory.DemoClass3A, 0)
	rec := &recorder{}
	newPresenter().Section(rec, sec)

	lessons := rec.titled(TitleLessons)
	pages := sec.Lessons.Plan.Count()
	want := (pages + register.TablesPerSupportPage - 1) / register.TablesPerSupportPage
	require.Len(t, lessons, want)

	all := ""
	for _, i := range lessons {
		all += rec.page(i)
	}
	assert.Equal(t, pages, strings.Count(all, "<table>"))
	assert.NotContains(t, all, "Proposte")
	assert.Equal(t, 1, strings.Count(all, legendAbsence), "legend closes the last table only")
	assert.Contains(t, rec.page(lessons[0]), "Materia: <b>Sostegno</b>")

	topics := rec.page(rec.titled(TitleTopics)[0])
	assert.Contains(t, topics, "Argomenti/Attivit&agrave; di sostegno")
	assert.Contains(t, topics, "<td align=\"left\">Ita</td>")
	assert.Empty(t, rec.titled(TitleGrades))
}

func TestSection_Deferred(t *testing.T) {
	sec := section(t, memory.DemoTeacherMath, school.SubjectOrdinary, memory.DemoClass3A, -1)
	rec := &recorder{}
	newPresenter().Section(rec, sec)

	pages := rec.titled(TitleDeferred)
	require.Len(t, pages, 1)
	page := rec.page(pages[0])
	assert.Contains(t, page, "Geometria analitica")
	assert.Contains(t, page, "<b>6</b>")
}

func TestSection_EmptyWritesNothing(t *testing.T) {
	rec := &recorder{}
	newPresenter().Section(rec, &query.Section{})
	assert.Empty(t, rec.pages)
}

func TestGridTable_EscapesNames(t *testing.T) {
	b := register.NewGridBuilder(register.DefaultScoreMarkers())
	day, err := b.OpenDay(timeutil.Date(2024, 9, 16), []int64{1})
	require.NoError(t, err)
	require.NoError(t, b.AddMinutes(day, 60))
	b.AddAbsence(day, 1, 1)
	grid := b.Build()

	l := &query.LessonsSection{
		Grid: grid,
		Rows: []query.StudentRow{{Student: school.Student{ID: 1, LastName: "D'Amico <x>", FirstName: "Anna"}, Absences: 1}},
		Plan: register.PlanFor(school.ScopeAssignment, grid.DayCount()),
	}
	out := gridTable(l, l.Plan.Pages()[0], true)
	assert.Contains(t, out, "Lun<br>16<br>SET")
	assert.Contains(t, out, "&lt;x&gt;")
	assert.NotContains(t, out, "<x>")
	assert.Contains(t, out, "<td>A</td>")
}

func TestSection_TwentyOneDays(t *testing.T) {
	b := register.NewGridBuilder(register.DefaultScoreMarkers())
	day := timeutil.Date(2024, 9, 16)
	for i := 0; i < 21; i++ {
		idx, err := b.OpenDay(day, []int64{1})
		require.NoError(t, err)
		require.NoError(t, b.AddMinutes(idx, 60))
		day = timeutil.NextDay(day)
	}
	grid := b.Build()

	sec := &query.Section{
		Assignment: school.Assignment{
			ID:      1,
			Teacher: school.Teacher{ID: 1, FirstName: "Maria", LastName: "Rossi"},
			Subject: school.Subject{ID: 1, Name: "Matematica", Kind: school.SubjectOrdinary},
			Class:   school.Class{ID: 1, Year: 3, Section: "A", Course: "Liceo Scientifico"},
		},
		Term: period.Term{Ordinal: 1, Name: "Primo Quadrimestre",
			Start: timeutil.Date(2024, 9, 11), End: timeutil.Date(2025, 1, 31), Scrutiny: period.ScrutinyFirst},
		Lessons: &query.LessonsSection{
			Grid:       grid,
			Rows:       []query.StudentRow{{Student: school.Student{ID: 1, LastName: "Esposito", FirstName: "Luca"}, Proposal: "7"}},
			Plan:       register.PlanFor(school.ScopeAssignment, grid.DayCount()),
			TotalHours: grid.TotalHours(),
		},
	}
	rec := &recorder{}
	newPresenter().Section(rec, sec)

	lessons := rec.titled(TitleLessons)
	require.Len(t, lessons, 2)

	first := rec.page(lessons[0])
	assert.Equal(t, 20, strings.Count(first, "<td><i>"))
	assert.NotContains(t, first, "Proposte")

	second := rec.page(lessons[1])
	assert.Contains(t, second, `<th width="75mm" rowspan="2">Alunno</th>`)
	assert.Contains(t, second, `<th width="20mm" rowspan="2">Totale<br>ore di<br>assenza</th>`)
	assert.Contains(t, second, `<th width="20mm" rowspan="2">Proposte<br>di voto</th>`)
	assert.Contains(t, second, "</tr><tr><td><i>1</i></td></tr></thead>")
	assert.Contains(t, second, "<td><b>7</b></td>")
}

func TestClassDay(t *testing.T) {
	s := memory.Demo()
	class, err := s.ClassByID(context.Background(), memory.DemoClass3A)
	require.NoError(t, err)
	cal, err := period.NewCalendar(memory.DemoSettings())
	require.NoError(t, err)

	h := query.NewCompileClassDayHandler(nil)
	day, err := h.Handle(context.Background(), s, query.CompileClassDayQuery{Class: *class, Day: timeutil.Date(2024, 10, 15)})
	require.NoError(t, err)

	rec := &recorder{}
	newPresenter().ClassDay(rec, cal.Terms()[0], day)
	require.Len(t, rec.pages, 1)
	page := rec.page(0)
	assert.Contains(t, page, TitleClassRegister)
	assert.NotContains(t, page, "Materia: <b>")
	assert.Contains(t, page, "Marted")
	assert.Contains(t, page, "Lingua e letteratura italiana")
	assert.Contains(t, page, "Note disciplinari")
	assert.Contains(t, page, "*** ANNULLATA ***")
}
