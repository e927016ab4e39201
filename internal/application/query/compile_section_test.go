package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbook/register-archive/internal/domain/period"
	"github.com/classbook/register-archive/internal/domain/register"
	"github.com/classbook/register-archive/internal/domain/school"
	"github.com/classbook/register-archive/internal/domain/shared"
	"github.com/classbook/register-archive/internal/infrastructure/persistence/memory"
	"github.com/classbook/register-archive/pkg/timeutil"
)

func demoTerms(t *testing.T) []period.Term {
	t.Helper()
	cal, err := period.NewCalendar(memory.DemoSettings())
	require.NoError(t, err)
	return cal.Terms()
}

func assignmentOf(t *testing.T, s *memory.Store, teacherID int64, kind school.SubjectKind, classID int64) school.Assignment {
	t.Helper()
	as, err := s.Assignments(context.Background(), teacherID, []school.SubjectKind{kind})
	require.NoError(t, err)
	for _, a := range as {
		if a.Class.ID == classID {
			return a
		}
	}
	t.Fatalf("no assignment for teacher %d in class %d", teacherID, classID)
	return school.Assignment{}
}

func studentIDs(rows []StudentRow) []int64 {
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.Student.ID
	}
	return ids
}

func compile(t *testing.T, s *memory.Store, a school.Assignment, term period.Term) *Section {
	t.Helper()
	h := NewCompileSectionHandler(register.DefaultScales(), register.DefaultScoreMarkers(), nil)
	sec, err := h.Handle(context.Background(), s, CompileSectionQuery{Assignment: a, Term: term})
	require.NoError(t, err)
	return sec
}

func TestCompileSection_OrdinaryFirstTerm(t *testing.T) {
	s := memory.Demo()
	terms := demoTerms(t)
	a := assignmentOf(t, s, memory.DemoTeacherMath, school.SubjectOrdinary, memory.DemoClass3A)

	sec := compile(t, s, a, terms[0])
	require.NotNil(t, sec.Lessons)
	assert.False(t, sec.Empty())

	lessons := sec.Lessons
	assert.Equal(t, []int64{104, 101, 102, 106, 105, 103}, studentIDs(lessons.Rows))
	assert.True(t, lessons.Rows[0].Withdrawn, "Colombo left the class")
	assert.False(t, lessons.Rows[1].Withdrawn)
	assert.True(t, lessons.AnyWithdrawn())

	assert.Equal(t, "", lessons.Rows[0].Proposal)
	assert.Equal(t, "4", lessons.Rows[1].Proposal)
	assert.Equal(t, "5", lessons.Rows[2].Proposal)

	assert.Equal(t, register.TrailingTeacher, lessons.Plan.Trailing)
	assert.Equal(t, lessons.Grid.DayCount(), lessons.Plan.Columns)
	assert.InDelta(t, lessons.Grid.TotalHours(), lessons.TotalHours, 1e-9)

	for _, row := range lessons.Rows {
		assert.InDelta(t, lessons.Grid.AbsenceTotal(row.Student.ID), row.Absences, 1e-9)
		assert.LessOrEqual(t, row.Absences, lessons.TotalHours)
	}

	require.NotEmpty(t, sec.Topics)
	assert.Equal(t, "", sec.Topics[0].Key)

	assert.Empty(t, sec.Deferred, "suspended judgement only on the final term")
	require.Len(t, sec.StudentObservations, 2)
	require.Len(t, sec.ClassObservations, 1)
}

func TestCompileSection_GradesNewestFirst(t *testing.T) {
	s := memory.Demo()
	a := assignmentOf(t, s, memory.DemoTeacherMath, school.SubjectOrdinary, memory.DemoClass3A)
	sec := compile(t, s, a, demoTerms(t)[0])

	require.NotEmpty(t, sec.Grades)
	order := map[int64]int{}
	for i, r := range sec.Lessons.Rows {
		order[r.Student.ID] = i
	}
	last := -1
	for _, d := range sec.Grades {
		require.NotEmpty(t, d.Grades)
		assert.Greater(t, order[d.Student.ID], last, "grade details follow the grid order")
		last = order[d.Student.ID]
		for i := 1; i < len(d.Grades); i++ {
			assert.False(t, d.Grades[i].Date.After(d.Grades[i-1].Date))
		}
	}
}

func TestCompileSection_ReligionFilter(t *testing.T) {
	s := memory.Demo()
	term := demoTerms(t)[0]

	rel := assignmentOf(t, s, memory.DemoTeacherReligion, school.SubjectReligion, memory.DemoClass3A)
	sec := compile(t, s, rel, term)
	require.NotNil(t, sec.Lessons)
	assert.Equal(t, []int64{104, 101, 102, 106}, studentIDs(sec.Lessons.Rows))
	assert.Equal(t, "Il senso religioso", sec.Topics[0].Topics[0])

	alt := assignmentOf(t, s, memory.DemoTeacherAltern, school.SubjectReligion, memory.DemoClass3A)
	sec = compile(t, s, alt, term)
	require.NotNil(t, sec.Lessons)
	assert.Equal(t, []int64{103}, studentIDs(sec.Lessons.Rows))
	// membership is not filtered, only the listed rows
	assert.Len(t, sec.Lessons.Grid.StudentIDs(), 6)
}

func TestCompileSection_Support(t *testing.T) {
	s := memory.Demo()
	a := assignmentOf(t, s, memory.DemoTeacherSupport, school.SubjectSupport, memory.DemoClass3A)
	sec := compile(t, s, a, demoTerms(t)[0])

	require.NotNil(t, sec.Lessons)
	assert.Equal(t, []int64{102}, studentIDs(sec.Lessons.Rows))
	assert.Equal(t, []int64{102}, sec.Lessons.Grid.StudentIDs())
	assert.Equal(t, register.TrailingSupport, sec.Lessons.Plan.Trailing)
	assert.Empty(t, sec.Lessons.Rows[0].Proposal)
	assert.Empty(t, sec.Grades)

	require.NotEmpty(t, sec.Topics)
	first := sec.Topics[0]
	assert.True(t, timeutil.IsSameDay(timeutil.Date(2024, 9, 12), first.Date))
	assert.Equal(t, "Ita", first.Key)
	assert.Equal(t, []string{"Mappa concettuale - Affiancamento nello svolgimento degli esercizi"}, first.Activities)
	assert.Equal(t, "Mat", sec.Topics[1].Key)

	require.Len(t, sec.StudentObservations, 1)
	assert.Equal(t, int64(102), sec.StudentObservations[0].Student.ID)
}

func TestCompileSection_SupportStudentAbroad(t *testing.T) {
	s := memory.Demo()
	for i := range s.Students {
		if s.Students[i].ID == 102 {
			s.Students[i].Abroad = true
		}
	}
	a := assignmentOf(t, s, memory.DemoTeacherSupport, school.SubjectSupport, memory.DemoClass3A)
	sec := compile(t, s, a, demoTerms(t)[0])

	require.NotNil(t, sec.Lessons)
	require.NotZero(t, sec.Lessons.Grid.DayCount())
	assert.Equal(t, []int64{102}, studentIDs(sec.Lessons.Rows))
	assert.True(t, sec.Lessons.Rows[0].Withdrawn)
	for i := range sec.Lessons.Grid.Days() {
		assert.False(t, sec.Lessons.Grid.Cell(i, 102).Member)
	}
}

// shiftedStore moves the last confirmed lesson of a range to another date.
type shiftedStore struct {
	*memory.Store
	to time.Time
}

func (s shiftedStore) ConfirmedLessons(ctx context.Context, scope school.Scope, r school.DateRange) ([]school.Lesson, error) {
	lessons, err := s.Store.ConfirmedLessons(ctx, scope, r)
	if err == nil && len(lessons) > 0 {
		lessons[len(lessons)-1].Date = s.to
	}
	return lessons, err
}

func TestCompileSection_LessonOutsideYear(t *testing.T) {
	cal, err := period.NewCalendar(memory.DemoSettings())
	require.NoError(t, err)
	s := shiftedStore{Store: memory.Demo(), to: timeutil.Date(2025, 7, 15)}
	a := assignmentOf(t, s.Store, memory.DemoTeacherMath, school.SubjectOrdinary, memory.DemoClass3A)

	h := NewCompileSectionHandler(register.DefaultScales(), register.DefaultScoreMarkers(), nil)
	_, err = h.Handle(context.Background(), s, CompileSectionQuery{Assignment: a, Term: cal.Terms()[1], Calendar: cal})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrDateOutsideYear)
	assert.True(t, shared.IsDataIntegrity(err))
}

func TestCompileSection_LessonInAnotherTerm(t *testing.T) {
	terms := demoTerms(t)
	s := shiftedStore{Store: memory.Demo(), to: timeutil.Date(2025, 3, 3)}
	a := assignmentOf(t, s.Store, memory.DemoTeacherMath, school.SubjectOrdinary, memory.DemoClass3A)

	h := NewCompileSectionHandler(register.DefaultScales(), register.DefaultScoreMarkers(), nil)
	_, err := h.Handle(context.Background(), s, CompileSectionQuery{Assignment: a, Term: terms[0]})
	require.Error(t, err)
	assert.True(t, shared.IsDataIntegrity(err))
	assert.NotErrorIs(t, err, shared.ErrDateOutsideYear)
}

func TestCompileSection_FinalTermDeferred(t *testing.T) {
	s := memory.Demo()
	terms := demoTerms(t)
	a := assignmentOf(t, s, memory.DemoTeacherMath, school.SubjectOrdinary, memory.DemoClass3A)
	sec := compile(t, s, a, terms[len(terms)-1])

	require.Len(t, sec.Deferred, 2)
	assert.Equal(t, int64(105), sec.Deferred[0].Student.ID)
	assert.Equal(t, school.ProposalSuspended, sec.Deferred[0].Period)
	assert.Equal(t, "6", sec.Deferred[0].Proposal)
	assert.Equal(t, int64(101), sec.Deferred[1].Student.ID)
	assert.Equal(t, "Geometria analitica", sec.Deferred[1].Debt)

	require.NotNil(t, sec.Lessons)
	assert.NotContains(t, studentIDs(sec.Lessons.Rows), int64(104))
}

func TestCompileSection_GroupClass(t *testing.T) {
	s := memory.Demo()
	a := assignmentOf(t, s, memory.DemoTeacherLatin, school.SubjectOrdinary, memory.DemoClass4BLat)
	sec := compile(t, s, a, demoTerms(t)[0])

	require.NotNil(t, sec.Lessons)
	assert.Equal(t, []int64{202, 201}, studentIDs(sec.Lessons.Rows))
	assert.False(t, sec.Lessons.AnyWithdrawn())
}

func TestCompileSection_NothingInRange(t *testing.T) {
	s := memory.Demo()
	a := assignmentOf(t, s, memory.DemoTeacherMath, school.SubjectOrdinary, memory.DemoClass3A)
	term := period.Term{
		Ordinal:  1,
		Name:     "Estate",
		Start:    timeutil.Date(2025, 7, 1),
		End:      timeutil.Date(2025, 7, 31),
		Scrutiny: period.ScrutinyFirst,
	}
	sec := compile(t, s, a, term)
	assert.Nil(t, sec.Lessons)
	assert.True(t, sec.Empty())
}

func TestCompileSection_Validation(t *testing.T) {
	h := NewCompileSectionHandler(nil, register.DefaultScoreMarkers(), nil)
	_, err := h.Handle(context.Background(), memory.Demo(), CompileSectionQuery{})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrValidation)
}
