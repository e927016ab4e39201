package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbook/register-archive/internal/domain/school"
	"github.com/classbook/register-archive/internal/domain/shared"
	"github.com/classbook/register-archive/pkg/timeutil"
)

func TestStudentsInClass_HistoryAndGroups(t *testing.T) {
	s := Demo()
	ctx := context.Background()
	class3A, err := s.ClassByID(ctx, DemoClass3A)
	require.NoError(t, err)

	// before the withdrawal Colombo is still a member; Bruno is abroad
	ids, err := s.StudentsInClass(ctx, timeutil.Date(2024, 10, 1), *class3A)
	require.NoError(t, err)
	assert.Equal(t, []int64{104, 101, 102, 106, 105, 103}, ids)

	ids, err = s.StudentsInClass(ctx, timeutil.Date(2025, 2, 3), *class3A)
	require.NoError(t, err)
	assert.NotContains(t, ids, int64(104))
	assert.NotContains(t, ids, int64(107))

	class4B, err := s.ClassByID(ctx, DemoClass4B)
	require.NoError(t, err)
	ids, err = s.StudentsInClass(ctx, timeutil.Date(2024, 10, 1), *class4B)
	require.NoError(t, err)
	assert.Equal(t, []int64{202, 204, 203, 201}, ids)
	assert.Equal(t, 3, s.Reads())
}

func TestConfirmedLessons_ReligionAndSupport(t *testing.T) {
	s := Demo()
	ctx := context.Background()
	r := school.DateRange{From: timeutil.Date(2024, 9, 16), To: timeutil.Date(2024, 9, 21)}

	as, err := s.Assignments(ctx, DemoTeacherAltern, []school.SubjectKind{school.SubjectReligion})
	require.NoError(t, err)
	require.Len(t, as, 1)
	lessons, err := s.ConfirmedLessons(ctx, school.ForAssignment(as[0]), r)
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, "Diritti umani e cittadinanza", lessons[0].Topic)

	as, err = s.Assignments(ctx, DemoTeacherSupport, []school.SubjectKind{school.SubjectSupport})
	require.NoError(t, err)
	require.Len(t, as, 1)
	require.NotNil(t, as[0].Student)
	lessons, err = s.ConfirmedLessons(ctx, school.ForAssignment(as[0]), r)
	require.NoError(t, err)
	require.NotEmpty(t, lessons)
	for _, l := range lessons {
		wd := l.Date.Weekday()
		assert.True(t, wd == 2 || wd == 4, "support lessons are on Tuesday and Thursday")
		assert.Equal(t, "Mappa concettuale", l.SupportTopic)
	}

	minutes, err := s.ConfirmedMinutes(ctx, school.ForAssignment(as[0]), r)
	require.NoError(t, err)
	assert.Equal(t, 60*len(lessons), minutes)
}

func TestConfirmedLessons_OutsideSchedule(t *testing.T) {
	s := Demo()
	ctx := context.Background()
	as, err := s.Assignments(ctx, DemoTeacherMath, []school.SubjectKind{school.SubjectOrdinary})
	require.NoError(t, err)
	scope := school.ForAssignment(as[0])
	week := school.DateRange{From: timeutil.Date(2024, 9, 16), To: timeutil.Date(2024, 9, 21)}

	all, err := s.ConfirmedLessons(ctx, scope, week)
	require.NoError(t, err)
	require.NotEmpty(t, all)

	// the timetable stops on Wednesday: later lessons are not counted
	s.Schedules[0].To = timeutil.Date(2024, 9, 18)
	lessons, err := s.ConfirmedLessons(ctx, scope, week)
	require.NoError(t, err)
	require.NotEmpty(t, lessons)
	assert.Less(t, len(lessons), len(all))
	for _, l := range lessons {
		assert.False(t, l.Date.After(timeutil.Date(2024, 9, 18)), l.Date)
	}
	minutes, err := s.ConfirmedMinutes(ctx, scope, week)
	require.NoError(t, err)
	assert.Equal(t, 60*len(lessons), minutes)

	// the timetable of another site does not apply
	s.Schedules[0].SiteID = 2
	minutes, err = s.ConfirmedMinutes(ctx, scope, week)
	require.NoError(t, err)
	assert.Zero(t, minutes)
}

func TestConfirmedLessons_ClassDayRejected(t *testing.T) {
	s := Demo()
	c, _ := s.ClassByID(context.Background(), DemoClass3A)
	_, err := s.ConfirmedLessons(context.Background(), school.ForClassDay(*c, timeutil.Date(2024, 9, 16)),
		school.DateRange{From: timeutil.Date(2024, 9, 16), To: timeutil.Date(2024, 9, 16)})
	assert.True(t, shared.IsValidation(err))
}

func TestLookups_NotFound(t *testing.T) {
	s := Demo()
	_, err := s.TeacherByID(context.Background(), 999)
	assert.True(t, shared.IsNotFound(err))
	_, err = s.ClassByID(context.Background(), 999)
	assert.ErrorIs(t, err, shared.ErrClassNotFound)
}

func TestDiary_NotesAndJustifications(t *testing.T) {
	s := Demo()
	ctx := context.Background()
	c, _ := s.ClassByID(ctx, DemoClass3A)
	day := timeutil.Date(2024, 10, 15)

	notes, err := s.Notes(ctx, school.ForClassDay(*c, day))
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, []string{"Esposito Luca", "Ricci Davide"}, notes[0].Students)
	assert.Equal(t, "Giovanni Bianchi", notes[0].ProvisionTeacher)
	assert.True(t, notes[1].Cancelled)

	ids, _ := s.StudentsInClass(ctx, timeutil.Date(2024, 10, 11), *c)
	just, err := s.Justifications(ctx, timeutil.Date(2024, 10, 11), ids)
	require.NoError(t, err)
	require.Len(t, just, 2)
	assert.Equal(t, int64(101), just[0].Student.ID)
	assert.Len(t, just[0].Absences, 1)
	assert.Len(t, just[1].Lates, 1)
}

func TestClassIDsAndTeacherIDs(t *testing.T) {
	s := Demo()
	ctx := context.Background()

	classes, err := s.ClassIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{DemoClass3A, DemoClass4B}, classes)

	teachers, err := s.TeacherIDs(ctx, []school.SubjectKind{school.SubjectSupport})
	require.NoError(t, err)
	assert.Equal(t, []int64{DemoTeacherSupport}, teachers)
}
