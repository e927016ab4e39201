package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbook/register-archive/internal/domain/school"
	"github.com/classbook/register-archive/internal/infrastructure/persistence/memory"
	"github.com/classbook/register-archive/pkg/timeutil"
)

func demoClass(t *testing.T, s *memory.Store, id int64) school.Class {
	t.Helper()
	c, err := s.ClassByID(context.Background(), id)
	require.NoError(t, err)
	return *c
}

func TestSchoolDays_SkipsSundaysAndHolidays(t *testing.T) {
	s := memory.Demo()
	h := NewCompileClassDayHandler(nil)
	days, err := h.SchoolDays(context.Background(), s, demoClass(t, s, memory.DemoClass3A), demoTerms(t)[0])
	require.NoError(t, err)
	require.NotEmpty(t, days)

	assert.True(t, timeutil.IsSameDay(timeutil.Date(2024, 9, 11), days[0]))
	keys := map[string]bool{}
	for _, d := range days {
		assert.False(t, timeutil.IsSunday(d))
		keys[timeutil.DayKey(d)] = true
	}
	assert.True(t, keys["2024-10-31"])
	assert.False(t, keys["2024-11-01"])
	assert.False(t, keys["2024-12-25"])
	assert.False(t, keys["2025-01-06"])
	assert.True(t, keys["2025-01-07"])
}

func TestCompileClassDay_Diary(t *testing.T) {
	s := memory.Demo()
	h := NewCompileClassDayHandler(nil)
	class := demoClass(t, s, memory.DemoClass3A)

	day, err := h.Handle(context.Background(), s, CompileClassDayQuery{Class: class, Day: timeutil.Date(2024, 10, 15)})
	require.NoError(t, err)

	require.Len(t, day.Slots, 5)
	require.Len(t, day.Slots[0].Lessons, 1)
	assert.Equal(t, "Lingua e letteratura italiana", day.Slots[0].Lessons[0].SubjectName)
	assert.Empty(t, day.Slots[4].Lessons, "3A has four lessons on Tuesday")

	require.Len(t, day.Notes, 2)
	assert.True(t, day.Notes[1].Cancelled)
	require.Len(t, day.Annotations, 1)
}

func TestCompileClassDay_Attendance(t *testing.T) {
	s := memory.Demo()
	h := NewCompileClassDayHandler(nil)
	class := demoClass(t, s, memory.DemoClass3A)

	day, err := h.Handle(context.Background(), s, CompileClassDayQuery{Class: class, Day: timeutil.Date(2024, 10, 10)})
	require.NoError(t, err)

	require.Len(t, day.Attendance, 3)
	assert.Equal(t, int64(101), day.Attendance[0].Student.ID)
	assert.True(t, day.Attendance[0].Absent)
	assert.Equal(t, int64(106), day.Attendance[1].Student.ID)
	require.NotNil(t, day.Attendance[1].EarlyExit)
	assert.Equal(t, int64(105), day.Attendance[2].Student.ID)
	require.NotNil(t, day.Attendance[2].Late)

	require.Len(t, day.Justifications, 1)
	assert.Equal(t, int64(101), day.Justifications[0].Student.ID)
	require.Len(t, day.Justifications[0].Absences, 1)
	assert.True(t, timeutil.IsSameDay(timeutil.Date(2024, 10, 9), day.Justifications[0].Absences[0]))
}

func TestCompileClassDay_Groups(t *testing.T) {
	s := memory.Demo()
	h := NewCompileClassDayHandler(nil)
	class := demoClass(t, s, memory.DemoClass4B)

	// Tuesday: the second hour is Latin for one group and English for the other
	day, err := h.Handle(context.Background(), s, CompileClassDayQuery{Class: class, Day: timeutil.Date(2025, 2, 18)})
	require.NoError(t, err)
	require.Len(t, day.Slots[1].Lessons, 2)
	assert.Equal(t, "C:ING", day.Slots[1].Lessons[0].GroupKey())
	assert.Equal(t, "C:LAT", day.Slots[1].Lessons[1].GroupKey())

	require.Len(t, day.Notes, 1)
	assert.Equal(t, "LAT", day.Notes[0].Group)
	require.Len(t, day.Attendance, 1)
	assert.Equal(t, int64(202), day.Attendance[0].Student.ID)
}
