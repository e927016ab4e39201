package register

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbook/register-archive/internal/domain/school"
	"github.com/classbook/register-archive/internal/domain/shared"
	"github.com/classbook/register-archive/pkg/timeutil"
)

func TestGridBuilder_FirstSeenDayOrder(t *testing.T) {
	b := NewGridBuilder(DefaultScoreMarkers())
	d1 := timeutil.Date(2024, 10, 14)
	d2 := timeutil.Date(2024, 10, 16)

	i, err := b.OpenDay(d1, []int64{2, 1})
	require.NoError(t, err)
	require.NoError(t, b.AddMinutes(i, 60))

	// second lesson on the same day reuses the column
	j, err := b.OpenDay(d1, []int64{3})
	require.NoError(t, err)
	assert.Equal(t, i, j)
	require.NoError(t, b.AddMinutes(j, 60))

	k, err := b.OpenDay(d2, []int64{1, 3})
	require.NoError(t, err)
	require.NoError(t, b.AddMinutes(k, 30))

	g := b.Build()
	require.Equal(t, 2, g.DayCount())
	assert.Equal(t, 120, g.Days()[0].Minutes)
	assert.Equal(t, 30, g.Days()[1].Minutes)
	assert.Equal(t, 150, g.TotalMinutes())
	assert.Equal(t, 2.5, g.TotalHours())
	assert.Equal(t, []int64{2, 1, 3}, g.StudentIDs())

	// membership of an already open column is fixed on first sight
	assert.False(t, g.Cell(0, 3).Member)
	assert.True(t, g.Cell(1, 3).Member)
}

func TestGridBuilder_RejectsOutOfOrderDates(t *testing.T) {
	b := NewGridBuilder(DefaultScoreMarkers())
	_, err := b.OpenDay(timeutil.Date(2024, 10, 16), nil)
	require.NoError(t, err)

	_, err = b.OpenDay(timeutil.Date(2024, 10, 14), nil)
	assert.ErrorIs(t, err, shared.ErrDataIntegrity)
}

func TestGridBuilder_RejectsNonPositiveDuration(t *testing.T) {
	b := NewGridBuilder(DefaultScoreMarkers())
	i, _ := b.OpenDay(timeutil.Date(2024, 10, 16), nil)
	assert.ErrorIs(t, b.AddMinutes(i, 0), shared.ErrInvalidDuration)
}

func TestGridBuilder_AbsencesAndGrades(t *testing.T) {
	b := NewGridBuilder(DefaultScoreMarkers())
	d1, _ := b.OpenDay(timeutil.Date(2024, 10, 14), []int64{1, 2})
	_ = b.AddMinutes(d1, 60)
	b.AddAbsence(d1, 1, 1)
	_ = b.AddMinutes(d1, 60)
	b.AddAbsence(d1, 1, 0.5)
	b.AddGrade(d1, school.Grade{StudentID: 2, Score: 6.25, Type: school.GradeOral})

	d2, _ := b.OpenDay(timeutil.Date(2024, 10, 15), []int64{1})
	_ = b.AddMinutes(d2, 60)
	b.AddAbsence(d2, 1, 3) // cannot exceed the hour taught
	b.AddAbsence(d2, 2, 1) // not enrolled that day

	g := b.Build()
	assert.Equal(t, "Aa", g.Cell(d1, 1).Marks())
	assert.Equal(t, "6+", g.Cell(d1, 2).Marks())
	assert.Equal(t, 1.0, g.Cell(d2, 1).AbsenceHours)

	assert.Equal(t, 2.5, g.AbsenceTotal(1))
	assert.Equal(t, 0.0, g.AbsenceTotal(2))
	assert.False(t, g.Cell(d2, 2).Member)
}

func TestCell_MarksCombinesAbsenceAndGrades(t *testing.T) {
	c := Cell{Member: true, AbsenceHours: 1, Grades: []CellGrade{{Text: "7-"}, {Text: ""}, {Text: "8"}}}
	assert.Equal(t, "A 7- 8", c.Marks())
}

func TestGridBuilder_AddStudentIsNotMember(t *testing.T) {
	b := NewGridBuilder(DefaultScoreMarkers())
	b.AddStudent(9)

	i, err := b.OpenDay(timeutil.Date(2024, 10, 14), []int64{1})
	require.NoError(t, err)
	require.NoError(t, b.AddMinutes(i, 60))
	b.AddAbsence(i, 9, 1)

	g := b.Build()
	assert.Equal(t, []int64{9, 1}, g.StudentIDs())
	assert.False(t, g.Cell(i, 9).Member)
	assert.Zero(t, g.AbsenceTotal(9))
}
