package register

import (
	"fmt"
	"time"

	"github.com/classbook/register-archive/internal/domain/school"
	"github.com/classbook/register-archive/internal/domain/shared"
	"github.com/classbook/register-archive/pkg/timeutil"
)

// DayColumn is one calendar date of the grid with the minutes taught that day.
type DayColumn struct {
	Date    time.Time
	Minutes int
}

// Hours returns the hours taught on the day.
func (d DayColumn) Hours() float64 {
	return MinutesToHours(d.Minutes)
}

// CellGrade is a grade shown in a grid cell, with its normalized score.
type CellGrade struct {
	Type  school.GradeType
	Score float64
	Text  string
}

// Cell is the (day, student) intersection.
type Cell struct {
	Member       bool
	AbsenceHours float64
	Grades       []CellGrade
}

// Marks returns the absence marks followed by the grade texts.
func (c Cell) Marks() string {
	s := AbsenceMarks(c.AbsenceHours)
	for _, g := range c.Grades {
		if g.Text == "" {
			continue
		}
		if s != "" {
			s += " "
		}
		s += g.Text
	}
	return s
}

type cellKey struct {
	day     int
	student int64
}

// GridBuilder accumulates lessons into an arena of day columns indexed by
// position. Dates must arrive in non-decreasing order.
type GridBuilder struct {
	markers  ScoreMarkers
	days     []DayColumn
	dayIndex map[string]int
	cells    map[cellKey]*Cell
	students []int64
	seen     map[int64]struct{}
	minutes  int
}

// NewGridBuilder creates an empty builder.
func NewGridBuilder(markers ScoreMarkers) *GridBuilder {
	return &GridBuilder{
		markers:  markers,
		dayIndex: make(map[string]int),
		cells:    make(map[cellKey]*Cell),
		seen:     make(map[int64]struct{}),
	}
}

// DayIndex returns the column position of the date.
func (b *GridBuilder) DayIndex(date time.Time) (int, bool) {
	i, ok := b.dayIndex[timeutil.DayKey(date)]
	return i, ok
}

// AddStudent lists a student in the grid without making them a member of any day.
func (b *GridBuilder) AddStudent(id int64) {
	if _, ok := b.seen[id]; ok {
		return
	}
	b.seen[id] = struct{}{}
	b.students = append(b.students, id)
}

// OpenDay appends a column for date and records the students enrolled on it.
// Opening a date earlier than the last open column is a data-integrity error.
func (b *GridBuilder) OpenDay(date time.Time, members []int64) (int, error) {
	key := timeutil.DayKey(date)
	if i, ok := b.dayIndex[key]; ok {
		return i, nil
	}
	day := timeutil.StartOfDay(date)
	if n := len(b.days); n > 0 && day.Before(b.days[n-1].Date) {
		return 0, shared.WrapError("register", "OpenDay", shared.ErrDataIntegrity,
			fmt.Sprintf("lesson on %s after %s", key, timeutil.DayKey(b.days[n-1].Date)), nil)
	}

	i := len(b.days)
	b.days = append(b.days, DayColumn{Date: day})
	b.dayIndex[key] = i
	for _, id := range members {
		b.cell(i, id).Member = true
		b.AddStudent(id)
	}
	return i, nil
}

// AddMinutes adds a lesson's duration to a day column.
func (b *GridBuilder) AddMinutes(day, minutes int) error {
	if minutes <= 0 {
		return shared.WrapError("register", "AddMinutes", shared.ErrDataIntegrity,
			fmt.Sprintf("duration %d on column %d", minutes, day), shared.ErrInvalidDuration)
	}
	b.days[day].Minutes += minutes
	b.minutes += minutes
	return nil
}

// AddAbsence adds absence hours to a cell, never exceeding the hours taught that day.
func (b *GridBuilder) AddAbsence(day int, studentID int64, hours float64) {
	if hours <= 0 {
		return
	}
	c := b.cell(day, studentID)
	c.AbsenceHours += hours
	if limit := b.days[day].Hours(); c.AbsenceHours > limit {
		c.AbsenceHours = limit
	}
}

// AddGrade appends a grade to a cell.
func (b *GridBuilder) AddGrade(day int, g school.Grade) {
	c := b.cell(day, g.StudentID)
	c.Grades = append(c.Grades, CellGrade{Type: g.Type, Score: g.Score, Text: b.markers.Format(g.Score)})
}

func (b *GridBuilder) cell(day int, studentID int64) *Cell {
	k := cellKey{day: day, student: studentID}
	c, ok := b.cells[k]
	if !ok {
		c = &Cell{}
		b.cells[k] = c
	}
	return c
}

// Build freezes the accumulated state into a Grid.
func (b *GridBuilder) Build() *Grid {
	g := &Grid{
		days:     append([]DayColumn(nil), b.days...),
		students: append([]int64(nil), b.students...),
		cells:    make(map[cellKey]Cell, len(b.cells)),
		totals:   make(map[int64]float64),
		minutes:  b.minutes,
	}
	for k, c := range b.cells {
		cp := *c
		cp.Grades = append([]CellGrade(nil), c.Grades...)
		g.cells[k] = cp
		if c.Member {
			g.totals[k.student] += c.AbsenceHours
		}
	}
	return g
}

// Grid is the immutable per-day, per-student matrix of one assignment and term.
type Grid struct {
	days     []DayColumn
	students []int64
	cells    map[cellKey]Cell
	totals   map[int64]float64
	minutes  int
}

// Days returns the day columns in date order.
func (g *Grid) Days() []DayColumn {
	return g.days
}

// DayCount returns the number of day columns.
func (g *Grid) DayCount() int {
	return len(g.days)
}

// StudentIDs returns, in first-seen order, every student enrolled on at least
// one day or added with AddStudent.
func (g *Grid) StudentIDs() []int64 {
	return g.students
}

// Cell returns the (day, student) cell; the zero Cell marks a non-member.
func (g *Grid) Cell(day int, studentID int64) Cell {
	return g.cells[cellKey{day: day, student: studentID}]
}

// AbsenceTotal returns the student's absence hours over the days they were enrolled.
func (g *Grid) AbsenceTotal(studentID int64) float64 {
	return g.totals[studentID]
}

// TotalMinutes returns the minutes of every lesson added to the grid.
func (g *Grid) TotalMinutes() int {
	return g.minutes
}

// TotalHours returns TotalMinutes in hours.
func (g *Grid) TotalHours() float64 {
	return MinutesToHours(g.minutes)
}
