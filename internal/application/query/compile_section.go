// Package query contains the read side of register generation: it gathers
// the records of one assignment or class day and aggregates them into the
// structures the presenter turns into pages.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/classbook/register-archive/internal/domain/period"
	"github.com/classbook/register-archive/internal/domain/register"
	"github.com/classbook/register-archive/internal/domain/school"
	"github.com/classbook/register-archive/internal/domain/shared"
	"github.com/classbook/register-archive/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPILE SECTION QUERY
// Compiles everything one assignment shows for one term: the lessons grid,
// topics, grade detail, observations and the suspended-judgement proposals.
// ══════════════════════════════════════════════════════════════════════════════

// CompileSectionQuery selects an assignment and a term. When Calendar is set,
// every lesson and grade date is classified with it and must land in Term.
type CompileSectionQuery struct {
	Assignment school.Assignment
	Term       period.Term
	Calendar   *period.Calendar
}

// Validate checks the query parameters.
func (q CompileSectionQuery) Validate() error {
	if q.Assignment.ID == 0 {
		return errors.New("assignment is required")
	}
	if q.Term.Start.IsZero() || q.Term.End.Before(q.Term.Start) {
		return errors.New("term range is invalid")
	}
	if q.Assignment.Subject.Kind == school.SubjectSupport && q.Assignment.Student == nil {
		return errors.New("support assignment without a student")
	}
	return nil
}

// checkDate fails the section for a record dated outside the compiled term.
func (q CompileSectionQuery) checkDate(date time.Time) error {
	if q.Calendar == nil {
		if q.Term.Contains(date) {
			return nil
		}
	} else {
		t, err := q.Calendar.Classify(date)
		if err != nil {
			return err
		}
		if t.Ordinal == q.Term.Ordinal {
			return nil
		}
	}
	return shared.WrapError("register", "CompileSection", shared.ErrDataIntegrity,
		fmt.Sprintf("record dated %s outside term %q", timeutil.DayKey(date), q.Term.Name), nil)
}

// StudentRow is one line of the lessons grid.
type StudentRow struct {
	Student   school.Student
	Withdrawn bool
	Absences  float64
	// Proposal is the proposed grade label; empty when none was entered.
	Proposal string
}

// LessonsSection is the paginated attendance grid.
type LessonsSection struct {
	Grid       *register.Grid
	Rows       []StudentRow
	Plan       register.Plan
	TotalHours float64
}

// AnyWithdrawn reports whether the withdrawn legend is needed.
func (l *LessonsSection) AnyWithdrawn() bool {
	for _, r := range l.Rows {
		if r.Withdrawn {
			return true
		}
	}
	return false
}

// GradeDetail holds the grades of one student, newest first.
type GradeDetail struct {
	Student school.Student
	Grades  []school.Grade
}

// DeferredRow is a suspended-judgement or resit proposal.
type DeferredRow struct {
	Student  school.Student
	Period   string
	Debt     string
	Proposal string
}

// Section is the compiled content of one assignment in one term.
//
// On support sections Topics rows are keyed by subject short name; the
// Topics column holds the class text and Activities the support text.
type Section struct {
	Assignment          school.Assignment
	Term                period.Term
	Lessons             *LessonsSection
	Topics              []register.TopicRow
	Grades              []GradeDetail
	StudentObservations []school.Observation
	ClassObservations   []school.Observation
	Deferred            []DeferredRow
}

// Empty reports whether the section has nothing to print.
func (s *Section) Empty() bool {
	return s.Lessons == nil && len(s.Topics) == 0 && len(s.Grades) == 0 &&
		len(s.StudentObservations) == 0 && len(s.ClassObservations) == 0 && len(s.Deferred) == 0
}

// CompileSectionHandler runs CompileSectionQuery.
type CompileSectionHandler struct {
	scales  register.Scales
	markers register.ScoreMarkers
	logger  *slog.Logger
}

// NewCompileSectionHandler creates the handler.
func NewCompileSectionHandler(scales register.Scales, markers register.ScoreMarkers, logger *slog.Logger) *CompileSectionHandler {
	if scales == nil {
		scales = register.DefaultScales()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CompileSectionHandler{scales: scales, markers: markers, logger: logger}
}

// Handle compiles the section from store.
func (h *CompileSectionHandler) Handle(ctx context.Context, store school.Store, q CompileSectionQuery) (*Section, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("register", "CompileSection", shared.ErrValidation, err.Error(), nil)
	}

	a := q.Assignment
	scope := school.ForAssignment(a)
	r := school.DateRange{From: q.Term.Start, To: q.Term.End}
	support := scope.Kind == school.ScopeSupport
	out := &Section{Assignment: a, Term: q.Term}

	minutes, err := store.ConfirmedMinutes(ctx, scope, r)
	if err != nil {
		return nil, readError("confirmed minutes", err)
	}
	elsewhere := 0
	if !support {
		if elsewhere, err = store.GradesInOtherLessons(ctx, a, r); err != nil {
			return nil, readError("grades in other lessons", err)
		}
	}

	if minutes > 0 || elsewhere > 0 {
		lessons, err := store.ConfirmedLessons(ctx, scope, r)
		if err != nil {
			return nil, readError("confirmed lessons", err)
		}
		grid, err := h.buildGrid(ctx, store, q, lessons)
		if err != nil {
			return nil, err
		}
		students, err := store.StudentsOrdered(ctx, grid.StudentIDs())
		if err != nil {
			return nil, readError("students", err)
		}

		if minutes > 0 {
			rows, err := h.studentRows(ctx, store, a, q.Term, grid, students)
			if err != nil {
				return nil, err
			}
			out.Lessons = &LessonsSection{
				Grid:       grid,
				Rows:       rows,
				Plan:       register.PlanFor(scope.Kind, grid.DayCount()),
				TotalHours: register.MinutesToHours(minutes),
			}
			out.Topics = register.Deduplicate(topicEntries(lessons, support))
		}

		if !support {
			if out.Grades, err = h.gradeDetails(ctx, store, q, students); err != nil {
				return nil, err
			}
		}
	}

	if out.StudentObservations, err = store.StudentObservations(ctx, a.ID, r); err != nil {
		return nil, readError("student observations", err)
	}
	if out.ClassObservations, err = store.ClassObservations(ctx, a.ID, r); err != nil {
		return nil, readError("class observations", err)
	}

	if q.Term.IsFinal() && !support {
		if out.Deferred, err = h.deferred(ctx, store, a); err != nil {
			return nil, err
		}
	}

	attrs := []any{"scope", scope.Key(), "term", q.Term.Name, "minutes", minutes}
	if out.Lessons != nil {
		attrs = append(attrs, "days", out.Lessons.Grid.DayCount(), "students", len(out.Lessons.Rows))
	}
	h.logger.Debug("section compiled", attrs...)
	return out, nil
}

// buildGrid walks the lessons in (date, hour) order, opening a day column on
// every new date with the class membership of that date. A support grid
// always lists its student, member of the class or not.
func (h *CompileSectionHandler) buildGrid(ctx context.Context, store school.Store, q CompileSectionQuery, lessons []school.Lesson) (*register.Grid, error) {
	a := q.Assignment
	b := register.NewGridBuilder(h.markers)

	var only int64
	if a.IsSupport() {
		only = a.Student.ID
		b.AddStudent(only)
	}

	for _, l := range lessons {
		day, ok := b.DayIndex(l.Date)
		if !ok {
			if err := q.checkDate(l.Date); err != nil {
				return nil, err
			}
			members, err := store.StudentsInClass(ctx, l.Date, a.Class)
			if err != nil {
				return nil, readError("class members on "+timeutil.DayKey(l.Date), err)
			}
			if only != 0 {
				members = keepOnly(members, only)
			}
			if day, err = b.OpenDay(l.Date, members); err != nil {
				return nil, err
			}
		}
		if err := b.AddMinutes(day, l.DurationMinutes); err != nil {
			return nil, err
		}

		absences, err := store.AbsencesForLesson(ctx, l.ID, only)
		if err != nil {
			return nil, readError("absences", err)
		}
		for _, abs := range absences {
			b.AddAbsence(day, abs.StudentID, abs.Hours)
		}

		if only != 0 {
			continue
		}
		grades, err := store.GradesForLesson(ctx, l.ID, a.Teacher.ID, a.Subject.ID)
		if err != nil {
			return nil, readError("lesson grades", err)
		}
		for _, g := range grades {
			b.AddGrade(day, g)
		}
	}
	return b.Build(), nil
}

func keepOnly(ids []int64, id int64) []int64 {
	for _, v := range ids {
		if v == id {
			return []int64{id}
		}
	}
	return nil
}

// studentRows applies the religion filter and attaches the term proposals.
func (h *CompileSectionHandler) studentRows(ctx context.Context, store school.Store, a school.Assignment, term period.Term, grid *register.Grid, students []school.Student) ([]StudentRow, error) {
	groups, err := store.ClassGroups(ctx, a.Class)
	if err != nil {
		return nil, readError("class groups", err)
	}
	groupIDs := make([]int64, 0, len(groups))
	for _, g := range groups {
		groupIDs = append(groupIDs, g.ID)
	}

	proposals := map[int64]string{}
	if !a.IsSupport() && len(students) > 0 {
		var teacherID int64
		if a.Subject.Kind == school.SubjectCivics {
			teacherID = a.Teacher.ID
		}
		ids := make([]int64, len(students))
		for i, s := range students {
			ids[i] = s.ID
		}
		found, err := store.ProposedGrades(ctx, ids, a.Class.ID, a.Subject.ID, teacherID, term.Scrutiny)
		if err != nil {
			return nil, readError("proposed grades", err)
		}
		scale := h.scales.For(a.Subject.Kind)
		for _, p := range found {
			proposals[p.StudentID] = scale.Label(p.Value)
		}
	}

	rows := make([]StudentRow, 0, len(students))
	for _, s := range students {
		if !a.Admits(s) {
			continue
		}
		rows = append(rows, StudentRow{
			Student:   s,
			Withdrawn: a.IsWithdrawn(s, groupIDs),
			Absences:  grid.AbsenceTotal(s.ID),
			Proposal:  proposals[s.ID],
		})
	}
	return rows, nil
}

func topicEntries(lessons []school.Lesson, support bool) []register.TopicEntry {
	entries := make([]register.TopicEntry, 0, len(lessons))
	for _, l := range lessons {
		if !support {
			entries = append(entries, register.NewTopicEntry(l.Date, "", l.Topic, l.Activity))
			continue
		}
		entries = append(entries, register.TopicEntry{
			Date:     timeutil.StartOfDay(l.Date),
			Key:      l.SubjectShortName,
			Topic:    register.JoinTopic(register.CleanText(l.Topic), register.CleanText(l.Activity)),
			Activity: register.JoinTopic(register.CleanText(l.SupportTopic), register.CleanText(l.SupportActivity)),
		})
	}
	return entries
}

// gradeDetails groups the assignment's grades by student. Students follow
// the grid order; without a grid the graded students are listed by name.
func (h *CompileSectionHandler) gradeDetails(ctx context.Context, store school.Store, q CompileSectionQuery, students []school.Student) ([]GradeDetail, error) {
	grades, err := store.GradesForAssignment(ctx, q.Assignment, school.DateRange{From: q.Term.Start, To: q.Term.End})
	if err != nil {
		return nil, readError("assignment grades", err)
	}
	for _, g := range grades {
		if err := q.checkDate(g.Date); err != nil {
			return nil, err
		}
	}
	if len(grades) == 0 {
		return nil, nil
	}

	byStudent := make(map[int64][]school.Grade)
	var ids []int64
	for _, g := range grades {
		if _, ok := byStudent[g.StudentID]; !ok {
			ids = append(ids, g.StudentID)
		}
		byStudent[g.StudentID] = append(byStudent[g.StudentID], g)
	}
	if len(students) == 0 {
		if students, err = store.StudentsOrdered(ctx, ids); err != nil {
			return nil, readError("graded students", err)
		}
	}

	var out []GradeDetail
	for _, s := range students {
		list := byStudent[s.ID]
		if len(list) == 0 {
			continue
		}
		sort.SliceStable(list, func(i, j int) bool {
			if !list[i].Date.Equal(list[j].Date) {
				return list[i].Date.After(list[j].Date)
			}
			return list[i].SubjectName < list[j].SubjectName
		})
		out = append(out, GradeDetail{Student: s, Grades: list})
	}
	return out, nil
}

func (h *CompileSectionHandler) deferred(ctx context.Context, store school.Store, a school.Assignment) ([]DeferredRow, error) {
	found, err := store.DeferredProposals(ctx, a.Teacher.ID, a.Class.ID, a.Subject.ID)
	if err != nil {
		return nil, readError("deferred proposals", err)
	}
	if len(found) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(found))
	for i, p := range found {
		ids[i] = p.StudentID
	}
	students, err := store.StudentsOrdered(ctx, ids)
	if err != nil {
		return nil, readError("deferred students", err)
	}
	byID := make(map[int64]school.Student, len(students))
	for _, s := range students {
		byID[s.ID] = s
	}

	scale := h.scales.For(a.Subject.Kind)
	out := make([]DeferredRow, 0, len(found))
	for _, p := range found {
		s, ok := byID[p.StudentID]
		if !ok {
			return nil, shared.WrapError("register", "CompileSection", shared.ErrDataIntegrity,
				"proposal for an unknown student", nil)
		}
		out = append(out, DeferredRow{Student: s, Period: p.Period, Debt: p.Debt, Proposal: scale.Label(p.Value)})
	}
	return out, nil
}

func readError(what string, err error) error {
	return shared.WrapError("register", "CompileSection", shared.ErrStorage, "cannot read "+what, err)
}
