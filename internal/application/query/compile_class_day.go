package query

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/classbook/register-archive/internal/domain/period"
	"github.com/classbook/register-archive/internal/domain/school"
	"github.com/classbook/register-archive/internal/domain/shared"
	"github.com/classbook/register-archive/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPILE CLASS DAY QUERY
// One page of the class register: timetable with the lessons held, students
// out of class, attendance and justifications, notes and annotations.
// ══════════════════════════════════════════════════════════════════════════════

// CompileClassDayQuery selects a whole class and a day.
type CompileClassDayQuery struct {
	Class school.Class
	Day   time.Time
}

// Validate checks the query parameters.
func (q CompileClassDayQuery) Validate() error {
	if q.Class.ID == 0 {
		return errors.New("class is required")
	}
	if q.Day.IsZero() {
		return errors.New("day is required")
	}
	return nil
}

// SlotRow is a timetable slot with the lessons held in it, one per group.
type SlotRow struct {
	Slot    school.ScheduleSlot
	Lessons []school.SlotLesson
}

// ClassDay is the compiled content of one diary page.
type ClassDay struct {
	Class          school.Class
	Date           time.Time
	Slots          []SlotRow
	OutOfClass     []school.OutOfClass
	Attendance     []school.DailyAttendance
	Justifications []school.Justification
	Notes          []school.DisciplinaryNote
	Annotations    []school.Annotation
}

// CompileClassDayHandler runs CompileClassDayQuery.
type CompileClassDayHandler struct {
	logger *slog.Logger
}

// NewCompileClassDayHandler creates the handler.
func NewCompileClassDayHandler(logger *slog.Logger) *CompileClassDayHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompileClassDayHandler{logger: logger}
}

// SchoolDays lists the days of the term the class register has a page for:
// every day except Sundays and the holidays of the class site.
func (h *CompileClassDayHandler) SchoolDays(ctx context.Context, store school.Store, class school.Class, term period.Term) ([]time.Time, error) {
	holidays, err := store.Holidays(ctx, class.Site.ID, school.DateRange{From: term.Start, To: term.End})
	if err != nil {
		return nil, dayError("holidays", err)
	}
	closed := make(map[string]struct{}, len(holidays))
	for _, d := range holidays {
		closed[timeutil.DayKey(d)] = struct{}{}
	}

	var days []time.Time
	err = timeutil.EachDay(term.Start, term.End, func(day time.Time) error {
		if timeutil.IsSunday(day) {
			return nil
		}
		if _, ok := closed[timeutil.DayKey(day)]; ok {
			return nil
		}
		days = append(days, day)
		return nil
	})
	return days, err
}

// Handle compiles one day.
func (h *CompileClassDayHandler) Handle(ctx context.Context, store school.Store, q CompileClassDayQuery) (*ClassDay, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("register", "CompileClassDay", shared.ErrValidation, err.Error(), nil)
	}

	scope := school.ForClassDay(q.Class, q.Day)
	out := &ClassDay{Class: q.Class, Date: scope.Day}

	slots, err := store.Schedule(ctx, scope.Day, q.Class.Site.ID)
	if err != nil {
		return nil, dayError("schedule", err)
	}
	for _, slot := range slots {
		lessons, err := store.SlotLessons(ctx, scope, slot.Hour)
		if err != nil {
			return nil, dayError("slot lessons", err)
		}
		out.Slots = append(out.Slots, SlotRow{Slot: slot, Lessons: lessons})
	}

	members, err := store.StudentsInClass(ctx, scope.Day, q.Class)
	if err != nil {
		return nil, dayError("class members", err)
	}
	if len(members) > 0 {
		if out.OutOfClass, err = store.OutOfClass(ctx, scope.Day, members); err != nil {
			return nil, dayError("out of class", err)
		}
		if out.Attendance, err = store.DailyAttendance(ctx, scope.Day, members); err != nil {
			return nil, dayError("daily attendance", err)
		}
		if out.Justifications, err = store.Justifications(ctx, scope.Day, members); err != nil {
			return nil, dayError("justifications", err)
		}
	}

	if out.Notes, err = store.Notes(ctx, scope); err != nil {
		return nil, dayError("notes", err)
	}
	if out.Annotations, err = store.Annotations(ctx, scope); err != nil {
		return nil, dayError("annotations", err)
	}

	h.logger.Debug("class day compiled", "scope", scope.Key(), "slots", len(out.Slots), "members", len(members))
	return out, nil
}

func dayError(what string, err error) error {
	return shared.WrapError("register", "CompileClassDay", shared.ErrStorage, "cannot read "+what, err)
}
