package school

import (
	"context"
	"fmt"
	"time"

	"github.com/classbook/register-archive/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCOPE
// ══════════════════════════════════════════════════════════════════════════════

// ScopeKind tags which key shape a Scope carries.
type ScopeKind uint8

const (
	// ScopeAssignment keys by teacher + class + subject.
	ScopeAssignment ScopeKind = iota + 1
	// ScopeSupport keys by teacher + class + student.
	ScopeSupport
	// ScopeClassDay keys by class + date.
	ScopeClassDay
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeAssignment:
		return "assignment"
	case ScopeSupport:
		return "support"
	case ScopeClassDay:
		return "class-day"
	default:
		return "unknown"
	}
}

// Scope selects the records one register section is compiled from.
type Scope struct {
	Kind       ScopeKind
	Assignment Assignment
	Class      Class
	Day        time.Time
}

// ForAssignment returns the scope of an assignment, support or ordinary.
func ForAssignment(a Assignment) Scope {
	kind := ScopeAssignment
	if a.IsSupport() {
		kind = ScopeSupport
	}
	return Scope{Kind: kind, Assignment: a, Class: a.Class}
}

// ForClassDay returns the scope of one diary day of a class.
func ForClassDay(c Class, day time.Time) Scope {
	return Scope{Kind: ScopeClassDay, Class: c, Day: timeutil.StartOfDay(day)}
}

// Key returns a stable identifier, used for logging and cache keys.
func (s Scope) Key() string {
	switch s.Kind {
	case ScopeAssignment:
		return fmt.Sprintf("assignment:%d", s.Assignment.ID)
	case ScopeSupport:
		return fmt.Sprintf("support:%d:%d", s.Assignment.ID, s.Assignment.Student.ID)
	case ScopeClassDay:
		return fmt.Sprintf("class:%d:%s", s.Class.ID, timeutil.DayKey(s.Day))
	default:
		return "unknown"
	}
}

// DateRange is an inclusive range of days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Day returns a single-day range.
func Day(d time.Time) DateRange {
	d = timeutil.StartOfDay(d)
	return DateRange{From: d, To: d}
}

// ══════════════════════════════════════════════════════════════════════════════
// READ CONTRACTS
// ══════════════════════════════════════════════════════════════════════════════

// AssignmentRepository reads teachers, classes and their assignments.
type AssignmentRepository interface {
	// TeacherByID returns the teacher or an error matching shared.ErrNotFound.
	TeacherByID(ctx context.Context, id int64) (*Teacher, error)

	// ClassByID returns the class or an error matching shared.ErrNotFound.
	ClassByID(ctx context.Context, id int64) (*Class, error)

	// Assignments lists a teacher's assignments for the given subject kinds,
	// ordered by class (year, section, group) then subject order, or by
	// student name for support assignments.
	Assignments(ctx context.Context, teacherID int64, kinds []SubjectKind) ([]Assignment, error)

	// ClassGroups returns the groups a whole class is split into, if any.
	ClassGroups(ctx context.Context, class Class) ([]Class, error)

	// TeacherIDs lists teachers holding at least one assignment of the given kinds.
	TeacherIDs(ctx context.Context, kinds []SubjectKind) ([]int64, error)

	// ClassIDs lists whole classes (no groups) ordered by year and section.
	ClassIDs(ctx context.Context) ([]int64, error)
}

// LessonRepository reads confirmed lessons and the records attached to them.
type LessonRepository interface {
	// ConfirmedMinutes sums the duration of the lessons confirmed for scope.
	ConfirmedMinutes(ctx context.Context, scope Scope, r DateRange) (int, error)

	// ConfirmedLessons lists the confirmed lessons ordered by (date, hour).
	ConfirmedLessons(ctx context.Context, scope Scope, r DateRange) ([]Lesson, error)

	// AbsencesForLesson lists per-student absence hours; studentID 0 means all students.
	AbsencesForLesson(ctx context.Context, lessonID, studentID int64) ([]Absence, error)

	// GradesForLesson lists the grades a teacher gave for a subject in one lesson.
	GradesForLesson(ctx context.Context, lessonID, teacherID, subjectID int64) ([]Grade, error)

	// GradesForAssignment lists every grade of the assignment in the range,
	// including those given in lessons of another subject, ordered by date.
	GradesForAssignment(ctx context.Context, a Assignment, r DateRange) ([]Grade, error)

	// GradesInOtherLessons counts grades of the assignment given in lessons of another subject.
	GradesInOtherLessons(ctx context.Context, a Assignment, r DateRange) (int, error)
}

// StudentRepository reads student records and grade proposals.
type StudentRepository interface {
	// StudentsOrdered returns the students ordered by last name, first name, birth date.
	StudentsOrdered(ctx context.Context, ids []int64) ([]Student, error)

	// ProposedGrades returns the term proposals; teacherID is only
	// matched when non-zero (civics carries one proposal per teacher).
	ProposedGrades(ctx context.Context, ids []int64, classID, subjectID, teacherID int64, scrutiny string) ([]ProposedGrade, error)

	// DeferredProposals returns suspended-judgement proposals (periods G and R).
	DeferredProposals(ctx context.Context, teacherID, classID, subjectID int64) ([]ProposedGrade, error)
}

// MembershipResolver answers which students belonged to a class on a date.
type MembershipResolver interface {
	StudentsInClass(ctx context.Context, day time.Time, class Class) ([]int64, error)
}

// ObservationRepository reads teacher remarks tied to an assignment.
type ObservationRepository interface {
	// StudentObservations are ordered by date then student name.
	StudentObservations(ctx context.Context, assignmentID int64, r DateRange) ([]Observation, error)

	// ClassObservations are the teacher's personal remarks, ordered by date.
	ClassObservations(ctx context.Context, assignmentID int64, r DateRange) ([]Observation, error)
}

// DiaryRepository reads the class diary for a single day.
type DiaryRepository interface {
	Holidays(ctx context.Context, siteID int64, r DateRange) ([]time.Time, error)
	Schedule(ctx context.Context, day time.Time, siteID int64) ([]ScheduleSlot, error)
	SlotLessons(ctx context.Context, scope Scope, hour int) ([]SlotLesson, error)
	OutOfClass(ctx context.Context, day time.Time, studentIDs []int64) ([]OutOfClass, error)
	DailyAttendance(ctx context.Context, day time.Time, studentIDs []int64) ([]DailyAttendance, error)
	Justifications(ctx context.Context, day time.Time, studentIDs []int64) ([]Justification, error)
	Notes(ctx context.Context, scope Scope) ([]DisciplinaryNote, error)
	Annotations(ctx context.Context, scope Scope) ([]Annotation, error)
}

// Store bundles every read contract a register generation needs.
type Store interface {
	AssignmentRepository
	LessonRepository
	StudentRepository
	MembershipResolver
	ObservationRepository
	DiaryRepository
}

// Source hands out a Store bound to one consistent read of the school data.
type Source interface {
	Snapshot(ctx context.Context, fn func(Store) error) error
}
