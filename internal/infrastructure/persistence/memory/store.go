// Package memory is an in-process school.Store over plain slices.
// It backs the tests of the application layer and the demo command, and
// follows the same selection rules as the PostgreSQL reader.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/classbook/register-archive/internal/domain/school"
	"github.com/classbook/register-archive/internal/domain/shared"
	"github.com/classbook/register-archive/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORDS
// ══════════════════════════════════════════════════════════════════════════════

// SupportSignature confirms a lesson for a support teacher and student.
type SupportSignature struct {
	TeacherID int64
	StudentID int64
	Topic     string
	Activity  string
}

// LessonRecord is a lesson with its class, group, signatures and absences.
type LessonRecord struct {
	school.Lesson
	ClassID   int64
	GroupType string
	Group     string
	SubjectID int64
	Teachers  []int64
	Support   []SupportSignature
	Absences  []school.Absence
}

// GradeRecord is a grade attached to a lesson.
type GradeRecord struct {
	school.Grade
	LessonID  int64
	TeacherID int64
	SubjectID int64
}

// ProposalRecord is a grade proposal for one class and subject.
type ProposalRecord struct {
	school.ProposedGrade
	ClassID   int64
	SubjectID int64
	TeacherID int64
}

// ObservationRecord ties an observation to an assignment.
type ObservationRecord struct {
	AssignmentID int64
	StudentID    int64
	Date         time.Time
	Text         string
}

// ClassChange places a student in ClassID (0 = out of school) for [From, To].
type ClassChange struct {
	StudentID int64
	ClassID   int64
	From      time.Time
	To        time.Time
}

// Holiday closes a site, or every site when SiteID is 0.
type Holiday struct {
	Date   time.Time
	SiteID int64
}

// ScheduleRecord is the timetable of a site, valid for [From, To].
// Days maps a weekday to its hour slots; a weekday without slots has no lessons.
type ScheduleRecord struct {
	SiteID int64
	From   time.Time
	To     time.Time
	Days   map[time.Weekday][]school.ScheduleSlot
}

// PresenceRecord is an out-of-class presence.
type PresenceRecord struct {
	StudentID   int64
	Date        time.Time
	From, To    *time.Time
	Kind        string
	Description string
}

// Attendance event kinds.
const (
	EventAbsence   = "A"
	EventLate      = "L"
	EventEarlyExit = "E"
)

// AttendanceEvent is a whole-day absence, late entry or early exit.
type AttendanceEvent struct {
	StudentID   int64
	Date        time.Time
	Kind        string
	At          *time.Time
	JustifiedOn *time.Time
}

// NoteRecord is a disciplinary note of a class (or group) on a date.
type NoteRecord struct {
	Date                time.Time
	ClassID             int64
	StudentIDs          []int64
	Text                string
	TeacherID           int64
	Provision           string
	ProvisionTeacherID  int64
	Cancelled           bool
}

// AnnotationRecord is a diary annotation of a class (or group) on a date.
type AnnotationRecord struct {
	Date       time.Time
	ClassID    int64
	Recipients string
	StudentIDs []int64
	Text       string
	TeacherID  int64
}

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store holds the records. Fill the exported fields, then treat it as read-only.
type Store struct {
	Teachers          []school.Teacher
	Classes           []school.Class
	Subjects          []school.Subject
	Students          []school.Student
	AssignmentRecords []AssignmentRecord
	ClassChanges      []ClassChange
	Lessons           []LessonRecord
	Grades            []GradeRecord
	Proposals         []ProposalRecord
	Observations      []ObservationRecord
	HolidayRecords    []Holiday
	Schedules         []ScheduleRecord
	Presences         []PresenceRecord
	Events            []AttendanceEvent
	NoteRecords       []NoteRecord
	AnnotationRecords []AnnotationRecord

	// Today separates current enrolment from class-change history.
	Today func() time.Time

	mu    sync.Mutex
	reads int
}

// AssignmentRecord binds teacher, subject, class and optional student by ID.
type AssignmentRecord struct {
	ID        int64
	TeacherID int64
	SubjectID int64
	ClassID   int64
	StudentID int64
	Type      school.AssignmentType
}

var (
	_ school.Store  = (*Store)(nil)
	_ school.Source = (*Store)(nil)
)

// Snapshot calls fn with the store itself.
func (s *Store) Snapshot(_ context.Context, fn func(school.Store) error) error {
	return fn(s)
}

// Reads returns how many membership lookups were served, for cache tests.
func (s *Store) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *Store) today() time.Time {
	if s.Today != nil {
		return timeutil.StartOfDay(s.Today())
	}
	return timeutil.Today()
}

func notFound(op string, kind error, id int64) error {
	return shared.WrapError("memory", op, shared.ErrNotFound, fmt.Sprintf("id %d", id), kind)
}

func inRange(d time.Time, r school.DateRange) bool {
	return !d.Before(timeutil.StartOfDay(r.From)) && !d.After(timeutil.StartOfDay(r.To))
}

// ─────────────────────────────────────────────────────────────────────────────
// Lookups
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) teacher(id int64) (school.Teacher, bool) {
	for _, t := range s.Teachers {
		if t.ID == id {
			return t, true
		}
	}
	return school.Teacher{}, false
}

func (s *Store) class(id int64) (school.Class, bool) {
	for _, c := range s.Classes {
		if c.ID == id {
			return c, true
		}
	}
	return school.Class{}, false
}

func (s *Store) subject(id int64) (school.Subject, bool) {
	for _, sub := range s.Subjects {
		if sub.ID == id {
			return sub, true
		}
	}
	return school.Subject{}, false
}

func (s *Store) student(id int64) (school.Student, bool) {
	for _, st := range s.Students {
		if st.ID == id {
			return st, true
		}
	}
	return school.Student{}, false
}

func (s *Store) lesson(id int64) (LessonRecord, bool) {
	for _, l := range s.Lessons {
		if l.ID == id {
			return l, true
		}
	}
	return LessonRecord{}, false
}

func studentLess(a, b school.Student) bool {
	if a.LastName != b.LastName {
		return a.LastName < b.LastName
	}
	if a.FirstName != b.FirstName {
		return a.FirstName < b.FirstName
	}
	return a.BirthDate.Before(b.BirthDate)
}

func (s *Store) sortIDs(ids []int64) []int64 {
	students := make([]school.Student, 0, len(ids))
	for _, id := range ids {
		if st, ok := s.student(id); ok {
			students = append(students, st)
		}
	}
	sort.SliceStable(students, func(i, j int) bool { return studentLess(students[i], students[j]) })
	out := make([]int64, len(students))
	for i, st := range students {
		out[i] = st.ID
	}
	return out
}

func (s *Store) teacherName(id int64) string {
	if t, ok := s.teacher(id); ok {
		return t.FullName()
	}
	return ""
}

func (s *Store) studentNames(ids []int64) []string {
	names := make([]string, 0, len(ids))
	for _, id := range s.sortIDs(ids) {
		st, _ := s.student(id)
		names = append(names, st.ShortLabel())
	}
	return names
}

// ══════════════════════════════════════════════════════════════════════════════
// ASSIGNMENTS
// ══════════════════════════════════════════════════════════════════════════════

// TeacherByID returns the teacher.
func (s *Store) TeacherByID(_ context.Context, id int64) (*school.Teacher, error) {
	t, ok := s.teacher(id)
	if !ok {
		return nil, notFound("TeacherByID", shared.ErrTeacherNotFound, id)
	}
	return &t, nil
}

// ClassByID returns the class.
func (s *Store) ClassByID(_ context.Context, id int64) (*school.Class, error) {
	c, ok := s.class(id)
	if !ok {
		return nil, notFound("ClassByID", shared.ErrClassNotFound, id)
	}
	return &c, nil
}

// Assignments lists the teacher's assignments ordered by class, subject order and student.
func (s *Store) Assignments(_ context.Context, teacherID int64, kinds []school.SubjectKind) ([]school.Assignment, error) {
	var out []school.Assignment
	for _, rec := range s.AssignmentRecords {
		if rec.TeacherID != teacherID {
			continue
		}
		sub, ok := s.subject(rec.SubjectID)
		if !ok || !hasKind(kinds, sub.Kind) {
			continue
		}
		t, _ := s.teacher(rec.TeacherID)
		c, _ := s.class(rec.ClassID)
		a := school.Assignment{ID: rec.ID, Teacher: t, Subject: sub, Class: c, Type: rec.Type}
		if a.Type == "" {
			a.Type = school.AssignmentNormal
		}
		if rec.StudentID != 0 {
			if st, ok := s.student(rec.StudentID); ok {
				a.Student = &st
			}
		}
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Class.Year != b.Class.Year {
			return a.Class.Year < b.Class.Year
		}
		if a.Class.Section != b.Class.Section {
			return a.Class.Section < b.Class.Section
		}
		if a.Class.Group != b.Class.Group {
			return a.Class.Group < b.Class.Group
		}
		if a.Subject.Order != b.Subject.Order {
			return a.Subject.Order < b.Subject.Order
		}
		if a.Student != nil && b.Student != nil {
			return studentLess(*a.Student, *b.Student)
		}
		return a.Student == nil && b.Student != nil
	})
	return out, nil
}

func hasKind(kinds []school.SubjectKind, k school.SubjectKind) bool {
	for _, v := range kinds {
		if v == k {
			return true
		}
	}
	return false
}

// ClassGroups returns the groups of a whole class ordered by name.
func (s *Store) ClassGroups(_ context.Context, class school.Class) ([]school.Class, error) {
	if class.IsGroup() {
		return nil, nil
	}
	var groups []school.Class
	for _, c := range s.Classes {
		if c.Year == class.Year && c.Section == class.Section && c.IsGroup() {
			groups = append(groups, c)
		}
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Group < groups[j].Group })
	return groups, nil
}

// TeacherIDs lists teachers with assignments of the given kinds, by name.
func (s *Store) TeacherIDs(ctx context.Context, kinds []school.SubjectKind) ([]int64, error) {
	teachers := append([]school.Teacher(nil), s.Teachers...)
	sort.SliceStable(teachers, func(i, j int) bool {
		if teachers[i].LastName != teachers[j].LastName {
			return teachers[i].LastName < teachers[j].LastName
		}
		return teachers[i].FirstName < teachers[j].FirstName
	})
	var ids []int64
	for _, t := range teachers {
		as, _ := s.Assignments(ctx, t.ID, kinds)
		if len(as) > 0 {
			ids = append(ids, t.ID)
		}
	}
	return ids, nil
}

// ClassIDs lists whole classes by year and section.
func (s *Store) ClassIDs(_ context.Context) ([]int64, error) {
	var classes []school.Class
	for _, c := range s.Classes {
		if !c.IsGroup() {
			classes = append(classes, c)
		}
	}
	sort.SliceStable(classes, func(i, j int) bool {
		if classes[i].Year != classes[j].Year {
			return classes[i].Year < classes[j].Year
		}
		return classes[i].Section < classes[j].Section
	})
	ids := make([]int64, len(classes))
	for i, c := range classes {
		ids[i] = c.ID
	}
	return ids, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LESSONS & GRADES
// ══════════════════════════════════════════════════════════════════════════════

func (s *Store) confirmed(scope school.Scope, r school.DateRange) ([]school.Lesson, error) {
	if scope.Kind != school.ScopeAssignment && scope.Kind != school.ScopeSupport {
		return nil, shared.WrapError("memory", "ConfirmedLessons", shared.ErrInvalidInput,
			fmt.Sprintf("scope %s has no lessons", scope.Kind), nil)
	}
	a := scope.Assignment
	var out []school.Lesson
	for _, l := range s.Lessons {
		if !inRange(l.Date, r) {
			continue
		}
		slot, ok := s.slot(a.Class.Site.ID, l.Date, l.Hour)
		if !ok {
			continue
		}
		lesson := l.Lesson
		lesson.DurationMinutes = slot.DurationMinutes
		if sub, ok := s.subject(l.SubjectID); ok {
			lesson.SubjectShortName = sub.ShortName
		}

		switch scope.Kind {
		case school.ScopeAssignment:
			if l.ClassID != a.Class.ID || l.SubjectID != a.Subject.ID || !signed(l.Teachers, a.Teacher.ID) {
				continue
			}
			if a.Subject.Kind == school.SubjectReligion && l.GroupType == school.GroupReligion {
				want := school.ReligionAttends
				if a.Type == school.AssignmentAlternative {
					want = school.ReligionAlternative
				}
				if l.Group != want {
					continue
				}
			}
		case school.ScopeSupport:
			c, _ := s.class(l.ClassID)
			if c.Year != a.Class.Year || c.Section != a.Class.Section {
				continue
			}
			if l.GroupType == school.GroupClass && l.Group != a.Class.Group {
				continue
			}
			sig, ok := supportSignature(l.Support, a.Teacher.ID, a.Student.ID)
			if !ok {
				continue
			}
			lesson.SupportTopic = sig.Topic
			lesson.SupportActivity = sig.Activity
		}
		out = append(out, lesson)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Hour < out[j].Hour
	})
	return out, nil
}

func signed(teachers []int64, id int64) bool {
	for _, t := range teachers {
		if t == id {
			return true
		}
	}
	return false
}

func supportSignature(sigs []SupportSignature, teacherID, studentID int64) (SupportSignature, bool) {
	for _, sig := range sigs {
		if sig.TeacherID == teacherID && sig.StudentID == studentID {
			return sig, true
		}
	}
	return SupportSignature{}, false
}

// ConfirmedMinutes sums the timetable duration of the confirmed lessons.
func (s *Store) ConfirmedMinutes(_ context.Context, scope school.Scope, r school.DateRange) (int, error) {
	lessons, err := s.confirmed(scope, r)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, l := range lessons {
		total += l.DurationMinutes
	}
	return total, nil
}

// ConfirmedLessons lists the confirmed lessons by date and hour.
func (s *Store) ConfirmedLessons(_ context.Context, scope school.Scope, r school.DateRange) ([]school.Lesson, error) {
	return s.confirmed(scope, r)
}

// AbsencesForLesson lists absence hours; studentID 0 means every student.
func (s *Store) AbsencesForLesson(_ context.Context, lessonID, studentID int64) ([]school.Absence, error) {
	l, ok := s.lesson(lessonID)
	if !ok {
		return nil, nil
	}
	var out []school.Absence
	for _, a := range l.Absences {
		if studentID == 0 || a.StudentID == studentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) gradeOf(g GradeRecord) school.Grade {
	grade := g.Grade
	if l, ok := s.lesson(g.LessonID); ok {
		grade.Date = l.Date
		if sub, ok := s.subject(l.SubjectID); ok {
			grade.SubjectName = sub.Name
		}
	}
	return grade
}

// GradesForLesson lists the grades a teacher gave for a subject in one lesson.
func (s *Store) GradesForLesson(_ context.Context, lessonID, teacherID, subjectID int64) ([]school.Grade, error) {
	var out []school.Grade
	for _, g := range s.Grades {
		if g.LessonID == lessonID && g.TeacherID == teacherID && g.SubjectID == subjectID {
			out = append(out, s.gradeOf(g))
		}
	}
	return out, nil
}

func (s *Store) assignmentGrades(a school.Assignment, r school.DateRange, otherOnly bool) []school.Grade {
	var out []school.Grade
	for _, g := range s.Grades {
		if g.TeacherID != a.Teacher.ID || g.SubjectID != a.Subject.ID {
			continue
		}
		l, ok := s.lesson(g.LessonID)
		if !ok || l.ClassID != a.Class.ID || !inRange(l.Date, r) || !signed(l.Teachers, a.Teacher.ID) {
			continue
		}
		if otherOnly && l.SubjectID == a.Subject.ID {
			continue
		}
		out = append(out, s.gradeOf(g))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// GradesForAssignment lists the assignment's grades by date.
func (s *Store) GradesForAssignment(_ context.Context, a school.Assignment, r school.DateRange) ([]school.Grade, error) {
	return s.assignmentGrades(a, r, false), nil
}

// GradesInOtherLessons counts grades given in lessons of another subject.
func (s *Store) GradesInOtherLessons(_ context.Context, a school.Assignment, r school.DateRange) (int, error) {
	return len(s.assignmentGrades(a, r, true)), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENTS
// ══════════════════════════════════════════════════════════════════════════════

// StudentsOrdered returns the students by last name, first name and birth date.
func (s *Store) StudentsOrdered(_ context.Context, ids []int64) ([]school.Student, error) {
	var out []school.Student
	for _, id := range s.sortIDs(ids) {
		st, _ := s.student(id)
		out = append(out, st)
	}
	return out, nil
}

// StudentsInClass applies the same rules as the database reader.
func (s *Store) StudentsInClass(ctx context.Context, day time.Time, class school.Class) ([]int64, error) {
	s.mu.Lock()
	s.reads++
	s.mu.Unlock()

	day = timeutil.StartOfDay(day)
	if !class.IsGroup() {
		groups, _ := s.ClassGroups(ctx, class)
		if len(groups) > 0 {
			var ids []int64
			seen := make(map[int64]struct{})
			for _, g := range groups {
				for _, id := range s.members(day, g.ID) {
					if _, ok := seen[id]; !ok {
						seen[id] = struct{}{}
						ids = append(ids, id)
					}
				}
			}
			return s.sortIDs(ids), nil
		}
	}
	return s.sortIDs(s.members(day, class.ID)), nil
}

func (s *Store) members(day time.Time, classID int64) []int64 {
	current := !day.Before(s.today())
	var ids []int64
	for _, st := range s.Students {
		if st.Abroad {
			continue
		}
		if current {
			if st.ClassID == classID {
				ids = append(ids, st.ID)
			}
			continue
		}
		change, moved := s.changeOn(st.ID, day)
		switch {
		case moved && change.ClassID == classID:
			ids = append(ids, st.ID)
		case !moved && st.ClassID == classID:
			ids = append(ids, st.ID)
		}
	}
	return ids
}

func (s *Store) changeOn(studentID int64, day time.Time) (ClassChange, bool) {
	for _, cc := range s.ClassChanges {
		if cc.StudentID == studentID && !day.Before(cc.From) && !day.After(cc.To) {
			return cc, true
		}
	}
	return ClassChange{}, false
}

// ProposedGrades returns one scrutiny's proposals; teacherID 0 matches any teacher.
func (s *Store) ProposedGrades(_ context.Context, ids []int64, classID, subjectID, teacherID int64, scrutiny string) ([]school.ProposedGrade, error) {
	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []school.ProposedGrade
	for _, p := range s.Proposals {
		if !wanted[p.StudentID] || p.ClassID != classID || p.SubjectID != subjectID || p.Period != scrutiny {
			continue
		}
		if teacherID != 0 && p.TeacherID != teacherID {
			continue
		}
		out = append(out, p.ProposedGrade)
	}
	return out, nil
}

// DeferredProposals returns suspended-judgement proposals, period G first.
func (s *Store) DeferredProposals(_ context.Context, teacherID, classID, subjectID int64) ([]school.ProposedGrade, error) {
	var out []school.ProposedGrade
	for _, p := range s.Proposals {
		if p.TeacherID != teacherID || p.ClassID != classID || p.SubjectID != subjectID {
			continue
		}
		if p.Period == school.ProposalSuspended || p.Period == school.ProposalResit {
			out = append(out, p.ProposedGrade)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Period != out[j].Period {
			return out[i].Period < out[j].Period
		}
		a, _ := s.student(out[i].StudentID)
		b, _ := s.student(out[j].StudentID)
		return studentLess(a, b)
	})
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// OBSERVATIONS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Store) observations(assignmentID int64, r school.DateRange, ofStudents bool) []school.Observation {
	var out []school.Observation
	for _, o := range s.Observations {
		if o.AssignmentID != assignmentID || !inRange(o.Date, r) || (o.StudentID != 0) != ofStudents {
			continue
		}
		obs := school.Observation{Date: o.Date, Text: o.Text}
		if ofStudents {
			st, _ := s.student(o.StudentID)
			obs.Student = &st
		}
		out = append(out, obs)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].Student != nil && out[j].Student != nil {
			return studentLess(*out[i].Student, *out[j].Student)
		}
		return false
	})
	return out
}

// StudentObservations are ordered by date then student name.
func (s *Store) StudentObservations(_ context.Context, assignmentID int64, r school.DateRange) ([]school.Observation, error) {
	return s.observations(assignmentID, r, true), nil
}

// ClassObservations are ordered by date.
func (s *Store) ClassObservations(_ context.Context, assignmentID int64, r school.DateRange) ([]school.Observation, error) {
	return s.observations(assignmentID, r, false), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CLASS DIARY
// ══════════════════════════════════════════════════════════════════════════════

// Holidays returns the holidays of the site in the range.
func (s *Store) Holidays(_ context.Context, siteID int64, r school.DateRange) ([]time.Time, error) {
	seen := make(map[string]bool)
	var out []time.Time
	for _, h := range s.HolidayRecords {
		key := timeutil.DayKey(h.Date)
		if (h.SiteID == 0 || h.SiteID == siteID) && inRange(h.Date, r) && !seen[key] {
			seen[key] = true
			out = append(out, timeutil.StartOfDay(h.Date))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// Schedule returns the timetable of the weekday of day, valid on that date.
func (s *Store) Schedule(_ context.Context, day time.Time, siteID int64) ([]school.ScheduleSlot, error) {
	return append([]school.ScheduleSlot(nil), s.daySlots(siteID, day)...), nil
}

func (s *Store) daySlots(siteID int64, day time.Time) []school.ScheduleSlot {
	for _, sc := range s.Schedules {
		if sc.SiteID == siteID && inRange(day, school.DateRange{From: sc.From, To: sc.To}) {
			return sc.Days[day.In(timeutil.SchoolTZ).Weekday()]
		}
	}
	return nil
}

// slot finds the timetable hour a lesson was held in.
func (s *Store) slot(siteID int64, day time.Time, hour int) (school.ScheduleSlot, bool) {
	for _, sl := range s.daySlots(siteID, day) {
		if sl.Hour == hour {
			return sl, true
		}
	}
	return school.ScheduleSlot{}, false
}

// SlotLessons returns the lessons of every group of the class in one hour.
func (s *Store) SlotLessons(_ context.Context, scope school.Scope, hour int) ([]school.SlotLesson, error) {
	var out []school.SlotLesson
	for _, l := range s.Lessons {
		c, _ := s.class(l.ClassID)
		if l.Hour != hour || !timeutil.IsSameDay(l.Date, scope.Day) ||
			c.Year != scope.Class.Year || c.Section != scope.Class.Section {
			continue
		}
		sub, _ := s.subject(l.SubjectID)
		teachers := make([]school.Teacher, 0, len(l.Teachers))
		for _, id := range l.Teachers {
			if t, ok := s.teacher(id); ok {
				teachers = append(teachers, t)
			}
		}
		sort.SliceStable(teachers, func(i, j int) bool {
			if teachers[i].LastName != teachers[j].LastName {
				return teachers[i].LastName < teachers[j].LastName
			}
			return teachers[i].FirstName < teachers[j].FirstName
		})
		names := make([]string, len(teachers))
		for i, t := range teachers {
			names[i] = t.FullName()
		}
		groupType := l.GroupType
		if groupType == "" {
			groupType = school.GroupNone
		}
		out = append(out, school.SlotLesson{
			Hour:        l.Hour,
			GroupType:   groupType,
			Group:       l.Group,
			SubjectName: sub.Name,
			Topic:       l.Topic,
			Activity:    l.Activity,
			Teachers:    names,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out, nil
}

func (s *Store) sortedStudents(ids []int64) []school.Student {
	out := make([]school.Student, 0, len(ids))
	for _, id := range s.sortIDs(ids) {
		st, _ := s.student(id)
		out = append(out, st)
	}
	return out
}

// OutOfClass returns the out-of-class presences of the students on day.
func (s *Store) OutOfClass(_ context.Context, day time.Time, studentIDs []int64) ([]school.OutOfClass, error) {
	var out []school.OutOfClass
	for _, st := range s.sortedStudents(studentIDs) {
		for _, p := range s.Presences {
			if p.StudentID == st.ID && timeutil.IsSameDay(p.Date, day) {
				out = append(out, school.OutOfClass{Student: st, From: p.From, To: p.To, Kind: p.Kind, Description: p.Description})
			}
		}
	}
	return out, nil
}

// DailyAttendance returns the students absent, late or leaving early on day.
func (s *Store) DailyAttendance(_ context.Context, day time.Time, studentIDs []int64) ([]school.DailyAttendance, error) {
	var out []school.DailyAttendance
	for _, st := range s.sortedStudents(studentIDs) {
		d := school.DailyAttendance{Student: st}
		for _, e := range s.Events {
			if e.StudentID != st.ID || !timeutil.IsSameDay(e.Date, day) {
				continue
			}
			switch e.Kind {
			case EventAbsence:
				d.Absent = true
			case EventLate:
				d.Late = e.At
			case EventEarlyExit:
				d.EarlyExit = e.At
			}
		}
		if d.Absent || d.Late != nil || d.EarlyExit != nil {
			out = append(out, d)
		}
	}
	return out, nil
}

// Justifications returns the dates justified on day, per student.
func (s *Store) Justifications(_ context.Context, day time.Time, studentIDs []int64) ([]school.Justification, error) {
	var out []school.Justification
	for _, st := range s.sortedStudents(studentIDs) {
		j := school.Justification{Student: st}
		events := make([]AttendanceEvent, 0)
		for _, e := range s.Events {
			if e.StudentID == st.ID && e.JustifiedOn != nil && timeutil.IsSameDay(*e.JustifiedOn, day) {
				events = append(events, e)
			}
		}
		sort.SliceStable(events, func(a, b int) bool { return events[a].Date.Before(events[b].Date) })
		for _, e := range events {
			switch e.Kind {
			case EventAbsence:
				j.Absences = append(j.Absences, e.Date)
			case EventLate:
				j.Lates = append(j.Lates, e.Date)
			case EventEarlyExit:
				j.Exits = append(j.Exits, e.Date)
			}
		}
		if len(events) > 0 {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *Store) sameClassDay(scope school.Scope, date time.Time, classID int64) (school.Class, bool) {
	c, ok := s.class(classID)
	if !ok || !timeutil.IsSameDay(date, scope.Day) {
		return c, false
	}
	return c, c.Year == scope.Class.Year && c.Section == scope.Class.Section
}

// Notes returns the disciplinary notes of every group of the class on the day.
func (s *Store) Notes(_ context.Context, scope school.Scope) ([]school.DisciplinaryNote, error) {
	var out []school.DisciplinaryNote
	for _, n := range s.NoteRecords {
		c, ok := s.sameClassDay(scope, n.Date, n.ClassID)
		if !ok {
			continue
		}
		note := school.DisciplinaryNote{
			Group:     c.Group,
			Students:  s.studentNames(n.StudentIDs),
			Text:      n.Text,
			Teacher:   s.teacherName(n.TeacherID),
			Provision: n.Provision,
			Cancelled: n.Cancelled,
		}
		if n.ProvisionTeacherID != 0 {
			note.ProvisionTeacher = s.teacherName(n.ProvisionTeacherID)
		}
		out = append(out, note)
	}
	return out, nil
}

// Annotations returns the annotations of every group of the class on the day.
func (s *Store) Annotations(_ context.Context, scope school.Scope) ([]school.Annotation, error) {
	var out []school.Annotation
	for _, a := range s.AnnotationRecords {
		c, ok := s.sameClassDay(scope, a.Date, a.ClassID)
		if !ok {
			continue
		}
		out = append(out, school.Annotation{
			Group:      c.Group,
			Recipients: strings.TrimSpace(a.Recipients),
			Students:   s.studentNames(a.StudentIDs),
			Text:       a.Text,
			Teacher:    s.teacherName(a.TeacherID),
		})
	}
	return out, nil
}
