// Package school contains the read-only entities a register is compiled from:
// teachers, classes, subjects, teaching assignments, lessons, attendance and grades.
package school

import (
	"fmt"
	"time"

	"github.com/classbook/register-archive/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PEOPLE & CLASSES
// ══════════════════════════════════════════════════════════════════════════════

// Teacher is a member of staff who signs lessons.
type Teacher struct {
	ID        int64
	FirstName string
	LastName  string
}

// FullName returns "First Last", the form used in page headers.
func (t Teacher) FullName() string {
	return t.FirstName + " " + t.LastName
}

// Site is a school building; schedules are defined per site.
type Site struct {
	ID        int64
	ShortName string
}

// Class is a year+section, optionally narrowed to a group of students.
type Class struct {
	ID      int64
	Year    int
	Section string
	Group   string
	Course  string
	Site    Site
}

// String returns "3A" or, for a group, "3A-LAT".
func (c Class) String() string {
	if c.Group == "" {
		return c.Base()
	}
	return c.Base() + "-" + c.Group
}

// Base returns year and section without the group.
func (c Class) Base() string {
	return fmt.Sprintf("%d%s", c.Year, c.Section)
}

// CourseLabel returns "Course - Site" as shown under the class name.
func (c Class) CourseLabel() string {
	if c.Site.ShortName == "" {
		return c.Course
	}
	return c.Course + " - " + c.Site.ShortName
}

// IsGroup reports whether the class is a sub-group of a whole class.
func (c Class) IsGroup() bool {
	return c.Group != ""
}

// Religion choices of a student.
const (
	ReligionAttends     = "S"
	ReligionAlternative = "A"
	ReligionNone        = "N"
)

// Student is a pupil. ClassID is the current class, zero when withdrawn.
type Student struct {
	ID        int64
	LastName  string
	FirstName string
	BirthDate time.Time
	ClassID   int64
	Abroad    bool
	Religion  string
}

// Label returns "Last First (dd/mm/yyyy)".
func (s Student) Label() string {
	return fmt.Sprintf("%s %s (%s)", s.LastName, s.FirstName, timeutil.FormatDate(s.BirthDate))
}

// ShortLabel returns "Last First".
func (s Student) ShortLabel() string {
	return s.LastName + " " + s.FirstName
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBJECTS & ASSIGNMENTS
// ══════════════════════════════════════════════════════════════════════════════

// SubjectKind classifies subjects; it selects the grade scale and the register variant.
type SubjectKind string

const (
	SubjectOrdinary SubjectKind = "N"
	SubjectReligion SubjectKind = "R"
	SubjectCivics   SubjectKind = "E"
	SubjectSupport  SubjectKind = "S"
)

// Subject is a taught discipline.
type Subject struct {
	ID        int64
	Name      string
	ShortName string
	Kind      SubjectKind
	Order     int
}

// AssignmentType distinguishes the religion alternative from every other binding.
type AssignmentType string

const (
	AssignmentNormal      AssignmentType = "N"
	AssignmentAlternative AssignmentType = "A"
)

// Assignment binds a teacher to a class and subject; support assignments
// also name the single student they are for.
type Assignment struct {
	ID      int64
	Teacher Teacher
	Subject Subject
	Class   Class
	Type    AssignmentType
	Student *Student
}

// IsSupport reports whether the assignment is scoped to one student.
func (a Assignment) IsSupport() bool {
	return a.Subject.Kind == SubjectSupport && a.Student != nil
}

// Admits applies the religion filter: religion lessons list only the
// students attending them, the alternative lists only the students choosing it.
func (a Assignment) Admits(s Student) bool {
	if a.Subject.Kind != SubjectReligion {
		return true
	}
	if a.Type == AssignmentAlternative {
		return s.Religion == ReligionAlternative
	}
	return s.Religion == ReligionAttends
}

// IsWithdrawn reports whether the student should carry the withdrawn mark:
// abroad, without a class, or now in a class other than the assignment's.
// A student moved into one of the groups of a whole class is not withdrawn.
func (a Assignment) IsWithdrawn(s Student, groupIDs []int64) bool {
	if s.Abroad || s.ClassID == 0 {
		return true
	}
	if s.ClassID == a.Class.ID {
		return false
	}
	if len(groupIDs) == 0 || a.Class.IsGroup() {
		return true
	}
	for _, id := range groupIDs {
		if id == s.ClassID {
			return false
		}
	}
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// LESSONS, ATTENDANCE & GRADES
// ══════════════════════════════════════════════════════════════════════════════

// Lesson is a confirmed lesson hour. Support lessons carry the support
// teacher's own topic and activity next to the class ones.
type Lesson struct {
	ID               int64
	Date             time.Time
	Hour             int
	DurationMinutes  int
	Topic            string
	Activity         string
	SubjectShortName string
	SupportTopic     string
	SupportActivity  string
}

// Absence is the fractional number of hours a student missed in a lesson.
type Absence struct {
	StudentID int64
	Hours     float64
}

// GradeType is the kind of assessment.
type GradeType string

const (
	GradeWritten   GradeType = "S"
	GradeOral      GradeType = "O"
	GradePractical GradeType = "P"
)

// Label returns the Italian name of the assessment type.
func (t GradeType) Label() string {
	switch t {
	case GradeWritten:
		return "Scritto"
	case GradeOral:
		return "Orale"
	default:
		return "Pratico"
	}
}

// Grade is a single assessment recorded in a lesson.
type Grade struct {
	ID                  int64
	StudentID           int64
	Date                time.Time
	Type                GradeType
	Score               float64
	Prompt              string
	Remark              string
	CountsTowardAverage bool
	Visible             bool
	SubjectName         string
}

// Proposal periods for deferred evaluation.
const (
	ProposalSuspended = "G"
	ProposalResit     = "R"
)

// ProposedGrade is the end-of-term proposal; Value is an index into the grade scale.
type ProposedGrade struct {
	StudentID int64
	Value     int
	Period    string
	Debt      string
}

// Observation is a free-text remark. Student is nil for remarks on the whole class.
type Observation struct {
	Date    time.Time
	Student *Student
	Text    string
}

// ══════════════════════════════════════════════════════════════════════════════
// CLASS DIARY
// ══════════════════════════════════════════════════════════════════════════════

// ScheduleSlot is one hour of the daily timetable of a site.
type ScheduleSlot struct {
	Hour            int
	Start           time.Time
	End             time.Time
	DurationMinutes int
}

// Lesson group types.
const (
	GroupNone     = "N"
	GroupClass    = "C"
	GroupReligion = "R"
)

// SlotLesson is one lesson held in a slot; a slot may hold one lesson per group.
type SlotLesson struct {
	Hour        int
	GroupType   string
	Group       string
	SubjectName string
	Topic       string
	Activity    string
	Teachers    []string
}

// GroupKey identifies the group a lesson was held for, e.g. "R:S" or "C:LAT".
func (l SlotLesson) GroupKey() string {
	return l.GroupType + ":" + l.Group
}

// OutOfClass is a presence away from the classroom (PCTO, trips, school activities).
type OutOfClass struct {
	Student     Student
	From        *time.Time
	To          *time.Time
	Kind        string
	Description string
}

// KindLabel returns the display name of the presence type.
func (o OutOfClass) KindLabel() string {
	switch o.Kind {
	case "P":
		return "PCTO"
	case "M":
		return "Mobilità europea"
	case "E":
		return "Attività esterna"
	default:
		return "Attività a scuola"
	}
}

// DailyAttendance is a student's whole-day absence, late entry or early exit.
type DailyAttendance struct {
	Student   Student
	Absent    bool
	Late      *time.Time
	EarlyExit *time.Time
}

// Justification lists the absence, late and exit dates justified on a day.
type Justification struct {
	Student  Student
	Absences []time.Time
	Lates    []time.Time
	Exits    []time.Time
}

// DisciplinaryNote is a note written in the class diary.
type DisciplinaryNote struct {
	Group            string
	Students         []string
	Text             string
	Teacher          string
	Provision        string
	ProvisionTeacher string
	Cancelled        bool
}

// Annotation is a diary annotation, possibly addressed to students or parents.
type Annotation struct {
	Group      string
	Recipients string
	Students   []string
	Text       string
	Teacher    string
}
