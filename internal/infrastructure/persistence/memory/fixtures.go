package memory

import (
	"fmt"
	"time"

	"github.com/classbook/register-archive/internal/domain/period"
	"github.com/classbook/register-archive/internal/domain/school"
	"github.com/classbook/register-archive/pkg/timeutil"
)

// DemoSettings returns the school year the demo store is filled for.
func DemoSettings() period.Settings {
	return period.Settings{
		YearLabel: "2024/2025",
		YearStart: timeutil.Date(2024, 9, 11),
		FirstEnd:  timeutil.Date(2025, 1, 31),
		YearEnd:   timeutil.Date(2025, 6, 7),
		Names:     []string{"Primo Quadrimestre", "Secondo Quadrimestre"},
	}
}

// Demo IDs, exported for the CLI and tests.
const (
	DemoTeacherMath     int64 = 1
	DemoTeacherItalian  int64 = 2
	DemoTeacherReligion int64 = 3
	DemoTeacherSupport  int64 = 4
	DemoTeacherAltern   int64 = 5
	DemoTeacherLatin    int64 = 6

	DemoClass3A    int64 = 1
	DemoClass4B    int64 = 2
	DemoClass4BLat int64 = 3
	DemoClass4BIng int64 = 4
)

const (
	subMath int64 = iota + 1
	subItalian
	subReligion
	subSupport
	subCivics
	subLatin
	subEnglish
)

// weekly timetable: weekday -> hour -> subject, per class
var demoTimetable = map[int64]map[time.Weekday][]int64{
	DemoClass3A: {
		time.Monday:    {subMath, subItalian, subReligion, subItalian, subCivics},
		time.Tuesday:   {subItalian, subMath, subMath, subEnglish},
		time.Wednesday: {subMath, subItalian, subEnglish, subItalian},
		time.Thursday:  {subItalian, subItalian, subMath, subCivics},
		time.Friday:    {subMath, subEnglish, subItalian, subMath},
		time.Saturday:  {subItalian, subMath, subEnglish},
	},
	DemoClass4B: {
		time.Monday:    {subItalian, subMath, subMath, subLatin},
		time.Tuesday:   {subMath, subLatin, subItalian},
		time.Wednesday: {subItalian, subMath, subLatin, subMath},
		time.Thursday:  {subMath, subItalian, subLatin},
		time.Friday:    {subLatin, subMath, subItalian},
	},
}

var demoTeacherOf = map[int64]map[int64]int64{
	DemoClass3A: {
		subMath: DemoTeacherMath, subItalian: DemoTeacherItalian, subCivics: DemoTeacherItalian,
		subEnglish: DemoTeacherItalian,
	},
	DemoClass4B: {subMath: DemoTeacherMath, subItalian: DemoTeacherItalian},
}

var demoTopics = []string{
	"Equazioni di secondo grado",
	"Disequazioni",
	"Il piano cartesiano",
	"La retta",
	"La parabola",
	"Funzioni e grafici",
	"Esercitazione in classe",
}

var demoActivities = []string{
	"Lezione frontale",
	"Esercizi guidati",
	"Lavoro di gruppo",
	"",
}

var demoScores = []float64{6.25, 7, 5.75, 8.5, 4, 9, 6.5, 7.75}

// Demo returns a store filled with a deterministic school year for two
// classes: 3A, a whole class with religion and support, and 4B, split into
// two groups with a Latin lesson for one of them.
func Demo() *Store {
	settings := DemoSettings()
	s := &Store{
		Today: func() time.Time { return timeutil.Date(2025, 6, 20) },
		Teachers: []school.Teacher{
			{ID: DemoTeacherMath, FirstName: "Maria", LastName: "Rossi"},
			{ID: DemoTeacherItalian, FirstName: "Giovanni", LastName: "Bianchi"},
			{ID: DemoTeacherReligion, FirstName: "Paolo", LastName: "Verdi"},
			{ID: DemoTeacherSupport, FirstName: "Anna", LastName: "Neri"},
			{ID: DemoTeacherAltern, FirstName: "Luca", LastName: "Gallo"},
			{ID: DemoTeacherLatin, FirstName: "Elena", LastName: "Conti"},
		},
		Subjects: []school.Subject{
			{ID: subMath, Name: "Matematica", ShortName: "Mat", Kind: school.SubjectOrdinary, Order: 40},
			{ID: subItalian, Name: "Lingua e letteratura italiana", ShortName: "Ita", Kind: school.SubjectOrdinary, Order: 10},
			{ID: subReligion, Name: "Religione Cattolica o attività alternative", ShortName: "Rel", Kind: school.SubjectReligion, Order: 0},
			{ID: subSupport, Name: "Sostegno", ShortName: "Sos", Kind: school.SubjectSupport, Order: 99},
			{ID: subCivics, Name: "Educazione civica", ShortName: "Ed.civ.", Kind: school.SubjectCivics, Order: 80},
			{ID: subLatin, Name: "Lingua e cultura latina", ShortName: "Lat", Kind: school.SubjectOrdinary, Order: 20},
			{ID: subEnglish, Name: "Lingua e cultura inglese", ShortName: "Ing", Kind: school.SubjectOrdinary, Order: 30},
		},
		Schedules: []ScheduleRecord{demoSchedule(1, settings)},
	}

	site := school.Site{ID: 1, ShortName: "Centrale"}
	s.Classes = []school.Class{
		{ID: DemoClass3A, Year: 3, Section: "A", Course: "Liceo Scientifico", Site: site},
		{ID: DemoClass4B, Year: 4, Section: "B", Course: "Liceo Scientifico", Site: site},
		{ID: DemoClass4BLat, Year: 4, Section: "B", Group: "LAT", Course: "Liceo Scientifico", Site: site},
		{ID: DemoClass4BIng, Year: 4, Section: "B", Group: "ING", Course: "Liceo Scientifico", Site: site},
	}

	dob := func(y, m, d int) time.Time { return timeutil.Date(y, m, d) }
	s.Students = []school.Student{
		{ID: 101, LastName: "Esposito", FirstName: "Luca", BirthDate: dob(2008, 3, 14), ClassID: DemoClass3A, Religion: school.ReligionAttends},
		{ID: 102, LastName: "Ferrari", FirstName: "Giulia", BirthDate: dob(2008, 7, 2), ClassID: DemoClass3A, Religion: school.ReligionAttends},
		{ID: 103, LastName: "Romano", FirstName: "Marco", BirthDate: dob(2008, 1, 29), ClassID: DemoClass3A, Religion: school.ReligionAlternative},
		{ID: 104, LastName: "Colombo", FirstName: "Sara", BirthDate: dob(2008, 11, 5), Religion: school.ReligionAttends},
		{ID: 105, LastName: "Ricci", FirstName: "Davide", BirthDate: dob(2007, 12, 24), ClassID: DemoClass3A, Religion: school.ReligionNone},
		{ID: 106, LastName: "Marino", FirstName: "Chiara", BirthDate: dob(2008, 5, 18), ClassID: DemoClass3A, Religion: school.ReligionAttends},
		{ID: 107, LastName: "Bruno", FirstName: "Elisa", BirthDate: dob(2008, 9, 9), ClassID: DemoClass3A, Abroad: true, Religion: school.ReligionAttends},
		{ID: 201, LastName: "Greco", FirstName: "Francesca", BirthDate: dob(2007, 2, 11), ClassID: DemoClass4BLat, Religion: school.ReligionAttends},
		{ID: 202, LastName: "Conte", FirstName: "Matteo", BirthDate: dob(2007, 6, 30), ClassID: DemoClass4BLat, Religion: school.ReligionNone},
		{ID: 203, LastName: "De Luca", FirstName: "Niccolò", BirthDate: dob(2007, 4, 3), ClassID: DemoClass4BIng, Religion: school.ReligionAttends},
		{ID: 204, LastName: "D'Angelo", FirstName: "Martina", BirthDate: dob(2007, 10, 21), ClassID: DemoClass4BIng, Religion: school.ReligionAttends},
	}
	s.ClassChanges = []ClassChange{
		{StudentID: 104, ClassID: DemoClass3A, From: settings.YearStart, To: timeutil.Date(2024, 12, 20)},
	}

	s.AssignmentRecords = []AssignmentRecord{
		{ID: 1, TeacherID: DemoTeacherMath, SubjectID: subMath, ClassID: DemoClass3A},
		{ID: 2, TeacherID: DemoTeacherItalian, SubjectID: subItalian, ClassID: DemoClass3A},
		{ID: 3, TeacherID: DemoTeacherItalian, SubjectID: subCivics, ClassID: DemoClass3A},
		{ID: 4, TeacherID: DemoTeacherItalian, SubjectID: subEnglish, ClassID: DemoClass3A},
		{ID: 5, TeacherID: DemoTeacherReligion, SubjectID: subReligion, ClassID: DemoClass3A},
		{ID: 6, TeacherID: DemoTeacherAltern, SubjectID: subReligion, ClassID: DemoClass3A, Type: school.AssignmentAlternative},
		{ID: 7, TeacherID: DemoTeacherSupport, SubjectID: subSupport, ClassID: DemoClass3A, StudentID: 102},
		{ID: 8, TeacherID: DemoTeacherMath, SubjectID: subMath, ClassID: DemoClass4B},
		{ID: 9, TeacherID: DemoTeacherItalian, SubjectID: subItalian, ClassID: DemoClass4B},
		{ID: 10, TeacherID: DemoTeacherLatin, SubjectID: subLatin, ClassID: DemoClass4BLat},
	}

	s.HolidayRecords = demoHolidays()
	s.fillLessons(settings)
	s.fillDiary()
	s.fillEvaluations()
	return s
}

// demoSchedule has five hours, Monday to Saturday, for the whole year.
func demoSchedule(siteID int64, settings period.Settings) ScheduleRecord {
	slots := make([]school.ScheduleSlot, 5)
	for i := range slots {
		slots[i] = school.ScheduleSlot{
			Hour:            i + 1,
			Start:           timeutil.Clock(8+i, 0),
			End:             timeutil.Clock(9+i, 0),
			DurationMinutes: 60,
		}
	}
	days := make(map[time.Weekday][]school.ScheduleSlot, 6)
	for wd := time.Monday; wd <= time.Saturday; wd++ {
		days[wd] = slots
	}
	return ScheduleRecord{SiteID: siteID, From: settings.YearStart, To: settings.YearEnd, Days: days}
}

func demoHolidays() []Holiday {
	var out []Holiday
	add := func(from, to time.Time) {
		_ = timeutil.EachDay(from, to, func(day time.Time) error {
			out = append(out, Holiday{Date: day})
			return nil
		})
	}
	add(timeutil.Date(2024, 11, 1), timeutil.Date(2024, 11, 1))
	add(timeutil.Date(2024, 12, 23), timeutil.Date(2025, 1, 6))
	add(timeutil.Date(2025, 4, 17), timeutil.Date(2025, 4, 22))
	add(timeutil.Date(2025, 4, 25), timeutil.Date(2025, 4, 25))
	add(timeutil.Date(2025, 5, 1), timeutil.Date(2025, 5, 1))
	add(timeutil.Date(2025, 6, 2), timeutil.Date(2025, 6, 2))
	return out
}

func (s *Store) isHoliday(day time.Time) bool {
	for _, h := range s.HolidayRecords {
		if timeutil.IsSameDay(h.Date, day) {
			return true
		}
	}
	return false
}

func (s *Store) fillLessons(settings period.Settings) {
	var id int64
	n := 0
	_ = timeutil.EachDay(settings.YearStart, settings.YearEnd, func(day time.Time) error {
		if timeutil.IsSunday(day) || s.isHoliday(day) {
			return nil
		}
		for _, classID := range []int64{DemoClass3A, DemoClass4B} {
			for h, subjectID := range demoTimetable[classID][day.Weekday()] {
				n++
				base := LessonRecord{
					Lesson: school.Lesson{
						Date:     day,
						Hour:     h + 1,
						Topic:    demoTopics[(n/3)%len(demoTopics)],
						Activity: demoActivities[n%len(demoActivities)],
					},
					ClassID:   classID,
					GroupType: school.GroupNone,
					SubjectID: subjectID,
				}
				for _, l := range s.demoLessons(base, day) {
					id++
					l.ID = id
					s.Lessons = append(s.Lessons, l)
				}
			}
		}
		return nil
	})
}

// demoLessons expands a timetable slot into the lessons held in it.
func (s *Store) demoLessons(base LessonRecord, day time.Time) []LessonRecord {
	switch base.SubjectID {
	case subReligion:
		rel, alt := base, base
		rel.GroupType, rel.Group, rel.Teachers = school.GroupReligion, school.ReligionAttends, []int64{DemoTeacherReligion}
		rel.Topic = "Il senso religioso"
		alt.GroupType, alt.Group, alt.Teachers = school.GroupReligion, school.ReligionAlternative, []int64{DemoTeacherAltern}
		alt.Topic = "Diritti umani e cittadinanza"
		return []LessonRecord{rel, alt}
	case subLatin:
		lat, ing := base, base
		lat.ClassID, lat.GroupType, lat.Group, lat.Teachers = DemoClass4BLat, school.GroupClass, "LAT", []int64{DemoTeacherLatin}
		lat.Topic = "Cicerone, le orazioni"
		ing.ClassID, ing.GroupType, ing.Group, ing.SubjectID, ing.Teachers = DemoClass4BIng, school.GroupClass, "ING", subEnglish, []int64{DemoTeacherItalian}
		ing.Topic = "Shakespeare: Macbeth"
		return []LessonRecord{lat, ing}
	}

	base.Teachers = []int64{demoTeacherOf[base.ClassID][base.SubjectID]}
	if base.ClassID == DemoClass3A {
		if wd := day.Weekday(); wd == time.Tuesday || wd == time.Thursday {
			base.Support = []SupportSignature{{
				TeacherID: DemoTeacherSupport,
				StudentID: 102,
				Topic:     "Mappa concettuale",
				Activity:  "Affiancamento nello svolgimento degli esercizi",
			}}
		}
		if (day.YearDay()+base.Hour)%11 == 0 {
			base.Absences = append(base.Absences, school.Absence{StudentID: 101, Hours: 1})
		}
		if day.Day()%13 == 0 {
			base.Absences = append(base.Absences, school.Absence{StudentID: 106, Hours: 0.5})
		}
	}
	return []LessonRecord{base}
}

func (s *Store) fillEvaluations() {
	var gradeID int64
	pools := map[int64][]int64{
		DemoClass3A:    {101, 102, 103, 104, 105, 106},
		DemoClass4B:    {201, 202, 203, 204},
		DemoClass4BLat: {201, 202},
		DemoClass4BIng: {203, 204},
	}
	for i, l := range s.Lessons {
		if i%7 != 0 || l.GroupType == school.GroupReligion {
			continue
		}
		pool := pools[l.ClassID]
		studentID := pool[(i/7)%len(pool)]
		if studentID == 104 && l.Date.After(timeutil.Date(2024, 12, 20)) {
			continue
		}
		gradeID++
		typ := school.GradeOral
		if (i/7)%3 == 0 {
			typ = school.GradeWritten
		}
		s.Grades = append(s.Grades, GradeRecord{
			Grade: school.Grade{
				ID:                  gradeID,
				StudentID:           studentID,
				Type:                typ,
				Score:               demoScores[int(gradeID)%len(demoScores)],
				Prompt:              l.Topic,
				Remark:              fmt.Sprintf("Prova n. %d", gradeID),
				CountsTowardAverage: gradeID%5 != 0,
				Visible:             true,
			},
			LessonID:  l.ID,
			TeacherID: l.Teachers[0],
			SubjectID: l.SubjectID,
		})
	}

	for _, a := range s.AssignmentRecords {
		if a.StudentID != 0 {
			continue
		}
		var ids []int64
		for _, st := range s.Students {
			if st.ClassID == a.ClassID || a.ClassID == DemoClass4B && (st.ClassID == DemoClass4BLat || st.ClassID == DemoClass4BIng) {
				ids = append(ids, st.ID)
			}
		}
		sub, _ := s.subject(a.SubjectID)
		scale := map[school.SubjectKind][2]int{
			school.SubjectOrdinary: {4, 10},
			school.SubjectReligion: {23, 27},
			school.SubjectCivics:   {6, 10},
		}[sub.Kind]
		for k, id := range ids {
			for j, scrutiny := range []string{period.ScrutinyFirst, period.ScrutinyFinal} {
				value := scale[0] + (k+j)%(scale[1]-scale[0]+1)
				s.Proposals = append(s.Proposals, ProposalRecord{
					ProposedGrade: school.ProposedGrade{StudentID: id, Value: value, Period: scrutiny},
					ClassID:       a.ClassID,
					SubjectID:     a.SubjectID,
					TeacherID:     a.TeacherID,
				})
			}
		}
	}
	s.Proposals = append(s.Proposals,
		ProposalRecord{
			ProposedGrade: school.ProposedGrade{StudentID: 105, Value: 6, Period: school.ProposalSuspended,
				Debt: "Recupero delle disequazioni e dei sistemi"},
			ClassID: DemoClass3A, SubjectID: subMath, TeacherID: DemoTeacherMath,
		},
		ProposalRecord{
			ProposedGrade: school.ProposedGrade{StudentID: 101, Value: 5, Period: school.ProposalResit,
				Debt: "Geometria analitica"},
			ClassID: DemoClass3A, SubjectID: subMath, TeacherID: DemoTeacherMath,
		},
	)

	s.Observations = []ObservationRecord{
		{AssignmentID: 1, StudentID: 105, Date: timeutil.Date(2024, 10, 8), Text: "Non ha svolto i compiti assegnati."},
		{AssignmentID: 1, StudentID: 101, Date: timeutil.Date(2024, 10, 8), Text: "Partecipa con interesse."},
		{AssignmentID: 1, StudentID: 103, Date: timeutil.Date(2025, 3, 12), Text: "Ottimo recupero nel secondo periodo."},
		{AssignmentID: 1, Date: timeutil.Date(2024, 11, 20), Text: "Programma in linea con la programmazione di inizio anno."},
		{AssignmentID: 7, StudentID: 102, Date: timeutil.Date(2024, 12, 3), Text: "Lavora bene con gli schemi."},
		{AssignmentID: 7, Date: timeutil.Date(2025, 2, 10), Text: "Incontro con la famiglia."},
	}
}

func (s *Store) fillDiary() {
	at := func(h, m int) *time.Time {
		t := timeutil.Clock(h, m)
		return &t
	}
	on := func(y, m, d int) *time.Time {
		t := timeutil.Date(y, m, d)
		return &t
	}

	s.Presences = []PresenceRecord{
		{StudentID: 103, Date: timeutil.Date(2024, 10, 14), From: at(8, 0), To: at(13, 0), Kind: "P", Description: "Stage presso studio tecnico"},
		{StudentID: 106, Date: timeutil.Date(2024, 10, 14), From: at(10, 0), Kind: "S", Description: "Orientamento"},
		{StudentID: 101, Date: timeutil.Date(2025, 3, 4), Kind: "E", Description: "Gara di matematica"},
	}

	s.Events = []AttendanceEvent{
		{StudentID: 101, Date: timeutil.Date(2024, 10, 9), Kind: EventAbsence, JustifiedOn: on(2024, 10, 10)},
		{StudentID: 101, Date: timeutil.Date(2024, 10, 10), Kind: EventAbsence, JustifiedOn: on(2024, 10, 11)},
		{StudentID: 105, Date: timeutil.Date(2024, 10, 10), Kind: EventLate, At: at(8, 15), JustifiedOn: on(2024, 10, 11)},
		{StudentID: 106, Date: timeutil.Date(2024, 10, 10), Kind: EventEarlyExit, At: at(11, 0)},
		{StudentID: 102, Date: timeutil.Date(2025, 2, 18), Kind: EventAbsence, JustifiedOn: on(2025, 2, 19)},
		{StudentID: 202, Date: timeutil.Date(2025, 2, 18), Kind: EventLate, At: at(9, 5)},
	}

	s.NoteRecords = []NoteRecord{
		{
			Date: timeutil.Date(2024, 10, 15), ClassID: DemoClass3A, StudentIDs: []int64{105, 101},
			Text: "Disturbano ripetutamente la lezione.", TeacherID: DemoTeacherMath,
			Provision: "Ammonizione scritta", ProvisionTeacherID: DemoTeacherItalian,
		},
		{
			Date: timeutil.Date(2024, 10, 15), ClassID: DemoClass3A,
			Text: "La classe non rispetta l'orario di rientro.", TeacherID: DemoTeacherItalian, Cancelled: true,
		},
		{
			Date: timeutil.Date(2025, 2, 18), ClassID: DemoClass4BLat, StudentIDs: []int64{202},
			Text: "Uso del cellulare durante la verifica.", TeacherID: DemoTeacherLatin,
		},
	}
	s.AnnotationRecords = []AnnotationRecord{
		{Date: timeutil.Date(2024, 10, 15), ClassID: DemoClass3A, Text: "Uscita didattica al museo il 22 ottobre.", TeacherID: DemoTeacherItalian},
		{Date: timeutil.Date(2024, 11, 4), ClassID: DemoClass3A, Recipients: "Genitori", StudentIDs: []int64{105},
			Text: "Convocazione dei genitori per colloquio.", TeacherID: DemoTeacherMath},
	}
}
