package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/classbook/register-archive/internal/domain/school"
	"github.com/classbook/register-archive/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLASS DIARY
// ══════════════════════════════════════════════════════════════════════════════

// Holidays returns the holidays of a site (or of every site) in the range.
func (r *RegisterRepository) Holidays(ctx context.Context, siteID int64, rng school.DateRange) ([]time.Time, error) {
	rows, err := r.q.Query(ctx, `
		SELECT DISTINCT date FROM holidays
		WHERE (site_id IS NULL OR site_id = $1) AND date BETWEEN $2 AND $3
		ORDER BY date
	`, siteID, sqlDate(rng.From), sqlDate(rng.To))
	if err != nil {
		return nil, readError("Holidays", err)
	}
	days, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (time.Time, error) {
		var d time.Time
		err := row.Scan(&d)
		return civil(d), err
	})
	if err != nil {
		return nil, readError("Holidays", err)
	}
	return days, nil
}

// Schedule returns the timetable of the weekday of day, valid on that date.
func (r *RegisterRepository) Schedule(ctx context.Context, day time.Time, siteID int64) ([]school.ScheduleSlot, error) {
	weekday := int(day.In(timeutil.SchoolTZ).Weekday())
	if weekday == 0 {
		weekday = 7
	}
	rows, err := r.q.Query(ctx, `
		SELECT ss.hour, ss.start_time, ss.end_time, ss.duration_minutes
		FROM schedule_slots ss JOIN schedules s ON s.id = ss.schedule_id
		WHERE s.site_id = $1 AND $2 BETWEEN s.start_date AND s.end_date AND ss.weekday = $3
		ORDER BY ss.hour
	`, siteID, sqlDate(day), weekday)
	if err != nil {
		return nil, readError("Schedule", err)
	}
	slots, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (school.ScheduleSlot, error) {
		var (
			s          school.ScheduleSlot
			start, end pgtype.Time
		)
		err := row.Scan(&s.Hour, &start, &end, &s.DurationMinutes)
		s.Start = clock(start)
		s.End = clock(end)
		return s, err
	})
	if err != nil {
		return nil, readError("Schedule", err)
	}
	return slots, nil
}

// SlotLessons returns the lessons held in one hour by any group of the class.
func (r *RegisterRepository) SlotLessons(ctx context.Context, scope school.Scope, hour int) ([]school.SlotLesson, error) {
	rows, err := r.q.Query(ctx, `
		SELECT l.hour, l.grp_type, l.grp, sub.name, l.topic, l.activity,
			ARRAY(
				SELECT t.first_name || ' ' || t.last_name
				FROM signatures f JOIN teachers t ON t.id = f.teacher_id
				WHERE f.lesson_id = l.id
				ORDER BY t.last_name, t.first_name
			)
		FROM lessons l
		JOIN classes lc ON lc.id = l.class_id
		JOIN subjects sub ON sub.id = l.subject_id
		WHERE l.date = $1 AND l.hour = $2 AND lc.year = $3 AND lc.section = $4
		ORDER BY l.grp, l.id
	`, sqlDate(scope.Day), hour, scope.Class.Year, scope.Class.Section)
	if err != nil {
		return nil, readError("SlotLessons", err)
	}
	lessons, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (school.SlotLesson, error) {
		var l school.SlotLesson
		err := row.Scan(&l.Hour, &l.GroupType, &l.Group, &l.SubjectName, &l.Topic, &l.Activity, &l.Teachers)
		return l, err
	})
	if err != nil {
		return nil, readError("SlotLessons", err)
	}
	return lessons, nil
}

// OutOfClass returns the out-of-class presences of the students on day.
func (r *RegisterRepository) OutOfClass(ctx context.Context, day time.Time, studentIDs []int64) ([]school.OutOfClass, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+studentColumns+`, p.start_time, p.end_time, p.kind, p.description
		FROM out_of_class p JOIN students st ON st.id = p.student_id
		WHERE p.date = $1 AND st.id = ANY($2)
		ORDER BY st.last_name, st.first_name, st.birth_date, p.start_time NULLS FIRST
	`, sqlDate(day), studentIDs)
	if err != nil {
		return nil, readError("OutOfClass", err)
	}
	defer rows.Close()

	var out []school.OutOfClass
	for rows.Next() {
		var (
			o          school.OutOfClass
			start, end pgtype.Time
		)
		st, err := scanStudent(rows, &start, &end, &o.Kind, &o.Description)
		if err != nil {
			return nil, readError("OutOfClass", err)
		}
		o.Student = st
		o.From = optionalClock(start)
		o.To = optionalClock(end)
		out = append(out, o)
	}
	return out, rows.Err()
}

// DailyAttendance returns the students absent, late or leaving early on day.
func (r *RegisterRepository) DailyAttendance(ctx context.Context, day time.Time, studentIDs []int64) ([]school.DailyAttendance, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+studentColumns+`,
			EXISTS (SELECT 1 FROM absences a WHERE a.student_id = st.id AND a.date = $1),
			(SELECT e.at FROM late_entries e WHERE e.student_id = st.id AND e.date = $1 LIMIT 1),
			(SELECT u.at FROM early_exits u WHERE u.student_id = st.id AND u.date = $1 LIMIT 1)
		FROM students st
		WHERE st.id = ANY($2)
		ORDER BY st.last_name, st.first_name, st.birth_date
	`, sqlDate(day), studentIDs)
	if err != nil {
		return nil, readError("DailyAttendance", err)
	}
	defer rows.Close()

	var out []school.DailyAttendance
	for rows.Next() {
		var (
			d          school.DailyAttendance
			late, exit pgtype.Time
		)
		st, err := scanStudent(rows, &d.Absent, &late, &exit)
		if err != nil {
			return nil, readError("DailyAttendance", err)
		}
		d.Student = st
		d.Late = optionalClock(late)
		d.EarlyExit = optionalClock(exit)
		if d.Absent || d.Late != nil || d.EarlyExit != nil {
			out = append(out, d)
		}
	}
	return out, rows.Err()
}

// Justifications returns, per student, the absence, late and exit dates justified on day.
func (r *RegisterRepository) Justifications(ctx context.Context, day time.Time, studentIDs []int64) ([]school.Justification, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+studentColumns+`, j.kind, j.date
		FROM students st
		JOIN (
			SELECT student_id, 'A' AS kind, date FROM absences WHERE justified_on = $1
			UNION ALL
			SELECT student_id, 'L', date FROM late_entries WHERE justified_on = $1
			UNION ALL
			SELECT student_id, 'E', date FROM early_exits WHERE justified_on = $1
		) j ON j.student_id = st.id
		WHERE st.id = ANY($2)
		ORDER BY st.last_name, st.first_name, st.birth_date, j.date
	`, sqlDate(day), studentIDs)
	if err != nil {
		return nil, readError("Justifications", err)
	}
	defer rows.Close()

	var out []school.Justification
	index := make(map[int64]int)
	for rows.Next() {
		var (
			kind string
			date time.Time
		)
		st, err := scanStudent(rows, &kind, &date)
		if err != nil {
			return nil, readError("Justifications", err)
		}
		i, ok := index[st.ID]
		if !ok {
			i = len(out)
			index[st.ID] = i
			out = append(out, school.Justification{Student: st})
		}
		date = civil(date)
		switch kind {
		case "A":
			out[i].Absences = append(out[i].Absences, date)
		case "L":
			out[i].Lates = append(out[i].Lates, date)
		default:
			out[i].Exits = append(out[i].Exits, date)
		}
	}
	return out, rows.Err()
}

const studentNames = `ARRAY(
	SELECT s2.last_name || ' ' || s2.first_name FROM students s2
	WHERE s2.id = ANY(%s.student_ids) ORDER BY s2.last_name, s2.first_name
)`

// Notes returns the disciplinary notes written for any group of the class on the day.
func (r *RegisterRepository) Notes(ctx context.Context, scope school.Scope) ([]school.DisciplinaryNote, error) {
	rows, err := r.q.Query(ctx, `
		SELECT c.grp, `+names("n")+`, n.text, t.first_name || ' ' || t.last_name,
			n.provision, COALESCE(pt.first_name || ' ' || pt.last_name, ''), n.cancelled
		FROM notes n
		JOIN classes c ON c.id = n.class_id
		JOIN teachers t ON t.id = n.teacher_id
		LEFT JOIN teachers pt ON pt.id = n.provision_teacher_id
		WHERE n.date = $1 AND c.year = $2 AND c.section = $3
		ORDER BY n.id
	`, sqlDate(scope.Day), scope.Class.Year, scope.Class.Section)
	if err != nil {
		return nil, readError("Notes", err)
	}
	notes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (school.DisciplinaryNote, error) {
		var n school.DisciplinaryNote
		err := row.Scan(&n.Group, &n.Students, &n.Text, &n.Teacher, &n.Provision, &n.ProvisionTeacher, &n.Cancelled)
		return n, err
	})
	if err != nil {
		return nil, readError("Notes", err)
	}
	return notes, nil
}

// Annotations returns the diary annotations of the class on the day.
func (r *RegisterRepository) Annotations(ctx context.Context, scope school.Scope) ([]school.Annotation, error) {
	rows, err := r.q.Query(ctx, `
		SELECT c.grp, a.recipients, `+names("a")+`, a.text, t.first_name || ' ' || t.last_name
		FROM annotations a
		JOIN classes c ON c.id = a.class_id
		JOIN teachers t ON t.id = a.teacher_id
		WHERE a.date = $1 AND c.year = $2 AND c.section = $3
		ORDER BY a.id
	`, sqlDate(scope.Day), scope.Class.Year, scope.Class.Section)
	if err != nil {
		return nil, readError("Annotations", err)
	}
	annotations, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (school.Annotation, error) {
		var a school.Annotation
		err := row.Scan(&a.Group, &a.Recipients, &a.Students, &a.Text, &a.Teacher)
		return a, err
	})
	if err != nil {
		return nil, readError("Annotations", err)
	}
	return annotations, nil
}

func names(alias string) string {
	return fmt.Sprintf(studentNames, alias)
}
