package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/classbook/register-archive/internal/domain/school"
	"github.com/classbook/register-archive/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LESSONS & GRADES
// ══════════════════════════════════════════════════════════════════════════════

// lessonSource is the FROM/WHERE part selecting the confirmed lessons of a scope.
type lessonSource struct {
	from    string
	support string
	args    []any
}

// sourceFor builds the lesson selection of an ordinary or support scope.
// Ordinary lessons are confirmed by the teacher's signature; support lessons
// by a support signature naming both the teacher and the student, and they
// include every lesson of the whole class except other groups' lessons.
// Either way a lesson counts only if it sits in an hour of the timetable of
// the class's site valid on its date.
func sourceFor(scope school.Scope, rng school.DateRange) (lessonSource, error) {
	a := scope.Assignment
	switch scope.Kind {
	case school.ScopeAssignment:
		src := lessonSource{
			from: `
				FROM lessons l
				JOIN signatures f ON f.lesson_id = l.id AND f.teacher_id = $1
				JOIN subjects sub ON sub.id = l.subject_id` + timetableJoin(6) + `
				WHERE l.class_id = $2 AND l.subject_id = $3 AND l.date BETWEEN $4 AND $5`,
			support: `'', ''`,
			args: []any{a.Teacher.ID, a.Class.ID, a.Subject.ID, sqlDate(rng.From), sqlDate(rng.To),
				a.Class.Site.ID},
		}
		if a.Subject.Kind == school.SubjectReligion {
			group := school.ReligionAttends
			if a.Type == school.AssignmentAlternative {
				group = school.ReligionAlternative
			}
			src.from += ` AND (l.grp_type <> 'R' OR l.grp = $7)`
			src.args = append(src.args, group)
		}
		return src, nil

	case school.ScopeSupport:
		return lessonSource{
			from: `
				FROM lessons l
				JOIN classes lc ON lc.id = l.class_id
				JOIN support_signatures fs ON fs.lesson_id = l.id AND fs.teacher_id = $1 AND fs.student_id = $2
				JOIN subjects sub ON sub.id = l.subject_id` + timetableJoin(8) + `
				WHERE lc.year = $3 AND lc.section = $4 AND (l.grp_type <> 'C' OR l.grp = $5)
					AND l.date BETWEEN $6 AND $7`,
			support: `fs.topic, fs.activity`,
			args: []any{a.Teacher.ID, a.Student.ID, a.Class.Year, a.Class.Section, a.Class.Group,
				sqlDate(rng.From), sqlDate(rng.To), a.Class.Site.ID},
		}, nil
	}
	return lessonSource{}, shared.WrapError("postgres", "sourceFor", shared.ErrInvalidInput,
		fmt.Sprintf("scope %s has no lessons", scope.Kind), nil)
}

// timetableJoin matches a lesson with its timetable hour; $n is the site.
func timetableJoin(n int) string {
	return fmt.Sprintf(`
				JOIN schedules sc ON sc.site_id = $%d AND l.date BETWEEN sc.start_date AND sc.end_date
				JOIN schedule_slots ss ON ss.schedule_id = sc.id AND ss.hour = l.hour
					AND ss.weekday = EXTRACT(ISODOW FROM l.date)`, n)
}

// ConfirmedMinutes sums the timetable duration of the confirmed lessons.
func (r *RegisterRepository) ConfirmedMinutes(ctx context.Context, scope school.Scope, rng school.DateRange) (int, error) {
	src, err := sourceFor(scope, rng)
	if err != nil {
		return 0, err
	}
	var minutes int
	if err := r.q.QueryRow(ctx, `SELECT COALESCE(SUM(ss.duration_minutes), 0)`+src.from, src.args...).Scan(&minutes); err != nil {
		return 0, readError("ConfirmedMinutes", err)
	}
	return minutes, nil
}

// ConfirmedLessons lists the confirmed lessons ordered by date and hour.
func (r *RegisterRepository) ConfirmedLessons(ctx context.Context, scope school.Scope, rng school.DateRange) ([]school.Lesson, error) {
	src, err := sourceFor(scope, rng)
	if err != nil {
		return nil, err
	}
	query := strings.Join([]string{
		`SELECT l.id, l.date, l.hour, ss.duration_minutes, l.topic, l.activity, sub.short_name,`,
		src.support,
		src.from,
		`ORDER BY l.date, l.hour`,
	}, " ")

	rows, err := r.q.Query(ctx, query, src.args...)
	if err != nil {
		return nil, readError("ConfirmedLessons", err)
	}
	lessons, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (school.Lesson, error) {
		var l school.Lesson
		err := row.Scan(&l.ID, &l.Date, &l.Hour, &l.DurationMinutes, &l.Topic, &l.Activity,
			&l.SubjectShortName, &l.SupportTopic, &l.SupportActivity)
		l.Date = civil(l.Date)
		return l, err
	})
	if err != nil {
		return nil, readError("ConfirmedLessons", err)
	}
	return lessons, nil
}

// AbsencesForLesson lists absence hours per student; studentID 0 means every student.
func (r *RegisterRepository) AbsencesForLesson(ctx context.Context, lessonID, studentID int64) ([]school.Absence, error) {
	rows, err := r.q.Query(ctx, `
		SELECT student_id, hours::float8 FROM lesson_absences
		WHERE lesson_id = $1 AND ($2 = 0 OR student_id = $2)
		ORDER BY student_id
	`, lessonID, studentID)
	if err != nil {
		return nil, readError("AbsencesForLesson", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (school.Absence, error) {
		var a school.Absence
		err := row.Scan(&a.StudentID, &a.Hours)
		return a, err
	})
	if err != nil {
		return nil, readError("AbsencesForLesson", err)
	}
	return out, nil
}

const gradeColumns = `g.id, g.student_id, l.date, g.type, g.score::float8, g.prompt, g.remark, g.counts_average, g.visible, sub.name`

func (r *RegisterRepository) grades(ctx context.Context, op, query string, args ...any) ([]school.Grade, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, readError(op, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (school.Grade, error) {
		var (
			g   school.Grade
			typ string
		)
		err := row.Scan(&g.ID, &g.StudentID, &g.Date, &typ, &g.Score, &g.Prompt, &g.Remark,
			&g.CountsTowardAverage, &g.Visible, &g.SubjectName)
		g.Type = school.GradeType(typ)
		g.Date = civil(g.Date)
		return g, err
	})
	if err != nil {
		return nil, readError(op, err)
	}
	return out, nil
}

// GradesForLesson lists the grades a teacher gave for a subject in one lesson.
func (r *RegisterRepository) GradesForLesson(ctx context.Context, lessonID, teacherID, subjectID int64) ([]school.Grade, error) {
	return r.grades(ctx, "GradesForLesson", `
		SELECT `+gradeColumns+`
		FROM grades g
		JOIN lessons l ON l.id = g.lesson_id
		JOIN subjects sub ON sub.id = l.subject_id
		WHERE g.lesson_id = $1 AND g.teacher_id = $2 AND g.subject_id = $3
		ORDER BY g.id
	`, lessonID, teacherID, subjectID)
}

// GradesForAssignment lists every grade of the assignment, including those
// given in lessons of another subject, ordered by date.
func (r *RegisterRepository) GradesForAssignment(ctx context.Context, a school.Assignment, rng school.DateRange) ([]school.Grade, error) {
	return r.grades(ctx, "GradesForAssignment", `
		SELECT `+gradeColumns+`
		FROM grades g
		JOIN lessons l ON l.id = g.lesson_id
		JOIN signatures f ON f.lesson_id = l.id AND f.teacher_id = $1
		JOIN subjects sub ON sub.id = l.subject_id
		WHERE g.teacher_id = $1 AND g.subject_id = $2 AND l.class_id = $3 AND l.date BETWEEN $4 AND $5
		ORDER BY l.date, l.hour, g.id
	`, a.Teacher.ID, a.Subject.ID, a.Class.ID, sqlDate(rng.From), sqlDate(rng.To))
}

// GradesInOtherLessons counts grades of the assignment given in lessons of another subject.
func (r *RegisterRepository) GradesInOtherLessons(ctx context.Context, a school.Assignment, rng school.DateRange) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(g.id)
		FROM grades g
		JOIN lessons l ON l.id = g.lesson_id
		JOIN signatures f ON f.lesson_id = l.id AND f.teacher_id = $1
		WHERE g.teacher_id = $1 AND g.subject_id = $2 AND l.class_id = $3
			AND l.subject_id <> $2 AND l.date BETWEEN $4 AND $5
	`, a.Teacher.ID, a.Subject.ID, a.Class.ID, sqlDate(rng.From), sqlDate(rng.To)).Scan(&n)
	if err != nil {
		return 0, readError("GradesInOtherLessons", err)
	}
	return n, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// OBSERVATIONS
// ══════════════════════════════════════════════════════════════════════════════

// StudentObservations are ordered by date then student name.
func (r *RegisterRepository) StudentObservations(ctx context.Context, assignmentID int64, rng school.DateRange) ([]school.Observation, error) {
	rows, err := r.q.Query(ctx, `
		SELECT o.date, o.text, `+studentColumns+`
		FROM observations o JOIN students st ON st.id = o.student_id
		WHERE o.assignment_id = $1 AND o.date BETWEEN $2 AND $3
		ORDER BY o.date, st.last_name, st.first_name, st.birth_date, o.id
	`, assignmentID, sqlDate(rng.From), sqlDate(rng.To))
	if err != nil {
		return nil, readError("StudentObservations", err)
	}
	defer rows.Close()

	var out []school.Observation
	for rows.Next() {
		var o school.Observation
		var st school.Student
		if err := rows.Scan(&o.Date, &o.Text, &st.ID, &st.LastName, &st.FirstName, &st.BirthDate,
			&st.ClassID, &st.Abroad, &st.Religion); err != nil {
			return nil, readError("StudentObservations", err)
		}
		o.Date = civil(o.Date)
		st.BirthDate = civil(st.BirthDate)
		o.Student = &st
		out = append(out, o)
	}
	return out, rows.Err()
}

// ClassObservations are the teacher's personal remarks, ordered by date.
func (r *RegisterRepository) ClassObservations(ctx context.Context, assignmentID int64, rng school.DateRange) ([]school.Observation, error) {
	rows, err := r.q.Query(ctx, `
		SELECT date, text FROM observations
		WHERE assignment_id = $1 AND student_id IS NULL AND date BETWEEN $2 AND $3
		ORDER BY date, id
	`, assignmentID, sqlDate(rng.From), sqlDate(rng.To))
	if err != nil {
		return nil, readError("ClassObservations", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (school.Observation, error) {
		var o school.Observation
		err := row.Scan(&o.Date, &o.Text)
		o.Date = civil(o.Date)
		return o, err
	})
	if err != nil {
		return nil, readError("ClassObservations", err)
	}
	return out, nil
}
