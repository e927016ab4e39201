package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/classbook/register-archive/internal/domain/school"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENTS, MEMBERSHIP & PROPOSALS
// ══════════════════════════════════════════════════════════════════════════════

const studentColumns = `st.id, st.last_name, st.first_name, st.birth_date, COALESCE(st.class_id, 0), st.abroad, st.religion`

func scanStudent(row pgx.Row, extra ...any) (school.Student, error) {
	var s school.Student
	dest := append([]any{&s.ID, &s.LastName, &s.FirstName, &s.BirthDate, &s.ClassID, &s.Abroad, &s.Religion}, extra...)
	if err := row.Scan(dest...); err != nil {
		return s, err
	}
	s.BirthDate = civil(s.BirthDate)
	return s, nil
}

// StudentsOrdered returns the students ordered by last name, first name and birth date.
func (r *RegisterRepository) StudentsOrdered(ctx context.Context, ids []int64) ([]school.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+studentColumns+`
		FROM students st
		WHERE st.id = ANY($1)
		ORDER BY st.last_name, st.first_name, st.birth_date
	`, ids)
	if err != nil {
		return nil, readError("StudentsOrdered", err)
	}
	defer rows.Close()

	var out []school.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, readError("StudentsOrdered", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// StudentsInClass resolves the students enrolled in class on day.
//
// A whole class split into groups is the union of its groups. From today on
// the current enrolment is authoritative; for past dates the class-change
// history decides. Students attending abroad are never members.
func (r *RegisterRepository) StudentsInClass(ctx context.Context, day time.Time, class school.Class) ([]int64, error) {
	if !class.IsGroup() {
		groups, err := r.ClassGroups(ctx, class)
		if err != nil {
			return nil, err
		}
		if len(groups) > 0 {
			seen := make(map[int64]struct{})
			var ids []int64
			for _, g := range groups {
				members, err := r.StudentsInClass(ctx, day, g)
				if err != nil {
					return nil, err
				}
				for _, id := range members {
					if _, ok := seen[id]; !ok {
						seen[id] = struct{}{}
						ids = append(ids, id)
					}
				}
			}
			return r.orderIDs(ctx, ids)
		}
	}

	if !day.Before(r.today()) {
		return r.ids(ctx, "StudentsInClass", `
			SELECT st.id FROM students st
			WHERE st.class_id = $1 AND st.enabled AND NOT st.abroad
			ORDER BY st.last_name, st.first_name, st.birth_date
		`, class.ID)
	}

	return r.ids(ctx, "StudentsInClass", `
		SELECT st.id FROM students st
		WHERE NOT st.abroad AND (
			(st.class_id = $1 AND NOT EXISTS (
				SELECT 1 FROM class_changes cc
				WHERE cc.student_id = st.id AND $2 BETWEEN cc.start_date AND cc.end_date
					AND (cc.class_id IS NULL OR cc.class_id <> $1)
			))
			OR EXISTS (
				SELECT 1 FROM class_changes cc
				WHERE cc.student_id = st.id AND $2 BETWEEN cc.start_date AND cc.end_date
					AND cc.class_id = $1
			)
		)
		ORDER BY st.last_name, st.first_name, st.birth_date
	`, class.ID, sqlDate(day))
}

func (r *RegisterRepository) orderIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.ids(ctx, "StudentsInClass", `
		SELECT st.id FROM students st WHERE st.id = ANY($1)
		ORDER BY st.last_name, st.first_name, st.birth_date
	`, ids)
}

// ProposedGrades returns the proposals of one scrutiny; teacherID 0 matches any teacher.
func (r *RegisterRepository) ProposedGrades(ctx context.Context, ids []int64, classID, subjectID, teacherID int64, scrutiny string) ([]school.ProposedGrade, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.proposals(ctx, "ProposedGrades", `
		SELECT student_id, value, period, debt FROM proposed_grades
		WHERE student_id = ANY($1) AND class_id = $2 AND subject_id = $3 AND period = $4
			AND ($5 = 0 OR teacher_id = $5)
		ORDER BY student_id
	`, ids, classID, subjectID, scrutiny, teacherID)
}

// DeferredProposals returns the suspended-judgement proposals of a teacher, period G first.
func (r *RegisterRepository) DeferredProposals(ctx context.Context, teacherID, classID, subjectID int64) ([]school.ProposedGrade, error) {
	return r.proposals(ctx, "DeferredProposals", `
		SELECT pg.student_id, pg.value, pg.period, pg.debt
		FROM proposed_grades pg JOIN students st ON st.id = pg.student_id
		WHERE pg.teacher_id = $1 AND pg.class_id = $2 AND pg.subject_id = $3
			AND pg.period IN ('`+school.ProposalSuspended+`', '`+school.ProposalResit+`')
		ORDER BY pg.period, st.last_name, st.first_name, st.birth_date
	`, teacherID, classID, subjectID)
}

func (r *RegisterRepository) proposals(ctx context.Context, op, query string, args ...any) ([]school.ProposedGrade, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, readError(op, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (school.ProposedGrade, error) {
		var p school.ProposedGrade
		err := row.Scan(&p.StudentID, &p.Value, &p.Period, &p.Debt)
		return p, err
	})
	if err != nil {
		return nil, readError(op, err)
	}
	return out, nil
}
