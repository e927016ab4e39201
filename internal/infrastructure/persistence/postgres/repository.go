package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/classbook/register-archive/internal/domain/school"
	"github.com/classbook/register-archive/internal/domain/shared"
	"github.com/classbook/register-archive/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// RegisterRepository implements school.Store on top of pgx.
// The zero-transaction form reads through the pool; Snapshot hands out a
// copy bound to a read-only repeatable-read transaction.
type RegisterRepository struct {
	conn  *Connection
	q     Querier
	today func() time.Time
}

var _ school.Store = (*RegisterRepository)(nil)

// NewRegisterRepository creates a repository reading through the pool.
func NewRegisterRepository(conn *Connection) *RegisterRepository {
	return &RegisterRepository{conn: conn, q: conn, today: timeutil.Today}
}

// Snapshot runs fn against a repository bound to a read-only transaction,
// so that every section of one document sees the same data.
func (r *RegisterRepository) Snapshot(ctx context.Context, fn func(school.Store) error) error {
	return r.conn.InSnapshot(ctx, func(tx pgx.Tx) error {
		return fn(&RegisterRepository{conn: r.conn, q: tx, today: r.today})
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Teachers & Classes
// ─────────────────────────────────────────────────────────────────────────────

const classColumns = `c.id, c.year, c.section, c.grp, c.course, s.id, s.short_name`

func scanClass(row pgx.Row, extra ...any) (school.Class, error) {
	var c school.Class
	dest := append([]any{&c.ID, &c.Year, &c.Section, &c.Group, &c.Course, &c.Site.ID, &c.Site.ShortName}, extra...)
	err := row.Scan(dest...)
	return c, err
}

// TeacherByID returns the teacher.
func (r *RegisterRepository) TeacherByID(ctx context.Context, id int64) (*school.Teacher, error) {
	t := school.Teacher{}
	err := r.q.QueryRow(ctx,
		`SELECT id, first_name, last_name FROM teachers WHERE id = $1`, id,
	).Scan(&t.ID, &t.FirstName, &t.LastName)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.WrapError("postgres", "TeacherByID", shared.ErrNotFound,
				fmt.Sprintf("teacher %d", id), shared.ErrTeacherNotFound)
		}
		return nil, readError("TeacherByID", err)
	}
	return &t, nil
}

// ClassByID returns the class.
func (r *RegisterRepository) ClassByID(ctx context.Context, id int64) (*school.Class, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+classColumns+` FROM classes c JOIN sites s ON s.id = c.site_id WHERE c.id = $1`, id)
	c, err := scanClass(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.WrapError("postgres", "ClassByID", shared.ErrNotFound,
				fmt.Sprintf("class %d", id), shared.ErrClassNotFound)
		}
		return nil, readError("ClassByID", err)
	}
	return &c, nil
}

// ClassGroups returns the groups of a whole class, ordered by group name.
func (r *RegisterRepository) ClassGroups(ctx context.Context, class school.Class) ([]school.Class, error) {
	if class.IsGroup() {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+classColumns+`
		FROM classes c JOIN sites s ON s.id = c.site_id
		WHERE c.year = $1 AND c.section = $2 AND c.grp <> ''
		ORDER BY c.grp
	`, class.Year, class.Section)
	if err != nil {
		return nil, readError("ClassGroups", err)
	}
	defer rows.Close()

	var groups []school.Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, readError("ClassGroups", err)
		}
		groups = append(groups, c)
	}
	return groups, rows.Err()
}

// ClassIDs lists whole classes ordered by year and section.
func (r *RegisterRepository) ClassIDs(ctx context.Context) ([]int64, error) {
	return r.ids(ctx, "ClassIDs", `SELECT id FROM classes WHERE grp = '' ORDER BY year, section`)
}

// TeacherIDs lists enabled teachers holding an active assignment of the given kinds.
func (r *RegisterRepository) TeacherIDs(ctx context.Context, kinds []school.SubjectKind) ([]int64, error) {
	return r.ids(ctx, "TeacherIDs", `
		SELECT t.id FROM teachers t
		WHERE t.enabled AND EXISTS (
			SELECT 1 FROM assignments a JOIN subjects sub ON sub.id = a.subject_id
			WHERE a.teacher_id = t.id AND a.active AND sub.kind = ANY($1)
		)
		ORDER BY t.last_name, t.first_name, t.id
	`, kindCodes(kinds))
}

// Assignments lists the active assignments of a teacher for the given subject kinds.
func (r *RegisterRepository) Assignments(ctx context.Context, teacherID int64, kinds []school.SubjectKind) ([]school.Assignment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+classColumns+`,
			a.id, a.type, t.id, t.first_name, t.last_name,
			sub.id, sub.name, sub.short_name, sub.kind, sub.ord,
			st.id, st.last_name, st.first_name, st.birth_date, st.class_id, st.abroad, st.religion
		FROM assignments a
		JOIN teachers t ON t.id = a.teacher_id
		JOIN subjects sub ON sub.id = a.subject_id
		JOIN classes c ON c.id = a.class_id
		JOIN sites s ON s.id = c.site_id
		LEFT JOIN students st ON st.id = a.student_id
		WHERE a.teacher_id = $1 AND a.active AND sub.kind = ANY($2)
		ORDER BY c.year, c.section, c.grp, sub.ord, st.last_name NULLS FIRST, st.first_name, st.birth_date
	`, teacherID, kindCodes(kinds))
	if err != nil {
		return nil, readError("Assignments", err)
	}
	defer rows.Close()

	var out []school.Assignment
	for rows.Next() {
		var (
			a        school.Assignment
			typ      string
			kind     string
			stID     *int64
			stLast   *string
			stFirst  *string
			stBirth  *time.Time
			stClass  *int64
			stAbroad *bool
			stRel    *string
		)
		c, err := scanClass(rows,
			&a.ID, &typ, &a.Teacher.ID, &a.Teacher.FirstName, &a.Teacher.LastName,
			&a.Subject.ID, &a.Subject.Name, &a.Subject.ShortName, &kind, &a.Subject.Order,
			&stID, &stLast, &stFirst, &stBirth, &stClass, &stAbroad, &stRel,
		)
		if err != nil {
			return nil, readError("Assignments", err)
		}
		a.Class = c
		a.Subject.Kind = school.SubjectKind(kind)
		a.Type = school.AssignmentNormal
		if typ == string(school.AssignmentAlternative) {
			a.Type = school.AssignmentAlternative
		}
		if stID != nil {
			a.Student = &school.Student{
				ID:        *stID,
				LastName:  deref(stLast),
				FirstName: deref(stFirst),
				BirthDate: civil(deref(stBirth)),
				ClassID:   deref(stClass),
				Abroad:    deref(stAbroad),
				Religion:  deref(stRel),
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *RegisterRepository) ids(ctx context.Context, op, query string, args ...any) ([]int64, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, readError(op, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, readError(op, err)
	}
	return ids, nil
}

func readError(op string, err error) error {
	return shared.WrapError("postgres", op, shared.ErrStorage, "query failed", err)
}

func kindCodes(kinds []school.SubjectKind) []string {
	codes := make([]string, len(kinds))
	for i, k := range kinds {
		codes[i] = string(k)
	}
	return codes
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// civil moves a DATE value (decoded as UTC midnight) to midnight in the school timezone.
func civil(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return timeutil.Date(t.Year(), int(t.Month()), t.Day())
}

// sqlDate encodes the civil date of t for a DATE parameter.
func sqlDate(t time.Time) time.Time {
	local := t.In(timeutil.SchoolTZ)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

func clock(t pgtype.Time) time.Time {
	return timeutil.Clock(0, 0).Add(time.Duration(t.Microseconds) * time.Microsecond)
}

func optionalClock(t pgtype.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	c := clock(t)
	return &c
}
