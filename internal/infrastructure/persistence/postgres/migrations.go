package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Migration is one versioned schema step.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator applies the embedded migrations and records them in schema_migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a migrator with the embedded school schema.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, m.tableName)

	if _, err := m.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.conn.Query(ctx, fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = appliedAt
	}
	return applied, rows.Err()
}

// Migrate applies all pending migrations, each in its own transaction.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		err := m.conn.InTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}
			_, err := tx.Exec(ctx,
				fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName),
				mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
	}
	return nil
}

// Rollback reverts the last applied migration.
func (m *Migrator) Rollback(ctx context.Context) error {
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}

	var last int
	for v := range applied {
		last = max(last, v)
	}
	if last == 0 {
		return nil
	}

	var mig *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == last {
			mig = &m.migrations[i]
		}
	}
	if mig == nil || mig.DownSQL == "" {
		return fmt.Errorf("%w: missing down SQL for migration %d", ErrMigrationFailed, last)
	}

	return m.conn.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, mig.DownSQL); err != nil {
			return fmt.Errorf("failed to rollback migration %d: %w", last, err)
		}
		_, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE version = $1", m.tableName), last)
		return err
	})
}

// Status returns every embedded migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Migration, len(m.migrations))
	copy(result, m.migrations)
	for i := range result {
		if at, ok := applied[result[i].Version]; ok {
			result[i].IsApplied = true
			result[i].AppliedAt = at
		}
	}
	return result, nil
}

// GetMigrations returns the embedded school schema.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_school", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_lessons", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_diary", UpSQL: migration003Up, DownSQL: migration003Down},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: SCHOOL, CLASSES, STUDENTS, ASSIGNMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS sites (
    id BIGSERIAL PRIMARY KEY,
    short_name VARCHAR(64) NOT NULL
);

CREATE TABLE IF NOT EXISTS teachers (
    id BIGSERIAL PRIMARY KEY,
    first_name VARCHAR(64) NOT NULL,
    last_name VARCHAR(64) NOT NULL,
    enabled BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS classes (
    id BIGSERIAL PRIMARY KEY,
    year SMALLINT NOT NULL,
    section VARCHAR(8) NOT NULL,
    grp VARCHAR(64) NOT NULL DEFAULT '',
    course VARCHAR(128) NOT NULL,
    site_id BIGINT NOT NULL REFERENCES sites(id),
    CONSTRAINT uniq_class UNIQUE (year, section, grp)
);

CREATE TABLE IF NOT EXISTS subjects (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(128) NOT NULL,
    short_name VARCHAR(32) NOT NULL,
    kind CHAR(1) NOT NULL,
    ord SMALLINT NOT NULL DEFAULT 0,
    CONSTRAINT valid_kind CHECK (kind IN ('N', 'R', 'E', 'S', 'U', 'C'))
);

CREATE TABLE IF NOT EXISTS students (
    id BIGSERIAL PRIMARY KEY,
    last_name VARCHAR(64) NOT NULL,
    first_name VARCHAR(64) NOT NULL,
    birth_date DATE NOT NULL,
    class_id BIGINT REFERENCES classes(id),
    abroad BOOLEAN NOT NULL DEFAULT FALSE,
    religion CHAR(1) NOT NULL DEFAULT 'S',
    enabled BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_students_class ON students(class_id);
CREATE INDEX IF NOT EXISTS idx_students_name ON students(last_name, first_name, birth_date);

-- class_id NULL means the student left the school for the period
CREATE TABLE IF NOT EXISTS class_changes (
    id BIGSERIAL PRIMARY KEY,
    student_id BIGINT NOT NULL REFERENCES students(id),
    class_id BIGINT REFERENCES classes(id),
    start_date DATE NOT NULL,
    end_date DATE NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_class_changes_student ON class_changes(student_id, start_date, end_date);

CREATE TABLE IF NOT EXISTS assignments (
    id BIGSERIAL PRIMARY KEY,
    teacher_id BIGINT NOT NULL REFERENCES teachers(id),
    subject_id BIGINT NOT NULL REFERENCES subjects(id),
    class_id BIGINT NOT NULL REFERENCES classes(id),
    student_id BIGINT REFERENCES students(id),
    type CHAR(1) NOT NULL DEFAULT 'N',
    active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_assignments_teacher ON assignments(teacher_id) WHERE active;
`

const migration001Down = `
DROP TABLE IF EXISTS assignments;
DROP TABLE IF EXISTS class_changes;
DROP TABLE IF EXISTS students;
DROP TABLE IF EXISTS subjects;
DROP TABLE IF EXISTS classes;
DROP TABLE IF EXISTS teachers;
DROP TABLE IF EXISTS sites;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: LESSONS, ABSENCES, GRADES, OBSERVATIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- a lesson belongs to a whole class (grp_type N), a religion group (R) or a class group (C)
CREATE TABLE IF NOT EXISTS lessons (
    id BIGSERIAL PRIMARY KEY,
    date DATE NOT NULL,
    hour SMALLINT NOT NULL,
    class_id BIGINT NOT NULL REFERENCES classes(id),
    grp_type CHAR(1) NOT NULL DEFAULT 'N',
    grp VARCHAR(64) NOT NULL DEFAULT '',
    subject_id BIGINT NOT NULL REFERENCES subjects(id),
    topic TEXT NOT NULL DEFAULT '',
    activity TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_lessons_class_date ON lessons(class_id, date, hour);

CREATE TABLE IF NOT EXISTS signatures (
    lesson_id BIGINT NOT NULL REFERENCES lessons(id),
    teacher_id BIGINT NOT NULL REFERENCES teachers(id),
    PRIMARY KEY (lesson_id, teacher_id)
);

CREATE TABLE IF NOT EXISTS support_signatures (
    lesson_id BIGINT NOT NULL REFERENCES lessons(id),
    teacher_id BIGINT NOT NULL REFERENCES teachers(id),
    student_id BIGINT NOT NULL REFERENCES students(id),
    topic TEXT NOT NULL DEFAULT '',
    activity TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (lesson_id, teacher_id, student_id)
);

CREATE TABLE IF NOT EXISTS lesson_absences (
    lesson_id BIGINT NOT NULL REFERENCES lessons(id),
    student_id BIGINT NOT NULL REFERENCES students(id),
    hours NUMERIC(4,2) NOT NULL,
    PRIMARY KEY (lesson_id, student_id),
    CONSTRAINT valid_hours CHECK (hours > 0)
);

CREATE TABLE IF NOT EXISTS grades (
    id BIGSERIAL PRIMARY KEY,
    lesson_id BIGINT NOT NULL REFERENCES lessons(id),
    teacher_id BIGINT NOT NULL REFERENCES teachers(id),
    subject_id BIGINT NOT NULL REFERENCES subjects(id),
    student_id BIGINT NOT NULL REFERENCES students(id),
    type CHAR(1) NOT NULL,
    score NUMERIC(4,2) NOT NULL DEFAULT 0,
    prompt TEXT NOT NULL DEFAULT '',
    remark TEXT NOT NULL DEFAULT '',
    counts_average BOOLEAN NOT NULL DEFAULT TRUE,
    visible BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_grades_lesson ON grades(lesson_id);
CREATE INDEX IF NOT EXISTS idx_grades_teacher_subject ON grades(teacher_id, subject_id);

-- period is the scrutiny code (P, S, F) or G/R for suspended judgement
CREATE TABLE IF NOT EXISTS proposed_grades (
    id BIGSERIAL PRIMARY KEY,
    student_id BIGINT NOT NULL REFERENCES students(id),
    class_id BIGINT NOT NULL REFERENCES classes(id),
    subject_id BIGINT NOT NULL REFERENCES subjects(id),
    teacher_id BIGINT NOT NULL REFERENCES teachers(id),
    period CHAR(1) NOT NULL,
    value SMALLINT NOT NULL,
    debt TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_proposed_grades_lookup ON proposed_grades(class_id, subject_id, period);

-- student_id NULL marks a personal remark of the teacher on the class
CREATE TABLE IF NOT EXISTS observations (
    id BIGSERIAL PRIMARY KEY,
    assignment_id BIGINT NOT NULL REFERENCES assignments(id),
    student_id BIGINT REFERENCES students(id),
    date DATE NOT NULL,
    text TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_observations_assignment ON observations(assignment_id, date);
`

const migration002Down = `
DROP TABLE IF EXISTS observations;
DROP TABLE IF EXISTS proposed_grades;
DROP TABLE IF EXISTS grades;
DROP TABLE IF EXISTS lesson_absences;
DROP TABLE IF EXISTS support_signatures;
DROP TABLE IF EXISTS signatures;
DROP TABLE IF EXISTS lessons;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CLASS DIARY
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- site_id NULL applies to every site
CREATE TABLE IF NOT EXISTS holidays (
    date DATE NOT NULL,
    site_id BIGINT REFERENCES sites(id),
    description VARCHAR(128) NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS schedules (
    id BIGSERIAL PRIMARY KEY,
    site_id BIGINT NOT NULL REFERENCES sites(id),
    start_date DATE NOT NULL,
    end_date DATE NOT NULL
);

-- weekday follows ISO numbering, 1 = Monday
CREATE TABLE IF NOT EXISTS schedule_slots (
    schedule_id BIGINT NOT NULL REFERENCES schedules(id),
    weekday SMALLINT NOT NULL,
    hour SMALLINT NOT NULL,
    start_time TIME NOT NULL,
    end_time TIME NOT NULL,
    duration_minutes INTEGER NOT NULL,
    PRIMARY KEY (schedule_id, weekday, hour)
);

CREATE TABLE IF NOT EXISTS out_of_class (
    id BIGSERIAL PRIMARY KEY,
    student_id BIGINT NOT NULL REFERENCES students(id),
    date DATE NOT NULL,
    start_time TIME,
    end_time TIME,
    kind CHAR(1) NOT NULL,
    description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS absences (
    id BIGSERIAL PRIMARY KEY,
    student_id BIGINT NOT NULL REFERENCES students(id),
    date DATE NOT NULL,
    justified_on DATE
);

CREATE TABLE IF NOT EXISTS late_entries (
    id BIGSERIAL PRIMARY KEY,
    student_id BIGINT NOT NULL REFERENCES students(id),
    date DATE NOT NULL,
    at TIME NOT NULL,
    justified_on DATE
);

CREATE TABLE IF NOT EXISTS early_exits (
    id BIGSERIAL PRIMARY KEY,
    student_id BIGINT NOT NULL REFERENCES students(id),
    date DATE NOT NULL,
    at TIME NOT NULL,
    justified_on DATE
);

CREATE INDEX IF NOT EXISTS idx_absences_date ON absences(date);
CREATE INDEX IF NOT EXISTS idx_late_entries_date ON late_entries(date);
CREATE INDEX IF NOT EXISTS idx_early_exits_date ON early_exits(date);

CREATE TABLE IF NOT EXISTS notes (
    id BIGSERIAL PRIMARY KEY,
    date DATE NOT NULL,
    class_id BIGINT NOT NULL REFERENCES classes(id),
    student_ids BIGINT[] NOT NULL DEFAULT '{}',
    text TEXT NOT NULL,
    teacher_id BIGINT NOT NULL REFERENCES teachers(id),
    provision TEXT NOT NULL DEFAULT '',
    provision_teacher_id BIGINT REFERENCES teachers(id),
    cancelled BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS annotations (
    id BIGSERIAL PRIMARY KEY,
    date DATE NOT NULL,
    class_id BIGINT NOT NULL REFERENCES classes(id),
    recipients VARCHAR(128) NOT NULL DEFAULT '',
    student_ids BIGINT[] NOT NULL DEFAULT '{}',
    text TEXT NOT NULL,
    teacher_id BIGINT NOT NULL REFERENCES teachers(id)
);

CREATE INDEX IF NOT EXISTS idx_notes_class_date ON notes(class_id, date);
CREATE INDEX IF NOT EXISTS idx_annotations_class_date ON annotations(class_id, date);
`

const migration003Down = `
DROP TABLE IF EXISTS annotations;
DROP TABLE IF EXISTS notes;
DROP TABLE IF EXISTS early_exits;
DROP TABLE IF EXISTS late_entries;
DROP TABLE IF EXISTS absences;
DROP TABLE IF EXISTS out_of_class;
DROP TABLE IF EXISTS schedule_slots;
DROP TABLE IF EXISTS schedules;
DROP TABLE IF EXISTS holidays;
`
