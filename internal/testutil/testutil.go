// Package testutil builds throwaway SQLite databases with a small campus
// fixture for package tests.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/exam-registration/internal/database"
)

// Password is the plain password of every fixture user.
const Password = "password"

// Fixture holds the ids seeded by Seed.
type Fixture struct {
	StudentAna uint64
	StudentBen uint64
	FacultyZed uint64
	FacultyAmy uint64

	// Exams: Midterm CS101 and Final MA201 on 2030-05-10, Quiz PH110 on
	// 2030-05-12, Lab CH120 on 2030-05-13. Zed proctors Midterm and Quiz,
	// Amy proctors Final and Lab.
	ExamMidterm uint64
	ExamFinal   uint64
	ExamQuiz    uint64
	ExamLab     uint64

	// North Campus (Science Hall, Room 101) and South Campus (Library,
	// Room 202).
	North uint64
	South uint64
}

// Capacities seeded into exam_locations.
const (
	CapMidtermNorth = 2
	CapMidtermSouth = 1
	CapOther        = 5
)

// NewDB opens a migrated SQLite database in t.TempDir().
func NewDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "exam.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.DriverSQLite))
	return db
}

// Seed inserts the campus fixture and returns its ids.
func Seed(t testing.TB, db *sql.DB) Fixture {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	stmts := []struct {
		q    string
		args []any
	}{
		{`INSERT INTO departments (id, name) VALUES (1, 'Sciences')`, nil},
		{`INSERT INTO majors (id, name, department_id) VALUES (1, 'Computer Science', 1)`, nil},
		{`INSERT INTO users (id, name, email, password_hash, role, department_id, major_id) VALUES
			(1, 'Ana Lopez', 'ana@campus.edu', ?, 'STUDENT', 1, 1),
			(2, 'Ben Carter', 'ben@campus.edu', ?, 'STUDENT', 1, 1),
			(3, 'Zed Moore', 'zed@campus.edu', ?, 'FACULTY', 1, NULL),
			(4, 'Amy Brooks', 'amy@campus.edu', ?, 'FACULTY', 1, NULL)`,
			[]any{string(hash), string(hash), string(hash), string(hash)}},
		{`INSERT INTO professors (id, user_id, title) VALUES (1, 3, 'Dr.'), (2, 4, 'Prof.')`, nil},
		{`INSERT INTO courses (id, course_code, course_name, department_id) VALUES
			(1, 'CS101', 'Intro to Programming', 1),
			(2, 'MA201', 'Linear Algebra', 1),
			(3, 'PH110', 'Physics I', 1),
			(4, 'CH120', 'Chemistry I', 1)`, nil},
		{`INSERT INTO locations (id, name, room_number) VALUES (1, 'North Campus', '101'), (2, 'South Campus', '202')`, nil},
		{`INSERT INTO buildings (id, name, location_id) VALUES (1, 'Science Hall', 1), (2, 'Library', 2)`, nil},
		{`INSERT INTO exams (id, exam_type, course_id, exam_date, professor_id, timeslot_id) VALUES
			(1, 'Midterm', 1, '2030-05-10', 1, 1),
			(2, 'Final', 2, '2030-05-10', 2, 2),
			(3, 'Quiz', 3, '2030-05-12', 1, 3),
			(4, 'Lab', 4, '2030-05-13', 2, 4)`, nil},
		{`INSERT INTO exam_locations (exam_id, location_id, capacity) VALUES
			(1, 1, ?), (1, 2, ?), (2, 1, ?), (3, 1, ?), (4, 2, ?)`,
			[]any{CapMidtermNorth, CapMidtermSouth, CapOther, CapOther, CapOther}},
	}
	ctx := context.Background()
	for _, s := range stmts {
		_, err := db.ExecContext(ctx, s.q, s.args...)
		require.NoError(t, err, s.q)
	}

	return Fixture{
		StudentAna:  1,
		StudentBen:  2,
		FacultyZed:  3,
		FacultyAmy:  4,
		ExamMidterm: 1,
		ExamFinal:   2,
		ExamQuiz:    3,
		ExamLab:     4,
		North:       1,
		South:       2,
	}
}
