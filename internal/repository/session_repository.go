package repository

import (
	"context"
	"database/sql"
)

// SessionRepo reads bookable exam sessions. A session is one exam in
// one location; its capacity lives in exam_locations.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// SessionRow describes an exam session together with its seat usage.
// UsedSeats counts Active registrations only.
type SessionRow struct {
	ExamID        uint64 `json:"exam_id"`
	ExamType      string `json:"exam_type"`
	ExamDate      string `json:"exam_date"`
	CourseCode    string `json:"course_code"`
	CourseName    string `json:"course_name"`
	ProfessorName string `json:"professor_name"`
	LocationID    uint64 `json:"location_id"`
	LocationName  string `json:"location_name"`
	BuildingName  string `json:"building_name"`
	RoomNumber    string `json:"room_number"`
	Capacity      int    `json:"capacity"`
	UsedSeats     int    `json:"used_seats"`
	Remaining     int    `json:"remaining"`
}

const sessionSelect = `SELECT
		e.id,
		e.exam_type,
		e.exam_date,
		c.course_code,
		c.course_name,
		pu.name,
		el.location_id,
		l.name,
		COALESCE((SELECT MIN(b.name) FROM buildings b WHERE b.location_id = l.id), '') AS building_name,
		l.room_number,
		el.capacity,
		(SELECT COUNT(*) FROM registrations r
			WHERE r.exam_id = el.exam_id AND r.location_id = el.location_id AND r.status = 'Active') AS used_seats
	FROM exam_locations el
	JOIN exams e      ON e.id = el.exam_id
	JOIN courses c    ON c.id = e.course_id
	JOIN professors p ON p.id = e.professor_id
	JOIN users pu     ON pu.id = p.user_id
	JOIN locations l  ON l.id = el.location_id`

// ListSessions returns every exam session, full ones included, ordered
// by exam date, professor name and location id.
func (r *SessionRepo) ListSessions(ctx context.Context) ([]SessionRow, error) {
	rows, err := r.db.QueryContext(ctx, sessionSelect+`
	ORDER BY e.exam_date ASC, pu.name ASC, el.location_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSession loads a single exam/location pair. sql.ErrNoRows means the
// exam is not offered in that location.
func (r *SessionRepo) GetSession(ctx context.Context, examID, locationID uint64) (SessionRow, error) {
	row := r.db.QueryRowContext(ctx, sessionSelect+`
	WHERE el.exam_id = ? AND el.location_id = ?`, examID, locationID)
	return scanSession(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(rs rowScanner) (SessionRow, error) {
	var (
		s    SessionRow
		date dbTime
	)
	if err := rs.Scan(
		&s.ExamID,
		&s.ExamType,
		&date,
		&s.CourseCode,
		&s.CourseName,
		&s.ProfessorName,
		&s.LocationID,
		&s.LocationName,
		&s.BuildingName,
		&s.RoomNumber,
		&s.Capacity,
		&s.UsedSeats,
	); err != nil {
		return SessionRow{}, err
	}
	s.ExamDate = date.dateString()
	s.Remaining = s.Capacity - s.UsedSeats
	return s, nil
}
