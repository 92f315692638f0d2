package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/exam-registration/internal/model"
)

// RegistrationRow is a registration joined with everything a listing
// shows: student, course, exam, professor and room.
type RegistrationRow struct {
	ID               uint64  `json:"id"`
	ConfirmationCode string  `json:"confirmation_code"`
	Status           string  `json:"status"`
	UserID           uint64  `json:"user_id"`
	StudentName      string  `json:"student_name"`
	StudentEmail     string  `json:"student_email"`
	ExamID           uint64  `json:"exam_id"`
	CourseCode       string  `json:"course_code"`
	CourseName       string  `json:"course_name"`
	ExamType         string  `json:"exam_type"`
	ExamDate         string  `json:"exam_date"`
	TimeslotID       int     `json:"timeslot_id"`
	StartTime        *string `json:"start_time"`
	EndTime          *string `json:"end_time"`
	ProfessorName    string  `json:"professor_name"`
	LocationID       uint64  `json:"location_id"`
	Campus           string  `json:"campus"`
	Building         string  `json:"building"`
	Room             string  `json:"room"`
	Location         string  `json:"location"`
	CreatedAt        string  `json:"created_at"`
}

const registrationRowSelect = `SELECT
		r.id,
		r.confirmation_code,
		r.status,
		r.user_id,
		u.name,
		u.email,
		r.exam_id,
		c.course_code,
		c.course_name,
		e.exam_type,
		e.exam_date,
		r.timeslot_id,
		pu.name,
		l.id,
		l.name,
		COALESCE((SELECT MIN(b.name) FROM buildings b WHERE b.location_id = l.id), '') AS building_name,
		l.room_number,
		r.created_at
	FROM registrations r
	JOIN users u      ON u.id = r.user_id
	JOIN exams e      ON e.id = r.exam_id
	JOIN courses c    ON c.id = e.course_id
	JOIN professors p ON p.id = e.professor_id
	JOIN users pu     ON pu.id = p.user_id
	JOIN locations l  ON l.id = r.location_id`

func scanRegistrationRow(rs rowScanner) (RegistrationRow, error) {
	var (
		d       RegistrationRow
		date    dbTime
		created dbTime
	)
	if err := rs.Scan(
		&d.ID,
		&d.ConfirmationCode,
		&d.Status,
		&d.UserID,
		&d.StudentName,
		&d.StudentEmail,
		&d.ExamID,
		&d.CourseCode,
		&d.CourseName,
		&d.ExamType,
		&date,
		&d.TimeslotID,
		&d.ProfessorName,
		&d.LocationID,
		&d.Campus,
		&d.Building,
		&d.Room,
		&created,
	); err != nil {
		return RegistrationRow{}, err
	}
	d.ExamDate = date.dateString()
	if created.Valid {
		d.CreatedAt = timestamp(created.Time)
	}
	if s, e, ok := model.TimeslotByID(d.TimeslotID); ok {
		d.StartTime, d.EndTime = &s, &e
	}
	d.Location = model.FormatLocationLabel(d.Campus, d.Building, d.Room)
	return d, nil
}

// GetDetail returns the joined view of one registration or
// sql.ErrNoRows.
func (r *RegistrationRepo) GetDetail(ctx context.Context, id uint64) (RegistrationRow, error) {
	row := r.db.QueryRowContext(ctx, registrationRowSelect+` WHERE r.id = ?`, id)
	return scanRegistrationRow(row)
}

func (r *RegistrationRepo) listRows(ctx context.Context, f *Filter, orderBy string, limit int) ([]RegistrationRow, error) {
	cond, args := f.SQL()
	q := registrationRowSelect + "\n\tWHERE " + cond + "\n\tORDER BY " + orderBy
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []RegistrationRow{}
	for rows.Next() {
		d, err := scanRegistrationRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchLimit bounds the faculty search result size.
const SearchLimit = 500

// FacultySearch matches term against the student name, exam type,
// confirmation code, course code and professor name. A blank term
// lists every registration.
func (r *RegistrationRepo) FacultySearch(ctx context.Context, term string) ([]RegistrationRow, error) {
	f := &Filter{}
	f.LikeAny(term, "u.name", "e.exam_type", "r.confirmation_code", "c.course_code", "pu.name")
	return r.listRows(ctx, f, "e.exam_date ASC, r.timeslot_id ASC, r.id ASC", SearchLimit)
}

// LogFilter narrows the printable registration log. Dates are
// YYYY-MM-DD and inclusive; empty fields are ignored.
type LogFilter struct {
	StartDate string
	EndDate   string
	Exam      string
	Status    string
}

// PrintLog lists registrations for the faculty log, ordered for
// printing by date, time, campus, building, room and student.
func (r *RegistrationRepo) PrintLog(ctx context.Context, lf LogFilter) ([]RegistrationRow, error) {
	f := &Filter{}
	f.WhereIf(lf.StartDate != "", "e.exam_date >= ?", lf.StartDate)
	f.WhereIf(lf.EndDate != "", "e.exam_date <= ?", lf.EndDate)
	f.LikeAny(lf.Exam, "e.exam_type", "c.course_code", "c.course_name")
	switch strings.ToLower(strings.TrimSpace(lf.Status)) {
	case "active":
		f.Where("r.status = ?", model.StatusActive)
	case "canceled", "cancelled":
		f.Where("r.status = ?", model.StatusCanceled)
	}
	return r.listRows(ctx, f,
		"e.exam_date ASC, r.timeslot_id ASC, l.name ASC, building_name ASC, l.room_number ASC, u.name ASC", 0)
}

// AppointmentFilter narrows a student's own registrations.
type AppointmentFilter struct {
	Query     string
	StartDate string
	EndDate   string
}

// StudentAppointments lists the user's registrations, newest exam
// first.
func (r *RegistrationRepo) StudentAppointments(ctx context.Context, userID uint64, af AppointmentFilter) ([]RegistrationRow, error) {
	f := &Filter{}
	f.Where("r.user_id = ?", userID)
	f.LikeAny(af.Query, "c.course_code", "c.course_name", "e.exam_type", "r.confirmation_code")
	f.WhereIf(af.StartDate != "", "e.exam_date >= ?", af.StartDate)
	f.WhereIf(af.EndDate != "", "e.exam_date <= ?", af.EndDate)
	return r.listRows(ctx, f, "e.exam_date DESC, r.timeslot_id DESC, r.id DESC", 0)
}
