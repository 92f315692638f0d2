// Package booking implements the exam registration rules: listing
// sessions with free seats, reviewing a choice, confirming or
// rescheduling a registration and canceling one.
package booking

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/iliyamo/exam-registration/internal/model"
	"github.com/iliyamo/exam-registration/internal/repository"
)

// SessionStore reads exam sessions and their seat usage.
type SessionStore interface {
	ListSessions(ctx context.Context) ([]repository.SessionRow, error)
	GetSession(ctx context.Context, examID, locationID uint64) (repository.SessionRow, error)
}

// RegistrationStore is the persistence the manager needs for
// registrations.
type RegistrationStore interface {
	GetByID(ctx context.Context, id uint64) (model.Registration, error)
	GetDetail(ctx context.Context, id uint64) (repository.RegistrationRow, error)
	CountActiveByUser(ctx context.Context, userID uint64) (int, error)
	CountActiveByUserExam(ctx context.Context, userID, examID, excludeID uint64) (int, error)
	Book(ctx context.Context, p repository.BookParams) (model.Registration, error)
	Cancel(ctx context.Context, id uint64) error
	FacultySearch(ctx context.Context, term string) ([]repository.RegistrationRow, error)
	PrintLog(ctx context.Context, f repository.LogFilter) ([]repository.RegistrationRow, error)
	StudentAppointments(ctx context.Context, userID uint64, f repository.AppointmentFilter) ([]repository.RegistrationRow, error)
}

// Notifier delivers a confirmation to the student. Delivery is best
// effort; the manager only logs its errors.
type Notifier interface {
	NotifyConfirmation(ctx context.Context, c Confirmation) error
}

// Caller is the authenticated user on whose behalf an operation runs.
type Caller struct {
	UserID uint64
	Role   string
	Name   string
	Email  string
}

// IsFaculty reports whether the caller may act on any registration.
func (c Caller) IsFaculty() bool { return c.Role == model.RoleFaculty }

// Manager applies the booking rules on top of the stores.
type Manager struct {
	sessions SessionStore
	regs     RegistrationStore
	notifier Notifier
	policy   Policy
	logger   *slog.Logger
	now      func() time.Time
}

// NewManager wires a Manager. notifier may be nil.
func NewManager(sessions SessionStore, regs RegistrationStore, notifier Notifier, policy Policy) *Manager {
	return &Manager{
		sessions: sessions,
		regs:     regs,
		notifier: notifier,
		policy:   policy.withDefaults(),
		logger:   slog.Default().With("component", "booking"),
		now:      time.Now,
	}
}

// Policy returns the effective rules.
func (m *Manager) Policy() Policy { return m.policy }

// SessionList is the student booking calendar.
type SessionList struct {
	Sessions  []repository.SessionRow `json:"sessions"`
	Dates     []string                `json:"dates"`
	Timeslots []model.Timeslot        `json:"timeslots"`
	MinDate   string                  `json:"min_date"`
	MaxDate   string                  `json:"max_date"`
}

// ListSessions returns the sessions that still have seats, ordered by
// exam date, professor name and location id, together with the
// distinct exam dates and the calendar window.
func (m *Manager) ListSessions(ctx context.Context) (SessionList, error) {
	rows, err := m.sessions.ListSessions(ctx)
	if err != nil {
		m.logger.Error("list sessions", "err", err)
		return SessionList{}, transient(err)
	}

	open := make([]repository.SessionRow, 0, len(rows))
	for _, r := range rows {
		if r.Remaining > 0 {
			open = append(open, r)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		a, b := open[i], open[j]
		if a.ExamDate != b.ExamDate {
			return a.ExamDate < b.ExamDate
		}
		if a.ProfessorName != b.ProfessorName {
			return a.ProfessorName < b.ProfessorName
		}
		return a.LocationID < b.LocationID
	})

	dates := []string{}
	seen := map[string]bool{}
	for _, s := range open {
		if !seen[s.ExamDate] {
			seen[s.ExamDate] = true
			dates = append(dates, s.ExamDate)
		}
	}

	today := m.now().UTC()
	return SessionList{
		Sessions:  open,
		Dates:     dates,
		Timeslots: model.Timeslots(),
		MinDate:   today.Format(model.DateLayout),
		MaxDate:   today.AddDate(0, 0, m.policy.BookingWindowDays).Format(model.DateLayout),
	}, nil
}

// ReviewInput is a student's tentative choice. Zero ids mean missing.
type ReviewInput struct {
	ExamID                  uint64
	LocationID              uint64
	TimeslotID              int
	ReplacingRegistrationID uint64
}

// Review is the summary shown before confirming.
type Review struct {
	ExamID                  uint64  `json:"exam_id"`
	ExamType                string  `json:"exam_type"`
	ExamDate                string  `json:"exam_date"`
	CourseCode              string  `json:"course_code"`
	ProfessorName           string  `json:"professor_name"`
	LocationID              uint64  `json:"location_id"`
	LocationName            string  `json:"location_name"`
	RoomNumber              string  `json:"room_number"`
	TimeslotID              int     `json:"timeslot_id"`
	StartTime               *string `json:"start_time"`
	EndTime                 *string `json:"end_time"`
	RemainingSeats          int     `json:"remaining_seats"`
	ReplacingRegistrationID uint64  `json:"replacing_registration_id,omitempty"`
}

// Review resolves the chosen exam, location and timeslot without
// writing anything. An unknown timeslot leaves the times empty.
func (m *Manager) Review(ctx context.Context, caller Caller, in ReviewInput) (Review, error) {
	if in.ExamID == 0 || in.LocationID == 0 || in.TimeslotID == 0 {
		return Review{}, validation("exam, location and timeslot are required")
	}
	if in.ReplacingRegistrationID != 0 {
		if _, err := m.ownedRegistration(ctx, caller, in.ReplacingRegistrationID); err != nil {
			return Review{}, err
		}
	}

	s, err := m.sessions.GetSession(ctx, in.ExamID, in.LocationID)
	if errors.Is(err, sql.ErrNoRows) {
		return Review{}, notFound("exam is not offered at this location")
	}
	if err != nil {
		m.logger.Error("review lookup", "exam_id", in.ExamID, "location_id", in.LocationID, "err", err)
		return Review{}, transient(err)
	}

	rv := Review{
		ExamID:                  s.ExamID,
		ExamType:                s.ExamType,
		ExamDate:                s.ExamDate,
		CourseCode:              s.CourseCode,
		ProfessorName:           s.ProfessorName,
		LocationID:              s.LocationID,
		LocationName:            s.LocationName,
		RoomNumber:              s.RoomNumber,
		TimeslotID:              in.TimeslotID,
		RemainingSeats:          s.Remaining,
		ReplacingRegistrationID: in.ReplacingRegistrationID,
	}
	if start, end, ok := model.TimeslotByID(in.TimeslotID); ok {
		rv.StartTime, rv.EndTime = &start, &end
	}
	return rv, nil
}

// ConfirmInput is the final booking request. ReplacingRegistrationID
// turns the booking into a reschedule of that registration.
type ConfirmInput struct {
	ExamID                  uint64
	TimeslotID              int
	LocationID              uint64
	ReplacingRegistrationID uint64
}

// Confirmation describes a committed registration. It is returned to
// the caller and handed to the Notifier.
type Confirmation struct {
	RegistrationID         uint64  `json:"registration_id"`
	ConfirmationCode       string  `json:"confirmation_code"`
	Status                 string  `json:"status"`
	StudentName            string  `json:"student_name"`
	Email                  string  `json:"email"`
	CourseCode             string  `json:"course_code"`
	ExamType               string  `json:"exam_type"`
	ExamDate               string  `json:"exam_date"`
	StartTime              *string `json:"start_time"`
	EndTime                *string `json:"end_time"`
	ProfessorName          string  `json:"professor_name"`
	Location               string  `json:"location"`
	ReplacedRegistrationID uint64  `json:"replaced_registration_id,omitempty"`
}

// Confirm creates a registration, or replaces one when
// ReplacingRegistrationID is set. The old registration is canceled in
// the same transaction as the insert.
func (m *Manager) Confirm(ctx context.Context, caller Caller, in ConfirmInput) (Confirmation, error) {
	if in.ExamID == 0 || in.LocationID == 0 || in.TimeslotID == 0 {
		return Confirmation{}, validation("exam, location and timeslot are required")
	}
	if !model.ValidTimeslot(in.TimeslotID) {
		return Confirmation{}, validation("timeslot must be between 1 and 9")
	}
	log := m.logger.With("user_id", caller.UserID, "exam_id", in.ExamID, "location_id", in.LocationID)

	if in.ReplacingRegistrationID != 0 {
		old, err := m.ownedRegistration(ctx, caller, in.ReplacingRegistrationID)
		if err != nil {
			return Confirmation{}, err
		}
		if !old.IsActive() {
			return Confirmation{}, validation("only active registrations can be rescheduled")
		}
	} else {
		n, err := m.regs.CountActiveByUser(ctx, caller.UserID)
		if err != nil {
			log.Error("count active registrations", "err", err)
			return Confirmation{}, transient(err)
		}
		if n >= m.policy.MaxActivePerStudent {
			return Confirmation{}, capacity("you already hold the maximum number of active registrations")
		}
	}

	dup, err := m.regs.CountActiveByUserExam(ctx, caller.UserID, in.ExamID, in.ReplacingRegistrationID)
	if err != nil {
		log.Error("count duplicate registrations", "err", err)
		return Confirmation{}, transient(err)
	}
	if dup > 0 {
		return Confirmation{}, duplicate("you are already registered for this exam")
	}

	params := repository.BookParams{
		UserID:          caller.UserID,
		ExamID:          in.ExamID,
		LocationID:      in.LocationID,
		TimeslotID:      in.TimeslotID,
		ReplacingID:     in.ReplacingRegistrationID,
		EnforceCapacity: m.policy.EnforceCapacityOnConfirm,
	}
	reg, err := m.book(ctx, log, params)
	if err != nil {
		return Confirmation{}, err
	}
	log.Info("registration confirmed", "registration_id", reg.ID, "code", reg.ConfirmationCode,
		"replaced_registration_id", in.ReplacingRegistrationID)

	conf := m.confirmation(ctx, caller, reg)
	conf.ReplacedRegistrationID = in.ReplacingRegistrationID
	m.notify(ctx, conf)
	return conf, nil
}

// book runs the booking transaction, retrying when another writer took
// the same confirmation code.
func (m *Manager) book(ctx context.Context, log *slog.Logger, p repository.BookParams) (model.Registration, error) {
	for attempt := 0; ; attempt++ {
		p.Now = m.now()
		reg, err := m.regs.Book(ctx, p)
		switch {
		case err == nil:
			return reg, nil
		case errors.Is(err, repository.ErrCodeTaken):
			if attempt < m.policy.CodeRetries && ctx.Err() == nil {
				log.Warn("confirmation code taken, retrying", "attempt", attempt+1)
				continue
			}
			log.Error("confirmation code retries exhausted", "attempts", attempt+1)
			return model.Registration{}, transient(err)
		case errors.Is(err, repository.ErrDuplicateActive):
			return model.Registration{}, duplicate("you are already registered for this exam")
		case errors.Is(err, repository.ErrSessionFull):
			return model.Registration{}, capacity("this session is full")
		case errors.Is(err, repository.ErrNotFound):
			return model.Registration{}, notFound("exam is not offered at this location")
		case errors.Is(err, repository.ErrNotActive):
			return model.Registration{}, validation("only active registrations can be rescheduled")
		default:
			log.Error("booking transaction failed", "err", err)
			return model.Registration{}, transient(err)
		}
	}
}

// confirmation loads the committed registration's details. A failed
// lookup still yields the core fields; the booking itself stands.
func (m *Manager) confirmation(ctx context.Context, caller Caller, reg model.Registration) Confirmation {
	c := Confirmation{
		RegistrationID:   reg.ID,
		ConfirmationCode: reg.ConfirmationCode,
		Status:           reg.Status,
		StudentName:      caller.Name,
		Email:            caller.Email,
	}
	if s, e, ok := model.TimeslotByID(reg.TimeslotID); ok {
		c.StartTime, c.EndTime = &s, &e
	}
	d, err := m.regs.GetDetail(ctx, reg.ID)
	if err != nil {
		m.logger.Warn("load registration details", "registration_id", reg.ID, "err", err)
		return c
	}
	c.CourseCode = d.CourseCode
	c.ExamType = d.ExamType
	c.ExamDate = d.ExamDate
	c.ProfessorName = d.ProfessorName
	c.Location = d.Location
	if c.StudentName == "" {
		c.StudentName = d.StudentName
	}
	if c.Email == "" {
		c.Email = d.StudentEmail
	}
	return c
}

func (m *Manager) notify(ctx context.Context, c Confirmation) {
	if m.notifier == nil {
		return
	}
	if c.Email == "" {
		m.logger.Warn("confirmation not sent, no recipient", "registration_id", c.RegistrationID)
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.policy.NotifyTimeout)
	defer cancel()
	if err := m.notifier.NotifyConfirmation(nctx, c); err != nil {
		m.logger.Warn("confirmation notification failed", "registration_id", c.RegistrationID, "err", err)
	}
}

// CancelResult reports the outcome of a cancel. AlreadyCanceled marks
// the no-op case.
type CancelResult struct {
	RegistrationID   uint64 `json:"registration_id"`
	ConfirmationCode string `json:"confirmation_code"`
	Status           string `json:"status"`
	AlreadyCanceled  bool   `json:"already_canceled"`
	Message          string `json:"message"`
}

// Cancel cancels a registration. Students may only cancel their own;
// faculty may cancel any. Canceling twice is not an error.
func (m *Manager) Cancel(ctx context.Context, caller Caller, registrationID uint64) (CancelResult, error) {
	reg, err := m.lookup(ctx, registrationID)
	if err != nil {
		return CancelResult{}, err
	}
	if !caller.IsFaculty() && reg.UserID != caller.UserID {
		return CancelResult{}, notFound("registration not found")
	}

	res := CancelResult{RegistrationID: reg.ID, ConfirmationCode: reg.ConfirmationCode, Status: model.StatusCanceled}
	if !reg.IsActive() {
		res.AlreadyCanceled = true
		res.Message = "registration is already canceled"
		return res, nil
	}

	switch err := m.regs.Cancel(ctx, reg.ID); {
	case err == nil:
		res.Message = "registration canceled"
	case errors.Is(err, repository.ErrNotActive):
		res.AlreadyCanceled = true
		res.Message = "registration is already canceled"
	default:
		m.logger.Error("cancel registration", "registration_id", reg.ID, "err", err)
		return CancelResult{}, transient(err)
	}
	m.logger.Info("registration canceled", "registration_id", reg.ID, "by", caller.UserID,
		"role", caller.Role, "already_canceled", res.AlreadyCanceled)
	return res, nil
}

// RescheduleTicket is handed back by StartReschedule. The caller passes
// ReplacingRegistrationID to Review and Confirm.
type RescheduleTicket struct {
	Registration            repository.RegistrationRow `json:"registration"`
	ReplacingRegistrationID uint64                     `json:"replacing_registration_id"`
}

// StartReschedule checks that the registration exists, belongs to the
// caller and is still Active. It changes nothing.
func (m *Manager) StartReschedule(ctx context.Context, caller Caller, registrationID uint64) (RescheduleTicket, error) {
	reg, err := m.ownedRegistration(ctx, caller, registrationID)
	if err != nil {
		return RescheduleTicket{}, err
	}
	if !reg.IsActive() {
		return RescheduleTicket{}, validation("only active registrations can be rescheduled")
	}
	d, err := m.regs.GetDetail(ctx, reg.ID)
	if err != nil {
		m.logger.Error("load registration details", "registration_id", reg.ID, "err", err)
		return RescheduleTicket{}, transient(err)
	}
	return RescheduleTicket{Registration: d, ReplacingRegistrationID: reg.ID}, nil
}

// FacultySearch finds registrations by student, exam, code, course or
// professor.
func (m *Manager) FacultySearch(ctx context.Context, term string) ([]repository.RegistrationRow, error) {
	rows, err := m.regs.FacultySearch(ctx, term)
	if err != nil {
		m.logger.Error("faculty search", "err", err)
		return nil, transient(err)
	}
	return rows, nil
}

// PrintLog lists registrations for the printable faculty log.
func (m *Manager) PrintLog(ctx context.Context, f repository.LogFilter) ([]repository.RegistrationRow, error) {
	if f.StartDate != "" && f.EndDate != "" && f.StartDate > f.EndDate {
		return nil, validation("start date must not be after end date")
	}
	rows, err := m.regs.PrintLog(ctx, f)
	if err != nil {
		m.logger.Error("print log", "err", err)
		return nil, transient(err)
	}
	return rows, nil
}

// MyAppointments lists the caller's own registrations.
func (m *Manager) MyAppointments(ctx context.Context, caller Caller, f repository.AppointmentFilter) ([]repository.RegistrationRow, error) {
	if f.StartDate != "" && f.EndDate != "" && f.StartDate > f.EndDate {
		return nil, validation("start date must not be after end date")
	}
	rows, err := m.regs.StudentAppointments(ctx, caller.UserID, f)
	if err != nil {
		m.logger.Error("student appointments", "user_id", caller.UserID, "err", err)
		return nil, transient(err)
	}
	return rows, nil
}

func (m *Manager) lookup(ctx context.Context, id uint64) (model.Registration, error) {
	if id == 0 {
		return model.Registration{}, validation("registration id is required")
	}
	reg, err := m.regs.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Registration{}, notFound("registration not found")
	}
	if err != nil {
		m.logger.Error("load registration", "registration_id", id, "err", err)
		return model.Registration{}, transient(err)
	}
	return reg, nil
}

// ownedRegistration loads a registration that must belong to the
// caller. Someone else's registration reads as not found.
func (m *Manager) ownedRegistration(ctx context.Context, caller Caller, id uint64) (model.Registration, error) {
	reg, err := m.lookup(ctx, id)
	if err != nil {
		return model.Registration{}, err
	}
	if reg.UserID != caller.UserID {
		return model.Registration{}, notFound("registration not found")
	}
	return reg, nil
}
