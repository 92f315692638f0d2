package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/exam-registration/internal/model"
)

// RegistrationRepo provides the write path for registrations and the
// lookups the booking manager needs around it. All timestamps are
// stored in UTC.
type RegistrationRepo struct {
	db *sql.DB
	// lock is appended to the capacity read so concurrent bookings of
	// the same session serialize on MySQL. SQLite runs a single writer
	// and needs no row lock.
	lock string
}

// NewRegistrationRepo returns a new RegistrationRepo bound to the given
// database. driver selects dialect specific row locking.
func NewRegistrationRepo(db *sql.DB, driver string) *RegistrationRepo {
	r := &RegistrationRepo{db: db}
	if driver == "" || driver == "mysql" {
		r.lock = " FOR UPDATE"
	}
	return r
}

// DB exposes the handle for callers that need their own transaction.
func (r *RegistrationRepo) DB() *sql.DB { return r.db }

const registrationColumns = `id, confirmation_code, user_id, exam_id, timeslot_id, location_id, status, created_at`

func scanRegistration(rs rowScanner) (model.Registration, error) {
	var (
		reg     model.Registration
		created dbTime
	)
	err := rs.Scan(&reg.ID, &reg.ConfirmationCode, &reg.UserID, &reg.ExamID,
		&reg.TimeslotID, &reg.LocationID, &reg.Status, &created)
	if err != nil {
		return model.Registration{}, err
	}
	reg.CreatedAt = created.Time
	return reg, nil
}

// GetByID returns a registration or sql.ErrNoRows.
func (r *RegistrationRepo) GetByID(ctx context.Context, id uint64) (model.Registration, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = ? LIMIT 1`, id)
	return scanRegistration(row)
}

// CountActiveByUser counts the user's Active registrations.
func (r *RegistrationRepo) CountActiveByUser(ctx context.Context, userID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE user_id = ? AND status = 'Active'`,
		userID).Scan(&n)
	return n, err
}

// CountActiveByUserExam counts the user's Active registrations for one
// exam, ignoring excludeID (zero ignores nothing).
func (r *RegistrationRepo) CountActiveByUserExam(ctx context.Context, userID, examID, excludeID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations
		 WHERE user_id = ? AND exam_id = ? AND status = 'Active' AND id <> ?`,
		userID, examID, excludeID).Scan(&n)
	return n, err
}

// BookParams describes a registration to create. When ReplacingID is
// set the referenced registration is canceled in the same transaction.
type BookParams struct {
	UserID          uint64
	ExamID          uint64
	LocationID      uint64
	TimeslotID      int
	ReplacingID     uint64
	EnforceCapacity bool
	Now             time.Time
}

// Book creates a new Active registration with the next confirmation
// code. Canceling the replaced registration, the session check, code
// allocation and the insert commit together or not at all.
//
// Errors: ErrNotActive when the replaced registration is no longer
// Active for the user, ErrNotFound when the exam is not offered in the
// location, ErrSessionFull, ErrCodeTaken when a concurrent writer won
// the code, ErrDuplicateActive when the active (user, exam) constraint
// fires. Anything else is a store failure.
func (r *RegistrationRepo) Book(ctx context.Context, p BookParams) (model.Registration, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Registration{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if p.ReplacingID != 0 {
		if err := r.cancelOwnedTx(ctx, tx, p.ReplacingID, p.UserID); err != nil {
			return model.Registration{}, err
		}
	}

	if err := r.checkSessionTx(ctx, tx, p.ExamID, p.LocationID, p.EnforceCapacity); err != nil {
		return model.Registration{}, err
	}

	code, err := r.nextCodeTx(ctx, tx)
	if err != nil {
		return model.Registration{}, err
	}

	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC().Truncate(time.Second)

	res, err := tx.ExecContext(ctx,
		`INSERT INTO registrations (confirmation_code, user_id, exam_id, timeslot_id, location_id, status, created_at)
		 VALUES (?, ?, ?, ?, ?, 'Active', ?)`,
		code, p.UserID, p.ExamID, p.TimeslotID, p.LocationID, timestamp(now))
	if err != nil {
		return model.Registration{}, classifyRegistrationInsert(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Registration{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Registration{}, err
	}
	committed = true

	return model.Registration{
		ID:               uint64(id),
		ConfirmationCode: code,
		UserID:           p.UserID,
		ExamID:           p.ExamID,
		TimeslotID:       p.TimeslotID,
		LocationID:       p.LocationID,
		Status:           model.StatusActive,
		CreatedAt:        now,
	}, nil
}

func (r *RegistrationRepo) cancelOwnedTx(ctx context.Context, tx *sql.Tx, id, userID uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE registrations SET status = 'Canceled' WHERE id = ? AND user_id = ? AND status = 'Active'`,
		id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotActive
	}
	return nil
}

// checkSessionTx requires the exam to be offered at the location and,
// when enforceCapacity is set, to have a free seat.
func (r *RegistrationRepo) checkSessionTx(ctx context.Context, tx *sql.Tx, examID, locationID uint64, enforceCapacity bool) error {
	var capacity int
	err := tx.QueryRowContext(ctx,
		`SELECT capacity FROM exam_locations WHERE exam_id = ? AND location_id = ?`+r.lock,
		examID, locationID).Scan(&capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if !enforceCapacity {
		return nil
	}
	var used int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE exam_id = ? AND location_id = ? AND status = 'Active'`,
		examID, locationID).Scan(&used); err != nil {
		return err
	}
	if used >= capacity {
		return ErrSessionFull
	}
	return nil
}

// nextCodeTx returns the code after the highest numeric suffix issued
// so far. Codes that do not parse as CSN<digits> are ignored. Two
// writers may read the same maximum; the unique constraint rejects the
// loser with ErrCodeTaken.
func (r *RegistrationRepo) nextCodeTx(ctx context.Context, tx *sql.Tx) (string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT confirmation_code FROM registrations WHERE confirmation_code LIKE ?`,
		model.ConfirmationPrefix+"%")
	if err != nil {
		return "", err
	}
	defer rows.Close()

	highest := 0
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return "", err
		}
		if n, ok := model.ParseConfirmationCode(code); ok && n > highest {
			highest = n
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return model.FormatConfirmationCode(highest + 1), nil
}

// Cancel flips an Active registration to Canceled. It returns
// ErrNotActive when the registration was already canceled and
// sql.ErrNoRows when it does not exist.
func (r *RegistrationRepo) Cancel(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE registrations SET status = 'Canceled' WHERE id = ? AND status = 'Active'`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrNotActive
}
