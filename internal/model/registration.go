package model

import "time"

// Registration statuses. A registration is created Active and moves to
// Canceled exactly once; it is never deleted or reactivated.
const (
	StatusActive   = "Active"
	StatusCanceled = "Canceled"
)

// Registration records a student's seat for an exam in a location at a
// given timeslot.
//
// Fields:
//
//	ID               – primary key identifier.
//	ConfirmationCode – human readable code such as CSN042, unique.
//	UserID           – student who owns the registration.
//	ExamID           – exam being taken.
//	TimeslotID       – hour block, 1..9.
//	LocationID       – testing room.
//	Status           – Active or Canceled.
//	CreatedAt        – creation timestamp (UTC).
type Registration struct {
	ID               uint64    // registrations.id
	ConfirmationCode string    // registrations.confirmation_code
	UserID           uint64    // registrations.user_id
	ExamID           uint64    // registrations.exam_id
	TimeslotID       int       // registrations.timeslot_id
	LocationID       uint64    // registrations.location_id
	Status           string    // registrations.status
	CreatedAt        time.Time // registrations.created_at
}

// IsActive reports whether the registration still holds a seat.
func (r Registration) IsActive() bool { return r.Status == StatusActive }
