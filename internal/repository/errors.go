// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking manager to distinguish between different failure scenarios
// without inspecting driver specific errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a referenced row does not exist. Plain
// lookups still surface sql.ErrNoRows; ErrNotFound is used where a
// multi-step operation needs to report which step missed.
var ErrNotFound = errors.New("not found")

// ErrNotActive is returned when a registration that must be Active has
// already been canceled.
var ErrNotActive = errors.New("registration is not active")

// ErrSessionFull is returned when an exam location has no seats left.
var ErrSessionFull = errors.New("session is full")

// ErrDuplicateActive is returned when the store rejects a second
// Active registration for the same user and exam.
var ErrDuplicateActive = errors.New("active registration already exists")

// ErrCodeTaken is returned when another writer issued the same
// confirmation code first.
var ErrCodeTaken = errors.New("confirmation code already issued")

var ErrEmailExists = errors.New("email already exists")

// isUniqueViolation reports whether err is a duplicate key error from
// either supported driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "1062")
}

// classifyRegistrationInsert maps a duplicate key error raised by an
// insert into registrations onto the constraint that fired.
func classifyRegistrationInsert(err error) error {
	if !isUniqueViolation(err) {
		return err
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "confirmation_code") || strings.Contains(msg, "uq_registrations_code") {
		return ErrCodeTaken
	}
	return ErrDuplicateActive
}
