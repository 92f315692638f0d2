// Package queue defines message payloads exchanged over the message broker
// and the consumer that delivers them.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/exam-registration/internal/booking"
)

// ConfirmationQueue is the durable queue carrying confirmed registrations.
const ConfirmationQueue = "registration.confirmed"

// RegistrationConfirmedEvent is published when a registration is created
// or rescheduled. It carries everything the consumer needs to email the
// student without querying the primary database.
type RegistrationConfirmedEvent struct {
	EventID      string               `json:"event_id"`
	OccurredAt   string               `json:"occurred_at"`
	Registration booking.Confirmation `json:"registration"`
}

// NewRegistrationConfirmed stamps c with a fresh event id.
func NewRegistrationConfirmed(c booking.Confirmation) RegistrationConfirmedEvent {
	return RegistrationConfirmedEvent{
		EventID:      uuid.NewString(),
		OccurredAt:   time.Now().UTC().Format(time.RFC3339),
		Registration: c,
	}
}
