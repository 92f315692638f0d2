package booking

import "time"

// Policy holds the tunable booking rules. It is loaded from the YAML
// policy file; zero fields fall back to DefaultPolicy.
type Policy struct {
	// MaxActivePerStudent caps simultaneous Active registrations of a
	// student. Reschedules are not counted against it.
	MaxActivePerStudent int `yaml:"max_active_per_student"`
	// EnforceCapacityOnConfirm re-checks seat capacity inside the
	// booking transaction.
	EnforceCapacityOnConfirm bool `yaml:"enforce_capacity_on_confirm"`
	// CodeRetries is how many extra attempts a booking gets when a
	// concurrent writer takes the same confirmation code.
	CodeRetries int `yaml:"code_retries"`
	// BookingWindowDays is how far ahead the calendar offers dates.
	BookingWindowDays int `yaml:"booking_window_days"`
	// NotifyTimeout bounds a confirmation notification.
	NotifyTimeout time.Duration `yaml:"notify_timeout"`
}

// DefaultPolicy returns the stock campus rules.
func DefaultPolicy() Policy {
	return Policy{
		MaxActivePerStudent:      3,
		EnforceCapacityOnConfirm: true,
		CodeRetries:              3,
		BookingWindowDays:        180,
		NotifyTimeout:            5 * time.Second,
	}
}

// withDefaults fills unset numeric fields from DefaultPolicy.
func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxActivePerStudent <= 0 {
		p.MaxActivePerStudent = d.MaxActivePerStudent
	}
	if p.CodeRetries < 0 {
		p.CodeRetries = 0
	}
	if p.BookingWindowDays <= 0 {
		p.BookingWindowDays = d.BookingWindowDays
	}
	if p.NotifyTimeout <= 0 {
		p.NotifyTimeout = d.NotifyTimeout
	}
	return p
}
