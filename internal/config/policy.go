package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/exam-registration/internal/booking"
)

// LoadPolicy reads the booking policy YAML at path over the defaults.
// An empty path returns the defaults. Environment variables in the file
// are expanded.
//
//	max_active_per_student: 3
//	enforce_capacity_on_confirm: true
//	code_retries: 3
//	booking_window_days: 180
//	notify_timeout: 5s
func LoadPolicy(path string) (booking.Policy, error) {
	p := booking.DefaultPolicy()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return booking.Policy{}, fmt.Errorf("reading policy file: %w", err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &p); err != nil {
		return booking.Policy{}, fmt.Errorf("parsing policy file: %w", err)
	}
	if p.MaxActivePerStudent < 1 {
		return booking.Policy{}, fmt.Errorf("policy: max_active_per_student must be at least 1, got %d", p.MaxActivePerStudent)
	}
	if p.CodeRetries < 0 {
		return booking.Policy{}, fmt.Errorf("policy: code_retries must not be negative, got %d", p.CodeRetries)
	}
	return p, nil
}
