package core

import "time"

// Subscription is a standing per-destination broadcast configuration.
// Currencies keep set semantics with insertion order for display.
type Subscription struct {
	Destination     string    `json:"destination"`
	Fiat            string    `json:"fiat"`
	Currencies      []string  `json:"currencies"`
	IntervalMinutes int       `json:"interval_minutes"`
	Purge           bool      `json:"purge"`
	CreatedAt       time.Time `json:"created_at"`
}

// Due reports whether a subscription with this interval fires at the given
// wall-clock minute. Hour-multiple intervals collapse to the top of the
// hour; the modulo guard keeps a zero interval from dividing by zero.
func (s Subscription) Due(minute int) bool {
	rem := s.IntervalMinutes % 60
	if s.IntervalMinutes <= 0 || rem == 0 {
		return minute == 0
	}
	return minute%rem == 0
}
