package schedule

import "errors"

// Domain errors for the schedule package.
//
// A missing profile is not an error anywhere in this package: lookups
// return nil and edits synthesise an empty profile on demand.
var (
	// ErrStoreUnavailable is returned when the schedule store cannot be
	// read or written.
	ErrStoreUnavailable = errors.New("schedule: store unavailable")

	// ErrInvalidDay is returned when a day token is not one of "Sun".."Sat".
	ErrInvalidDay = errors.New("schedule: invalid day token")

	// ErrInvalidTimeslot is returned when a timeslot is not schedulable
	// (blocked or unknown).
	ErrInvalidTimeslot = errors.New("schedule: invalid timeslot")

	// ErrInvalidDuration is returned when a session duration is negative.
	ErrInvalidDuration = errors.New("schedule: invalid duration")
)
