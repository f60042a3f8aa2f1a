package schedule

import "github.com/slatedesk/slate-core/internal/infrastructure/config"

// Timeslot classifies an hour of the school day.
type Timeslot string

// Timeslot constants.
const (
	TimeslotAM   Timeslot = "am"
	TimeslotPM   Timeslot = "pm"
	TimeslotHome Timeslot = "home"

	// TimeslotBlocked covers hours outside every configured range
	// (typically overnight). It carries no Session.
	TimeslotBlocked Timeslot = "blocked"
)

// ParseTimeslot converts a string to a schedulable Timeslot.
// Blocked is not schedulable and is rejected alongside unknown values.
func ParseTimeslot(s string) (Timeslot, bool) {
	switch Timeslot(s) {
	case TimeslotAM, TimeslotPM, TimeslotHome:
		return Timeslot(s), true
	default:
		return "", false
	}
}

// Settings holds the hour ranges used to classify the wall clock.
// Ranges are half-open [start, end) on the 24h clock and independently
// adjustable; overlapping ranges resolve in am, pm, home order.
type Settings struct {
	AMStart   int
	AMEnd     int
	PMStart   int
	PMEnd     int
	HomeStart int
	HomeEnd   int
}

// DefaultSettings returns the standard school-day ranges:
// am 8-12, pm 12-17, home 17-24.
func DefaultSettings() Settings {
	return Settings{
		AMStart:   8,
		AMEnd:     12,
		PMStart:   12,
		PMEnd:     17,
		HomeStart: 17,
		HomeEnd:   24,
	}
}

// SettingsFromConfig builds Settings from the timeslots config section.
func SettingsFromConfig(cfg config.TimeslotConfig) Settings {
	return Settings{
		AMStart:   cfg.AMStart,
		AMEnd:     cfg.AMEnd,
		PMStart:   cfg.PMStart,
		PMEnd:     cfg.PMEnd,
		HomeStart: cfg.HomeStart,
		HomeEnd:   cfg.HomeEnd,
	}
}

// Resolve classifies an hour of the day into exactly one timeslot.
//
// Pure and total: for every hour 0..23 (and any settings) exactly one of
// am, pm, home, or blocked is returned, and the same hour always yields
// the same result for unchanged settings. No I/O.
func (s Settings) Resolve(hour int) Timeslot {
	switch {
	case hour >= s.AMStart && hour < s.AMEnd:
		return TimeslotAM
	case hour >= s.PMStart && hour < s.PMEnd:
		return TimeslotPM
	case hour >= s.HomeStart && hour < s.HomeEnd:
		return TimeslotHome
	default:
		return TimeslotBlocked
	}
}
