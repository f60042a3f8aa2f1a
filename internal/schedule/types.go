package schedule

import "time"

// Session describes what a tablet should be doing during one timeslot:
// the app set it is restricted to, for how long, and whether the
// restriction is a hard single-app lock.
type Session struct {
	// Apps are the app identifiers (bundle ids or numeric ids rendered
	// as strings) the device is limited to. Order is preserved.
	Apps []string `json:"apps"`

	// DurationMinutes is how long the restriction should last. Zero
	// means no restriction is configured for this slot.
	DurationMinutes int `json:"duration_minutes"`

	// SingleAppLock pins the device into the first app. Only meaningful
	// when Apps has exactly one element; the relationship is a caller
	// responsibility and is not enforced here.
	SingleAppLock bool `json:"single_app_lock"`
}

// IsZero reports whether the session carries no restriction at all.
func (s Session) IsZero() bool {
	return len(s.Apps) == 0 && s.DurationMinutes == 0 && !s.SingleAppLock
}

// Equal reports structural equality with another session.
func (s Session) Equal(other Session) bool {
	if s.DurationMinutes != other.DurationMinutes || s.SingleAppLock != other.SingleAppLock {
		return false
	}
	if len(s.Apps) != len(other.Apps) {
		return false
	}
	for i := range s.Apps {
		if s.Apps[i] != other.Apps[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the session.
func (s Session) Clone() Session {
	cpy := s
	if s.Apps != nil {
		cpy.Apps = make([]string, len(s.Apps))
		copy(cpy.Apps, s.Apps)
	}
	return cpy
}

// DaySessions holds the three scheduled sessions of one school day.
type DaySessions struct {
	AM   Session `json:"am"`
	PM   Session `json:"pm"`
	Home Session `json:"home"`
}

// Equal reports structural equality: two DaySessions are equal iff all
// three sessions are equal. Used for no-op edit detection before writes.
func (d DaySessions) Equal(other DaySessions) bool {
	return d.AM.Equal(other.AM) && d.PM.Equal(other.PM) && d.Home.Equal(other.Home)
}

// Clone returns an independent copy of all three sessions.
func (d DaySessions) Clone() DaySessions {
	return DaySessions{
		AM:   d.AM.Clone(),
		PM:   d.PM.Clone(),
		Home: d.Home.Clone(),
	}
}

// Slot returns the session for the given timeslot. Blocked carries no
// session and returns the zero value.
func (d DaySessions) Slot(slot Timeslot) Session {
	switch slot {
	case TimeslotAM:
		return d.AM
	case TimeslotPM:
		return d.PM
	case TimeslotHome:
		return d.Home
	default:
		return Session{}
	}
}

// SetSlot replaces exactly one session, leaving the other two untouched.
func (d *DaySessions) SetSlot(slot Timeslot, s Session) {
	switch slot {
	case TimeslotAM:
		d.AM = s
	case TimeslotPM:
		d.PM = s
	case TimeslotHome:
		d.Home = s
	}
}

// Profile is one student's weekly schedule.
//
// Sessions is keyed by 3-letter day token ("Sun".."Sat"); a profile need
// not contain all seven days. A missing profile means "no restrictions
// configured", which callers must treat distinctly from an empty one.
//
// Lifecycle: created implicitly on the first schedule edit for a student,
// mutated by edits, never hard-deleted in normal operation.
type Profile struct {
	StudentID  int                    `json:"student_id"`
	LocationID int                    `json:"location_id"`
	Sessions   map[string]DaySessions `json:"sessions"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns an independent copy of the profile.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	cpy := *p
	if p.Sessions != nil {
		cpy.Sessions = make(map[string]DaySessions, len(p.Sessions))
		for day, sessions := range p.Sessions {
			cpy.Sessions[day] = sessions.Clone()
		}
	}
	return &cpy
}

// dayTokens maps time.Weekday (Sunday = 0) to the short tokens used as
// profile map keys.
var dayTokens = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// DayToken returns the 3-letter day token for the given instant.
func DayToken(t time.Time) string {
	return dayTokens[int(t.Weekday())]
}

// CurrentDayToken returns the day token for the wall clock now.
// Impure (reads the clock) but side-effect free.
func CurrentDayToken() string {
	return DayToken(time.Now())
}

// ValidDayToken reports whether s is one of the seven day tokens.
func ValidDayToken(s string) bool {
	for _, tok := range dayTokens {
		if s == tok {
			return true
		}
	}
	return false
}
