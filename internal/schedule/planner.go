package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Planner.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Broadcaster is the interface for emitting schedule change events.
// The planner never depends on a concrete UI transport.
type Broadcaster interface {
	// Broadcast sends an event to all subscribers of the given channel.
	Broadcast(channel string, payload any)
}

// Planner answers "what Session applies to student S right now" and
// persists schedule edits. It wraps a Repository and adds an in-memory
// profile cache for fast lookups.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by the write path.
//
// Thread Safety: all public methods are safe for concurrent use.
// Two concurrent edits to the same student/day/timeslot triple are a
// last-write-wins race; no locking is provided for that case (known
// limitation, documented rather than fixed).
type Planner struct {
	repo     Repository
	settings Settings

	cache   map[int]*Profile // Cached profiles by student id
	cacheMu sync.RWMutex     // Protects cache

	logger Logger
	hub    Broadcaster
}

// NewPlanner creates a schedule planner.
// The repository is used for persistence; the planner adds caching and
// timeslot resolution.
func NewPlanner(repo Repository, settings Settings) *Planner {
	return &Planner{
		repo:     repo,
		settings: settings,
		cache:    make(map[int]*Profile),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the planner.
func (p *Planner) SetLogger(logger Logger) {
	p.logger = logger
}

// SetBroadcaster sets the event broadcaster (may be nil).
func (p *Planner) SetBroadcaster(hub Broadcaster) {
	p.hub = hub
}

// Settings returns the timeslot settings the planner resolves against.
func (p *Planner) Settings() Settings {
	return p.settings
}

// RefreshCache reloads all profiles from the repository into the cache.
// This should be called on application startup.
func (p *Planner) RefreshCache(ctx context.Context) error {
	profiles, err := p.repo.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("loading schedule profiles: %w", err)
	}

	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()

	p.cache = make(map[int]*Profile, len(profiles))
	for i := range profiles {
		prof := profiles[i]
		p.cache[prof.StudentID] = prof.Clone()
	}

	p.logger.Info("schedule cache refreshed", "count", len(profiles))
	return nil
}

// Profile returns a copy of the student's cached profile, or nil when
// the student has no profile (which means "no restrictions configured",
// not an error).
func (p *Planner) Profile(studentID int) *Profile {
	p.cacheMu.RLock()
	defer p.cacheMu.RUnlock()
	return p.cache[studentID].Clone()
}

// Session looks up the session for a student, day, and timeslot.
//
// Returns nil when the student has no profile, the profile has no entry
// for that day, or the timeslot is blocked. Callers must treat nil
// ("no schedule") distinctly from a zero-valued session ("empty schedule").
func (p *Planner) Session(studentID int, day string, slot Timeslot) *Session {
	if slot == TimeslotBlocked {
		return nil
	}

	p.cacheMu.RLock()
	defer p.cacheMu.RUnlock()

	profile, ok := p.cache[studentID]
	if !ok {
		return nil
	}
	sessions, ok := profile.Sessions[day]
	if !ok {
		return nil
	}
	s := sessions.Slot(slot).Clone()
	return &s
}

// SessionAt resolves the wall-clock instant into a timeslot and returns
// the student's session for it (nil during blocked hours or when no
// schedule exists).
func (p *Planner) SessionAt(studentID int, t time.Time) (*Session, Timeslot) {
	slot := p.settings.Resolve(t.Hour())
	return p.Session(studentID, DayToken(t), slot), slot
}

// UpdateSession replaces exactly one timeslot's session within the given
// day, leaving the other two slots of that day untouched, and persists
// the full profile.
//
// If the student has no profile yet, an empty one is synthesised first:
// profile creation is implicit in the first edit, not a separate step.
// The read-modify-write operates on the full DaySessions value so two
// sequential edits to different timeslots of the same day do not clobber
// each other.
func (p *Planner) UpdateSession(ctx context.Context, studentID, locationID int, day string, slot Timeslot, sess Session) error {
	if !ValidDayToken(day) {
		return fmt.Errorf("%w: %q", ErrInvalidDay, day)
	}
	if slot != TimeslotAM && slot != TimeslotPM && slot != TimeslotHome {
		return fmt.Errorf("%w: %q", ErrInvalidTimeslot, slot)
	}
	if sess.DurationMinutes < 0 {
		return fmt.Errorf("%w: %d minutes", ErrInvalidDuration, sess.DurationMinutes)
	}

	profile := p.profileFor(studentID, locationID)

	sessions := profile.Sessions[day] // zero DaySessions when the day is new
	sessions.SetSlot(slot, sess.Clone())
	profile.Sessions[day] = sessions

	if err := p.repo.Upsert(ctx, profile); err != nil {
		return err
	}

	p.storeInCache(profile)

	p.logger.Info("schedule updated",
		"student_id", studentID,
		"day", day,
		"timeslot", string(slot),
		"apps", len(sess.Apps),
		"duration_minutes", sess.DurationMinutes,
	)

	if p.hub != nil {
		p.hub.Broadcast("schedule.updated", map[string]any{
			"student_id": studentID,
			"day":        day,
			"timeslot":   string(slot),
		})
	}

	return nil
}

// SaveDayIfChanged persists an edited DaySessions only when it differs
// structurally from the baseline captured when the editor was opened.
//
// Returns true when a write happened. An unmodified day produces zero
// store writes.
func (p *Planner) SaveDayIfChanged(ctx context.Context, studentID, locationID int, day string, edited, baseline DaySessions) (bool, error) {
	if !ValidDayToken(day) {
		return false, fmt.Errorf("%w: %q", ErrInvalidDay, day)
	}

	if edited.Equal(baseline) {
		p.logger.Debug("schedule unchanged, skipping write", "student_id", studentID, "day", day)
		return false, nil
	}

	profile := p.profileFor(studentID, locationID)
	profile.Sessions[day] = edited.Clone()

	if err := p.repo.Upsert(ctx, profile); err != nil {
		return false, err
	}

	p.storeInCache(profile)

	p.logger.Info("schedule day saved", "student_id", studentID, "day", day)

	if p.hub != nil {
		p.hub.Broadcast("schedule.updated", map[string]any{
			"student_id": studentID,
			"day":        day,
		})
	}

	return true, nil
}

// profileFor returns a mutable copy of the student's profile, or a new
// empty profile when none exists yet. The two cases are deliberately
// explicit: "create on demand" is part of the contract, not an accident
// of defaults.
func (p *Planner) profileFor(studentID, locationID int) *Profile {
	p.cacheMu.RLock()
	cached, ok := p.cache[studentID]
	p.cacheMu.RUnlock()

	if ok {
		profile := cached.Clone()
		if profile.Sessions == nil {
			profile.Sessions = make(map[string]DaySessions)
		}
		// Location may have changed since the profile was created
		if locationID > 0 {
			profile.LocationID = locationID
		}
		return profile
	}

	return &Profile{
		StudentID:  studentID,
		LocationID: locationID,
		Sessions:   make(map[string]DaySessions),
	}
}

// storeInCache replaces the cached profile with a private copy.
func (p *Planner) storeInCache(profile *Profile) {
	p.cacheMu.Lock()
	p.cache[profile.StudentID] = profile.Clone()
	p.cacheMu.Unlock()
}
