// Package schedule holds the weekly app-restriction model and the logic
// that resolves a wall-clock instant into the session a student's tablet
// should be restricted to.
//
// A Profile maps day tokens ("Mon".."Sun") to DaySessions, each holding
// three independent Session values for the am, pm, and home timeslots.
// Settings.Resolve turns an hour of the day into a Timeslot using
// half-open hour ranges; hours outside every range resolve to the
// blocked pseudo-slot, during which no schedule applies.
//
// The Planner layers a read-through cache over the Repository and owns
// the edit paths. Session lookups are pure in-memory reads; edits are
// read-modify-write over the full DaySessions value so that editing one
// timeslot never disturbs the other two. SaveDayIfChanged compares an
// edited day against the baseline captured when editing began and skips
// the store entirely when nothing changed.
package schedule
