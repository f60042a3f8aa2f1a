package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/slatedesk/slate-core/internal/schedule"
)

// handleGetSchedule returns a student's weekly schedule profile.
//
// A student with no stored profile returns 404; the front end treats that
// distinctly from an empty profile (no restrictions configured yet).
func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	studentID, ok := studentIDParam(w, r)
	if !ok {
		return
	}

	profile := s.planner.Profile(studentID)
	if profile == nil {
		writeNotFound(w, "no schedule profile for student")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// handleCurrentSession resolves what the student's tablet should be doing
// right now: the current day, timeslot, and scheduled session (null when
// the slot is blocked or unscheduled).
func (s *Server) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	studentID, ok := studentIDParam(w, r)
	if !ok {
		return
	}

	now := time.Now()
	sess, slot := s.planner.SessionAt(studentID, now)

	writeJSON(w, http.StatusOK, map[string]any{
		"student_id": studentID,
		"day":        schedule.DayToken(now),
		"timeslot":   slot,
		"session":    sess,
	})
}

// saveDayRequest is the request body for PUT /schedules/{studentID}/{day}.
//
// Baseline carries the sessions the client loaded before editing; the
// planner compares it against Sessions so an unchanged day costs no write.
type saveDayRequest struct {
	LocationID int                  `json:"location_id"`
	Sessions   schedule.DaySessions `json:"sessions"`
	Baseline   schedule.DaySessions `json:"baseline"`
}

// handleSaveDay persists one full day of a student's schedule.
func (s *Server) handleSaveDay(w http.ResponseWriter, r *http.Request) {
	studentID, ok := studentIDParam(w, r)
	if !ok {
		return
	}
	day := chi.URLParam(r, "day")
	if !schedule.ValidDayToken(day) {
		writeBadRequest(w, "day must be one of Sun..Sat")
		return
	}

	var req saveDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.LocationID < 1 {
		writeBadRequest(w, "location_id must be a positive integer")
		return
	}

	changed, err := s.planner.SaveDayIfChanged(r.Context(), studentID, req.LocationID, day, req.Sessions, req.Baseline)
	if err != nil {
		s.writeScheduleError(w, err)
		return
	}

	if changed && s.trail != nil {
		s.trail.RecordScheduleEdit(r.Context(), studentID, day, usernameFromContext(r.Context()))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"student_id": studentID,
		"day":        day,
		"changed":    changed,
	})
}

// saveSlotRequest is the request body for PUT /schedules/{studentID}/{day}/{slot}.
type saveSlotRequest struct {
	LocationID int              `json:"location_id"`
	Session    schedule.Session `json:"session"`
}

// handleSaveSlot persists a single timeslot of a student's schedule,
// leaving the other slots of the day untouched.
func (s *Server) handleSaveSlot(w http.ResponseWriter, r *http.Request) {
	studentID, ok := studentIDParam(w, r)
	if !ok {
		return
	}
	day := chi.URLParam(r, "day")
	slot, validSlot := schedule.ParseTimeslot(chi.URLParam(r, "slot"))
	if !validSlot {
		writeBadRequest(w, "slot must be one of am, pm, home")
		return
	}

	var req saveSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.LocationID < 1 {
		writeBadRequest(w, "location_id must be a positive integer")
		return
	}

	if err := s.planner.UpdateSession(r.Context(), studentID, req.LocationID, day, slot, req.Session); err != nil {
		s.writeScheduleError(w, err)
		return
	}

	if s.trail != nil {
		s.trail.RecordScheduleEdit(r.Context(), studentID, day, usernameFromContext(r.Context()))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"student_id": studentID,
		"day":        day,
		"timeslot":   slot,
	})
}

// writeScheduleError maps planner errors onto HTTP responses.
func (s *Server) writeScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrInvalidDay),
		errors.Is(err, schedule.ErrInvalidTimeslot),
		errors.Is(err, schedule.ErrInvalidDuration):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		s.logger.Error("schedule write failed", "error", err)
		writeInternalError(w, "failed to save schedule")
	}
}

// studentIDParam parses the studentID route parameter, writing a 400
// response and returning false when it is not a positive integer.
func studentIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "studentID"))
	if err != nil || id < 1 {
		writeBadRequest(w, "studentID must be a positive integer")
		return 0, false
	}
	return id, true
}
