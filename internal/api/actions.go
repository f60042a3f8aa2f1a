package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/slatedesk/slate-core/internal/action"
	"github.com/slatedesk/slate-core/internal/directory"
)

// actionRequest is the shared request body for batch device actions.
//
// Devices are addressed by UDID within a location. An empty UDID list
// targets every device in the location.
type actionRequest struct {
	LocationID int      `json:"location_id"`
	UDIDs      []string `json:"udids,omitempty"`

	// App is the app set identifier to lock into. Lock only.
	App string `json:"app,omitempty"`

	// StudentID is the owner to assign. Assign only.
	StudentID int `json:"student_id,omitempty"`
}

// handleActionStatus reports whether a batch action is currently running.
func (s *Server) handleActionStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"processing": s.executor.Processing(),
		"message":    s.executor.ProgressMessage(),
	})
}

// handleLockAction locks the targeted devices into the requested app.
func (s *Server) handleLockAction(w http.ResponseWriter, r *http.Request) {
	req, devices, ok := s.resolveActionTargets(w, r)
	if !ok {
		return
	}
	if req.App == "" {
		writeBadRequest(w, "app is required for lock")
		return
	}

	result, err := s.executor.LockToApp(r.Context(), devices, req.App)
	s.writeActionResult(w, result, err)
}

// handleUnlockAction removes app restrictions from the targeted devices.
func (s *Server) handleUnlockAction(w http.ResponseWriter, r *http.Request) {
	_, devices, ok := s.resolveActionTargets(w, r)
	if !ok {
		return
	}

	result, err := s.executor.Unlock(r.Context(), devices)
	s.writeActionResult(w, result, err)
}

// handleRestartAction reboots the targeted devices.
func (s *Server) handleRestartAction(w http.ResponseWriter, r *http.Request) {
	_, devices, ok := s.resolveActionTargets(w, r)
	if !ok {
		return
	}

	result, err := s.executor.Restart(r.Context(), devices)
	s.writeActionResult(w, result, err)
}

// handleAssignAction assigns the targeted devices to a student.
func (s *Server) handleAssignAction(w http.ResponseWriter, r *http.Request) {
	req, devices, ok := s.resolveActionTargets(w, r)
	if !ok {
		return
	}
	if req.StudentID < 1 {
		writeBadRequest(w, "student_id must be a positive integer")
		return
	}

	result, err := s.executor.AssignOwner(r.Context(), devices, req.StudentID)
	s.writeActionResult(w, result, err)
}

// resolveActionTargets decodes the request body and expands it into the
// device records the executor needs (owner state included).
//
// The directory is the source of truth for ownership, so targets are
// always re-fetched rather than trusted from the client.
func (s *Server) resolveActionTargets(w http.ResponseWriter, r *http.Request) (actionRequest, []directory.Device, bool) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return req, nil, false
	}
	if req.LocationID < 1 {
		writeBadRequest(w, "location_id must be a positive integer")
		return req, nil, false
	}

	devices, err := s.fetchDevices(r.Context(), req.LocationID, req.UDIDs)
	if err != nil {
		s.logger.Error("resolving action targets failed", "location_id", req.LocationID, "error", err)
		writeUpstreamError(w, "directory unavailable")
		return req, nil, false
	}
	if len(devices) == 0 {
		writeBadRequest(w, "no matching devices in location")
		return req, nil, false
	}

	return req, devices, true
}

// fetchDevices lists the location's devices and filters to the requested
// UDIDs. An empty filter returns the whole location.
func (s *Server) fetchDevices(ctx context.Context, locationID int, udids []string) ([]directory.Device, error) {
	devices, err := s.directory.ListDevices(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if len(udids) == 0 {
		return devices, nil
	}

	wanted := make(map[string]struct{}, len(udids))
	for _, udid := range udids {
		wanted[udid] = struct{}{}
	}

	filtered := devices[:0]
	for _, d := range devices {
		if _, ok := wanted[d.UDID]; ok {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}

// writeActionResult maps an executor outcome onto an HTTP response.
//
// Partial failure is still a 200: the result body carries per-device
// failures and the caller decides how to present them. Only a refusal to
// start (no session token) is an error status.
func (s *Server) writeActionResult(w http.ResponseWriter, result action.Result, err error) {
	if err != nil {
		if errors.Is(err, action.ErrNoSession) {
			writeConflict(w, "bootstrap has not completed; no directory session")
			return
		}
		s.logger.Error("batch action failed to start", "action", result.Action, "error", err)
		writeInternalError(w, "action failed to start")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
