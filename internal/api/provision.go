package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/slatedesk/slate-core/internal/provision"
)

// handleBootstrap runs the directory bootstrap and reports the resulting
// provisioning index.
//
// Bootstrap is serialised by the orchestrator; a second request issued while
// one is running blocks until the first completes.
func (s *Server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	index, err := s.orchestrator.Bootstrap(r.Context())
	if err != nil {
		s.logger.Error("bootstrap failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		if s.trail != nil {
			s.trail.RecordBootstrap(r.Context(), false, 0)
		}
		switch {
		case errors.Is(err, provision.ErrLocationsUnavailable):
			writeUpstreamError(w, "directory locations unavailable")
		case errors.Is(err, provision.ErrAuthentication):
			writeUpstreamError(w, "teacher authentication failed")
		default:
			writeInternalError(w, "bootstrap failed")
		}
		return
	}

	classGroup, _, _, _ := index.Snapshot()
	if s.trail != nil {
		s.trail.RecordBootstrap(r.Context(), true, len(classGroup))
	}

	writeJSON(w, http.StatusOK, provisionIndexResponse(index, time.Since(start)))
}

// handleProvisionIndex reports the current provisioning index without
// triggering a bootstrap.
func (s *Server) handleProvisionIndex(w http.ResponseWriter, _ *http.Request) {
	if !s.index.Bootstrapped() {
		writeConflict(w, "bootstrap has not completed")
		return
	}
	writeJSON(w, http.StatusOK, provisionIndexResponse(s.index, 0))
}

// provisionIndexResponse serialises the index for API consumers.
func provisionIndexResponse(index *provision.Index, elapsed time.Duration) map[string]any {
	classGroup, classUUID, teacherGroup, teacherUser := index.Snapshot()

	resp := map[string]any{
		"bootstrapped":      index.Bootstrapped(),
		"class_group_ids":   classGroup,
		"class_uuids":       classUUID,
		"teacher_group_ids": teacherGroup,
		"teacher_user_ids":  teacherUser,
	}
	if age, ok := index.TokenAge(); ok {
		resp["token_age_seconds"] = int(age.Seconds())
	}
	if elapsed > 0 {
		resp["duration_ms"] = elapsed.Milliseconds()
	}
	return resp
}
