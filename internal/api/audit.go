package api

import (
	"net/http"
	"strconv"

	"github.com/slatedesk/slate-core/internal/audit"
)

// handleListAudit returns paginated audit trail entries with optional filters.
//
// Query parameters:
//   - action: filter by action type (bootstrap, login, schedule_edit, lock, ...)
//   - entity_type: filter by entity type (device, batch, schedule, ...)
//   - entity_id: filter by specific entity ID
//   - user_id: filter by acting teacher
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeInternalError(w, "audit trail not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		UserID:     q.Get("user_id"),
	}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit trail", "error", err)
		writeInternalError(w, "failed to list audit trail")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
