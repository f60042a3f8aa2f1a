package api

import (
	"net/http"
	"strconv"
)

// handleListLocations returns every location known to the directory.
func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := s.directory.ListLocations(r.Context())
	if err != nil {
		s.logger.Error("listing locations failed", "error", err)
		writeUpstreamError(w, "directory unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"locations": locations,
		"count":     len(locations),
	})
}

// handleListDevices returns managed devices, optionally filtered by the
// location_id query parameter.
//
// Battery levels observed on the way through are forwarded to the telemetry
// backend, so routine fleet views double as a battery health feed.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	locationID := 0
	if raw := r.URL.Query().Get("location_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id < 1 {
			writeBadRequest(w, "location_id must be a positive integer")
			return
		}
		locationID = id
	}

	devices, err := s.directory.ListDevices(r.Context(), locationID)
	if err != nil {
		s.logger.Error("listing devices failed", "location_id", locationID, "error", err)
		writeUpstreamError(w, "directory unavailable")
		return
	}

	if s.battery != nil {
		for _, d := range devices {
			s.battery.WriteBatteryLevel(d.UDID, d.LocationID, d.BatteryLevel)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}
