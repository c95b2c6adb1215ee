package server

import (
	"log/slog"
	"net/http"
	"time"
)

type PositionRequest struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// handlePosition records a periodic position report. The (0,0)
// sentinel is accepted and stored as-is: it means the reporter lost its
// fix, and every consumer treats it as unknown rather than a
// coordinate. When a live-position cache is configured the report is
// mirrored there for the map surface.
func handlePosition(logger *slog.Logger, store Store, positions *positionCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := participantFromRequest(store, r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		var req PositionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "lat must be in [-90,90] and lng in [-180,180]")
			return
		}

		seenAt := time.Now().UTC().Format(time.RFC3339Nano)
		if err := store.RecordPosition(r.Context(), sess.RouteID, sess.Identity, req.Lat, req.Lng, seenAt); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if err := positions.set(r.Context(), sess.RouteID, sess.Identity, req.Lat, req.Lng, seenAt); err != nil {
			// Cache miss only costs the map surface some freshness.
			logger.Warn("live position cache write failed", "error", err)
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
