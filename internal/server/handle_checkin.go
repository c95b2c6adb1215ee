package server

import (
	"errors"
	"net/http"
)

type CheckInRequest struct {
	// VenueID defaults to the route's active stop.
	VenueID string `json:"venueId" validate:"omitempty,max=64"`
}

type CheckInResponse struct {
	CheckInID string `json:"checkInId"`
	VenueID   string `json:"venueId"`
	Auto      bool   `json:"auto"`
}

// handleCheckIn records a manual check-in. It is always accepted: the
// proximity requirement only gates the automatic path, not someone
// tapping the button from across the street.
func handleCheckIn(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := participantFromRequest(store, r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		var req CheckInRequest
		if r.ContentLength > 0 {
			if err := readJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}

		venueID := req.VenueID
		if venueID == "" {
			venue, err := store.ActiveVenue(r.Context(), sess.RouteID)
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusConflict, "route has no active stop")
				return
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			venueID = venue.ID
		}

		checkinID, err := store.RecordCheckIn(r.Context(), sess.RouteID, venueID, sess.Identity, false)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, CheckInResponse{
			CheckInID: checkinID,
			VenueID:   venueID,
			Auto:      false,
		})
	}
}
