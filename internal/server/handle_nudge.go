package server

import (
	"net/http"

	"github.com/Luismi76/birracrucis/internal/event"
)

type NudgeRequest struct {
	// Target addresses one participant; omit it to nudge everyone.
	Target *event.Identity `json:"target"`
}

type NudgeResponse struct {
	ID        int64           `json:"id"`
	Target    *event.Identity `json:"targetIdentity"`
	CreatedAt string          `json:"createdAt"`
}

func handleNudge(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := participantFromRequest(store, r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		var req NudgeRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Target != nil {
			if err := req.Target.Validate(); err != nil {
				writeError(w, http.StatusBadRequest, "target must have kind user or guest and a non-empty id")
				return
			}
		}

		rec, err := store.CreateNudge(r.Context(), sess.RouteID, sess.Identity, req.Target)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, NudgeResponse{
			ID:        rec.ID,
			Target:    rec.Target,
			CreatedAt: rec.CreatedAt,
		})
	}
}
