package server

import (
	"net/http"
	"strings"

	"github.com/Luismi76/birracrucis/internal/event"
)

type MessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

// handleMessage appends a chat message. Delivery to other participants
// happens through their stream sessions' cursor feeds; nothing is
// pushed from here.
func handleMessage(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := participantFromRequest(store, r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		var req MessageRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Content = strings.TrimSpace(req.Content)
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "content is required (1-2000 characters)")
			return
		}

		rec, err := store.CreateMessage(r.Context(), sess.RouteID, sess.Identity, req.Content)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, event.Message{
			ID:        rec.ID,
			Content:   rec.Content,
			CreatedAt: rec.CreatedAt,
			Author: event.Author{
				ID:   sess.Identity.ID,
				Name: sess.DisplayName,
			},
		})
	}
}
