package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Luismi76/birracrucis/internal/event"
)

type JoinRequest struct {
	DisplayName string `json:"displayName" validate:"required,min=1,max=64"`
	AvatarRef   string `json:"avatarRef" validate:"omitempty,max=256"`
	// UserID joins as a registered user; when empty the participant is
	// a guest with a generated id.
	UserID string `json:"userId" validate:"omitempty,max=64"`
}

type JoinResponse struct {
	Token       string         `json:"token"`
	Identity    event.Identity `json:"identity"`
	DisplayName string         `json:"displayName"`
	RouteID     string         `json:"routeId"`
}

func handleJoin(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JoinRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.DisplayName = strings.TrimSpace(req.DisplayName)
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "displayName is required (1-64 characters)")
			return
		}

		identity := event.Guest(uuid.NewString())
		if req.UserID != "" {
			identity = event.User(req.UserID)
		}

		routeID := routeFrom(r)
		token, err := store.JoinRoute(r.Context(), routeID, identity, req.DisplayName, req.AvatarRef)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, JoinResponse{
			Token:       token,
			Identity:    identity,
			DisplayName: req.DisplayName,
			RouteID:     routeID,
		})
	}
}

func handleLeave(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := participantFromRequest(store, r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		if err := store.LeaveRoute(r.Context(), sess.RouteID, sess.Identity); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
	}
}
