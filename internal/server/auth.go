package server

import (
	"errors"
	"net/http"
	"strings"
)

var errNoSession = errors.New("no valid session")

// participantFromRequest resolves the Bearer token to an active
// participant of the route addressed by the request.
func participantFromRequest(store Store, r *http.Request) (participantSession, error) {
	auth := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		return participantSession{}, errNoSession
	}

	sess, err := store.ParticipantFromToken(r.Context(), token)
	if err != nil {
		return participantSession{}, err
	}
	if !sess.Active || sess.RouteID != routeFrom(r) {
		return participantSession{}, errNoSession
	}
	return sess, nil
}
