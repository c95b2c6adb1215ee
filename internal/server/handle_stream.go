package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
)

// sseWriter frames session events for a text/event-stream response and
// flushes after every frame so nothing sits in a buffer.
type sseWriter struct {
	w       io.Writer
	flusher http.Flusher
}

func (s *sseWriter) Event(name string, data []byte) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) Comment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// handleStream opens the one-directional push stream for a route.
// Authorization failures terminate before any event is written, so the
// client can distinguish a non-retryable rejection (HTTP status) from
// the routine end-of-lifetime close.
func handleStream(logger *slog.Logger, store Store, cfg StreamConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			writeError(w, http.StatusUnauthorized, "token query parameter required")
			return
		}

		routeID := routeFrom(r)

		sess, err := store.ParticipantFromToken(r.Context(), token)
		if err != nil && !errors.Is(err, errNoSession) {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if err != nil || !sess.Active || sess.RouteID != routeID {
			writeError(w, http.StatusUnauthorized, "not an active participant of this route")
			return
		}

		// Resume point for nudges: client-supplied cursor, or skip
		// history and start at the current high-water mark.
		nudgeCursor, err := resumeCursor(r.URL.Query().Get("cursor"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		if nudgeCursor < 0 {
			nudgeCursor, err = store.LatestNudgeID(r.Context(), routeID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
		}
		messageCursor, err := store.LatestMessageID(r.Context(), routeID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		session := newStreamSession(
			logger.With("route", routeID, "participant", sess.Identity.String()),
			store,
			&sseWriter{w: w, flusher: flusher},
			routeID,
			sess.Identity,
			nudgeCursor,
			messageCursor,
			cfg,
		)
		session.run(r.Context())
	}
}

// resumeCursor parses the optional cursor query parameter; -1 means
// "not supplied".
func resumeCursor(raw string) (int64, error) {
	if raw == "" {
		return -1, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("cursor %q is not a non-negative integer", raw)
	}
	return n, nil
}
