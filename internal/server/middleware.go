package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type ctxKey int

const ctxKeyRoute ctxKey = iota

// routeMiddleware resolves the {route} URL parameter to an existing
// route and stores its id in the request context.
func routeMiddleware(store Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			routeID := chi.URLParam(r, "route")
			if routeID == "" {
				writeError(w, http.StatusNotFound, "route not found")
				return
			}

			ok, err := store.RouteExists(r.Context(), routeID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if !ok {
				writeError(w, http.StatusNotFound, "route not found")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyRoute, routeID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func routeFrom(r *http.Request) string {
	routeID, _ := r.Context().Value(ctxKeyRoute).(string)
	return routeID
}
