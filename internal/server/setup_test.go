package server

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Luismi76/birracrucis/internal/database"
	"github.com/Luismi76/birracrucis/internal/event"
	"github.com/Luismi76/birracrucis/internal/migrations"
)

// Coordinates around Plaza de la Cebada used across the tests.
var (
	testVenuePos = struct{ Lat, Lng float64 }{40.4109, -3.7086}
)

func setupStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	store := NewSQLiteStore(db)

	venues := []VenueSeed{
		{ID: "v1", Name: "El Viajero", Lat: testVenuePos.Lat, Lng: testVenuePos.Lng, CheckinRadiusM: 75},
		{ID: "v2", Name: "La Perejila", Lat: 40.4113, Lng: -3.7109, CheckinRadiusM: 75},
	}
	if err := store.CreateRoute(ctx, "crawl", "Test crawl", venues); err != nil {
		t.Fatalf("create route: %v", err)
	}

	return store
}

// join adds a participant and returns its session token.
func join(t *testing.T, store *SQLiteStore, id event.Identity, name string) string {
	t.Helper()
	token, err := store.JoinRoute(context.Background(), "crawl", id, name, "")
	if err != nil {
		t.Fatalf("join route: %v", err)
	}
	return token
}

// report stores a position for the participant.
func report(t *testing.T, store *SQLiteStore, id event.Identity, lat, lng float64) {
	t.Helper()
	err := store.RecordPosition(context.Background(), "crawl", id, lat, lng, "2026-01-01T12:00:00Z")
	if err != nil {
		t.Fatalf("record position: %v", err)
	}
}

// apiRouter assembles the participant routes the way addRoutes does,
// against an in-memory store.
func apiRouter(t *testing.T, store *SQLiteStore, cfg StreamConfig) *chi.Mux {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	positions := newPositionCache(nil)

	r := chi.NewRouter()
	r.Route("/api/routes/{route}", func(r chi.Router) {
		r.Use(routeMiddleware(store))
		r.Post("/join", handleJoin(store))
		r.Post("/leave", handleLeave(store))
		r.Post("/position", handlePosition(logger, store, positions))
		r.Post("/messages", handleMessage(store))
		r.Post("/nudges", handleNudge(store))
		r.Post("/checkin", handleCheckIn(store))
		r.Get("/map", handleMap(store, positions, 25, 1000))
		r.Get("/stream", handleStream(logger, store, cfg))
	})
	return r
}

// bearer sets the Authorization header on a request.
func bearer(r *http.Request, token string) *http.Request {
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

// metersNorth converts a northward offset in meters to degrees of
// latitude, mirroring the approximation the geo tests use.
func metersNorth(m float64) float64 { return m / 111319.9 }
