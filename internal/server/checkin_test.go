package server

import (
	"context"
	"log/slog"
	"testing"

	"github.com/Luismi76/birracrucis/internal/event"
	"github.com/Luismi76/birracrucis/internal/geo"
)

func countCheckins(t *testing.T, store *SQLiteStore, venueID string, auto bool) int {
	t.Helper()
	autoInt := 0
	if auto {
		autoInt = 1
	}
	var n int
	err := store.db.QueryRowContext(context.Background(), `
		SELECT COUNT(*) FROM checkins WHERE venue_id = ? AND auto = ?
	`, venueID, autoInt).Scan(&n)
	if err != nil {
		t.Fatalf("counting checkins: %v", err)
	}
	return n
}

func checkinFixture(t *testing.T) (*SQLiteStore, *checkinController, *event.Venue) {
	t.Helper()
	store := setupStore(t)
	join(t, store, event.Guest("g1"), "Ana")

	venue := &event.Venue{ID: "v1", Name: "El Viajero", Lat: testVenuePos.Lat, Lng: testVenuePos.Lng, CheckinRadius: 75}
	ctrl := newCheckinController(slog.New(slog.DiscardHandler), store, "crawl", event.Guest("g1"))
	return store, ctrl, venue
}

func at(venue *event.Venue, meters float64) geo.Point {
	return geo.Point{Lat: venue.Lat + metersNorth(meters), Lng: venue.Lng}
}

// Distance trace 200 m, 90 m, 60 m against a 75 m radius: approaching,
// approaching, atVenue; the automatic check-in fires exactly once, at
// the third tick's crossing.
func TestAutoCheckinFiresOnceOnInwardCrossing(t *testing.T) {
	store, ctrl, venue := checkinFixture(t)
	ctx := context.Background()

	for _, d := range []float64{200, 90, 60} {
		ctrl.observe(ctx, venue, at(venue, d))
	}
	if got := countCheckins(t, store, "v1", true); got != 1 {
		t.Fatalf("got %d auto check-ins, want 1", got)
	}

	// Held inside across more ticks: still one.
	for _, d := range []float64{50, 60, 40} {
		ctrl.observe(ctx, venue, at(venue, d))
	}
	if got := countCheckins(t, store, "v1", true); got != 1 {
		t.Errorf("sustained presence re-fired: got %d, want 1", got)
	}
}

// Crossing in, out, then in again fires twice; the outward crossing
// itself never fires.
func TestAutoCheckinRefiresAfterReentry(t *testing.T) {
	store, ctrl, venue := checkinFixture(t)
	ctx := context.Background()

	trace := []float64{200, 60, 50, 200, 150, 60}
	for _, d := range trace {
		ctrl.observe(ctx, venue, at(venue, d))
	}
	if got := countCheckins(t, store, "v1", true); got != 2 {
		t.Fatalf("got %d auto check-ins, want 2 (in, out, in)", got)
	}
}

func TestAutoCheckinNoFireWithoutApproach(t *testing.T) {
	store, ctrl, venue := checkinFixture(t)
	ctx := context.Background()

	// First observation is already inside: no approaching -> atVenue
	// edge, so nothing fires.
	ctrl.observe(ctx, venue, at(venue, 10))
	ctrl.observe(ctx, venue, at(venue, 20))
	if got := countCheckins(t, store, "v1", true); got != 0 {
		t.Errorf("fired without an inward crossing: got %d", got)
	}
}

func TestAutoCheckinHoldsThroughPositionLoss(t *testing.T) {
	store, ctrl, venue := checkinFixture(t)
	ctx := context.Background()

	ctrl.observe(ctx, venue, at(venue, 200))
	ctrl.observe(ctx, venue, at(venue, 60)) // fires
	ctrl.observe(ctx, venue, geo.Point{})   // GPS dropout
	ctrl.observe(ctx, venue, at(venue, 50)) // still the same visit

	if got := countCheckins(t, store, "v1", true); got != 1 {
		t.Errorf("position loss re-armed the trigger: got %d, want 1", got)
	}
}

func TestAutoCheckinUsesAutoRadius(t *testing.T) {
	store, ctrl, venue := checkinFixture(t)
	venue.AutoCheckinRadius = 40
	ctx := context.Background()

	// 60 m is inside the 75 m fence but outside the 40 m auto radius.
	ctrl.observe(ctx, venue, at(venue, 200))
	ctrl.observe(ctx, venue, at(venue, 60))
	if got := countCheckins(t, store, "v1", true); got != 0 {
		t.Fatalf("fired outside the auto radius: got %d", got)
	}

	ctrl.observe(ctx, venue, at(venue, 30))
	if got := countCheckins(t, store, "v1", true); got != 1 {
		t.Errorf("got %d auto check-ins, want 1 inside the auto radius", got)
	}
}

func TestAutoCheckinResetsOnVenueChange(t *testing.T) {
	store, ctrl, venue := checkinFixture(t)
	ctx := context.Background()

	ctrl.observe(ctx, venue, at(venue, 200))
	ctrl.observe(ctx, venue, at(venue, 60))
	if got := countCheckins(t, store, "v1", true); got != 1 {
		t.Fatalf("got %d, want 1", got)
	}

	// The crawl moves on; the same pattern fires at the next stop.
	next := &event.Venue{ID: "v2", Name: "La Perejila", Lat: 40.4113, Lng: -3.7109, CheckinRadius: 75}
	ctrl.observe(ctx, next, at(next, 200))
	ctrl.observe(ctx, next, at(next, 50))
	if got := countCheckins(t, store, "v2", true); got != 1 {
		t.Errorf("got %d auto check-ins at next stop, want 1", got)
	}
}
