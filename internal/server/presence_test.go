package server

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Luismi76/birracrucis/internal/event"
	"github.com/Luismi76/birracrucis/internal/geo"
)

func TestPresenceSuppressesUnchangedSnapshot(t *testing.T) {
	store := setupStore(t)
	join(t, store, event.Guest("g1"), "Ana")
	report(t, store, event.Guest("g1"), testVenuePos.Lat+metersNorth(200), testVenuePos.Lng)

	agg := newPresenceAggregator(store, "crawl")
	ctx := context.Background()

	_, payload, err := agg.collect(ctx)
	if err != nil {
		t.Fatalf("first collect: %v", err)
	}
	if payload == nil {
		t.Fatal("first collect must emit a payload")
	}

	// Same state, query re-runs: no event.
	_, payload, err = agg.collect(ctx)
	if err != nil {
		t.Fatalf("second collect: %v", err)
	}
	if payload != nil {
		t.Errorf("unchanged snapshot emitted a payload: %s", payload)
	}

	// A position change is material again.
	report(t, store, event.Guest("g1"), testVenuePos.Lat+metersNorth(100), testVenuePos.Lng)
	_, payload, err = agg.collect(ctx)
	if err != nil {
		t.Fatalf("third collect: %v", err)
	}
	if payload == nil {
		t.Error("changed snapshot must emit a payload")
	}
}

// Scenario: two participants 10 m apart, 200 m from the active venue
// (radius 75 m), and a third reporting the (0,0) sentinel. The presence
// event classifies the pair as approaching and the third as unknown;
// clustering merges the pair into one cluster of size 2.
func TestPresenceClassificationAndClustering(t *testing.T) {
	store := setupStore(t)
	join(t, store, event.Guest("g1"), "Ana")
	join(t, store, event.Guest("g2"), "Beto")
	join(t, store, event.Guest("g3"), "Carla")

	base := testVenuePos.Lat + metersNorth(200)
	report(t, store, event.Guest("g1"), base, testVenuePos.Lng)
	report(t, store, event.Guest("g2"), base+metersNorth(10), testVenuePos.Lng)
	report(t, store, event.Guest("g3"), 0, 0)

	agg := newPresenceAggregator(store, "crawl")
	snap, payload, err := agg.collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if payload == nil {
		t.Fatal("expected a payload")
	}

	var views []event.Participant
	if err := json.Unmarshal(payload, &views); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("got %d participants, want 3", len(views))
	}

	wantProx := map[string]string{
		"guest:g1": "approaching",
		"guest:g2": "approaching",
		"guest:g3": "unknown",
	}
	for _, v := range views {
		if got := v.Proximity.String(); got != wantProx[v.Identity.String()] {
			t.Errorf("%s: proximity = %s, want %s", v.Identity, got, wantProx[v.Identity.String()])
		}
	}

	// Clustering of the same snapshot merges the 10 m pair.
	var markers []geo.Marker
	for _, p := range snap.participants {
		pos := p.Position()
		if p.LastSeenAt == "" {
			pos = geo.Point{}
		}
		markers = append(markers, geo.Marker{ID: p.Identity.String(), Point: pos})
	}
	clusters := geo.ClusterMarkers(markers, 25)
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}
	if len(clusters[0].Members) != 2 {
		t.Errorf("got cluster of %d, want 2", len(clusters[0].Members))
	}
}

func TestPresenceOrderedByJoin(t *testing.T) {
	store := setupStore(t)
	join(t, store, event.Guest("g1"), "Primero")
	join(t, store, event.Guest("g2"), "Segundo")

	agg := newPresenceAggregator(store, "crawl")
	snap, _, err := agg.collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(snap.participants) != 2 {
		t.Fatalf("got %d participants, want 2", len(snap.participants))
	}
	if snap.participants[0].DisplayName != "Primero" || snap.participants[1].DisplayName != "Segundo" {
		t.Errorf("roster not in join order: %+v", snap.participants)
	}
}

func TestPresenceLeaveRemovesParticipant(t *testing.T) {
	store := setupStore(t)
	join(t, store, event.Guest("g1"), "Ana")
	join(t, store, event.Guest("g2"), "Beto")

	if err := store.LeaveRoute(context.Background(), "crawl", event.Guest("g2")); err != nil {
		t.Fatalf("leave: %v", err)
	}

	agg := newPresenceAggregator(store, "crawl")
	snap, _, err := agg.collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(snap.participants) != 1 {
		t.Fatalf("got %d participants, want 1 after leave", len(snap.participants))
	}
	if snap.participants[0].Identity != event.Guest("g1") {
		t.Errorf("wrong participant left: %+v", snap.participants[0])
	}
}
