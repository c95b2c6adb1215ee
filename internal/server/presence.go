package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/Luismi76/birracrucis/internal/event"
	"github.com/Luismi76/birracrucis/internal/geo"
)

// presenceSnapshot is the result of one aggregation pass: the
// classified roster and, when the snapshot differs from the previous
// tick, the encoded "participants" payload.
type presenceSnapshot struct {
	participants []event.Participant
	venue        *event.Venue // nil when the route has no active stop
}

// presenceAggregator builds the per-tick roster snapshot and suppresses
// the event when nothing material changed since the last tick.
type presenceAggregator struct {
	store   Store
	routeID string

	lastHash uint64
	hasHash  bool
}

func newPresenceAggregator(store Store, routeID string) *presenceAggregator {
	return &presenceAggregator{store: store, routeID: routeID}
}

// collect snapshots the active roster, classifies every participant
// against the active venue, and returns the payload only when the
// normalized snapshot's hash differs from the previous tick's. The
// snapshot itself is always returned; check-in logic needs it on
// unchanged ticks too.
func (p *presenceAggregator) collect(ctx context.Context) (presenceSnapshot, json.RawMessage, error) {
	var snap presenceSnapshot

	roster, err := p.store.Roster(ctx, p.routeID)
	if err != nil {
		return snap, nil, fmt.Errorf("loading roster: %w", err)
	}

	venue, err := p.store.ActiveVenue(ctx, p.routeID)
	switch {
	case errors.Is(err, ErrNotFound):
		// No active stop yet; everyone classifies as unknown.
	case err != nil:
		return snap, nil, fmt.Errorf("loading active venue: %w", err)
	default:
		snap.venue = &venue
	}

	// The roster query orders by join time, so the snapshot is already
	// normalized; the hash is stable across ticks with identical state.
	snap.participants = make([]event.Participant, 0, len(roster))
	for _, e := range roster {
		view := event.Participant{
			Identity:    e.Identity,
			DisplayName: e.DisplayName,
			AvatarRef:   e.AvatarRef,
			Lat:         e.Lat,
			Lng:         e.Lng,
			LastSeenAt:  e.LastSeenAt,
			Active:      e.Active,
			Proximity:   geo.ProximityUnknown,
		}
		pos := geo.Point{Lat: e.Lat, Lng: e.Lng}
		if e.LastSeenAt == "" {
			// Never reported: treat any stored coordinates as stale.
			pos = geo.Point{}
			view.Lat, view.Lng = 0, 0
		}
		if snap.venue != nil {
			view.Proximity = geo.Classify(pos, snap.venue.Position(), snap.venue.CheckinRadius)
		}
		snap.participants = append(snap.participants, view)
	}

	payload, err := json.Marshal(snap.participants)
	if err != nil {
		return snap, nil, fmt.Errorf("encoding participants: %w", err)
	}

	h := fnv.New64a()
	h.Write(payload)
	sum := h.Sum64()

	if p.hasHash && sum == p.lastHash {
		return snap, nil, nil
	}
	p.lastHash = sum
	p.hasHash = true
	return snap, payload, nil
}
