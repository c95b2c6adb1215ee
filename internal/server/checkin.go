package server

import (
	"context"
	"log/slog"

	"github.com/Luismi76/birracrucis/internal/event"
	"github.com/Luismi76/birracrucis/internal/geo"
)

// checkinController turns the caller's per-tick proximity into
// automatic check-ins. Only the approaching -> atVenue crossing fires,
// at most once per venue visit; walking out and back in arms it again.
// Position loss is not an outward crossing, so a GPS dropout while
// standing at the bar does not re-arm the trigger.
type checkinController struct {
	logger  *slog.Logger
	store   Store
	routeID string
	caller  event.Identity

	venueID string
	prev    geo.Proximity
	fired   bool
}

func newCheckinController(logger *slog.Logger, store Store, routeID string, caller event.Identity) *checkinController {
	return &checkinController{
		logger:  logger,
		store:   store,
		routeID: routeID,
		caller:  caller,
	}
}

// observe evaluates one tick. When the venue defines a smaller
// auto-check-in radius, the crossing is judged against that instead of
// the public check-in fence.
func (c *checkinController) observe(ctx context.Context, venue *event.Venue, pos geo.Point) {
	if venue == nil {
		c.venueID = ""
		c.prev = geo.ProximityUnknown
		c.fired = false
		return
	}
	if venue.ID != c.venueID {
		// New active stop: fresh visit state.
		c.venueID = venue.ID
		c.prev = geo.ProximityUnknown
		c.fired = false
	}

	radius := venue.CheckinRadius
	if venue.AutoCheckinRadius > 0 {
		radius = venue.AutoCheckinRadius
	}

	switch prox := geo.Classify(pos, venue.Position(), radius); prox {
	case geo.ProximityAtVenue:
		if c.prev == geo.ProximityApproaching && !c.fired {
			if _, err := c.store.RecordCheckIn(ctx, c.routeID, venue.ID, c.caller, true); err != nil {
				// Leave the trigger armed; the next tick retries.
				c.logger.Warn("auto check-in failed", "venue", venue.ID, "error", err)
			} else {
				c.logger.Info("auto check-in", "venue", venue.ID, "participant", c.caller.String())
				c.fired = true
			}
		}
		c.prev = prox
	case geo.ProximityApproaching:
		// Outward crossing or still inbound; either way the next
		// entry may fire.
		c.fired = false
		c.prev = prox
	case geo.ProximityUnknown:
		// Hold the visit state until the position comes back.
	}
}
