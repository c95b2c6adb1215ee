package server

import (
	"net/http"
	"strconv"

	"github.com/Luismi76/birracrucis/internal/event"
	"github.com/Luismi76/birracrucis/internal/geo"
)

type MapCluster struct {
	Lat     float64          `json:"lat"`
	Lng     float64          `json:"lng"`
	Count   int              `json:"count"`
	Members []event.Identity `json:"members"`
}

type MapResponse struct {
	Clusters []MapCluster `json:"clusters"`
	RadiusM  float64      `json:"radiusM"`
}

// handleMap returns the route's participant markers grouped for map
// display. The default radius is the small decluttering one; the map
// client passes the larger aggregation radius at low zoom. Positions
// from the live cache override stale store rows when available.
func handleMap(store Store, positions *positionCache, declutterRadius, maxRadius float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := participantFromRequest(store, r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		radius := declutterRadius
		if raw := r.URL.Query().Get("radius"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || v <= 0 || v > maxRadius {
				writeError(w, http.StatusBadRequest, "invalid radius")
				return
			}
			radius = v
		}

		roster, err := store.Roster(r.Context(), sess.RouteID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		byID := make(map[string]event.Identity, len(roster))
		markers := make([]geo.Marker, 0, len(roster))
		for _, e := range roster {
			point := geo.Point{Lat: e.Lat, Lng: e.Lng}
			if e.LastSeenAt == "" {
				point = geo.Point{}
			}
			if cached, ok := positions.get(r.Context(), sess.RouteID, e.Identity); ok {
				point = geo.Point{Lat: cached.Lat, Lng: cached.Lng}
			}
			key := e.Identity.String()
			byID[key] = e.Identity
			markers = append(markers, geo.Marker{ID: key, Point: point})
		}

		clusters := geo.ClusterMarkers(markers, radius)

		resp := MapResponse{RadiusM: radius, Clusters: make([]MapCluster, 0, len(clusters))}
		for _, c := range clusters {
			mc := MapCluster{
				Lat:     c.Centroid.Lat,
				Lng:     c.Centroid.Lng,
				Count:   len(c.Members),
				Members: make([]event.Identity, 0, len(c.Members)),
			}
			for _, m := range c.Members {
				mc.Members = append(mc.Members, byID[m.ID])
			}
			resp.Clusters = append(resp.Clusters, mc)
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
