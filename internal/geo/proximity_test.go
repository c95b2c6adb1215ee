package geo

import (
	"testing"
)

// offsetNorth returns a point d meters north of p, using the ~111,319
// meters-per-degree latitude approximation. Good to well under a meter
// at the distances these tests use.
func offsetNorth(p Point, d float64) Point {
	return Point{Lat: p.Lat + d/111319.9, Lng: p.Lng}
}

func TestClassifyBoundaryInclusive(t *testing.T) {
	venue := Point{Lat: 40.4168, Lng: -3.7038}
	const radius = 75.0

	// Exactly on the boundary: atVenue.
	onEdge := offsetNorth(venue, radius)
	d, _ := Distance(onEdge, venue)
	if d > radius {
		// The degree approximation overshot; nudge inside the fence so
		// the case still exercises the boundary.
		onEdge = offsetNorth(venue, radius-0.01)
	}
	if got := Classify(onEdge, venue, radius); got != ProximityAtVenue {
		t.Errorf("at boundary: got %v, want atVenue", got)
	}

	// Just beyond the boundary: approaching.
	beyond := offsetNorth(venue, radius+1)
	if got := Classify(beyond, venue, radius); got != ProximityApproaching {
		t.Errorf("beyond boundary: got %v, want approaching", got)
	}
}

func TestClassify(t *testing.T) {
	venue := Point{Lat: 40.4168, Lng: -3.7038}
	const radius = 75.0

	tests := []struct {
		name string
		pos  Point
		want Proximity
	}{
		{"sentinel position", Point{}, ProximityUnknown},
		{"at venue center", venue, ProximityAtVenue},
		{"well inside", offsetNorth(venue, 20), ProximityAtVenue},
		{"far away", offsetNorth(venue, 200), ProximityApproaching},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.pos, venue, radius); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyUnknownVenue(t *testing.T) {
	pos := Point{Lat: 40.4168, Lng: -3.7038}
	if got := Classify(pos, Point{}, 75); got != ProximityUnknown {
		t.Errorf("got %v, want unknown when venue position is the sentinel", got)
	}
}

func TestProximityJSON(t *testing.T) {
	tests := []struct {
		p    Proximity
		want string
	}{
		{ProximityUnknown, `"unknown"`},
		{ProximityApproaching, `"approaching"`},
		{ProximityAtVenue, `"atVenue"`},
	}
	for _, tt := range tests {
		b, err := tt.p.MarshalJSON()
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(b) != tt.want {
			t.Errorf("got %s, want %s", b, tt.want)
		}
	}
}
