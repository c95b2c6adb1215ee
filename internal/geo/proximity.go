package geo

// Proximity classifies a participant's position relative to the active
// venue geofence.
type Proximity int

const (
	ProximityUnknown Proximity = iota
	ProximityApproaching
	ProximityAtVenue
)

func (p Proximity) String() string {
	switch p {
	case ProximityApproaching:
		return "approaching"
	case ProximityAtVenue:
		return "atVenue"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the proximity as its wire name.
func (p Proximity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// Classify buckets pos against the venue geofence. The boundary is
// inclusive: a participant standing exactly radius meters away is at
// the venue. An unknown position or venue yields ProximityUnknown.
func Classify(pos, venue Point, radius float64) Proximity {
	d, ok := Distance(pos, venue)
	if !ok {
		return ProximityUnknown
	}
	if d <= radius {
		return ProximityAtVenue
	}
	return ProximityApproaching
}
