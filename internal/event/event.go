// Package event defines the wire types shared by the stream server and
// the reconnecting client consumer: the tagged participant identity and
// the payloads of the typed push events.
package event

import (
	"errors"
	"fmt"

	"github.com/Luismi76/birracrucis/internal/geo"
)

// Event names as they appear on the wire ("event:" line).
const (
	TypeConnected    = "connected"
	TypeParticipants = "participants"
	TypeMessages     = "messages"
	TypeNudges       = "nudges"
)

// IdentityKind discriminates registered users from ad-hoc guests.
type IdentityKind string

const (
	KindUser  IdentityKind = "user"
	KindGuest IdentityKind = "guest"
)

// Identity is a tagged union: exactly one kind, exactly one id. The
// shape rules out the "both set / both null" states that two nullable
// columns would allow.
type Identity struct {
	Kind IdentityKind `json:"kind"`
	ID   string       `json:"id"`
}

func User(id string) Identity  { return Identity{Kind: KindUser, ID: id} }
func Guest(id string) Identity { return Identity{Kind: KindGuest, ID: id} }

var errInvalidIdentity = errors.New("identity must have kind user or guest and a non-empty id")

// Validate reports whether the identity is well formed.
func (i Identity) Validate() error {
	if i.ID == "" {
		return errInvalidIdentity
	}
	if i.Kind != KindUser && i.Kind != KindGuest {
		return errInvalidIdentity
	}
	return nil
}

// IsZero reports whether the identity is unset.
func (i Identity) IsZero() bool { return i.Kind == "" && i.ID == "" }

// String is the canonical "kind:id" form, used as a cache and dedupe key.
func (i Identity) String() string { return fmt.Sprintf("%s:%s", i.Kind, i.ID) }

// Participant is one entry of the "participants" event payload.
type Participant struct {
	Identity    Identity      `json:"identity"`
	DisplayName string        `json:"displayName"`
	AvatarRef   string        `json:"avatarRef,omitempty"`
	Lat         float64       `json:"lat"`
	Lng         float64       `json:"lng"`
	LastSeenAt  string        `json:"lastSeenAt,omitempty"`
	Active      bool          `json:"active"`
	Proximity   geo.Proximity `json:"proximity"`
}

// Position returns the participant's reported position, which may be
// the unknown sentinel.
func (p Participant) Position() geo.Point {
	return geo.Point{Lat: p.Lat, Lng: p.Lng}
}

// Author annotates a message with its resolved sender.
type Author struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarRef string `json:"avatarRef,omitempty"`
}

// Message is one entry of the "messages" event payload.
type Message struct {
	ID        int64  `json:"id"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
	Author    Author `json:"author"`
}

// Nudge is one entry of the "nudges" event payload. A nil target means
// the nudge is broadcast to every participant.
type Nudge struct {
	ID         int64     `json:"id"`
	SenderName string    `json:"senderName"`
	Target     *Identity `json:"targetIdentity"`
	CreatedAt  string    `json:"createdAt"`
}

// Venue is the currently active stop of a route.
type Venue struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Lat               float64 `json:"lat"`
	Lng               float64 `json:"lng"`
	CheckinRadius     float64 `json:"checkinRadius"`
	AutoCheckinRadius float64 `json:"autoCheckinRadius,omitempty"`
}

// Position returns the venue's location.
func (v Venue) Position() geo.Point {
	return geo.Point{Lat: v.Lat, Lng: v.Lng}
}
