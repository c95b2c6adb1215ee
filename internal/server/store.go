package server

import (
	"context"
	"errors"

	"github.com/Luismi76/birracrucis/internal/event"
)

var ErrNotFound = errors.New("not found")

// participantSession is the resolved caller behind a session token.
type participantSession struct {
	ParticipantID string
	RouteID       string
	Identity      event.Identity
	DisplayName   string
	Active        bool
}

// RosterEntry is one active participant of a route, ordered by join
// time. LastSeenAt is empty when the participant has never reported.
type RosterEntry struct {
	Identity    event.Identity
	DisplayName string
	AvatarRef   string
	Lat         float64
	Lng         float64
	LastSeenAt  string
	Active      bool
	JoinedAt    string
}

// IdentityInfo is the resolved display data behind an identity.
type IdentityInfo struct {
	DisplayName string
	AvatarRef   string
}

// MessageRecord is a stored chat message before author annotation.
type MessageRecord struct {
	ID        int64
	Author    event.Identity
	Content   string
	CreatedAt string
}

// NudgeRecord is a stored nudge before sender annotation. A nil Target
// means broadcast.
type NudgeRecord struct {
	ID        int64
	Sender    event.Identity
	Target    *event.Identity
	CreatedAt string
}

// VenueSeed describes a stop when creating a route.
type VenueSeed struct {
	ID                string
	Name              string
	Lat               float64
	Lng               float64
	CheckinRadiusM    float64
	AutoCheckinRadius float64 // 0 = none
}

// Store is the persistence collaborator behind the live surfaces.
// Messages and nudges are append-only with AUTOINCREMENT ids, so ids
// are monotonic in creation order and usable as feed cursors.
type Store interface {
	ParticipantFromToken(ctx context.Context, token string) (participantSession, error)

	RouteExists(ctx context.Context, routeID string) (bool, error)
	CreateRoute(ctx context.Context, routeID, name string, venues []VenueSeed) error
	ActiveVenue(ctx context.Context, routeID string) (event.Venue, error)
	SetActiveVenue(ctx context.Context, routeID, venueID string) error

	JoinRoute(ctx context.Context, routeID string, id event.Identity, displayName, avatarRef string) (token string, err error)
	LeaveRoute(ctx context.Context, routeID string, id event.Identity) error
	Roster(ctx context.Context, routeID string) ([]RosterEntry, error)
	ResolveIdentity(ctx context.Context, routeID string, id event.Identity) (IdentityInfo, error)
	RecordPosition(ctx context.Context, routeID string, id event.Identity, lat, lng float64, seenAt string) error

	CreateMessage(ctx context.Context, routeID string, author event.Identity, content string) (MessageRecord, error)
	MessagesSince(ctx context.Context, routeID string, afterID int64, limit int) ([]MessageRecord, error)
	LatestMessageID(ctx context.Context, routeID string) (int64, error)

	CreateNudge(ctx context.Context, routeID string, sender event.Identity, target *event.Identity) (NudgeRecord, error)
	NudgesSince(ctx context.Context, routeID string, afterID int64, limit int) ([]NudgeRecord, error)
	LatestNudgeID(ctx context.Context, routeID string) (int64, error)

	RecordCheckIn(ctx context.Context, routeID, venueID string, id event.Identity, auto bool) (string, error)
}
