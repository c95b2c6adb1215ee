package server

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/Luismi76/birracrucis/internal/event"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) ParticipantFromToken(ctx context.Context, token string) (participantSession, error) {
	var (
		sess   participantSession
		kind   string
		active int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, route_id, kind, ref_id, display_name, active
		FROM participants
		WHERE session_id = ?
	`, token).Scan(&sess.ParticipantID, &sess.RouteID, &kind, &sess.Identity.ID, &sess.DisplayName, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return sess, errNoSession
	}
	sess.Identity.Kind = event.IdentityKind(kind)
	sess.Active = active == 1
	return sess, err
}

func (s *SQLiteStore) RouteExists(ctx context.Context, routeID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM routes WHERE id = ?`, routeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLiteStore) CreateRoute(ctx context.Context, routeID, name string, venues []VenueSeed) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO routes (id, name) VALUES (?, ?)
	`, routeID, name); err != nil {
		return err
	}

	for i, v := range venues {
		id := v.ID
		if id == "" {
			id = uuid.NewString()
		}
		var auto any
		if v.AutoCheckinRadius > 0 {
			auto = v.AutoCheckinRadius
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO venues (id, route_id, name, lat, lng, checkin_radius_m, auto_checkin_radius_m, stop_order)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, id, routeID, v.Name, v.Lat, v.Lng, v.CheckinRadiusM, auto, i+1); err != nil {
			return err
		}
		if i == 0 {
			if _, err := tx.ExecContext(ctx, `
				UPDATE routes SET active_venue_id = ? WHERE id = ?
			`, id, routeID); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) ActiveVenue(ctx context.Context, routeID string) (event.Venue, error) {
	var (
		v    event.Venue
		auto sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT v.id, v.name, v.lat, v.lng, v.checkin_radius_m, v.auto_checkin_radius_m
		FROM venues v
		JOIN routes r ON r.active_venue_id = v.id
		WHERE r.id = ?
	`, routeID).Scan(&v.ID, &v.Name, &v.Lat, &v.Lng, &v.CheckinRadius, &auto)
	if errors.Is(err, sql.ErrNoRows) {
		return v, ErrNotFound
	}
	if auto.Valid {
		v.AutoCheckinRadius = auto.Float64
	}
	return v, err
}

func (s *SQLiteStore) SetActiveVenue(ctx context.Context, routeID, venueID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE routes SET active_venue_id = ? WHERE id = ?
	`, venueID, routeID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// JoinRoute creates the participant or reactivates an existing one,
// rotating the session token either way.
func (s *SQLiteStore) JoinRoute(ctx context.Context, routeID string, id event.Identity, displayName, avatarRef string) (string, error) {
	token := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO participants (id, route_id, kind, ref_id, display_name, avatar_ref, session_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (route_id, kind, ref_id) DO UPDATE SET
			display_name = excluded.display_name,
			avatar_ref = excluded.avatar_ref,
			session_id = excluded.session_id,
			active = 1
	`, uuid.NewString(), routeID, string(id.Kind), id.ID, displayName, avatarRef, token)
	return token, err
}

func (s *SQLiteStore) LeaveRoute(ctx context.Context, routeID string, id event.Identity) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE participants SET active = 0
		WHERE route_id = ? AND kind = ? AND ref_id = ?
	`, routeID, string(id.Kind), id.ID)
	return err
}

func (s *SQLiteStore) Roster(ctx context.Context, routeID string) ([]RosterEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, ref_id, display_name, avatar_ref, lat, lng, last_seen_at, active, joined_at
		FROM participants
		WHERE route_id = ? AND active = 1
		ORDER BY joined_at, rowid
	`, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roster []RosterEntry
	for rows.Next() {
		var (
			e        RosterEntry
			kind     string
			lastSeen sql.NullString
			active   int
		)
		if err := rows.Scan(&kind, &e.Identity.ID, &e.DisplayName, &e.AvatarRef,
			&e.Lat, &e.Lng, &lastSeen, &active, &e.JoinedAt); err != nil {
			return nil, err
		}
		e.Identity.Kind = event.IdentityKind(kind)
		e.LastSeenAt = lastSeen.String
		e.Active = active == 1
		roster = append(roster, e)
	}
	return roster, rows.Err()
}

func (s *SQLiteStore) ResolveIdentity(ctx context.Context, routeID string, id event.Identity) (IdentityInfo, error) {
	var info IdentityInfo
	err := s.db.QueryRowContext(ctx, `
		SELECT display_name, avatar_ref
		FROM participants
		WHERE route_id = ? AND kind = ? AND ref_id = ?
	`, routeID, string(id.Kind), id.ID).Scan(&info.DisplayName, &info.AvatarRef)
	if errors.Is(err, sql.ErrNoRows) {
		return info, ErrNotFound
	}
	return info, err
}

func (s *SQLiteStore) RecordPosition(ctx context.Context, routeID string, id event.Identity, lat, lng float64, seenAt string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE participants SET lat = ?, lng = ?, last_seen_at = ?
		WHERE route_id = ? AND kind = ? AND ref_id = ?
	`, lat, lng, seenAt, routeID, string(id.Kind), id.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (s *SQLiteStore) CreateMessage(ctx context.Context, routeID string, author event.Identity, content string) (MessageRecord, error) {
	rec := MessageRecord{Author: author, Content: content}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO messages (route_id, author_kind, author_id, content)
		VALUES (?, ?, ?, ?)
		RETURNING id, created_at
	`, routeID, string(author.Kind), author.ID, content).Scan(&rec.ID, &rec.CreatedAt)
	return rec, err
}

func (s *SQLiteStore) MessagesSince(ctx context.Context, routeID string, afterID int64, limit int) ([]MessageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, author_kind, author_id, content, created_at
		FROM messages
		WHERE route_id = ? AND id > ?
		ORDER BY id
		LIMIT ?
	`, routeID, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []MessageRecord
	for rows.Next() {
		var (
			rec  MessageRecord
			kind string
		)
		if err := rows.Scan(&rec.ID, &kind, &rec.Author.ID, &rec.Content, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Author.Kind = event.IdentityKind(kind)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *SQLiteStore) LatestMessageID(ctx context.Context, routeID string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(id), 0) FROM messages WHERE route_id = ?
	`, routeID).Scan(&id)
	return id, err
}

func (s *SQLiteStore) CreateNudge(ctx context.Context, routeID string, sender event.Identity, target *event.Identity) (NudgeRecord, error) {
	rec := NudgeRecord{Sender: sender, Target: target}
	var targetKind, targetID any
	if target != nil {
		targetKind, targetID = string(target.Kind), target.ID
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO nudges (route_id, sender_kind, sender_id, target_kind, target_id)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, created_at
	`, routeID, string(sender.Kind), sender.ID, targetKind, targetID).Scan(&rec.ID, &rec.CreatedAt)
	return rec, err
}

func (s *SQLiteStore) NudgesSince(ctx context.Context, routeID string, afterID int64, limit int) ([]NudgeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_kind, sender_id, target_kind, target_id, created_at
		FROM nudges
		WHERE route_id = ? AND id > ?
		ORDER BY id
		LIMIT ?
	`, routeID, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []NudgeRecord
	for rows.Next() {
		var (
			rec        NudgeRecord
			senderKind string
			targetKind sql.NullString
			targetID   sql.NullString
		)
		if err := rows.Scan(&rec.ID, &senderKind, &rec.Sender.ID, &targetKind, &targetID, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Sender.Kind = event.IdentityKind(senderKind)
		if targetKind.Valid && targetID.Valid {
			t := event.Identity{Kind: event.IdentityKind(targetKind.String), ID: targetID.String}
			rec.Target = &t
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *SQLiteStore) LatestNudgeID(ctx context.Context, routeID string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(id), 0) FROM nudges WHERE route_id = ?
	`, routeID).Scan(&id)
	return id, err
}

func (s *SQLiteStore) RecordCheckIn(ctx context.Context, routeID, venueID string, id event.Identity, auto bool) (string, error) {
	autoInt := 0
	if auto {
		autoInt = 1
	}
	checkinID := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkins (id, route_id, venue_id, kind, ref_id, auto)
		VALUES (?, ?, ?, ?, ?, ?)
	`, checkinID, routeID, venueID, string(id.Kind), id.ID, autoInt)
	return checkinID, err
}
