package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Luismi76/birracrucis/internal/event"
)

const defaultBatchSize = 50

// messageFeed is an append-only "fetch since last id" feed over the
// route's chat messages. The cursor only ever moves forward, so an id
// is never emitted twice within a session.
type messageFeed struct {
	store    Store
	resolver *identityResolver
	routeID  string
	cursor   int64
	limit    int
}

// poll fetches at most limit messages past the cursor and returns them
// as one encoded batch. An empty fetch returns ok=false and leaves the
// cursor where it was.
func (f *messageFeed) poll(ctx context.Context) (json.RawMessage, bool, error) {
	recs, err := f.store.MessagesSince(ctx, f.routeID, f.cursor, f.limit)
	if err != nil {
		return nil, false, fmt.Errorf("fetching messages: %w", err)
	}
	if len(recs) == 0 {
		return nil, false, nil
	}

	views := make([]event.Message, 0, len(recs))
	for _, rec := range recs {
		info, err := f.resolver.resolve(ctx, rec.Author)
		if err != nil {
			return nil, false, fmt.Errorf("resolving author %s: %w", rec.Author, err)
		}
		views = append(views, event.Message{
			ID:        rec.ID,
			Content:   rec.Content,
			CreatedAt: rec.CreatedAt,
			Author: event.Author{
				ID:        rec.Author.ID,
				Name:      info.DisplayName,
				AvatarRef: info.AvatarRef,
			},
		})
	}

	payload, err := json.Marshal(views)
	if err != nil {
		return nil, false, fmt.Errorf("encoding messages: %w", err)
	}
	f.cursor = recs[len(recs)-1].ID
	return payload, true, nil
}

// nudgeFeed is the cursor feed over nudges, filtered to the batches the
// caller should see: broadcasts and nudges targeted at the caller.
type nudgeFeed struct {
	store    Store
	resolver *identityResolver
	routeID  string
	caller   event.Identity
	cursor   int64
	limit    int
}

// poll advances the cursor over the unfiltered batch so mis-targeted
// nudges are never re-fetched, then delivers only the nudges visible to
// the caller. A batch that filters down to nothing emits no event but
// still moves the cursor.
func (f *nudgeFeed) poll(ctx context.Context) (json.RawMessage, bool, error) {
	recs, err := f.store.NudgesSince(ctx, f.routeID, f.cursor, f.limit)
	if err != nil {
		return nil, false, fmt.Errorf("fetching nudges: %w", err)
	}
	if len(recs) == 0 {
		return nil, false, nil
	}
	f.cursor = recs[len(recs)-1].ID

	var views []event.Nudge
	for _, rec := range recs {
		if rec.Target != nil && *rec.Target != f.caller {
			continue
		}
		info, err := f.resolver.resolve(ctx, rec.Sender)
		if err != nil {
			return nil, false, fmt.Errorf("resolving sender %s: %w", rec.Sender, err)
		}
		views = append(views, event.Nudge{
			ID:         rec.ID,
			SenderName: info.DisplayName,
			Target:     rec.Target,
			CreatedAt:  rec.CreatedAt,
		})
	}
	if len(views) == 0 {
		return nil, false, nil
	}

	payload, err := json.Marshal(views)
	if err != nil {
		return nil, false, fmt.Errorf("encoding nudges: %w", err)
	}
	return payload, true, nil
}
