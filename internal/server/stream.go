package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Luismi76/birracrucis/internal/event"
	"github.com/Luismi76/birracrucis/internal/geo"
)

// StreamConfig tunes every stream session the server opens.
type StreamConfig struct {
	// TickInterval drives one aggregation pass across presence,
	// messages and nudges.
	TickInterval time.Duration
	// SessionLifetime bounds the whole connection; it must stay under
	// the hosting platform's execution limit so the server closes the
	// transport cleanly instead of being killed.
	SessionLifetime time.Duration
	// BatchSize caps each cursor-feed fetch.
	BatchSize int
}

func (c StreamConfig) withDefaults() StreamConfig {
	if c.TickInterval <= 0 {
		c.TickInterval = 3 * time.Second
	}
	if c.SessionLifetime <= 0 {
		c.SessionLifetime = 25 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	return c
}

// eventSink is where a session pushes its outbound frames. The SSE
// handler wraps the HTTP response; tests substitute a recorder.
type eventSink interface {
	Event(name string, data []byte) error
	Comment(text string) error
}

// streamSession multiplexes the presence aggregator, the two cursor
// feeds and the check-in controller into one outbound event stream.
//
// Lifecycle: connected ack, then one aggregation pass per tick until
// either the hard lifetime elapses (clean close after a final
// heartbeat) or the client aborts. Both timers are released on every
// exit path by the same defers, so no path leaves one dangling.
type streamSession struct {
	logger   *slog.Logger
	sink     eventSink
	caller   event.Identity
	presence *presenceAggregator
	messages *messageFeed
	nudges   *nudgeFeed
	checkins *checkinController
	cfg      StreamConfig

	// busy guarantees at most one in-flight aggregation pass; a slow
	// pass makes the next tick a no-op rather than an overlap.
	busy atomic.Bool
}

func newStreamSession(logger *slog.Logger, store Store, sink eventSink, routeID string, caller event.Identity, nudgeCursor, messageCursor int64, cfg StreamConfig) *streamSession {
	cfg = cfg.withDefaults()
	resolver := newIdentityResolver(store, routeID, 3*cfg.TickInterval)

	return &streamSession{
		logger:   logger,
		sink:     sink,
		caller:   caller,
		presence: newPresenceAggregator(store, routeID),
		messages: &messageFeed{
			store:    store,
			resolver: resolver,
			routeID:  routeID,
			cursor:   messageCursor,
			limit:    cfg.BatchSize,
		},
		nudges: &nudgeFeed{
			store:    store,
			resolver: resolver,
			routeID:  routeID,
			caller:   caller,
			cursor:   nudgeCursor,
			limit:    cfg.BatchSize,
		},
		checkins: newCheckinController(logger, store, routeID, caller),
		cfg:      cfg,
	}
}

// run drives the session until the hard lifetime elapses or ctx is
// canceled. It always returns nil: both endings are expected, not
// failures.
func (s *streamSession) run(ctx context.Context) error {
	lifetime := time.NewTimer(s.cfg.SessionLifetime)
	defer lifetime.Stop()
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	if err := s.sink.Event(event.TypeConnected, []byte(`{"status":"ok"}`)); err != nil {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			// Transport abort: halt immediately, timers stop via defers.
			return nil
		case <-lifetime.C:
			// Hard lifetime: one last heartbeat, then a clean close the
			// client treats as a routine reconnect boundary.
			s.sink.Comment("heartbeat")
			return nil
		case <-ticker.C:
			if !s.busy.CompareAndSwap(false, true) {
				continue
			}
			s.tick(ctx)
			s.busy.Store(false)
		}
	}
}

// tick runs one aggregation pass. The three fetches are independent and
// run concurrently; results are joined before anything is written so
// event order on the wire stays fixed. A failed fetch skips its event
// for this tick and is superseded by the next one; the heartbeat goes
// out regardless so intermediaries don't declare the connection dead.
func (s *streamSession) tick(ctx context.Context) {
	var (
		snap     presenceSnapshot
		pPayload json.RawMessage
		pErr     error

		mPayload json.RawMessage
		mOK      bool
		mErr     error

		nPayload json.RawMessage
		nOK      bool
		nErr     error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap, pPayload, pErr = s.presence.collect(gctx)
		return nil
	})
	g.Go(func() error {
		mPayload, mOK, mErr = s.messages.poll(gctx)
		return nil
	})
	g.Go(func() error {
		nPayload, nOK, nErr = s.nudges.poll(gctx)
		return nil
	})
	g.Wait()

	// Cooperative cancellation: no writes after an abort.
	if ctx.Err() != nil {
		return
	}

	if pErr != nil {
		s.logger.Warn("presence pass failed", "error", pErr)
	} else {
		if pPayload != nil {
			if err := s.sink.Event(event.TypeParticipants, pPayload); err != nil {
				return
			}
		}
		s.checkins.observe(ctx, snap.venue, s.callerPosition(snap))
	}

	if mErr != nil {
		s.logger.Warn("message feed failed", "error", mErr)
	} else if mOK {
		if err := s.sink.Event(event.TypeMessages, mPayload); err != nil {
			return
		}
	}

	if nErr != nil {
		s.logger.Warn("nudge feed failed", "error", nErr)
	} else if nOK {
		if err := s.sink.Event(event.TypeNudges, nPayload); err != nil {
			return
		}
	}

	s.sink.Comment("heartbeat")
}

func (s *streamSession) callerPosition(snap presenceSnapshot) geo.Point {
	for _, p := range snap.participants {
		if p.Identity == s.caller {
			if p.LastSeenAt == "" {
				return geo.Point{}
			}
			return p.Position()
		}
	}
	return geo.Point{}
}
