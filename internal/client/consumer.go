// Package client implements the consuming side of the route event
// stream: a long-lived SSE subscription that reconnects transparently
// every time the server closes a session at its lifetime bound, merges
// incremental payloads into local state, and exposes that state to UI
// surfaces.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Luismi76/birracrucis/internal/event"
	"github.com/Luismi76/birracrucis/internal/geo"
)

// Options configures a Consumer.
type Options struct {
	// BaseURL is the route endpoint, e.g.
	// "https://host/api/routes/demo".
	BaseURL string
	// Token is the session token returned by join.
	Token string
	// ReconnectDelay is the pause before redialing after a transport
	// close. Defaults to one second.
	ReconnectDelay time.Duration
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

// PermanentError is a non-retryable stream rejection: the caller is not
// an active participant or the route does not exist. Routine transport
// closes never produce one.
type PermanentError struct {
	StatusCode int
	Message    string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("stream rejected with status %d: %s", e.StatusCode, e.Message)
}

// Consumer owns one subscription to one route. Run keeps exactly one
// connection outstanding; reconnect attempts are serialized and stop
// when the context is canceled.
type Consumer struct {
	opts Options

	mu           sync.Mutex
	participants []event.Participant
	messages     []event.Message
	seenMessages map[int64]struct{}
	seenNudges   map[int64]struct{}
	nudgeCursor  int64
	haveParts    bool
	haveMessages bool
	unread       int
	focused      bool

	onParticipants func([]event.Participant)
	onMessages     func([]event.Message)
	onNudge        func(event.Nudge)
}

func New(opts Options) *Consumer {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Consumer{
		opts:         opts,
		seenMessages: make(map[int64]struct{}),
		seenNudges:   make(map[int64]struct{}),
		nudgeCursor:  -1,
	}
}

// OnParticipants registers the presence-list/map callback. It receives
// the full merged roster after every participants event.
func (c *Consumer) OnParticipants(fn func([]event.Participant)) {
	c.mu.Lock()
	c.onParticipants = fn
	c.mu.Unlock()
}

// OnMessages registers the chat callback. It receives only the newly
// merged messages of each batch.
func (c *Consumer) OnMessages(fn func([]event.Message)) {
	c.mu.Lock()
	c.onMessages = fn
	c.mu.Unlock()
}

// OnNudge registers the toast callback, invoked once per unseen nudge.
func (c *Consumer) OnNudge(fn func(event.Nudge)) {
	c.mu.Lock()
	c.onNudge = fn
	c.mu.Unlock()
}

// Run connects and consumes until ctx is canceled. Transport closes are
// expected — the server bounds every session's lifetime — and are
// retried silently; only a non-retryable rejection (permission, missing
// route) is returned as an error.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		err := c.stream(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if perm, ok := err.(*PermanentError); ok {
			return perm
		}
		if err != nil {
			c.opts.Logger.Debug("stream closed, reconnecting", "error", err)
		} else {
			c.opts.Logger.Debug("stream closed by server, reconnecting")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.opts.ReconnectDelay):
		}
	}
}

// stream opens one connection and consumes it to EOF.
func (c *Consumer) stream(ctx context.Context) error {
	url := c.opts.BaseURL + "/stream?token=" + c.opts.Token
	c.mu.Lock()
	if c.nudgeCursor >= 0 {
		url += "&cursor=" + strconv.FormatInt(c.nudgeCursor, 10)
	}
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return &PermanentError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		default:
			return fmt.Errorf("stream returned status %d", resp.StatusCode)
		}
	}

	var name string
	var data strings.Builder

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if name != "" {
				c.dispatch(name, []byte(data.String()))
			}
			name = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// Heartbeat comment; nothing to do.
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	return scanner.Err()
}

func (c *Consumer) dispatch(name string, data []byte) {
	switch name {
	case event.TypeConnected:
		// Acknowledgement only.
	case event.TypeParticipants:
		c.applyParticipants(data)
	case event.TypeMessages:
		c.applyMessages(data)
	case event.TypeNudges:
		c.applyNudges(data)
	default:
		c.opts.Logger.Debug("ignoring unknown event", "event", name)
	}
}

// applyParticipants replaces local state on the first payload of the
// subscription and merges by identity afterwards.
func (c *Consumer) applyParticipants(data []byte) {
	var batch []event.Participant
	if err := json.Unmarshal(data, &batch); err != nil {
		c.opts.Logger.Warn("bad participants payload", "error", err)
		return
	}

	c.mu.Lock()
	if !c.haveParts {
		c.participants = batch
		c.haveParts = true
	} else {
		index := make(map[event.Identity]int, len(c.participants))
		for i, p := range c.participants {
			index[p.Identity] = i
		}
		for _, p := range batch {
			if i, ok := index[p.Identity]; ok {
				c.participants[i] = p
			} else {
				c.participants = append(c.participants, p)
			}
		}
	}
	snapshot := append([]event.Participant(nil), c.participants...)
	fn := c.onParticipants
	c.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}

// applyMessages merges a batch, deduplicated by id. Unread only grows
// for merged (non-baseline) messages while the chat surface is not
// focused.
func (c *Consumer) applyMessages(data []byte) {
	var batch []event.Message
	if err := json.Unmarshal(data, &batch); err != nil {
		c.opts.Logger.Warn("bad messages payload", "error", err)
		return
	}

	c.mu.Lock()
	baseline := !c.haveMessages
	c.haveMessages = true

	var merged []event.Message
	for _, m := range batch {
		if _, ok := c.seenMessages[m.ID]; ok {
			continue
		}
		c.seenMessages[m.ID] = struct{}{}
		merged = append(merged, m)
	}
	c.messages = append(c.messages, merged...)
	sort.Slice(c.messages, func(i, j int) bool { return c.messages[i].ID < c.messages[j].ID })

	if !baseline && !c.focused {
		c.unread += len(merged)
	}
	fn := c.onMessages
	c.mu.Unlock()

	if fn != nil && len(merged) > 0 {
		fn(merged)
	}
}

func (c *Consumer) applyNudges(data []byte) {
	var batch []event.Nudge
	if err := json.Unmarshal(data, &batch); err != nil {
		c.opts.Logger.Warn("bad nudges payload", "error", err)
		return
	}

	c.mu.Lock()
	var fresh []event.Nudge
	for _, n := range batch {
		if n.ID > c.nudgeCursor {
			c.nudgeCursor = n.ID
		}
		if _, ok := c.seenNudges[n.ID]; ok {
			continue
		}
		c.seenNudges[n.ID] = struct{}{}
		fresh = append(fresh, n)
	}
	fn := c.onNudge
	c.mu.Unlock()

	if fn != nil {
		for _, n := range fresh {
			fn(n)
		}
	}
}

// SetFocused marks the chat surface focused or not. Focusing clears the
// unread counter.
func (c *Consumer) SetFocused(focused bool) {
	c.mu.Lock()
	c.focused = focused
	if focused {
		c.unread = 0
	}
	c.mu.Unlock()
}

// Unread returns the current unread message count.
func (c *Consumer) Unread() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unread
}

// Participants returns a copy of the merged roster.
func (c *Consumer) Participants() []event.Participant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.Participant(nil), c.participants...)
}

// Messages returns a copy of the merged messages, ordered by id.
func (c *Consumer) Messages() []event.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.Message(nil), c.messages...)
}

// Clusters groups the current roster's known positions for map display.
func (c *Consumer) Clusters(radiusMeters float64) []geo.Cluster {
	c.mu.Lock()
	markers := make([]geo.Marker, 0, len(c.participants))
	for _, p := range c.participants {
		pos := p.Position()
		if p.LastSeenAt == "" {
			pos = geo.Point{}
		}
		markers = append(markers, geo.Marker{ID: p.Identity.String(), Point: pos})
	}
	c.mu.Unlock()

	return geo.ClusterMarkers(markers, radiusMeters)
}
