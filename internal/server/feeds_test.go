package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Luismi76/birracrucis/internal/event"
)

func testResolver(store Store) *identityResolver {
	return newIdentityResolver(store, "crawl", 10*time.Second)
}

func TestMessageFeedNeverReemits(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	join(t, store, event.Guest("g1"), "Ana")

	feed := &messageFeed{store: store, resolver: testResolver(store), routeID: "crawl", limit: defaultBatchSize}

	if _, err := store.CreateMessage(ctx, "crawl", event.Guest("g1"), "hola"); err != nil {
		t.Fatalf("create message: %v", err)
	}

	payload, ok, err := feed.poll(ctx)
	if err != nil || !ok {
		t.Fatalf("first poll: ok=%v err=%v", ok, err)
	}
	var batch []event.Message
	json.Unmarshal(payload, &batch)
	if len(batch) != 1 || batch[0].Content != "hola" {
		t.Fatalf("unexpected batch: %s", payload)
	}
	if batch[0].Author.Name != "Ana" {
		t.Errorf("author name = %q, want Ana", batch[0].Author.Name)
	}

	// Repeated no-new-data ticks: nothing re-emitted.
	for i := 0; i < 3; i++ {
		if _, ok, err := feed.poll(ctx); err != nil || ok {
			t.Fatalf("tick %d: re-emitted (ok=%v err=%v)", i, ok, err)
		}
	}

	// A new message arrives alone, without the old one.
	store.CreateMessage(ctx, "crawl", event.Guest("g1"), "segunda")
	payload, ok, err = feed.poll(ctx)
	if err != nil || !ok {
		t.Fatalf("poll after new message: ok=%v err=%v", ok, err)
	}
	json.Unmarshal(payload, &batch)
	if len(batch) != 1 || batch[0].Content != "segunda" {
		t.Errorf("got %s, want only the new message", payload)
	}
}

func TestMessageFeedBatchCap(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	join(t, store, event.Guest("g1"), "Ana")

	for i := 0; i < 5; i++ {
		store.CreateMessage(ctx, "crawl", event.Guest("g1"), "m")
	}

	feed := &messageFeed{store: store, resolver: testResolver(store), routeID: "crawl", limit: 2}

	var total int
	for i := 0; i < 3; i++ {
		payload, ok, err := feed.poll(ctx)
		if err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
		if !ok {
			break
		}
		var batch []event.Message
		json.Unmarshal(payload, &batch)
		if len(batch) > 2 {
			t.Fatalf("batch of %d exceeds cap", len(batch))
		}
		total += len(batch)
	}
	if total != 5 {
		t.Errorf("drained %d messages over capped batches, want 5", total)
	}
}

func TestNudgeFeedFiltersButAdvancesCursor(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	join(t, store, event.Guest("g1"), "Ana")
	join(t, store, event.Guest("g2"), "Beto")
	join(t, store, event.Guest("g3"), "Carla")

	// A nudge targeted at someone else, then nothing.
	other := event.Guest("g3")
	store.CreateNudge(ctx, "crawl", event.Guest("g1"), &other)

	feed := &nudgeFeed{store: store, resolver: testResolver(store), routeID: "crawl", caller: event.Guest("g2"), limit: defaultBatchSize}

	payload, ok, err := feed.poll(ctx)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if ok {
		t.Fatalf("mis-targeted nudge delivered: %s", payload)
	}
	if feed.cursor == 0 {
		t.Error("cursor did not advance past the filtered nudge")
	}

	// The skipped nudge is never re-fetched; a broadcast after it is.
	store.CreateNudge(ctx, "crawl", event.Guest("g1"), nil)
	payload, ok, err = feed.poll(ctx)
	if err != nil || !ok {
		t.Fatalf("broadcast poll: ok=%v err=%v", ok, err)
	}
	var batch []event.Nudge
	json.Unmarshal(payload, &batch)
	if len(batch) != 1 {
		t.Fatalf("got %d nudges, want 1", len(batch))
	}
	if batch[0].Target != nil {
		t.Errorf("expected broadcast, got target %+v", batch[0].Target)
	}
	if batch[0].SenderName != "Ana" {
		t.Errorf("sender name = %q, want Ana", batch[0].SenderName)
	}
}

func TestNudgeFeedDeliversTargeted(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	join(t, store, event.Guest("g1"), "Ana")
	join(t, store, event.Guest("g2"), "Beto")

	me := event.Guest("g2")
	store.CreateNudge(ctx, "crawl", event.Guest("g1"), &me)

	feed := &nudgeFeed{store: store, resolver: testResolver(store), routeID: "crawl", caller: me, limit: defaultBatchSize}

	payload, ok, err := feed.poll(ctx)
	if err != nil || !ok {
		t.Fatalf("poll: ok=%v err=%v", ok, err)
	}
	var batch []event.Nudge
	json.Unmarshal(payload, &batch)
	if len(batch) != 1 || batch[0].Target == nil || *batch[0].Target != me {
		t.Errorf("unexpected batch: %s", payload)
	}
}

func TestNudgeFeedNeverReemits(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	join(t, store, event.Guest("g1"), "Ana")

	store.CreateNudge(ctx, "crawl", event.Guest("g1"), nil)
	feed := &nudgeFeed{store: store, resolver: testResolver(store), routeID: "crawl", caller: event.Guest("g1"), limit: defaultBatchSize}

	if _, ok, err := feed.poll(ctx); err != nil || !ok {
		t.Fatalf("first poll: ok=%v err=%v", ok, err)
	}
	for i := 0; i < 3; i++ {
		if _, ok, err := feed.poll(ctx); err != nil || ok {
			t.Fatalf("tick %d re-emitted (ok=%v err=%v)", i, ok, err)
		}
	}
}
