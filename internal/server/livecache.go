package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Luismi76/birracrucis/internal/event"
)

// positionCache keeps the freshest position report per participant in
// Redis so the map surface can overlay positions newer than the last
// SQLite write that other instances have seen. Entries expire on their
// own; a participant that stops reporting simply ages out. The cache is
// optional: a nil client disables it and every method is a no-op.
type positionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

type cachedPosition struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	SeenAt string  `json:"seenAt"`
}

func newPositionCache(rdb *redis.Client) *positionCache {
	return &positionCache{rdb: rdb, ttl: 2 * time.Minute}
}

func (c *positionCache) key(routeID string, id event.Identity) string {
	return fmt.Sprintf("pos:%s:%s", routeID, id)
}

func (c *positionCache) set(ctx context.Context, routeID string, id event.Identity, lat, lng float64, seenAt string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(cachedPosition{Lat: lat, Lng: lng, SeenAt: seenAt})
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(routeID, id), payload, c.ttl).Err()
}

// get returns the cached position and whether one was found. Errors
// and disabled caches both read as a miss.
func (c *positionCache) get(ctx context.Context, routeID string, id event.Identity) (cachedPosition, bool) {
	if c == nil || c.rdb == nil {
		return cachedPosition{}, false
	}
	raw, err := c.rdb.Get(ctx, c.key(routeID, id)).Bytes()
	if err != nil {
		return cachedPosition{}, false
	}
	var pos cachedPosition
	if err := json.Unmarshal(raw, &pos); err != nil {
		return cachedPosition{}, false
	}
	return pos, true
}
