package server

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/Luismi76/birracrucis/internal/event"
)

// identityResolver caches display name/avatar lookups so annotating a
// batch of guest-authored messages or nudges hits the store at most
// once per identity per tick. The TTL is a few ticks long; a renamed
// guest shows up after it lapses.
type identityResolver struct {
	store   Store
	routeID string
	cache   *ttlcache.Cache[string, IdentityInfo]
}

func newIdentityResolver(store Store, routeID string, ttl time.Duration) *identityResolver {
	return &identityResolver{
		store:   store,
		routeID: routeID,
		cache:   ttlcache.New(ttlcache.WithTTL[string, IdentityInfo](ttl)),
	}
}

func (r *identityResolver) resolve(ctx context.Context, id event.Identity) (IdentityInfo, error) {
	key := id.String()
	if item := r.cache.Get(key); item != nil {
		return item.Value(), nil
	}

	info, err := r.store.ResolveIdentity(ctx, r.routeID, id)
	if err != nil {
		return IdentityInfo{}, err
	}
	r.cache.Set(key, info, ttlcache.DefaultTTL)
	return info, nil
}
