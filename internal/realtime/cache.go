package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/workroomapp/workroom-server/internal/domain"
	"github.com/workroomapp/workroom-server/internal/store"
)

// ProfileCache caches the broadcastable slice of user rows so presence
// and chat fan-out don't hit the database per message. Entries expire
// after a TTL; the database stays authoritative.
type ProfileCache struct {
	store store.UserStore
	ttl   time.Duration

	mu      sync.Mutex
	entries map[string]cachedProfile
}

type cachedProfile struct {
	profile   domain.Profile
	expiresAt time.Time
}

// NewProfileCache creates a profile cache over the user store.
func NewProfileCache(store store.UserStore, ttl time.Duration) *ProfileCache {
	return &ProfileCache{
		store:   store,
		ttl:     ttl,
		entries: make(map[string]cachedProfile),
	}
}

// Get returns the user's profile, from cache when fresh.
func (c *ProfileCache) Get(ctx context.Context, userID string) (domain.Profile, error) {
	now := time.Now()

	c.mu.Lock()
	entry, ok := c.entries[userID]
	c.mu.Unlock()

	if ok && now.Before(entry.expiresAt) {
		return entry.profile, nil
	}

	profile, err := c.store.GetProfile(ctx, userID)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("get profile %s: %w", userID, err)
	}

	c.mu.Lock()
	c.entries[userID] = cachedProfile{profile: *profile, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()

	return *profile, nil
}

// Invalidate drops a user's cached profile, forcing the next Get to read
// the database. Call after profile updates.
func (c *ProfileCache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

// Len returns the number of cached entries, fresh or stale.
func (c *ProfileCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
