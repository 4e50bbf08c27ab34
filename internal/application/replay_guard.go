package application

import (
	"strings"
	"sync"
	"time"
)

// replayGuard remembers recently accepted one-time codes so a captured code
// cannot be replayed inside its validity window. Entries expire on their own;
// the cap bounds memory under a flood of login attempts.
type replayGuard struct {
	mu         sync.Mutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]time.Time
}

func newReplayGuard(ttl time.Duration, maxEntries int, now func() time.Time) *replayGuard {
	if ttl <= 0 {
		// One step plus the skew tolerance on either side.
		ttl = 90 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	if now == nil {
		now = time.Now
	}
	return &replayGuard{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]time.Time),
	}
}

// MarkUsed records the code for the identity and reports whether it was fresh.
// A false return means the same code was already accepted within the window.
func (g *replayGuard) MarkUsed(identityID, code string) bool {
	if g == nil {
		return true
	}
	key := buildReplayKey(identityID, code)
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	g.cleanupLocked(now)
	if expiry, ok := g.entries[key]; ok && now.Before(expiry) {
		return false
	}
	if len(g.entries) >= g.maxEntries {
		g.evictOneLocked()
	}
	g.entries[key] = now.Add(g.ttl)
	return true
}

func (g *replayGuard) cleanupLocked(now time.Time) {
	for key, expiry := range g.entries {
		if now.After(expiry) {
			delete(g.entries, key)
		}
	}
}

func (g *replayGuard) evictOneLocked() {
	for key := range g.entries {
		delete(g.entries, key)
		return
	}
}

func buildReplayKey(identityID, code string) string {
	builder := strings.Builder{}
	builder.WriteString(identityID)
	builder.WriteString("|")
	builder.WriteString(strings.TrimSpace(code))
	return builder.String()
}
