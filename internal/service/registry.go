package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"scooter/internal/domain"
	"scooter/internal/redis"
)

// StoreFunc returns the session store of one browser session.
type StoreFunc func(browserSessionID string) redis.SessionStoreInterface

type registryEntry struct {
	session  *RentalSession
	lastSeen time.Time
}

// SessionRegistry owns the rental session of every browser session.
type SessionRegistry struct {
	stores  StoreFunc
	deps    SessionDeps
	idleTTL time.Duration
	logger  zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*registryEntry
}

// NewSessionRegistry creates a new SessionRegistry. Sessions untouched for
// deps.Timing.SessionTTL become eligible for eviction by Sweep.
func NewSessionRegistry(stores StoreFunc, deps SessionDeps) *SessionRegistry {
	return &SessionRegistry{
		stores:   stores,
		deps:     deps,
		idleTTL:  deps.Timing.SessionTTL,
		logger:   deps.Logger.With().Str("component", "session_registry").Logger(),
		sessions: make(map[string]*registryEntry),
	}
}

// Start returns the session a rent page or unlock should act on. A finished
// session, or one still unlocking a different scooter, is replaced by a fresh
// one. An ACTIVE session is returned as is so the rider is sent back to it.
func (r *SessionRegistry) Start(ctx context.Context, browserSessionID, scooterID string) *RentalSession {
	r.mu.Lock()
	existing, ok := r.sessions[browserSessionID]
	if ok {
		existing.lastSeen = time.Now()
		phase := existing.session.Phase()
		keep := !phase.Terminal() && (existing.session.ScooterID() == scooterID || phase != domain.PhaseUnlocking)
		if keep {
			r.mu.Unlock()
			return existing.session
		}
	}
	session := r.newSessionLocked(browserSessionID, scooterID)
	r.mu.Unlock()

	if ok {
		existing.session.Close()
	}
	r.resume(ctx, session)
	return session
}

// Current returns the existing session in whatever phase it is in, creating
// and resuming one when the browser session has none yet.
func (r *SessionRegistry) Current(ctx context.Context, browserSessionID, scooterID string) *RentalSession {
	r.mu.Lock()
	if existing, ok := r.sessions[browserSessionID]; ok {
		existing.lastSeen = time.Now()
		r.mu.Unlock()
		return existing.session
	}
	session := r.newSessionLocked(browserSessionID, scooterID)
	r.mu.Unlock()

	r.resume(ctx, session)
	return session
}

// Lookup returns the session of a browser session, if any.
func (r *SessionRegistry) Lookup(browserSessionID string) (*RentalSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[browserSessionID]
	if !ok {
		return nil, false
	}
	entry.lastSeen = time.Now()
	return entry.session, true
}

// Len returns the number of sessions held.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes and forgets sessions idle for longer than the session TTL.
// An idle ACTIVE session is kept while its session store still holds the
// rider, so a ride outlives a quiet page. Returns the number evicted.
func (r *SessionRegistry) Sweep(ctx context.Context) int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-r.idleTTL)

	type candidate struct {
		id    string
		entry *registryEntry
	}
	var idle []candidate
	r.mu.Lock()
	for id, entry := range r.sessions {
		if entry.lastSeen.Before(cutoff) {
			idle = append(idle, candidate{id: id, entry: entry})
		}
	}
	r.mu.Unlock()

	evicted := 0
	for _, c := range idle {
		if c.entry.session.Phase() == domain.PhaseActive && !r.storeExpired(ctx, c.id) {
			continue
		}

		r.mu.Lock()
		current, ok := r.sessions[c.id]
		remove := ok && current == c.entry && current.lastSeen.Before(cutoff)
		if remove {
			delete(r.sessions, c.id)
		}
		r.mu.Unlock()

		if remove {
			c.entry.session.Close()
			evicted++
		}
	}

	if evicted > 0 {
		r.logger.Info().Int("evicted", evicted).Msg("idle rental sessions evicted")
	}
	return evicted
}

// Run sweeps idle sessions every interval until ctx is done.
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Shutdown closes every session and waits for their loops to stop.
func (r *SessionRegistry) Shutdown() {
	r.mu.Lock()
	sessions := make([]*RentalSession, 0, len(r.sessions))
	for id, entry := range r.sessions {
		sessions = append(sessions, entry.session)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
	r.logger.Info().Int("sessions", len(sessions)).Msg("rental sessions closed")
}

func (r *SessionRegistry) newSessionLocked(browserSessionID, scooterID string) *RentalSession {
	session := NewRentalSession(browserSessionID, scooterID, r.stores(browserSessionID), r.deps)
	r.sessions[browserSessionID] = &registryEntry{session: session, lastSeen: time.Now()}
	return session
}

func (r *SessionRegistry) resume(ctx context.Context, session *RentalSession) {
	if err := session.Resume(ctx); err != nil {
		r.logger.Warn().Err(err).Str("scooter_id", session.ScooterID()).Msg("failed to resume rental")
	}
}

// storeExpired reports whether the browser session's store no longer holds the
// rider. Read errors count as not expired.
func (r *SessionRegistry) storeExpired(ctx context.Context, browserSessionID string) bool {
	userID, err := r.stores(browserSessionID).Get(ctx, domain.SessionKeyUserID)
	if err != nil {
		r.logger.Warn().Err(err).Msg("session store read failed during sweep")
		return false
	}
	return userID == ""
}
