package services

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RegistryOption configures a SessionRegistry.
type RegistryOption func(*SessionRegistry)

// WithMaxSessions evicts the least recently used session once more than n
// are live. n <= 0 means no limit.
func WithMaxSessions(n int) RegistryOption {
	return func(r *SessionRegistry) { r.maxSessions = n }
}

// WithTTL evicts sessions that have not been used for longer than ttl.
// ttl <= 0 disables expiry.
func WithTTL(ttl time.Duration) RegistryOption {
	return func(r *SessionRegistry) { r.ttl = ttl }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *SessionRegistry) { r.now = now }
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(gen func() string) RegistryOption {
	return func(r *SessionRegistry) { r.newID = gen }
}

type sessionEntry struct {
	id         string
	chain      RetrievalChain
	createdAt  time.Time
	lastAccess time.Time
	elem       *list.Element
}

// SessionRegistry maps session ids to retrieval chains. It is safe for
// concurrent use. Ids are never handed out twice, even after eviction.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	issued   map[string]struct{}
	recency  *list.List // front is most recently used

	maxSessions int
	ttl         time.Duration
	now         func() time.Time
	newID       func() string
}

const maxIDAttempts = 8

func NewSessionRegistry(opts ...RegistryOption) *SessionRegistry {
	r := &SessionRegistry{
		sessions: make(map[string]*sessionEntry),
		issued:   make(map[string]struct{}),
		recency:  list.New(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create registers chain under a fresh id.
func (r *SessionRegistry) Create(chain RetrievalChain) (string, error) {
	r.mu.Lock()

	id := ""
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		candidate := r.newID()
		if _, used := r.issued[candidate]; !used && candidate != "" {
			id = candidate
			break
		}
	}
	if id == "" {
		r.mu.Unlock()
		return "", fmt.Errorf("could not generate a unique session id")
	}

	now := r.now()
	entry := &sessionEntry{id: id, chain: chain, createdAt: now, lastAccess: now}
	entry.elem = r.recency.PushFront(entry)
	r.sessions[id] = entry
	r.issued[id] = struct{}{}

	var evicted []*sessionEntry
	for r.maxSessions > 0 && len(r.sessions) > r.maxSessions {
		oldest := r.recency.Back().Value.(*sessionEntry)
		r.removeLocked(oldest)
		evicted = append(evicted, oldest)
	}
	r.mu.Unlock()

	for _, e := range evicted {
		log.Info().Str("session_id", e.id).Msg("evicted least recently used session")
		closeChain(e.chain)
	}
	return id, nil
}

// Lookup returns the chain bound to id, or ErrSessionNotFound.
func (r *SessionRegistry) Lookup(id string) (RetrievalChain, error) {
	r.mu.Lock()
	entry, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return nil, ErrSessionNotFound
	}

	now := r.now()
	if r.expired(entry, now) {
		r.removeLocked(entry)
		r.mu.Unlock()
		log.Info().Str("session_id", id).Msg("session expired")
		closeChain(entry.chain)
		return nil, ErrSessionNotFound
	}

	entry.lastAccess = now
	r.recency.MoveToFront(entry.elem)
	chain := entry.chain
	r.mu.Unlock()
	return chain, nil
}

// Evict removes the session and closes its chain. It reports whether the
// session existed.
func (r *SessionRegistry) Evict(id string) bool {
	r.mu.Lock()
	entry, ok := r.sessions[id]
	if ok {
		r.removeLocked(entry)
	}
	r.mu.Unlock()

	if ok {
		closeChain(entry.chain)
	}
	return ok
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// SweepExpired evicts every expired session and returns how many were removed.
func (r *SessionRegistry) SweepExpired() int {
	if r.ttl <= 0 {
		return 0
	}

	r.mu.Lock()
	now := r.now()
	var expired []*sessionEntry
	for _, entry := range r.sessions {
		if r.expired(entry, now) {
			expired = append(expired, entry)
		}
	}
	for _, entry := range expired {
		r.removeLocked(entry)
	}
	r.mu.Unlock()

	for _, entry := range expired {
		closeChain(entry.chain)
	}
	return len(expired)
}

// Run sweeps expired sessions every interval until ctx is done. It returns
// immediately when no TTL is configured.
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	if r.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.SweepExpired(); n > 0 {
				log.Info().Int("evicted", n).Int("live", r.Len()).Msg("swept expired sessions")
			}
		case <-ctx.Done():
			return
		}
	}
}

func (r *SessionRegistry) expired(entry *sessionEntry, now time.Time) bool {
	return r.ttl > 0 && now.Sub(entry.lastAccess) > r.ttl
}

func (r *SessionRegistry) removeLocked(entry *sessionEntry) {
	delete(r.sessions, entry.id)
	r.recency.Remove(entry.elem)
}

// closeChain releases resources of chains that hold any, such as RAGChain's index.
func closeChain(chain RetrievalChain) {
	c, ok := chain.(interface{ Close(context.Context) error })
	if !ok {
		return
	}
	if err := c.Close(context.Background()); err != nil {
		log.Warn().Err(err).Msg("failed to release session resources")
	}
}
