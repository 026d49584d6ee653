package dashboard

import (
	"context"
	"sync"
	"time"

	apperrors "crop-dashboard/internal/common/errors"
	"crop-dashboard/internal/common/logger"
	"crop-dashboard/internal/common/metrics"
	"crop-dashboard/internal/localization"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long an untouched session is kept.
const DefaultSessionTTL = 30 * time.Minute

// Store keeps sessions in memory and expires idle ones.
type Store struct {
	deps   *Deps
	ttl    time.Duration
	now    func() time.Time
	logger logger.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore builds a Store. A nil Resolver falls back to the embedded
// overlays and a nil Logger discards output.
func NewStore(deps *Deps, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if deps.Resolver == nil {
		deps.Resolver = localization.MustLoadDefault()
	}
	return &Store{
		deps:     deps,
		ttl:      ttl,
		now:      time.Now,
		logger:   deps.Logger.With(map[string]interface{}{"component": "sessions"}),
		sessions: make(map[string]*Session),
	}
}

// Create opens a new session in the base language.
func (st *Store) Create() *Session {
	id := uuid.New().String()
	s := newSession(id, st.deps, st.now)

	st.mu.Lock()
	st.sessions[id] = s
	n := len(st.sessions)
	st.mu.Unlock()

	metrics.SessionsActive.Set(float64(n))
	st.logger.Info("session created", map[string]interface{}{"sessionId": id})
	return s
}

// Get returns a live session.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewSessionNotFoundError(id)
	}
	return s, nil
}

// Delete closes and forgets a session. Unknown ids are ignored.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	n := len(st.sessions)
	st.mu.Unlock()

	if !ok {
		return false
	}
	metrics.SessionsActive.Set(float64(n))
	s.Close()
	return true
}

// Len is the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many
// were removed.
func (st *Store) Sweep() int {
	cutoff := st.now().Add(-st.ttl)

	var expired []*Session
	st.mu.Lock()
	for id, s := range st.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(st.sessions, id)
		}
	}
	n := len(st.sessions)
	st.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		metrics.SessionsActive.Set(float64(n))
		st.logger.Info("expired idle sessions", map[string]interface{}{
			"expired": len(expired),
			"active":  n,
		})
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}

// Close closes every session and waits for their fetches.
func (st *Store) Close() {
	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Close()
		}(s)
	}
	wg.Wait()
	metrics.SessionsActive.Set(0)
}
