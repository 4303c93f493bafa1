// Package session holds the in-process session store used when no Redis is
// configured.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/DoVri/Topps/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const DefaultTTL = 24 * time.Hour

// MemoryStore keeps sessions in a map. Expired sessions are rejected on
// Lookup and removed then or by the optional sweeper.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	ttl      time.Duration
	clock    clockwork.Clock
}

func NewMemoryStore(ttl time.Duration, clock clockwork.Clock) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		sessions: make(map[string]domain.Session),
		ttl:      ttl,
		clock:    clock,
	}
}

func (s *MemoryStore) Create(_ context.Context, growID string) (domain.Session, error) {
	now := s.clock.Now()
	sess := domain.Session{
		ID:        uuid.NewString(),
		GrowID:    growID,
		LoggedIn:  true,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return sess, nil
}

func (s *MemoryStore) Lookup(_ context.Context, id string) (domain.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if sess.Expired(s.clock.Now()) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return domain.Session{}, domain.ErrSessionExpired
	}
	return sess, nil
}

func (s *MemoryStore) Destroy(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops every expired session and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			if n := s.Sweep(); n > 0 {
				slog.DebugContext(ctx, "Expired sessions swept", "removed", n, "remaining", s.Len())
			}
		case <-ctx.Done():
			slog.Info("Session sweeper stopped")
			return
		}
	}
}
