package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DoVri/Topps/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// SessionStore keeps one JSON record per session under "session:<id>". Redis
// expires the key after the TTL; Lookup also checks ExpiresAt against the
// clock.
type SessionStore struct {
	rdb   *goredis.Client
	ttl   time.Duration
	clock clockwork.Clock
}

var _ domain.SessionStore = (*SessionStore)(nil)

func NewSessionStore(client *Client, ttl time.Duration, clock clockwork.Clock) *SessionStore {
	return &SessionStore{rdb: client.rdb, ttl: ttl, clock: clock}
}

func (s *SessionStore) Create(ctx context.Context, growID string) (domain.Session, error) {
	now := s.clock.Now()
	sess := domain.Session{
		ID:        uuid.NewString(),
		GrowID:    growID,
		LoggedIn:  true,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return domain.Session{}, fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKey(sess.ID), data, s.ttl).Err(); err != nil {
		return domain.Session{}, fmt.Errorf("failed to store session: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) Lookup(ctx context.Context, id string) (domain.Session, error) {
	data, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("failed to read session: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return domain.Session{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if sess.Expired(s.clock.Now()) {
		_ = s.rdb.Del(ctx, sessionKey(id)).Err()
		return domain.Session{}, domain.ErrSessionExpired
	}
	return sess, nil
}

func (s *SessionStore) Destroy(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}
