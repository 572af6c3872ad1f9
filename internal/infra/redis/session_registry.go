package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"skill-assessment-service/internal/app"
)

// SessionRegistry is a Redis-aware implementation of app.SessionRegistry.
// Notes:
//   - Sessions themselves stay in process memory: a session owns live
//     goroutines (event loop, timer) that cannot be serialized.
//   - Redis marks session liveness so operators can see active
//     assessments across instances.
type SessionRegistry struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionRegistry(client *redis.Client, ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (r *SessionRegistry) Put(session *app.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID()] = session
	// best-effort liveness marker
	_ = r.client.Set(context.Background(), r.key(session.ID()), "1", r.ttl).Err()
}

func (r *SessionRegistry) Get(sessionID string) (*app.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[sessionID]
	return session, ok
}

func (r *SessionRegistry) Delete(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	_ = r.client.Del(context.Background(), r.key(sessionID)).Err()
}

func (r *SessionRegistry) key(sessionID string) string {
	return "assessment:session:" + sessionID
}
