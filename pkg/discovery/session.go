package discovery

import (
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// DefaultSessionIdle is how long a session may stay unused before its memory
// is cleared.
const DefaultSessionIdle = 30 * time.Minute

// Session remembers which tracks have been returned. It is cleared as a
// whole when it sits idle for too long or on Reset; ids are never pruned
// individually.
type Session struct {
	mu         sync.Mutex
	id         string
	seen       map[string]struct{}
	started    time.Time
	lastActive time.Time
	idle       time.Duration
	now        func() time.Time
}

// SessionInfo is a point-in-time view of a Session.
type SessionInfo struct {
	ID         string    `json:"id"`
	Seen       int       `json:"seen"`
	Started    time.Time `json:"started"`
	LastActive time.Time `json:"lastActive"`
}

func newSession(idle time.Duration, now func() time.Time) *Session {
	if idle <= 0 {
		idle = DefaultSessionIdle
	}
	s := &Session{idle: idle, now: now}
	s.resetLocked()
	return s
}

func (s *Session) resetLocked() {
	t := s.now()
	s.id = uuid.NewString()
	s.seen = make(map[string]struct{})
	s.started = t
	s.lastActive = t
}

// expireLocked clears the session if it has been idle longer than allowed.
func (s *Session) expireLocked() {
	if s.now().Sub(s.lastActive) <= s.idle {
		return
	}
	log.WithFields(log.Fields{"session": s.id, "seen": len(s.seen)}).Info("session idle, clearing memory")
	s.resetLocked()
}

// Seen reports whether id has been returned in this session.
func (s *Session) Seen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	_, ok := s.seen[id]
	return ok
}

// Record adds id to the session memory and marks the session active.
func (s *Session) Record(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	s.seen[id] = struct{}{}
	s.lastActive = s.now()
}

// Reset clears the memory and starts a new session id.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// Info returns a snapshot of the session.
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	return SessionInfo{ID: s.id, Seen: len(s.seen), Started: s.started, LastActive: s.lastActive}
}
