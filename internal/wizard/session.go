package wizard

import (
	"sync"
	"time"
)

// Session is one user's in-progress wizard run: the active wizard, the
// current step, and the accumulated draft. Sessions live only in memory;
// a process restart discards them.
type Session struct {
	UserID    int64
	Wizard    *Wizard
	State     string // current step name
	Draft     Draft
	StartedAt time.Time
	UpdatedAt time.Time
}

// SessionStore maps user identities to their wizard sessions. Different
// users' sessions are fully independent; the mutex only guards the map.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[int64]*Session)}
}

// Get returns the user's session, if any.
func (s *SessionStore) Get(userID int64) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

// Put installs a fresh session for the user, atomically replacing (and
// discarding the draft of) any session already in progress.
func (s *SessionStore) Put(userID int64, w *Wizard, state string, draft Draft) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	sess := &Session{
		UserID:    userID,
		Wizard:    w,
		State:     state,
		Draft:     draft,
		StartedAt: now,
		UpdatedAt: now,
	}
	s.sessions[userID] = sess
	return sess
}

// Delete removes the user's session and its draft.
func (s *SessionStore) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Touch refreshes the session's last-activity timestamp.
func (s *SessionStore) Touch(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		sess.UpdatedAt = time.Now()
	}
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EvictBefore removes sessions idle since before the cutoff and returns
// how many were dropped. The reference behavior never evicts; this hook
// exists for deployments that opt into a TTL.
func (s *SessionStore) EvictBefore(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}
