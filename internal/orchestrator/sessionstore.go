package orchestrator

import (
	"fmt"
	"sync"
)

// SessionStore keeps multi-page Sessions in a process-local map keyed by
// session id, per spec.md §3's BuildSession lifecycle note: "kept in a
// process-local map keyed by session id; removed once the session reaches
// a terminal state with no remaining failed pages." A session with a
// failed page is retained indefinitely to allow RetryPage (Open Question
// (b): no TTL, matching the source's own silence on this point).
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionStore returns an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: map[string]*Session{}}
}

// Put registers sess under its own ID, replacing any existing session with
// that ID.
func (s *SessionStore) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

// Get returns the session for id, or (nil, false) if none exists.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Remove drops id's session unconditionally.
func (s *SessionStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// RetireIfClean removes id's session if it has no failed pages — the
// store's half of spec.md's removal rule; the orchestrator calls this
// after a build reaches a terminal state.
func (s *SessionStore) RetireIfClean(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	if len(sess.Failed) == 0 {
		delete(s.sessions, id)
	}
}

// MustGet returns id's session or an error, for callers (HTTP handlers,
// RetryPage/CancelBuild entry points) that cannot proceed without one.
func (s *SessionStore) MustGet(id string) (*Session, error) {
	sess, ok := s.Get(id)
	if !ok {
		return nil, fmt.Errorf("orchestrator: session %s not found", id)
	}
	return sess, nil
}
