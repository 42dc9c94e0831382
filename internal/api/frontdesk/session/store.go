package session

import (
	"sync"
	"time"
)

// Store maps session keys to live sessions. The map lock is held only for
// lookups and swaps, never across a pipeline.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Open creates a fresh session under key. A session already stored under key is
// marked closed and returned as replaced; it is never merged into the new one.
func (st *Store) Open(key, customerPhone, customerName string) (created *Session, replaced *Session) {
	created = newSession(key, customerPhone, customerName, st.now())

	st.mu.Lock()
	replaced = st.sessions[key]
	st.sessions[key] = created
	st.mu.Unlock()

	if replaced != nil {
		replaced.markClosed()
	}
	return created, replaced
}

func (st *Store) Get(key string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[key]
	return s, ok
}

// Close removes and returns the session under key. Closing an unknown key is a
// no-op that returns nil.
func (st *Store) Close(key string) *Session {
	st.mu.Lock()
	s, ok := st.sessions[key]
	if ok {
		delete(st.sessions, key)
	}
	st.mu.Unlock()

	if !ok {
		return nil
	}
	s.markClosed()
	return s
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Now is the clock used for session timestamps.
func (st *Store) Now() time.Time {
	return st.now()
}
