package session

import (
	"frontdesk/internal/entity"
	"sync"
	"sync/atomic"
	"time"
)

// Session is one live call. The pipeline lock serialises utterances; the
// history lock only guards the transcript so it can be read mid-pipeline.
type Session struct {
	key           string
	customerPhone string
	customerName  string
	startedAt     time.Time

	pipeline sync.Mutex

	mu             sync.RWMutex
	history        []entity.Turn
	lastActivityAt time.Time

	closed atomic.Bool
}

func newSession(key, customerPhone, customerName string, now time.Time) *Session {
	return &Session{
		key:            key,
		customerPhone:  customerPhone,
		customerName:   customerName,
		startedAt:      now,
		lastActivityAt: now,
		history:        []entity.Turn{},
	}
}

func (s *Session) Key() string           { return s.key }
func (s *Session) CustomerPhone() string { return s.customerPhone }
func (s *Session) CustomerName() string  { return s.customerName }

// Lock acquires the pipeline lock; callers hold it for a whole utterance.
func (s *Session) Lock()   { s.pipeline.Lock() }
func (s *Session) Unlock() { s.pipeline.Unlock() }

func (s *Session) Append(speaker entity.Speaker, text string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, entity.Turn{Speaker: speaker, Text: text, At: at})
	s.lastActivityAt = at
}

// Recent returns a copy of at most n of the latest turns, oldest first.
func (s *Session) Recent(n int) []entity.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 {
		return []entity.Turn{}
	}
	start := len(s.history) - n
	if start < 0 {
		start = 0
	}

	out := make([]entity.Turn, len(s.history)-start)
	copy(out, s.history[start:])
	return out
}

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// Snapshot copies the full conversation.
func (s *Session) Snapshot() entity.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := make([]entity.Turn, len(s.history))
	copy(history, s.history)

	return entity.Conversation{
		SessionKey:     s.key,
		CustomerPhone:  s.customerPhone,
		CustomerName:   s.customerName,
		History:        history,
		StartedAt:      s.startedAt,
		LastActivityAt: s.lastActivityAt,
	}
}

// Closed reports whether the session was closed or replaced.
func (s *Session) Closed() bool {
	return s.closed.Load()
}

func (s *Session) markClosed() bool {
	return s.closed.CompareAndSwap(false, true)
}
