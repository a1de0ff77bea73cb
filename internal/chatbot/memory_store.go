package chatbot

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemorySessionStore keeps at most maxMessages per session and at most
// maxSessions sessions, evicting the least recently used one.
type MemorySessionStore struct {
	mu          sync.Mutex
	maxMessages int
	maxSessions int
	ttl         time.Duration
	now         func() time.Time

	order    *list.List
	sessions map[string]*list.Element
}

type memorySession struct {
	key      string
	messages []Message
	lastUsed time.Time
}

// NewMemorySessionStore builds the in-process store. A ttl of zero keeps
// sessions until they are evicted.
func NewMemorySessionStore(maxMessages, maxSessions int, ttl time.Duration) *MemorySessionStore {
	if maxMessages <= 0 {
		maxMessages = 10
	}
	if maxSessions <= 0 {
		maxSessions = 1000
	}
	return &MemorySessionStore{
		maxMessages: maxMessages,
		maxSessions: maxSessions,
		ttl:         ttl,
		now:         time.Now,
		order:       list.New(),
		sessions:    make(map[string]*list.Element),
	}
}

func (s *MemorySessionStore) History(_ context.Context, key string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.lookup(key)
	if session == nil {
		return []Message{}, nil
	}
	out := make([]Message, len(session.messages))
	copy(out, session.messages)
	return out, nil
}

func (s *MemorySessionStore) Append(_ context.Context, key string, msgs ...Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.lookup(key)
	if session == nil {
		session = &memorySession{key: key}
		s.sessions[key] = s.order.PushFront(session)
		for s.order.Len() > s.maxSessions {
			oldest := s.order.Back()
			s.order.Remove(oldest)
			delete(s.sessions, oldest.Value.(*memorySession).key)
		}
	}

	session.messages = append(session.messages, msgs...)
	if overflow := len(session.messages) - s.maxMessages; overflow > 0 {
		session.messages = append([]Message(nil), session.messages[overflow:]...)
	}
	session.lastUsed = s.now()
	return nil
}

func (s *MemorySessionStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(key)
	return nil
}

// lookup returns the live session for key and marks it recently used.
// Caller holds mu.
func (s *MemorySessionStore) lookup(key string) *memorySession {
	elem, ok := s.sessions[key]
	if !ok {
		return nil
	}
	session := elem.Value.(*memorySession)
	if s.ttl > 0 && s.now().Sub(session.lastUsed) > s.ttl {
		s.remove(key)
		return nil
	}
	s.order.MoveToFront(elem)
	return session
}

func (s *MemorySessionStore) remove(key string) {
	if elem, ok := s.sessions[key]; ok {
		s.order.Remove(elem)
		delete(s.sessions, key)
	}
}
