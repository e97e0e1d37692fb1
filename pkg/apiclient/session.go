package apiclient

import "sync"

// Session holds the token pair for one authenticated user.
type Session struct {
	AccessToken  string
	RefreshToken string
}

// SessionStore abstracts where the client keeps its tokens. Implementations
// must be safe for concurrent use; the client reads and replaces the session
// from multiple goroutines.
type SessionStore interface {
	Load() (Session, bool)
	Save(session Session)
	Clear()
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	session Session
	held    bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, s.held
}

func (s *MemoryStore) Save(session Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
	s.held = true
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = Session{}
	s.held = false
}
