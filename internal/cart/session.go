package cart

import "sync"

// SessionStore maps session ids to carts. Carts are memory-only: a new
// session always starts empty and nothing survives a server restart. The
// mutex here guards the map; each Cart carries its own lock for parallel
// requests on the same session.
type SessionStore struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

func NewSessionStore() *SessionStore {
	return &SessionStore{carts: make(map[string]*Cart)}
}

// Get returns the cart for the session, creating an empty one on first use.
func (s *SessionStore) Get(sessionID string) *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[sessionID]
	if !ok {
		c = New()
		s.carts[sessionID] = c
	}
	return c
}

// Drop discards the session's cart entirely.
func (s *SessionStore) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionID)
}
