package cart

import "sync"

// Sessions keeps one cart per client session for the dashboard API.
type Sessions struct {
	mu    sync.Mutex
	carts map[string]Cart
}

func NewSessions() *Sessions {
	return &Sessions{carts: make(map[string]Cart)}
}

func (s *Sessions) Get(sessionID string) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.carts[sessionID]
}

// Update applies fn to the session's cart and stores the result. Empty
// carts are dropped.
func (s *Sessions) Update(sessionID string, fn func(Cart) Cart) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := fn(s.carts[sessionID])
	if next.IsEmpty() {
		delete(s.carts, sessionID)
	} else {
		s.carts[sessionID] = next
	}
	return next
}

// Take removes the session's cart and returns it. Items added after Take
// start a fresh cart.
func (s *Sessions) Take(sessionID string) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.carts[sessionID]
	delete(s.carts, sessionID)
	return c
}

// Restore puts back a cart obtained from Take, merged with anything added
// to the session since.
func (s *Sessions) Restore(sessionID string, c Cart) {
	s.Update(sessionID, func(cur Cart) Cart { return cur.Merge(c) })
}
