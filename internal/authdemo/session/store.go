package session

import "sync"

// Observer receives the new authentication flag whenever it flips.
type Observer func(authenticated bool)

// Store holds the authentication flag for a single visitor.
//
// A Store is created explicitly (one per visitor) and handed to every consumer; there is no
// package-level instance. Observers run synchronously before Login or Logout returns, so any
// read that follows a mutation sees the new value.
type Store struct {
	mu            sync.RWMutex
	authenticated bool
	nextID        int
	observers     map[int]Observer
}

// NewStore returns an unauthenticated Store.
func NewStore() *Store {
	return &Store{observers: make(map[int]Observer)}
}

// IsAuthenticated reports the current flag.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// Login marks the visitor as authenticated. Calling it again is a no-op.
func (s *Store) Login() {
	s.set(true)
}

// Logout clears the authentication flag. Calling it again is a no-op.
func (s *Store) Logout() {
	s.set(false)
}

// Subscribe registers fn for flag changes and returns a function that removes it.
func (s *Store) Subscribe(fn Observer) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.observers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) set(value bool) {
	s.mu.Lock()
	if s.authenticated == value {
		s.mu.Unlock()
		return
	}
	s.authenticated = value
	observers := make([]Observer, 0, len(s.observers))
	for id := 1; id <= s.nextID; id++ {
		if fn, ok := s.observers[id]; ok {
			observers = append(observers, fn)
		}
	}
	s.mu.Unlock()

	// Observers may read the store, so they run after the write lock is released.
	for _, fn := range observers {
		fn(value)
	}
}
