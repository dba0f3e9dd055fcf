package params

import "sync"

// Store holds the active parameter set. Readers take a snapshot per frame so a
// change never lands half way through a pipeline pass.
type Store struct {
	mu       sync.RWMutex
	current  Params
	version  uint64
	watchers []func(Params)
}

// NewStore creates a Store holding p. p is not validated.
func NewStore(p Params) *Store {
	return &Store{current: p}
}

// Get returns a copy of the active parameters.
func (s *Store) Get() Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Version is incremented on every successful change.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Set validates and replaces the active parameters.
func (s *Store) Set(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = p
	s.version++
	watchers := append([]func(Params){}, s.watchers...)
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(p)
	}
	return nil
}

// Update applies fn to a copy of the active parameters and stores the result
// if fn succeeds and the result validates. The store stays locked from read
// to write, so concurrent updates never drop each other's changes.
func (s *Store) Update(fn func(*Params) error) (Params, error) {
	s.mu.Lock()
	p := s.current
	if err := fn(&p); err != nil {
		s.mu.Unlock()
		return p, err
	}
	if err := p.Validate(); err != nil {
		s.mu.Unlock()
		return p, err
	}
	s.current = p
	s.version++
	watchers := append([]func(Params){}, s.watchers...)
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(p)
	}
	return p, nil
}

// OnChange registers fn to be called after every successful change.
func (s *Store) OnChange(fn func(Params)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}
