package eventbus

import (
	"fmt"
	"sync"

	berr "github.com/next-trace/scg-event-bus/contract/errors"
)

// Set holds named buses so callers can target a bus by name.
// A Set is a plain value owned by the caller; there is no package-level instance.
type Set struct {
	mu    sync.RWMutex
	buses map[string]*Bus
}

// NewSet builds a Set from buses. Duplicate names are rejected.
func NewSet(buses ...*Bus) (*Set, error) {
	s := &Set{buses: make(map[string]*Bus, len(buses))}

	for _, b := range buses {
		if err := s.Add(b); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Add adds b under b.Name().
func (s *Set) Add(b *Bus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.buses[b.Name()]; exists {
		return fmt.Errorf("add event bus %q: %w", b.Name(), berr.ErrBusExists)
	}

	s.buses[b.Name()] = b

	return nil
}

// Get returns the bus registered under name.
func (s *Set) Get(name string) (*Bus, error) {
	s.mu.RLock()
	b, ok := s.buses[name]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("event bus %q not found: %w", name, berr.ErrBusNotFound)
	}

	return b, nil
}

// Names returns the bus names, sorted.
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return sortedKeys(s.buses)
}
