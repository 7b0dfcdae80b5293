package flow

import (
	"context"
	"sync"
	"time"
)

// Store keeps live flow instances in memory, keyed by id.
type Store struct {
	mu        sync.RWMutex
	instances map[string]Instance
	idleTTL   time.Duration
	now       func() time.Time
}

func NewStore(idleTTL time.Duration) *Store {
	return &Store{
		instances: make(map[string]Instance),
		idleTTL:   idleTTL,
		now:       time.Now,
	}
}

func (s *Store) Add(inst Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[inst.ID()] = inst
}

// Get returns the flow `id` if it is owned by `ownerID`. Flows of other owners are reported as not found.
func (s *Store) Get(id, ownerID string) (Instance, error) {
	s.mu.RLock()
	inst, ok := s.instances[id]
	s.mu.RUnlock()
	if !ok || inst.Owner().ID != ownerID {
		return nil, ErrNotFound
	}
	return inst, nil
}

func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.instances, id)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.instances)
}

// Sweep drops closed flows and flows idle for longer than the idle TTL. It returns the number dropped.
// Instances are inspected outside of the store lock: a flow busy submitting must not block the others.
func (s *Store) Sweep() int {
	s.mu.RLock()
	live := make(map[string]Instance, len(s.instances))
	for id, inst := range s.instances {
		live[id] = inst
	}
	s.mu.RUnlock()

	deadline := s.now().Add(-s.idleTTL)
	expired := make([]string, 0)
	for id, inst := range live {
		if inst.Closed() || (s.idleTTL > 0 && inst.LastActive().Before(deadline)) {
			expired = append(expired, id)
		}
	}
	if len(expired) == 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, id := range expired {
		// the id may have been removed or reused meanwhile
		if inst, ok := s.instances[id]; ok && inst == live[id] {
			delete(s.instances, id)
			n++
		}
	}
	return n
}

// Run sweeps the store every `interval` until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration, onSweep func(dropped int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 && onSweep != nil {
				onSweep(n)
			}
		}
	}
}
