// Package campaign owns the campaign lifecycle: creation, responses,
// escalation, and closure.
package campaign

import (
	"fmt"
	"sync"

	"github.com/AkashMedishetty/bloodalert/internal/domain"
)

// Store holds live campaigns in memory. Each campaign carries its own lock so
// response recording, escalation, and closure for one campaign serialize
// without blocking others.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	mu       sync.Mutex
	campaign *domain.Campaign
}

func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Put registers a new campaign. The ID must be unused.
func (s *Store) Put(c *domain.Campaign) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("%w: campaign id is required", domain.ErrValidation)
	}

	clone := c.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[c.ID]; exists {
		return fmt.Errorf("%w: campaign %q already exists", domain.ErrConflict, c.ID)
	}
	s.entries[c.ID] = &entry{campaign: &clone}
	return nil
}

// Get returns a deep copy of the campaign.
func (s *Store) Get(id string) (domain.Campaign, error) {
	e, err := s.entry(id)
	if err != nil {
		return domain.Campaign{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.campaign.Clone(), nil
}

// Update runs fn under the campaign's lock. fn receives the live campaign and
// may mutate it in place; returning an error discards nothing, the mutation
// already happened, so fn must mutate only on success paths.
func (s *Store) Update(id string, fn func(c *domain.Campaign) error) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.campaign)
}

// Status returns the campaign's current status.
func (s *Store) Status(id string) (domain.Status, error) {
	e, err := s.entry(id)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.campaign.Status, nil
}

// List returns deep copies of every stored campaign.
func (s *Store) List() []domain.Campaign {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]domain.Campaign, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.campaign.Clone())
		e.mu.Unlock()
	}
	return out
}

func (s *Store) entry(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: campaign %q", domain.ErrNotFound, id)
	}
	return e, nil
}
