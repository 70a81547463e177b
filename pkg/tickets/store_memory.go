package tickets

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

type MemoryStore struct {
	mu      sync.RWMutex
	tickets []Ticket
}

var _ Store = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, t Ticket) error {
	if t.ID == "" {
		return errors.New("memory ticket store: ticket id is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets = append(s.tickets, cloneTicket(t))
	return nil
}

func (s *MemoryStore) List(_ context.Context, intent string, limit int) ([]Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Ticket{}
	for _, t := range s.tickets {
		if intent != "" && t.BaseIntent() != BaseIntent(intent) {
			continue
		}
		out = append(out, cloneTicket(t))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

func cloneTicket(t Ticket) Ticket {
	slots := make(map[string]string, len(t.Slots))
	for k, v := range t.Slots {
		slots[k] = v
	}
	t.Slots = slots
	return t
}
