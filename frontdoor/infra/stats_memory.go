package infra

import (
	"context"
	"sync"

	"ezshare-gateway/frontdoor/domain"
)

type Counters struct {
	Admitted int64
	Rejected int64
}

// MemoryStatsStore guarda contadores em memória.
// Útil para testes e desenvolvimento; não faz expiração.
type MemoryStatsStore struct {
	mu     sync.Mutex
	total  Counters
	byAddr map[domain.Address]Counters

	trackAddresses bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackAddresses(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackAddresses = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{byAddr: make(map[domain.Address]Counters)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bump := func(c Counters) Counters {
		if ev.Allowed {
			c.Admitted++
		} else {
			c.Rejected++
		}
		return c
	}

	s.total = bump(s.total)
	if s.trackAddresses {
		s.byAddr[ev.Address] = bump(s.byAddr[ev.Address])
	}
	return nil
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryStatsStore) ByAddress() map[domain.Address]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.Address]Counters, len(s.byAddr))
	for k, v := range s.byAddr {
		out[k] = v
	}
	return out
}
