package infra

import (
	"context"
	"sync"
	"time"

	"ezshare-gateway/frontdoor/domain"

	"github.com/benbjohnson/clock"
)

// IntervalStore guarda o último instante admitido por origem e aplica a regra de
// intervalo mínimo entre conexões admitidas.
//
// Só o loop de accept escreve; o mutex existe por causa do janitor.
type IntervalStore struct {
	mu           sync.Mutex
	entries      map[domain.Address]time.Time
	limit        time.Duration
	cleanupEvery time.Duration
	clock        clock.Clock
}

type StoreOption func(*IntervalStore)

// WithCleanupEvery define o período do janitor. Zero desliga a limpeza e o mapa
// cresce sem limite durante a vida do processo.
func WithCleanupEvery(d time.Duration) StoreOption {
	return func(s *IntervalStore) { s.cleanupEvery = d }
}

func WithStoreClock(c clock.Clock) StoreOption {
	return func(s *IntervalStore) { s.clock = c }
}

func NewIntervalStore(limit time.Duration, opts ...StoreOption) *IntervalStore {
	s := &IntervalStore{
		entries:      make(map[domain.Address]time.Time),
		limit:        limit,
		cleanupEvery: 2 * time.Minute,
		clock:        clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *IntervalStore) Limit() time.Duration        { return s.limit }
func (s *IntervalStore) CleanupEvery() time.Duration { return s.cleanupEvery }

// Admit implementa domain.Limiter.
func (s *IntervalStore) Admit(addr domain.Address, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.entries[addr]; ok && now.Sub(last) <= s.limit {
		return false
	}
	s.entries[addr] = now
	return true
}

// LastAdmitted implementa domain.Limiter.
func (s *IntervalStore) LastAdmitted(addr domain.Address) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.entries[addr]
	return last, ok
}

// Len retorna quantas origens estão sendo acompanhadas.
func (s *IntervalStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup remove as origens cuja última admissão ficou mais velha que o limite.
// Essas entradas não mudam nenhuma decisão: expirada ou ausente, a próxima
// conexão entra do mesmo jeito.
func (s *IntervalStore) Cleanup(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for addr, last := range s.entries {
		if now.Sub(last) > s.limit {
			delete(s.entries, addr)
			removed++
		}
	}
	return removed
}

// StartJanitor inicia uma goroutine que limpa origens expiradas periodicamente.
// Pare cancelando o contexto.
func (s *IntervalStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := s.clock.Ticker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup(s.clock.Now())
			}
		}
	}()
}
