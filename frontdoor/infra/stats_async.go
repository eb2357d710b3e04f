package infra

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"ezshare-gateway/frontdoor/domain"
)

// AsyncStatsStore desacopla o loop de accept de um StatsStore lento (Redis, SQLite).
//
// Record só coloca o evento num buffer; uma goroutine grava no store de verdade.
// Com o buffer cheio o evento é descartado e contado em Dropped.
type AsyncStatsStore struct {
	next    domain.StatsStore
	timeout time.Duration

	events  chan domain.StatsEvent
	dropped atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
}

// NewAsyncStatsStore inicia a goroutine de gravação. timeout limita cada
// gravação no store de baixo (0 = sem limite).
func NewAsyncStatsStore(next domain.StatsStore, buffer int, timeout time.Duration) *AsyncStatsStore {
	if buffer <= 0 {
		buffer = 1024
	}
	s := &AsyncStatsStore{
		next:    next,
		timeout: timeout,
		events:  make(chan domain.StatsEvent, buffer),
		done:    make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *AsyncStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	select {
	case s.events <- ev:
	default:
		s.dropped.Add(1)
	}
	return nil
}

func (s *AsyncStatsStore) loop() {
	defer close(s.done)

	for ev := range s.events {
		ctx, cancel := context.Background(), context.CancelFunc(func() {})
		if s.timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
		}
		if err := s.next.Record(ctx, ev); err != nil {
			slog.Debug("Failed to record admission stats", "addr", ev.Address, "err", err)
		}
		cancel()
	}
}

// Dropped retorna quantos eventos foram descartados por buffer cheio.
func (s *AsyncStatsStore) Dropped() int64 {
	return s.dropped.Load()
}

// Close grava o que ainda está no buffer e para a goroutine.
// Record não pode ser chamado depois de Close.
func (s *AsyncStatsStore) Close() {
	s.closeOnce.Do(func() { close(s.events) })
	<-s.done
}
