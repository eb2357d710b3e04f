package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"ezshare-gateway/frontdoor/domain"
)

// ExchangeService aplica a regra de disparo da troca entre pares:
// no máximo Guard-capacidade trocas em andamento (o front door usa 1).
// Um disparo que encontra a vaga ocupada é descartado, não enfileirado.
type ExchangeService struct {
	Exchanger domain.Exchanger
	Guard     domain.SlotPool
	Config    domain.ServerConfig

	wg sync.WaitGroup
}

// Fire inicia uma troca em background e retorna true, ou retorna false se a
// rodada foi pulada (troca anterior ainda rodando ou sem Exchanger).
//
// Falhas da troca são problema do colaborador: são logadas em debug e não
// afetam os próximos disparos.
func (s *ExchangeService) Fire(ctx context.Context) bool {
	if s.Exchanger == nil {
		return false
	}

	release := func() {}
	if s.Guard != nil {
		r, ok := s.Guard.TryAcquire()
		if !ok {
			return false
		}
		release = r
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer release()

		if err := s.exchange(ctx); err != nil {
			slog.Debug("Peer exchange failed", "err", err)
		}
	}()
	return true
}

func (s *ExchangeService) exchange(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in exchange: %v", r)
		}
	}()
	return s.Exchanger.Exchange(ctx, s.Config)
}

// Wait bloqueia até as trocas em andamento terminarem.
func (s *ExchangeService) Wait() {
	s.wg.Wait()
}
