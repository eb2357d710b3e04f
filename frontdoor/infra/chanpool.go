package infra

import (
	"context"

	"ezshare-gateway/frontdoor/domain"
)

// chanPool é um semáforo: cada vaga é um elemento no buffer do channel.
type chanPool struct {
	sem chan struct{}
}

// NewChanPool cria um pool com capacidade `max` (mínimo 1).
func NewChanPool(max int) domain.SlotPool {
	if max <= 0 {
		max = 1
	}
	return &chanPool{sem: make(chan struct{}, max)}
}

func (p *chanPool) release() { <-p.sem }

func (p *chanPool) TryAcquire() (func(), bool) {
	select {
	case p.sem <- struct{}{}:
		return p.release, true
	default:
		return nil, false
	}
}

func (p *chanPool) Acquire(ctx context.Context) (func(), bool) {
	if release, ok := p.TryAcquire(); ok {
		return release, true
	}
	select {
	case p.sem <- struct{}{}:
		return p.release, true
	case <-ctx.Done():
		return nil, false
	}
}
