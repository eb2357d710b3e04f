package application

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"ezshare-gateway/frontdoor/domain"

	"github.com/stretchr/testify/require"
)

// singleSlot é um SlotPool de capacidade 1 para os testes.
type singleSlot struct {
	busy atomic.Bool
}

func (p *singleSlot) Acquire(ctx context.Context) (func(), bool) {
	for {
		if r, ok := p.TryAcquire(); ok {
			return r, true
		}
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(time.Millisecond):
		}
	}
}

func (p *singleSlot) TryAcquire() (func(), bool) {
	if !p.busy.CompareAndSwap(false, true) {
		return nil, false
	}
	return func() { p.busy.Store(false) }, true
}

func TestExchangeService_Fire_NoExchangerDoesNothing(t *testing.T) {
	svc := &ExchangeService{}
	require.False(t, svc.Fire(context.Background()))
}

func TestExchangeService_Fire_PassesConfig(t *testing.T) {
	got := make(chan domain.ServerConfig, 1)
	cfg := domain.ServerConfig{AdvertisedHostname: "peer.local", Port: 3780, Secret: "s3cr3t"}
	svc := &ExchangeService{
		Exchanger: domain.ExchangerFunc(func(_ context.Context, c domain.ServerConfig) error {
			got <- c
			return nil
		}),
		Config: cfg,
	}

	require.True(t, svc.Fire(context.Background()))
	svc.Wait()
	require.Equal(t, cfg, <-got)
}

func TestExchangeService_Fire_SkipsWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	var runs atomic.Int32

	svc := &ExchangeService{
		Exchanger: domain.ExchangerFunc(func(context.Context, domain.ServerConfig) error {
			runs.Add(1)
			started <- struct{}{}
			<-release
			return nil
		}),
		Guard: &singleSlot{},
	}

	require.True(t, svc.Fire(context.Background()))
	<-started

	// a primeira ainda segura a vaga: a segunda rodada é pulada
	require.False(t, svc.Fire(context.Background()))

	close(release)
	svc.Wait()

	require.True(t, svc.Fire(context.Background()), "slot should be free after the exchange finished")
	svc.Wait()
	require.Equal(t, int32(2), runs.Load())
}

func TestExchangeService_Fire_FailuresReleaseSlot(t *testing.T) {
	guard := &singleSlot{}
	calls := 0
	svc := &ExchangeService{
		Exchanger: domain.ExchangerFunc(func(context.Context, domain.ServerConfig) error {
			calls++
			if calls == 1 {
				panic("boom")
			}
			return errors.New("peer unreachable")
		}),
		Guard: guard,
	}

	require.True(t, svc.Fire(context.Background()))
	svc.Wait()
	require.True(t, svc.Fire(context.Background()), "panic must not leak the slot")
	svc.Wait()
	require.True(t, svc.Fire(context.Background()), "error must not leak the slot")
	svc.Wait()
	require.Equal(t, 3, calls)
}
