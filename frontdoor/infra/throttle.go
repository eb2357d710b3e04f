package infra

import (
	"context"
	"net"

	"golang.org/x/time/rate"
)

var _ net.Listener = (*throttledListener)(nil)

// NewThrottledListener envolve ln e aceita no máximo maxAcceptsPerSec conexões
// por segundo no total, somando todas as origens. É um teto global, anterior à
// regra por origem.
func NewThrottledListener(ln net.Listener, maxAcceptsPerSec float64) net.Listener {
	ctx, cancel := context.WithCancel(context.Background())
	return &throttledListener{
		Listener: ln,
		ctx:      ctx,
		cancel:   cancel,
		limiter:  rate.NewLimiter(rate.Limit(maxAcceptsPerSec), int(maxAcceptsPerSec)+1),
	}
}

type throttledListener struct {
	net.Listener

	// ctx é cancelado em Close, para Accept não ficar preso no Wait.
	ctx    context.Context
	cancel context.CancelFunc

	limiter *rate.Limiter
}

func (l *throttledListener) Accept() (net.Conn, error) {
	if err := l.limiter.Wait(l.ctx); err != nil {
		return nil, net.ErrClosed
	}
	return l.Listener.Accept()
}

func (l *throttledListener) Close() error {
	l.cancel()
	return l.Listener.Close()
}
