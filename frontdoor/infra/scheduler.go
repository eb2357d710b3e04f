package infra

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// Scheduler dispara uma função em taxa fixa: uma vez logo no início e depois a
// cada Interval, medido a partir do agendamento original (não do fim do disparo).
//
// fire não deve bloquear; quem precisa de trabalho longo inicia a própria goroutine.
type Scheduler struct {
	Clock    clock.Clock
	Interval time.Duration
}

// Run bloqueia até ctx ser cancelado. Interval <= 0 desliga o agendamento.
func (s Scheduler) Run(ctx context.Context, fire func(context.Context)) {
	if s.Interval <= 0 {
		return
	}
	c := s.Clock
	if c == nil {
		c = clock.New()
	}

	t := c.Ticker(s.Interval)
	defer t.Stop()

	fire(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fire(ctx)
		}
	}
}
