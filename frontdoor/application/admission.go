package application

import (
	"sync/atomic"
	"time"

	"ezshare-gateway/frontdoor/domain"
)

// AdmissionService concentra a regra de admissão por origem.
//
// Ele também é o dono do contador de conexões admitidas: o contador só cresce,
// exatamente uma vez por admissão, e nunca em rejeições. Deve ser usado por
// ponteiro e chamado apenas do loop de accept.
type AdmissionService struct {
	Limiter domain.Limiter
	// Interval é o limite configurado; usado só para calcular RetryAfter.
	Interval time.Duration

	admitted atomic.Uint64
}

func (s *AdmissionService) Decide(addr domain.Address, now time.Time) domain.Decision {
	if s.Limiter == nil || s.Limiter.Admit(addr, now) {
		return domain.Decision{Allowed: true, Index: s.admitted.Add(1)}
	}

	dec := domain.Decision{Allowed: false}
	if last, ok := s.Limiter.LastAdmitted(addr); ok {
		dec.RetryAfter = max(s.Interval-now.Sub(last), 0)
	}
	return dec
}

// Admitted retorna quantas conexões foram admitidas até agora.
func (s *AdmissionService) Admitted() uint64 {
	return s.admitted.Load()
}
