package domain

import (
	"context"
	"time"
)

// StatsEvent é uma decisão de admissão, admitida ou não.
//
// Guardar Address por origem tem custo de cardinalidade: cada origem nova vira
// uma chave no backend.
type StatsEvent struct {
	Address Address
	Allowed bool
	Index   uint64

	At time.Time
}

// StatsStore persiste eventos de admissão (memória, Redis, SQLite).
// Erros são best-effort: o loop de accept só loga e segue.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
