package domain

// Camada de domínio da admissão.
//
// Regras e contratos (interfaces/tipos) sem dependência de net.Listener.

import "time"

// Address identifica a origem de uma conexão (o host de RemoteAddr, sem porta).
type Address string

// Limiter decide se uma nova conexão de addr pode entrar no instante now.
//
// O contrato é o de intervalo mínimo: o primeiro contato sempre entra; depois
// disso só entra quem estiver há mais que o limite desde a última admissão.
// Tentativas rejeitadas nunca atualizam o instante guardado.
type Limiter interface {
	Admit(addr Address, now time.Time) bool
	LastAdmitted(addr Address) (time.Time, bool)
}

type Decision struct {
	Allowed bool
	// Index é o número da conexão admitida (1, 2, 3...). Zero quando rejeitada.
	Index uint64
	// RetryAfter é quanto falta para a origem poder conectar de novo.
	// Só é preenchido quando a conexão é rejeitada.
	RetryAfter time.Duration
}
