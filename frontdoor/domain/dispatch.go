package domain

import (
	"context"
	"net"
	"time"
)

// ConnTask é a unidade de trabalho entregue ao Dispatcher para cada conexão admitida.
type ConnTask struct {
	Config     ServerConfig
	Conn       net.Conn
	Address    Address
	Index      uint64
	AcceptedAt time.Time
}

// ConnectionHandler executa o protocolo da sessão. É um colaborador externo:
// o front door chama Handle e esquece. O handler é dono de task.Conn.
type ConnectionHandler interface {
	Handle(ctx context.Context, task ConnTask) error
}

type ConnectionHandlerFunc func(ctx context.Context, task ConnTask) error

func (f ConnectionHandlerFunc) Handle(ctx context.Context, task ConnTask) error {
	return f(ctx, task)
}

// Dispatcher executa tarefas de conexão de forma concorrente.
//
// Submit não pode bloquear esperando um worker livre: o loop de accept depende disso.
type Dispatcher interface {
	Submit(task ConnTask) error
}

// Exchanger faz a sincronização periódica com os pares. Também é um colaborador
// externo; recebe a configuração para ter acesso a secret, hostname e porta.
type Exchanger interface {
	Exchange(ctx context.Context, cfg ServerConfig) error
}

type ExchangerFunc func(ctx context.Context, cfg ServerConfig) error

func (f ExchangerFunc) Exchange(ctx context.Context, cfg ServerConfig) error {
	return f(ctx, cfg)
}
