package domain

import (
	"net"
	"strconv"
	"time"
)

// ServerConfig é criada uma vez na inicialização e só é lida depois disso.
// Ela é passada por valor para as tarefas de conexão e para a troca.
type ServerConfig struct {
	AdvertisedHostname      string
	Port                    int
	Secret                  string
	ConnectionIntervalLimit time.Duration
	ExchangeInterval        time.Duration
	MaxWorkers              int
	Debug                   bool

	// ConnTimeout é o timeout de socket sugerido aos colaboradores.
	ConnTimeout time.Duration
}

// ListenAddr é o endereço de bind (todas as interfaces, porta configurada).
func (c ServerConfig) ListenAddr() string {
	return net.JoinHostPort("", strconv.Itoa(c.Port))
}

// AdvertisedAddr é o endereço anunciado aos pares.
func (c ServerConfig) AdvertisedAddr() string {
	return net.JoinHostPort(c.AdvertisedHostname, strconv.Itoa(c.Port))
}
